package cart

import (
	"context"

	"github.com/shopspring/decimal"

	"storefront-core/internal/domain"
)

// UpsertLineInput carries one line mutation with its price snapshot. The
// identity key is (cart, product, size, color); upserting an existing key
// replaces quantity and refreshes the snapshot.
type UpsertLineInput struct {
	CartID          string
	ProductID       string
	Quantity        int
	Size            string
	Color           string
	Price           decimal.Decimal
	DiscountedPrice decimal.Decimal
}

// LineView is a cart line joined with the catalog fields clients render.
type LineView struct {
	domain.CartLine
	ProductName  string `json:"name"`
	MainImageURL string `json:"main_image_url,omitempty"`
	Discount     int    `json:"discount"`
	Stock        int    `json:"stock_quantity"`
}

// Snapshot is the canonical cart state clients pull after a change
// notification.
type Snapshot struct {
	Cart     domain.Cart     `json:"cart"`
	Items    []LineView      `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type Repository interface {
	EnsureForUser(ctx context.Context, userID string) (*domain.Cart, error)
	GetByID(ctx context.Context, id string) (*domain.Cart, error)
	UpsertLine(ctx context.Context, in UpsertLineInput) (*domain.CartLine, error)
	DeleteLine(ctx context.Context, cartID, itemID string) error
	Snapshot(ctx context.Context, cartID string) (*Snapshot, error)
}
