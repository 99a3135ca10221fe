package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart is created lazily on a user's first need and never deleted on logout.
type Cart struct {
	ID        string    `json:"cart_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CartLine is one live row per (cart, product, size, color). Prices are
// snapshotted at mutation time and not recomputed later.
type CartLine struct {
	ItemID          string          `json:"item_id"`
	CartID          string          `json:"cart_id"`
	ProductID       string          `json:"product_id"`
	Quantity        int             `json:"quantity"`
	Price           decimal.Decimal `json:"price"`
	DiscountedPrice decimal.Decimal `json:"discounted_price"`
	Size            string          `json:"size"`
	Color           string          `json:"color"`
	AddedAt         time.Time       `json:"added_at"`
}
