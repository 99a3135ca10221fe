package order

import (
	"context"

	"github.com/shopspring/decimal"

	"storefront-core/internal/domain"
)

type CreateOrderLine struct {
	ProductID string
	Quantity  int
	Size      string
	Color     string
	Price     decimal.Decimal
	Snapshot  map[string]interface{}
}

type CreateOrderInput struct {
	UserID        string
	OrderNumber   string
	Subtotal      decimal.Decimal
	Tax           decimal.Decimal
	Shipping      decimal.Decimal
	Total         decimal.Decimal
	CustomerEmail string
	CustomerName  string
	CustomerPhone string
	Lines         []CreateOrderLine
}

type Repository interface {
	Create(ctx context.Context, in CreateOrderInput) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
}
