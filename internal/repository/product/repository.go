package product

import (
	"context"

	"storefront-core/internal/domain"
)

// Repository is the read-mostly catalog collaborator. Upsert exists for seed
// data only; catalog CRUD proper is out of scope.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	GetPrice(ctx context.Context, id string) (*domain.PriceQuote, error)
	Upsert(ctx context.Context, p domain.Product) (*domain.Product, error)
}
