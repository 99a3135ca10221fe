package seed

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"storefront-core/internal/domain"
	productrepo "storefront-core/internal/repository/product"
)

// Apply inserts basic catalog data for manual testing. It is idempotent via
// the product slug upsert.
func Apply(ctx context.Context, products productrepo.Repository) error {
	seeds := []domain.Product{
		{
			Name:          "Classic Tee",
			Slug:          "classic-tee",
			Price:         decimal.NewFromFloat(499.00),
			Discount:      10,
			Sizes:         []string{"S", "M", "L", "XL"},
			Colors:        []string{"Black", "White"},
			StockQuantity: 120,
			IsActive:      true,
		},
		{
			Name:          "Denim Jacket",
			Slug:          "denim-jacket",
			Price:         decimal.NewFromFloat(2499.00),
			Discount:      0,
			Sizes:         []string{"M", "L", "XL"},
			Colors:        []string{"Indigo"},
			StockQuantity: 35,
			IsActive:      true,
		},
		{
			Name:          "Canvas Sneakers",
			Slug:          "canvas-sneakers",
			Price:         decimal.NewFromFloat(1799.00),
			Discount:      25,
			Sizes:         []string{"7", "8", "9", "10"},
			Colors:        []string{"White", "Navy"},
			StockQuantity: 60,
			IsActive:      true,
		},
	}

	for _, p := range seeds {
		if _, err := products.Upsert(ctx, p); err != nil {
			return fmt.Errorf("upsert product %s: %w", p.Slug, err)
		}
	}
	return nil
}
