package product

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"storefront-core/internal/domain"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	const q = `
SELECT id::text, name, slug, price::text, discount, COALESCE(main_image_url, ''), sizes, colors, stock_quantity, is_active, created_at
FROM products
WHERE id = $1
`
	var p domain.Product
	var priceStr string
	if err := r.pool.QueryRow(ctx, q, id).Scan(
		&p.ID,
		&p.Name,
		&p.Slug,
		&priceStr,
		&p.Discount,
		&p.MainImageURL,
		&p.Sizes,
		&p.Colors,
		&p.StockQuantity,
		&p.IsActive,
		&p.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return nil, err
	}
	p.Price = price
	return &p, nil
}

func (r *postgresRepo) GetPrice(ctx context.Context, id string) (*domain.PriceQuote, error) {
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, domain.ErrNotFound
	}
	quote := p.Quote()
	return &quote, nil
}

func (r *postgresRepo) Upsert(ctx context.Context, p domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (name, slug, price, discount, main_image_url, sizes, colors, stock_quantity, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (slug) DO UPDATE SET
	name = EXCLUDED.name,
	price = EXCLUDED.price,
	discount = EXCLUDED.discount,
	main_image_url = EXCLUDED.main_image_url,
	sizes = EXCLUDED.sizes,
	colors = EXCLUDED.colors,
	stock_quantity = EXCLUDED.stock_quantity,
	is_active = EXCLUDED.is_active
RETURNING id::text, created_at
`
	if err := r.pool.QueryRow(ctx, q,
		p.Name,
		p.Slug,
		p.Price.StringFixed(2),
		p.Discount,
		p.MainImageURL,
		p.Sizes,
		p.Colors,
		p.StockQuantity,
		p.IsActive,
	).Scan(&p.ID, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
