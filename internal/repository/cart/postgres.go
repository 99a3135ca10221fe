package cart

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

// EnsureForUser returns the user's cart, creating it on first need. The
// ON CONFLICT upsert makes concurrent first requests converge on one row.
func (r *postgresRepo) EnsureForUser(ctx context.Context, userID string) (*domain.Cart, error) {
	const q = `
INSERT INTO carts (user_id)
VALUES ($1)
ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
RETURNING id::text, user_id::text, created_at
`
	var cart domain.Cart
	if err := r.pool.QueryRow(ctx, q, userID).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Cart, error) {
	const q = `
SELECT id::text, user_id::text, created_at
FROM carts
WHERE id = $1
`
	var cart domain.Cart
	if err := r.pool.QueryRow(ctx, q, id).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &cart, nil
}

// UpsertLine inserts or replaces the line for the identity key. The unique
// constraint on (cart_id, product_id, size, color) serializes concurrent
// upserts of the same key; duplicate rows cannot occur.
func (r *postgresRepo) UpsertLine(ctx context.Context, in UpsertLineInput) (*domain.CartLine, error) {
	const q = `
INSERT INTO cart_items (cart_id, product_id, quantity, price, discounted_price, size, color)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (cart_id, product_id, size, color) DO UPDATE SET
	quantity = EXCLUDED.quantity,
	price = EXCLUDED.price,
	discounted_price = EXCLUDED.discounted_price
RETURNING item_id::text, cart_id::text, product_id::text, quantity, price::text, discounted_price::text, size, color, added_at
`
	return scanLine(r.pool.QueryRow(ctx, q,
		in.CartID,
		in.ProductID,
		in.Quantity,
		in.Price.StringFixed(2),
		in.DiscountedPrice.StringFixed(2),
		in.Size,
		in.Color,
	))
}

func (r *postgresRepo) DeleteLine(ctx context.Context, cartID, itemID string) error {
	const q = `
DELETE FROM cart_items
WHERE item_id = $1 AND cart_id = $2
`
	cmd, err := r.pool.Exec(ctx, q, itemID, cartID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) Snapshot(ctx context.Context, cartID string) (*Snapshot, error) {
	cart, err := r.GetByID(ctx, cartID)
	if err != nil {
		return nil, err
	}

	const linesQuery = `
SELECT ci.item_id::text, ci.cart_id::text, ci.product_id::text, ci.quantity,
       ci.price::text, ci.discounted_price::text, ci.size, ci.color, ci.added_at,
       COALESCE(p.name, ''), COALESCE(p.main_image_url, ''), COALESCE(p.discount, 0), COALESCE(p.stock_quantity, 0)
FROM cart_items ci
LEFT JOIN products p ON p.id = ci.product_id
WHERE ci.cart_id = $1
ORDER BY ci.added_at ASC
`
	rows, err := r.pool.Query(ctx, linesQuery, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snap := Snapshot{Cart: *cart, Items: []LineView{}, Subtotal: decimal.Zero}
	for rows.Next() {
		var view LineView
		var priceStr, discountedStr string
		if err := rows.Scan(
			&view.ItemID,
			&view.CartID,
			&view.ProductID,
			&view.Quantity,
			&priceStr,
			&discountedStr,
			&view.Size,
			&view.Color,
			&view.AddedAt,
			&view.ProductName,
			&view.MainImageURL,
			&view.Discount,
			&view.Stock,
		); err != nil {
			return nil, err
		}
		if view.Price, err = decimal.NewFromString(priceStr); err != nil {
			return nil, err
		}
		if view.DiscountedPrice, err = decimal.NewFromString(discountedStr); err != nil {
			return nil, err
		}
		snap.Subtotal = snap.Subtotal.Add(view.DiscountedPrice.Mul(decimal.NewFromInt(int64(view.Quantity))))
		snap.Items = append(snap.Items, view)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &snap, nil
}

func scanLine(row pgx.Row) (*domain.CartLine, error) {
	var line domain.CartLine
	var priceStr, discountedStr string
	if err := row.Scan(
		&line.ItemID,
		&line.CartID,
		&line.ProductID,
		&line.Quantity,
		&priceStr,
		&discountedStr,
		&line.Size,
		&line.Color,
		&line.AddedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	var err error
	if line.Price, err = decimal.NewFromString(priceStr); err != nil {
		return nil, err
	}
	if line.DiscountedPrice, err = decimal.NewFromString(discountedStr); err != nil {
		return nil, err
	}
	return &line, nil
}
