package order

import (
	"context"
	"errors"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"storefront-core/internal/domain"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logger}
}

// Create inserts the order and its immutable line snapshots in one
// transaction.
func (r *postgresRepo) Create(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	const orderQuery = `
INSERT INTO orders (user_id, order_number, status, subtotal, tax, shipping, total, customer_email, customer_name, customer_phone, payment_status)
VALUES ($1, $2, 'pending', $3, $4, $5, $6, $7, $8, $9, 'pending')
RETURNING id::text, created_at, updated_at
`
	order := domain.Order{
		UserID:        in.UserID,
		OrderNumber:   in.OrderNumber,
		Status:        domain.OrderStatusPending,
		Subtotal:      in.Subtotal,
		Tax:           in.Tax,
		Shipping:      in.Shipping,
		Total:         in.Total,
		CustomerEmail: in.CustomerEmail,
		CustomerName:  in.CustomerName,
		CustomerPhone: in.CustomerPhone,
		PaymentStatus: domain.PaymentStatusPending,
	}
	if err := tx.QueryRow(ctx, orderQuery,
		in.UserID,
		in.OrderNumber,
		in.Subtotal.StringFixed(2),
		in.Tax.StringFixed(2),
		in.Shipping.StringFixed(2),
		in.Total.StringFixed(2),
		in.CustomerEmail,
		in.CustomerName,
		in.CustomerPhone,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt); err != nil {
		return nil, err
	}

	const lineQuery = `
INSERT INTO order_items (order_id, product_id, quantity, size, color, price, product_snapshot)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id::text, created_at
`
	for _, l := range in.Lines {
		line := domain.OrderLine{
			OrderID:   order.ID,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Size:      l.Size,
			Color:     l.Color,
			Price:     l.Price,
			Snapshot:  l.Snapshot,
		}
		if err := tx.QueryRow(ctx, lineQuery,
			order.ID,
			l.ProductID,
			l.Quantity,
			l.Size,
			l.Color,
			l.Price.StringFixed(2),
			l.Snapshot,
		).Scan(&line.ID, &line.CreatedAt); err != nil {
			return nil, err
		}
		order.Lines = append(order.Lines, line)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	const q = `
SELECT id::text, user_id::text, order_number, status, subtotal::text, tax::text, shipping::text, total::text,
       customer_email, customer_name, COALESCE(customer_phone, ''), payment_status, created_at, updated_at
FROM orders
WHERE id = $1
`
	order, err := scanOrder(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		return nil, err
	}
	lines, err := r.fetchLines(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Lines = lines
	return order, nil
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	const q = `
SELECT id::text, user_id::text, order_number, status, subtotal::text, tax::text, shipping::text, total::text,
       customer_email, customer_name, COALESCE(customer_phone, ''), payment_status, created_at, updated_at
FROM orders
WHERE user_id = $1
ORDER BY created_at DESC
`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		lines, err := r.fetchLines(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Lines = lines
	}
	return orders, nil
}

func (r *postgresRepo) fetchLines(ctx context.Context, orderID string) ([]domain.OrderLine, error) {
	const q = `
SELECT id::text, order_id::text, product_id::text, quantity, size, COALESCE(color, ''), price::text, product_snapshot, created_at
FROM order_items
WHERE order_id = $1
ORDER BY created_at ASC
`
	rows, err := r.pool.Query(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []domain.OrderLine
	for rows.Next() {
		var line domain.OrderLine
		var priceStr string
		if err := rows.Scan(
			&line.ID,
			&line.OrderID,
			&line.ProductID,
			&line.Quantity,
			&line.Size,
			&line.Color,
			&priceStr,
			&line.Snapshot,
			&line.CreatedAt,
		); err != nil {
			return nil, err
		}
		if line.Price, err = decimal.NewFromString(priceStr); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var order domain.Order
	var subtotal, tax, shipping, total string
	if err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.OrderNumber,
		&order.Status,
		&subtotal,
		&tax,
		&shipping,
		&total,
		&order.CustomerEmail,
		&order.CustomerName,
		&order.CustomerPhone,
		&order.PaymentStatus,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	var err error
	if order.Subtotal, err = decimal.NewFromString(subtotal); err != nil {
		return nil, err
	}
	if order.Tax, err = decimal.NewFromString(tax); err != nil {
		return nil, err
	}
	if order.Shipping, err = decimal.NewFromString(shipping); err != nil {
		return nil, err
	}
	if order.Total, err = decimal.NewFromString(total); err != nil {
		return nil, err
	}
	return &order, nil
}
