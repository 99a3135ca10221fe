package payment

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

const paymentColumns = `id::text, order_id::text, gateway, amount::text, status, payment_ref, verified, payload, created_at, updated_at`

func (r *postgresRepo) Create(ctx context.Context, in CreatePaymentInput) (*domain.Payment, error) {
	const q = `
INSERT INTO order_payments (order_id, gateway, amount, status, payment_ref, payload)
VALUES ($1, $2, $3, 'pending', $4, $5)
RETURNING ` + paymentColumns

	return scanPayment(r.pool.QueryRow(ctx, q,
		in.OrderID,
		in.Gateway,
		in.Amount.StringFixed(2),
		in.PaymentRef,
		in.Payload,
	))
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM order_payments WHERE id = $1`
	return scanPayment(r.pool.QueryRow(ctx, q, id))
}

func (r *postgresRepo) GetByRef(ctx context.Context, paymentRef string) (*domain.Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM order_payments WHERE payment_ref = $1`
	return scanPayment(r.pool.QueryRow(ctx, q, paymentRef))
}

func (r *postgresRepo) LatestNonFailedByOrder(ctx context.Context, orderID string) (*domain.Payment, error) {
	const q = `
SELECT ` + paymentColumns + `
FROM order_payments
WHERE order_id = $1 AND status <> 'failed'
ORDER BY created_at DESC
LIMIT 1
`
	return scanPayment(r.pool.QueryRow(ctx, q, orderID))
}

// MarkSucceeded transitions the attempt to success and confirms the order in
// one transaction. The row lock plus the status guard on the UPDATE make the
// transition apply at most once; a second caller sees a terminal row and gets
// applied=false.
func (r *postgresRepo) MarkSucceeded(ctx context.Context, paymentRef string, payload []byte) (bool, error) {
	return r.transition(ctx, paymentRef, func(ctx context.Context, tx pgx.Tx, paymentID, orderID string) error {
		if _, err := tx.Exec(ctx, `
UPDATE order_payments
SET status = 'success', verified = true, payload = $2, updated_at = now()
WHERE id = $1 AND status = 'pending'
`, paymentID, payload); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
UPDATE orders
SET status = 'confirmed', payment_status = 'paid', updated_at = now()
WHERE id = $1
`, orderID)
		return err
	})
}

// MarkFailed transitions the attempt to failed. The order's status stays
// pending so a new attempt can be created; only its payment_status changes.
func (r *postgresRepo) MarkFailed(ctx context.Context, paymentRef string, payload []byte) (bool, error) {
	return r.transition(ctx, paymentRef, func(ctx context.Context, tx pgx.Tx, paymentID, orderID string) error {
		if _, err := tx.Exec(ctx, `
UPDATE order_payments
SET status = 'failed', payload = $2, updated_at = now()
WHERE id = $1 AND status = 'pending'
`, paymentID, payload); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
UPDATE orders
SET payment_status = 'failed', updated_at = now()
WHERE id = $1
`, orderID)
		return err
	})
}

func (r *postgresRepo) transition(ctx context.Context, paymentRef string, apply func(ctx context.Context, tx pgx.Tx, paymentID, orderID string) error) (bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	var paymentID, orderID, status string
	err = tx.QueryRow(ctx, `
SELECT id::text, order_id::text, status
FROM order_payments
WHERE payment_ref = $1
FOR UPDATE
`, paymentRef).Scan(&paymentID, &orderID, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, domain.ErrNotFound
		}
		return false, err
	}

	if status != domain.PaymentAttemptPending {
		// Already terminal: replaying the same outcome is a no-op.
		return false, nil
	}

	if err := apply(ctx, tx, paymentID, orderID); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (r *postgresRepo) CreateRefund(ctx context.Context, in CreateRefundInput) (*domain.Refund, error) {
	const q = `
INSERT INTO refunds (payment_id, amount, reason, refund_ref, status)
VALUES ($1, $2, $3, $4, 'pending')
RETURNING id::text, payment_id::text, amount::text, COALESCE(reason, ''), refund_ref, status, created_at
`
	var refund domain.Refund
	var amountStr string
	if err := r.pool.QueryRow(ctx, q,
		in.PaymentID,
		in.Amount.StringFixed(2),
		in.Reason,
		in.RefundRef,
	).Scan(
		&refund.ID,
		&refund.PaymentID,
		&amountStr,
		&refund.Reason,
		&refund.RefundRef,
		&refund.Status,
		&refund.CreatedAt,
	); err != nil {
		return nil, err
	}
	var err error
	if refund.Amount, err = decimal.NewFromString(amountStr); err != nil {
		return nil, err
	}
	return &refund, nil
}

func (r *postgresRepo) MarkRefund(ctx context.Context, refundRef, status string) (bool, error) {
	const q = `
UPDATE refunds
SET status = $2
WHERE refund_ref = $1 AND status = 'pending'
`
	cmd, err := r.pool.Exec(ctx, q, refundRef, status)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	var amountStr string
	if err := row.Scan(
		&p.ID,
		&p.OrderID,
		&p.Gateway,
		&amountStr,
		&p.Status,
		&p.PaymentRef,
		&p.Verified,
		&p.Payload,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	var err error
	if p.Amount, err = decimal.NewFromString(amountStr); err != nil {
		return nil, err
	}
	return &p, nil
}
