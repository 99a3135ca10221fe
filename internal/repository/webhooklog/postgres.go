package webhooklog

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"storefront-core/internal/domain"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) Append(ctx context.Context, in AppendInput) (*domain.WebhookLogEntry, error) {
	const q = `
INSERT INTO webhook_logs (event_type, headers, payload, signature_valid)
VALUES ($1, $2, $3, $4)
RETURNING id::text, received_at
`
	entry := domain.WebhookLogEntry{
		EventType:      in.EventType,
		Headers:        in.Headers,
		Payload:        in.Payload,
		SignatureValid: in.SignatureValid,
	}
	if err := r.pool.QueryRow(ctx, q,
		in.EventType,
		in.Headers,
		string(in.Payload),
		in.SignatureValid,
	).Scan(&entry.ID, &entry.ReceivedAt); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *postgresRepo) List(ctx context.Context, limit int) ([]domain.WebhookLogEntry, error) {
	const q = `
SELECT id::text, event_type, headers, payload, signature_valid, received_at
FROM webhook_logs
ORDER BY received_at DESC
LIMIT $1
`
	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.WebhookLogEntry
	for rows.Next() {
		var e domain.WebhookLogEntry
		var payload *string
		if err := rows.Scan(&e.ID, &e.EventType, &e.Headers, &payload, &e.SignatureValid, &e.ReceivedAt); err != nil {
			return nil, err
		}
		if payload != nil {
			e.Payload = []byte(*payload)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
