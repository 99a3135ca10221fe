package webhooklog

import (
	"context"

	"storefront-core/internal/domain"
)

// AppendInput is one inbound gateway callback, recorded whether or not its
// signature verified.
type AppendInput struct {
	EventType      string
	Headers        map[string]string
	Payload        []byte
	SignatureValid bool
}

// Repository is append-only: entries are never mutated or deleted. List
// exists for forensic replay.
type Repository interface {
	Append(ctx context.Context, in AppendInput) (*domain.WebhookLogEntry, error)
	List(ctx context.Context, limit int) ([]domain.WebhookLogEntry, error)
}
