package payment

import (
	"context"

	"github.com/shopspring/decimal"

	"storefront-core/internal/domain"
)

type CreatePaymentInput struct {
	OrderID    string
	Gateway    string
	Amount     decimal.Decimal
	PaymentRef string
	Payload    []byte
}

type CreateRefundInput struct {
	PaymentID string
	Amount    decimal.Decimal
	Reason    string
	RefundRef string
}

// Repository persists payment attempts and refunds. MarkSucceeded and
// MarkFailed are conditional transitions: they apply only while the attempt
// is still pending and report whether a row actually changed, so two
// near-simultaneous reconcilers cannot both win.
type Repository interface {
	Create(ctx context.Context, in CreatePaymentInput) (*domain.Payment, error)
	GetByID(ctx context.Context, id string) (*domain.Payment, error)
	GetByRef(ctx context.Context, paymentRef string) (*domain.Payment, error)
	LatestNonFailedByOrder(ctx context.Context, orderID string) (*domain.Payment, error)

	MarkSucceeded(ctx context.Context, paymentRef string, payload []byte) (bool, error)
	MarkFailed(ctx context.Context, paymentRef string, payload []byte) (bool, error)

	CreateRefund(ctx context.Context, in CreateRefundInput) (*domain.Refund, error)
	MarkRefund(ctx context.Context, refundRef, status string) (bool, error)
}
