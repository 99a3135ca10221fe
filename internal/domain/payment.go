package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentAttemptPending = "pending"
	PaymentAttemptSuccess = "success"
	PaymentAttemptFailed  = "failed"

	RefundStatusPending   = "pending"
	RefundStatusCompleted = "completed"
	RefundStatusFailed    = "failed"
)

// Payment is one attempt to collect funds for an order. An order may have any
// number of attempts but at most one may ever reach success. A terminal status
// is write-once: re-applying the same outcome is a no-op.
type Payment struct {
	ID         string          `json:"id"`
	OrderID    string          `json:"order_id"`
	Gateway    string          `json:"gateway"`
	Amount     decimal.Decimal `json:"amount"`
	Status     string          `json:"status"`
	PaymentRef string          `json:"payment_ref"`
	Verified   bool            `json:"verified"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Terminal reports whether the attempt already reached success or failed.
func (p Payment) Terminal() bool {
	return p.Status == PaymentAttemptSuccess || p.Status == PaymentAttemptFailed
}

// Refund belongs to a successful payment; amount never exceeds the payment
// amount.
type Refund struct {
	ID        string          `json:"id"`
	PaymentID string          `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason,omitempty"`
	RefundRef string          `json:"refund_ref"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}
