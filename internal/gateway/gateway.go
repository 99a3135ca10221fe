// Package gateway defines the typed boundary to the external payment gateway.
// Implementations live in subpackages; the reconciliation engine depends only
// on these types so the gateway can be swapped out.
package gateway

import (
	"encoding/json"
	"fmt"
)

// Normalized session statuses. Adapters map gateway-specific values onto
// these so the reconciliation engine never inspects raw gateway strings.
const (
	StatusPending = "pending"
	StatusPaid    = "paid"
	StatusExpired = "expired"
)

// Session describes an external payment session created for an order.
type Session struct {
	GatewayRef       string          `json:"gateway_ref"`
	Status           string          `json:"status"`
	PaymentSessionID string          `json:"payment_session_id,omitempty"`
	PaymentLink      string          `json:"payment_link,omitempty"`
	Raw              json.RawMessage `json:"-"`
}

// OrderStatus is the gateway's authoritative view of a payment session.
type OrderStatus struct {
	GatewayRef       string
	Status           string
	PaymentSessionID string
	Raw              json.RawMessage
}

// RefundResult is the gateway's acknowledgment of a refund request.
type RefundResult struct {
	RefundRef string
	Status    string
	Raw       json.RawMessage
}

// Customer identifies the payer when creating a session.
type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// EventKind tags the known webhook shapes. Unknown events are still durably
// logged by the caller rather than dropped.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventPaymentSuccess
	EventPaymentFailed
)

// WebhookEvent is the parsed form of an inbound gateway callback.
type WebhookEvent struct {
	Kind       EventKind
	Name       string
	GatewayRef string
}

// Error carries the upstream status code and raw response body so failures
// can be audited later.
type Error struct {
	StatusCode int
	Body       []byte
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway error (%d): %s", e.StatusCode, e.Message)
}
