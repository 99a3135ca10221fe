package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusFailed    = "failed"

	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

// Order is an immutable checkout snapshot. Status moves pending->confirmed or
// pending->failed only as a function of a payment attempt reaching a terminal
// state; confirmed is terminal with respect to payment.
type Order struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	OrderNumber   string          `json:"order_number"`
	Status        string          `json:"status"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	Shipping      decimal.Decimal `json:"shipping"`
	Total         decimal.Decimal `json:"total"`
	CustomerEmail string          `json:"customer_email"`
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone,omitempty"`
	PaymentStatus string          `json:"payment_status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Lines         []OrderLine     `json:"items,omitempty"`
}

// OrderLine captures a cart line verbatim at order-creation time so historical
// orders are decoupled from future catalog edits.
type OrderLine struct {
	ID        string                 `json:"id"`
	OrderID   string                 `json:"order_id"`
	ProductID string                 `json:"product_id"`
	Quantity  int                    `json:"quantity"`
	Size      string                 `json:"size"`
	Color     string                 `json:"color,omitempty"`
	Price     decimal.Decimal        `json:"price"`
	Snapshot  map[string]interface{} `json:"product_snapshot,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}
