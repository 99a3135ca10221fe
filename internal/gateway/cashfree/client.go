// Package cashfree implements the payment gateway boundary against the
// Cashfree PG API. The client performs no deduplication: callers must not
// assume calling CreateOrder twice is safe.
package cashfree

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"

	"storefront-core/internal/gateway"
)

const (
	apiVersion = "2022-09-01"

	// Gateway-side order statuses.
	StatusActive  = "ACTIVE"
	StatusPaid    = "PAID"
	StatusExpired = "EXPIRED"
)

type apiResult struct {
	status int
	body   []byte
}

// Client talks to one Cashfree environment. Upstream calls go through a
// circuit breaker so a dead gateway fails fast instead of tying up requests.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpc        *http.Client
	breaker      *gobreaker.CircuitBreaker[apiResult]
	logger       *log.Logger
}

func New(baseURL, clientID, clientSecret string, logger *log.Logger) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		httpc:        &http.Client{Timeout: 15 * time.Second},
		breaker: gobreaker.NewCircuitBreaker[apiResult](gobreaker.Settings{
			Name:    "cashfree",
			Timeout: 30 * time.Second,
		}),
		logger: logger,
	}
}

type createOrderRequest struct {
	OrderID         string          `json:"order_id"`
	OrderAmount     float64         `json:"order_amount"`
	OrderCurrency   string          `json:"order_currency"`
	CustomerDetails customerDetails `json:"customer_details"`
}

type customerDetails struct {
	CustomerID    string `json:"customer_id"`
	CustomerEmail string `json:"customer_email,omitempty"`
	CustomerPhone string `json:"customer_phone,omitempty"`
}

type orderResponse struct {
	OrderID          string `json:"order_id"`
	OrderStatus      string `json:"order_status"`
	PaymentSessionID string `json:"payment_session_id"`
	PaymentLink      string `json:"payment_link"`
}

// CreateOrder registers a new payment session with the gateway.
func (c *Client) CreateOrder(ctx context.Context, orderID string, amount decimal.Decimal, customer gateway.Customer) (*gateway.Session, error) {
	req := createOrderRequest{
		OrderID:       orderID,
		OrderAmount:   amount.InexactFloat64(),
		OrderCurrency: "INR",
		CustomerDetails: customerDetails{
			CustomerID:    customer.ID,
			CustomerEmail: customer.Email,
			CustomerPhone: customer.Phone,
		},
	}
	body, err := c.do(ctx, http.MethodPost, "/orders", req)
	if err != nil {
		return nil, err
	}

	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode create order response: %w", err)
	}
	return &gateway.Session{
		GatewayRef:       resp.OrderID,
		Status:           normalizeStatus(resp.OrderStatus),
		PaymentSessionID: resp.PaymentSessionID,
		PaymentLink:      resp.PaymentLink,
		Raw:              body,
	}, nil
}

// GetOrder fetches the gateway's authoritative status for a session.
func (c *Client) GetOrder(ctx context.Context, gatewayRef string) (*gateway.OrderStatus, error) {
	body, err := c.do(ctx, http.MethodGet, "/orders/"+gatewayRef, nil)
	if err != nil {
		return nil, err
	}

	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode order response: %w", err)
	}
	return &gateway.OrderStatus{
		GatewayRef:       resp.OrderID,
		Status:           normalizeStatus(resp.OrderStatus),
		PaymentSessionID: resp.PaymentSessionID,
		Raw:              body,
	}, nil
}

// normalizeStatus maps Cashfree order statuses onto the gateway-agnostic set.
// Anything that is neither live nor paid counts as expired: the attempt can
// no longer complete.
func normalizeStatus(s string) string {
	switch s {
	case StatusActive:
		return gateway.StatusPending
	case StatusPaid:
		return gateway.StatusPaid
	default:
		return gateway.StatusExpired
	}
}

type refundRequest struct {
	RefundAmount float64 `json:"refund_amount"`
	RefundNote   string  `json:"refund_note,omitempty"`
	OrderID      string  `json:"order_id"`
}

type refundResponse struct {
	RefundID     string `json:"refund_id"`
	RefundStatus string `json:"refund_status"`
}

// Refund asks the gateway to return funds collected under gatewayRef.
func (c *Client) Refund(ctx context.Context, gatewayRef string, amount decimal.Decimal, note string) (*gateway.RefundResult, error) {
	body, err := c.do(ctx, http.MethodPost, "/refunds", refundRequest{
		RefundAmount: amount.InexactFloat64(),
		RefundNote:   note,
		OrderID:      gatewayRef,
	})
	if err != nil {
		return nil, err
	}

	var resp refundResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode refund response: %w", err)
	}
	return &gateway.RefundResult{
		RefundRef: resp.RefundID,
		Status:    resp.RefundStatus,
		Raw:       body,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-client-id", c.clientID)
	req.Header.Set("x-client-secret", c.clientSecret)
	req.Header.Set("x-api-version", apiVersion)
	req.Header.Set("Content-Type", "application/json")

	// Only transport failures trip the breaker; HTTP-level rejections are
	// surfaced as gateway errors below.
	result, err := c.breaker.Execute(func() (apiResult, error) {
		resp, err := c.httpc.Do(req)
		if err != nil {
			return apiResult{}, err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return apiResult{}, err
		}
		return apiResult{status: resp.StatusCode, body: body}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("cashfree %s %s: %w", method, path, err)
	}

	if result.status < 200 || result.status >= 300 {
		return nil, &gateway.Error{
			StatusCode: result.status,
			Body:       result.body,
			Message:    errorMessage(result.body, result.status),
		}
	}
	return result.body, nil
}

func errorMessage(body []byte, status int) string {
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	return http.StatusText(status)
}

func (c *Client) Name() string { return "cashfree" }
