// Package payment holds the order/payment state machine. Terminal outcomes
// may arrive via gateway webhook, via the client's return visit, or both, in
// any order and any number of times; every signal funnels into one
// conditional transition so ordering between producers never matters.
package payment

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/shopspring/decimal"

	"storefront-core/internal/domain"
	"storefront-core/internal/gateway"
	paymentrepo "storefront-core/internal/repository/payment"
	"storefront-core/internal/repository/webhooklog"
)

// Gateway is the narrow boundary the engine needs from a payment provider.
type Gateway interface {
	Name() string
	CreateOrder(ctx context.Context, orderID string, amount decimal.Decimal, customer gateway.Customer) (*gateway.Session, error)
	GetOrder(ctx context.Context, gatewayRef string) (*gateway.OrderStatus, error)
	Refund(ctx context.Context, gatewayRef string, amount decimal.Decimal, note string) (*gateway.RefundResult, error)
	VerifySignature(signature, timestamp string, rawBody []byte) bool
	ParseWebhook(raw []byte) gateway.WebhookEvent
}

type paymentRepo interface {
	Create(ctx context.Context, in paymentrepo.CreatePaymentInput) (*domain.Payment, error)
	GetByID(ctx context.Context, id string) (*domain.Payment, error)
	LatestNonFailedByOrder(ctx context.Context, orderID string) (*domain.Payment, error)
	MarkSucceeded(ctx context.Context, paymentRef string, payload []byte) (bool, error)
	MarkFailed(ctx context.Context, paymentRef string, payload []byte) (bool, error)
	CreateRefund(ctx context.Context, in paymentrepo.CreateRefundInput) (*domain.Refund, error)
	MarkRefund(ctx context.Context, refundRef, status string) (bool, error)
}

type orderRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
}

type auditLog interface {
	Append(ctx context.Context, in webhooklog.AppendInput) (*domain.WebhookLogEntry, error)
}

// Service reconciles payment outcomes into a single consistent order state.
type Service struct {
	payments paymentRepo
	orders   orderRepo
	gw       Gateway
	audit    auditLog
	logger   *log.Logger
	locks    keyedLocks
}

func New(payments paymentrepo.Repository, orders orderRepo, gw Gateway, audit webhooklog.Repository, logger *log.Logger) *Service {
	return &Service{
		payments: payments,
		orders:   orders,
		gw:       gw,
		audit:    audit,
		logger:   logger,
	}
}

// Outcome is an authoritative observed payment result.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeSuccess
	OutcomeFailure
)

// Result reports what a reconcile call actually did.
type Result string

const (
	// ResultApplied means this call performed the terminal transition.
	ResultApplied Result = "applied"
	// ResultNoop means the attempt was already terminal; nothing changed.
	ResultNoop Result = "noop"
	// ResultUnknownRef means no payment matches the reference; callbacks for
	// foreign or retired orders land here and mutate nothing.
	ResultUnknownRef Result = "unknown_ref"
	// ResultIgnored means the observed event carries no reconcilable outcome.
	ResultIgnored Result = "ignored"
)

// CreateSession creates a gateway payment session for an order, idempotently:
// repeated checkout-page loads return the existing live session instead of
// creating a second gateway order. Session creation is serialized per order.
func (s *Service) CreateSession(ctx context.Context, orderID string, amount decimal.Decimal, customer gateway.Customer) (*gateway.Session, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, domain.ErrValidation
	}

	unlock := s.locks.lock(orderID)
	defer unlock()

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !amount.Equal(order.Total) {
		return nil, domain.ErrAmountMismatch
	}

	existing, err := s.payments.LatestNonFailedByOrder(ctx, orderID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		st, gerr := s.gw.GetOrder(ctx, existing.PaymentRef)
		if gerr != nil {
			s.logger.Printf("payment: gateway lookup for existing session %s failed: %v", existing.PaymentRef, gerr)
		} else if st.Status == gateway.StatusPaid || st.PaymentSessionID != "" {
			return &gateway.Session{
				GatewayRef:       st.GatewayRef,
				Status:           st.Status,
				PaymentSessionID: st.PaymentSessionID,
				Raw:              st.Raw,
			}, nil
		}
	}

	sess, err := s.gw.CreateOrder(ctx, order.ID, order.Total, customer)
	if err != nil {
		return nil, err
	}
	if _, err := s.payments.Create(ctx, paymentrepo.CreatePaymentInput{
		OrderID:    order.ID,
		Gateway:    s.gw.Name(),
		Amount:     order.Total,
		PaymentRef: sess.GatewayRef,
		Payload:    sess.Raw,
	}); err != nil {
		return nil, err
	}
	return sess, nil
}

// Reconcile applies an authoritative observed outcome to the payment
// identified by gatewayRef. Replaying a terminal outcome is a no-op; an
// unknown reference is logged and mutates nothing.
func (s *Service) Reconcile(ctx context.Context, gatewayRef string, outcome Outcome, raw []byte) (Result, error) {
	var applied bool
	var err error
	switch outcome {
	case OutcomeSuccess:
		applied, err = s.payments.MarkSucceeded(ctx, gatewayRef, raw)
	case OutcomeFailure:
		applied, err = s.payments.MarkFailed(ctx, gatewayRef, raw)
	default:
		return ResultIgnored, nil
	}

	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Printf("payment: reconcile for unknown reference %q ignored", gatewayRef)
			return ResultUnknownRef, nil
		}
		return "", err
	}
	if !applied {
		return ResultNoop, nil
	}
	return ResultApplied, nil
}

// HandleWebhook processes one inbound gateway callback. The raw attempt is
// durably logged before any state mutation, signature failures included, so a
// crash mid-processing is recoverable by replay from the audit log.
func (s *Service) HandleWebhook(ctx context.Context, signature, timestamp string, headers map[string]string, raw []byte) (Result, error) {
	valid := s.gw.VerifySignature(signature, timestamp, raw)
	ev := s.gw.ParseWebhook(raw)

	if _, err := s.audit.Append(ctx, webhooklog.AppendInput{
		EventType:      ev.Name,
		Headers:        headers,
		Payload:        raw,
		SignatureValid: valid,
	}); err != nil {
		return "", err
	}

	if !valid {
		return "", domain.ErrInvalidSignature
	}

	switch ev.Kind {
	case gateway.EventPaymentSuccess:
		return s.Reconcile(ctx, ev.GatewayRef, OutcomeSuccess, raw)
	case gateway.EventPaymentFailed:
		return s.Reconcile(ctx, ev.GatewayRef, OutcomeFailure, raw)
	default:
		s.logger.Printf("payment: webhook event %q not reconcilable, logged only", ev.Name)
		return ResultIgnored, nil
	}
}

// ReturnDisposition tells the return-visit handler where to send the client.
type ReturnDisposition struct {
	Paid   bool
	Reason string
}

// ResolveReturn handles the client landing back on the site after leaving the
// gateway. Query parameters are never trusted as proof of outcome: the
// gateway is re-queried and the authoritative status goes through the same
// transition as the webhook path.
func (s *Service) ResolveReturn(ctx context.Context, gatewayRef string) (*ReturnDisposition, error) {
	st, err := s.gw.GetOrder(ctx, gatewayRef)
	if err != nil {
		return nil, err
	}

	switch st.Status {
	case gateway.StatusPaid:
		if _, err := s.Reconcile(ctx, gatewayRef, OutcomeSuccess, st.Raw); err != nil {
			return nil, err
		}
		return &ReturnDisposition{Paid: true}, nil
	case gateway.StatusPending:
		// Session still live: not terminal, nothing to transition.
		return &ReturnDisposition{Reason: "payment_pending"}, nil
	default:
		if _, err := s.Reconcile(ctx, gatewayRef, OutcomeFailure, st.Raw); err != nil {
			return nil, err
		}
		return &ReturnDisposition{Reason: "payment_failed"}, nil
	}
}

// RequestRefund initiates a refund against a successful payment and records
// it pending; the outcome is reconciled later by ReconcileRefund.
func (s *Service) RequestRefund(ctx context.Context, paymentID string, amount decimal.Decimal, reason string) (*domain.Refund, error) {
	p, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.Status != domain.PaymentAttemptSuccess {
		return nil, domain.ErrValidation
	}
	if !amount.IsPositive() || amount.GreaterThan(p.Amount) {
		return nil, domain.ErrValidation
	}

	res, err := s.gw.Refund(ctx, p.PaymentRef, amount, reason)
	if err != nil {
		return nil, err
	}
	return s.payments.CreateRefund(ctx, paymentrepo.CreateRefundInput{
		PaymentID: p.ID,
		Amount:    amount,
		Reason:    reason,
		RefundRef: res.RefundRef,
	})
}

// ReconcileRefund applies an observed refund outcome with the same
// pending-only conditional write as payments.
func (s *Service) ReconcileRefund(ctx context.Context, refundRef string, outcome Outcome) (Result, error) {
	var status string
	switch outcome {
	case OutcomeSuccess:
		status = domain.RefundStatusCompleted
	case OutcomeFailure:
		status = domain.RefundStatusFailed
	default:
		return ResultIgnored, nil
	}

	applied, err := s.payments.MarkRefund(ctx, refundRef, status)
	if err != nil {
		return "", err
	}
	if !applied {
		return ResultNoop, nil
	}
	return ResultApplied, nil
}
