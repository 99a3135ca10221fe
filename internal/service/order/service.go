package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront-core/internal/domain"
	orderrepo "storefront-core/internal/repository/order"
)

// Service creates orders from selected cart lines and serves order history.
type Service struct {
	repo orderRepo
}

type orderRepo interface {
	Create(ctx context.Context, in orderrepo.CreateOrderInput) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
}

func New(repo orderrepo.Repository) *Service {
	return &Service{repo: repo}
}

type LineInput struct {
	ProductID string                 `json:"product_id"`
	Quantity  int                    `json:"quantity"`
	Size      string                 `json:"size"`
	Color     string                 `json:"color"`
	Price     decimal.Decimal        `json:"price"`
	Snapshot  map[string]interface{} `json:"snapshot,omitempty"`
}

type CreateInput struct {
	UserID        string          `json:"user_id"`
	Items         []LineInput     `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	Shipping      decimal.Decimal `json:"shipping"`
	CustomerEmail string          `json:"customer_email"`
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone"`
}

// Create snapshots the submitted lines into an immutable order. The total is
// computed server-side from subtotal, tax and shipping.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Order, error) {
	if strings.TrimSpace(in.UserID) == "" || len(in.Items) == 0 {
		return nil, domain.ErrValidation
	}
	for _, item := range in.Items {
		if strings.TrimSpace(item.ProductID) == "" || item.Quantity <= 0 {
			return nil, domain.ErrValidation
		}
	}
	if in.Subtotal.IsNegative() || in.Tax.IsNegative() || in.Shipping.IsNegative() {
		return nil, domain.ErrValidation
	}

	lines := make([]orderrepo.CreateOrderLine, 0, len(in.Items))
	for _, item := range in.Items {
		lines = append(lines, orderrepo.CreateOrderLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Size:      item.Size,
			Color:     item.Color,
			Price:     item.Price,
			Snapshot:  item.Snapshot,
		})
	}

	return s.repo.Create(ctx, orderrepo.CreateOrderInput{
		UserID:        in.UserID,
		OrderNumber:   newOrderNumber(),
		Subtotal:      in.Subtotal,
		Tax:           in.Tax,
		Shipping:      in.Shipping,
		Total:         in.Subtotal.Add(in.Tax).Add(in.Shipping),
		CustomerEmail: in.CustomerEmail,
		CustomerName:  in.CustomerName,
		CustomerPhone: in.CustomerPhone,
		Lines:         lines,
	})
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Order, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) History(ctx context.Context, userID string) ([]domain.Order, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrValidation
	}
	return s.repo.ListByUser(ctx, userID)
}

// newOrderNumber builds a human-referenceable unique order number. The uuid
// suffix guards against two orders landing on the same millisecond.
func newOrderNumber() string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("ORD-%d-%s", time.Now().UnixMilli(), suffix)
}
