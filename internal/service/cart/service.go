package cart

import (
	"context"
	"errors"
	"log"
	"strings"

	"storefront-core/internal/domain"
	"storefront-core/internal/hub"
	cartrepo "storefront-core/internal/repository/cart"
)

// Service applies batched line mutations to a cart and notifies subscribers.
type Service struct {
	repo     cartRepo
	products catalog
	events   publisher
	logger   *log.Logger
}

type cartRepo interface {
	EnsureForUser(ctx context.Context, userID string) (*domain.Cart, error)
	GetByID(ctx context.Context, id string) (*domain.Cart, error)
	UpsertLine(ctx context.Context, in cartrepo.UpsertLineInput) (*domain.CartLine, error)
	DeleteLine(ctx context.Context, cartID, itemID string) error
	Snapshot(ctx context.Context, cartID string) (*cartrepo.Snapshot, error)
}

type catalog interface {
	GetPrice(ctx context.Context, productID string) (*domain.PriceQuote, error)
}

type publisher interface {
	Publish(cartID string, ev hub.Event)
}

func New(repo cartrepo.Repository, products catalog, events publisher, logger *log.Logger) *Service {
	return &Service{repo: repo, products: products, events: events, logger: logger}
}

// ItemInput is one upsert request row.
type ItemInput struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

func (in ItemInput) valid() bool {
	return strings.TrimSpace(in.ProductID) != "" &&
		in.Quantity > 0 &&
		strings.TrimSpace(in.Size) != "" &&
		strings.TrimSpace(in.Color) != ""
}

// EnsureCart returns the user's cart, creating it lazily on first need.
func (s *Service) EnsureCart(ctx context.Context, userID string) (*domain.Cart, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrValidation
	}
	return s.repo.EnsureForUser(ctx, userID)
}

// GetCart returns the canonical cart snapshot clients pull after a change
// notification.
func (s *Service) GetCart(ctx context.Context, cartID string) (*cartrepo.Snapshot, error) {
	return s.repo.Snapshot(ctx, cartID)
}

// UpsertItems applies a batch best-effort: an invalid or unpriceable row is
// skipped, not fatal to the rest. Each applied row snapshots the current
// catalog price. On any applied row, subscribers get an "updated" event.
func (s *Service) UpsertItems(ctx context.Context, cartID string, items []ItemInput) ([]domain.CartLine, error) {
	if len(items) == 0 {
		return nil, domain.ErrValidation
	}
	if _, err := s.repo.GetByID(ctx, cartID); err != nil {
		return nil, err
	}

	applied := make([]domain.CartLine, 0, len(items))
	for _, in := range items {
		if !in.valid() {
			continue
		}
		quote, err := s.products.GetPrice(ctx, in.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		line, err := s.repo.UpsertLine(ctx, cartrepo.UpsertLineInput{
			CartID:          cartID,
			ProductID:       in.ProductID,
			Quantity:        in.Quantity,
			Size:            in.Size,
			Color:           in.Color,
			Price:           quote.Price,
			DiscountedPrice: quote.DiscountedPrice,
		})
		if err != nil {
			return nil, err
		}
		applied = append(applied, *line)
	}

	if len(applied) > 0 {
		s.events.Publish(cartID, hub.Event{
			Kind:    hub.KindUpdated,
			Payload: map[string]interface{}{"items": applied},
		})
	}
	return applied, nil
}

// RemoveItem deletes one line by identity; unknown identity is NotFound, not
// a silent success.
func (s *Service) RemoveItem(ctx context.Context, cartID, itemID string) error {
	if err := s.repo.DeleteLine(ctx, cartID, itemID); err != nil {
		return err
	}
	s.events.Publish(cartID, hub.Event{
		Kind:    hub.KindRemoved,
		Payload: map[string]interface{}{"item_id": itemID},
	})
	return nil
}
