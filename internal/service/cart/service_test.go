package cart

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-core/internal/domain"
	"storefront-core/internal/hub"
	cartrepo "storefront-core/internal/repository/cart"
)

type stubCartRepo struct {
	carts    map[string]*domain.Cart
	lines    map[string]domain.CartLine // keyed by product|size|color
	upserts  []cartrepo.UpsertLineInput
	deleted  []string
	delErr   error
	ensured  []string
	snapshot *cartrepo.Snapshot
}

func newStubCartRepo() *stubCartRepo {
	return &stubCartRepo{
		carts: map[string]*domain.Cart{"cart-1": {ID: "cart-1", UserID: "user-1"}},
		lines: map[string]domain.CartLine{},
	}
}

func (s *stubCartRepo) EnsureForUser(_ context.Context, userID string) (*domain.Cart, error) {
	s.ensured = append(s.ensured, userID)
	return &domain.Cart{ID: "cart-1", UserID: userID}, nil
}

func (s *stubCartRepo) GetByID(_ context.Context, id string) (*domain.Cart, error) {
	c, ok := s.carts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

func (s *stubCartRepo) UpsertLine(_ context.Context, in cartrepo.UpsertLineInput) (*domain.CartLine, error) {
	s.upserts = append(s.upserts, in)
	key := in.ProductID + "|" + in.Size + "|" + in.Color
	line, ok := s.lines[key]
	if !ok {
		line = domain.CartLine{ItemID: "item-" + key, CartID: in.CartID, ProductID: in.ProductID, Size: in.Size, Color: in.Color}
	}
	line.Quantity = in.Quantity
	line.Price = in.Price
	line.DiscountedPrice = in.DiscountedPrice
	s.lines[key] = line
	return &line, nil
}

func (s *stubCartRepo) DeleteLine(_ context.Context, cartID, itemID string) error {
	if s.delErr != nil {
		return s.delErr
	}
	s.deleted = append(s.deleted, itemID)
	return nil
}

func (s *stubCartRepo) Snapshot(_ context.Context, cartID string) (*cartrepo.Snapshot, error) {
	if s.snapshot == nil {
		return nil, domain.ErrNotFound
	}
	return s.snapshot, nil
}

type stubCatalog struct {
	quotes map[string]*domain.PriceQuote
}

func (s *stubCatalog) GetPrice(_ context.Context, productID string) (*domain.PriceQuote, error) {
	q, ok := s.quotes[productID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return q, nil
}

type recordPublisher struct {
	events []hub.Event
	carts  []string
}

func (p *recordPublisher) Publish(cartID string, ev hub.Event) {
	p.carts = append(p.carts, cartID)
	p.events = append(p.events, ev)
}

func quote(price float64, discounted float64) *domain.PriceQuote {
	return &domain.PriceQuote{
		Price:           decimal.NewFromFloat(price),
		DiscountedPrice: decimal.NewFromFloat(discounted),
		Stock:           10,
	}
}

func TestEnsureCartRequiresUser(t *testing.T) {
	svc := New(newStubCartRepo(), &stubCatalog{}, &recordPublisher{}, nil)

	_, err := svc.EnsureCart(context.Background(), "  ")
	assert.ErrorIs(t, err, domain.ErrValidation)

	cart, err := svc.EnsureCart(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", cart.UserID)
}

func TestUpsertItemsSnapshotsPricesAndNotifies(t *testing.T) {
	repo := newStubCartRepo()
	catalog := &stubCatalog{quotes: map[string]*domain.PriceQuote{
		"prod-1": quote(499, 449.10),
	}}
	pub := &recordPublisher{}
	svc := New(repo, catalog, pub, nil)

	applied, err := svc.UpsertItems(context.Background(), "cart-1", []ItemInput{
		{ProductID: "prod-1", Quantity: 2, Size: "M", Color: "Black"},
	})
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.True(t, applied[0].Price.Equal(decimal.NewFromInt(499)))
	assert.True(t, applied[0].DiscountedPrice.Equal(decimal.NewFromFloat(449.10)))

	require.Len(t, pub.events, 1)
	assert.Equal(t, hub.KindUpdated, pub.events[0].Kind)
	assert.Equal(t, []string{"cart-1"}, pub.carts)
}

func TestUpsertItemsReplacesQuantityForSameIdentity(t *testing.T) {
	repo := newStubCartRepo()
	catalog := &stubCatalog{quotes: map[string]*domain.PriceQuote{"prod-1": quote(100, 100)}}
	svc := New(repo, catalog, &recordPublisher{}, nil)

	_, err := svc.UpsertItems(context.Background(), "cart-1", []ItemInput{
		{ProductID: "prod-1", Quantity: 1, Size: "M", Color: "Black"},
	})
	require.NoError(t, err)
	applied, err := svc.UpsertItems(context.Background(), "cart-1", []ItemInput{
		{ProductID: "prod-1", Quantity: 5, Size: "M", Color: "Black"},
	})
	require.NoError(t, err)

	require.Len(t, applied, 1)
	assert.Equal(t, 5, applied[0].Quantity)
	assert.Len(t, repo.lines, 1)
}

func TestUpsertItemsSkipsInvalidAndUnknownRows(t *testing.T) {
	repo := newStubCartRepo()
	catalog := &stubCatalog{quotes: map[string]*domain.PriceQuote{"prod-1": quote(100, 90)}}
	pub := &recordPublisher{}
	svc := New(repo, catalog, pub, nil)

	applied, err := svc.UpsertItems(context.Background(), "cart-1", []ItemInput{
		{ProductID: "", Quantity: 1, Size: "M", Color: "Black"},       // invalid
		{ProductID: "prod-1", Quantity: 0, Size: "M", Color: "Black"}, // invalid
		{ProductID: "prod-gone", Quantity: 1, Size: "M", Color: "Black"},
		{ProductID: "prod-1", Quantity: 3, Size: "L", Color: "White"},
	})
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, "prod-1", applied[0].ProductID)
	assert.Len(t, pub.events, 1)
}

func TestUpsertItemsNoAppliedRowsMeansNoEvent(t *testing.T) {
	repo := newStubCartRepo()
	pub := &recordPublisher{}
	svc := New(repo, &stubCatalog{}, pub, nil)

	applied, err := svc.UpsertItems(context.Background(), "cart-1", []ItemInput{
		{ProductID: "prod-gone", Quantity: 1, Size: "M", Color: "Black"},
	})
	require.NoError(t, err)
	assert.Empty(t, applied)
	assert.Empty(t, pub.events)
}

func TestUpsertItemsValidation(t *testing.T) {
	svc := New(newStubCartRepo(), &stubCatalog{}, &recordPublisher{}, nil)

	_, err := svc.UpsertItems(context.Background(), "cart-1", nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.UpsertItems(context.Background(), "cart-gone", []ItemInput{
		{ProductID: "prod-1", Quantity: 1, Size: "M", Color: "Black"},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRemoveItemNotifiesOnSuccessOnly(t *testing.T) {
	repo := newStubCartRepo()
	pub := &recordPublisher{}
	svc := New(repo, &stubCatalog{}, pub, nil)

	require.NoError(t, svc.RemoveItem(context.Background(), "cart-1", "item-1"))
	require.Len(t, pub.events, 1)
	assert.Equal(t, hub.KindRemoved, pub.events[0].Kind)

	repo.delErr = domain.ErrNotFound
	err := svc.RemoveItem(context.Background(), "cart-1", "item-2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Len(t, pub.events, 1)
}
