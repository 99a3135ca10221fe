package httpserver

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"storefront-core/internal/domain"
	"storefront-core/internal/gateway"
	"storefront-core/internal/hub"
	cartrepo "storefront-core/internal/repository/cart"
	orderrepo "storefront-core/internal/repository/order"
	paymentrepo "storefront-core/internal/repository/payment"
	"storefront-core/internal/repository/webhooklog"
	cartsvc "storefront-core/internal/service/cart"
	ordersvc "storefront-core/internal/service/order"
	paymentsvc "storefront-core/internal/service/payment"
)

type memCartRepo struct {
	lines map[string]domain.CartLine
}

func newMemCartRepo() *memCartRepo {
	return &memCartRepo{lines: map[string]domain.CartLine{}}
}

func (m *memCartRepo) EnsureForUser(_ context.Context, userID string) (*domain.Cart, error) {
	return &domain.Cart{ID: "cart-1", UserID: userID}, nil
}

func (m *memCartRepo) GetByID(_ context.Context, id string) (*domain.Cart, error) {
	if id != "cart-1" {
		return nil, domain.ErrNotFound
	}
	return &domain.Cart{ID: "cart-1", UserID: "user-1"}, nil
}

func (m *memCartRepo) UpsertLine(_ context.Context, in cartrepo.UpsertLineInput) (*domain.CartLine, error) {
	key := in.ProductID + "|" + in.Size + "|" + in.Color
	line := domain.CartLine{
		ItemID:          "item-" + key,
		CartID:          in.CartID,
		ProductID:       in.ProductID,
		Quantity:        in.Quantity,
		Size:            in.Size,
		Color:           in.Color,
		Price:           in.Price,
		DiscountedPrice: in.DiscountedPrice,
	}
	m.lines[key] = line
	return &line, nil
}

func (m *memCartRepo) DeleteLine(_ context.Context, _ string, itemID string) error {
	for key, line := range m.lines {
		if line.ItemID == itemID {
			delete(m.lines, key)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memCartRepo) Snapshot(_ context.Context, cartID string) (*cartrepo.Snapshot, error) {
	if cartID != "cart-1" {
		return nil, domain.ErrNotFound
	}
	snap := &cartrepo.Snapshot{Cart: domain.Cart{ID: cartID, UserID: "user-1"}}
	for _, line := range m.lines {
		snap.Items = append(snap.Items, cartrepo.LineView{CartLine: line})
		snap.Subtotal = snap.Subtotal.Add(line.DiscountedPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return snap, nil
}

type memCatalog struct{}

func (memCatalog) GetPrice(_ context.Context, productID string) (*domain.PriceQuote, error) {
	if productID != "prod-1" {
		return nil, domain.ErrNotFound
	}
	return &domain.PriceQuote{
		Price:           decimal.NewFromInt(500),
		DiscountedPrice: decimal.NewFromInt(450),
		Stock:           10,
	}, nil
}

type memOrderRepo struct {
	orders map[string]*domain.Order
}

func (m *memOrderRepo) Create(_ context.Context, in orderrepo.CreateOrderInput) (*domain.Order, error) {
	o := &domain.Order{
		ID:          "order-1",
		UserID:      in.UserID,
		OrderNumber: in.OrderNumber,
		Status:      domain.OrderStatusPending,
		Subtotal:    in.Subtotal,
		Tax:         in.Tax,
		Shipping:    in.Shipping,
		Total:       in.Total,
	}
	m.orders[o.ID] = o
	return o, nil
}

func (m *memOrderRepo) GetByID(_ context.Context, id string) (*domain.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

func (m *memOrderRepo) ListByUser(_ context.Context, userID string) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

type memPaymentRepo struct {
	byRef map[string]*domain.Payment
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{byRef: map[string]*domain.Payment{}}
}

func (m *memPaymentRepo) Create(_ context.Context, in paymentrepo.CreatePaymentInput) (*domain.Payment, error) {
	p := &domain.Payment{
		ID:         in.PaymentRef + "-id",
		OrderID:    in.OrderID,
		Gateway:    in.Gateway,
		Amount:     in.Amount,
		Status:     domain.PaymentAttemptPending,
		PaymentRef: in.PaymentRef,
	}
	m.byRef[in.PaymentRef] = p
	return p, nil
}

func (m *memPaymentRepo) GetByID(_ context.Context, id string) (*domain.Payment, error) {
	for _, p := range m.byRef {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memPaymentRepo) GetByRef(_ context.Context, ref string) (*domain.Payment, error) {
	p, ok := m.byRef[ref]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (m *memPaymentRepo) LatestNonFailedByOrder(_ context.Context, orderID string) (*domain.Payment, error) {
	for _, p := range m.byRef {
		if p.OrderID == orderID && p.Status != domain.PaymentAttemptFailed {
			return p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memPaymentRepo) MarkSucceeded(_ context.Context, ref string, _ []byte) (bool, error) {
	return m.mark(ref, domain.PaymentAttemptSuccess)
}

func (m *memPaymentRepo) MarkFailed(_ context.Context, ref string, _ []byte) (bool, error) {
	return m.mark(ref, domain.PaymentAttemptFailed)
}

func (m *memPaymentRepo) mark(ref, to string) (bool, error) {
	p, ok := m.byRef[ref]
	if !ok {
		return false, domain.ErrNotFound
	}
	if p.Status != domain.PaymentAttemptPending {
		return false, nil
	}
	p.Status = to
	return true, nil
}

func (m *memPaymentRepo) CreateRefund(_ context.Context, in paymentrepo.CreateRefundInput) (*domain.Refund, error) {
	return &domain.Refund{
		ID:        in.RefundRef + "-id",
		PaymentID: in.PaymentID,
		Amount:    in.Amount,
		Status:    domain.RefundStatusPending,
		RefundRef: in.RefundRef,
	}, nil
}

func (m *memPaymentRepo) MarkRefund(_ context.Context, _, _ string) (bool, error) {
	return true, nil
}

type memWebhookLog struct {
	entries []webhooklog.AppendInput
}

func (m *memWebhookLog) Append(_ context.Context, in webhooklog.AppendInput) (*domain.WebhookLogEntry, error) {
	m.entries = append(m.entries, in)
	return &domain.WebhookLogEntry{EventType: in.EventType, SignatureValid: in.SignatureValid}, nil
}

func (m *memWebhookLog) List(_ context.Context, _ int) ([]domain.WebhookLogEntry, error) {
	return nil, nil
}

const testSecret = "test-secret"

type testGateway struct {
	statuses map[string]string
}

func (g *testGateway) Name() string { return "test" }

func (g *testGateway) CreateOrder(_ context.Context, orderID string, _ decimal.Decimal, _ gateway.Customer) (*gateway.Session, error) {
	g.statuses[orderID] = gateway.StatusPending
	return &gateway.Session{GatewayRef: orderID, Status: gateway.StatusPending, PaymentSessionID: "sess-" + orderID}, nil
}

func (g *testGateway) GetOrder(_ context.Context, ref string) (*gateway.OrderStatus, error) {
	st, ok := g.statuses[ref]
	if !ok {
		return nil, &gateway.Error{StatusCode: 404, Message: "order not found"}
	}
	return &gateway.OrderStatus{GatewayRef: ref, Status: st, PaymentSessionID: "sess-" + ref}, nil
}

func (g *testGateway) Refund(_ context.Context, ref string, _ decimal.Decimal, _ string) (*gateway.RefundResult, error) {
	return &gateway.RefundResult{RefundRef: "refund-" + ref, Status: "PENDING"}, nil
}

func (g *testGateway) VerifySignature(signature, timestamp string, rawBody []byte) bool {
	return signature == signWebhook(timestamp, rawBody)
}

func (g *testGateway) ParseWebhook(raw []byte) gateway.WebhookEvent {
	var p struct {
		Type string `json:"type"`
		Data struct {
			Order struct {
				OrderID string `json:"order_id"`
			} `json:"order"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return gateway.WebhookEvent{Kind: gateway.EventUnknown}
	}
	ev := gateway.WebhookEvent{Kind: gateway.EventUnknown, Name: p.Type, GatewayRef: p.Data.Order.OrderID}
	switch p.Type {
	case "PAYMENT_SUCCESS":
		ev.Kind = gateway.EventPaymentSuccess
	case "PAYMENT_FAILED":
		ev.Kind = gateway.EventPaymentFailed
	}
	return ev
}

func signWebhook(timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

type testEnv struct {
	router   *gin.Engine
	hub      *hub.Hub
	cartRepo *memCartRepo
	orders   *memOrderRepo
	payments *memPaymentRepo
	gw       *testGateway
	audit    *memWebhookLog
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := log.New(io.Discard, "", 0)

	cartRepo := newMemCartRepo()
	orders := &memOrderRepo{orders: map[string]*domain.Order{}}
	payments := newMemPaymentRepo()
	gw := &testGateway{statuses: map[string]string{}}
	audit := &memWebhookLog{}
	h := hub.New(logger)

	deps := Deps{
		CartSvc:           cartsvc.New(cartRepo, memCatalog{}, h, logger),
		OrderSvc:          ordersvc.New(orders),
		PaymentSvc:        paymentsvc.New(payments, orders, gw, audit, logger),
		Hub:               h,
		PaymentSuccessURL: "/payment/success",
		PaymentFailureURL: "/payment/failure",
		StreamKeepalive:   50 * time.Millisecond,
	}

	return &testEnv{
		router:   buildRouter(logger, nil, deps),
		hub:      h,
		cartRepo: cartRepo,
		orders:   orders,
		payments: payments,
		gw:       gw,
		audit:    audit,
	}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}

func TestReadyzWithoutDB(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/readyz", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}
}

func TestCreateCart(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodPost, "/cart", `{"userId":"user-1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "cart-1") {
		t.Fatalf("expected cart id in response, got %s", rec.Body.String())
	}

	rec = env.do(http.MethodPost, "/cart", `{"userId":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for empty user, got %d", rec.Code)
	}
}

func TestPutItemsAndSnapshot(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPut, "/cart/cart-1/items", `{"items":[{"product_id":"prod-1","quantity":2,"size":"M","color":"Black"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(http.MethodGet, "/cart/cart-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var snap cartrepo.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snap.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(snap.Items))
	}
	if !snap.Subtotal.Equal(decimal.NewFromInt(900)) {
		t.Fatalf("expected subtotal 900, got %s", snap.Subtotal)
	}
}

func TestPutItemsUnknownCart(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodPut, "/cart/cart-gone/items", `{"items":[{"product_id":"prod-1","quantity":1,"size":"M","color":"Black"}]}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestDeleteItem(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPut, "/cart/cart-1/items", `{"items":[{"product_id":"prod-1","quantity":1,"size":"M","color":"Black"}]}`)

	rec := env.do(http.MethodDelete, "/cart/cart-1/items/item-prod-1|M|Black", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	rec = env.do(http.MethodDelete, "/cart/cart-1/items/item-gone", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestStreamReceivesCartEvents(t *testing.T) {
	env := newTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/cart/cart-1/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		env.router.ServeHTTP(rec, req)
		close(done)
	}()

	// Wait for the stream to register before publishing.
	deadline := time.Now().Add(2 * time.Second)
	for env.hub.Subscribers("cart-1") == 0 {
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("stream never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	put := env.do(http.MethodPut, "/cart/cart-1/items", `{"items":[{"product_id":"prod-1","quantity":1,"size":"M","color":"Black"}]}`)
	if put.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", put.Code)
	}

	cancel()
	<-done

	body := rec.Body.String()
	if !strings.Contains(body, ": connected") {
		t.Fatalf("expected connected comment, got %q", body)
	}
	if !strings.Contains(body, "event:updated") {
		t.Fatalf("expected updated event, got %q", body)
	}
	if env.hub.Subscribers("cart-1") != 0 {
		t.Fatalf("expected subscriber removed after disconnect, got %d", env.hub.Subscribers("cart-1"))
	}
}

func TestCreateOrderAndHistory(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/orders", `{
		"user_id":"user-1",
		"items":[{"product_id":"prod-1","quantity":2,"size":"M","color":"Black","price":"450"}],
		"subtotal":"900","tax":"90","shipping":"50",
		"customer_email":"a@b.test","customer_name":"A"
	}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"total":"1040"`) {
		t.Fatalf("expected computed total in response, got %s", rec.Body.String())
	}

	rec = env.do(http.MethodGet, "/orders/history?user_id=user-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ORD-") {
		t.Fatalf("expected order number in history, got %s", rec.Body.String())
	}
}

func TestCreatePaymentAmountMismatch(t *testing.T) {
	env := newTestEnv(t)
	env.orders.orders["order-1"] = &domain.Order{ID: "order-1", UserID: "user-1", Total: decimal.NewFromInt(1000)}

	rec := env.do(http.MethodPost, "/payments", `{"orderId":"order-1","amount":"999"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "amount mismatch") {
		t.Fatalf("expected amount mismatch error, got %s", rec.Body.String())
	}
	if len(env.payments.byRef) != 0 {
		t.Fatalf("expected no payment rows, got %d", len(env.payments.byRef))
	}
}

func TestCreatePaymentSession(t *testing.T) {
	env := newTestEnv(t)
	env.orders.orders["order-1"] = &domain.Order{ID: "order-1", UserID: "user-1", Total: decimal.NewFromInt(1000)}

	rec := env.do(http.MethodPost, "/payments", `{"orderId":"order-1","amount":"1000"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "sess-order-1") {
		t.Fatalf("expected session id, got %s", rec.Body.String())
	}
}

func TestPaymentReturnRedirects(t *testing.T) {
	env := newTestEnv(t)
	env.orders.orders["order-1"] = &domain.Order{ID: "order-1", UserID: "user-1", Total: decimal.NewFromInt(1000)}
	env.do(http.MethodPost, "/payments", `{"orderId":"order-1","amount":"1000"}`)
	env.gw.statuses["order-1"] = gateway.StatusPaid

	rec := env.do(http.MethodGet, "/payments/return?order_id=order-1", "")
	if rec.Code != http.StatusFound {
		t.Fatalf("expected status 302, got %d", rec.Code)
	}
	loc := rec.Header().Get("Location")
	if !strings.HasPrefix(loc, "/payment/success") {
		t.Fatalf("expected success redirect, got %s", loc)
	}

	p := env.payments.byRef["order-1"]
	if p == nil || p.Status != domain.PaymentAttemptSuccess {
		t.Fatalf("expected payment marked success, got %+v", p)
	}

	rec = env.do(http.MethodGet, "/payments/return", "")
	if loc := rec.Header().Get("Location"); !strings.HasPrefix(loc, "/payment/failure") {
		t.Fatalf("expected failure redirect without order id, got %s", loc)
	}
}

func TestWebhookHandling(t *testing.T) {
	env := newTestEnv(t)
	env.orders.orders["order-1"] = &domain.Order{ID: "order-1", UserID: "user-1", Total: decimal.NewFromInt(1000)}
	env.do(http.MethodPost, "/payments", `{"orderId":"order-1","amount":"1000"}`)

	body := `{"type":"PAYMENT_SUCCESS","data":{"order":{"order_id":"order-1"}}}`
	ts := "1693300000"

	// Bad signature is rejected but still logged.
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", strings.NewReader(body))
	req.Header.Set(signatureHeader, "bogus")
	req.Header.Set(timestampHeader, ts)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
	if len(env.audit.entries) != 1 || env.audit.entries[0].SignatureValid {
		t.Fatalf("expected one logged entry with invalid signature, got %+v", env.audit.entries)
	}

	// Valid signature applies the transition.
	req = httptest.NewRequest(http.MethodPost, "/payments/webhook", strings.NewReader(body))
	req.Header.Set(signatureHeader, signWebhook(ts, []byte(body)))
	req.Header.Set(timestampHeader, ts)
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if p := env.payments.byRef["order-1"]; p.Status != domain.PaymentAttemptSuccess {
		t.Fatalf("expected payment success, got %s", p.Status)
	}

	// Unknown reference maps to 404.
	unknown := `{"type":"PAYMENT_SUCCESS","data":{"order":{"order_id":"order-strange"}}}`
	req = httptest.NewRequest(http.MethodPost, "/payments/webhook", strings.NewReader(unknown))
	req.Header.Set(signatureHeader, signWebhook(ts, []byte(unknown)))
	req.Header.Set(timestampHeader, ts)
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestCreateRefund(t *testing.T) {
	env := newTestEnv(t)
	env.payments.byRef["order-1"] = &domain.Payment{
		ID:         "pay-1",
		OrderID:    "order-1",
		PaymentRef: "order-1",
		Status:     domain.PaymentAttemptSuccess,
		Amount:     decimal.NewFromInt(1000),
	}

	rec := env.do(http.MethodPost, "/refunds", `{"paymentId":"pay-1","amount":"400","reason":"damaged"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(http.MethodPost, "/refunds", `{"paymentId":"pay-1","amount":"2000"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for over-refund, got %d", rec.Code)
	}
}
