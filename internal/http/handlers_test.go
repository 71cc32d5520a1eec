package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	d "github.com/fjod/scalecommerce/domain"
	"github.com/fjod/scalecommerce/internal/metrics"
	"github.com/fjod/scalecommerce/internal/notify"
	"github.com/fjod/scalecommerce/internal/payment"
	"github.com/fjod/scalecommerce/internal/repository"
	"github.com/fjod/scalecommerce/internal/service"
	"github.com/fjod/scalecommerce/pkg/logger"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type CheckoutMock struct {
	order   *d.Order
	err     error
	request *d.CheckoutRequest
}

func (m *CheckoutMock) InitiateCheckout(_ context.Context, req *d.CheckoutRequest) (*d.Order, error) {
	m.request = req
	return m.order, m.err
}

type testServer struct {
	handler  http.Handler
	repo     *repository.Repository
	events   *notify.Local
	registry *prometheus.Registry
}

func setupServer(t *testing.T, checkout CheckoutInitiator) *testServer {
	t.Helper()
	repo, err := repository.NewSQLiteRepository(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	require.NoError(t, repo.RunMigrations("../repository/migrations/sqlite"))

	log := logger.NewWithWriter(io.Discard, "test", "debug")
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if checkout == nil {
		checkout = service.NewCheckoutService(repo, service.NewPaymentHandler(payment.NewSimulated(0), time.Second), m, log)
	}
	events := notify.NewLocal()

	h := NewRouter(RouterConfig{
		Catalog:            service.NewCatalogService(repo, repo),
		Baskets:            service.NewBasketService(repo, log),
		Checkout:           checkout,
		Events:             events,
		Metrics:            m,
		Gatherer:           reg,
		Logger:             log,
		RequestTimeout:     5 * time.Second,
		MaxRequestBodySize: 1 << 20,
	})
	return &testServer{handler: h, repo: repo, events: events, registry: reg}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

var validCheckout = CheckoutRequestDTO{
	Email:        "buyer@example.com",
	PaymentToken: payment.SuccessToken,
	Address:      d.Address{Line1: "1 Main St", City: "Springfield", State: "IL", Zip: "62701", Country: "US"},
}

func TestHealthAndMetrics(t *testing.T) {
	s := setupServer(t, nil)

	rec := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "scalecommerce_http_requests_total")
}

func TestProducts(t *testing.T) {
	s := setupServer(t, nil)

	rec := s.do(t, http.MethodGet, "/api/v1/products?limit=2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[ProductsResponse](t, rec)
	require.Len(t, page.Products, 2)
	assert.Equal(t, "Mechanical Keyboard", page.Products[0].Name)
	assert.Equal(t, "89.99", page.Products[0].Price.Amount)
	require.NotNil(t, page.NextAfterID)

	rec = s.do(t, http.MethodGet, "/api/v1/products/5", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OUT_OF_STOCK", decode[ProductResponse](t, rec).StockStatus)

	rec = s.do(t, http.MethodGet, "/api/v1/products/999", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "product_not_found", decode[ErrorResponse](t, rec).Code)

	rec = s.do(t, http.MethodGet, "/api/v1/products/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/products?limit=-1", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBasket_CreatedOnFirstItem(t *testing.T) {
	s := setupServer(t, nil)

	rec := s.do(t, http.MethodGet, "/api/v1/shopping_basket", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	empty := decode[BasketResponse](t, rec)
	assert.Empty(t, empty.Products)
	assert.Equal(t, int64(0), empty.TotalPrice.Cents)

	rec = s.do(t, http.MethodPost, "/api/v1/shopping_basket/products", "", UpdateItemRequestDTO{ProductID: 1, Quantity: 2})
	require.Equal(t, http.StatusCreated, rec.Code)
	token := rec.Header().Get(BasketIDHeader)
	require.NotEmpty(t, token)
	basket := decode[BasketResponse](t, rec)
	assert.Equal(t, token, basket.UUID)
	assert.Equal(t, int64(2*8999), basket.TotalPrice.Cents)

	rec = s.do(t, http.MethodPost, "/api/v1/shopping_basket/products", token, UpdateItemRequestDTO{ProductID: 2, Quantity: 1})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Empty(t, rec.Header().Get(BasketIDHeader))

	rec = s.do(t, http.MethodGet, "/api/v1/shopping_basket", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[BasketResponse](t, rec).Products, 2)

	rec = s.do(t, http.MethodPost, "/api/v1/shopping_basket/products", token, UpdateItemRequestDTO{ProductID: 999, Quantity: 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/shopping_basket/products", token, UpdateItemRequestDTO{ProductID: 1, Quantity: -3})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckout_Accepted(t *testing.T) {
	s := setupServer(t, nil)

	rec := s.do(t, http.MethodPost, "/api/v1/shopping_basket/products", "", UpdateItemRequestDTO{ProductID: 1, Quantity: 1})
	require.Equal(t, http.StatusCreated, rec.Code)
	token := rec.Header().Get(BasketIDHeader)

	rec = s.do(t, http.MethodPost, "/api/v1/shopping_basket/checkout", token, validCheckout)
	require.Equal(t, http.StatusAccepted, rec.Code)
	accepted := decode[CheckoutAcceptedDTO](t, rec)
	assert.Equal(t, "Checkout processing started", accepted.Message)
	assert.Positive(t, accepted.OrderID)

	rec = s.do(t, http.MethodPost, "/api/v1/shopping_basket/checkout", token, validCheckout)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/orders/"+jsonNumber(accepted.OrderID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pending", decode[map[string]any](t, rec)["status"])
}

func TestCheckout_Rejected(t *testing.T) {
	s := setupServer(t, nil)
	token := uuid.NewString()

	rec := s.do(t, http.MethodPost, "/api/v1/shopping_basket/checkout", "", validCheckout)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/shopping_basket/checkout", token, validCheckout)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "basket_not_found", decode[ErrorResponse](t, rec).Code)

	rec = s.do(t, http.MethodPost, "/api/v1/shopping_basket/products", "", UpdateItemRequestDTO{ProductID: 1, Quantity: 1})
	token = rec.Header().Get(BasketIDHeader)

	missingEmail := validCheckout
	missingEmail.Email = ""
	rec = s.do(t, http.MethodPost, "/api/v1/shopping_basket/checkout", token, missingEmail)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", decode[ErrorResponse](t, rec).Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/shopping_basket/checkout", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+token)
	raw := httptest.NewRecorder()
	s.handler.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)
}

func TestCheckout_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"duplicate", repository.ErrDuplicateCheckout, http.StatusConflict, "checkout_in_progress"},
		{"empty basket", service.ErrEmptyBasket, http.StatusUnprocessableEntity, "empty_basket"},
		{"payment", &service.PaymentError{Phase: service.PhaseAuthorize, Message: "Insufficient funds"}, http.StatusPaymentRequired, "payment_required"},
		{"gateway down", payment.ErrGatewayUnavailable, http.StatusServiceUnavailable, "service_unavailable"},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &CheckoutMock{err: tt.err}
			s := setupServer(t, mock)
			token := uuid.NewString()

			rec := s.do(t, http.MethodPost, "/api/v1/shopping_basket/checkout", token, validCheckout)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decode[ErrorResponse](t, rec).Code)
			require.NotNil(t, mock.request)
			assert.Equal(t, token, mock.request.BasketUUID)
		})
	}
}

func TestCheckoutEvents_StreamsBasketEvents(t *testing.T) {
	s := setupServer(t, nil)
	srv := httptest.NewServer(s.handler)
	defer srv.Close()
	token := uuid.NewString()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/shopping_basket/checkout/events?shopping_basket_id="+token, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// the subscription is registered before the headers are flushed
	require.NoError(t, s.events.Publish(ctx, token, notify.Failed(notify.CodeEmptyBasket, "no items available in stock")))

	scanner := bufio.NewScanner(resp.Body)
	var lines []string
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			break
		}
		lines = append(lines, line)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, "event: failed", lines[0])
	assert.JSONEq(t, `{"status":"failed","error":{"code":"empty_basket","message":"no items available in stock"}}`,
		strings.TrimPrefix(lines[1], "data: "))
}

func TestCheckoutEvents_RequiresToken(t *testing.T) {
	s := setupServer(t, nil)
	rec := s.do(t, http.MethodGet, "/api/v1/shopping_basket/checkout/events", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBearerToken(t *testing.T) {
	id := uuid.NewString()
	assert.Equal(t, id, bearerToken("Bearer "+id))
	assert.Equal(t, id, bearerToken("bearer  "+id))
	assert.Empty(t, bearerToken(id))
	assert.Empty(t, bearerToken("Bearer not-a-uuid"))
	assert.Empty(t, bearerToken("Basic "+id))
}

func jsonNumber(n int64) string {
	raw, _ := json.Marshal(n)
	return string(raw)
}
