package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	d "github.com/fjod/scalecommerce/domain"
	"github.com/go-chi/chi/v5"
)

// Catalog is the read side served over HTTP.
type Catalog interface {
	ListProducts(ctx context.Context, afterID int64, limit int) ([]*d.Product, error)
	GetProduct(ctx context.Context, id int64) (*d.Product, error)
	GetOrder(ctx context.Context, id int64) (*d.Order, error)
}

type ProductHandler struct {
	catalog Catalog
	timeout time.Duration
	logger  *slog.Logger
}

func NewProductHandler(catalog Catalog, timeout time.Duration, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{catalog: catalog, timeout: timeout, logger: logger}
}

type MoneyResponse struct {
	Cents    int64  `json:"cents"`
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
}

func newMoneyResponse(m d.Money) MoneyResponse {
	return MoneyResponse{Cents: m.Cents, Currency: m.Currency, Amount: m.Decimal()}
}

type ProductResponse struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	StockStatus string        `json:"stock_status"`
	Price       MoneyResponse `json:"price"`
}

func newProductResponse(p *d.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		StockStatus: string(p.StockStatus()),
		Price:       newMoneyResponse(p.Price),
	}
}

type ProductsResponse struct {
	Products    []ProductResponse `json:"products"`
	NextAfterID *int64            `json:"next_after_id,omitempty"`
}

// GET /api/v1/products?after_id=&limit=
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	afterID, ok := queryInt(w, r, "after_id")
	if !ok {
		return
	}
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}

	products, err := h.catalog.ListProducts(ctx, afterID, int(limit))
	if err != nil {
		mapServiceError(w, r, h.logger, err)
		return
	}

	resp := ProductsResponse{Products: make([]ProductResponse, len(products))}
	for i, p := range products {
		resp.Products[i] = newProductResponse(p)
	}
	if len(products) > 0 && (limit <= 0 || len(products) == int(limit)) {
		last := products[len(products)-1].ID
		resp.NextAfterID = &last
	}
	respondJSON(w, http.StatusOK, resp)
}

// GET /api/v1/products/{product_id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := pathID(w, r, "product_id")
	if !ok {
		return
	}
	product, err := h.catalog.GetProduct(ctx, id)
	if err != nil {
		mapServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, newProductResponse(product))
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

func queryInt(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		respondError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}
