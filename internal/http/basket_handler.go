package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	d "github.com/fjod/scalecommerce/domain"
	"github.com/fjod/scalecommerce/internal/repository"
)

const BasketIDHeader = "Shopping-Basket-ID"

type Baskets interface {
	GetBasket(ctx context.Context, token string) (*d.Basket, error)
	EnsureBasket(ctx context.Context, token string) (*d.Basket, bool, error)
	UpdateItem(ctx context.Context, basket *d.Basket, productID int64, quantity int32) (*d.Basket, error)
}

type BasketHandler struct {
	baskets     Baskets
	timeout     time.Duration
	maxBodySize int64
	logger      *slog.Logger
}

func NewBasketHandler(baskets Baskets, timeout time.Duration, maxBodySize int64, logger *slog.Logger) *BasketHandler {
	return &BasketHandler{baskets: baskets, timeout: timeout, maxBodySize: maxBodySize, logger: logger}
}

type UpdateItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
	Quantity  int32 `json:"quantity"`
}

type BasketItemResponse struct {
	ProductID  int64         `json:"product_id"`
	Name       string        `json:"name"`
	Quantity   int32         `json:"quantity"`
	UnitPrice  MoneyResponse `json:"unit_price"`
	TotalPrice MoneyResponse `json:"total_price"`
}

type BasketResponse struct {
	UUID       string               `json:"uuid,omitempty"`
	Products   []BasketItemResponse `json:"products"`
	TotalPrice MoneyResponse        `json:"total_price"`
}

func newBasketResponse(b *d.Basket) (BasketResponse, error) {
	total, err := b.TotalPrice()
	if err != nil {
		return BasketResponse{}, err
	}
	resp := BasketResponse{
		UUID:       b.UUID,
		Products:   make([]BasketItemResponse, 0, len(b.Items)),
		TotalPrice: newMoneyResponse(total),
	}
	for _, it := range b.Items {
		line, err := it.TotalPrice()
		if err != nil {
			return BasketResponse{}, err
		}
		resp.Products = append(resp.Products, BasketItemResponse{
			ProductID:  it.ProductID,
			Name:       it.Product.Name,
			Quantity:   it.Quantity,
			UnitPrice:  newMoneyResponse(it.Product.Price),
			TotalPrice: newMoneyResponse(line),
		})
	}
	return resp, nil
}

// GET /api/v1/shopping_basket
//
// An unknown or missing token gets an empty basket; nothing is created.
func (h *BasketHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	basket := &d.Basket{}
	if token := basketToken(r.Context()); token != "" {
		found, err := h.baskets.GetBasket(ctx, token)
		switch {
		case err == nil:
			basket = found
		case !errors.Is(err, repository.ErrBasketNotFound):
			mapServiceError(w, r, h.logger, err)
			return
		}
	}
	h.respondBasket(w, r, http.StatusOK, basket)
}

// POST /api/v1/shopping_basket/products
func (h *BasketHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateItemRequestDTO
	if !decodeJSON(w, r, h.maxBodySize, &req) {
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}
	if req.Quantity < 0 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must not be negative")
		return
	}

	basket, created, err := h.baskets.EnsureBasket(ctx, basketToken(r.Context()))
	if err != nil {
		mapServiceError(w, r, h.logger, err)
		return
	}
	if created {
		w.Header().Set(BasketIDHeader, basket.UUID)
	}

	updated, err := h.baskets.UpdateItem(ctx, basket, req.ProductID, req.Quantity)
	if err != nil {
		mapServiceError(w, r, h.logger, err)
		return
	}
	h.respondBasket(w, r, http.StatusCreated, updated)
}

func (h *BasketHandler) respondBasket(w http.ResponseWriter, r *http.Request, status int, b *d.Basket) {
	resp, err := newBasketResponse(b)
	if err != nil {
		mapServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, status, resp)
}
