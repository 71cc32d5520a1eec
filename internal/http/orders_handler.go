package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

type OrdersHandler struct {
	catalog Catalog
	timeout time.Duration
	logger  *slog.Logger
}

func NewOrdersHandler(catalog Catalog, timeout time.Duration, logger *slog.Logger) *OrdersHandler {
	return &OrdersHandler{catalog: catalog, timeout: timeout, logger: logger}
}

// GET /api/v1/orders/{order_id}
func (h *OrdersHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := pathID(w, r, "order_id")
	if !ok {
		return
	}
	order, err := h.catalog.GetOrder(ctx, id)
	if err != nil {
		mapServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}
