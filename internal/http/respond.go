package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fjod/scalecommerce/internal/payment"
	"github.com/fjod/scalecommerce/internal/repository"
	"github.com/fjod/scalecommerce/internal/service"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// mapServiceError converts errors of the service and repository layers to
// HTTP responses. Unknown errors are logged and answered with a 500.
func mapServiceError(w http.ResponseWriter, req *http.Request, logger *slog.Logger, err error) {
	var payErr *service.PaymentError
	switch {
	case errors.Is(err, service.ErrValidation):
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, repository.ErrBasketNotFound):
		respondError(w, http.StatusNotFound, "basket_not_found", "shopping basket not found")
	case errors.Is(err, repository.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "product_not_found", "product not found")
	case errors.Is(err, repository.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "order_not_found", "order not found")
	case errors.Is(err, repository.ErrDuplicateCheckout):
		respondError(w, http.StatusConflict, "checkout_in_progress", "a checkout for this basket is already in progress")
	case errors.Is(err, service.ErrEmptyBasket):
		respondError(w, http.StatusUnprocessableEntity, "empty_basket", err.Error())
	case errors.As(err, &payErr):
		respondError(w, http.StatusPaymentRequired, "payment_required", payErr.Message)
	case errors.Is(err, payment.ErrGatewayUnavailable):
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", "payment gateway unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		logger.ErrorContext(req.Context(), "request failed", "method", req.Method, "path", req.URL.Path, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, req *http.Request, limit int64, v any) bool {
	body := http.MaxBytesReader(w, req.Body, limit)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "request_too_large", "request body too large")
			return false
		}
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}
