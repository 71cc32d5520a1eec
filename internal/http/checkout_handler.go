package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	d "github.com/fjod/scalecommerce/domain"
	"github.com/fjod/scalecommerce/internal/notify"
	"github.com/fjod/scalecommerce/internal/repository"
	"github.com/google/uuid"
)

const keepAliveInterval = 15 * time.Second

type CheckoutInitiator interface {
	InitiateCheckout(ctx context.Context, request *d.CheckoutRequest) (*d.Order, error)
}

// Subscriber streams the checkout events of one basket until cancel is called.
type Subscriber interface {
	Subscribe(ctx context.Context, basketUUID string) (<-chan notify.Event, func(), error)
}

type CheckoutHandler struct {
	checkout    CheckoutInitiator
	events      Subscriber
	timeout     time.Duration
	maxBodySize int64
	logger      *slog.Logger
}

func NewCheckoutHandler(checkout CheckoutInitiator, events Subscriber, timeout time.Duration, maxBodySize int64, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkout:    checkout,
		events:      events,
		timeout:     timeout,
		maxBodySize: maxBodySize,
		logger:      logger,
	}
}

type CheckoutRequestDTO struct {
	Email        string    `json:"email"`
	PaymentToken string    `json:"payment_token"`
	Address      d.Address `json:"address"`
}

type CheckoutAcceptedDTO struct {
	Message string `json:"message"`
	OrderID int64  `json:"order_id"`
}

// POST /api/v1/shopping_basket/checkout
func (h *CheckoutHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	token := basketToken(r.Context())
	if token == "" {
		mapServiceError(w, r, h.logger, repository.ErrBasketNotFound)
		return
	}

	var req CheckoutRequestDTO
	if !decodeJSON(w, r, h.maxBodySize, &req) {
		return
	}

	order, err := h.checkout.InitiateCheckout(ctx, &d.CheckoutRequest{
		BasketUUID:   token,
		Email:        req.Email,
		PaymentToken: req.PaymentToken,
		Address:      req.Address,
	})
	if err != nil {
		mapServiceError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusAccepted, CheckoutAcceptedDTO{
		Message: "Checkout processing started",
		OrderID: order.ID,
	})
}

// GET /api/v1/shopping_basket/checkout/events
//
// Server-sent events for the basket's checkout. Browsers cannot set headers
// on an EventSource, so the token may also come as ?shopping_basket_id=.
func (h *CheckoutHandler) Events(w http.ResponseWriter, r *http.Request) {
	token := basketToken(r.Context())
	if token == "" {
		if q := r.URL.Query().Get("shopping_basket_id"); q != "" {
			if _, err := uuid.Parse(q); err == nil {
				token = q
			}
		}
	}
	if token == "" {
		respondError(w, http.StatusBadRequest, "missing_basket", "shopping basket token is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming_unsupported", "streaming unsupported")
		return
	}

	events, cancel, err := h.events.Subscribe(r.Context(), token)
	if err != nil {
		mapServiceError(w, r, h.logger, err)
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()
	for {
		select {
		case ev, open := <-events:
			if !open {
				return
			}
			body, err := json.Marshal(ev)
			if err != nil {
				h.logger.ErrorContext(r.Context(), "failed to encode checkout event", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Status, body); err != nil {
				return
			}
			flusher.Flush()
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
