package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/scalecommerce/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	Catalog  Catalog
	Baskets  Baskets
	Checkout CheckoutInitiator
	// Events may be nil; the events route is then not served.
	Events Subscriber

	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger

	RequestTimeout     time.Duration
	MaxRequestBodySize int64
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	products := NewProductHandler(cfg.Catalog, cfg.RequestTimeout, cfg.Logger)
	orders := NewOrdersHandler(cfg.Catalog, cfg.RequestTimeout, cfg.Logger)
	baskets := NewBasketHandler(cfg.Baskets, cfg.RequestTimeout, cfg.MaxRequestBodySize, cfg.Logger)
	checkout := NewCheckoutHandler(cfg.Checkout, cfg.Events, cfg.RequestTimeout, cfg.MaxRequestBodySize, cfg.Logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(InstrumentMiddleware(cfg.Metrics, cfg.Logger))
	r.Use(BasketTokenMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(cfg.Gatherer))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// long-lived stream, kept out of the timeout and compression middleware
		if cfg.Events != nil {
			r.Get("/shopping_basket/checkout/events", checkout.Events)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(cfg.RequestTimeout))
			r.Use(middleware.Compress(5))

			r.Get("/products", products.List)
			r.Get("/products/{product_id}", products.Get)

			r.Route("/shopping_basket", func(r chi.Router) {
				r.Get("/", baskets.Get)
				r.Post("/products", baskets.UpdateItem)
				r.Post("/checkout", checkout.Create)
			})

			r.Get("/orders/{order_id}", orders.Get)
		})
	})

	return otelhttp.NewHandler(r, "api")
}
