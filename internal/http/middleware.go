package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/scalecommerce/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type ctxKey int

const basketTokenKey ctxKey = iota

// BasketTokenMiddleware reads the basket token from "Authorization: Bearer
// <uuid>". A missing or malformed token leaves the request without one.
func BasketTokenMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := bearerToken(r.Header.Get("Authorization")); token != "" {
			r = r.WithContext(context.WithValue(r.Context(), basketTokenKey, token))
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	token = strings.TrimSpace(token)
	if _, err := uuid.Parse(token); err != nil {
		return ""
	}
	return token
}

func basketToken(ctx context.Context) string {
	token, _ := ctx.Value(basketTokenKey).(string)
	return token
}

// InstrumentMiddleware logs every request and records it by route pattern.
func InstrumentMiddleware(m *metrics.Metrics, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.HTTPRequest(route, status, started)
			logger.InfoContext(r.Context(), "http request",
				"method", r.Method,
				"route", route,
				"status", status,
				"duration", time.Since(started),
				"request_id", middleware.GetReqID(r.Context()))
		})
	}
}
