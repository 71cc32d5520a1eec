package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "scalecommerce"

// Metrics holds the collectors of one process. A nil *Metrics records nothing.
type Metrics struct {
	CheckoutJobs    *prometheus.CounterVec
	ReservedItems   *prometheus.CounterVec
	GatewayDuration *prometheus.HistogramVec
	HTTPRequests    *prometheus.CounterVec
	HTTPLatency     *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CheckoutJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_jobs_total",
			Help:      "Checkout jobs processed, by result.",
		}, []string{"result"}),
		ReservedItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_reserved_items_total",
			Help:      "Basket items seen by checkout, by reservation outcome.",
		}, []string{"outcome"}),
		GatewayDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "payment_gateway_duration_seconds",
			Help:      "Payment gateway call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "status"}),
		HTTPLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	reg.MustRegister(m.CheckoutJobs, m.ReservedItems, m.GatewayDuration, m.HTTPRequests, m.HTTPLatency)
	return m
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) JobProcessed(result string) {
	if m == nil {
		return
	}
	m.CheckoutJobs.WithLabelValues(result).Inc()
}

func (m *Metrics) Reservation(reserved, skipped int) {
	if m == nil {
		return
	}
	m.ReservedItems.WithLabelValues("reserved").Add(float64(reserved))
	m.ReservedItems.WithLabelValues("skipped").Add(float64(skipped))
}

func (m *Metrics) GatewayCall(op, result string, started time.Time) {
	if m == nil {
		return
	}
	m.GatewayDuration.WithLabelValues(op, result).Observe(time.Since(started).Seconds())
}

func (m *Metrics) HTTPRequest(route string, status int, started time.Time) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.HTTPLatency.WithLabelValues(route).Observe(time.Since(started).Seconds())
}
