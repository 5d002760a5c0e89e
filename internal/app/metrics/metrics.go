package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "commerce_layer",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "commerce_layer",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "commerce_layer",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	ordersPlaced = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "commerce_layer",
			Subsystem: "orders",
			Name:      "placed_total",
			Help:      "Total number of orders placed.",
		},
	)

	orderValue = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "commerce_layer",
			Subsystem: "orders",
			Name:      "value_cents",
			Help:      "Distribution of order totals in cents.",
			Buckets:   prometheus.ExponentialBuckets(100, 4, 8), // $1 to ~$160k
		},
	)

	paymentsSettled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "commerce_layer",
			Subsystem: "payments",
			Name:      "settled_total",
			Help:      "Total number of payments reaching a settlement verdict.",
		},
		[]string{"method", "status"},
	)

	webhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "commerce_layer",
			Subsystem: "payments",
			Name:      "webhook_events_total",
			Help:      "Total number of payment webhook deliveries.",
		},
		[]string{"result"},
	)

	couponRedemptions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "commerce_layer",
			Subsystem: "coupons",
			Name:      "redemptions_total",
			Help:      "Total number of coupon redemptions at checkout.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		ordersPlaced,
		orderValue,
		paymentsSettled,
		webhookEvents,
		couponRedemptions,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordOrderPlaced records a successful checkout.
func RecordOrderPlaced(totalCents int64, couponUsed bool) {
	ordersPlaced.Inc()
	orderValue.Observe(float64(totalCents))
	if couponUsed {
		couponRedemptions.Inc()
	}
}

// RecordPaymentSettled records a payment settlement verdict.
func RecordPaymentSettled(method, status string) {
	paymentsSettled.WithLabelValues(method, status).Inc()
}

// RecordWebhook records a payment webhook delivery outcome.
func RecordWebhook(result string) {
	webhookEvents.WithLabelValues(result).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// canonicalPath collapses resource IDs so metric label cardinality stays
// bounded.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")

	if parts[0] == "admin" {
		if len(parts) == 1 {
			return "/admin"
		}
		if len(parts) <= 2 {
			return "/admin/" + parts[1]
		}
		return "/admin/" + parts[1] + "/:id"
	}

	if len(parts) == 1 {
		return "/" + parts[0]
	}
	if len(parts) == 2 {
		return "/" + parts[0] + "/:id"
	}
	return "/" + parts[0] + "/:id/" + parts[2]
}
