package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ordersCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_orders_created_total",
			Help: "Orders created from carts",
		},
	)

	paymentsApprovedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_payments_approved_total",
			Help: "Payment confirmations that committed stock and marked the order paid",
		},
	)

	paymentsRejectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_payments_rejected_total",
			Help: "Payments marked rejected by the gateway",
		},
	)

	stockConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_stock_conflicts_total",
			Help: "Payment confirmations rolled back for insufficient stock",
		},
	)
)

func RecordOrderCreated()    { ordersCreatedTotal.Inc() }
func RecordPaymentApproved() { paymentsApprovedTotal.Inc() }
func RecordPaymentRejected() { paymentsRejectedTotal.Inc() }
func RecordStockConflict()   { stockConflictsTotal.Inc() }

func Handler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latency per route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(recorder.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
