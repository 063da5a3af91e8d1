package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
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
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	webhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Inbound webhook events by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	paymentsConfirmed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_confirmed_total",
			Help: "Confirmed payments by provider",
		},
		[]string{"provider"},
	)

	labelsPurchased = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shipping_labels_purchased_total",
			Help: "Shipping labels purchased",
		},
	)

	emailsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emails_dispatched_total",
			Help: "Dispatched email jobs by result",
		},
		[]string{"result"},
	)

	integrationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "integration_errors_total",
			Help: "Total number of integration errors",
		},
		[]string{"service"},
	)
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.statusCode)

		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
	})
}

func RecordWebhookEvent(provider, outcome string) {
	webhookEvents.WithLabelValues(provider, outcome).Inc()
}

func RecordPaymentConfirmed(provider string) {
	paymentsConfirmed.WithLabelValues(provider).Inc()
}

func RecordLabelPurchased() {
	labelsPurchased.Inc()
}

func RecordEmailsDispatched(sent, failed int) {
	emailsDispatched.WithLabelValues("sent").Add(float64(sent))
	emailsDispatched.WithLabelValues("failed").Add(float64(failed))
}

func RecordIntegrationError(service string) {
	integrationErrors.WithLabelValues(service).Inc()
}
