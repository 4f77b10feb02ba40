package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "primepatrol",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests served, by service, route and status.",
	}, []string{"service", "method", "route", "status"})
	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "primepatrol",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"service", "method", "route"})
	notificationFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "primepatrol",
		Subsystem: "fanout",
		Name:      "notification_failures_total",
		Help:      "Cross-service notifications that failed on the first attempt.",
	}, []string{"kind"})
	outboxDelivered = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "primepatrol",
		Subsystem: "outbox",
		Name:      "delivered_total",
		Help:      "Outbox notifications delivered on retry.",
	}, []string{"kind"})
	outboxFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "primepatrol",
		Subsystem: "outbox",
		Name:      "failed_total",
		Help:      "Outbox notifications that exhausted their attempts.",
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(httpRequests, httpDuration, notificationFailures, outboxDelivered, outboxFailed)
}

// ObserveRequest records one served HTTP request.
func ObserveRequest(service, method, route, status string, seconds float64) {
	httpRequests.WithLabelValues(service, method, route, status).Inc()
	httpDuration.WithLabelValues(service, method, route).Observe(seconds)
}

func RecordNotificationFailure(kind string) {
	notificationFailures.WithLabelValues(kind).Inc()
}

func RecordOutboxDelivered(kind string) {
	outboxDelivered.WithLabelValues(kind).Inc()
}

func RecordOutboxFailed(kind string) {
	outboxFailed.WithLabelValues(kind).Inc()
}
