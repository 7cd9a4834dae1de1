package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shopeasy"

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"route", "method", "status"})

	HTTPLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	OrdersCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_created_total",
		Help:      "Orders persisted, by payment method.",
	}, []string{"payment_method"})

	PaymentReplays = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_verification_replays_total",
		Help:      "Verification requests answered with an already settled order.",
	})

	SignatureFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_signature_failures_total",
		Help:      "Payment confirmations rejected because the signature did not match.",
	})

	StatusTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "item_status_transitions_total",
		Help:      "Item status transitions committed, by target status.",
	}, []string{"status"})

	StoreConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_store_conflicts_total",
		Help:      "Optimistic concurrency conflicts detected while saving an order.",
	})

	CacheInvalidations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_invalidations_total",
		Help:      "Cache keys and namespaces invalidated.",
	}, []string{"kind", "result"})

	SideEffectTasks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "side_effect_tasks_total",
		Help:      "Side-effect task executions, by kind and result.",
	}, []string{"kind", "result"})

	NotificationsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_created_total",
		Help:      "Seller notifications created.",
	})
)

// Register registers every collector with the default registry. Call once
// from main; tests use the collectors unregistered.
func Register() {
	prometheus.MustRegister(
		HTTPRequests,
		HTTPLatency,
		OrdersCreated,
		PaymentReplays,
		SignatureFailures,
		StatusTransitions,
		StoreConflicts,
		CacheInvalidations,
		SideEffectTasks,
		NotificationsCreated,
	)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
