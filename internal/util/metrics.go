package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsEnqueuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_jobs_enqueued_total",
		Help: "Total number of order jobs accepted into the intake queue",
	})

	OrdersCommittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_orders_committed_total",
		Help: "Total number of orders durably committed",
	})

	OrdersReplayedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_orders_replayed_total",
		Help: "Total number of job redeliveries that found their order already committed",
	})

	ReservationsDeniedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_reservations_denied_total",
		Help: "Total number of fast-path reservations denied for insufficient stock",
	})

	StockConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_stock_conflicts_total",
		Help: "Total number of authoritative stock conflicts (fast counter drift)",
	})

	CompensationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_compensations_total",
		Help: "Total number of fast-path reservations released after a failed attempt",
	})

	JobsRetriedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_jobs_retried_total",
		Help: "Total number of job attempts requeued for retry",
	})

	JobsDeadLetteredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_jobs_dead_lettered_total",
		Help: "Total number of jobs moved to the dead-letter topic",
	}, []string{"reason"})

	EffectFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_effect_failures_total",
		Help: "Total number of post-commit effect failures (never compensated)",
	}, []string{"effect"})

	ReserveLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_reserve_latency_seconds",
		Help:    "Latency of the fast-path reservation loop",
		Buckets: prometheus.DefBuckets,
	})

	CommitLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_commit_latency_seconds",
		Help:    "Latency of the durable commit transaction",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
