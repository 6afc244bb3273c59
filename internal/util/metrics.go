package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookings_created_total",
		Help: "Total number of bookings created",
	})

	BookingsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookings_failed_total",
		Help: "Total number of rejected booking operations",
	}, []string{"reason"})

	BookingsConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookings_confirmed_total",
		Help: "Total number of bookings confirmed by owners",
	})

	BookingsCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookings_cancelled_total",
		Help: "Total number of bookings cancelled",
	})

	RentalsStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rentals_started_total",
		Help: "Total number of rentals started",
	})

	RentalsCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rentals_completed_total",
		Help: "Total number of rentals completed",
	})

	PaymentSessionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_sessions_created_total",
		Help: "Total number of payment sessions minted at the gateway",
	})

	PaymentSyncAppliedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_sync_applied_total",
		Help: "Total number of payment statuses mirrored onto bookings",
	}, []string{"status"})

	PaymentSyncSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_sync_skipped_total",
		Help: "Total number of gateway reports that resulted in no write",
	}, []string{"reason"})

	PaymentsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_expired_total",
		Help: "Total number of payment attempts expired by reconciliation",
	})

	ReconcilerChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reconciler_checks_total",
		Help: "Total number of gateway status checks made by the reconciler",
	}, []string{"outcome"})

	GatewayRequestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_request_latency_seconds",
		Help:    "Latency of payment gateway requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	GatewayErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_errors_total",
		Help: "Total number of gateway request failures",
	}, []string{"kind"})

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
