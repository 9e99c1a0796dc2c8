// Package metrics exposes Prometheus instrumentation for the delivery service.
//
// Delivery metrics:
//   - delivery_transitions_total: applied reconciler transitions (counter)
//     Labels: operation, outcome (ok, or the error kind)
//   - delivery_otp_rejections_total: rejected pickup/delivery codes (counter)
//     Labels: stage (pickup, delivery)
//   - delivery_allocations_total: allocation results (counter)
//     Labels: result (assigned, parked, claimed)
//
// Fallback writer metrics:
//   - fallback_write_attempts_total: step attempts (counter)
//     Labels: step, result (success, failure, rejected)
//   - circuit_breaker_state: breaker state per step (gauge, 0=closed, 1=half-open, 2=open)
//   - circuit_breaker_state_transitions_total (counter)
//
// RPC metrics:
//   - grpc_requests_total (counter), grpc_request_duration_seconds (histogram)
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DeliveryTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_transitions_total",
			Help: "Total number of reconciler operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	OTPRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_otp_rejections_total",
			Help: "Total number of rejected pickup or delivery codes",
		},
		[]string{"stage"},
	)

	Allocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_allocations_total",
			Help: "Total number of allocation results",
		},
		[]string{"result"}, // result: "assigned", "parked", "claimed"
	)

	FallbackAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fallback_write_attempts_total",
			Help: "Total number of fallback writer step attempts",
		},
		[]string{"step", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	GRPCRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grpc_requests_total",
			Help: "Total number of unary gRPC requests",
		},
		[]string{"method", "code"},
	)

	GRPCRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "grpc_request_duration_seconds",
			Help:    "Unary gRPC request latency in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"method"},
	)
)
