package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "septic_booking"

var (
	once sync.Once

	bookingCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_created_total",
			Help:      "Count of bookings created by customers.",
		},
	)

	bookingTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_transition_total",
			Help:      "Count of booking status changes by target status and actor.",
		},
		[]string{"status", "actor"},
	)

	assignmentConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assignment_conflict_total",
			Help:      "Count of assignments refused because the technician was busy.",
		},
	)

	accountsDeactivated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "customer_deactivated_total",
			Help:      "Count of customers suspended by the cancellation limit.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Count of HTTP requests by route, method and status.",
		},
		[]string{"route", "method", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			bookingCreated,
			bookingTransitions,
			assignmentConflicts,
			accountsDeactivated,
			httpRequests,
			httpDuration,
		)
	})
}

func IncBookingCreated() {
	bookingCreated.Inc()
}

func IncBookingTransition(status, actor string) {
	bookingTransitions.WithLabelValues(status, actor).Inc()
}

func IncAssignmentConflict() {
	assignmentConflicts.Inc()
}

func IncAccountDeactivated() {
	accountsDeactivated.Inc()
}

func ObserveHTTP(route, method, status string, seconds float64) {
	httpRequests.WithLabelValues(route, method, status).Inc()
	httpDuration.WithLabelValues(route, method).Observe(seconds)
}
