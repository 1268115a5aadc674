// Package metrics exposes Prometheus counters for the booking engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BookingsTotal counts tickets successfully issued.
	BookingsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "onvent_bookings_total",
		Help: "Number of successful bookings.",
	})

	// BookingsRejectedTotal counts bookings rejected because the pool had
	// fewer seats left than requested.
	BookingsRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "onvent_bookings_rejected_total",
		Help: "Number of bookings rejected for insufficient capacity.",
	})

	// CancellationsTotal counts tickets cancelled and returned to the pool.
	CancellationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "onvent_cancellations_total",
		Help: "Number of successful cancellations.",
	})

	// ConfirmationFailuresTotal counts confirmation dispatches that could
	// not reach the broker. Bookings still succeed when this grows.
	ConfirmationFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "onvent_confirmation_failures_total",
		Help: "Number of booking confirmations that failed to publish.",
	})
)
