// Package metrics holds the Prometheus collectors of the reservation
// service.  Collectors are package level so any layer can record without
// threading a registry through constructors.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "booktable"

var (
	once sync.Once

	bookings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_attempts_total",
			Help:      "Booking attempts by outcome.",
		},
		[]string{"outcome"},
	)

	cancellations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_cancelled_total",
			Help:      "Reservations cancelled by customers.",
		},
	)

	reviews = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "review_created_total",
			Help:      "Reviews added.",
		},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "confirmation_dispatch_total",
			Help:      "Booking confirmation deliveries by status.",
		},
		[]string{"status"},
	)

	notifyDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "confirmation_dispatch_duration_seconds",
			Help:      "Time spent handing a confirmation to the delivery backend.",
			Buckets:   []float64{.01, .05, .1, .5, 1, 2, 5},
		},
	)
)

// Register registers the collectors with the default registry (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookings, cancellations, reviews, notifications, notifyDuration)
	})
}

func IncBooking(outcome string) {
	bookings.WithLabelValues(outcome).Inc()
}

func IncCancellation() {
	cancellations.Inc()
}

func IncReview() {
	reviews.Inc()
}

// ObserveNotification records one confirmation delivery attempt.
func ObserveNotification(status string, seconds float64) {
	notifications.WithLabelValues(status).Inc()
	notifyDuration.Observe(seconds)
}
