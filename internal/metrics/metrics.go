package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skyfare",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "skyfare",
			Name:      "bookings_created_total",
			Help:      "Successfully committed bookings.",
		},
	)

	bookingFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skyfare",
			Name:      "booking_failures_total",
			Help:      "Failed booking attempts by reason.",
		},
		[]string{"reason"},
	)

	seatAssignments = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "skyfare",
			Name:      "seat_assignments_total",
			Help:      "Successful seat assignments.",
		},
	)

	seatConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "skyfare",
			Name:      "seat_conflicts_total",
			Help:      "Seat claims lost to a concurrent holder.",
		},
	)

	pricingOffers = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "skyfare",
			Name:      "pricing_offers_total",
			Help:      "Base fares computed.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			bookingsCreated,
			bookingFailures,
			seatAssignments,
			seatConflicts,
			pricingOffers,
		)
	})
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncBookingCreated() {
	bookingsCreated.Inc()
}

func IncBookingFailure(reason string) {
	bookingFailures.WithLabelValues(reason).Inc()
}

func IncSeatAssignment() {
	seatAssignments.Inc()
}

func IncSeatConflict() {
	seatConflicts.Inc()
}

func IncPricingOffer() {
	pricingOffers.Inc()
}
