package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reservations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_reservations_total",
			Help: "Reservation operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	staleReservations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticketing_stale_reservations_expired_total",
			Help: "Held reservations released by the sweeper after their expiry",
		},
	)

	purchases = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_purchases_total",
			Help: "Purchase attempts by outcome",
		},
		[]string{"outcome"},
	)

	ticketsIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticketing_tickets_issued_total",
			Help: "Tickets minted for paid orders",
		},
	)

	ticketTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_ticket_transitions_total",
			Help: "Ticket status transitions",
		},
		[]string{"to"},
	)

	enrollments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_enrollments_total",
			Help: "Enrollment operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	pointsMovements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_points_total",
			Help: "Points debited and credited",
		},
		[]string{"direction"},
	)

	gatewayLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ticketing_payment_gateway_duration_seconds",
			Help:    "Latency of payment gateway calls",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"operation", "outcome"},
	)
)

func TrackReservation(operation, outcome string) {
	reservations.WithLabelValues(operation, outcome).Inc()
}

func TrackStaleReservation() {
	staleReservations.Inc()
}

func TrackPurchase(outcome string) {
	purchases.WithLabelValues(outcome).Inc()
}

func TrackTicketsIssued(n int) {
	ticketsIssued.Add(float64(n))
}

func TrackTicketTransition(to string) {
	ticketTransitions.WithLabelValues(to).Inc()
}

func TrackTicketTransitions(to string, n int64) {
	ticketTransitions.WithLabelValues(to).Add(float64(n))
}

func TrackEnrollment(operation, outcome string) {
	enrollments.WithLabelValues(operation, outcome).Inc()
}

func TrackPoints(direction string, amount int64) {
	pointsMovements.WithLabelValues(direction).Add(float64(amount))
}

func ObserveGateway(operation, outcome string, d time.Duration) {
	gatewayLatency.WithLabelValues(operation, outcome).Observe(d.Seconds())
}
