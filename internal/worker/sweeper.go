package worker

import (
	"context"
	"log/slog"
	"time"
)

type ReservationExpirer interface {
	ExpireStaleReservations(ctx context.Context) (int, error)
}

type OrderReaper interface {
	FailAbandonedOrders(ctx context.Context) (int, error)
}

type PointsPurchaseReaper interface {
	FailAbandonedPointsPurchases(ctx context.Context) (int, error)
}

type TicketExpirer interface {
	ExpirePast(ctx context.Context) (int64, error)
}

// Sweeper is the single background loop that returns abandoned inventory:
// stale reservations, pending orders and points purchases nobody finished, and
// tickets of past events.
type Sweeper struct {
	reservations ReservationExpirer
	orders       OrderReaper
	points       PointsPurchaseReaper
	tickets      TicketExpirer
	interval     time.Duration
}

func NewSweeper(reservations ReservationExpirer, orders OrderReaper, points PointsPurchaseReaper, tickets TicketExpirer, interval time.Duration) *Sweeper {
	return &Sweeper{
		reservations: reservations,
		orders:       orders,
		points:       points,
		tickets:      tickets,
		interval:     interval,
	}
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("sweeper started", "interval", s.interval)
	for {
		select {
		case <-ticker.C:
			s.SweepOnce(ctx)
		case <-ctx.Done():
			slog.Info("sweeper stopping")
			return nil
		}
	}
}

// SweepOnce runs one pass. Failures are logged and retried on the next tick.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	// Reservations first so that abandoned orders find nothing left to release.
	if n, err := s.reservations.ExpireStaleReservations(ctx); err != nil {
		slog.Error("expire stale reservations", "error", err)
	} else if n > 0 {
		slog.Info("stale reservations expired", "count", n)
	}

	if n, err := s.orders.FailAbandonedOrders(ctx); err != nil {
		slog.Error("fail abandoned orders", "error", err)
	} else if n > 0 {
		slog.Info("abandoned orders failed", "count", n)
	}

	if n, err := s.points.FailAbandonedPointsPurchases(ctx); err != nil {
		slog.Error("fail abandoned points purchases", "error", err)
	} else if n > 0 {
		slog.Info("abandoned points purchases failed", "count", n)
	}

	if n, err := s.tickets.ExpirePast(ctx); err != nil {
		slog.Error("expire past tickets", "error", err)
	} else if n > 0 {
		slog.Info("tickets expired", "count", n)
	}
}
