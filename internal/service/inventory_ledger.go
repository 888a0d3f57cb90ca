package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Eursukkul/event-ticketing/internal/metrics"
	"github.com/Eursukkul/event-ticketing/internal/models"
	"github.com/Eursukkul/event-ticketing/internal/repository"
	"gorm.io/gorm"
)

const sweepBatchSize = 100

// TierAvailability is a point-in-time view of one tier's counters.
type TierAvailability struct {
	TierID    string `json:"tier_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Capacity  int    `json:"capacity"`
	Sold      int    `json:"sold"`
	Held      int    `json:"held"`
	Available int    `json:"available"`
}

// InventoryLedger owns the sold and held counters of every ticket tier.
type InventoryLedger interface {
	Reserve(ctx context.Context, orderID, tierID string, qty int) (*models.Reservation, error)
	Commit(ctx context.Context, token string) error
	Release(ctx context.Context, token string) error
	CommitOrder(ctx context.Context, tx *gorm.DB, orderID string) error
	ReleaseOrder(ctx context.Context, orderID string) error
	ExpireStaleReservations(ctx context.Context) (int, error)
	ReturnCapacity(ctx context.Context, tx *gorm.DB, tierID string, qty int) error
	Availability(ctx context.Context, eventID string) ([]TierAvailability, error)
}

type inventoryLedger struct {
	inventoryRepo repository.InventoryRepository
	eventRepo     repository.EventRepository
	ttl           time.Duration
	now           func() time.Time
}

func NewInventoryLedger(inventoryRepo repository.InventoryRepository, eventRepo repository.EventRepository, ttl time.Duration) InventoryLedger {
	return &inventoryLedger{
		inventoryRepo: inventoryRepo,
		eventRepo:     eventRepo,
		ttl:           ttl,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (l *inventoryLedger) Reserve(ctx context.Context, orderID, tierID string, qty int) (*models.Reservation, error) {
	if qty <= 0 {
		return nil, validationError("quantity must be positive")
	}

	var reservation *models.Reservation
	err := l.inventoryRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := l.inventoryRepo.HoldCapacity(ctx, tx, tierID, qty)
		if err != nil {
			return err
		}
		if !ok {
			return &InsufficientInventoryError{TierID: tierID, Requested: qty}
		}

		reservation = &models.Reservation{
			OrderID:   orderID,
			TierID:    tierID,
			Quantity:  qty,
			Status:    models.ReservationHeld,
			ExpiresAt: l.now().Add(l.ttl),
		}
		return l.inventoryRepo.CreateReservation(ctx, tx, reservation)
	})
	if err != nil {
		metrics.TrackReservation("reserve", "rejected")
		return nil, err
	}

	metrics.TrackReservation("reserve", "held")
	return reservation, nil
}

func (l *inventoryLedger) Commit(ctx context.Context, token string) error {
	return l.inventoryRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reservation, err := l.findReservation(ctx, tx, token)
		if err != nil {
			return err
		}
		return l.commit(ctx, tx, reservation)
	})
}

func (l *inventoryLedger) Release(ctx context.Context, token string) error {
	return l.inventoryRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reservation, err := l.findReservation(ctx, tx, token)
		if err != nil {
			return err
		}
		_, err = l.release(ctx, tx, reservation, models.ReservationReleased)
		return err
	})
}

// CommitOrder commits every reservation of the order inside the caller's transaction.
func (l *inventoryLedger) CommitOrder(ctx context.Context, tx *gorm.DB, orderID string) error {
	reservations, err := l.inventoryRepo.FindReservationsByOrder(ctx, tx, orderID)
	if err != nil {
		return err
	}
	if len(reservations) == 0 {
		return ErrReservationNotFound
	}

	for i := range reservations {
		if err := l.commit(ctx, tx, &reservations[i]); err != nil {
			return fmt.Errorf("commit reservation %s: %w", reservations[i].ID, err)
		}
	}
	return nil
}

func (l *inventoryLedger) ReleaseOrder(ctx context.Context, orderID string) error {
	return l.inventoryRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reservations, err := l.inventoryRepo.FindReservationsByOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		for i := range reservations {
			if _, err := l.release(ctx, tx, &reservations[i], models.ReservationReleased); err != nil {
				return fmt.Errorf("release reservation %s: %w", reservations[i].ID, err)
			}
		}
		return nil
	})
}

// ExpireStaleReservations returns held capacity whose reservation outlived its TTL.
func (l *inventoryLedger) ExpireStaleReservations(ctx context.Context) (int, error) {
	stale, err := l.inventoryRepo.FindExpiredHeld(ctx, l.now(), sweepBatchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range stale {
		reservation := &stale[i]
		var moved bool
		err := l.inventoryRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			moved, err = l.release(ctx, tx, reservation, models.ReservationExpired)
			return err
		})
		if err != nil {
			return expired, fmt.Errorf("expire reservation %s: %w", reservation.ID, err)
		}
		if !moved {
			continue
		}

		slog.Warn("stale reservation expired",
			"token", reservation.ID,
			"order_id", reservation.OrderID,
			"tier_id", reservation.TierID,
			"quantity", reservation.Quantity,
			"expired_at", reservation.ExpiresAt,
		)
		metrics.TrackStaleReservation()
		expired++
	}
	return expired, nil
}

// ReturnCapacity puts sold units back on sale.
func (l *inventoryLedger) ReturnCapacity(ctx context.Context, tx *gorm.DB, tierID string, qty int) error {
	err := l.inventoryRepo.ReturnSold(ctx, tx, tierID, qty)
	if errors.Is(err, repository.ErrCounterUnderflow) {
		return fmt.Errorf("return %d units to tier %s: %w", qty, tierID, err)
	}
	return err
}

func (l *inventoryLedger) Availability(ctx context.Context, eventID string) ([]TierAvailability, error) {
	event, err := l.eventRepo.FindByID(ctx, nil, eventID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}

	out := make([]TierAvailability, 0, len(event.Tiers))
	for _, tier := range event.Tiers {
		out = append(out, TierAvailability{
			TierID:    tier.ID,
			Name:      tier.Name,
			UnitPrice: tier.UnitPrice,
			Capacity:  tier.Capacity,
			Sold:      tier.Sold,
			Held:      tier.Held,
			Available: tier.Available(),
		})
	}
	return out, nil
}

func (l *inventoryLedger) findReservation(ctx context.Context, tx *gorm.DB, token string) (*models.Reservation, error) {
	reservation, err := l.inventoryRepo.FindReservation(ctx, tx, token)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReservationNotFound
	}
	return reservation, err
}

func (l *inventoryLedger) commit(ctx context.Context, tx *gorm.DB, reservation *models.Reservation) error {
	switch reservation.Status {
	case models.ReservationCommitted:
		return nil
	case models.ReservationReleased, models.ReservationExpired:
		return ErrReservationNotHeld
	}
	if l.now().After(reservation.ExpiresAt) {
		return ErrReservationNotHeld
	}

	moved, err := l.inventoryRepo.TransitionReservation(ctx, tx, reservation.ID, models.ReservationHeld, models.ReservationCommitted)
	if err != nil {
		return err
	}
	if !moved {
		// Someone else finished the reservation between our read and the update.
		current, err := l.findReservation(ctx, tx, reservation.ID)
		if err != nil {
			return err
		}
		if current.Status == models.ReservationCommitted {
			return nil
		}
		return ErrReservationNotHeld
	}

	if err := l.inventoryRepo.CommitHeld(ctx, tx, reservation.TierID, reservation.Quantity); err != nil {
		return err
	}
	reservation.Status = models.ReservationCommitted
	metrics.TrackReservation("commit", "committed")
	return nil
}

// release reports whether this call moved the reservation out of held.
func (l *inventoryLedger) release(ctx context.Context, tx *gorm.DB, reservation *models.Reservation, to models.ReservationStatus) (bool, error) {
	if reservation.Status != models.ReservationHeld {
		return false, nil
	}

	moved, err := l.inventoryRepo.TransitionReservation(ctx, tx, reservation.ID, models.ReservationHeld, to)
	if err != nil || !moved {
		return false, err
	}

	if err := l.inventoryRepo.ReleaseHeld(ctx, tx, reservation.TierID, reservation.Quantity); err != nil {
		return false, err
	}
	reservation.Status = to
	metrics.TrackReservation("release", string(to))
	return true, nil
}
