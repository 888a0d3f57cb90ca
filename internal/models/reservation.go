package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReservationStatus string

const (
	ReservationHeld      ReservationStatus = "held"
	ReservationCommitted ReservationStatus = "committed"
	ReservationReleased  ReservationStatus = "released"
	ReservationExpired   ReservationStatus = "expired"
)

// Reservation is a temporary hold on tier capacity for an in-flight order.
// Its ID doubles as the reservation token.
type Reservation struct {
	ID        string            `gorm:"primaryKey;type:varchar(36)" json:"token"`
	OrderID   string            `gorm:"type:varchar(36);not null;index" json:"order_id"`
	TierID    string            `gorm:"type:varchar(36);not null;index" json:"tier_id"`
	Quantity  int               `gorm:"not null" json:"quantity"`
	Status    ReservationStatus `gorm:"type:varchar(20);not null;default:'held';index:idx_reservation_sweep,priority:1" json:"status"`
	ExpiresAt time.Time         `gorm:"not null;index:idx_reservation_sweep,priority:2" json:"expires_at"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func (r *Reservation) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
