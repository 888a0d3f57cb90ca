package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User carries the points balance. Points are only changed by the points service.
type User struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Points    int64     `gorm:"not null;default:0" json:"points"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type PointsPurchase struct {
	ID               string      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID           string      `gorm:"type:varchar(64);not null;uniqueIndex:idx_points_idempotency,priority:1" json:"user_id"`
	IdempotencyKey   *string     `gorm:"type:varchar(128);uniqueIndex:idx_points_idempotency,priority:2" json:"idempotency_key,omitempty"`
	Points           int64       `gorm:"not null" json:"points"`
	Amount           int64       `gorm:"not null" json:"amount"`
	Status           OrderStatus `gorm:"type:varchar(20);not null" json:"status"`
	PaymentReference string      `gorm:"type:varchar(128)" json:"payment_reference,omitempty"`
	FailureReason    string      `json:"failure_reason,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
}

func (p *PointsPurchase) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
