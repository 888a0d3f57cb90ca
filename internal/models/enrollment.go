package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Enrollment is a free RSVP. At most one exists per (event, user).
type Enrollment struct {
	ID             string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	EventID        string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_enrollment_event_user,priority:1" json:"event_id"`
	UserID         string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_enrollment_event_user,priority:2;index" json:"user_id"`
	IdempotencyKey string    `gorm:"type:varchar(128)" json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

func (e *Enrollment) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
