package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TicketStatus string

const (
	TicketIssued    TicketStatus = "issued"
	TicketUsed      TicketStatus = "used"
	TicketCancelled TicketStatus = "cancelled"
	TicketExpired   TicketStatus = "expired"
)

// Ticket is one admitted unit of a paid order.
type Ticket struct {
	ID           string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	EventID      string       `gorm:"type:varchar(36);not null;index" json:"event_id"`
	TierID       string       `gorm:"type:varchar(36);not null;index" json:"tier_id"`
	UserID       string       `gorm:"type:varchar(64);not null;index" json:"user_id"`
	OrderID      string       `gorm:"type:varchar(36);not null;index" json:"order_id"`
	PurchaseDate time.Time    `gorm:"not null" json:"purchase_date"`
	Status       TicketStatus `gorm:"type:varchar(20);not null;default:'issued';index" json:"status"`
	UsedAt       *time.Time   `json:"used_at,omitempty"`
	CancelledAt  *time.Time   `json:"cancelled_at,omitempty"`
}

func (t *Ticket) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
