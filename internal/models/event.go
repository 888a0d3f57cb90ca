package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Event struct {
	ID            string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Title         string    `gorm:"not null" json:"title"`
	Description   string    `json:"description"`
	CreatedBy     string    `gorm:"type:varchar(64);not null;index" json:"created_by"`
	MaxAttendees  int       `gorm:"not null;default:0" json:"max_attendees"`
	EnrolledCount int       `gorm:"not null;default:0" json:"enrolled_count"`
	StartsAt      time.Time `gorm:"not null" json:"starts_at"`
	EndsAt        time.Time `gorm:"not null" json:"ends_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Tiers []TicketTier `gorm:"foreignKey:EventID" json:"tiers,omitempty"`
}

func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// Tier returns the tier with the given id, or nil when it is not part of the event.
func (e *Event) Tier(tierID string) *TicketTier {
	for i := range e.Tiers {
		if e.Tiers[i].ID == tierID {
			return &e.Tiers[i]
		}
	}
	return nil
}

// Ended reports whether the event is over at the given instant.
func (e *Event) Ended(now time.Time) bool {
	return !e.EndsAt.IsZero() && now.After(e.EndsAt)
}

// TicketTier is a priced category of tickets with its own capacity.
// Sold and Held are owned by the inventory ledger; nothing else writes them.
type TicketTier struct {
	ID        string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	EventID   string `gorm:"type:varchar(36);not null;index" json:"event_id"`
	Name      string `gorm:"not null" json:"name"`
	Position  int    `gorm:"not null;default:0" json:"position"`
	UnitPrice int64  `gorm:"not null;default:0" json:"unit_price"`
	Capacity  int    `gorm:"not null;default:0" json:"capacity"`
	Sold      int    `gorm:"not null;default:0" json:"sold"`
	Held      int    `gorm:"not null;default:0" json:"held"`
}

func (t *TicketTier) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

func (t *TicketTier) Available() int {
	return t.Capacity - t.Sold - t.Held
}
