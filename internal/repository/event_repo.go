package repository

import (
	"context"

	"github.com/Eursukkul/event-ticketing/internal/models"
	"gorm.io/gorm"
)

type EventRepository interface {
	Create(ctx context.Context, tx *gorm.DB, event *models.Event) error
	FindByID(ctx context.Context, tx *gorm.DB, id string) (*models.Event, error)
	FindAll(ctx context.Context) ([]models.Event, error)
	FindTier(ctx context.Context, tx *gorm.DB, tierID string) (*models.TicketTier, error)
	IncrementEnrolled(ctx context.Context, tx *gorm.DB, eventID string) (bool, error)
	DecrementEnrolled(ctx context.Context, tx *gorm.DB, eventID string) error
	GetDB() *gorm.DB
}

type eventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) GetDB() *gorm.DB {
	return r.db
}

func (r *eventRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *eventRepository) Create(ctx context.Context, tx *gorm.DB, event *models.Event) error {
	return r.conn(tx).WithContext(ctx).Create(event).Error
}

func (r *eventRepository) FindByID(ctx context.Context, tx *gorm.DB, id string) (*models.Event, error) {
	var event models.Event
	err := r.conn(tx).WithContext(ctx).
		Preload("Tiers", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&event, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *eventRepository) FindAll(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	err := r.db.WithContext(ctx).
		Preload("Tiers", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("starts_at ASC, id ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *eventRepository) FindTier(ctx context.Context, tx *gorm.DB, tierID string) (*models.TicketTier, error) {
	var tier models.TicketTier
	if err := r.conn(tx).WithContext(ctx).First(&tier, "id = ?", tierID).Error; err != nil {
		return nil, err
	}
	return &tier, nil
}

// IncrementEnrolled takes one attendee slot. It reports false when the event is full.
func (r *eventRepository) IncrementEnrolled(ctx context.Context, tx *gorm.DB, eventID string) (bool, error) {
	res := r.conn(tx).WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ? AND enrolled_count < max_attendees", eventID).
		UpdateColumn("enrolled_count", gorm.Expr("enrolled_count + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *eventRepository) DecrementEnrolled(ctx context.Context, tx *gorm.DB, eventID string) error {
	res := r.conn(tx).WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ? AND enrolled_count > 0", eventID).
		UpdateColumn("enrolled_count", gorm.Expr("enrolled_count - 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return ErrCounterUnderflow
	}
	return nil
}
