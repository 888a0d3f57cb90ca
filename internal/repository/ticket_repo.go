package repository

import (
	"context"
	"time"

	"github.com/Eursukkul/event-ticketing/internal/models"
	"gorm.io/gorm"
)

type TicketRepository interface {
	Create(ctx context.Context, tx *gorm.DB, ticket *models.Ticket) error
	FindByID(ctx context.Context, tx *gorm.DB, id string) (*models.Ticket, error)
	FindByUser(ctx context.Context, userID string) ([]models.Ticket, error)
	FindByOrder(ctx context.Context, tx *gorm.DB, orderID string) ([]models.Ticket, error)
	TransitionStatus(ctx context.Context, tx *gorm.DB, id string, from, to models.TicketStatus, fields map[string]any) (bool, error)
	ExpireForEndedEvents(ctx context.Context, now time.Time) (int64, error)
	GetDB() *gorm.DB
}

type ticketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) GetDB() *gorm.DB {
	return r.db
}

func (r *ticketRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *ticketRepository) Create(ctx context.Context, tx *gorm.DB, ticket *models.Ticket) error {
	return r.conn(tx).WithContext(ctx).Create(ticket).Error
}

func (r *ticketRepository) FindByID(ctx context.Context, tx *gorm.DB, id string) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := r.conn(tx).WithContext(ctx).First(&ticket, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) FindByUser(ctx context.Context, userID string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("purchase_date DESC, id ASC").
		Find(&tickets).Error
	return tickets, err
}

func (r *ticketRepository) FindByOrder(ctx context.Context, tx *gorm.DB, orderID string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := r.conn(tx).WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&tickets).Error
	return tickets, err
}

func (r *ticketRepository) TransitionStatus(ctx context.Context, tx *gorm.DB, id string, from, to models.TicketStatus, fields map[string]any) (bool, error) {
	updates := map[string]any{"status": to}
	for k, v := range fields {
		updates[k] = v
	}
	res := r.conn(tx).WithContext(ctx).
		Model(&models.Ticket{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ExpireForEndedEvents marks every still-issued ticket of an ended event as expired.
func (r *ticketRepository) ExpireForEndedEvents(ctx context.Context, now time.Time) (int64, error) {
	ended := r.db.Model(&models.Event{}).Select("id").Where("ends_at < ?", now)
	res := r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("status = ? AND event_id IN (?)", models.TicketIssued, ended).
		Update("status", models.TicketExpired)
	return res.RowsAffected, res.Error
}
