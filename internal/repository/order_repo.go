package repository

import (
	"context"
	"time"

	"github.com/Eursukkul/event-ticketing/internal/models"
	"gorm.io/gorm"
)

type OrderRepository interface {
	Create(ctx context.Context, tx *gorm.DB, order *models.PurchaseOrder) error
	FindByID(ctx context.Context, tx *gorm.DB, id string) (*models.PurchaseOrder, error)
	FindByIdempotencyKey(ctx context.Context, userID, key string) (*models.PurchaseOrder, error)
	FindByUser(ctx context.Context, userID string) ([]models.PurchaseOrder, error)
	TransitionStatus(ctx context.Context, tx *gorm.DB, id string, from, to models.OrderStatus, fields map[string]any) (bool, error)
	FindPendingBefore(ctx context.Context, before time.Time, limit int) ([]models.PurchaseOrder, error)
	GetDB() *gorm.DB
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) GetDB() *gorm.DB {
	return r.db
}

func (r *orderRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// Create inserts the order together with its line items.
func (r *orderRepository) Create(ctx context.Context, tx *gorm.DB, order *models.PurchaseOrder) error {
	return r.conn(tx).WithContext(ctx).Create(order).Error
}

func (r *orderRepository) FindByID(ctx context.Context, tx *gorm.DB, id string) (*models.PurchaseOrder, error) {
	var order models.PurchaseOrder
	err := r.conn(tx).WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Tickets", func(db *gorm.DB) *gorm.DB { return db.Order("purchase_date ASC, id ASC") }).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByIdempotencyKey(ctx context.Context, userID, key string) (*models.PurchaseOrder, error) {
	var order models.PurchaseOrder
	err := r.db.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Tickets", func(db *gorm.DB) *gorm.DB { return db.Order("purchase_date ASC, id ASC") }).
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByUser(ctx context.Context, userID string) ([]models.PurchaseOrder, error) {
	var orders []models.PurchaseOrder
	err := r.db.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("user_id = ?", userID).
		Order("created_at DESC, id ASC").
		Find(&orders).Error
	return orders, err
}

// TransitionStatus is a compare-and-update on the order status. Extra columns in
// fields are written in the same statement.
func (r *orderRepository) TransitionStatus(ctx context.Context, tx *gorm.DB, id string, from, to models.OrderStatus, fields map[string]any) (bool, error) {
	updates := map[string]any{"status": to, "updated_at": time.Now().UTC()}
	for k, v := range fields {
		updates[k] = v
	}
	res := r.conn(tx).WithContext(ctx).
		Model(&models.PurchaseOrder{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *orderRepository) FindPendingBefore(ctx context.Context, before time.Time, limit int) ([]models.PurchaseOrder, error) {
	var orders []models.PurchaseOrder
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.OrderPending, before).
		Order("created_at ASC").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}
