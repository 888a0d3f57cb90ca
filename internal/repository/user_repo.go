package repository

import (
	"context"
	"time"

	"github.com/Eursukkul/event-ticketing/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository interface {
	FindByID(ctx context.Context, tx *gorm.DB, id string) (*models.User, error)
	EnsureExists(ctx context.Context, tx *gorm.DB, id string) error
	Debit(ctx context.Context, tx *gorm.DB, id string, amount int64) (bool, error)
	Credit(ctx context.Context, tx *gorm.DB, id string, amount int64) (bool, error)

	CreatePointsPurchase(ctx context.Context, tx *gorm.DB, p *models.PointsPurchase) error
	FindPointsPurchaseByKey(ctx context.Context, userID, key string) (*models.PointsPurchase, error)
	UpdatePointsPurchase(ctx context.Context, tx *gorm.DB, id string, fields map[string]any) error
	TransitionPointsPurchase(ctx context.Context, id string, from, to models.OrderStatus, fields map[string]any) (bool, error)
	FindPendingPointsPurchasesBefore(ctx context.Context, before time.Time, limit int) ([]models.PointsPurchase, error)
	GetDB() *gorm.DB
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetDB() *gorm.DB {
	return r.db
}

func (r *userRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *userRepository) FindByID(ctx context.Context, tx *gorm.DB, id string) (*models.User, error) {
	var user models.User
	if err := r.conn(tx).WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// EnsureExists creates an empty account for id unless one is already there.
func (r *userRepository) EnsureExists(ctx context.Context, tx *gorm.DB, id string) error {
	return r.conn(tx).WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.User{ID: id}).Error
}

func (r *userRepository) Debit(ctx context.Context, tx *gorm.DB, id string, amount int64) (bool, error) {
	res := r.conn(tx).WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND points >= ?", id, amount).
		UpdateColumn("points", gorm.Expr("points - ?", amount))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *userRepository) Credit(ctx context.Context, tx *gorm.DB, id string, amount int64) (bool, error) {
	res := r.conn(tx).WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("points", gorm.Expr("points + ?", amount))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *userRepository) CreatePointsPurchase(ctx context.Context, tx *gorm.DB, p *models.PointsPurchase) error {
	return r.conn(tx).WithContext(ctx).Create(p).Error
}

func (r *userRepository) FindPointsPurchaseByKey(ctx context.Context, userID, key string) (*models.PointsPurchase, error) {
	var p models.PointsPurchase
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *userRepository) UpdatePointsPurchase(ctx context.Context, tx *gorm.DB, id string, fields map[string]any) error {
	return r.conn(tx).WithContext(ctx).
		Model(&models.PointsPurchase{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *userRepository) TransitionPointsPurchase(ctx context.Context, id string, from, to models.OrderStatus, fields map[string]any) (bool, error) {
	updates := map[string]any{"status": to}
	for k, v := range fields {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.PointsPurchase{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *userRepository) FindPendingPointsPurchasesBefore(ctx context.Context, before time.Time, limit int) ([]models.PointsPurchase, error) {
	var purchases []models.PointsPurchase
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.OrderPending, before).
		Order("created_at ASC").
		Limit(limit).
		Find(&purchases).Error
	return purchases, err
}
