package repository

import (
	"context"

	"github.com/Eursukkul/event-ticketing/internal/models"
	"gorm.io/gorm"
)

type EnrollmentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment) error
	FindByUserAndEvent(ctx context.Context, tx *gorm.DB, userID, eventID string) (*models.Enrollment, error)
	Delete(ctx context.Context, tx *gorm.DB, id string) (bool, error)
	FindByEvent(ctx context.Context, eventID string) ([]models.Enrollment, error)
	FindByUser(ctx context.Context, userID string) ([]models.Enrollment, error)
	GetDB() *gorm.DB
}

type enrollmentRepository struct {
	db *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) GetDB() *gorm.DB {
	return r.db
}

func (r *enrollmentRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *enrollmentRepository) Create(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment) error {
	return r.conn(tx).WithContext(ctx).Create(enrollment).Error
}

func (r *enrollmentRepository) FindByUserAndEvent(ctx context.Context, tx *gorm.DB, userID, eventID string) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	err := r.conn(tx).WithContext(ctx).
		Where("user_id = ? AND event_id = ?", userID, eventID).
		First(&enrollment).Error
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (r *enrollmentRepository) Delete(ctx context.Context, tx *gorm.DB, id string) (bool, error) {
	res := r.conn(tx).WithContext(ctx).Where("id = ?", id).Delete(&models.Enrollment{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *enrollmentRepository) FindByEvent(ctx context.Context, eventID string) ([]models.Enrollment, error) {
	var list []models.Enrollment
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).Order("created_at ASC, id ASC").Find(&list).Error
	return list, err
}

func (r *enrollmentRepository) FindByUser(ctx context.Context, userID string) ([]models.Enrollment, error) {
	var list []models.Enrollment
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC, id ASC").Find(&list).Error
	return list, err
}
