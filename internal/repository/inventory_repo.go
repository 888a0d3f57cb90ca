package repository

import (
	"context"
	"time"

	"github.com/Eursukkul/event-ticketing/internal/models"
	"gorm.io/gorm"
)

// InventoryRepository owns the tier counters and the reservation rows. Every
// counter change is a single guarded UPDATE so it is linearizable per tier row.
type InventoryRepository interface {
	HoldCapacity(ctx context.Context, tx *gorm.DB, tierID string, qty int) (bool, error)
	ReleaseHeld(ctx context.Context, tx *gorm.DB, tierID string, qty int) error
	CommitHeld(ctx context.Context, tx *gorm.DB, tierID string, qty int) error
	ReturnSold(ctx context.Context, tx *gorm.DB, tierID string, qty int) error

	CreateReservation(ctx context.Context, tx *gorm.DB, r *models.Reservation) error
	FindReservation(ctx context.Context, tx *gorm.DB, token string) (*models.Reservation, error)
	FindReservationsByOrder(ctx context.Context, tx *gorm.DB, orderID string) ([]models.Reservation, error)
	TransitionReservation(ctx context.Context, tx *gorm.DB, token string, from, to models.ReservationStatus) (bool, error)
	FindExpiredHeld(ctx context.Context, now time.Time, limit int) ([]models.Reservation, error)
	GetDB() *gorm.DB
}

type inventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) GetDB() *gorm.DB {
	return r.db
}

func (r *inventoryRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *inventoryRepository) HoldCapacity(ctx context.Context, tx *gorm.DB, tierID string, qty int) (bool, error) {
	res := r.conn(tx).WithContext(ctx).
		Model(&models.TicketTier{}).
		Where("id = ? AND sold + held + ? <= capacity", tierID, qty).
		UpdateColumn("held", gorm.Expr("held + ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *inventoryRepository) ReleaseHeld(ctx context.Context, tx *gorm.DB, tierID string, qty int) error {
	res := r.conn(tx).WithContext(ctx).
		Model(&models.TicketTier{}).
		Where("id = ? AND held >= ?", tierID, qty).
		UpdateColumn("held", gorm.Expr("held - ?", qty))
	return rowGuard(res)
}

func (r *inventoryRepository) CommitHeld(ctx context.Context, tx *gorm.DB, tierID string, qty int) error {
	res := r.conn(tx).WithContext(ctx).
		Model(&models.TicketTier{}).
		Where("id = ? AND held >= ?", tierID, qty).
		UpdateColumns(map[string]any{
			"held": gorm.Expr("held - ?", qty),
			"sold": gorm.Expr("sold + ?", qty),
		})
	return rowGuard(res)
}

func (r *inventoryRepository) ReturnSold(ctx context.Context, tx *gorm.DB, tierID string, qty int) error {
	res := r.conn(tx).WithContext(ctx).
		Model(&models.TicketTier{}).
		Where("id = ? AND sold >= ?", tierID, qty).
		UpdateColumn("sold", gorm.Expr("sold - ?", qty))
	return rowGuard(res)
}

func (r *inventoryRepository) CreateReservation(ctx context.Context, tx *gorm.DB, res *models.Reservation) error {
	return r.conn(tx).WithContext(ctx).Create(res).Error
}

func (r *inventoryRepository) FindReservation(ctx context.Context, tx *gorm.DB, token string) (*models.Reservation, error) {
	var res models.Reservation
	if err := r.conn(tx).WithContext(ctx).First(&res, "id = ?", token).Error; err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *inventoryRepository) FindReservationsByOrder(ctx context.Context, tx *gorm.DB, orderID string) ([]models.Reservation, error) {
	var list []models.Reservation
	err := r.conn(tx).WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&list).Error
	return list, err
}

// TransitionReservation moves a reservation from one status to another and reports
// whether this call performed the move.
func (r *inventoryRepository) TransitionReservation(ctx context.Context, tx *gorm.DB, token string, from, to models.ReservationStatus) (bool, error) {
	res := r.conn(tx).WithContext(ctx).
		Model(&models.Reservation{}).
		Where("id = ? AND status = ?", token, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *inventoryRepository) FindExpiredHeld(ctx context.Context, now time.Time, limit int) ([]models.Reservation, error) {
	var list []models.Reservation
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", models.ReservationHeld, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

func rowGuard(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return ErrCounterUnderflow
	}
	return nil
}
