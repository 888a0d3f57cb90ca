package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Eursukkul/event-ticketing/internal/metrics"
	"github.com/Eursukkul/event-ticketing/internal/models"
	"github.com/Eursukkul/event-ticketing/internal/payment"
	"github.com/Eursukkul/event-ticketing/internal/repository"
	"gorm.io/gorm"
)

type BuyPointsRequest struct {
	UserID         string
	Points         int64
	PaymentMethod  string
	IdempotencyKey string
}

// PointsService is the only writer of user point balances.
type PointsService interface {
	EnsureAccount(ctx context.Context, userID string) error
	Balance(ctx context.Context, userID string) (int64, error)
	Debit(ctx context.Context, tx *gorm.DB, userID string, amount int64) error
	Credit(ctx context.Context, tx *gorm.DB, userID string, amount int64) error
	BuyPoints(ctx context.Context, req BuyPointsRequest) (*models.PointsPurchase, error)
	FailAbandonedPointsPurchases(ctx context.Context) (int, error)
}

type pointsService struct {
	userRepo       repository.UserRepository
	gateway        payment.Gateway
	pointPrice     int64
	paymentTimeout time.Duration
}

func NewPointsService(userRepo repository.UserRepository, gateway payment.Gateway, pointPrice int64, paymentTimeout time.Duration) PointsService {
	return &pointsService{
		userRepo:       userRepo,
		gateway:        gateway,
		pointPrice:     pointPrice,
		paymentTimeout: paymentTimeout,
	}
}

func (s *pointsService) EnsureAccount(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return validationError("user id is required")
	}
	return s.userRepo.EnsureExists(ctx, nil, userID)
}

func (s *pointsService) Balance(ctx context.Context, userID string) (int64, error) {
	if err := s.EnsureAccount(ctx, userID); err != nil {
		return 0, err
	}
	user, err := s.userRepo.FindByID(ctx, nil, userID)
	if err != nil {
		return 0, err
	}
	return user.Points, nil
}

// Debit takes amount points from the user, failing rather than going negative.
// Pass the caller's transaction so the debit commits or rolls back with its work.
func (s *pointsService) Debit(ctx context.Context, tx *gorm.DB, userID string, amount int64) error {
	if amount <= 0 {
		return validationError("debit amount must be positive")
	}

	ok, err := s.userRepo.Debit(ctx, tx, userID, amount)
	if err != nil {
		return err
	}
	if !ok {
		if _, err := s.userRepo.FindByID(ctx, tx, userID); errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return ErrInsufficientBalance
	}

	metrics.TrackPoints("debit", amount)
	return nil
}

func (s *pointsService) Credit(ctx context.Context, tx *gorm.DB, userID string, amount int64) error {
	if amount <= 0 {
		return validationError("credit amount must be positive")
	}

	ok, err := s.userRepo.Credit(ctx, tx, userID, amount)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUserNotFound
	}

	metrics.TrackPoints("credit", amount)
	return nil
}

func (s *pointsService) BuyPoints(ctx context.Context, req BuyPointsRequest) (*models.PointsPurchase, error) {
	var problems []string
	if strings.TrimSpace(req.UserID) == "" {
		problems = append(problems, "user id is required")
	}
	if req.Points <= 0 {
		problems = append(problems, "points must be positive")
	} else if amount, ok := mulAmount(req.Points, s.pointPrice); !ok || amount <= 0 {
		problems = append(problems, "points amount is out of range")
	}
	if strings.TrimSpace(req.PaymentMethod) == "" {
		problems = append(problems, "payment method is required")
	}
	if len(problems) > 0 {
		return nil, validationError(problems...)
	}

	if req.IdempotencyKey != "" {
		if existing, err := s.replayPointsPurchase(ctx, req.UserID, req.IdempotencyKey); existing != nil || err != nil {
			return existing, err
		}
	}

	if err := s.userRepo.EnsureExists(ctx, nil, req.UserID); err != nil {
		return nil, err
	}

	amount, _ := mulAmount(req.Points, s.pointPrice)
	purchase := &models.PointsPurchase{
		UserID: req.UserID,
		Points: req.Points,
		Amount: amount,
		Status: models.OrderPending,
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		purchase.IdempotencyKey = &key
	}
	if err := s.userRepo.CreatePointsPurchase(ctx, nil, purchase); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) && req.IdempotencyKey != "" {
			return s.replayPointsPurchase(ctx, req.UserID, req.IdempotencyKey)
		}
		return nil, err
	}

	result, err := charge(ctx, s.gateway, s.paymentTimeout, payment.ChargeRequest{
		Amount:         purchase.Amount,
		Method:         req.PaymentMethod,
		IdempotencyKey: purchase.ID,
		Description:    fmt.Sprintf("%d points", req.Points),
	})
	if err != nil || !result.Success {
		reason := ""
		if err != nil {
			reason = gatewayFailureReason(err)
			slog.Error("points charge failed", "purchase_id", purchase.ID, "error", err)
		} else {
			reason = result.Reason
		}
		purchase.Status = models.OrderFailed
		purchase.FailureReason = reason
		if uerr := s.userRepo.UpdatePointsPurchase(context.WithoutCancel(ctx), nil, purchase.ID, map[string]any{
			"status":         models.OrderFailed,
			"failure_reason": reason,
		}); uerr != nil {
			return nil, uerr
		}
		return purchase, &PaymentError{OrderID: purchase.ID, Reason: reason}
	}

	err = s.userRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.Credit(ctx, tx, req.UserID, req.Points); err != nil {
			return err
		}
		return s.userRepo.UpdatePointsPurchase(ctx, tx, purchase.ID, map[string]any{
			"status":            models.OrderPaid,
			"payment_reference": result.ReferenceID,
		})
	})
	if err != nil {
		slog.Error("crediting purchased points failed, refunding", "purchase_id", purchase.ID, "error", err)
		if rerr := refund(context.WithoutCancel(ctx), s.gateway, result.ReferenceID, purchase.Amount); rerr != nil {
			slog.Error("refund failed", "purchase_id", purchase.ID, "reference", result.ReferenceID, "error", rerr)
		}
		if uerr := s.userRepo.UpdatePointsPurchase(context.WithoutCancel(ctx), nil, purchase.ID, map[string]any{
			"status":         models.OrderFailed,
			"failure_reason": "credit failed",
		}); uerr != nil {
			slog.Error("mark points purchase failed", "purchase_id", purchase.ID, "error", uerr)
		}
		return nil, err
	}

	purchase.Status = models.OrderPaid
	purchase.PaymentReference = result.ReferenceID
	return purchase, nil
}

func (s *pointsService) replayPointsPurchase(ctx context.Context, userID, key string) (*models.PointsPurchase, error) {
	existing, err := s.userRepo.FindPointsPurchaseByKey(ctx, userID, key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	switch existing.Status {
	case models.OrderPaid:
		return existing, nil
	case models.OrderPending:
		return nil, ErrPurchaseInProgress
	default:
		return existing, &PaymentError{OrderID: existing.ID, Reason: existing.FailureReason}
	}
}

// FailAbandonedPointsPurchases closes purchases left pending by an interrupted
// BuyPoints so their idempotency keys stop answering "in progress". A purchase is
// abandoned once it is older than twice the payment timeout.
func (s *pointsService) FailAbandonedPointsPurchases(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-2 * s.paymentTimeout)
	purchases, err := s.userRepo.FindPendingPointsPurchasesBefore(ctx, cutoff, sweepBatchSize)
	if err != nil {
		return 0, err
	}

	failed := 0
	for _, p := range purchases {
		moved, err := s.userRepo.TransitionPointsPurchase(ctx, p.ID, models.OrderPending, models.OrderFailed,
			map[string]any{"failure_reason": "abandoned"})
		if err != nil {
			return failed, err
		}
		if moved {
			slog.Warn("abandoned points purchase failed", "purchase_id", p.ID, "user_id", p.UserID, "amount", p.Amount)
			failed++
		}
	}
	return failed, nil
}
