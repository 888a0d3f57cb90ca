package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Eursukkul/event-ticketing/internal/metrics"
	"github.com/Eursukkul/event-ticketing/internal/models"
	"github.com/Eursukkul/event-ticketing/internal/repository"
	"gorm.io/gorm"
)

type EnrollmentService interface {
	Enroll(ctx context.Context, userID, eventID, idempotencyKey string) (*models.Enrollment, error)
	Cancel(ctx context.Context, userID, eventID string) error
	ListForEvent(ctx context.Context, eventID string) ([]models.Enrollment, error)
	ListForUser(ctx context.Context, userID string) ([]models.Enrollment, error)
}

type enrollmentService struct {
	enrollmentRepo repository.EnrollmentRepository
	eventRepo      repository.EventRepository
}

func NewEnrollmentService(enrollmentRepo repository.EnrollmentRepository, eventRepo repository.EventRepository) EnrollmentService {
	return &enrollmentService{
		enrollmentRepo: enrollmentRepo,
		eventRepo:      eventRepo,
	}
}

func (s *enrollmentService) Enroll(ctx context.Context, userID, eventID, idempotencyKey string) (*models.Enrollment, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, validationError("user id is required")
	}

	var result *models.Enrollment
	err := s.enrollmentRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. Event must exist and still be running
		event, err := s.eventRepo.FindByID(ctx, tx, eventID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEventNotFound
		}
		if err != nil {
			return err
		}
		if event.Ended(time.Now().UTC()) {
			return ErrEventClosed
		}

		// 2. One enrollment per user; a retry with the same key gets the original back
		existing, err := s.enrollmentRepo.FindByUserAndEvent(ctx, tx, userID, eventID)
		if err == nil {
			if idempotencyKey != "" && existing.IdempotencyKey == idempotencyKey {
				result = existing
				return nil
			}
			return ErrAlreadyEnrolled
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		// 3. Take a slot
		ok, err := s.eventRepo.IncrementEnrolled(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrEventFull
		}

		// 4. The unique (event, user) index settles concurrent first attempts
		enrollment := &models.Enrollment{
			EventID:        eventID,
			UserID:         userID,
			IdempotencyKey: idempotencyKey,
		}
		if err := s.enrollmentRepo.Create(ctx, tx, enrollment); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyEnrolled
			}
			return err
		}
		result = enrollment
		return nil
	})

	if errors.Is(err, ErrAlreadyEnrolled) && idempotencyKey != "" {
		// The racing winner may have been this caller's own retry.
		if existing, ferr := s.enrollmentRepo.FindByUserAndEvent(ctx, nil, userID, eventID); ferr == nil && existing.IdempotencyKey == idempotencyKey {
			return existing, nil
		}
	}
	if err != nil {
		metrics.TrackEnrollment("enroll", outcomeOf(err))
		return nil, err
	}

	metrics.TrackEnrollment("enroll", "ok")
	return result, nil
}

func (s *enrollmentService) Cancel(ctx context.Context, userID, eventID string) error {
	err := s.enrollmentRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		enrollment, err := s.enrollmentRepo.FindByUserAndEvent(ctx, tx, userID, eventID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotEnrolled
		}
		if err != nil {
			return err
		}

		deleted, err := s.enrollmentRepo.Delete(ctx, tx, enrollment.ID)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrNotEnrolled
		}
		return s.eventRepo.DecrementEnrolled(ctx, tx, eventID)
	})

	metrics.TrackEnrollment("cancel", outcomeOf(err))
	return err
}

func (s *enrollmentService) ListForEvent(ctx context.Context, eventID string) ([]models.Enrollment, error) {
	if _, err := s.eventRepo.FindByID(ctx, nil, eventID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return s.enrollmentRepo.FindByEvent(ctx, eventID)
}

func (s *enrollmentService) ListForUser(ctx context.Context, userID string) ([]models.Enrollment, error) {
	return s.enrollmentRepo.FindByUser(ctx, userID)
}

// outcomeOf turns an error into a short metric label.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrAlreadyEnrolled):
		return "already_enrolled"
	case errors.Is(err, ErrNotEnrolled):
		return "not_enrolled"
	case errors.Is(err, ErrEventFull):
		return "full"
	case errors.Is(err, ErrEventNotFound):
		return "not_found"
	case errors.Is(err, ErrEventClosed):
		return "closed"
	default:
		return "error"
	}
}
