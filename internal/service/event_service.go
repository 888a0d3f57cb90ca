package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Eursukkul/event-ticketing/internal/models"
	"github.com/Eursukkul/event-ticketing/internal/repository"
	"gorm.io/gorm"
)

// Publisher emits domain events. Services accept a nil Publisher and skip publishing.
type Publisher interface {
	Publish(routingKey string, payload any) error
}

func publish(p Publisher, routingKey string, payload any) {
	if p == nil {
		return
	}
	if err := p.Publish(routingKey, payload); err != nil {
		slog.Error("publish domain event", "routing_key", routingKey, "error", err)
	}
}

type TierInput struct {
	Name      string
	UnitPrice int64
	Capacity  int
}

type CreateEventInput struct {
	CreatedBy    string
	Title        string
	Description  string
	MaxAttendees int
	StartsAt     time.Time
	EndsAt       time.Time
	Tiers        []TierInput
}

type EventService interface {
	CreateEvent(ctx context.Context, in CreateEventInput) (*models.Event, error)
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
	Availability(ctx context.Context, id string) ([]TierAvailability, error)
}

type eventService struct {
	eventRepo    repository.EventRepository
	points       PointsService
	ledger       InventoryLedger
	publisher    Publisher
	creationCost int64
}

func NewEventService(eventRepo repository.EventRepository, points PointsService, ledger InventoryLedger, publisher Publisher, creationCost int64) EventService {
	return &eventService{
		eventRepo:    eventRepo,
		points:       points,
		ledger:       ledger,
		publisher:    publisher,
		creationCost: creationCost,
	}
}

// CreateEvent charges the organizer's points and stores the event in one transaction.
// Nothing is written when the debit fails.
func (s *eventService) CreateEvent(ctx context.Context, in CreateEventInput) (*models.Event, error) {
	if err := validateEventInput(in); err != nil {
		return nil, err
	}
	if err := s.points.EnsureAccount(ctx, in.CreatedBy); err != nil {
		return nil, err
	}

	event := &models.Event{
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		CreatedBy:    in.CreatedBy,
		MaxAttendees: in.MaxAttendees,
		StartsAt:     in.StartsAt.UTC(),
		EndsAt:       in.EndsAt.UTC(),
	}
	for i, t := range in.Tiers {
		event.Tiers = append(event.Tiers, models.TicketTier{
			Name:      strings.TrimSpace(t.Name),
			Position:  i,
			UnitPrice: t.UnitPrice,
			Capacity:  t.Capacity,
		})
	}

	err := s.eventRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.creationCost > 0 {
			if err := s.points.Debit(ctx, tx, in.CreatedBy, s.creationCost); err != nil {
				return err
			}
		}
		return s.eventRepo.Create(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("event created", "event_id", event.ID, "created_by", event.CreatedBy, "tiers", len(event.Tiers))
	publish(s.publisher, "event.created", event)
	return event, nil
}

func (s *eventService) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	event, err := s.eventRepo.FindByID(ctx, nil, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEventNotFound
	}
	return event, err
}

func (s *eventService) ListEvents(ctx context.Context) ([]models.Event, error) {
	return s.eventRepo.FindAll(ctx)
}

func (s *eventService) Availability(ctx context.Context, id string) ([]TierAvailability, error) {
	return s.ledger.Availability(ctx, id)
}

func validateEventInput(in CreateEventInput) error {
	var problems []string
	if strings.TrimSpace(in.CreatedBy) == "" {
		problems = append(problems, "organizer id is required")
	}
	if strings.TrimSpace(in.Title) == "" {
		problems = append(problems, "title is required")
	}
	if in.MaxAttendees < 0 {
		problems = append(problems, "max_attendees must not be negative")
	}
	if in.StartsAt.IsZero() || in.EndsAt.IsZero() {
		problems = append(problems, "starts_at and ends_at are required")
	} else if !in.EndsAt.After(in.StartsAt) {
		problems = append(problems, "ends_at must be after starts_at")
	}

	seen := make(map[string]bool, len(in.Tiers))
	for i, t := range in.Tiers {
		name := strings.ToLower(strings.TrimSpace(t.Name))
		switch {
		case name == "":
			problems = append(problems, fmt.Sprintf("tiers[%d]: name is required", i))
		case seen[name]:
			problems = append(problems, fmt.Sprintf("tiers[%d]: duplicate tier name %q", i, t.Name))
		}
		seen[name] = true
		if t.UnitPrice < 0 {
			problems = append(problems, fmt.Sprintf("tiers[%d]: unit_price must not be negative", i))
		} else if t.UnitPrice > MaxUnitPrice {
			problems = append(problems, fmt.Sprintf("tiers[%d]: unit_price must not exceed %d", i, MaxUnitPrice))
		}
		if t.Capacity < 0 {
			problems = append(problems, fmt.Sprintf("tiers[%d]: capacity must not be negative", i))
		}
	}

	if len(problems) > 0 {
		return validationError(problems...)
	}
	return nil
}
