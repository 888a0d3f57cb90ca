package service

import (
	"context"
	"errors"
	"time"

	"github.com/Eursukkul/event-ticketing/internal/metrics"
	"github.com/Eursukkul/event-ticketing/internal/models"
	"github.com/Eursukkul/event-ticketing/internal/repository"
	"github.com/Eursukkul/event-ticketing/internal/ticketcode"
	"gorm.io/gorm"
)

// TicketView is a ticket together with the payload its QR code encodes.
type TicketView struct {
	models.Ticket
	Payload string `json:"payload"`
}

type TicketService interface {
	Issue(ctx context.Context, tx *gorm.DB, orderID, eventID, tierID, userID string) (*models.Ticket, error)
	Payload(ticketID string) string
	ListForUser(ctx context.Context, userID string) ([]TicketView, error)
	Redeem(ctx context.Context, payload string) (*models.Ticket, error)
	Cancel(ctx context.Context, userID, ticketID string) (*models.Ticket, error)
	CancelForOrder(ctx context.Context, tx *gorm.DB, orderID string) (int, error)
	ExpirePast(ctx context.Context) (int64, error)
}

type ticketService struct {
	ticketRepo     repository.TicketRepository
	eventRepo      repository.EventRepository
	ledger         InventoryLedger
	signer         *ticketcode.Signer
	resaleOnCancel bool
}

func NewTicketService(ticketRepo repository.TicketRepository, eventRepo repository.EventRepository, ledger InventoryLedger, signer *ticketcode.Signer, resaleOnCancel bool) TicketService {
	return &ticketService{
		ticketRepo:     ticketRepo,
		eventRepo:      eventRepo,
		ledger:         ledger,
		signer:         signer,
		resaleOnCancel: resaleOnCancel,
	}
}

// Issue mints one ticket. It must run in the transaction that marks the order paid.
func (s *ticketService) Issue(ctx context.Context, tx *gorm.DB, orderID, eventID, tierID, userID string) (*models.Ticket, error) {
	ticket := &models.Ticket{
		EventID:      eventID,
		TierID:       tierID,
		UserID:       userID,
		OrderID:      orderID,
		PurchaseDate: time.Now().UTC(),
		Status:       models.TicketIssued,
	}
	if err := s.ticketRepo.Create(ctx, tx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (s *ticketService) Payload(ticketID string) string {
	return s.signer.Payload(ticketID)
}

func (s *ticketService) ListForUser(ctx context.Context, userID string) ([]TicketView, error) {
	tickets, err := s.ticketRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]TicketView, 0, len(tickets))
	for _, t := range tickets {
		views = append(views, TicketView{Ticket: t, Payload: s.signer.Payload(t.ID)})
	}
	return views, nil
}

// Redeem admits the holder of a scanned payload. A ticket can be used once, and
// never after its event has ended.
func (s *ticketService) Redeem(ctx context.Context, payload string) (*models.Ticket, error) {
	ticketID, err := s.signer.Parse(payload)
	if err != nil {
		return nil, err
	}

	var ticket *models.Ticket
	err = s.ticketRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		current, err := s.findTicket(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		event, err := s.eventRepo.FindByID(ctx, tx, current.EventID)
		if err != nil {
			return err
		}
		if event.Ended(now) {
			return ErrEventClosed
		}

		moved, err := s.ticketRepo.TransitionStatus(ctx, tx, ticketID, models.TicketIssued, models.TicketUsed, map[string]any{"used_at": now})
		if err != nil {
			return err
		}
		ticket, err = s.findTicket(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		if !moved {
			return ErrInvalidTicketState
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.TrackTicketTransition(string(models.TicketUsed))
	return ticket, nil
}

func (s *ticketService) Cancel(ctx context.Context, userID, ticketID string) (*models.Ticket, error) {
	var ticket *models.Ticket
	err := s.ticketRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		ticket, err = s.findTicket(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		if ticket.UserID != userID {
			return ErrForbidden
		}
		return s.cancel(ctx, tx, ticket)
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// CancelForOrder cancels every ticket of an order. All of them must still be issued.
func (s *ticketService) CancelForOrder(ctx context.Context, tx *gorm.DB, orderID string) (int, error) {
	tickets, err := s.ticketRepo.FindByOrder(ctx, tx, orderID)
	if err != nil {
		return 0, err
	}
	for i := range tickets {
		if err := s.cancel(ctx, tx, &tickets[i]); err != nil {
			return 0, err
		}
	}
	return len(tickets), nil
}

// ExpirePast retires issued tickets of events that have ended.
func (s *ticketService) ExpirePast(ctx context.Context) (int64, error) {
	n, err := s.ticketRepo.ExpireForEndedEvents(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	metrics.TrackTicketTransitions(string(models.TicketExpired), n)
	return n, nil
}

func (s *ticketService) cancel(ctx context.Context, tx *gorm.DB, ticket *models.Ticket) error {
	now := time.Now().UTC()
	moved, err := s.ticketRepo.TransitionStatus(ctx, tx, ticket.ID, models.TicketIssued, models.TicketCancelled, map[string]any{"cancelled_at": now})
	if err != nil {
		return err
	}
	if !moved {
		return ErrInvalidTicketState
	}
	ticket.Status = models.TicketCancelled
	ticket.CancelledAt = &now

	if s.resaleOnCancel {
		if err := s.ledger.ReturnCapacity(ctx, tx, ticket.TierID, 1); err != nil {
			return err
		}
	}

	metrics.TrackTicketTransition(string(models.TicketCancelled))
	return nil
}

func (s *ticketService) findTicket(ctx context.Context, tx *gorm.DB, id string) (*models.Ticket, error) {
	ticket, err := s.ticketRepo.FindByID(ctx, tx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTicketNotFound
	}
	return ticket, err
}
