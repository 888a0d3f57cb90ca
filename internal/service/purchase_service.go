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
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var errOrderNoLongerPending = errors.New("order is no longer pending")

type LineItemRequest struct {
	TierID   string
	Quantity int
}

type PurchaseRequest struct {
	UserID         string
	EventID        string
	LineItems      []LineItemRequest
	PaymentMethod  string
	IdempotencyKey string
}

// PurchaseResult is the order a purchase produced. Replayed is set when the order
// was found through the idempotency key instead of being placed by this call.
type PurchaseResult struct {
	Order    *models.PurchaseOrder
	Replayed bool
}

// KeyLocker serializes in-flight purchases that share an idempotency key.
// A nil KeyLocker leaves that to the unique index on the order table.
type KeyLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type PurchaseConfig struct {
	PaymentTimeout time.Duration
	ReservationTTL time.Duration
	LockTTL        time.Duration
}

type PurchaseService interface {
	Purchase(ctx context.Context, req PurchaseRequest) (*PurchaseResult, error)
	GetOrder(ctx context.Context, userID, orderID string) (*models.PurchaseOrder, error)
	ListOrders(ctx context.Context, userID string) ([]models.PurchaseOrder, error)
	CancelOrder(ctx context.Context, userID, orderID string) (*models.PurchaseOrder, error)
	FailAbandonedOrders(ctx context.Context) (int, error)
}

type purchaseService struct {
	orderRepo repository.OrderRepository
	eventRepo repository.EventRepository
	ledger    InventoryLedger
	tickets   TicketService
	gateway   payment.Gateway
	locker    KeyLocker
	publisher Publisher
	cfg       PurchaseConfig
}

func NewPurchaseService(
	orderRepo repository.OrderRepository,
	eventRepo repository.EventRepository,
	ledger InventoryLedger,
	tickets TicketService,
	gateway payment.Gateway,
	locker KeyLocker,
	publisher Publisher,
	cfg PurchaseConfig,
) PurchaseService {
	return &purchaseService{
		orderRepo: orderRepo,
		eventRepo: eventRepo,
		ledger:    ledger,
		tickets:   tickets,
		gateway:   gateway,
		locker:    locker,
		publisher: publisher,
		cfg:       cfg,
	}
}

func (s *purchaseService) Purchase(ctx context.Context, req PurchaseRequest) (*PurchaseResult, error) {
	if err := validatePurchaseRequest(req); err != nil {
		return nil, err
	}

	// 1. Idempotent replay
	if req.IdempotencyKey != "" {
		if res, err := s.replay(ctx, req.UserID, req.IdempotencyKey); res != nil || err != nil {
			return res, err
		}

		if s.locker != nil {
			lockKey := req.UserID + ":" + req.IdempotencyKey
			acquired, err := s.locker.Acquire(ctx, lockKey, s.cfg.LockTTL)
			switch {
			case err != nil:
				slog.Warn("idempotency lock unavailable, relying on unique index", "key", lockKey, "error", err)
			case !acquired:
				return nil, ErrPurchaseInProgress
			default:
				defer func() {
					if err := s.locker.Release(context.WithoutCancel(ctx), lockKey); err != nil {
						slog.Warn("release idempotency lock", "key", lockKey, "error", err)
					}
				}()
			}
		}
	}

	// 2. Resolve tiers and price the order server-side
	event, err := s.eventRepo.FindByID(ctx, nil, req.EventID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	if event.Ended(time.Now().UTC()) {
		return nil, ErrEventClosed
	}

	orderID := uuid.NewString()
	lines := make([]models.OrderLineItem, 0, len(req.LineItems))
	var total int64
	for _, item := range req.LineItems {
		tier := event.Tier(item.TierID)
		if tier == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTier, item.TierID)
		}
		lineTotal, ok := mulAmount(tier.UnitPrice, int64(item.Quantity))
		if ok {
			total, ok = addAmount(total, lineTotal)
		}
		if !ok {
			return nil, validationError("order total exceeds the maximum chargeable amount")
		}
		lines = append(lines, models.OrderLineItem{
			OrderID:             orderID,
			TierID:              tier.ID,
			Quantity:            item.Quantity,
			UnitPriceAtPurchase: tier.UnitPrice,
		})
	}

	// 3. Reserve every line or none
	for _, line := range lines {
		if _, err := s.ledger.Reserve(ctx, orderID, line.TierID, line.Quantity); err != nil {
			s.releaseOrder(ctx, orderID)
			metrics.TrackPurchase(purchaseOutcome(err))
			return nil, err
		}
	}

	// 4. Pending order
	order := &models.PurchaseOrder{
		ID:            orderID,
		UserID:        req.UserID,
		EventID:       event.ID,
		TotalAmount:   total,
		PaymentMethod: req.PaymentMethod,
		Status:        models.OrderPending,
		LineItems:     lines,
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		order.IdempotencyKey = &key
	}
	if err := s.orderRepo.Create(ctx, nil, order); err != nil {
		s.releaseOrder(ctx, orderID)
		if errors.Is(err, gorm.ErrDuplicatedKey) && req.IdempotencyKey != "" {
			if res, rerr := s.replay(ctx, req.UserID, req.IdempotencyKey); res != nil || rerr != nil {
				return res, rerr
			}
			return nil, ErrPurchaseInProgress
		}
		return nil, err
	}

	// 5. Charge
	result, err := charge(ctx, s.gateway, s.cfg.PaymentTimeout, payment.ChargeRequest{
		Amount:         total,
		Method:         req.PaymentMethod,
		IdempotencyKey: order.ID,
		Description:    fmt.Sprintf("%s (%d line items)", event.Title, len(lines)),
	})
	if err != nil {
		slog.Error("payment gateway call failed", "order_id", order.ID, "error", err)
		return s.failOrder(ctx, order, gatewayFailureReason(err))
	}
	if !result.Success {
		return s.failOrder(ctx, order, result.Reason)
	}

	// 6. Commit, mark paid and issue tickets atomically
	if err := s.finalize(context.WithoutCancel(ctx), order, result.ReferenceID); err != nil {
		slog.Error("fulfilment after successful charge failed, refunding",
			"order_id", order.ID, "reference", result.ReferenceID, "error", err)
		if rerr := refund(context.WithoutCancel(ctx), s.gateway, result.ReferenceID, total); rerr != nil {
			slog.Error("refund failed", "order_id", order.ID, "reference", result.ReferenceID, "error", rerr)
		}
		if errors.Is(err, ErrReservationNotHeld) || errors.Is(err, errOrderNoLongerPending) {
			return s.failOrder(ctx, order, "reservation expired before payment completed")
		}
		s.failOrder(ctx, order, "fulfilment failed")
		return nil, err
	}

	slog.Info("order paid", "order_id", order.ID, "user_id", order.UserID, "total", order.TotalAmount, "tickets", len(order.Tickets))
	metrics.TrackPurchase("paid")
	metrics.TrackTicketsIssued(len(order.Tickets))
	publish(s.publisher, "order.paid", order)
	return &PurchaseResult{Order: order}, nil
}

func (s *purchaseService) GetOrder(ctx context.Context, userID, orderID string) (*models.PurchaseOrder, error) {
	order, err := s.orderRepo.FindByID(ctx, nil, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrForbidden
	}
	return order, nil
}

func (s *purchaseService) ListOrders(ctx context.Context, userID string) ([]models.PurchaseOrder, error) {
	return s.orderRepo.FindByUser(ctx, userID)
}

// CancelOrder cancels a paid order whose tickets are all unused and refunds it.
func (s *purchaseService) CancelOrder(ctx context.Context, userID, orderID string) (*models.PurchaseOrder, error) {
	order, err := s.GetOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderPaid {
		return nil, ErrOrderNotCancellable
	}

	err = s.orderRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		moved, err := s.orderRepo.TransitionStatus(ctx, tx, order.ID, models.OrderPaid, models.OrderCancelled, nil)
		if err != nil {
			return err
		}
		if !moved {
			return ErrOrderNotCancellable
		}
		if _, err := s.tickets.CancelForOrder(ctx, tx, order.ID); err != nil {
			if errors.Is(err, ErrInvalidTicketState) {
				return ErrOrderNotCancellable
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := refund(context.WithoutCancel(ctx), s.gateway, order.PaymentReference, order.TotalAmount); err != nil {
		slog.Error("refund for cancelled order failed", "order_id", order.ID, "reference", order.PaymentReference, "error", err)
		return nil, fmt.Errorf("order %s cancelled but refund failed: %w", order.ID, err)
	}

	publish(s.publisher, "order.cancelled", map[string]any{"order_id": order.ID, "user_id": order.UserID})
	return s.orderRepo.FindByID(ctx, nil, order.ID)
}

// FailAbandonedOrders closes pending orders that outlived their reservations,
// which only happens when a purchase was interrupted mid-flight.
func (s *purchaseService) FailAbandonedOrders(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.cfg.ReservationTTL)
	orders, err := s.orderRepo.FindPendingBefore(ctx, cutoff, sweepBatchSize)
	if err != nil {
		return 0, err
	}

	failed := 0
	for i := range orders {
		order := &orders[i]
		if err := s.ledger.ReleaseOrder(ctx, order.ID); err != nil {
			return failed, fmt.Errorf("release abandoned order %s: %w", order.ID, err)
		}
		moved, err := s.orderRepo.TransitionStatus(ctx, nil, order.ID, models.OrderPending, models.OrderFailed,
			map[string]any{"failure_reason": "abandoned"})
		if err != nil {
			return failed, err
		}
		if moved {
			slog.Warn("abandoned order failed", "order_id", order.ID, "user_id", order.UserID, "created_at", order.CreatedAt)
			failed++
		}
	}
	return failed, nil
}

func (s *purchaseService) replay(ctx context.Context, userID, key string) (*PurchaseResult, error) {
	existing, err := s.orderRepo.FindByIdempotencyKey(ctx, userID, key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	metrics.TrackPurchase("replayed")
	switch existing.Status {
	case models.OrderPaid:
		return &PurchaseResult{Order: existing, Replayed: true}, nil
	case models.OrderPending:
		return nil, ErrPurchaseInProgress
	case models.OrderCancelled:
		return &PurchaseResult{Order: existing, Replayed: true}, &PaymentError{OrderID: existing.ID, Reason: "order was cancelled"}
	default:
		return &PurchaseResult{Order: existing, Replayed: true}, &PaymentError{OrderID: existing.ID, Reason: existing.FailureReason}
	}
}

func (s *purchaseService) finalize(ctx context.Context, order *models.PurchaseOrder, reference string) error {
	var issued []models.Ticket
	err := s.orderRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		moved, err := s.orderRepo.TransitionStatus(ctx, tx, order.ID, models.OrderPending, models.OrderPaid,
			map[string]any{"payment_reference": reference})
		if err != nil {
			return err
		}
		if !moved {
			return errOrderNoLongerPending
		}

		if err := s.ledger.CommitOrder(ctx, tx, order.ID); err != nil {
			return err
		}

		for _, line := range order.LineItems {
			for i := 0; i < line.Quantity; i++ {
				ticket, err := s.tickets.Issue(ctx, tx, order.ID, order.EventID, line.TierID, order.UserID)
				if err != nil {
					return fmt.Errorf("issue ticket: %w", err)
				}
				issued = append(issued, *ticket)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	order.Status = models.OrderPaid
	order.PaymentReference = reference
	order.Tickets = issued
	return nil
}

// failOrder releases the order's reservations and records why it failed.
func (s *purchaseService) failOrder(ctx context.Context, order *models.PurchaseOrder, reason string) (*PurchaseResult, error) {
	bg := context.WithoutCancel(ctx)
	s.releaseOrder(bg, order.ID)

	moved, err := s.orderRepo.TransitionStatus(bg, nil, order.ID, models.OrderPending, models.OrderFailed,
		map[string]any{"failure_reason": reason})
	if err != nil {
		slog.Error("mark order failed", "order_id", order.ID, "error", err)
	}
	if moved {
		order.Status = models.OrderFailed
		order.FailureReason = reason
	}

	slog.Info("order failed", "order_id", order.ID, "reason", reason)
	metrics.TrackPurchase("failed")
	publish(s.publisher, "order.failed", map[string]any{"order_id": order.ID, "user_id": order.UserID, "reason": reason})
	return &PurchaseResult{Order: order}, &PaymentError{OrderID: order.ID, Reason: reason}
}

// releaseOrder is best effort. Anything it misses is expired by the sweeper.
func (s *purchaseService) releaseOrder(ctx context.Context, orderID string) {
	if err := s.ledger.ReleaseOrder(context.WithoutCancel(ctx), orderID); err != nil {
		slog.Error("release order reservations", "order_id", orderID, "error", err)
	}
}

func validatePurchaseRequest(req PurchaseRequest) error {
	var problems []string
	if strings.TrimSpace(req.UserID) == "" {
		problems = append(problems, "user id is required")
	}
	if strings.TrimSpace(req.EventID) == "" {
		problems = append(problems, "event_id is required")
	}
	if strings.TrimSpace(req.PaymentMethod) == "" {
		problems = append(problems, "payment_method is required")
	}
	if len(req.LineItems) == 0 {
		problems = append(problems, "at least one line item is required")
	}

	seen := make(map[string]bool, len(req.LineItems))
	for i, item := range req.LineItems {
		if item.TierID == "" {
			problems = append(problems, fmt.Sprintf("line_items[%d]: tier_id is required", i))
		} else if seen[item.TierID] {
			problems = append(problems, fmt.Sprintf("line_items[%d]: tier %s appears more than once", i, item.TierID))
		}
		seen[item.TierID] = true
		if item.Quantity <= 0 {
			problems = append(problems, fmt.Sprintf("line_items[%d]: quantity must be positive", i))
		}
	}

	if len(problems) > 0 {
		return validationError(problems...)
	}
	return nil
}

func purchaseOutcome(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientInventory):
		return "insufficient_inventory"
	case errors.Is(err, ErrPaymentFailed):
		return "failed"
	default:
		return "error"
	}
}
