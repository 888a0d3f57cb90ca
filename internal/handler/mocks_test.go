package handler

import (
	"context"
	"io"
	"net/http/httptest"

	"github.com/Eursukkul/event-ticketing/internal/middleware"
	"github.com/Eursukkul/event-ticketing/internal/models"
	"github.com/Eursukkul/event-ticketing/internal/service"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// --- Mock EventService ---

type mockEventService struct {
	createFn       func(ctx context.Context, in service.CreateEventInput) (*models.Event, error)
	getFn          func(ctx context.Context, id string) (*models.Event, error)
	listFn         func(ctx context.Context) ([]models.Event, error)
	availabilityFn func(ctx context.Context, id string) ([]service.TierAvailability, error)
}

func (m *mockEventService) CreateEvent(ctx context.Context, in service.CreateEventInput) (*models.Event, error) {
	return m.createFn(ctx, in)
}
func (m *mockEventService) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	return m.getFn(ctx, id)
}
func (m *mockEventService) ListEvents(ctx context.Context) ([]models.Event, error) {
	return m.listFn(ctx)
}
func (m *mockEventService) Availability(ctx context.Context, id string) ([]service.TierAvailability, error) {
	return m.availabilityFn(ctx, id)
}

// --- Mock PurchaseService ---

type mockPurchaseService struct {
	purchaseFn func(ctx context.Context, req service.PurchaseRequest) (*service.PurchaseResult, error)
	getFn      func(ctx context.Context, userID, orderID string) (*models.PurchaseOrder, error)
	listFn     func(ctx context.Context, userID string) ([]models.PurchaseOrder, error)
	cancelFn   func(ctx context.Context, userID, orderID string) (*models.PurchaseOrder, error)
}

func (m *mockPurchaseService) Purchase(ctx context.Context, req service.PurchaseRequest) (*service.PurchaseResult, error) {
	return m.purchaseFn(ctx, req)
}
func (m *mockPurchaseService) GetOrder(ctx context.Context, userID, orderID string) (*models.PurchaseOrder, error) {
	return m.getFn(ctx, userID, orderID)
}
func (m *mockPurchaseService) ListOrders(ctx context.Context, userID string) ([]models.PurchaseOrder, error) {
	return m.listFn(ctx, userID)
}
func (m *mockPurchaseService) CancelOrder(ctx context.Context, userID, orderID string) (*models.PurchaseOrder, error) {
	return m.cancelFn(ctx, userID, orderID)
}
func (m *mockPurchaseService) FailAbandonedOrders(ctx context.Context) (int, error) { return 0, nil }

// --- Mock EnrollmentService ---

type mockEnrollmentService struct {
	enrollFn   func(ctx context.Context, userID, eventID, key string) (*models.Enrollment, error)
	cancelFn   func(ctx context.Context, userID, eventID string) error
	forEventFn func(ctx context.Context, eventID string) ([]models.Enrollment, error)
	forUserFn  func(ctx context.Context, userID string) ([]models.Enrollment, error)
}

func (m *mockEnrollmentService) Enroll(ctx context.Context, userID, eventID, key string) (*models.Enrollment, error) {
	return m.enrollFn(ctx, userID, eventID, key)
}
func (m *mockEnrollmentService) Cancel(ctx context.Context, userID, eventID string) error {
	return m.cancelFn(ctx, userID, eventID)
}
func (m *mockEnrollmentService) ListForEvent(ctx context.Context, eventID string) ([]models.Enrollment, error) {
	return m.forEventFn(ctx, eventID)
}
func (m *mockEnrollmentService) ListForUser(ctx context.Context, userID string) ([]models.Enrollment, error) {
	return m.forUserFn(ctx, userID)
}

// --- Mock TicketService ---

type mockTicketService struct {
	listFn   func(ctx context.Context, userID string) ([]service.TicketView, error)
	redeemFn func(ctx context.Context, payload string) (*models.Ticket, error)
	cancelFn func(ctx context.Context, userID, ticketID string) (*models.Ticket, error)
}

func (m *mockTicketService) Issue(ctx context.Context, tx *gorm.DB, orderID, eventID, tierID, userID string) (*models.Ticket, error) {
	return nil, nil
}
func (m *mockTicketService) Payload(ticketID string) string { return "payload-" + ticketID }
func (m *mockTicketService) ListForUser(ctx context.Context, userID string) ([]service.TicketView, error) {
	return m.listFn(ctx, userID)
}
func (m *mockTicketService) Redeem(ctx context.Context, payload string) (*models.Ticket, error) {
	return m.redeemFn(ctx, payload)
}
func (m *mockTicketService) Cancel(ctx context.Context, userID, ticketID string) (*models.Ticket, error) {
	return m.cancelFn(ctx, userID, ticketID)
}
func (m *mockTicketService) CancelForOrder(ctx context.Context, tx *gorm.DB, orderID string) (int, error) {
	return 0, nil
}
func (m *mockTicketService) ExpirePast(ctx context.Context) (int64, error) { return 0, nil }

// --- Mock PointsService ---

type mockPointsService struct {
	balanceFn func(ctx context.Context, userID string) (int64, error)
	buyFn     func(ctx context.Context, req service.BuyPointsRequest) (*models.PointsPurchase, error)
}

func (m *mockPointsService) EnsureAccount(ctx context.Context, userID string) error { return nil }
func (m *mockPointsService) Balance(ctx context.Context, userID string) (int64, error) {
	return m.balanceFn(ctx, userID)
}
func (m *mockPointsService) Debit(ctx context.Context, tx *gorm.DB, userID string, amount int64) error {
	return nil
}
func (m *mockPointsService) Credit(ctx context.Context, tx *gorm.DB, userID string, amount int64) error {
	return nil
}
func (m *mockPointsService) FailAbandonedPointsPurchases(ctx context.Context) (int, error) {
	return 0, nil
}
func (m *mockPointsService) BuyPoints(ctx context.Context, req service.BuyPointsRequest) (*models.PointsPurchase, error) {
	return m.buyFn(ctx, req)
}

// newContext builds a JSON request context; a non-empty userID is sent in the user header.
func newContext(method, target string, body io.Reader, userID string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if userID != "" {
		req.Header.Set(middleware.HeaderUserID, userID)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}
