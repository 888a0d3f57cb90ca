package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Eursukkul/event-ticketing/internal/models"
	"github.com/Eursukkul/event-ticketing/internal/payment"
	"github.com/Eursukkul/event-ticketing/internal/repository"
	"github.com/Eursukkul/event-ticketing/internal/ticketcode"
	"github.com/Eursukkul/event-ticketing/pkg/database"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory database. A single connection keeps every
// goroutine on the same database, which also means transactions here run one after
// another: the concurrent tests check that racing callers end in a consistent state,
// not that statements interleave. Real interleaving is covered by the Postgres suite
// in postgres_integration_test.go (go test -tags integration).
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

type fakeGateway struct {
	mu       sync.Mutex
	decline  string
	err      error
	block    bool
	onCharge func()
	charges  []payment.ChargeRequest
	refunds  []string
}

func (g *fakeGateway) Charge(ctx context.Context, req payment.ChargeRequest) (*payment.ChargeResult, error) {
	g.mu.Lock()
	g.charges = append(g.charges, req)
	decline, err, block, hook := g.decline, g.err, g.block, g.onCharge
	g.mu.Unlock()

	if hook != nil {
		hook()
	}
	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	if decline != "" {
		return &payment.ChargeResult{Success: false, Reason: decline}, nil
	}
	return &payment.ChargeResult{Success: true, ReferenceID: "ref-" + req.IdempotencyKey}, nil
}

func (g *fakeGateway) Refund(ctx context.Context, referenceID string, amount int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refunds = append(g.refunds, referenceID)
	return nil
}

func (g *fakeGateway) chargeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.charges)
}

func (g *fakeGateway) refundCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.refunds)
}

type fakePublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *fakePublisher) Publish(routingKey string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, routingKey)
	return nil
}

func (p *fakePublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

type testEnv struct {
	db          *gorm.DB
	ledger      *inventoryLedger
	points      PointsService
	enrollments EnrollmentService
	tickets     TicketService
	events      EventService
	purchases   PurchaseService
	gateway     *fakeGateway
	publisher   *fakePublisher
	signer      *ticketcode.Signer
	orderRepo   repository.OrderRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithDB(t, newTestDB(t))
}

func newTestEnvWithDB(t *testing.T, db *gorm.DB) *testEnv {
	t.Helper()

	eventRepo := repository.NewEventRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	ticketRepo := repository.NewTicketRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	userRepo := repository.NewUserRepository(db)

	gw := &fakeGateway{}
	pub := &fakePublisher{}
	signer := ticketcode.NewSigner("test-secret")

	ledger := NewInventoryLedger(inventoryRepo, eventRepo, 45*time.Second).(*inventoryLedger)
	points := NewPointsService(userRepo, gw, 100, time.Second)
	tickets := NewTicketService(ticketRepo, eventRepo, ledger, signer, true)

	return &testEnv{
		db:          db,
		ledger:      ledger,
		points:      points,
		enrollments: NewEnrollmentService(enrollmentRepo, eventRepo),
		tickets:     tickets,
		events:      NewEventService(eventRepo, points, ledger, pub, 10),
		purchases: NewPurchaseService(orderRepo, eventRepo, ledger, tickets, gw, nil, pub, PurchaseConfig{
			PaymentTimeout: time.Second,
			ReservationTTL: 45 * time.Second,
			LockTTL:        time.Minute,
		}),
		gateway:   gw,
		publisher: pub,
		signer:    signer,
		orderRepo: orderRepo,
	}
}

func (e *testEnv) seedUser(t *testing.T, id string, points int64) {
	t.Helper()
	require.NoError(t, e.db.Create(&models.User{ID: id, Points: points}).Error)
}

func (e *testEnv) seedEvent(t *testing.T, maxAttendees int, tiers ...models.TicketTier) *models.Event {
	t.Helper()
	now := time.Now().UTC()
	event := &models.Event{
		Title:        "Concert",
		CreatedBy:    "organizer",
		MaxAttendees: maxAttendees,
		StartsAt:     now.Add(24 * time.Hour),
		EndsAt:       now.Add(27 * time.Hour),
	}
	for i := range tiers {
		tiers[i].Position = i
	}
	event.Tiers = tiers
	require.NoError(t, e.db.Create(event).Error)
	return event
}

func (e *testEnv) tier(t *testing.T, id string) models.TicketTier {
	t.Helper()
	var tier models.TicketTier
	require.NoError(t, e.db.First(&tier, "id = ?", id).Error)
	return tier
}

func (e *testEnv) balance(t *testing.T, userID string) int64 {
	t.Helper()
	var user models.User
	require.NoError(t, e.db.First(&user, "id = ?", userID).Error)
	return user.Points
}

func (e *testEnv) count(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	q := e.db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}
