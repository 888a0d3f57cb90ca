//go:build integration

package service

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/Eursukkul/event-ticketing/internal/models"
	"github.com/Eursukkul/event-ticketing/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// newPostgresEnv runs the services against a real Postgres so that row locks and
// CHECK constraints are exercised under true parallelism.
func newPostgresEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		getEnv("TEST_DB_HOST", "localhost"),
		getEnv("TEST_DB_PORT", "5434"),
		getEnv("TEST_DB_USER", "postgres"),
		getEnv("TEST_DB_PASSWORD", "postgres"),
		getEnv("TEST_DB_NAME", "ticketing_test_db"),
	)

	db, err := gorm.Open(postgres.Open(dsn), database.Config())
	if err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}
	require.NoError(t, database.Migrate(db))
	require.NoError(t, db.Exec(`TRUNCATE users, points_purchases, events, ticket_tiers, reservations,
		purchase_orders, order_line_items, tickets, enrollments`).Error)

	return newTestEnvWithDB(t, db)
}

func TestPostgres_ConcurrentPurchasesNeverOversell(t *testing.T) {
	env := newPostgresEnv(t)
	event, general, vip := seedConcert(t, env, 20, 1)

	const buyers = 60
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		paid    int
		vipPaid int
	)
	wg.Add(buyers)
	for i := 0; i < buyers; i++ {
		go func(i int) {
			defer wg.Done()
			items := []LineItemRequest{{TierID: general, Quantity: 1}}
			if i%10 == 0 {
				items = []LineItemRequest{{TierID: vip, Quantity: 1}}
			}
			_, err := env.purchases.Purchase(context.Background(), PurchaseRequest{
				UserID:         fmt.Sprintf("user-%03d", i),
				EventID:        event.ID,
				LineItems:      items,
				PaymentMethod:  "card",
				IdempotencyKey: fmt.Sprintf("key-%03d", i),
			})
			if err != nil {
				assert.ErrorIs(t, err, ErrInsufficientInventory)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if i%10 == 0 {
				vipPaid++
			} else {
				paid++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, paid)
	assert.Equal(t, 1, vipPaid)
	assert.Equal(t, 20, env.tier(t, general).Sold)
	assert.Equal(t, 0, env.tier(t, general).Held)
	assert.EqualValues(t, 21, env.count(t, &models.Ticket{}, ""))
}

func TestPostgres_ConcurrentEnrollmentRespectsLimit(t *testing.T) {
	env := newPostgresEnv(t)
	event := env.seedEvent(t, 10)

	var wg sync.WaitGroup
	wg.Add(30)
	for i := 0; i < 30; i++ {
		go func(i int) {
			defer wg.Done()
			_, _ = env.enrollments.Enroll(context.Background(), fmt.Sprintf("user-%d", i), event.ID, "")
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 10, env.count(t, &models.Enrollment{}, "event_id = ?", event.ID))
	var reloaded models.Event
	require.NoError(t, env.db.First(&reloaded, "id = ?", event.ID).Error)
	assert.Equal(t, 10, reloaded.EnrolledCount)
}

func TestPostgres_CheckConstraintRejectsOversell(t *testing.T) {
	env := newPostgresEnv(t)
	_, general, _ := seedConcert(t, env, 2, 1)

	err := env.db.Model(&models.TicketTier{}).Where("id = ?", general).Update("sold", 3).Error
	assert.Error(t, err)
	assert.Equal(t, 0, env.tier(t, general).Sold)
}

func TestPostgres_ConcurrentSameUserEnrollsOnce(t *testing.T) {
	env := newPostgresEnv(t)
	event := env.seedEvent(t, 50)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	wg.Add(20)
	for i := 0; i < 20; i++ {
		go func() {
			defer wg.Done()
			_, err := env.enrollments.Enroll(context.Background(), "same-user", event.ID, "")
			if err != nil {
				assert.ErrorIs(t, err, ErrAlreadyEnrolled)
				return
			}
			mu.Lock()
			success++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	var reloaded models.Event
	require.NoError(t, env.db.First(&reloaded, "id = ?", event.ID).Error)
	assert.Equal(t, 1, reloaded.EnrolledCount)
}

func TestPostgres_ConcurrentReservesNeverOversell(t *testing.T) {
	env := newPostgresEnv(t)
	_, general, _ := seedConcert(t, env, 15, 0)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		held int
	)
	wg.Add(40)
	for i := 0; i < 40; i++ {
		go func(i int) {
			defer wg.Done()
			_, err := env.ledger.Reserve(context.Background(), fmt.Sprintf("order-%d", i), general, 1)
			if err != nil {
				assert.ErrorIs(t, err, ErrInsufficientInventory)
				return
			}
			mu.Lock()
			held++
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 15, held)
	assert.Equal(t, 15, env.tier(t, general).Held)
}
