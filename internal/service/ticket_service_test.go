package service

import (
	"context"
	"testing"
	"time"

	"github.com/Eursukkul/event-ticketing/internal/models"
	"github.com/Eursukkul/event-ticketing/internal/repository"
	"github.com/Eursukkul/event-ticketing/internal/ticketcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issueTicket(t *testing.T, env *testEnv, event *models.Event, userID string) *models.Ticket {
	t.Helper()
	ticket, err := env.tickets.Issue(context.Background(), nil, "order-1", event.ID, event.Tiers[0].ID, userID)
	require.NoError(t, err)
	return ticket
}

func TestRedeem(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	event := env.seedEvent(t, 0, models.TicketTier{Name: "General", Capacity: 5, Sold: 1})
	ticket := issueTicket(t, env, event, "alice")

	used, err := env.tickets.Redeem(ctx, env.tickets.Payload(ticket.ID))
	require.NoError(t, err)
	assert.Equal(t, models.TicketUsed, used.Status)
	assert.NotNil(t, used.UsedAt)

	_, err = env.tickets.Redeem(ctx, env.tickets.Payload(ticket.ID))
	assert.ErrorIs(t, err, ErrInvalidTicketState)
}

func TestRedeem_EventEnded(t *testing.T) {
	env := newTestEnv(t)
	event := env.seedEvent(t, 0, models.TicketTier{Name: "General", Capacity: 5, Sold: 1})
	ticket := issueTicket(t, env, event, "alice")

	ended := time.Now().UTC().Add(-time.Minute)
	require.NoError(t, env.db.Model(&models.Event{}).Where("id = ?", event.ID).
		Updates(map[string]any{"starts_at": ended.Add(-time.Hour), "ends_at": ended}).Error)

	_, err := env.tickets.Redeem(context.Background(), env.tickets.Payload(ticket.ID))
	assert.ErrorIs(t, err, ErrEventClosed)

	var got models.Ticket
	require.NoError(t, env.db.First(&got, "id = ?", ticket.ID).Error)
	assert.Equal(t, models.TicketIssued, got.Status)
	assert.Nil(t, got.UsedAt)
}

func TestRedeem_RejectsForgedPayload(t *testing.T) {
	env := newTestEnv(t)
	event := env.seedEvent(t, 0, models.TicketTier{Name: "General", Capacity: 5, Sold: 1})
	ticket := issueTicket(t, env, event, "alice")

	forged := ticketcode.NewSigner("other-secret").Payload(ticket.ID)
	_, err := env.tickets.Redeem(context.Background(), forged)

	assert.ErrorIs(t, err, ticketcode.ErrInvalidPayload)
}

func TestRedeem_UnknownTicket(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.tickets.Redeem(context.Background(), env.signer.Payload("5f0c3f7e-8d7a-4c53-9b8a-0c6a1b2c3d4e"))

	assert.ErrorIs(t, err, ErrTicketNotFound)
}

func TestCancelTicket_ReturnsCapacity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	event := env.seedEvent(t, 0, models.TicketTier{Name: "General", Capacity: 5, Sold: 1})
	ticket := issueTicket(t, env, event, "alice")

	_, err := env.tickets.Cancel(ctx, "mallory", ticket.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	cancelled, err := env.tickets.Cancel(ctx, "alice", ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketCancelled, cancelled.Status)
	assert.Equal(t, 0, env.tier(t, event.Tiers[0].ID).Sold)

	_, err = env.tickets.Cancel(ctx, "alice", ticket.ID)
	assert.ErrorIs(t, err, ErrInvalidTicketState)

	_, err = env.tickets.Redeem(ctx, env.tickets.Payload(ticket.ID))
	assert.ErrorIs(t, err, ErrInvalidTicketState)
}

func TestCancelTicket_WithoutResaleKeepsCapacitySold(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	event := env.seedEvent(t, 0, models.TicketTier{Name: "General", Capacity: 5, Sold: 1})
	ticket := issueTicket(t, env, event, "alice")

	tickets := NewTicketService(repository.NewTicketRepository(env.db), repository.NewEventRepository(env.db), env.ledger, env.signer, false)
	_, err := tickets.Cancel(ctx, "alice", ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, env.tier(t, event.Tiers[0].ID).Sold)
}

func TestExpirePast(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	event := env.seedEvent(t, 0, models.TicketTier{Name: "General", Capacity: 5, Sold: 2})
	live := issueTicket(t, env, event, "alice")

	past := env.seedEvent(t, 0, models.TicketTier{Name: "General", Capacity: 5, Sold: 1})
	ended := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, env.db.Model(&models.Event{}).Where("id = ?", past.ID).
		Updates(map[string]any{"starts_at": ended.Add(-time.Hour), "ends_at": ended}).Error)
	stale := issueTicket(t, env, past, "alice")

	n, err := env.tickets.ExpirePast(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var got models.Ticket
	require.NoError(t, env.db.First(&got, "id = ?", stale.ID).Error)
	assert.Equal(t, models.TicketExpired, got.Status)
	require.NoError(t, env.db.First(&got, "id = ?", live.ID).Error)
	assert.Equal(t, models.TicketIssued, got.Status)
}

func TestListForUser_IncludesPayload(t *testing.T) {
	env := newTestEnv(t)
	event := env.seedEvent(t, 0, models.TicketTier{Name: "General", Capacity: 5, Sold: 1})
	ticket := issueTicket(t, env, event, "alice")

	views, err := env.tickets.ListForUser(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, views, 1)

	id, err := env.signer.Parse(views[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, id)
}
