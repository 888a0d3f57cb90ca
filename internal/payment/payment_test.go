package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Eursukkul/event-ticketing/pkg/circuitbreaker"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockGateway_AlwaysApproves(t *testing.T) {
	g := NewMockGateway(1, 0)

	res, err := g.Charge(context.Background(), ChargeRequest{Amount: 7000, Method: "card"})

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.ReferenceID)
}

func TestMockGateway_AlwaysDeclines(t *testing.T) {
	g := NewMockGateway(0, 0)

	res, err := g.Charge(context.Background(), ChargeRequest{Amount: 7000, Method: "card"})

	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "card declined", res.Reason)
}

func TestMockGateway_RespectsDeadline(t *testing.T) {
	g := NewMockGateway(1, time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := g.Charge(ctx, ChargeRequest{Amount: 100})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHTTPGateway_Charge(t *testing.T) {
	var got chargeBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/charges", r.URL.Path)
		assert.Equal(t, "order-1", r.Header.Get("Idempotency-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(chargeReply{Status: "succeeded", ReferenceID: "ch_123"})
	}))
	defer srv.Close()

	g := NewHTTPGateway(srv.URL+"/", "USD", srv.Client())
	res, err := g.Charge(context.Background(), ChargeRequest{Amount: 7050, Method: "card", IdempotencyKey: "order-1"})

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "ch_123", res.ReferenceID)
	assert.True(t, decimal.RequireFromString("70.50").Equal(got.Amount))
	assert.Equal(t, "USD", got.Currency)
}

func TestHTTPGateway_Declined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(chargeReply{Status: "declined", Reason: "insufficient funds"})
	}))
	defer srv.Close()

	g := NewHTTPGateway(srv.URL, "USD", srv.Client())
	res, err := g.Charge(context.Background(), ChargeRequest{Amount: 100, Method: "card"})

	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "insufficient funds", res.Reason)
}

func TestHTTPGateway_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	g := NewHTTPGateway(srv.URL, "USD", srv.Client())
	_, err := g.Charge(context.Background(), ChargeRequest{Amount: 100, Method: "card"})

	assert.ErrorContains(t, err, "502")
}

func TestHTTPGateway_Refund(t *testing.T) {
	var got refundBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/refunds", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	g := NewHTTPGateway(srv.URL, "USD", srv.Client())
	require.NoError(t, g.Refund(context.Background(), "ch_123", 1000))

	assert.Equal(t, "ch_123", got.ReferenceID)
	assert.True(t, decimal.NewFromInt(10).Equal(got.Amount))
}

type failingGateway struct {
	calls int
}

func (f *failingGateway) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	f.calls++
	return nil, errors.New("connection reset")
}

func (f *failingGateway) Refund(ctx context.Context, referenceID string, amount int64) error {
	return nil
}

func TestWithBreaker_OpensAfterFailures(t *testing.T) {
	inner := &failingGateway{}
	cb := circuitbreaker.New("payment-test", circuitbreaker.Settings{
		MinRequests:  2,
		MaxHalfOpen:  1,
		Interval:     time.Minute,
		OpenTimeout:  time.Minute,
		FailureRatio: 0.5,
	})
	g := WithBreaker(inner, cb)

	for i := 0; i < 2; i++ {
		_, err := g.Charge(context.Background(), ChargeRequest{Amount: 100})
		assert.ErrorContains(t, err, "connection reset")
	}

	_, err := g.Charge(context.Background(), ChargeRequest{Amount: 100})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 2, inner.calls)
}

func TestWithBreaker_DeclinesDoNotTrip(t *testing.T) {
	cb := circuitbreaker.New("payment-test", circuitbreaker.Settings{
		MinRequests:  1,
		MaxHalfOpen:  1,
		Interval:     time.Minute,
		OpenTimeout:  time.Minute,
		FailureRatio: 0.1,
	})
	g := WithBreaker(NewMockGateway(0, 0), cb)

	for i := 0; i < 5; i++ {
		res, err := g.Charge(context.Background(), ChargeRequest{Amount: 100})
		require.NoError(t, err)
		assert.False(t, res.Success)
	}
	assert.Equal(t, circuitbreaker.StateClosed, cb.State())
}
