package payment

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// MockGateway approves a configurable share of charges after a fixed delay.
type MockGateway struct {
	successRate float64
	latency     time.Duration
}

func NewMockGateway(successRate float64, latency time.Duration) *MockGateway {
	return &MockGateway{successRate: successRate, latency: latency}
}

func (g *MockGateway) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}

	if req.Amount > 0 && rand.Float64() >= g.successRate {
		return &ChargeResult{Success: false, Reason: "card declined"}, nil
	}

	return &ChargeResult{
		Success:     true,
		ReferenceID: "pay_mock_" + uuid.NewString(),
	}, nil
}

func (g *MockGateway) Refund(ctx context.Context, referenceID string, amount int64) error {
	return g.wait(ctx)
}

func (g *MockGateway) wait(ctx context.Context) error {
	if g.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(g.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
