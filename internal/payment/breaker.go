package payment

import (
	"context"
	"errors"
	"time"

	"github.com/Eursukkul/event-ticketing/internal/metrics"
	"github.com/Eursukkul/event-ticketing/pkg/circuitbreaker"
)

// ErrUnavailable is returned without calling the processor while the breaker is open.
var ErrUnavailable = errors.New("payment gateway unavailable")

type guardedGateway struct {
	next Gateway
	cb   *circuitbreaker.CircuitBreaker
}

// WithBreaker wraps g so that repeated transport failures stop traffic to the processor
// for a while. Declines do not count as failures.
func WithBreaker(g Gateway, cb *circuitbreaker.CircuitBreaker) Gateway {
	return &guardedGateway{next: g, cb: cb}
}

func (g *guardedGateway) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	var result *ChargeResult
	start := time.Now()

	err := g.cb.Execute(func() error {
		var err error
		result, err = g.next.Charge(ctx, req)
		return err
	}, countsAsFailure)

	switch {
	case errors.Is(err, circuitbreaker.ErrOpen), errors.Is(err, circuitbreaker.ErrTooManyRequests):
		metrics.ObserveGateway("charge", "rejected", time.Since(start))
		return nil, ErrUnavailable
	case err != nil:
		metrics.ObserveGateway("charge", "error", time.Since(start))
		return nil, err
	case !result.Success:
		metrics.ObserveGateway("charge", "declined", time.Since(start))
	default:
		metrics.ObserveGateway("charge", "succeeded", time.Since(start))
	}
	return result, nil
}

// Refund is never short-circuited by the breaker.
func (g *guardedGateway) Refund(ctx context.Context, referenceID string, amount int64) error {
	start := time.Now()
	err := g.next.Refund(ctx, referenceID, amount)
	outcome := "succeeded"
	if err != nil {
		outcome = "error"
	}
	metrics.ObserveGateway("refund", outcome, time.Since(start))
	return err
}

// A caller giving up is not the processor's fault.
func countsAsFailure(err error) bool {
	return !errors.Is(err, context.Canceled)
}
