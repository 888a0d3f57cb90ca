package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Eursukkul/event-ticketing/internal/payment"
)

// charge calls the gateway with its own deadline. Zero amounts never reach the processor
// and negative amounts are refused outright.
func charge(ctx context.Context, gw payment.Gateway, timeout time.Duration, req payment.ChargeRequest) (*payment.ChargeResult, error) {
	if req.Amount < 0 {
		return nil, fmt.Errorf("%w: negative charge amount %d", ErrValidation, req.Amount)
	}
	if req.Amount == 0 {
		return &payment.ChargeResult{Success: true, ReferenceID: "free"}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return gw.Charge(ctx, req)
}

func gatewayFailureReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "payment timed out"
	case errors.Is(err, payment.ErrUnavailable):
		return payment.ErrUnavailable.Error()
	default:
		return "payment gateway error"
	}
}

func refund(ctx context.Context, gw payment.Gateway, referenceID string, amount int64) error {
	if amount == 0 || referenceID == "" || referenceID == "free" {
		return nil
	}
	return gw.Refund(ctx, referenceID, amount)
}
