// Package payment talks to the card processor. Amounts are in minor currency units.
package payment

import "context"

type ChargeRequest struct {
	Amount         int64
	Method         string
	IdempotencyKey string
	Description    string
}

// ChargeResult is the processor's verdict. A declined charge is a result, not an error;
// errors are reserved for transport failures and timeouts.
type ChargeResult struct {
	Success     bool
	ReferenceID string
	Reason      string
}

type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	Refund(ctx context.Context, referenceID string, amount int64) error
}
