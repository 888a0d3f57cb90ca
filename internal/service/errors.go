package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEventNotFound         = errors.New("event not found")
	ErrEventClosed           = errors.New("event has already ended")
	ErrUnknownTier           = errors.New("ticket tier does not belong to this event")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrInsufficientBalance   = errors.New("insufficient points balance")
	ErrUserNotFound          = errors.New("user not found")
	ErrAlreadyEnrolled       = errors.New("user is already enrolled in this event")
	ErrNotEnrolled           = errors.New("user is not enrolled in this event")
	ErrEventFull             = errors.New("event has no free attendee slots")
	ErrPaymentFailed         = errors.New("payment failed")
	ErrPurchaseInProgress    = errors.New("a purchase with this idempotency key is already in progress")
	ErrReservationNotFound   = errors.New("reservation not found")
	ErrReservationNotHeld    = errors.New("reservation is no longer held")
	ErrOrderNotFound         = errors.New("order not found")
	ErrOrderNotCancellable   = errors.New("order cannot be cancelled")
	ErrTicketNotFound        = errors.New("ticket not found")
	ErrInvalidTicketState    = errors.New("ticket is not in a state that allows this operation")
	ErrForbidden             = errors.New("operation not allowed for this user")
	ErrValidation            = errors.New("validation failed")
)

// InsufficientInventoryError names the tier that could not cover the request.
type InsufficientInventoryError struct {
	TierID    string
	Requested int
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("insufficient inventory for tier %s (requested %d)", e.TierID, e.Requested)
}

func (e *InsufficientInventoryError) Unwrap() error {
	return ErrInsufficientInventory
}

// PaymentError carries the gateway's decline reason.
type PaymentError struct {
	OrderID string
	Reason  string
}

func (e *PaymentError) Error() string {
	return "payment failed: " + e.Reason
}

func (e *PaymentError) Unwrap() error {
	return ErrPaymentFailed
}

type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func validationError(problems ...string) error {
	return &ValidationError{Problems: problems}
}
