package dto

import "time"

type TierRequest struct {
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Capacity  int    `json:"capacity"`
}

type CreateEventRequest struct {
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	MaxAttendees int           `json:"max_attendees"`
	StartsAt     time.Time     `json:"starts_at"`
	EndsAt       time.Time     `json:"ends_at"`
	Tiers        []TierRequest `json:"tiers"`
}

type LineItemRequest struct {
	TierID   string `json:"tier_id"`
	Quantity int    `json:"quantity"`
}

type PurchaseRequest struct {
	EventID        string            `json:"event_id"`
	LineItems      []LineItemRequest `json:"line_items"`
	PaymentMethod  string            `json:"payment_method"`
	IdempotencyKey string            `json:"idempotency_key"`
}

type EnrollRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
}

type RedeemTicketRequest struct {
	Payload string `json:"payload"`
}

type BuyPointsRequest struct {
	Points         int64  `json:"points"`
	PaymentMethod  string `json:"payment_method"`
	IdempotencyKey string `json:"idempotency_key"`
}
