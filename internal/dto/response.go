package dto

import (
	"time"

	"github.com/Eursukkul/event-ticketing/internal/models"
	"github.com/Eursukkul/event-ticketing/internal/service"
)

type TierResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Capacity  int    `json:"capacity"`
	Available int    `json:"available"`
}

type EventResponse struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	CreatedBy     string         `json:"created_by"`
	MaxAttendees  int            `json:"max_attendees"`
	EnrolledCount int            `json:"enrolled_count"`
	StartsAt      time.Time      `json:"starts_at"`
	EndsAt        time.Time      `json:"ends_at"`
	Tiers         []TierResponse `json:"tiers"`
	CreatedAt     time.Time      `json:"created_at"`
}

type AvailabilityResponse struct {
	EventID string                     `json:"event_id"`
	Tiers   []service.TierAvailability `json:"tiers"`
}

type LineItemResponse struct {
	TierID              string `json:"tier_id"`
	Quantity            int    `json:"quantity"`
	UnitPriceAtPurchase int64  `json:"unit_price_at_purchase"`
	Total               int64  `json:"total"`
}

type TicketResponse struct {
	ID           string              `json:"id"`
	EventID      string              `json:"event_id"`
	TierID       string              `json:"tier_id"`
	OrderID      string              `json:"order_id"`
	Status       models.TicketStatus `json:"status"`
	PurchaseDate time.Time           `json:"purchase_date"`
	UsedAt       *time.Time          `json:"used_at,omitempty"`
	CancelledAt  *time.Time          `json:"cancelled_at,omitempty"`
	Payload      string              `json:"payload,omitempty"`
}

type OrderResponse struct {
	ID               string             `json:"id"`
	EventID          string             `json:"event_id"`
	Status           models.OrderStatus `json:"status"`
	TotalAmount      int64              `json:"total_amount"`
	PaymentMethod    string             `json:"payment_method"`
	PaymentReference string             `json:"payment_reference,omitempty"`
	FailureReason    string             `json:"failure_reason,omitempty"`
	IdempotencyKey   string             `json:"idempotency_key,omitempty"`
	LineItems        []LineItemResponse `json:"line_items"`
	Tickets          []TicketResponse   `json:"tickets"`
	CreatedAt        time.Time          `json:"created_at"`
}

// PaymentFailedResponse is returned with 402 when the order exists but was not paid.
type PaymentFailedResponse struct {
	Message string        `json:"message"`
	Order   OrderResponse `json:"order"`
}

type EnrollmentResponse struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type PointsBalanceResponse struct {
	UserID string `json:"user_id"`
	Points int64  `json:"points"`
}

type PointsPurchaseResponse struct {
	ID               string             `json:"id"`
	Points           int64              `json:"points"`
	Amount           int64              `json:"amount"`
	Status           models.OrderStatus `json:"status"`
	PaymentReference string             `json:"payment_reference,omitempty"`
	FailureReason    string             `json:"failure_reason,omitempty"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

func ToEventResponse(e *models.Event) EventResponse {
	tiers := make([]TierResponse, len(e.Tiers))
	for i, t := range e.Tiers {
		tiers[i] = TierResponse{
			ID:        t.ID,
			Name:      t.Name,
			UnitPrice: t.UnitPrice,
			Capacity:  t.Capacity,
			Available: t.Available(),
		}
	}
	return EventResponse{
		ID:            e.ID,
		Title:         e.Title,
		Description:   e.Description,
		CreatedBy:     e.CreatedBy,
		MaxAttendees:  e.MaxAttendees,
		EnrolledCount: e.EnrolledCount,
		StartsAt:      e.StartsAt,
		EndsAt:        e.EndsAt,
		Tiers:         tiers,
		CreatedAt:     e.CreatedAt,
	}
}

// ToOrderResponse maps an order. payload, when non-nil, renders each ticket's QR payload.
func ToOrderResponse(o *models.PurchaseOrder, payload func(ticketID string) string) OrderResponse {
	lines := make([]LineItemResponse, len(o.LineItems))
	for i, li := range o.LineItems {
		lines[i] = LineItemResponse{
			TierID:              li.TierID,
			Quantity:            li.Quantity,
			UnitPriceAtPurchase: li.UnitPriceAtPurchase,
			Total:               li.Total(),
		}
	}

	tickets := make([]TicketResponse, len(o.Tickets))
	for i := range o.Tickets {
		tickets[i] = ToTicketResponse(&o.Tickets[i], "")
		if payload != nil && o.Tickets[i].Status == models.TicketIssued {
			tickets[i].Payload = payload(o.Tickets[i].ID)
		}
	}

	resp := OrderResponse{
		ID:               o.ID,
		EventID:          o.EventID,
		Status:           o.Status,
		TotalAmount:      o.TotalAmount,
		PaymentMethod:    o.PaymentMethod,
		PaymentReference: o.PaymentReference,
		FailureReason:    o.FailureReason,
		LineItems:        lines,
		Tickets:          tickets,
		CreatedAt:        o.CreatedAt,
	}
	if o.IdempotencyKey != nil {
		resp.IdempotencyKey = *o.IdempotencyKey
	}
	return resp
}

func ToTicketResponse(t *models.Ticket, payload string) TicketResponse {
	return TicketResponse{
		ID:           t.ID,
		EventID:      t.EventID,
		TierID:       t.TierID,
		OrderID:      t.OrderID,
		Status:       t.Status,
		PurchaseDate: t.PurchaseDate,
		UsedAt:       t.UsedAt,
		CancelledAt:  t.CancelledAt,
		Payload:      payload,
	}
}

func ToEnrollmentResponse(e *models.Enrollment) EnrollmentResponse {
	return EnrollmentResponse{
		ID:        e.ID,
		EventID:   e.EventID,
		UserID:    e.UserID,
		CreatedAt: e.CreatedAt,
	}
}

func ToPointsPurchaseResponse(p *models.PointsPurchase) PointsPurchaseResponse {
	return PointsPurchaseResponse{
		ID:               p.ID,
		Points:           p.Points,
		Amount:           p.Amount,
		Status:           p.Status,
		PaymentReference: p.PaymentReference,
		FailureReason:    p.FailureReason,
	}
}
