package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/Eursukkul/event-ticketing/internal/models"
	"github.com/Eursukkul/event-ticketing/internal/service"
	"github.com/Eursukkul/event-ticketing/internal/ticketcode"
	amqp "github.com/rabbitmq/amqp091-go"
)

type Redeemer interface {
	Redeem(ctx context.Context, payload string) (*models.Ticket, error)
}

// ScanMessage is what gate scanners publish under ticket.scanned.
type ScanMessage struct {
	Payload string `json:"payload"`
	GateID  string `json:"gate_id,omitempty"`
}

type ScanResult struct {
	TicketID string    `json:"ticket_id,omitempty"`
	GateID   string    `json:"gate_id,omitempty"`
	Accepted bool      `json:"accepted"`
	Reason   string    `json:"reason,omitempty"`
	At       time.Time `json:"at"`
}

// ScanConsumer redeems scanned tickets and reports each outcome as ticket.redeemed
// or ticket.rejected.
type ScanConsumer struct {
	tickets   Redeemer
	publisher service.Publisher
}

func NewScanConsumer(tickets Redeemer, publisher service.Publisher) *ScanConsumer {
	return &ScanConsumer{tickets: tickets, publisher: publisher}
}

// Run processes deliveries until ctx is cancelled or the channel closes.
func (sc *ScanConsumer) Run(ctx context.Context, msgs <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				log.Println("[ScanConsumer] channel closed, stopping consumer")
				return nil
			}
			sc.handleMessage(ctx, msg)
		}
	}
}

func (sc *ScanConsumer) handleMessage(ctx context.Context, msg amqp.Delivery) {
	var scan ScanMessage
	if err := json.Unmarshal(msg.Body, &scan); err != nil || scan.Payload == "" {
		log.Printf("[ScanConsumer] dropping malformed message %s", msg.MessageId)
		msg.Nack(false, false)
		return
	}

	ticket, err := sc.tickets.Redeem(ctx, scan.Payload)
	switch {
	case err == nil:
		log.Printf("[ScanConsumer] redeemed ticket %s at gate %q", ticket.ID, scan.GateID)
		sc.report("ticket.redeemed", ScanResult{TicketID: ticket.ID, GateID: scan.GateID, Accepted: true})
		msg.Ack(false)

	case isRejection(err):
		log.Printf("[ScanConsumer] rejected scan at gate %q: %v", scan.GateID, err)
		sc.report("ticket.rejected", ScanResult{GateID: scan.GateID, Reason: err.Error()})
		msg.Ack(false)

	default:
		log.Printf("[ScanConsumer] redeem failed, requeueing: %v", err)
		msg.Nack(false, true)
	}
}

func (sc *ScanConsumer) report(routingKey string, res ScanResult) {
	if sc.publisher == nil {
		return
	}
	res.At = time.Now().UTC()
	if err := sc.publisher.Publish(routingKey, res); err != nil {
		log.Printf("[ScanConsumer] publish %s: %v", routingKey, err)
	}
}

// isRejection reports whether retrying the scan can never succeed.
func isRejection(err error) bool {
	return errors.Is(err, ticketcode.ErrInvalidPayload) ||
		errors.Is(err, service.ErrTicketNotFound) ||
		errors.Is(err, service.ErrInvalidTicketState) ||
		errors.Is(err, service.ErrEventClosed)
}
