package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderFailed    OrderStatus = "failed"
	OrderCancelled OrderStatus = "cancelled"
)

type PurchaseOrder struct {
	ID               string      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID           string      `gorm:"type:varchar(64);not null;index;uniqueIndex:idx_order_idempotency,priority:1" json:"user_id"`
	EventID          string      `gorm:"type:varchar(36);not null;index" json:"event_id"`
	IdempotencyKey   *string     `gorm:"type:varchar(128);uniqueIndex:idx_order_idempotency,priority:2" json:"idempotency_key,omitempty"`
	TotalAmount      int64       `gorm:"not null" json:"total_amount"`
	PaymentMethod    string      `gorm:"type:varchar(32)" json:"payment_method"`
	PaymentReference string      `gorm:"type:varchar(128)" json:"payment_reference,omitempty"`
	FailureReason    string      `json:"failure_reason,omitempty"`
	Status           OrderStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`

	LineItems []OrderLineItem `gorm:"foreignKey:OrderID" json:"line_items"`
	Tickets   []Ticket        `gorm:"foreignKey:OrderID" json:"tickets,omitempty"`
}

func (o *PurchaseOrder) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

type OrderLineItem struct {
	ID                  uint   `gorm:"primaryKey" json:"-"`
	OrderID             string `gorm:"type:varchar(36);not null;index" json:"order_id"`
	TierID              string `gorm:"type:varchar(36);not null" json:"tier_id"`
	Quantity            int    `gorm:"not null" json:"quantity"`
	UnitPriceAtPurchase int64  `gorm:"not null" json:"unit_price_at_purchase"`
}

func (li OrderLineItem) Total() int64 {
	return li.UnitPriceAtPurchase * int64(li.Quantity)
}
