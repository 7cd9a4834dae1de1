package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

type OrderCreatedEvent struct {
	OrderID       string          `json:"orderId"`
	CustomerID    string          `json:"customerId"`
	SellerIDs     []string        `json:"sellerIds"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	IsPaid        bool            `json:"isPaid"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type OrderStatusChangedEvent struct {
	OrderID    string      `json:"orderId"`
	SellerID   string      `json:"sellerId,omitempty"`
	ItemIDs    []string    `json:"itemIds,omitempty"`
	ItemStatus OrderStatus `json:"itemStatus,omitempty"`
	Status     OrderStatus `json:"status"`
	ChangedAt  time.Time   `json:"changedAt"`
}

// EventEnvelope is the payload of an event.publish task and the body written
// to the event stream.
type EventEnvelope struct {
	Type    string    `json:"type"`
	OrderID string    `json:"orderId"`
	Data    any       `json:"data"`
	At      time.Time `json:"at"`
}
