package models

import "time"

// Event types
const (
	EventTypeOrderPlaced    = "ORDER_PLACED"
	EventTypeOrderPurchased = "ORDER_PURCHASED"
	EventTypeOrderFailed    = "ORDER_FAILED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPlacedEvent published when a checkout request is accepted into the queue
type OrderPlacedEvent struct {
	BaseEvent
	OrderID string `json:"order_id"`
	BuyerID int64  `json:"buyer_id"`
}

// OrderPurchasedEvent published after an order has been durably committed.
// This is the purchase analytics signal; it never influences stock.
type OrderPurchasedEvent struct {
	BaseEvent
	OrderID     string `json:"order_id"`
	TotalAmount int64  `json:"total_amount"`
}

// OrderFailedEvent published when a job exhausts its retry budget and is
// moved to the dead-letter topic.
type OrderFailedEvent struct {
	BaseEvent
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}
