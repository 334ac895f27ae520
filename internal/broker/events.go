package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/AnDev002/G-Mall-BE-sub001/internal/models"

	"github.com/google/uuid"
)

// EventPublisher publishes analytics events to their own topic. These events
// are observational: nothing in the pipeline reads them back.
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishOrderPlaced publishes an OrderPlaced event
func (ep *EventPublisher) PublishOrderPlaced(ctx context.Context, orderID string, buyerID int64) error {
	event := &models.OrderPlacedEvent{
		BaseEvent: newBaseEvent(models.EventTypeOrderPlaced),
		OrderID:   orderID,
		BuyerID:   buyerID,
	}
	return ep.producer.PublishJSON(ctx, eventKey(orderID), event)
}

// PublishOrderPurchased publishes an OrderPurchased event after a durable commit
func (ep *EventPublisher) PublishOrderPurchased(ctx context.Context, orderID string, totalAmount int64) error {
	event := &models.OrderPurchasedEvent{
		BaseEvent:   newBaseEvent(models.EventTypeOrderPurchased),
		OrderID:     orderID,
		TotalAmount: totalAmount,
	}
	return ep.producer.PublishJSON(ctx, eventKey(orderID), event)
}

// PublishOrderFailed publishes an OrderFailed event when a job dead-letters
func (ep *EventPublisher) PublishOrderFailed(ctx context.Context, orderID, reason string) error {
	event := &models.OrderFailedEvent{
		BaseEvent: newBaseEvent(models.EventTypeOrderFailed),
		OrderID:   orderID,
		Reason:    reason,
	}
	return ep.producer.PublishJSON(ctx, eventKey(orderID), event)
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

func eventKey(orderID string) string {
	return fmt.Sprintf("order-%s", orderID)
}
