package service

import (
	"context"

	"github.com/AnDev002/G-Mall-BE-sub001/internal/broker"
)

// DownstreamEffects wires the pipeline's post-commit hooks to the cart and
// the analytics topic. Both calls are best-effort: the pipeline logs their
// errors and moves on, it never unwinds a committed order because of them.
type DownstreamEffects struct {
	cart   *CartService
	events *broker.EventPublisher
}

// NewDownstreamEffects creates the effect adapter
func NewDownstreamEffects(cart *CartService, events *broker.EventPublisher) *DownstreamEffects {
	return &DownstreamEffects{cart: cart, events: events}
}

// OrderCommitted clears the buyer's cart after a committed cart checkout.
// A direct purchase never consumed the cart, so there is nothing to clear.
func (e *DownstreamEffects) OrderCommitted(ctx context.Context, orderID string, buyerID int64, directPurchase bool) error {
	if directPurchase {
		return nil
	}
	return e.cart.Clear(ctx, buyerID)
}

// PurchaseRecorded emits the purchase analytics event.
func (e *DownstreamEffects) PurchaseRecorded(ctx context.Context, orderID string, totalAmount int64) error {
	return e.events.PublishOrderPurchased(ctx, orderID, totalAmount)
}
