package service

import (
	"context"
	"fmt"

	"github.com/AnDev002/G-Mall-BE-sub001/internal/broker"
	"github.com/AnDev002/G-Mall-BE-sub001/internal/checkout"
	"github.com/AnDev002/G-Mall-BE-sub001/internal/models"
	"github.com/AnDev002/G-Mall-BE-sub001/internal/store"
	"github.com/AnDev002/G-Mall-BE-sub001/internal/util"

	"go.uber.org/zap"
)

// CheckoutService is the intake side of the pipeline: it validates the
// request shape, pre-generates the order id and hands the job to the queue.
// The buyer gets an immediate "processing" answer; the commit happens in the
// worker pool.
type CheckoutService struct {
	store  *store.Store
	queue  *broker.IntakeQueue
	events *broker.EventPublisher
	logger *zap.Logger
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(store *store.Store, queue *broker.IntakeQueue, events *broker.EventPublisher) *CheckoutService {
	return &CheckoutService{
		store:  store,
		queue:  queue,
		events: events,
		logger: util.GetLogger(),
	}
}

// PlaceOrderRequest represents a checkout request
type PlaceOrderRequest struct {
	BuyerID        int64              `json:"buyer_id" binding:"required"`
	Items          []OrderItemRequest `json:"items" binding:"required,min=1"`
	PaymentMethod  string             `json:"payment_method" binding:"required"`
	DirectPurchase bool               `json:"direct_purchase"`
}

// OrderItemRequest represents an item in a checkout request
type OrderItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

// PlaceOrderResponse represents the response after a checkout is enqueued
type PlaceOrderResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// PlaceOrder validates the request, assigns the order id and enqueues the
// job. It never touches stock itself.
func (s *CheckoutService) PlaceOrder(ctx context.Context, req *PlaceOrderRequest) (*PlaceOrderResponse, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.PlaceOrder")
	defer span.End()

	items, err := s.resolveItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	job := broker.NewOrderJob(req.BuyerID, items, req.PaymentMethod, req.DirectPurchase)

	if err := s.queue.Enqueue(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to enqueue order job: %w", err)
	}

	s.logger.Info("Checkout accepted",
		zap.String("order_id", job.OrderID),
		zap.Int64("buyer_id", job.BuyerID),
		zap.Int("items", len(job.Items)))

	if err := s.events.PublishOrderPlaced(ctx, job.OrderID, job.BuyerID); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
	}

	return &PlaceOrderResponse{
		OrderID: job.OrderID,
		Status:  "PROCESSING",
	}, nil
}

// resolveItems checks quantities and that every referenced product exists
// before anything is enqueued. Stock is not checked here: that is the
// pipeline's job.
func (s *CheckoutService) resolveItems(ctx context.Context, reqItems []OrderItemRequest) ([]models.JobItem, error) {
	productIDs := make([]int64, len(reqItems))
	for i, item := range reqItems {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("product %d, quantity %d: %w",
				item.ProductID, item.Quantity, checkout.ErrInvalidQuantity)
		}
		productIDs[i] = item.ProductID
	}

	products, err := s.store.GetProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve products: %w", err)
	}

	known := make(map[int64]struct{}, len(products))
	for _, p := range products {
		known[p.ID] = struct{}{}
	}

	items := make([]models.JobItem, 0, len(reqItems))
	for _, item := range reqItems {
		if _, ok := known[item.ProductID]; !ok {
			return nil, fmt.Errorf("product %d: %w", item.ProductID, checkout.ErrUnitNotFound)
		}
		items = append(items, models.JobItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	return items, nil
}

// GetOrder retrieves an order and its lines
func (s *CheckoutService) GetOrder(ctx context.Context, orderID string) (*models.Order, []models.OrderLine, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	lines, err := s.store.GetOrderLines(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	return order, lines, nil
}

// GetBuyerOrders retrieves a buyer's orders, newest first
func (s *CheckoutService) GetBuyerOrders(ctx context.Context, buyerID int64) ([]models.Order, error) {
	return s.store.GetOrdersByBuyerID(ctx, buyerID)
}
