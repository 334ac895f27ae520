package models

import "time"

// JobItem is one ordered line of an OrderJob: a sellable unit and how many
// of it the buyer wants.
type JobItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// OrderJob is the queue message for one "place order" action. The OrderID is
// chosen by the enqueuing caller, never by the worker, so that redeliveries
// of the same job target the same order row.
type OrderJob struct {
	OrderID        string    `json:"order_id"`
	BuyerID        int64     `json:"buyer_id"`
	Items          []JobItem `json:"items"`
	PaymentMethod  string    `json:"payment_method"`
	DirectPurchase bool      `json:"direct_purchase"`
	EnqueuedAt     time.Time `json:"enqueued_at"`
}
