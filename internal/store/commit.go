package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/AnDev002/G-Mall-BE-sub001/internal/checkout"
	"github.com/AnDev002/G-Mall-BE-sub001/internal/models"
)

// CommitOrder runs the authoritative order commit in a single transaction:
//
//  1. Short-circuit if an order with the job's id already exists (a queue
//     redelivery of an already-committed job must not reserve or insert
//     anything twice).
//  2. Re-fetch each unit's current price; a vanished unit aborts.
//  3. Conditionally decrement authoritative stock per line item; zero
//     affected rows aborts, whatever the fast counter believed.
//  4. Compute the total from the re-fetched prices, never from the caller.
//  5. Insert the order row and its lines.
//
// Any abort rolls the whole transaction back; the store never persists a
// partial order.
func (s *Store) CommitOrder(ctx context.Context, job *models.OrderJob) (*checkout.CommitResult, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin commit transaction: %w", err)
	}
	defer tx.Rollback()

	var existing models.Order
	err = tx.GetContext(ctx, &existing, "SELECT * FROM orders WHERE id = $1", job.OrderID)
	if err == nil {
		return &checkout.CommitResult{Total: existing.TotalAmount, Replayed: true}, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("idempotency lookup for order %s: %w", job.OrderID, err)
	}

	var total int64
	lines := make([]models.OrderLine, 0, len(job.Items))
	for _, item := range job.Items {
		var price int64
		err := tx.GetContext(ctx, &price, "SELECT price FROM products WHERE id = $1", item.ProductID)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("product %d: %w", item.ProductID, checkout.ErrUnitNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("fetch price for product %d: %w", item.ProductID, err)
		}

		res, err := tx.ExecContext(ctx,
			"UPDATE stocks SET quantity = quantity - $1, updated_at = NOW() WHERE product_id = $2 AND quantity >= $1",
			item.Quantity, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("decrement stock for product %d: %w", item.ProductID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("decrement stock for product %d: %w", item.ProductID, err)
		}
		if affected == 0 {
			return nil, fmt.Errorf("product %d, quantity %d: %w",
				item.ProductID, item.Quantity, checkout.ErrStockConflict)
		}

		total += price * int64(item.Quantity)
		lines = append(lines, models.OrderLine{
			OrderID:   job.OrderID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: price,
		})
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (id, buyer_id, total_amount, status, payment_method)
		 VALUES ($1, $2, $3, $4, $5)`,
		job.OrderID, job.BuyerID, total, models.OrderStatusPending, job.PaymentMethod)
	if err != nil {
		return nil, fmt.Errorf("insert order %s: %w", job.OrderID, err)
	}

	for _, line := range lines {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_lines (order_id, product_id, quantity, unit_price)
			 VALUES ($1, $2, $3, $4)`,
			line.OrderID, line.ProductID, line.Quantity, line.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("insert line for order %s, product %d: %w",
				job.OrderID, line.ProductID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit order %s: %w", job.OrderID, err)
	}

	return &checkout.CommitResult{Total: total}, nil
}
