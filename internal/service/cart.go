package service

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// CartService owns the Redis-backed cart. The pipeline only needs Clear,
// fired after a committed cart checkout; cart editing lives in the main
// storefront service.
type CartService struct {
	rdb *redis.Client
}

// NewCartService creates a new cart service
func NewCartService(rdb *redis.Client) *CartService {
	return &CartService{rdb: rdb}
}

func cartKey(buyerID int64) string {
	return fmt.Sprintf("cart:%d", buyerID)
}

// Clear removes the buyer's cart. Clearing an absent cart is a no-op.
func (c *CartService) Clear(ctx context.Context, buyerID int64) error {
	if err := c.rdb.Del(ctx, cartKey(buyerID)).Err(); err != nil {
		return fmt.Errorf("failed to clear cart for buyer %d: %w", buyerID, err)
	}
	return nil
}
