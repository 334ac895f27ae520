package stockcounter

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/reserve.lua
var reserveScript string

//go:embed scripts/release.lua
var releaseScript string

// Counter is the fast-path stock admission gate backed by Redis. Every
// mutation goes through a Lua script so the check-and-decrement is a single
// indivisible operation relative to all other callers.
type Counter struct {
	rdb           *redis.Client
	reserveScript *redis.Script
	releaseScript *redis.Script
}

// NewCounter creates a stock counter on top of an existing Redis client.
func NewCounter(rdb *redis.Client) *Counter {
	return &Counter{
		rdb:           rdb,
		reserveScript: redis.NewScript(reserveScript),
		releaseScript: redis.NewScript(releaseScript),
	}
}

// Connect dials Redis and returns a client after a ping round trip.
func Connect(addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return rdb, nil
}

func counterKey(productID int64) string {
	return fmt.Sprintf("stock:%d", productID)
}

// Reserve atomically decrements the counter for productID by quantity if the
// counter holds at least that much. Returns false when stock is insufficient
// or the counter was never initialized (missing key fails closed).
func (c *Counter) Reserve(ctx context.Context, productID int64, quantity int) (bool, error) {
	result, err := c.reserveScript.Run(ctx, c.rdb, []string{counterKey(productID)}, quantity).Result()
	if err != nil {
		return false, fmt.Errorf("reserve script failed: %w", err)
	}

	granted, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected reserve script result type %T", result)
	}

	return granted == 1, nil
}

// Release unconditionally returns quantity to the counter for productID.
// Used only as compensation for a reservation the caller made.
func (c *Counter) Release(ctx context.Context, productID int64, quantity int) error {
	if err := c.releaseScript.Run(ctx, c.rdb, []string{counterKey(productID)}, quantity).Err(); err != nil {
		return fmt.Errorf("release script failed: %w", err)
	}
	return nil
}

// Set overwrites the counter for productID. Only the catalog resync path
// uses this; the pipeline itself never writes counters outside Reserve and
// Release.
func (c *Counter) Set(ctx context.Context, productID int64, quantity int) error {
	return c.rdb.Set(ctx, counterKey(productID), quantity, 0).Err()
}

// Get reads the current counter value. A missing key reads as 0, matching
// what Reserve would decide for it.
func (c *Counter) Get(ctx context.Context, productID int64) (int, error) {
	val, err := c.rdb.Get(ctx, counterKey(productID)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	quantity, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("counter %s holds non-numeric value %q", counterKey(productID), val)
	}
	return quantity, nil
}
