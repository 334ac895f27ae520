package stockcounter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterKey(t *testing.T) {
	assert.Equal(t, "stock:42", counterKey(42))
	assert.Equal(t, "stock:0", counterKey(0))
}

func TestReserveRelease(t *testing.T) {
	// Integration test - requires a running Redis.
	t.Skip("Integration test - requires Redis")

	rdb, err := Connect("localhost:6379", "", 0)
	require.NoError(t, err)
	defer rdb.Close()

	counter := NewCounter(rdb)
	ctx := context.Background()

	require.NoError(t, counter.Set(ctx, 9001, 3))

	ok, err := counter.Reserve(ctx, 9001, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	// Only 1 left, reserving 2 more must be denied and leave the counter alone.
	ok, err = counter.Reserve(ctx, 9001, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	remaining, err := counter.Get(ctx, 9001)
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)

	require.NoError(t, counter.Release(ctx, 9001, 2))

	remaining, err = counter.Get(ctx, 9001)
	require.NoError(t, err)
	assert.Equal(t, 3, remaining)
}

func TestReserveMissingCounterFailsClosed(t *testing.T) {
	t.Skip("Integration test - requires Redis")

	rdb, err := Connect("localhost:6379", "", 0)
	require.NoError(t, err)
	defer rdb.Close()

	counter := NewCounter(rdb)
	ctx := context.Background()

	// Never-synced unit: reservation must be denied, not crash or succeed.
	ok, err := counter.Reserve(ctx, 424242, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}
