package redisx

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*Counter, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewInvoiceCounter(client), mr
}

func TestCounter_FirstInvoiceIs1000(t *testing.T) {
	c, _ := setupTestRedis(t)
	ctx := context.Background()

	first, err := c.Next(ctx)
	require.NoError(t, err)
	second, err := c.Next(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(1000), first)
	assert.Equal(t, int64(1001), second)
}

func TestCounter_ContinuesFromStoredValue(t *testing.T) {
	c, mr := setupTestRedis(t)
	mr.Set(KeyInvoiceCounter, "41")

	n, err := c.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1041), n)
}

func TestCounter_ServerDown(t *testing.T) {
	c, mr := setupTestRedis(t)
	mr.Close()

	_, err := c.Next(context.Background())
	assert.Error(t, err)
}

func TestCounter_FloorContinuesAfterExistingInvoices(t *testing.T) {
	c, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Floor(ctx, 1004))
	n, err := c.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1005), n)

	// a lower floor never moves the counter back
	require.NoError(t, c.Floor(ctx, 1000))
	n, err = c.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1006), n)
}

func TestCounter_FloorWithNoOrders(t *testing.T) {
	c, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Floor(ctx, 0))
	n, err := c.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), n)
}
