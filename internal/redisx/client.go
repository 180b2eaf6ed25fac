package redisx

import (
	"context"
	"fmt"

	"feedshop/internal/domain"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

// Counter issues invoice numbers with INCR, which is atomic across every
// process sharing the Redis instance.
type Counter struct {
	rdb *redis.Client
	key string
}

func NewInvoiceCounter(rdb *redis.Client) *Counter {
	return &Counter{rdb: rdb, key: KeyInvoiceCounter}
}

func (c *Counter) Next(ctx context.Context) (int64, error) {
	n, err := c.rdb.Incr(ctx, c.key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr failed: %w", err)
	}
	return domain.InvoiceBase + n, nil
}

// floorScript raises the counter to ARGV[1] but never lowers it.
var floorScript = redis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[1]) or '0')
local floor = tonumber(ARGV[1])
if cur < floor then
  redis.call('SET', KEYS[1], floor)
  return floor
end
return cur
`)

// Floor makes the next invoice come after last. It is called at boot when
// Redis takes over numbering for a store that already holds orders.
func (c *Counter) Floor(ctx context.Context, last int64) error {
	if last <= domain.InvoiceBase {
		return nil
	}
	if err := floorScript.Run(ctx, c.rdb, []string{c.key}, last-domain.InvoiceBase).Err(); err != nil {
		return fmt.Errorf("redis floor failed: %w", err)
	}
	return nil
}
