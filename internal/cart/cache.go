package cart

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/yacosta738/go-shopping-cart/internal/redisx"
)

// RedisTotals caches the frozen total of completed carts. Cache misses fall
// back to recomputing from the ledger, so errors here are swallowed.
type RedisTotals struct{ Client *redis.Client }

func (c *RedisTotals) SetTotal(ctx context.Context, cartID string, totalCents int64) {
	key := fmt.Sprintf(redisx.KeyCartTotal, cartID)
	_ = c.Client.Set(ctx, key, strconv.FormatInt(totalCents, 10), redisx.TTLTotalCache).Err()
}

func (c *RedisTotals) GetTotal(ctx context.Context, cartID string) (int64, bool) {
	key := fmt.Sprintf(redisx.KeyCartTotal, cartID)
	s, err := c.Client.Get(ctx, key).Result()
	if err != nil {
		return 0, false
	}
	total, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return total, true
}
