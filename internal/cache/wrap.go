package cache

import (
	"context"
	"time"
)

// Wrap returns a memoized version of fn. The cache key is derived per call
// via keyFn; identical derived keys short-circuit to the cache, and
// concurrent calls producing the same key share one execution of fn.
func Wrap[A any, R any](c *Cache, ttl time.Duration, keyFn func(A) string, fn func(context.Context, A) (R, error)) func(context.Context, A) (R, error) {
	return func(ctx context.Context, arg A) (R, error) {
		var out R
		err := c.GetOrSet(ctx, keyFn(arg), ttl, &out, func(ctx context.Context) (any, error) {
			return fn(ctx, arg)
		})
		return out, err
	}
}
