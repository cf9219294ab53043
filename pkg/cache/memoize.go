package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
)

// KeyFunc derives a cache key from a memoized function's argument.
type KeyFunc[A any] func(arg A) string

// DefaultKey encodes arg as JSON, which is deterministic for structs, slices
// and maps (map keys are sorted). Arguments JSON cannot encode fall back to
// Go-syntax formatting.
func DefaultKey[A any](arg A) string {
	data, err := json.Marshal(arg)
	if err != nil {
		return fmt.Sprintf("%#v", arg)
	}
	return string(data)
}

// Memoize wraps fn so results are served from c. Functions taking several
// arguments can be memoized by passing them as one struct. A nil keyFn uses
// DefaultKey; ttl <= 0 uses the cache's default TTL.
func Memoize[A, V any](c Cache[V], fn func(A) V, keyFn KeyFunc[A], ttl time.Duration) func(A) V {
	if keyFn == nil {
		keyFn = DefaultKey[A]
	}

	return func(arg A) V {
		key := keyFn(arg)
		if value, ok := c.Get(key); ok {
			return value
		}

		value := fn(arg)
		// an empty key cannot be cached; the result is still returned
		_, _ = c.SetWithTTL(key, value, ttl)
		return value
	}
}

// MemoizeAsync wraps fn like Memoize and also coalesces concurrent calls:
// while a call for a key is in flight, further calls for that key wait for it
// and share its result instead of invoking fn again. Successful results are
// cached. Errors are returned to every waiter and not cached, so the next
// call retries fn.
//
// The shared invocation runs with the context of the call that started it.
func MemoizeAsync[A, V any](
	c Cache[V], fn func(context.Context, A) (V, error), keyFn KeyFunc[A], ttl time.Duration,
) func(context.Context, A) (V, error) {
	if keyFn == nil {
		keyFn = DefaultKey[A]
	}

	var group singleflight.Group

	return func(ctx context.Context, arg A) (V, error) {
		key := keyFn(arg)
		if value, ok := c.Get(key); ok {
			return value, nil
		}

		result, err, _ := group.Do(key, func() (any, error) {
			// a call that finished between our miss and joining the group
			// has already cached its result; the miss above was counted
			if value, ok := c.Peek(key); ok {
				return value, nil
			}

			value, err := fn(ctx, arg)
			if err != nil {
				return nil, err
			}
			_, _ = c.SetWithTTL(key, value, ttl)
			return value, nil
		})
		if err != nil {
			var zero V
			return zero, err
		}

		value, _ := result.(V)
		return value, nil
	}
}
