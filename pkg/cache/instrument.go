package cache

import (
	"context"
	"strings"
	"time"

	"github.com/matzehuels/causalhub/pkg/observability"
)

// instrumented reports hits, misses and writes to the registered cache
// hooks, labelled by the key's type prefix ("fit", "render").
type instrumented struct {
	Cache
}

// Instrument wraps c so that its traffic is reported to
// observability.Cache(). Hooks are looked up on every call, so hooks
// registered after Instrument still receive events.
func Instrument(c Cache) Cache {
	if _, ok := c.(instrumented); ok {
		return c
	}
	return instrumented{c}
}

func (c instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok, err := c.Cache.Get(ctx, key)
	if err == nil {
		if ok {
			observability.Cache().OnCacheHit(ctx, keyType(key))
		} else {
			observability.Cache().OnCacheMiss(ctx, keyType(key))
		}
	}
	return data, ok, err
}

func (c instrumented) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	err := c.Cache.Set(ctx, key, data, ttl)
	if err == nil {
		observability.Cache().OnCacheSet(ctx, keyType(key), len(data))
	}
	return err
}

// Unwrap returns the underlying backend.
func (c instrumented) Unwrap() Cache { return c.Cache }

// keyType returns the first segment of the key after any scope prefix:
// "fit:v2:ab12" and "team/fit:v2:ab12" both report "fit".
func keyType(key string) string {
	if i := strings.LastIndexByte(key, '/'); i >= 0 {
		key = key[i+1:]
	}
	t, _, ok := strings.Cut(key, ":")
	if !ok || t == "" {
		return "other"
	}
	return t
}
