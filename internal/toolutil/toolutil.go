// Package toolutil provides shared helper functions for go_watch MCP tools.
package toolutil

import (
	"context"
	"encoding/json"

	"github.com/anatolykoptev/go_watch/internal/engine"
)

// CacheLoadJSON tries to load a cached value of type T from the cache.
// Returns the decoded value and true on hit; zero value and false on miss or
// decode error.
func CacheLoadJSON[T any](ctx context.Context, c *engine.Cache, kind, id string) (T, bool) {
	raw, ok := c.Get(ctx, kind, id)
	if !ok {
		var zero T
		return zero, false
	}
	var out T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		var zero T
		return zero, false
	}
	return out, true
}

// CacheStoreJSON marshals v and stores it in the cache.
func CacheStoreJSON[T any](ctx context.Context, c *engine.Cache, kind, id string, v T) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.Put(ctx, kind, id, string(data))
}
