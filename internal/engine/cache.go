package engine

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anatolykoptev/go_watch/internal/engine/store"
)

// Cache provides 2-tier caching: L1 in-memory session tier + L2 durable
// store. L1 is fast but lost on restart. L2 survives restarts.
//
// Unlike a process-wide singleton, every pipeline owns its cache instance
// and subscribes it to the invalidation bus explicitly.

// Cache kinds. Keys are namespaced as "<kind>_<videoID>".
const (
	KindComprehension = "comprehension"
	KindMetadata      = "metadata"
	KindSubtitles     = "subtitles"
	KindAnalysis      = "analysis"
)

// durableWriteTimeout bounds one L2 write. Writes run detached from the
// caller's context so an abandoned caller doesn't cancel them.
const durableWriteTimeout = 5 * time.Second

// Cache metrics — atomic counters for thread-safe access.
var (
	cacheHits        atomic.Int64
	cacheMisses      atomic.Int64
	cacheWriteErrors atomic.Int64
)

// CacheStats returns current cache hit/miss counters.
func CacheStats() (hits, misses int64) {
	return cacheHits.Load(), cacheMisses.Load()
}

// cacheEntry is what both tiers hold: the value plus when it was cached.
type cacheEntry struct {
	Value    string    `json:"value"`
	CachedAt time.Time `json:"cached_at"`
}

// Cache is the two-tier score/metadata/subtitle cache.
type Cache struct {
	l1      sync.Map    // key → *cacheEntry
	durable store.Store // nil = session tier only

	now func() time.Time

	// pending tracks in-flight durable writes so tests can drain them.
	pending sync.WaitGroup
}

// NewCache creates a cache over the given durable store (nil for
// session-only operation).
func NewCache(durable store.Store) *Cache {
	return &Cache{durable: durable, now: time.Now}
}

// WatchBus subscribes this cache's tiers to invalidation events.
func (c *Cache) WatchBus(bus *InvalidationBus) {
	bus.Subscribe(func(prefixes []string) {
		c.InvalidateAll(context.Background(), prefixes...)
	})
}

// CacheKeyFor builds the namespaced key for one entry.
func CacheKeyFor(kind, id string) string {
	return kind + "_" + id
}

// Get checks the session tier, then the durable tier. A durable hit is
// promoted into the session tier with its original timestamp.
func (c *Cache) Get(ctx context.Context, kind, id string) (string, bool) {
	key := CacheKeyFor(kind, id)

	if val, ok := c.l1.Load(key); ok {
		cacheHits.Add(1)
		slog.Debug("cache: session hit", slog.String("key", key))
		return val.(*cacheEntry).Value, true
	}

	if c.durable != nil {
		raw, err := c.durable.Get(ctx, key)
		if err == nil {
			var entry cacheEntry
			if json.Unmarshal([]byte(raw), &entry) == nil {
				cacheHits.Add(1)
				slog.Debug("cache: durable hit", slog.String("key", key))
				c.l1.Store(key, &entry)
				return entry.Value, true
			}
		} else if !errors.Is(err, store.ErrNotFound) {
			slog.Warn("cache: durable read failed", slog.String("key", key), slog.Any("error", err))
		}
	}

	cacheMisses.Add(1)
	return "", false
}

// Put writes both tiers. The session tier is written synchronously and is
// authoritative; the durable write happens in the background and its
// failure is logged and swallowed — it never blocks returning a freshly
// computed value.
func (c *Cache) Put(_ context.Context, kind, id, value string) {
	key := CacheKeyFor(kind, id)
	entry := &cacheEntry{Value: value, CachedAt: c.now()}
	c.l1.Store(key, entry)

	if c.durable == nil {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		wctx, cancel := context.WithTimeout(context.Background(), durableWriteTimeout)
		defer cancel()
		if err := c.durable.Set(wctx, key, string(data)); err != nil {
			cacheWriteErrors.Add(1)
			slog.Warn("cache: durable write failed", slog.String("key", key), slog.Any("error", err))
		}
	}()
}

// Invalidate removes entries matching pred from both tiers.
func (c *Cache) Invalidate(ctx context.Context, pred func(key string) bool) {
	removed := 0
	c.l1.Range(func(key, _ any) bool {
		if pred(key.(string)) {
			c.l1.Delete(key)
			removed++
		}
		return true
	})

	if c.durable != nil {
		keys, err := c.durable.Keys(ctx)
		if err != nil {
			slog.Warn("cache: durable enumerate failed", slog.Any("error", err))
		} else {
			for _, key := range keys {
				if !pred(key) {
					continue
				}
				if err := c.durable.Remove(ctx, key); err != nil {
					slog.Warn("cache: durable remove failed", slog.String("key", key), slog.Any("error", err))
				}
			}
		}
	}

	slog.Debug("cache: invalidated", slog.Int("session_removed", removed))
}

// InvalidateAll removes every entry whose key starts with any given prefix.
func (c *Cache) InvalidateAll(ctx context.Context, prefixes ...string) {
	if len(prefixes) == 0 {
		return
	}
	c.Invalidate(ctx, func(key string) bool {
		for _, p := range prefixes {
			if strings.HasPrefix(key, p) {
				return true
			}
		}
		return false
	})
}

// Flush waits for all in-flight durable writes. Tests use this; production
// callers never need to.
func (c *Cache) Flush() {
	c.pending.Wait()
}
