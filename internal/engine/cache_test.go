package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/anatolykoptev/go_watch/internal/engine/store"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory durable tier for tests.
type fakeStore struct {
	mu      sync.Mutex
	data    map[string]string
	setGate chan struct{} // when non-nil, Set blocks until closed
	failSet bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return v, nil
}

func (f *fakeStore) Set(_ context.Context, key, value string) error {
	if f.setGate != nil {
		<-f.setGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSet {
		return context.DeadlineExceeded
	}
	f.data[key] = value
	return nil
}

func (f *fakeStore) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

func (f *fakeStore) Keys(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.data))
	for k := range f.data {
		keys = append(keys, k)
	}
	return keys, nil
}

func (f *fakeStore) Close() error { return nil }

func TestCachePutGet(t *testing.T) {
	fs := newFakeStore()
	c := NewCache(fs)
	ctx := context.Background()

	if _, ok := c.Get(ctx, KindComprehension, "v1"); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Put(ctx, KindComprehension, "v1", "87")
	got, ok := c.Get(ctx, KindComprehension, "v1")
	if !ok || got != "87" {
		t.Fatalf("Get = %q, %v; want 87, true", got, ok)
	}

	c.Flush()
	if _, err := fs.Get(ctx, "comprehension_v1"); err != nil {
		t.Errorf("durable tier should hold the entry after flush: %v", err)
	}
}

func TestCacheSessionTierWhileDurableWritePending(t *testing.T) {
	fs := newFakeStore()
	fs.setGate = make(chan struct{})
	c := NewCache(fs)
	ctx := context.Background()

	c.Put(ctx, KindComprehension, "v1", "42")

	// Durable write is still parked on the gate; the session tier answers.
	got, ok := c.Get(ctx, KindComprehension, "v1")
	if !ok || got != "42" {
		t.Fatalf("session tier should answer while durable write pends, got %q, %v", got, ok)
	}

	close(fs.setGate)
	c.Flush()
}

func TestCacheDurableWriteFailureIsSwallowed(t *testing.T) {
	fs := newFakeStore()
	fs.failSet = true
	c := NewCache(fs)
	ctx := context.Background()

	c.Put(ctx, KindSubtitles, "v1", "こんにちは")
	c.Flush()

	// Session tier stays authoritative.
	got, ok := c.Get(ctx, KindSubtitles, "v1")
	if !ok || got != "こんにちは" {
		t.Errorf("session tier must survive durable failure, got %q, %v", got, ok)
	}
}

func TestCachePromotesDurableHit(t *testing.T) {
	fs := newFakeStore()
	warm := NewCache(fs)
	ctx := context.Background()
	warm.Put(ctx, KindMetadata, "v1", `[{"languageCode":"ja"}]`)
	warm.Flush()

	// Fresh cache over the same store: empty session tier, durable hit.
	cold := NewCache(fs)
	got, ok := cold.Get(ctx, KindMetadata, "v1")
	require.True(t, ok)
	require.Equal(t, `[{"languageCode":"ja"}]`, got)

	// Promoted: a second get answers from the session tier even if the
	// durable tier vanishes.
	fs.mu.Lock()
	fs.data = map[string]string{}
	fs.mu.Unlock()
	got, ok = cold.Get(ctx, KindMetadata, "v1")
	require.True(t, ok)
	require.Equal(t, `[{"languageCode":"ja"}]`, got)
}

func TestCacheSessionOnly(t *testing.T) {
	c := NewCache(nil)
	ctx := context.Background()

	c.Put(ctx, KindComprehension, "v1", "10")
	got, ok := c.Get(ctx, KindComprehension, "v1")
	if !ok || got != "10" {
		t.Errorf("session-only cache round trip failed: %q, %v", got, ok)
	}
}

func TestCacheInvalidateAllPrefixes(t *testing.T) {
	fs := newFakeStore()
	c := NewCache(fs)
	ctx := context.Background()

	c.Put(ctx, KindComprehension, "v1", "80")
	c.Put(ctx, KindAnalysis, "v1", "{}")
	c.Put(ctx, KindMetadata, "v1", "[]")
	c.Put(ctx, KindSubtitles, "v1", "text")
	c.Flush()

	c.InvalidateAll(ctx, "comprehension_", "analysis_")

	if _, ok := c.Get(ctx, KindComprehension, "v1"); ok {
		t.Error("comprehension entry should be purged")
	}
	if _, ok := c.Get(ctx, KindAnalysis, "v1"); ok {
		t.Error("analysis entry should be purged")
	}
	if _, ok := c.Get(ctx, KindMetadata, "v1"); !ok {
		t.Error("metadata entry must survive a score invalidation")
	}
	if _, ok := c.Get(ctx, KindSubtitles, "v1"); !ok {
		t.Error("subtitles entry must survive a score invalidation")
	}

	// Durable tier purged too.
	if _, err := fs.Get(ctx, "comprehension_v1"); err == nil {
		t.Error("durable comprehension entry should be purged")
	}
	if _, err := fs.Get(ctx, "metadata_v1"); err != nil {
		t.Error("durable metadata entry must survive")
	}
}

func TestCacheBusInvalidation(t *testing.T) {
	bus := NewInvalidationBus()
	c := NewCache(newFakeStore())
	c.WatchBus(bus)
	ctx := context.Background()

	c.Put(ctx, KindComprehension, "v1", "80")
	c.Put(ctx, KindMetadata, "v1", "[]")
	c.Flush()

	bus.Publish("comprehension_", "analysis_")

	if _, ok := c.Get(ctx, KindComprehension, "v1"); ok {
		t.Error("published invalidation should purge comprehension entries")
	}
	if _, ok := c.Get(ctx, KindMetadata, "v1"); !ok {
		t.Error("published invalidation must not touch metadata entries")
	}
}

func TestCacheKeyFor(t *testing.T) {
	if got := CacheKeyFor(KindComprehension, "abc"); got != "comprehension_abc" {
		t.Errorf("CacheKeyFor = %q", got)
	}
}
