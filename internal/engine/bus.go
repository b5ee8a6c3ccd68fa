package engine

import (
	"log/slog"
	"sync"
)

// InvalidationBus decouples cache purging from whatever triggered it.
// Replacing the vocabulary table publishes the stale prefixes; every
// subscribed cache purges its own tiers. Subscribers run synchronously so a
// caller returning from Publish can rely on stale entries being gone.
type InvalidationBus struct {
	mu   sync.Mutex
	subs []func(prefixes []string)
}

// NewInvalidationBus creates an empty bus.
func NewInvalidationBus() *InvalidationBus {
	return &InvalidationBus{}
}

// Subscribe registers fn to run on every publish. There is no unsubscribe:
// subscribers live as long as the process.
func (b *InvalidationBus) Subscribe(fn func(prefixes []string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, fn)
}

// Publish notifies every subscriber of the stale key prefixes.
func (b *InvalidationBus) Publish(prefixes ...string) {
	b.mu.Lock()
	subs := make([]func(prefixes []string), len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	slog.Debug("bus: invalidation published", slog.Any("prefixes", prefixes), slog.Int("subscribers", len(subs)))
	for _, fn := range subs {
		fn(prefixes)
	}
}
