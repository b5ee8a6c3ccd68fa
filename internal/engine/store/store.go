// Package store provides the durable tier behind the engine cache: a
// string-keyed key-value contract with enumerable keys. The engine treats
// every implementation the same, so swapping SQLite for Redis or Postgres
// is a config change.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get for missing keys.
var ErrNotFound = errors.New("store: key not found")

// Store is the durable cache tier contract.
// Writes are last-write-wins; there are no transactions across keys.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	// Keys enumerates every stored key, in no particular order.
	Keys(ctx context.Context) ([]string, error)
	Close() error
}
