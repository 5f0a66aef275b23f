package store

import (
	"context"
	"time"
)

// Store is the durable key-value mirror for manager state. In-memory manager
// state stays authoritative; the store is a best-effort replica used only for
// restart recovery.
type Store interface {
	// Get returns the value for a key. The second return is false when the
	// key is absent or expired.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores a value. A zero TTL means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// SetMulti stores several values in one round trip.
	SetMulti(ctx context.Context, entries map[string]string, ttl time.Duration) error

	// Keys lists all keys with the given prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Del removes a key. Deleting an absent key is not an error.
	Del(ctx context.Context, key string) error

	// Close releases any resources held by the store.
	Close() error
}
