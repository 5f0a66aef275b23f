package store

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is an in-process Store used for tests and single-process
// deployments that do not need restart recovery.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]memoryEntry{}, now: time.Now}
}

// NewMemoryStoreWithClock creates an in-memory store with an injected clock.
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{entries: map[string]memoryEntry{}, now: now}
}

// Get returns the stored value unless it has expired.
func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[key]
	if !ok || s.expired(entry) {
		return "", false, nil
	}
	return entry.value, true, nil
}

// Set stores a value with an optional TTL.
func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = s.entry(value, ttl)
	return nil
}

// SetMulti stores several values under one lock acquisition.
func (s *MemoryStore) SetMulti(_ context.Context, entries map[string]string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, value := range entries {
		s.entries[key] = s.entry(value, ttl)
	}
	return nil
}

// Keys lists unexpired keys with the given prefix.
func (s *MemoryStore) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.entries))
	for key, entry := range s.entries {
		if strings.HasPrefix(key, prefix) && !s.expired(entry) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Del removes a key.
func (s *MemoryStore) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) entry(value string, ttl time.Duration) memoryEntry {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	return entry
}

func (s *MemoryStore) expired(entry memoryEntry) bool {
	return !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt)
}
