package store

import (
	"context"
	"sort"
	"testing"
	"time"
)

func TestMemoryStore_SetGetDel(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Set(ctx, "k1", "v1", 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	value, ok, err := s.Get(ctx, "k1")
	if err != nil || !ok || value != "v1" {
		t.Fatalf("get = %q/%v/%v", value, ok, err)
	}

	if err := s.Del(ctx, "k1"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "k1"); ok {
		t.Fatalf("key survived delete")
	}
}

func TestMemoryStore_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStoreWithClock(func() time.Time { return now })

	if err := s.Set(ctx, "k1", "v1", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "k1"); !ok {
		t.Fatalf("key expired before its TTL")
	}

	now = now.Add(time.Minute)
	if _, ok, _ := s.Get(ctx, "k1"); ok {
		t.Fatalf("key survived its TTL")
	}
	keys, err := s.Keys(ctx, "k")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("expired key listed: %v", keys)
	}
}

func TestMemoryStore_KeysPrefix(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.SetMulti(ctx, map[string]string{
		"resman:pools:CREDITS": "a",
		"resman:pools:TOKENS":  "b",
		"resman:limits:USER:u": "c",
	}, 0); err != nil {
		t.Fatalf("set multi: %v", err)
	}

	keys, err := s.Keys(ctx, "resman:pools:")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "resman:pools:CREDITS" || keys[1] != "resman:pools:TOKENS" {
		t.Fatalf("keys = %v", keys)
	}
}
