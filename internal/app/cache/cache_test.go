package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreRemember(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	value, created, err := store.Remember(ctx, "k1", "first", time.Minute)
	if err != nil {
		t.Fatalf("remember: %v", err)
	}
	if !created || value != "first" {
		t.Fatalf("first write: created=%v value=%q", created, value)
	}

	value, created, err = store.Remember(ctx, "k1", "second", time.Minute)
	if err != nil {
		t.Fatalf("remember again: %v", err)
	}
	if created || value != "first" {
		t.Fatalf("replay: created=%v value=%q, want original", created, value)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, _, err := store.Remember(ctx, "k1", "first", time.Millisecond); err != nil {
		t.Fatalf("remember: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	value, created, err := store.Remember(ctx, "k1", "second", time.Minute)
	if err != nil {
		t.Fatalf("remember after expiry: %v", err)
	}
	if !created || value != "second" {
		t.Fatalf("expired key: created=%v value=%q", created, value)
	}
}

func TestMemoryStoreForget(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, _, err := store.Remember(ctx, "k1", "first", time.Minute); err != nil {
		t.Fatalf("remember: %v", err)
	}
	if err := store.Forget(ctx, "k1"); err != nil {
		t.Fatalf("forget: %v", err)
	}

	value, created, err := store.Remember(ctx, "k1", "second", time.Minute)
	if err != nil {
		t.Fatalf("remember after forget: %v", err)
	}
	if !created || value != "second" {
		t.Fatalf("after forget: created=%v value=%q", created, value)
	}
}
