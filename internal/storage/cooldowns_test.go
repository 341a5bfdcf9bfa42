package storage

import (
	"context"
	"testing"
	"time"
)

func TestLatestCooldownPicksLatestExpiry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Unix(1000, 0)

	if err := store.AddCooldown(ctx, "g1", 7, "u1", now.Add(10*time.Second)); err != nil {
		t.Fatalf("add user cooldown: %v", err)
	}
	if err := store.AddCooldown(ctx, "g1", 7, "", now.Add(30*time.Second)); err != nil {
		t.Fatalf("add global cooldown: %v", err)
	}

	expires, found, err := store.LatestCooldown(ctx, "g1", 7, "u1", now)
	if err != nil {
		t.Fatalf("latest cooldown: %v", err)
	}
	if !found {
		t.Fatal("expected an active cooldown")
	}
	if !expires.Equal(now.Add(30 * time.Second)) {
		t.Fatalf("expected global expiry to win, got %v", expires)
	}

	// Another user is still gated by the global row.
	_, found, err = store.LatestCooldown(ctx, "g1", 7, "u2", now)
	if err != nil {
		t.Fatalf("latest cooldown u2: %v", err)
	}
	if !found {
		t.Fatal("expected global cooldown to gate other users")
	}
}

func TestLatestCooldownIgnoresExpired(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Unix(1000, 0)

	if err := store.AddCooldown(ctx, "g1", 7, "u1", now.Add(10*time.Second)); err != nil {
		t.Fatalf("add cooldown: %v", err)
	}

	_, found, err := store.LatestCooldown(ctx, "g1", 7, "u1", now.Add(11*time.Second))
	if err != nil {
		t.Fatalf("latest cooldown: %v", err)
	}
	if found {
		t.Fatal("expected cooldown to be expired")
	}
}

func TestCleanupExpiredCooldowns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Unix(1000, 0)

	if err := store.AddCooldown(ctx, "g1", 1, "u1", now.Add(-time.Second)); err != nil {
		t.Fatalf("add stale: %v", err)
	}
	if err := store.AddCooldown(ctx, "g1", 1, "u2", now.Add(time.Minute)); err != nil {
		t.Fatalf("add live: %v", err)
	}

	deleted, err := store.CleanupExpiredCooldowns(ctx, now)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted row, got %d", deleted)
	}

	_, found, err := store.LatestCooldown(ctx, "g1", 1, "u2", now)
	if err != nil || !found {
		t.Fatalf("live cooldown lost: found=%v err=%v", found, err)
	}
}
