package engine

import (
	"context"
	"testing"
	"time"
)

func TestCooldownArithmetic(t *testing.T) {
	engine, _, clock := newTestEngine(t)
	ctx := context.Background()

	if err := engine.SetCooldown(ctx, "g1", 1, "u1", 10); err != nil {
		t.Fatalf("set cooldown: %v", err)
	}

	status := engine.CheckCooldown(ctx, "g1", 1, "u1")
	if !status.OnCooldown {
		t.Fatal("expected active cooldown")
	}
	if status.RemainingSeconds < 9 || status.RemainingSeconds > 10 {
		t.Fatalf("expected remaining in [9,10], got %d", status.RemainingSeconds)
	}

	clock.advance(11 * time.Second)
	status = engine.CheckCooldown(ctx, "g1", 1, "u1")
	if status.OnCooldown {
		t.Fatalf("expected cooldown expired, got %+v", status)
	}
}

func TestGlobalCooldownGatesEveryUser(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	if err := engine.SetCooldown(ctx, "g1", 1, "", 30); err != nil {
		t.Fatalf("set global cooldown: %v", err)
	}

	for _, user := range []string{"u1", "u2"} {
		if status := engine.CheckCooldown(ctx, "g1", 1, user); !status.OnCooldown {
			t.Fatalf("expected %s to be gated by the global cooldown", user)
		}
	}
}

func TestCooldownCheckFailsOpen(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	ctx := context.Background()

	store.Close()
	if status := engine.CheckCooldown(ctx, "g1", 1, "u1"); status.OnCooldown {
		t.Fatal("storage errors must fail open")
	}
}

func TestCleanupExpiredCooldowns(t *testing.T) {
	engine, _, clock := newTestEngine(t)
	ctx := context.Background()

	if err := engine.SetCooldown(ctx, "g1", 1, "u1", 5); err != nil {
		t.Fatalf("set cooldown: %v", err)
	}
	clock.advance(6 * time.Second)

	deleted, err := engine.CleanupExpiredCooldowns(ctx)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted row, got %d", deleted)
	}
}
