package storage

import (
	"context"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestCommandRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.CreateCommand(ctx, CustomCommand{
		GuildID:         "g1",
		Trigger:         "ping",
		Aliases:         `["pong"]`,
		Response:        "Pong!",
		CommandType:     "both",
		IsEnabled:       true,
		Category:        "fun",
		CooldownSeconds: 30,
	})
	if err != nil {
		t.Fatalf("create command: %v", err)
	}

	cmd, found, err := store.GetCommand(ctx, id)
	if err != nil || !found {
		t.Fatalf("get command: found=%v err=%v", found, err)
	}
	if cmd.Trigger != "ping" || cmd.Aliases != `["pong"]` || cmd.CooldownSeconds != 30 {
		t.Fatalf("unexpected command: %+v", cmd)
	}

	cmd.Response = "Pong again!"
	cmd.IsEnabled = false
	if err := store.UpdateCommand(ctx, cmd); err != nil {
		t.Fatalf("update command: %v", err)
	}

	enabled, err := store.ListEnabledCommands(ctx, "g1")
	if err != nil {
		t.Fatalf("list enabled: %v", err)
	}
	if len(enabled) != 0 {
		t.Fatalf("expected no enabled commands, got %d", len(enabled))
	}

	all, err := store.ListCommands(ctx, "g1")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 1 || all[0].Response != "Pong again!" {
		t.Fatalf("unexpected list: %+v", all)
	}
}

func TestDraftsExcludedFromEnabledSet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.CreateCommand(ctx, CustomCommand{GuildID: "g1", Trigger: "wip", IsEnabled: true, IsDraft: true}); err != nil {
		t.Fatalf("create draft: %v", err)
	}
	if _, err := store.CreateCommand(ctx, CustomCommand{GuildID: "g1", Trigger: "live", IsEnabled: true}); err != nil {
		t.Fatalf("create live: %v", err)
	}

	enabled, err := store.ListEnabledCommands(ctx, "g1")
	if err != nil {
		t.Fatalf("list enabled: %v", err)
	}
	if len(enabled) != 1 || enabled[0].Trigger != "live" {
		t.Fatalf("expected only live command, got %+v", enabled)
	}
}

func TestIncrementCommandUsage(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.CreateCommand(ctx, CustomCommand{GuildID: "g1", Trigger: "hello", IsEnabled: true})
	if err != nil {
		t.Fatalf("create command: %v", err)
	}

	at := time.Unix(1700000000, 0)
	if err := store.IncrementCommandUsage(ctx, id, at); err != nil {
		t.Fatalf("increment usage: %v", err)
	}

	cmd, _, err := store.GetCommand(ctx, id)
	if err != nil {
		t.Fatalf("get command: %v", err)
	}
	if cmd.UsageCount != 1 {
		t.Fatalf("expected usage 1, got %d", cmd.UsageCount)
	}
	if cmd.LastUsedAt == nil || !cmd.LastUsedAt.Equal(at) {
		t.Fatalf("unexpected last used: %v", cmd.LastUsedAt)
	}
}

func TestVariableUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.UpsertVariable(ctx, "g1", "greeting", "hello"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.UpsertVariable(ctx, "g1", "greeting", "howdy"); err != nil {
		t.Fatalf("upsert again: %v", err)
	}

	variables, err := store.ListVariables(ctx, "g1")
	if err != nil {
		t.Fatalf("list variables: %v", err)
	}
	if variables["greeting"] != "howdy" {
		t.Fatalf("expected howdy, got %q", variables["greeting"])
	}

	if err := store.DeleteVariable(ctx, "g1", "greeting"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	variables, err = store.ListVariables(ctx, "g1")
	if err != nil {
		t.Fatalf("list after delete: %v", err)
	}
	if len(variables) != 0 {
		t.Fatalf("expected empty map, got %v", variables)
	}
}
