package engine

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"herald-bot/internal/storage"

	"go.uber.org/zap"
)

// Engine is the per-guild custom command registry and execution
// orchestrator. One instance is constructed at startup and shared by the
// message, interaction, and admin layers.
type Engine struct {
	store  *storage.Store
	logger *zap.Logger
	clock  Clock
	opts   Options

	mu sync.RWMutex
	// triggers holds primary triggers only; lookup additionally indexes
	// every alias. Both are replaced together, never partially updated.
	triggers  map[string]map[string]*CachedCommand
	lookup    map[string]map[string]*CachedCommand
	variables map[string]map[string]string
}

type Options struct {
	// NoticeDeleteSeconds is how long denial and cooldown notices stay
	// visible in the channel before best-effort deletion.
	NoticeDeleteSeconds int
	// ErrorColor is used for the error-indicator embed when a command's
	// embed JSON is malformed.
	ErrorColor int
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func New(store *storage.Store, logger *zap.Logger, opts Options) *Engine {
	if opts.NoticeDeleteSeconds <= 0 {
		opts.NoticeDeleteSeconds = 5
	}
	if opts.ErrorColor == 0 {
		opts.ErrorColor = 0xED4245
	}
	return &Engine{
		store:     store,
		logger:    logger,
		clock:     realClock{},
		opts:      opts,
		triggers:  make(map[string]map[string]*CachedCommand),
		lookup:    make(map[string]map[string]*CachedCommand),
		variables: make(map[string]map[string]string),
	}
}

func (e *Engine) WithClock(clock Clock) {
	e.clock = clock
}

// LoadCommands rebuilds a guild's trigger index, alias index, and variable
// cache from storage. On storage error the previous snapshot stays
// authoritative so the guild keeps operating on stale-but-valid data; the
// error is returned for the caller to report, not logged here.
func (e *Engine) LoadCommands(ctx context.Context, guildID string) error {
	rows, err := e.store.ListEnabledCommands(ctx, guildID)
	if err != nil {
		return err
	}
	vars, err := e.store.ListVariables(ctx, guildID)
	if err != nil {
		return err
	}

	triggers := make(map[string]*CachedCommand, len(rows))
	lookup := make(map[string]*CachedCommand, len(rows))
	for _, row := range rows {
		cached := newCachedCommand(row)
		triggers[cached.Trigger] = cached
		lookup[cached.Trigger] = cached
		for _, alias := range cached.Aliases {
			lookup[alias] = cached
		}
	}

	e.mu.Lock()
	e.triggers[guildID] = triggers
	e.lookup[guildID] = lookup
	e.variables[guildID] = vars
	e.mu.Unlock()

	e.logger.Info("commands loaded", zap.String("guild_id", guildID), zap.Int("commands", len(triggers)), zap.Int("variables", len(vars)))
	return nil
}

// RefreshCommands is the dashboard-facing name for LoadCommands; the CRUD
// API calls it after every command or variable mutation.
func (e *Engine) RefreshCommands(ctx context.Context, guildID string) error {
	return e.LoadCommands(ctx, guildID)
}

// FindCommand resolves a trigger or alias, case-insensitively, to a cached
// command.
func (e *Engine) FindCommand(guildID, trigger string) (*CachedCommand, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	guild, ok := e.lookup[guildID]
	if !ok {
		return nil, false
	}
	cmd, ok := guild[strings.ToLower(trigger)]
	return cmd, ok
}

// Commands returns every cached command for a guild sorted by trigger,
// hidden ones included. Read-only.
func (e *Engine) Commands(guildID string) []*CachedCommand {
	e.mu.RLock()
	defer e.mu.RUnlock()
	guild := e.triggers[guildID]
	commands := make([]*CachedCommand, 0, len(guild))
	for _, cmd := range guild {
		commands = append(commands, cmd)
	}
	sort.Slice(commands, func(i, j int) bool { return commands[i].Trigger < commands[j].Trigger })
	return commands
}

// CommandsByCategory groups visible commands for display. Hidden commands
// are excluded; commands without a category land under "uncategorized".
func (e *Engine) CommandsByCategory(guildID string) map[string][]*CachedCommand {
	grouped := make(map[string][]*CachedCommand)
	for _, cmd := range e.Commands(guildID) {
		if cmd.Hidden {
			continue
		}
		category := cmd.Category
		if category == "" {
			category = "uncategorized"
		}
		grouped[category] = append(grouped[category], cmd)
	}
	return grouped
}

// Variables returns the guild's variable cache. The map is replaced
// wholesale on reload and never mutated, so reading it without copying is
// safe.
func (e *Engine) Variables(guildID string) map[string]string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.variables[guildID]
}
