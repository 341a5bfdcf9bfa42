package engine

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"
)

// CooldownStatus is the outcome of a cooldown check. RemainingSeconds is
// ceiling-rounded so a user is never told zero seconds while still gated.
type CooldownStatus struct {
	OnCooldown       bool
	RemainingSeconds int
}

// CheckCooldown looks for any active cooldown gating this command for this
// user, per-user or global, and reports the latest-expiring one. A storage
// error fails open: availability over strict enforcement.
func (e *Engine) CheckCooldown(ctx context.Context, guildID string, commandID int64, userID string) CooldownStatus {
	now := e.clock.Now()
	expires, found, err := e.store.LatestCooldown(ctx, guildID, commandID, userID, now)
	if err != nil {
		e.logger.Warn("cooldown check failed, allowing invocation", zap.String("guild_id", guildID), zap.Int64("command_id", commandID), zap.Error(err))
		return CooldownStatus{}
	}
	if !found {
		return CooldownStatus{}
	}
	remaining := int(math.Ceil(expires.Sub(now).Seconds()))
	if remaining < 1 {
		remaining = 1
	}
	return CooldownStatus{OnCooldown: true, RemainingSeconds: remaining}
}

// SetCooldown inserts a cooldown row expiring after the given number of
// seconds. An empty userID sets a global cooldown.
func (e *Engine) SetCooldown(ctx context.Context, guildID string, commandID int64, userID string, seconds int) error {
	expiresAt := e.clock.Now().Add(time.Duration(seconds) * time.Second)
	return e.store.AddCooldown(ctx, guildID, commandID, userID, expiresAt)
}

// CleanupExpiredCooldowns removes stale rows; the bot runs it on a timer.
func (e *Engine) CleanupExpiredCooldowns(ctx context.Context) (int64, error) {
	return e.store.CleanupExpiredCooldowns(ctx, e.clock.Now())
}
