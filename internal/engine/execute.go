package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"herald-bot/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Sender is the slice of the chat platform the orchestrator needs for
// delivery. *discordgo.Session satisfies it; tests substitute a fake.
type Sender interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseDelete(interaction *discordgo.Interaction, options ...discordgo.RequestOption) error
}

// Result is the terminal state of one invocation. Denied covers permission
// and cooldown rejections, which are normal negative outcomes, not errors.
type Result struct {
	Success        bool
	Denied         bool
	Reason         string
	ResponseTimeMs int64
}

// ExecuteCommand runs a custom command invoked by a prefix chat message.
func (e *Engine) ExecuteCommand(ctx context.Context, s Sender, cc *CommandContext, cmd *CachedCommand) Result {
	return e.run(ctx, s, cc, cmd, false)
}

// ExecuteSlashCommand runs a custom command invoked by a slash interaction.
func (e *Engine) ExecuteSlashCommand(ctx context.Context, s Sender, cc *CommandContext, cmd *CachedCommand) Result {
	return e.run(ctx, s, cc, cmd, true)
}

// run is the shared state machine: permission check, cooldown check,
// delivery, then side effects. One inbound event yields at most one
// user-visible message exchange and, past the permission gate, exactly one
// analytics row. Delivery failure is terminal; nothing retries.
func (e *Engine) run(ctx context.Context, s Sender, cc *CommandContext, cmd *CachedCommand, slash bool) Result {
	started := e.clock.Now()

	if perm := CheckPermissions(cmd, cc); !perm.Allowed {
		e.sendNotice(s, cc, slash, perm.Reason)
		return Result{Denied: true, Reason: perm.Reason}
	}

	if status := e.CheckCooldown(ctx, cc.GuildID, cmd.ID, cc.UserID); status.OnCooldown {
		reason := fmt.Sprintf("This command is on cooldown. Try again in %d seconds.", status.RemainingSeconds)
		e.sendNotice(s, cc, slash, reason)
		e.record(ctx, cc, cmd, false, "on cooldown", 0)
		return Result{Denied: true, Reason: reason}
	}

	if !slash && cmd.DeleteUserMessage && cc.MessageID != "" {
		_ = s.ChannelMessageDelete(cc.ChannelID, cc.MessageID)
	}

	vars := e.Variables(cc.GuildID)
	content := ""
	if cmd.Response != "" {
		content = Resolve(cmd.Response, cc, vars)
	}
	var embed *discordgo.MessageEmbed
	if cmd.EmbedJSON != "" {
		embed = buildEmbed(cmd.EmbedJSON, cc, vars, e.opts.ErrorColor)
	}
	if cmd.MentionUser && cc.UserID != "" {
		content = strings.TrimSpace("<@" + cc.UserID + "> " + content)
	}

	if err := e.deliver(s, cc, cmd, slash, content, embed); err != nil {
		elapsed := e.clock.Now().Sub(started).Milliseconds()
		e.logger.Error("command delivery failed", zap.String("guild_id", cc.GuildID), zap.String("trigger", cmd.Trigger), zap.Error(err))
		e.record(ctx, cc, cmd, false, err.Error(), elapsed)
		if slash {
			// The original reply never went out, so a generic apology is
			// still possible.
			e.sendNotice(s, cc, true, "Something went wrong running that command.")
		}
		return Result{Reason: err.Error(), ResponseTimeMs: elapsed}
	}

	now := e.clock.Now()
	if cmd.CooldownSeconds > 0 {
		if err := e.SetCooldown(ctx, cc.GuildID, cmd.ID, cc.UserID, cmd.CooldownSeconds); err != nil {
			e.logger.Warn("user cooldown set failed", zap.String("guild_id", cc.GuildID), zap.Int64("command_id", cmd.ID), zap.Error(err))
		}
	}
	if cmd.GlobalCooldownSeconds > 0 {
		if err := e.SetCooldown(ctx, cc.GuildID, cmd.ID, "", cmd.GlobalCooldownSeconds); err != nil {
			e.logger.Warn("global cooldown set failed", zap.String("guild_id", cc.GuildID), zap.Int64("command_id", cmd.ID), zap.Error(err))
		}
	}

	elapsed := now.Sub(started).Milliseconds()
	e.record(ctx, cc, cmd, true, "", elapsed)

	if err := e.store.IncrementCommandUsage(ctx, cmd.ID, now); err != nil {
		e.logger.Warn("usage increment failed", zap.Int64("command_id", cmd.ID), zap.Error(err))
	} else {
		// Narrow in-place sync so reads reflect the new count without a
		// registry reload. The stored row stays the source of truth.
		// Handlers run concurrently, so the shared cache entry is only
		// mutated under the registry lock.
		e.mu.Lock()
		cmd.UsageCount++
		cmd.LastUsedAt = now
		e.mu.Unlock()
	}

	return Result{Success: true, ResponseTimeMs: elapsed}
}

func (e *Engine) deliver(s Sender, cc *CommandContext, cmd *CachedCommand, slash bool, content string, embed *discordgo.MessageEmbed) error {
	var embeds []*discordgo.MessageEmbed
	if embed != nil {
		embeds = append(embeds, embed)
	}

	if slash {
		if content == "" && embed == nil {
			content = "Command executed."
		}
		flags := discordgo.MessageFlags(0)
		if cmd.Ephemeral {
			flags = discordgo.MessageFlagsEphemeral
		}
		err := s.InteractionRespond(cc.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{Content: content, Embeds: embeds, Flags: flags},
		})
		if err != nil {
			return err
		}
		if cmd.DeleteResponseAfter > 0 {
			interaction := cc.Interaction
			go func() {
				time.Sleep(time.Duration(cmd.DeleteResponseAfter) * time.Second)
				_ = s.InteractionResponseDelete(interaction)
			}()
		}
		return nil
	}

	if content == "" && embed == nil {
		return nil
	}
	msg, err := s.ChannelMessageSendComplex(cc.ChannelID, &discordgo.MessageSend{Content: content, Embeds: embeds})
	if err != nil {
		return err
	}
	if cmd.DeleteResponseAfter > 0 && msg != nil {
		channelID := cc.ChannelID
		go func() {
			time.Sleep(time.Duration(cmd.DeleteResponseAfter) * time.Second)
			_ = s.ChannelMessageDelete(channelID, msg.ID)
		}()
	}
	return nil
}

// sendNotice delivers a denial or cooldown notice: an auto-deleting public
// message for prefix invocations, an ephemeral reply for slash.
func (e *Engine) sendNotice(s Sender, cc *CommandContext, slash bool, reason string) {
	if slash {
		_ = s.InteractionRespond(cc.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{Content: reason, Flags: discordgo.MessageFlagsEphemeral},
		})
		return
	}
	msg, err := s.ChannelMessageSendComplex(cc.ChannelID, &discordgo.MessageSend{Content: reason})
	if err != nil || msg == nil {
		return
	}
	channelID := cc.ChannelID
	delay := time.Duration(e.opts.NoticeDeleteSeconds) * time.Second
	go func() {
		time.Sleep(delay)
		_ = s.ChannelMessageDelete(channelID, msg.ID)
	}()
}

func (e *Engine) record(ctx context.Context, cc *CommandContext, cmd *CachedCommand, success bool, errorMessage string, responseTimeMs int64) {
	log := storage.CommandLog{
		GuildID:        cc.GuildID,
		CommandID:      cmd.ID,
		CommandName:    cmd.Trigger,
		UserID:         cc.UserID,
		ChannelID:      cc.ChannelID,
		Success:        success,
		ErrorMessage:   errorMessage,
		ResponseTimeMs: responseTimeMs,
		CreatedAt:      e.clock.Now(),
	}
	if err := e.store.AddCommandLog(ctx, log); err != nil {
		e.logger.Warn("analytics write failed", zap.String("guild_id", cc.GuildID), zap.Int64("command_id", cmd.ID), zap.Error(err))
	}
}
