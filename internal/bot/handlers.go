package bot

import (
	"context"
	"strings"

	"herald-bot/internal/engine"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready", zap.String("user", session.State.User.Username), zap.Int("guilds", len(event.Guilds)))
}

// onGuildCreate fires for every guild at connect and on later joins. It is
// the single place the per-guild registry gets its initial load.
func (b *Bot) onGuildCreate(session *discordgo.Session, event *discordgo.GuildCreate) {
	if event.Guild == nil || event.Guild.Unavailable {
		return
	}
	ctx := context.Background()
	if err := b.engine.LoadCommands(ctx, event.Guild.ID); err != nil {
		b.logger.Error("command load failed", zap.String("guild_id", event.Guild.ID), zap.Error(err))
		return
	}
	if b.cfg.RegisterSlashCommands {
		if err := b.SyncSlashCommands(event.Guild.ID); err != nil {
			b.logger.Error("slash sync failed", zap.String("guild_id", event.Guild.ID), zap.Error(err))
		}
	}
}

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.Author.Bot {
		return
	}
	if msg.GuildID == "" {
		return
	}
	if !strings.HasPrefix(msg.Content, b.cfg.CommandPrefix) {
		return
	}

	fields := strings.Fields(strings.TrimPrefix(msg.Content, b.cfg.CommandPrefix))
	if len(fields) == 0 {
		return
	}
	trigger, args := fields[0], fields[1:]

	cmd, ok := b.engine.FindCommand(msg.GuildID, trigger)
	if !ok || !cmd.AllowsPrefix() {
		return
	}

	cc := &engine.CommandContext{
		GuildID:       msg.GuildID,
		ChannelID:     msg.ChannelID,
		MessageID:     msg.ID,
		UserID:        msg.Author.ID,
		Username:      msg.Author.Username,
		Discriminator: msg.Author.Discriminator,
		User:          msg.Author,
		Member:        msg.Member,
		Guild:         b.guildForID(msg.GuildID),
		Channel:       b.channelForID(msg.ChannelID),
		Args:          args,
		Permissions:   b.memberPermissions(msg.GuildID, msg.ChannelID, msg.Author.ID, msg.Member),
	}

	b.engine.ExecuteCommand(context.Background(), session, cc, cmd)
}

func (b *Bot) onInteractionCreate(session *discordgo.Session, event *discordgo.InteractionCreate) {
	if event.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if event.GuildID == "" {
		return
	}

	data := event.ApplicationCommandData()
	cmd, ok := b.engine.FindCommand(event.GuildID, data.Name)
	if !ok || !cmd.AllowsSlash() {
		return
	}

	var args []string
	for _, opt := range data.Options {
		if opt.Name == "args" && opt.Type == discordgo.ApplicationCommandOptionString {
			args = strings.Fields(opt.StringValue())
		}
	}

	user := event.User
	var member *discordgo.Member
	var perms int64
	if event.Member != nil {
		member = event.Member
		user = event.Member.User
		perms = event.Member.Permissions
	}
	if user == nil {
		return
	}

	cc := &engine.CommandContext{
		GuildID:       event.GuildID,
		ChannelID:     event.ChannelID,
		UserID:        user.ID,
		Username:      user.Username,
		Discriminator: user.Discriminator,
		User:          user,
		Member:        member,
		Guild:         b.guildForID(event.GuildID),
		Channel:       b.channelForID(event.ChannelID),
		Args:          args,
		Permissions:   perms,
		Interaction:   event.Interaction,
	}

	b.engine.ExecuteSlashCommand(context.Background(), session, cc, cmd)
}

func (b *Bot) guildForID(guildID string) *discordgo.Guild {
	guild, err := b.session.State.Guild(guildID)
	if err == nil && guild != nil {
		return guild
	}
	guild, _ = b.session.Guild(guildID)
	return guild
}

func (b *Bot) channelForID(channelID string) *discordgo.Channel {
	channel, err := b.session.State.Channel(channelID)
	if err == nil && channel != nil {
		return channel
	}
	channel, _ = b.session.Channel(channelID)
	return channel
}

// memberPermissions computes the effective permission set for a message
// author. Gateway messages do not carry permissions the way interactions
// do, so this resolves them from state, falling back to role accumulation.
func (b *Bot) memberPermissions(guildID, channelID, userID string, member *discordgo.Member) int64 {
	perms, err := b.session.State.UserChannelPermissions(userID, channelID)
	if err == nil {
		return perms
	}

	guild := b.guildForID(guildID)
	if guild == nil || member == nil {
		return 0
	}
	roleMap := make(map[string]*discordgo.Role, len(guild.Roles))
	for _, role := range guild.Roles {
		roleMap[role.ID] = role
	}
	var accumulated int64
	if everyone := roleMap[guild.ID]; everyone != nil {
		accumulated |= everyone.Permissions
	}
	for _, roleID := range member.Roles {
		if role := roleMap[roleID]; role != nil {
			accumulated |= role.Permissions
		}
	}
	return accumulated
}
