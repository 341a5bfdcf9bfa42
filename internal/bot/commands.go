package bot

import (
	"regexp"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Discord's constraints on chat input command names.
var slashNamePattern = regexp.MustCompile(`^[-_a-z0-9]{1,32}$`)

// SyncSlashCommands overwrites a guild's registered slash commands with the
// current registry contents. Triggers that cannot be slash command names are
// skipped with a warning rather than failing the whole sync.
func (b *Bot) SyncSlashCommands(guildID string) error {
	appID := b.session.State.User.ID

	var commands []*discordgo.ApplicationCommand
	for _, cmd := range b.engine.Commands(guildID) {
		if !cmd.AllowsSlash() || cmd.Hidden {
			continue
		}
		if !slashNamePattern.MatchString(cmd.Trigger) {
			b.logger.Warn("trigger not usable as a slash command name", zap.String("guild_id", guildID), zap.String("trigger", cmd.Trigger))
			continue
		}
		commands = append(commands, &discordgo.ApplicationCommand{
			Name:        cmd.Trigger,
			Description: slashDescription(cmd.Category),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "args",
					Description: "Arguments passed to the command",
					Required:    false,
				},
			},
		})
	}

	_, err := b.session.ApplicationCommandBulkOverwrite(appID, guildID, commands)
	return err
}

func slashDescription(category string) string {
	if category == "" {
		return "Custom server command"
	}
	return "Custom server command (" + category + ")"
}
