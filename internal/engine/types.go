package engine

import (
	"encoding/json"
	"strings"
	"time"

	"herald-bot/internal/storage"

	"github.com/bwmarrin/discordgo"
)

// Command types gate which ingestion path may run a command.
const (
	TypePrefix = "prefix"
	TypeSlash  = "slash"
	TypeBoth   = "both"
)

// CachedCommand is the in-memory form of a custom command with the alias
// list and access-control lists parsed out of their serialized columns, so
// the hot path never touches JSON.
type CachedCommand struct {
	ID                    int64
	GuildID               string
	Trigger               string
	Aliases               []string
	Response              string
	EmbedJSON             string
	Type                  string
	Hidden                bool
	Category              string
	RequiredRoleIDs       []string
	DeniedRoleIDs         []string
	RequiredChannelIDs    []string
	RequiredPermissions   []string
	CooldownSeconds       int
	GlobalCooldownSeconds int
	DeleteUserMessage     bool
	DeleteResponseAfter   int
	MentionUser           bool
	Ephemeral             bool
	UsageCount            int64
	LastUsedAt            time.Time
}

// AllowsPrefix reports whether the command may run from a chat message.
func (c *CachedCommand) AllowsPrefix() bool {
	return c.Type == TypePrefix || c.Type == TypeBoth
}

// AllowsSlash reports whether the command may run from an interaction.
func (c *CachedCommand) AllowsSlash() bool {
	return c.Type == TypeSlash || c.Type == TypeBoth
}

func newCachedCommand(cmd storage.CustomCommand) *CachedCommand {
	cached := &CachedCommand{
		ID:                    cmd.ID,
		GuildID:               cmd.GuildID,
		Trigger:               strings.ToLower(cmd.Trigger),
		Aliases:               parseStringList(cmd.Aliases),
		Response:              cmd.Response,
		EmbedJSON:             cmd.EmbedJSON,
		Type:                  cmd.CommandType,
		Hidden:                cmd.IsHidden,
		Category:              cmd.Category,
		RequiredRoleIDs:       parseStringList(cmd.RequiredRoleIDs),
		DeniedRoleIDs:         parseStringList(cmd.DeniedRoleIDs),
		RequiredChannelIDs:    parseStringList(cmd.RequiredChannelIDs),
		RequiredPermissions:   parseStringList(cmd.RequiredPermissions),
		CooldownSeconds:       cmd.CooldownSeconds,
		GlobalCooldownSeconds: cmd.GlobalCooldownSeconds,
		DeleteUserMessage:     cmd.DeleteUserMessage,
		DeleteResponseAfter:   cmd.DeleteResponseAfter,
		MentionUser:           cmd.MentionUser,
		Ephemeral:             cmd.Ephemeral,
		UsageCount:            cmd.UsageCount,
	}
	if cmd.LastUsedAt != nil {
		cached.LastUsedAt = *cmd.LastUsedAt
	}
	for i, alias := range cached.Aliases {
		cached.Aliases[i] = strings.ToLower(alias)
	}
	return cached
}

// parseStringList decodes a JSON string array, recovering to an empty list
// on malformed input. An empty list means "no restriction".
func parseStringList(raw string) []string {
	if raw == "" || raw == "[]" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil
	}
	return values
}

// CommandContext carries everything one invocation knows about its caller.
// The bot layer builds it from a message or an interaction; the engine and
// its resolvers treat it as read-only.
type CommandContext struct {
	GuildID       string
	ChannelID     string
	MessageID     string
	UserID        string
	Username      string
	Discriminator string
	User          *discordgo.User
	Member        *discordgo.Member
	Guild         *discordgo.Guild
	Channel       *discordgo.Channel
	Args          []string
	Permissions   int64
	Interaction   *discordgo.Interaction
}
