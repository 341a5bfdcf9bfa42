package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// CustomCommand is the persistent form of a guild-defined command. The
// Aliases and access-control fields hold JSON-serialized string lists; the
// engine parses them once per registry load.
type CustomCommand struct {
	ID                    int64
	GuildID               string
	Trigger               string
	Aliases               string
	Response              string
	EmbedJSON             string
	CommandType           string
	IsEnabled             bool
	IsDraft               bool
	IsHidden              bool
	Category              string
	RequiredRoleIDs       string
	DeniedRoleIDs         string
	RequiredChannelIDs    string
	RequiredPermissions   string
	CooldownSeconds       int
	GlobalCooldownSeconds int
	DeleteUserMessage     bool
	DeleteResponseAfter   int
	MentionUser           bool
	Ephemeral             bool
	UsageCount            int64
	LastUsedAt            *time.Time
}

const commandColumns = `
	id, guild_id, "trigger", aliases, response, embed_json, command_type,
	is_enabled, is_draft, is_hidden, category,
	required_role_ids, denied_role_ids, required_channel_ids, required_permissions,
	cooldown_seconds, global_cooldown_seconds,
	delete_user_message, delete_response_after, mention_user, ephemeral,
	usage_count, last_used_at`

func scanCommand(row interface{ Scan(...any) error }) (CustomCommand, error) {
	var cmd CustomCommand
	var enabled, draft, hidden, deleteMsg, mention, ephemeral int
	var lastUsed sql.NullInt64
	err := row.Scan(
		&cmd.ID, &cmd.GuildID, &cmd.Trigger, &cmd.Aliases, &cmd.Response, &cmd.EmbedJSON, &cmd.CommandType,
		&enabled, &draft, &hidden, &cmd.Category,
		&cmd.RequiredRoleIDs, &cmd.DeniedRoleIDs, &cmd.RequiredChannelIDs, &cmd.RequiredPermissions,
		&cmd.CooldownSeconds, &cmd.GlobalCooldownSeconds,
		&deleteMsg, &cmd.DeleteResponseAfter, &mention, &ephemeral,
		&cmd.UsageCount, &lastUsed,
	)
	if err != nil {
		return CustomCommand{}, err
	}
	cmd.IsEnabled = enabled == 1
	cmd.IsDraft = draft == 1
	cmd.IsHidden = hidden == 1
	cmd.DeleteUserMessage = deleteMsg == 1
	cmd.MentionUser = mention == 1
	cmd.Ephemeral = ephemeral == 1
	if lastUsed.Valid {
		value := time.Unix(lastUsed.Int64, 0)
		cmd.LastUsedAt = &value
	}
	return cmd, nil
}

// ListEnabledCommands returns every enabled, non-draft command for a guild.
// Drafts and disabled commands are invisible to the registry by contract.
func (s *Store) ListEnabledCommands(ctx context.Context, guildID string) ([]CustomCommand, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+commandColumns+`
		FROM custom_commands
		WHERE guild_id = ? AND is_enabled = 1 AND is_draft = 0
		ORDER BY "trigger"
	`, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var commands []CustomCommand
	for rows.Next() {
		cmd, err := scanCommand(rows)
		if err != nil {
			return nil, err
		}
		commands = append(commands, cmd)
	}
	return commands, rows.Err()
}

// ListCommands returns every command for a guild, drafts included. Used by
// the admin API, not by the hot path.
func (s *Store) ListCommands(ctx context.Context, guildID string) ([]CustomCommand, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+commandColumns+`
		FROM custom_commands
		WHERE guild_id = ?
		ORDER BY "trigger"
	`, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var commands []CustomCommand
	for rows.Next() {
		cmd, err := scanCommand(rows)
		if err != nil {
			return nil, err
		}
		commands = append(commands, cmd)
	}
	return commands, rows.Err()
}

func (s *Store) GetCommand(ctx context.Context, id int64) (CustomCommand, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+commandColumns+`
		FROM custom_commands
		WHERE id = ?
	`, id)
	cmd, err := scanCommand(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CustomCommand{}, false, nil
		}
		return CustomCommand{}, false, err
	}
	return cmd, true, nil
}

func (s *Store) CreateCommand(ctx context.Context, cmd CustomCommand) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO custom_commands (
			guild_id, "trigger", aliases, response, embed_json, command_type,
			is_enabled, is_draft, is_hidden, category,
			required_role_ids, denied_role_ids, required_channel_ids, required_permissions,
			cooldown_seconds, global_cooldown_seconds,
			delete_user_message, delete_response_after, mention_user, ephemeral,
			usage_count, last_used_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, NULL)
	`,
		cmd.GuildID, cmd.Trigger, orJSONList(cmd.Aliases), cmd.Response, cmd.EmbedJSON, orCommandType(cmd.CommandType),
		boolToInt(cmd.IsEnabled), boolToInt(cmd.IsDraft), boolToInt(cmd.IsHidden), cmd.Category,
		orJSONList(cmd.RequiredRoleIDs), orJSONList(cmd.DeniedRoleIDs), orJSONList(cmd.RequiredChannelIDs), orJSONList(cmd.RequiredPermissions),
		cmd.CooldownSeconds, cmd.GlobalCooldownSeconds,
		boolToInt(cmd.DeleteUserMessage), cmd.DeleteResponseAfter, boolToInt(cmd.MentionUser), boolToInt(cmd.Ephemeral),
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *Store) UpdateCommand(ctx context.Context, cmd CustomCommand) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE custom_commands SET
			"trigger" = ?, aliases = ?, response = ?, embed_json = ?, command_type = ?,
			is_enabled = ?, is_draft = ?, is_hidden = ?, category = ?,
			required_role_ids = ?, denied_role_ids = ?, required_channel_ids = ?, required_permissions = ?,
			cooldown_seconds = ?, global_cooldown_seconds = ?,
			delete_user_message = ?, delete_response_after = ?, mention_user = ?, ephemeral = ?
		WHERE id = ? AND guild_id = ?
	`,
		cmd.Trigger, orJSONList(cmd.Aliases), cmd.Response, cmd.EmbedJSON, orCommandType(cmd.CommandType),
		boolToInt(cmd.IsEnabled), boolToInt(cmd.IsDraft), boolToInt(cmd.IsHidden), cmd.Category,
		orJSONList(cmd.RequiredRoleIDs), orJSONList(cmd.DeniedRoleIDs), orJSONList(cmd.RequiredChannelIDs), orJSONList(cmd.RequiredPermissions),
		cmd.CooldownSeconds, cmd.GlobalCooldownSeconds,
		boolToInt(cmd.DeleteUserMessage), cmd.DeleteResponseAfter, boolToInt(cmd.MentionUser), boolToInt(cmd.Ephemeral),
		cmd.ID, cmd.GuildID,
	)
	return err
}

func (s *Store) DeleteCommand(ctx context.Context, guildID string, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM custom_commands WHERE id = ? AND guild_id = ?`, id, guildID)
	return err
}

// IncrementCommandUsage bumps the persistent usage counter and stamps the
// last-used time. The engine mirrors the same change onto its cached copy.
func (s *Store) IncrementCommandUsage(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE custom_commands SET usage_count = usage_count + 1, last_used_at = ? WHERE id = ?
	`, at.Unix(), id)
	return err
}

func orJSONList(value string) string {
	if value == "" {
		return "[]"
	}
	return value
}

func orCommandType(value string) string {
	switch value {
	case "prefix", "slash", "both":
		return value
	default:
		return "both"
	}
}
