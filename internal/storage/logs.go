package storage

import (
	"context"
	"time"
)

// CommandLog is one appended row per command invocation attempt. There is
// no update or delete path; retention is left to operators.
type CommandLog struct {
	ID             int64
	GuildID        string
	CommandID      int64
	CommandName    string
	UserID         string
	ChannelID      string
	Success        bool
	ErrorMessage   string
	ResponseTimeMs int64
	CreatedAt      time.Time
}

func (s *Store) AddCommandLog(ctx context.Context, log CommandLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO command_logs (guild_id, command_id, command_name, user_id, channel_id, success, error_message, response_time_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, log.GuildID, log.CommandID, log.CommandName, log.UserID, log.ChannelID, boolToInt(log.Success), log.ErrorMessage, log.ResponseTimeMs, log.CreatedAt.Unix())
	return err
}

func (s *Store) ListCommandLogs(ctx context.Context, guildID string, since time.Time) ([]CommandLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guild_id, command_id, command_name, user_id, channel_id, success, error_message, response_time_ms, created_at
		FROM command_logs
		WHERE guild_id = ? AND created_at >= ?
		ORDER BY created_at DESC
	`, guildID, since.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []CommandLog
	for rows.Next() {
		var log CommandLog
		var success int
		var created int64
		if err := rows.Scan(&log.ID, &log.GuildID, &log.CommandID, &log.CommandName, &log.UserID, &log.ChannelID, &success, &log.ErrorMessage, &log.ResponseTimeMs, &created); err != nil {
			return nil, err
		}
		log.Success = success == 1
		log.CreatedAt = time.Unix(created, 0)
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
