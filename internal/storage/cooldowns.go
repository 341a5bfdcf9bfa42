package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// LatestCooldown returns the latest-expiring unexpired cooldown row gating
// this command for this user, considering both the per-user row and the
// global (NULL user) row. Duplicate active rows are tolerated; MAX wins.
func (s *Store) LatestCooldown(ctx context.Context, guildID string, commandID int64, userID string, now time.Time) (time.Time, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT MAX(expires_at)
		FROM command_cooldowns
		WHERE guild_id = ? AND command_id = ?
		  AND (user_id = ? OR user_id IS NULL)
		  AND expires_at > ?
	`, guildID, commandID, userID, now.Unix())

	var expires sql.NullInt64
	if err := row.Scan(&expires); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	if !expires.Valid {
		return time.Time{}, false, nil
	}
	return time.Unix(expires.Int64, 0), true, nil
}

// AddCooldown inserts a cooldown row. An empty userID stores NULL, which
// marks the row as a global cooldown applying to every user.
func (s *Store) AddCooldown(ctx context.Context, guildID string, commandID int64, userID string, expiresAt time.Time) error {
	user := sql.NullString{String: userID, Valid: userID != ""}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO command_cooldowns (guild_id, command_id, user_id, expires_at)
		VALUES (?, ?, ?, ?)
	`, guildID, commandID, user, expiresAt.Unix())
	return err
}

// CleanupExpiredCooldowns deletes every row whose expiry has passed and
// reports how many went away. Runs on a periodic timer owned by the bot.
func (s *Store) CleanupExpiredCooldowns(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM command_cooldowns WHERE expires_at < ?`, now.Unix())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
