package storage

import "context"

// ListVariables returns the guild's template variables as a name/value map.
func (s *Store) ListVariables(ctx context.Context, guildID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, value FROM command_variables WHERE guild_id = ?`, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	variables := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		variables[name] = value
	}
	return variables, rows.Err()
}

func (s *Store) UpsertVariable(ctx context.Context, guildID, name, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO command_variables (guild_id, name, value) VALUES (?, ?, ?)
		ON CONFLICT(guild_id, name) DO UPDATE SET value = excluded.value
	`, guildID, name, value)
	return err
}

func (s *Store) DeleteVariable(ctx context.Context, guildID, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM command_variables WHERE guild_id = ? AND name = ?`, guildID, name)
	return err
}
