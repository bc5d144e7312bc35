package storage

import (
	"context"
	"database/sql"
	"time"
)

func (s *Store) AddModerationLog(ctx context.Context, entry ModerationLogEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO moderation_logs (id, guild_id, user_id, moderator_id, action, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.GuildID, entry.UserID, entry.ModeratorID, entry.Action, entry.Reason, entry.CreatedAt)
	return err
}

// ListModerationLogs returns the newest entries first. An empty userID matches every user.
func (s *Store) ListModerationLogs(ctx context.Context, guildID, userID string, limit int) ([]ModerationLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id::text, guild_id, user_id, moderator_id, action, reason, created_at
		FROM moderation_logs
		WHERE guild_id = $1 AND ($2 = '' OR user_id = $2)
		ORDER BY created_at DESC
		LIMIT $3`, guildID, userID, limit)
	if err != nil {
		return nil, err
	}
	return scanModerationLogs(rows)
}

func (s *Store) ListModerationLogsSince(ctx context.Context, guildID string, since time.Time) ([]ModerationLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id::text, guild_id, user_id, moderator_id, action, reason, created_at
		FROM moderation_logs
		WHERE guild_id = $1 AND created_at >= $2
		ORDER BY created_at DESC`, guildID, since)
	if err != nil {
		return nil, err
	}
	return scanModerationLogs(rows)
}

func scanModerationLogs(rows *sql.Rows) ([]ModerationLogEntry, error) {
	defer rows.Close()

	var logs []ModerationLogEntry
	for rows.Next() {
		var entry ModerationLogEntry
		var reason sql.NullString
		if err := rows.Scan(&entry.ID, &entry.GuildID, &entry.UserID, &entry.ModeratorID, &entry.Action, &reason, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if reason.Valid {
			value := reason.String
			entry.Reason = &value
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}
