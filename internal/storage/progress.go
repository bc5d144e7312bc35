package storage

import (
	"context"
	"database/sql"
	"errors"
)

func (s *Store) GetProgress(ctx context.Context, guildID, userID string) (UserProgress, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT guild_id, user_id, xp, level, message_count
		FROM user_progress WHERE guild_id = $1 AND user_id = $2`, guildID, userID)

	var p UserProgress
	err := row.Scan(&p.GuildID, &p.UserID, &p.XP, &p.Level, &p.MessageCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return UserProgress{GuildID: guildID, UserID: userID}, nil
		}
		return UserProgress{}, err
	}
	return p, nil
}

// AwardXP adds delta to the user's xp, increments the message count and stores the level
// derived from the new xp, all under a row lock.
func (s *Store) AwardXP(ctx context.Context, guildID, userID string, delta int, levelFor func(xp int) int) (UserProgress, UserProgress, error) {
	var before, after UserProgress
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_progress (guild_id, user_id) VALUES ($1, $2)
			ON CONFLICT (guild_id, user_id) DO NOTHING`, guildID, userID); err != nil {
			return err
		}
		row := tx.QueryRowContext(ctx, `
			SELECT guild_id, user_id, xp, level, message_count
			FROM user_progress WHERE guild_id = $1 AND user_id = $2 FOR UPDATE`, guildID, userID)
		if err := row.Scan(&before.GuildID, &before.UserID, &before.XP, &before.Level, &before.MessageCount); err != nil {
			return err
		}

		after = before
		after.XP += delta
		after.MessageCount++
		after.Level = levelFor(after.XP)

		_, err := tx.ExecContext(ctx, `
			UPDATE user_progress SET xp = $3, level = $4, message_count = $5
			WHERE guild_id = $1 AND user_id = $2`,
			guildID, userID, after.XP, after.Level, after.MessageCount)
		return err
	})
	return before, after, err
}

func (s *Store) ResetProgress(ctx context.Context, guildID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE user_progress SET xp = 0, level = 0
		WHERE guild_id = $1 AND user_id = $2`, guildID, userID)
	return err
}

func (s *Store) Leaderboard(ctx context.Context, guildID string, limit int) ([]UserProgress, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT guild_id, user_id, xp, level, message_count
		FROM user_progress
		WHERE guild_id = $1
		ORDER BY level DESC, xp DESC
		LIMIT $2`, guildID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []UserProgress
	for rows.Next() {
		var p UserProgress
		if err := rows.Scan(&p.GuildID, &p.UserID, &p.XP, &p.Level, &p.MessageCount); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}
