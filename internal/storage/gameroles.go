package storage

import (
	"context"
	"database/sql"
	"errors"
)

func (s *Store) GetGameRoles(ctx context.Context, guildID string) (GameRoles, error) {
	return getGameRoles(ctx, s.db, guildID)
}

func (s *Store) SetGameRole(ctx context.Context, guildID, game, roleID string) (GameRoles, error) {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO game_role_bindings (guild_id, game, role_id) VALUES ($1, $2, $3)
		ON CONFLICT (guild_id, game) DO UPDATE SET role_id = excluded.role_id`, guildID, game, roleID); err != nil {
		return GameRoles{}, err
	}
	return getGameRoles(ctx, s.db, guildID)
}

func (s *Store) RemoveGameRole(ctx context.Context, guildID, game string) (GameRoles, bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM game_role_bindings WHERE guild_id = $1 AND game = $2`, guildID, game)
	if err != nil {
		return GameRoles{}, false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return GameRoles{}, false, err
	}
	roles, err := getGameRoles(ctx, s.db, guildID)
	return roles, affected > 0, err
}

func (s *Store) SetGameRolePanel(ctx context.Context, guildID, channelID, messageID string) (GameRoles, error) {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO game_role_panels (guild_id, channel_id, message_id) VALUES ($1, $2, $3)
		ON CONFLICT (guild_id) DO UPDATE SET channel_id = excluded.channel_id, message_id = excluded.message_id`,
		guildID, channelID, messageID); err != nil {
		return GameRoles{}, err
	}
	return getGameRoles(ctx, s.db, guildID)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getGameRoles(ctx context.Context, q querier, guildID string) (GameRoles, error) {
	result := GameRoles{GuildID: guildID, Roles: make(map[string]string)}

	rows, err := q.QueryContext(ctx, `SELECT game, role_id FROM game_role_bindings WHERE guild_id = $1 ORDER BY game`, guildID)
	if err != nil {
		return GameRoles{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var game, roleID string
		if err := rows.Scan(&game, &roleID); err != nil {
			return GameRoles{}, err
		}
		result.Roles[game] = roleID
	}
	if err := rows.Err(); err != nil {
		return GameRoles{}, err
	}

	err = q.QueryRowContext(ctx, `SELECT channel_id, message_id FROM game_role_panels WHERE guild_id = $1`, guildID).
		Scan(&result.ChannelID, &result.MessageID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return GameRoles{}, err
	}
	return result, nil
}
