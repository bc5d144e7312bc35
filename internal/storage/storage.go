package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store is the Postgres-backed Repository.
type Store struct {
	db *sql.DB
}

func New(databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

func (s *Store) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Migrate(ctx context.Context) error {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return err
	}

	var files []string
	for _, entry := range entries {
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := migrations.ReadFile(path.Join("migrations", file))
		if err != nil {
			return err
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			if isIgnorableMigrationError(err) {
				continue
			}
			return fmt.Errorf("migration %s failed: %w", file, err)
		}
	}
	return nil
}

func (s *Store) EnsureGuildPolicy(ctx context.Context, defaults GuildPolicy) (GuildPolicy, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO guild_policies (guild_id, automod_enabled, levels_enabled, welcome_enabled, verification_enabled)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (guild_id) DO UPDATE SET guild_id = excluded.guild_id
		RETURNING guild_id, automod_enabled, levels_enabled, welcome_enabled, verification_enabled`,
		defaults.GuildID, defaults.AutomodEnabled, defaults.LevelsEnabled, defaults.WelcomeEnabled, defaults.VerificationEnabled)
	return scanGuildPolicy(row)
}

func (s *Store) UpdateGuildPolicy(ctx context.Context, defaults GuildPolicy, update GuildPolicyUpdate) (GuildPolicy, error) {
	var result GuildPolicy
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO guild_policies (guild_id, automod_enabled, levels_enabled, welcome_enabled, verification_enabled)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (guild_id) DO NOTHING`,
			defaults.GuildID, defaults.AutomodEnabled, defaults.LevelsEnabled, defaults.WelcomeEnabled, defaults.VerificationEnabled); err != nil {
			return err
		}
		current, err := scanGuildPolicy(tx.QueryRowContext(ctx, `
			SELECT guild_id, automod_enabled, levels_enabled, welcome_enabled, verification_enabled
			FROM guild_policies WHERE guild_id = $1 FOR UPDATE`, defaults.GuildID))
		if err != nil {
			return err
		}
		update.apply(&current)
		_, err = tx.ExecContext(ctx, `
			UPDATE guild_policies
			SET automod_enabled = $2, levels_enabled = $3, welcome_enabled = $4, verification_enabled = $5
			WHERE guild_id = $1`,
			current.GuildID, current.AutomodEnabled, current.LevelsEnabled, current.WelcomeEnabled, current.VerificationEnabled)
		result = current
		return err
	})
	return result, err
}

func scanGuildPolicy(row *sql.Row) (GuildPolicy, error) {
	var p GuildPolicy
	err := row.Scan(&p.GuildID, &p.AutomodEnabled, &p.LevelsEnabled, &p.WelcomeEnabled, &p.VerificationEnabled)
	return p, err
}

func (s *Store) EnsureAutomodPolicy(ctx context.Context, defaults AutomodPolicy) (AutomodPolicy, error) {
	words, err := encodeWords(defaults.BadWords)
	if err != nil {
		return AutomodPolicy{}, err
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO automod_policies (guild_id, anti_spam, anti_links, anti_invites, bad_words, max_mentions, max_emojis)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7)
		ON CONFLICT (guild_id) DO UPDATE SET guild_id = excluded.guild_id
		RETURNING guild_id, anti_spam, anti_links, anti_invites, bad_words::text, max_mentions, max_emojis`,
		defaults.GuildID, defaults.AntiSpam, defaults.AntiLinks, defaults.AntiInvites, words, defaults.MaxMentions, defaults.MaxEmojis)
	return scanAutomodPolicy(row)
}

func (s *Store) UpdateAutomodPolicy(ctx context.Context, defaults AutomodPolicy, update AutomodPolicyUpdate) (AutomodPolicy, error) {
	defaultWords, err := encodeWords(defaults.BadWords)
	if err != nil {
		return AutomodPolicy{}, err
	}

	var result AutomodPolicy
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO automod_policies (guild_id, anti_spam, anti_links, anti_invites, bad_words, max_mentions, max_emojis)
			VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7)
			ON CONFLICT (guild_id) DO NOTHING`,
			defaults.GuildID, defaults.AntiSpam, defaults.AntiLinks, defaults.AntiInvites, defaultWords, defaults.MaxMentions, defaults.MaxEmojis); err != nil {
			return err
		}
		current, err := scanAutomodPolicy(tx.QueryRowContext(ctx, `
			SELECT guild_id, anti_spam, anti_links, anti_invites, bad_words::text, max_mentions, max_emojis
			FROM automod_policies WHERE guild_id = $1 FOR UPDATE`, defaults.GuildID))
		if err != nil {
			return err
		}
		update.apply(&current)
		words, err := encodeWords(current.BadWords)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE automod_policies
			SET anti_spam = $2, anti_links = $3, anti_invites = $4, bad_words = $5::jsonb, max_mentions = $6, max_emojis = $7
			WHERE guild_id = $1`,
			current.GuildID, current.AntiSpam, current.AntiLinks, current.AntiInvites, words, current.MaxMentions, current.MaxEmojis)
		result = current
		return err
	})
	return result, err
}

func scanAutomodPolicy(row *sql.Row) (AutomodPolicy, error) {
	var p AutomodPolicy
	var words string
	if err := row.Scan(&p.GuildID, &p.AntiSpam, &p.AntiLinks, &p.AntiInvites, &words, &p.MaxMentions, &p.MaxEmojis); err != nil {
		return AutomodPolicy{}, err
	}
	if err := json.Unmarshal([]byte(words), &p.BadWords); err != nil {
		return AutomodPolicy{}, fmt.Errorf("decode bad words: %w", err)
	}
	return p, nil
}

func (s *Store) EnsureVerification(ctx context.Context, defaults VerificationPolicy) (VerificationPolicy, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO verification_policies (guild_id, channel_id, verified_role_id, intro_message)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (guild_id) DO UPDATE SET guild_id = excluded.guild_id
		RETURNING guild_id, channel_id, verified_role_id, intro_message`,
		defaults.GuildID, defaults.ChannelID, defaults.VerifiedRoleID, defaults.IntroMessage)
	return scanVerification(row)
}

func (s *Store) UpdateVerification(ctx context.Context, defaults VerificationPolicy, update VerificationUpdate) (VerificationPolicy, error) {
	var result VerificationPolicy
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO verification_policies (guild_id, channel_id, verified_role_id, intro_message)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (guild_id) DO NOTHING`,
			defaults.GuildID, defaults.ChannelID, defaults.VerifiedRoleID, defaults.IntroMessage); err != nil {
			return err
		}
		current, err := scanVerification(tx.QueryRowContext(ctx, `
			SELECT guild_id, channel_id, verified_role_id, intro_message
			FROM verification_policies WHERE guild_id = $1 FOR UPDATE`, defaults.GuildID))
		if err != nil {
			return err
		}
		update.apply(&current)
		_, err = tx.ExecContext(ctx, `
			UPDATE verification_policies SET channel_id = $2, verified_role_id = $3, intro_message = $4
			WHERE guild_id = $1`,
			current.GuildID, current.ChannelID, current.VerifiedRoleID, current.IntroMessage)
		result = current
		return err
	})
	return result, err
}

func scanVerification(row *sql.Row) (VerificationPolicy, error) {
	var p VerificationPolicy
	err := row.Scan(&p.GuildID, &p.ChannelID, &p.VerifiedRoleID, &p.IntroMessage)
	return p, err
}

func (s *Store) EnsureWelcome(ctx context.Context, defaults WelcomeConfig) (WelcomeConfig, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO welcome_configs (guild_id, channel_id, message, image_enabled, background_color, text_color, background_image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (guild_id) DO UPDATE SET guild_id = excluded.guild_id
		RETURNING guild_id, channel_id, message, image_enabled, background_color, text_color, background_image_url`,
		defaults.GuildID, defaults.ChannelID, defaults.Message, defaults.ImageEnabled, defaults.BackgroundColor, defaults.TextColor, defaults.BackgroundImageURL)
	return scanWelcome(row)
}

func (s *Store) UpdateWelcome(ctx context.Context, defaults WelcomeConfig, update WelcomeUpdate) (WelcomeConfig, error) {
	var result WelcomeConfig
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO welcome_configs (guild_id, channel_id, message, image_enabled, background_color, text_color, background_image_url)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (guild_id) DO NOTHING`,
			defaults.GuildID, defaults.ChannelID, defaults.Message, defaults.ImageEnabled, defaults.BackgroundColor, defaults.TextColor, defaults.BackgroundImageURL); err != nil {
			return err
		}
		current, err := scanWelcome(tx.QueryRowContext(ctx, `
			SELECT guild_id, channel_id, message, image_enabled, background_color, text_color, background_image_url
			FROM welcome_configs WHERE guild_id = $1 FOR UPDATE`, defaults.GuildID))
		if err != nil {
			return err
		}
		update.apply(&current)
		_, err = tx.ExecContext(ctx, `
			UPDATE welcome_configs
			SET channel_id = $2, message = $3, image_enabled = $4, background_color = $5, text_color = $6, background_image_url = $7
			WHERE guild_id = $1`,
			current.GuildID, current.ChannelID, current.Message, current.ImageEnabled, current.BackgroundColor, current.TextColor, current.BackgroundImageURL)
		result = current
		return err
	})
	return result, err
}

func scanWelcome(row *sql.Row) (WelcomeConfig, error) {
	var w WelcomeConfig
	err := row.Scan(&w.GuildID, &w.ChannelID, &w.Message, &w.ImageEnabled, &w.BackgroundColor, &w.TextColor, &w.BackgroundImageURL)
	return w, err
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func encodeWords(words []string) (string, error) {
	if words == nil {
		words = []string{}
	}
	data, err := json.Marshal(words)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func isIgnorableMigrationError(err error) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	return strings.Contains(message, "already exists")
}
