// Package configstore resolves per-guild policy records, creating them with defaults on first access.
package configstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/Maximus17a/BotRexy/internal/config"
	"github.com/Maximus17a/BotRexy/internal/errs"
	"github.com/Maximus17a/BotRexy/internal/storage"
	"github.com/Maximus17a/BotRexy/internal/utils"
)

const (
	DefaultIntroMessage   = "¡Bienvenido/a a nuestro servidor! Para acceder a todos los canales, por favor lee las reglas y acepta al final."
	DefaultWelcomeMessage = "¡Bienvenido {user} a {server}!"
)

type Store struct {
	repo     storage.Repository
	defaults config.Config
}

func New(repo storage.Repository, cfg config.Config) *Store {
	return &Store{repo: repo, defaults: cfg}
}

func (s *Store) guildDefaults(guildID string) storage.GuildPolicy {
	return storage.GuildPolicy{
		GuildID:        guildID,
		AutomodEnabled: true,
		LevelsEnabled:  true,
	}
}

func (s *Store) automodDefaults(guildID string) storage.AutomodPolicy {
	return storage.AutomodPolicy{
		GuildID:     guildID,
		AntiSpam:    true,
		AntiLinks:   false,
		AntiInvites: true,
		BadWords:    []string{},
		MaxMentions: s.defaults.Automod.MaxMentions,
		MaxEmojis:   s.defaults.Automod.MaxEmojis,
	}
}

func (s *Store) verificationDefaults(guildID string) storage.VerificationPolicy {
	return storage.VerificationPolicy{GuildID: guildID, IntroMessage: DefaultIntroMessage}
}

func (s *Store) welcomeDefaults(guildID string) storage.WelcomeConfig {
	return storage.WelcomeConfig{
		GuildID:         guildID,
		Message:         DefaultWelcomeMessage,
		ImageEnabled:    true,
		BackgroundColor: s.defaults.Welcome.BackgroundColor,
		TextColor:       s.defaults.Welcome.TextColor,
	}
}

func (s *Store) GuildPolicy(ctx context.Context, guildID string) (storage.GuildPolicy, error) {
	policy, err := s.repo.EnsureGuildPolicy(ctx, s.guildDefaults(guildID))
	if err != nil {
		return storage.GuildPolicy{}, unavailable("guild policy", err)
	}
	return policy, nil
}

func (s *Store) UpdateGuildPolicy(ctx context.Context, guildID string, update storage.GuildPolicyUpdate) (storage.GuildPolicy, error) {
	if update.IsEmpty() {
		return s.GuildPolicy(ctx, guildID)
	}
	policy, err := s.repo.UpdateGuildPolicy(ctx, s.guildDefaults(guildID), update)
	if err != nil {
		return storage.GuildPolicy{}, unavailable("guild policy", err)
	}
	return policy, nil
}

func (s *Store) AutomodPolicy(ctx context.Context, guildID string) (storage.AutomodPolicy, error) {
	policy, err := s.repo.EnsureAutomodPolicy(ctx, s.automodDefaults(guildID))
	if err != nil {
		return storage.AutomodPolicy{}, unavailable("automod policy", err)
	}
	return policy, nil
}

func (s *Store) UpdateAutomodPolicy(ctx context.Context, guildID string, update storage.AutomodPolicyUpdate) (storage.AutomodPolicy, error) {
	if err := validateAutomod(update); err != nil {
		return storage.AutomodPolicy{}, err
	}
	if update.IsEmpty() {
		return s.AutomodPolicy(ctx, guildID)
	}
	if update.BadWords != nil {
		words := normalizeWords(*update.BadWords)
		update.BadWords = &words
	}
	policy, err := s.repo.UpdateAutomodPolicy(ctx, s.automodDefaults(guildID), update)
	if err != nil {
		return storage.AutomodPolicy{}, unavailable("automod policy", err)
	}
	return policy, nil
}

func (s *Store) Verification(ctx context.Context, guildID string) (storage.VerificationPolicy, error) {
	policy, err := s.repo.EnsureVerification(ctx, s.verificationDefaults(guildID))
	if err != nil {
		return storage.VerificationPolicy{}, unavailable("verification policy", err)
	}
	return policy, nil
}

func (s *Store) UpdateVerification(ctx context.Context, guildID string, update storage.VerificationUpdate) (storage.VerificationPolicy, error) {
	if update.IsEmpty() {
		return s.Verification(ctx, guildID)
	}
	policy, err := s.repo.UpdateVerification(ctx, s.verificationDefaults(guildID), update)
	if err != nil {
		return storage.VerificationPolicy{}, unavailable("verification policy", err)
	}
	return policy, nil
}

func (s *Store) Welcome(ctx context.Context, guildID string) (storage.WelcomeConfig, error) {
	cfg, err := s.repo.EnsureWelcome(ctx, s.welcomeDefaults(guildID))
	if err != nil {
		return storage.WelcomeConfig{}, unavailable("welcome config", err)
	}
	return cfg, nil
}

func (s *Store) UpdateWelcome(ctx context.Context, guildID string, update storage.WelcomeUpdate) (storage.WelcomeConfig, error) {
	if err := validateWelcome(update); err != nil {
		return storage.WelcomeConfig{}, err
	}
	if update.IsEmpty() {
		return s.Welcome(ctx, guildID)
	}
	cfg, err := s.repo.UpdateWelcome(ctx, s.welcomeDefaults(guildID), update)
	if err != nil {
		return storage.WelcomeConfig{}, unavailable("welcome config", err)
	}
	return cfg, nil
}

func (s *Store) GameRoles(ctx context.Context, guildID string) (storage.GameRoles, error) {
	roles, err := s.repo.GetGameRoles(ctx, guildID)
	if err != nil {
		return storage.GameRoles{}, unavailable("game roles", err)
	}
	return roles, nil
}

func (s *Store) AddGameRole(ctx context.Context, guildID, game, roleID string) (storage.GameRoles, error) {
	game = strings.TrimSpace(game)
	if game == "" || roleID == "" {
		return storage.GameRoles{}, fmt.Errorf("%w: game and role are required", errs.ErrInvalidArgument)
	}
	if !utils.IsSnowflake(roleID) {
		return storage.GameRoles{}, fmt.Errorf("%w: role %q is not a Discord ID", errs.ErrInvalidArgument, roleID)
	}
	current, err := s.repo.GetGameRoles(ctx, guildID)
	if err != nil {
		return storage.GameRoles{}, unavailable("game roles", err)
	}
	// One button per role: the panel message cannot repeat a custom id.
	for bound, id := range current.Roles {
		if id == roleID && bound != game {
			return storage.GameRoles{}, fmt.Errorf("%w: role %s is already bound to %q", errs.ErrInvalidArgument, roleID, bound)
		}
	}
	roles, err := s.repo.SetGameRole(ctx, guildID, game, roleID)
	if err != nil {
		return storage.GameRoles{}, unavailable("game roles", err)
	}
	return roles, nil
}

func (s *Store) RemoveGameRole(ctx context.Context, guildID, game string) (storage.GameRoles, error) {
	roles, removed, err := s.repo.RemoveGameRole(ctx, guildID, strings.TrimSpace(game))
	if err != nil {
		return storage.GameRoles{}, unavailable("game roles", err)
	}
	if !removed {
		return roles, fmt.Errorf("%w: game %q", errs.ErrTargetNotFound, game)
	}
	return roles, nil
}

func (s *Store) SetGameRolePanel(ctx context.Context, guildID, channelID, messageID string) (storage.GameRoles, error) {
	roles, err := s.repo.SetGameRolePanel(ctx, guildID, channelID, messageID)
	if err != nil {
		return storage.GameRoles{}, unavailable("game roles", err)
	}
	return roles, nil
}

func unavailable(what string, err error) error {
	return fmt.Errorf("%w: %s: %v", errs.ErrConfigUnavailable, what, err)
}

func normalizeWords(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	result := make([]string, 0, len(words))
	for _, word := range words {
		word = strings.ToLower(strings.TrimSpace(word))
		if word == "" {
			continue
		}
		if _, ok := seen[word]; ok {
			continue
		}
		seen[word] = struct{}{}
		result = append(result, word)
	}
	return result
}
