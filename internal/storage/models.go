package storage

import (
	"context"
	"time"
)

type GuildPolicy struct {
	GuildID             string `json:"guild_id"`
	AutomodEnabled      bool   `json:"automod_enabled"`
	LevelsEnabled       bool   `json:"levels_enabled"`
	WelcomeEnabled      bool   `json:"welcome_enabled"`
	VerificationEnabled bool   `json:"verification_enabled"`
}

type AutomodPolicy struct {
	GuildID     string   `json:"guild_id"`
	AntiSpam    bool     `json:"anti_spam"`
	AntiLinks   bool     `json:"anti_links"`
	AntiInvites bool     `json:"anti_invites"`
	BadWords    []string `json:"bad_words"`
	MaxMentions int      `json:"max_mentions"`
	MaxEmojis   int      `json:"max_emojis"`
}

type VerificationPolicy struct {
	GuildID        string `json:"guild_id"`
	ChannelID      string `json:"channel_id"`
	VerifiedRoleID string `json:"verified_role_id"`
	IntroMessage   string `json:"intro_message"`
}

type WelcomeConfig struct {
	GuildID            string `json:"guild_id"`
	ChannelID          string `json:"channel_id"`
	Message            string `json:"message"`
	ImageEnabled       bool   `json:"image_enabled"`
	BackgroundColor    string `json:"background_color"`
	TextColor          string `json:"text_color"`
	BackgroundImageURL string `json:"background_image_url"`
}

// GameRoles maps game names to role ids and locates the published panel, if any.
type GameRoles struct {
	GuildID   string            `json:"guild_id"`
	Roles     map[string]string `json:"roles"`
	ChannelID string            `json:"channel_id"`
	MessageID string            `json:"message_id"`
}

type UserProgress struct {
	GuildID      string `json:"guild_id"`
	UserID       string `json:"user_id"`
	XP           int    `json:"xp"`
	Level        int    `json:"level"`
	MessageCount int    `json:"message_count"`
}

type ModerationLogEntry struct {
	ID          string    `json:"id"`
	GuildID     string    `json:"guild_id"`
	UserID      string    `json:"user_id"`
	ModeratorID string    `json:"moderator_id"`
	Action      string    `json:"action"`
	Reason      *string   `json:"reason"`
	CreatedAt   time.Time `json:"created_at"`
}

// Pointer fields distinguish "not provided" (nil) from "set to zero value".

type GuildPolicyUpdate struct {
	AutomodEnabled      *bool `json:"automod_enabled"`
	LevelsEnabled       *bool `json:"levels_enabled"`
	WelcomeEnabled      *bool `json:"welcome_enabled"`
	VerificationEnabled *bool `json:"verification_enabled"`
}

func (u *GuildPolicyUpdate) IsEmpty() bool {
	if u == nil {
		return true
	}
	return u.AutomodEnabled == nil &&
		u.LevelsEnabled == nil &&
		u.WelcomeEnabled == nil &&
		u.VerificationEnabled == nil
}

func (u *GuildPolicyUpdate) apply(p *GuildPolicy) {
	setBool(&p.AutomodEnabled, u.AutomodEnabled)
	setBool(&p.LevelsEnabled, u.LevelsEnabled)
	setBool(&p.WelcomeEnabled, u.WelcomeEnabled)
	setBool(&p.VerificationEnabled, u.VerificationEnabled)
}

type AutomodPolicyUpdate struct {
	AntiSpam    *bool     `json:"anti_spam"`
	AntiLinks   *bool     `json:"anti_links"`
	AntiInvites *bool     `json:"anti_invites"`
	BadWords    *[]string `json:"bad_words"`
	MaxMentions *int      `json:"max_mentions"`
	MaxEmojis   *int      `json:"max_emojis"`
}

func (u *AutomodPolicyUpdate) IsEmpty() bool {
	if u == nil {
		return true
	}
	return u.AntiSpam == nil &&
		u.AntiLinks == nil &&
		u.AntiInvites == nil &&
		u.BadWords == nil &&
		u.MaxMentions == nil &&
		u.MaxEmojis == nil
}

func (u *AutomodPolicyUpdate) apply(p *AutomodPolicy) {
	setBool(&p.AntiSpam, u.AntiSpam)
	setBool(&p.AntiLinks, u.AntiLinks)
	setBool(&p.AntiInvites, u.AntiInvites)
	if u.BadWords != nil {
		p.BadWords = append([]string(nil), (*u.BadWords)...)
	}
	setInt(&p.MaxMentions, u.MaxMentions)
	setInt(&p.MaxEmojis, u.MaxEmojis)
}

type VerificationUpdate struct {
	ChannelID      *string `json:"channel_id"`
	VerifiedRoleID *string `json:"verified_role_id"`
	IntroMessage   *string `json:"intro_message"`
}

func (u *VerificationUpdate) IsEmpty() bool {
	if u == nil {
		return true
	}
	return u.ChannelID == nil && u.VerifiedRoleID == nil && u.IntroMessage == nil
}

func (u *VerificationUpdate) apply(p *VerificationPolicy) {
	setString(&p.ChannelID, u.ChannelID)
	setString(&p.VerifiedRoleID, u.VerifiedRoleID)
	setString(&p.IntroMessage, u.IntroMessage)
}

type WelcomeUpdate struct {
	ChannelID          *string `json:"channel_id"`
	Message            *string `json:"message"`
	ImageEnabled       *bool   `json:"image_enabled"`
	BackgroundColor    *string `json:"background_color"`
	TextColor          *string `json:"text_color"`
	BackgroundImageURL *string `json:"background_image_url"`
}

func (u *WelcomeUpdate) IsEmpty() bool {
	if u == nil {
		return true
	}
	return u.ChannelID == nil &&
		u.Message == nil &&
		u.ImageEnabled == nil &&
		u.BackgroundColor == nil &&
		u.TextColor == nil &&
		u.BackgroundImageURL == nil
}

func (u *WelcomeUpdate) apply(p *WelcomeConfig) {
	setString(&p.ChannelID, u.ChannelID)
	setString(&p.Message, u.Message)
	setBool(&p.ImageEnabled, u.ImageEnabled)
	setString(&p.BackgroundColor, u.BackgroundColor)
	setString(&p.TextColor, u.TextColor)
	setString(&p.BackgroundImageURL, u.BackgroundImageURL)
}

// Repository is the persistence contract shared by the Postgres store and the in-memory store.
// Ensure* calls return the existing row or atomically create it from the given defaults.
type Repository interface {
	EnsureGuildPolicy(ctx context.Context, defaults GuildPolicy) (GuildPolicy, error)
	UpdateGuildPolicy(ctx context.Context, defaults GuildPolicy, update GuildPolicyUpdate) (GuildPolicy, error)
	EnsureAutomodPolicy(ctx context.Context, defaults AutomodPolicy) (AutomodPolicy, error)
	UpdateAutomodPolicy(ctx context.Context, defaults AutomodPolicy, update AutomodPolicyUpdate) (AutomodPolicy, error)
	EnsureVerification(ctx context.Context, defaults VerificationPolicy) (VerificationPolicy, error)
	UpdateVerification(ctx context.Context, defaults VerificationPolicy, update VerificationUpdate) (VerificationPolicy, error)
	EnsureWelcome(ctx context.Context, defaults WelcomeConfig) (WelcomeConfig, error)
	UpdateWelcome(ctx context.Context, defaults WelcomeConfig, update WelcomeUpdate) (WelcomeConfig, error)

	GetGameRoles(ctx context.Context, guildID string) (GameRoles, error)
	SetGameRole(ctx context.Context, guildID, game, roleID string) (GameRoles, error)
	RemoveGameRole(ctx context.Context, guildID, game string) (GameRoles, bool, error)
	SetGameRolePanel(ctx context.Context, guildID, channelID, messageID string) (GameRoles, error)

	GetProgress(ctx context.Context, guildID, userID string) (UserProgress, error)
	AwardXP(ctx context.Context, guildID, userID string, delta int, levelFor func(xp int) int) (before, after UserProgress, err error)
	ResetProgress(ctx context.Context, guildID, userID string) error
	Leaderboard(ctx context.Context, guildID string, limit int) ([]UserProgress, error)

	AddModerationLog(ctx context.Context, entry ModerationLogEntry) error
	ListModerationLogs(ctx context.Context, guildID, userID string, limit int) ([]ModerationLogEntry, error)
	ListModerationLogsSince(ctx context.Context, guildID string, since time.Time) ([]ModerationLogEntry, error)

	Ping(ctx context.Context) error
	Close()
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
