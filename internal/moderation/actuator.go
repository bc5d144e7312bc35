// Package moderation performs remediation actions against the chat platform
// and records each successful action in the moderation log.
package moderation

import (
	"context"
	"fmt"
	"time"

	"github.com/Maximus17a/BotRexy/internal/config"
	"github.com/Maximus17a/BotRexy/internal/errs"
	"github.com/Maximus17a/BotRexy/internal/modules/audit"
	"github.com/Maximus17a/BotRexy/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Platform is the subset of the chat gateway the actuator drives.
type Platform interface {
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) (string, error)
	SendDirectEmbed(ctx context.Context, userID string, embed *discordgo.MessageEmbed) error
	TimeoutMember(ctx context.Context, guildID, userID string, until *time.Time) error
	KickMember(ctx context.Context, guildID, userID, reason string) error
	BanMember(ctx context.Context, guildID, userID, reason string) error
	UnbanMember(ctx context.Context, guildID, userID string) error
	RecentMessageIDs(ctx context.Context, channelID string, limit int) ([]string, error)
	DeleteMessages(ctx context.Context, channelID string, messageIDs []string) error
}

// Member identifies a guild member together with their authority rank.
// Rank is the position of the member's highest role.
type Member struct {
	UserID string
	Rank   int
	Owner  bool
}

// Outranks reports whether actor may act on target.
func Outranks(actor, target Member) bool {
	if target.Owner {
		return false
	}
	if actor.Owner {
		return true
	}
	return actor.Rank > target.Rank
}

// Outcome describes a completed action. LogErr is set when the action
// succeeded but its moderation log entry could not be written.
type Outcome struct {
	Entry   storage.ModerationLogEntry
	Deleted int
	LogErr  error
}

type Actuator struct {
	platform   Platform
	log        *audit.Logger
	logger     *zap.Logger
	colors     config.EmbedColors
	clearMax   int
	maxTimeout int
	warnAfter  time.Duration
	dmWarn     bool
	now        func() time.Time
}

func NewActuator(platform Platform, log *audit.Logger, logger *zap.Logger, cfg config.Config) *Actuator {
	return &Actuator{
		platform:   platform,
		log:        log,
		logger:     logger,
		colors:     cfg.Notifications.EmbedColors,
		clearMax:   cfg.Moderation.ClearMax,
		maxTimeout: cfg.Moderation.MaxTimeoutMinutes,
		warnAfter:  time.Duration(cfg.Automod.WarningDeleteAfter) * time.Second,
		dmWarn:     cfg.Notifications.DMWarnEnabled,
		now:        time.Now,
	}
}

func (a *Actuator) ClearMax() int { return a.clearMax }

// DeleteAndWarn removes a message and posts a short-lived warning in its channel.
func (a *Actuator) DeleteAndWarn(ctx context.Context, guildID, channelID, messageID string, author, moderatorID, reason string) (Outcome, error) {
	if err := a.platform.DeleteMessage(ctx, channelID, messageID); err != nil {
		return Outcome{}, actionFailed("delete message", err)
	}

	embed := &discordgo.MessageEmbed{
		Title:       "⚠️ Mensaje eliminado",
		Description: fmt.Sprintf("<@%s>, tu mensaje fue eliminado.\n**Razón:** %s", author, reason),
		Color:       a.colors.Warning,
	}
	warningID, err := a.platform.SendEmbed(ctx, channelID, embed)
	if err != nil {
		a.logger.Warn("warning message failed", zap.String("guild_id", guildID), zap.String("channel_id", channelID), zap.Error(err))
	} else {
		a.expire(channelID, warningID)
	}

	return a.record(ctx, guildID, author, moderatorID, audit.ActionMessageDelete, &reason), nil
}

// expire deletes a message after the warning delay without blocking the caller.
func (a *Actuator) expire(channelID, messageID string) {
	go func() {
		time.Sleep(a.warnAfter)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.platform.DeleteMessage(ctx, channelID, messageID); err != nil {
			a.logger.Debug("warning cleanup failed", zap.String("channel_id", channelID), zap.String("message_id", messageID), zap.Error(err))
		}
	}()
}

func (a *Actuator) Timeout(ctx context.Context, guildID string, actor, target Member, minutes int, reason string) (Outcome, error) {
	if minutes < 1 || minutes > a.maxTimeout {
		return Outcome{}, fmt.Errorf("%w: timeout must be between 1 and %d minutes", errs.ErrInvalidArgument, a.maxTimeout)
	}
	if !Outranks(actor, target) {
		return Outcome{}, errs.ErrInsufficientRank
	}
	until := a.now().Add(time.Duration(minutes) * time.Minute)
	if err := a.platform.TimeoutMember(ctx, guildID, target.UserID, &until); err != nil {
		return Outcome{}, actionFailed("timeout", err)
	}
	return a.record(ctx, guildID, target.UserID, actor.UserID, audit.ActionTimeout, &reason), nil
}

func (a *Actuator) Untimeout(ctx context.Context, guildID, moderatorID, userID string) (Outcome, error) {
	if err := a.platform.TimeoutMember(ctx, guildID, userID, nil); err != nil {
		return Outcome{}, actionFailed("untimeout", err)
	}
	return a.record(ctx, guildID, userID, moderatorID, audit.ActionUntimeout, nil), nil
}

func (a *Actuator) Kick(ctx context.Context, guildID string, actor, target Member, reason string) (Outcome, error) {
	if !Outranks(actor, target) {
		return Outcome{}, errs.ErrInsufficientRank
	}
	if err := a.platform.KickMember(ctx, guildID, target.UserID, reason); err != nil {
		return Outcome{}, actionFailed("kick", err)
	}
	return a.record(ctx, guildID, target.UserID, actor.UserID, audit.ActionKick, &reason), nil
}

func (a *Actuator) Ban(ctx context.Context, guildID string, actor, target Member, reason string) (Outcome, error) {
	if !Outranks(actor, target) {
		return Outcome{}, errs.ErrInsufficientRank
	}
	if err := a.platform.BanMember(ctx, guildID, target.UserID, reason); err != nil {
		return Outcome{}, actionFailed("ban", err)
	}
	return a.record(ctx, guildID, target.UserID, actor.UserID, audit.ActionBan, &reason), nil
}

func (a *Actuator) Unban(ctx context.Context, guildID, moderatorID, userID string) (Outcome, error) {
	if err := a.platform.UnbanMember(ctx, guildID, userID); err != nil {
		return Outcome{}, actionFailed("unban", err)
	}
	return a.record(ctx, guildID, userID, moderatorID, audit.ActionUnban, nil), nil
}

// Warn logs a warning and tells the member by direct message when possible.
// A failed DM does not fail the warning.
func (a *Actuator) Warn(ctx context.Context, guildID, guildName, moderatorID, userID, reason string) (Outcome, error) {
	if a.dmWarn {
		embed := &discordgo.MessageEmbed{
			Title:       "⚠️ Has recibido una advertencia",
			Description: fmt.Sprintf("En el servidor **%s**", guildName),
			Color:       a.colors.Warning,
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Razón", Value: reason},
			},
		}
		if err := a.platform.SendDirectEmbed(ctx, userID, embed); err != nil {
			a.logger.Debug("warn dm failed", zap.String("guild_id", guildID), zap.String("user_id", userID), zap.Error(err))
		}
	}
	return a.record(ctx, guildID, userID, moderatorID, audit.ActionWarn, &reason), nil
}

// Clear bulk deletes up to count recent messages in a channel.
func (a *Actuator) Clear(ctx context.Context, guildID, channelID, channelName, moderatorID string, count int) (Outcome, error) {
	if count < 1 || count > a.clearMax {
		return Outcome{}, fmt.Errorf("%w: count must be between 1 and %d", errs.ErrInvalidArgument, a.clearMax)
	}
	ids, err := a.platform.RecentMessageIDs(ctx, channelID, count)
	if err != nil {
		return Outcome{}, actionFailed("list messages", err)
	}
	if len(ids) > 0 {
		if err := a.platform.DeleteMessages(ctx, channelID, ids); err != nil {
			return Outcome{}, actionFailed("bulk delete", err)
		}
	}
	reason := fmt.Sprintf("%d messages in #%s", len(ids), channelName)
	outcome := a.record(ctx, guildID, moderatorID, moderatorID, audit.ActionClear, &reason)
	outcome.Deleted = len(ids)
	return outcome, nil
}

func (a *Actuator) record(ctx context.Context, guildID, userID, moderatorID, action string, reason *string) Outcome {
	entry, err := a.log.Record(ctx, guildID, userID, moderatorID, action, reason)
	return Outcome{Entry: entry, LogErr: err}
}

func actionFailed(what string, err error) error {
	return fmt.Errorf("%w: %s: %v", errs.ErrActionFailed, what, err)
}

