// Package audit records moderation actions in the moderation log.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/Maximus17a/BotRexy/internal/errs"
	"github.com/Maximus17a/BotRexy/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	ActionMessageDelete = "message_delete"
	ActionWarn          = "warn"
	ActionTimeout       = "timeout"
	ActionUntimeout     = "untimeout"
	ActionKick          = "kick"
	ActionBan           = "ban"
	ActionUnban         = "unban"
	ActionClear         = "clear"
	ActionVerification  = "verification"
)

type Logger struct {
	repo   storage.Repository
	logger *zap.Logger
	now    func() time.Time
	notify func(context.Context, storage.ModerationLogEntry)
}

func NewLogger(repo storage.Repository, logger *zap.Logger) *Logger {
	return &Logger{repo: repo, logger: logger, now: time.Now}
}

// SetNotifier registers a hook called after every stored entry.
func (l *Logger) SetNotifier(notify func(context.Context, storage.ModerationLogEntry)) {
	l.notify = notify
}

func (l *Logger) Record(ctx context.Context, guildID, userID, moderatorID, action string, reason *string) (storage.ModerationLogEntry, error) {
	entry := storage.ModerationLogEntry{
		ID:          uuid.NewString(),
		GuildID:     guildID,
		UserID:      userID,
		ModeratorID: moderatorID,
		Action:      action,
		Reason:      reason,
		CreatedAt:   l.now().UTC(),
	}
	if err := l.repo.AddModerationLog(ctx, entry); err != nil {
		l.logger.Warn("moderation log write failed", zap.String("guild_id", guildID), zap.String("action", action), zap.Error(err))
		return entry, fmt.Errorf("%w: %v", errs.ErrLogWriteFailed, err)
	}
	if l.notify != nil {
		l.notify(ctx, entry)
	}
	reasonText := ""
	if reason != nil {
		reasonText = *reason
	}
	l.logger.Info("modlog",
		zap.String("guild_id", guildID),
		zap.String("user_id", userID),
		zap.String("moderator_id", moderatorID),
		zap.String("action", action),
		zap.String("reason", reasonText),
	)
	return entry, nil
}

func (l *Logger) List(ctx context.Context, guildID, userID string, limit int) ([]storage.ModerationLogEntry, error) {
	return l.repo.ListModerationLogs(ctx, guildID, userID, limit)
}
