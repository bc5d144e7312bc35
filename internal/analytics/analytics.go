package analytics

import (
	"context"
	"time"

	"github.com/Maximus17a/BotRexy/internal/storage"
)

type Service struct {
	repo storage.Repository
}

func New(repo storage.Repository) *Service {
	return &Service{repo: repo}
}

type Report struct {
	Since       time.Time      `json:"since"`
	Total       int            `json:"total"`
	ByAction    map[string]int `json:"by_action"`
	ByModerator map[string]int `json:"by_moderator"`
}

// Report summarizes moderation log entries created at or after since.
func (s *Service) Report(ctx context.Context, guildID string, since time.Time) (Report, error) {
	logs, err := s.repo.ListModerationLogsSince(ctx, guildID, since)
	if err != nil {
		return Report{}, err
	}

	report := Report{Since: since, ByAction: make(map[string]int), ByModerator: make(map[string]int)}
	for _, log := range logs {
		report.Total++
		report.ByAction[log.Action]++
		report.ByModerator[log.ModeratorID]++
	}
	return report, nil
}
