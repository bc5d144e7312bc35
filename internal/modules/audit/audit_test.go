package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/Maximus17a/BotRexy/internal/errs"
	"github.com/Maximus17a/BotRexy/internal/storage"

	"go.uber.org/zap"
)

type brokenRepo struct {
	storage.Repository
}

func (brokenRepo) AddModerationLog(context.Context, storage.ModerationLogEntry) error {
	return errors.New("disk full")
}

func TestRecordStoresEntry(t *testing.T) {
	repo := storage.NewMemory()
	logger := NewLogger(repo, zap.NewNop())

	var notified int
	logger.SetNotifier(func(context.Context, storage.ModerationLogEntry) { notified++ })

	reason := "spam"
	entry, err := logger.Record(context.Background(), "g1", "u1", "m1", ActionWarn, &reason)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if entry.ID == "" || entry.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp, got %+v", entry)
	}
	if notified != 1 {
		t.Fatalf("expected notifier call")
	}

	logs, _ := logger.List(context.Background(), "g1", "u1", 10)
	if len(logs) != 1 || logs[0].Action != ActionWarn || *logs[0].Reason != "spam" {
		t.Fatalf("unexpected logs %+v", logs)
	}
}

func TestRecordWithoutReason(t *testing.T) {
	repo := storage.NewMemory()
	logger := NewLogger(repo, zap.NewNop())
	if _, err := logger.Record(context.Background(), "g1", "u1", "m1", ActionKick, nil); err != nil {
		t.Fatalf("record: %v", err)
	}
	logs, _ := repo.ListModerationLogs(context.Background(), "g1", "", 10)
	if len(logs) != 1 || logs[0].Reason != nil {
		t.Fatalf("expected absent reason, got %+v", logs)
	}
}

func TestRecordFailureIsLogWriteFailed(t *testing.T) {
	logger := NewLogger(brokenRepo{}, zap.NewNop())
	_, err := logger.Record(context.Background(), "g1", "u1", "m1", ActionBan, nil)
	if !errors.Is(err, errs.ErrLogWriteFailed) {
		t.Fatalf("expected ErrLogWriteFailed, got %v", err)
	}
}
