//go:build integration

package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupPostgres(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("botrexy"),
		postgres.WithUsername("botrexy"),
		postgres.WithPassword("botrexy"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(45*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	store, err := New(dsn)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestPostgresEnsureAndUpdateAutomod(t *testing.T) {
	store := setupPostgres(t)
	ctx := context.Background()
	defaults := AutomodPolicy{GuildID: "g1", AntiSpam: true, AntiInvites: true, MaxMentions: 5, MaxEmojis: 10}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.EnsureAutomodPolicy(ctx, defaults); err != nil {
				t.Errorf("ensure: %v", err)
			}
		}()
	}
	wg.Wait()

	words := []string{"foo", "bar"}
	links := true
	got, err := store.UpdateAutomodPolicy(ctx, defaults, AutomodPolicyUpdate{BadWords: &words, AntiLinks: &links})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !got.AntiLinks || len(got.BadWords) != 2 || got.MaxMentions != 5 {
		t.Fatalf("unexpected policy %+v", got)
	}

	again, err := store.EnsureAutomodPolicy(ctx, defaults)
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if !again.AntiLinks || again.BadWords[1] != "bar" {
		t.Fatalf("expected stored update, got %+v", again)
	}
}

func TestPostgresAwardXPAndModerationLogs(t *testing.T) {
	store := setupPostgres(t)
	ctx := context.Background()
	levelFor := func(xp int) int { return xp / 100 }

	for i := 0; i < 7; i++ {
		if _, _, err := store.AwardXP(ctx, "g1", "u1", 15, levelFor); err != nil {
			t.Fatalf("award: %v", err)
		}
	}
	progress, err := store.GetProgress(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("get progress: %v", err)
	}
	if progress.XP != 105 || progress.Level != 1 || progress.MessageCount != 7 {
		t.Fatalf("unexpected progress %+v", progress)
	}

	reason := "spam"
	now := time.Now().UTC().Truncate(time.Second)
	for i, action := range []string{"warn", "timeout"} {
		entry := ModerationLogEntry{
			ID:          uuid.NewString(),
			GuildID:     "g1",
			UserID:      "u1",
			ModeratorID: "m1",
			Action:      action,
			Reason:      &reason,
			CreatedAt:   now.Add(time.Duration(i) * time.Second),
		}
		if err := store.AddModerationLog(ctx, entry); err != nil {
			t.Fatalf("add log: %v", err)
		}
	}
	logs, err := store.ListModerationLogs(ctx, "g1", "u1", 10)
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	if len(logs) != 2 || logs[0].Action != "timeout" || logs[0].Reason == nil || *logs[0].Reason != "spam" {
		t.Fatalf("unexpected logs %+v", logs)
	}
}

func TestPostgresGameRoles(t *testing.T) {
	store := setupPostgres(t)
	ctx := context.Background()

	if _, err := store.SetGameRole(ctx, "g1", "Palia", "r1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	roles, err := store.SetGameRolePanel(ctx, "g1", "c1", "m1")
	if err != nil {
		t.Fatalf("panel: %v", err)
	}
	if roles.Roles["Palia"] != "r1" || roles.MessageID != "m1" {
		t.Fatalf("unexpected roles %+v", roles)
	}
	_, removed, err := store.RemoveGameRole(ctx, "g1", "Palia")
	if err != nil || !removed {
		t.Fatalf("expected removal, got removed=%v err=%v", removed, err)
	}
}
