package storage

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryEnsureGuildPolicyKeepsExisting(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	defaults := GuildPolicy{GuildID: "g1", AutomodEnabled: true, LevelsEnabled: true}
	if _, err := store.EnsureGuildPolicy(ctx, defaults); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	off := false
	if _, err := store.UpdateGuildPolicy(ctx, defaults, GuildPolicyUpdate{AutomodEnabled: &off}); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := store.EnsureGuildPolicy(ctx, defaults)
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if got.AutomodEnabled {
		t.Fatalf("expected automod to stay disabled")
	}
	if !got.LevelsEnabled {
		t.Fatalf("expected untouched levels flag to stay enabled")
	}
}

func TestMemoryConcurrentEnsureCreatesOneRecord(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	defaults := AutomodPolicy{GuildID: "g1", MaxMentions: 5}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.EnsureAutomodPolicy(ctx, defaults)
		}()
	}
	wg.Wait()

	if len(store.automod) != 1 {
		t.Fatalf("expected 1 automod record, got %d", len(store.automod))
	}
}

func TestMemoryAutomodUpdateCopiesWords(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	words := []string{"foo"}
	got, err := store.UpdateAutomodPolicy(ctx, AutomodPolicy{GuildID: "g1"}, AutomodPolicyUpdate{BadWords: &words})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	got.BadWords[0] = "mutated"

	again, _ := store.EnsureAutomodPolicy(ctx, AutomodPolicy{GuildID: "g1"})
	if again.BadWords[0] != "foo" {
		t.Fatalf("expected stored word foo, got %q", again.BadWords[0])
	}
}

func TestMemoryAwardXPAndLeaderboard(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	levelFor := func(xp int) int { return xp / 100 }

	for i := 0; i < 3; i++ {
		if _, _, err := store.AwardXP(ctx, "g1", "u1", 50, levelFor); err != nil {
			t.Fatalf("award: %v", err)
		}
	}
	before, after, err := store.AwardXP(ctx, "g1", "u2", 40, levelFor)
	if err != nil {
		t.Fatalf("award: %v", err)
	}
	if before.XP != 0 || after.XP != 40 || after.MessageCount != 1 {
		t.Fatalf("unexpected progress before=%+v after=%+v", before, after)
	}

	board, err := store.Leaderboard(ctx, "g1", 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board) != 2 || board[0].UserID != "u1" {
		t.Fatalf("expected u1 first, got %+v", board)
	}
	if board[0].Level != 1 || board[0].XP != 150 || board[0].MessageCount != 3 {
		t.Fatalf("unexpected u1 progress %+v", board[0])
	}
}

func TestMemoryModerationLogsNewestFirst(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, action := range []string{"warn", "kick", "ban"} {
		entry := ModerationLogEntry{ID: action, GuildID: "g1", UserID: "u1", Action: action, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := store.AddModerationLog(ctx, entry); err != nil {
			t.Fatalf("add log: %v", err)
		}
	}
	_ = store.AddModerationLog(ctx, ModerationLogEntry{ID: "other", GuildID: "g2", Action: "warn", CreatedAt: base})

	logs, err := store.ListModerationLogs(ctx, "g1", "", 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 2 || logs[0].Action != "ban" || logs[1].Action != "kick" {
		t.Fatalf("unexpected order %+v", logs)
	}

	since, _ := store.ListModerationLogsSince(ctx, "g1", base.Add(time.Minute))
	if len(since) != 2 {
		t.Fatalf("expected 2 logs since cutoff, got %d", len(since))
	}
}

func TestMemoryGameRoles(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	if _, err := store.SetGameRole(ctx, "g1", "Valorant", "r1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	roles, removed, err := store.RemoveGameRole(ctx, "g1", "Palia")
	if err != nil || removed {
		t.Fatalf("expected no removal, got removed=%v err=%v", removed, err)
	}
	if roles.Roles["Valorant"] != "r1" {
		t.Fatalf("expected binding to remain")
	}

	roles, err = store.SetGameRolePanel(ctx, "g1", "c1", "m1")
	if err != nil {
		t.Fatalf("panel: %v", err)
	}
	if roles.ChannelID != "c1" || roles.MessageID != "m1" || len(roles.Roles) != 1 {
		t.Fatalf("unexpected roles %+v", roles)
	}
}
