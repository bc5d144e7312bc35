package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("DISCORD_TOKEN", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error without token")
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("discord_token: file-token\nspam:\n  threshold: 7\nleveling:\n  xp_per_message: 20\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("XP_PER_MESSAGE", "25")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DiscordToken != "file-token" {
		t.Fatalf("expected file token, got %q", cfg.DiscordToken)
	}
	if cfg.Spam.Threshold != 7 {
		t.Fatalf("expected threshold 7, got %d", cfg.Spam.Threshold)
	}
	if cfg.Spam.IntervalSeconds != 5 {
		t.Fatalf("expected default interval 5, got %d", cfg.Spam.IntervalSeconds)
	}
	if cfg.Leveling.XPPerMessage != 25 {
		t.Fatalf("expected env override 25, got %d", cfg.Leveling.XPPerMessage)
	}
}

func TestLoadClampsClearMax(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("CLEAR_MAX", "500")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Moderation.ClearMax != 100 {
		t.Fatalf("expected clear max 100, got %d", cfg.Moderation.ClearMax)
	}
}

func TestLoadClampsGuardLimits(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("SPAM_TIMEOUT_MINUTES", "0")
	t.Setenv("MAX_MENTIONS", "0")
	t.Setenv("MAX_EMOJIS", "-3")
	t.Setenv("DASHBOARD_IDLE_MINUTES", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Spam.TimeoutMinutes != 5 {
		t.Fatalf("expected spam timeout 5, got %d", cfg.Spam.TimeoutMinutes)
	}
	if cfg.Automod.MaxMentions != 5 || cfg.Automod.MaxEmojis != 10 {
		t.Fatalf("expected automod defaults, got %+v", cfg.Automod)
	}
	if cfg.Dashboard.IdleMinutes != 10 {
		t.Fatalf("expected idle minutes 10, got %d", cfg.Dashboard.IdleMinutes)
	}
}

func TestSpamTimeoutNeverExceedsMaxTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "spam:\n  timeout_minutes: 90000\nmoderation:\n  max_timeout_minutes: 0\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("DISCORD_TOKEN", "token")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Moderation.MaxTimeoutMinutes != 40320 {
		t.Fatalf("expected max timeout 40320, got %d", cfg.Moderation.MaxTimeoutMinutes)
	}
	if cfg.Spam.TimeoutMinutes != 40320 {
		t.Fatalf("expected spam timeout capped at 40320, got %d", cfg.Spam.TimeoutMinutes)
	}
}

func TestDashboardNeedsSecret(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("DASHBOARD_ENABLED", "true")
	t.Setenv("DASHBOARD_JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error without jwt secret")
	}
}
