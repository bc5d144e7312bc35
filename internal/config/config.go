package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken  string           `yaml:"discord_token"`
	DatabaseURL   string           `yaml:"database_url"`
	LogLevel      string           `yaml:"log_level"`
	Health        HealthConfig     `yaml:"health"`
	Dashboard     DashboardConfig  `yaml:"dashboard"`
	Spam          SpamConfig       `yaml:"spam"`
	Leveling      LevelingConfig   `yaml:"leveling"`
	Automod       AutomodConfig    `yaml:"automod"`
	Moderation    ModerationConfig `yaml:"moderation"`
	Welcome       WelcomeConfig    `yaml:"welcome"`
	Notifications NotifyConfig     `yaml:"notifications"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type DashboardConfig struct {
	Enabled   bool     `yaml:"enabled"`
	JWTSecret string   `yaml:"jwt_secret"`
	Rate      float64  `yaml:"rate"`
	Burst     int      `yaml:"burst"`
	Origins   []string `yaml:"allowed_origins"`

	// IdleMinutes is how long a client's rate bucket outlives its last request.
	IdleMinutes int `yaml:"idle_minutes"`
}

type SpamConfig struct {
	Threshold       int `yaml:"threshold"`
	IntervalSeconds int `yaml:"interval_seconds"`
	TimeoutMinutes  int `yaml:"timeout_minutes"`
}

type LevelingConfig struct {
	XPPerMessage    int `yaml:"xp_per_message"`
	CooldownSeconds int `yaml:"cooldown_seconds"`
	LevelMultiplier int `yaml:"level_multiplier"`
}

type AutomodConfig struct {
	MaxMentions        int `yaml:"max_mentions"`
	MaxEmojis          int `yaml:"max_emojis"`
	WarningDeleteAfter int `yaml:"warning_delete_seconds"`
}

type ModerationConfig struct {
	ClearMax          int `yaml:"clear_max"`
	MaxTimeoutMinutes int `yaml:"max_timeout_minutes"`
	ModLogsMax        int `yaml:"modlogs_max"`
}

type WelcomeConfig struct {
	Width           int    `yaml:"width"`
	Height          int    `yaml:"height"`
	AvatarSize      int    `yaml:"avatar_size"`
	BackgroundColor string `yaml:"background_color"`
	TextColor       string `yaml:"text_color"`
	FetchTimeoutSec int    `yaml:"fetch_timeout_seconds"`
}

type NotifyConfig struct {
	DMWarnEnabled bool        `yaml:"dm_warn_enabled"`
	EmbedColors   EmbedColors `yaml:"embed_colors"`
}

type EmbedColors struct {
	Action  int `yaml:"action"`
	Success int `yaml:"success"`
	Warning int `yaml:"warning"`
	Error   int `yaml:"error"`
	Level   int `yaml:"level"`
}

func DefaultConfig() Config {
	return Config{
		LogLevel:  "info",
		Health:    HealthConfig{Enabled: false, Addr: ":8080"},
		Dashboard: DashboardConfig{Enabled: false, Rate: 5, Burst: 10, IdleMinutes: 10},
		Spam:      SpamConfig{Threshold: 5, IntervalSeconds: 5, TimeoutMinutes: 5},
		Leveling:  LevelingConfig{XPPerMessage: 15, CooldownSeconds: 60, LevelMultiplier: 100},
		Automod:   AutomodConfig{MaxMentions: 5, MaxEmojis: 10, WarningDeleteAfter: 5},
		Moderation: ModerationConfig{
			ClearMax:          100,
			MaxTimeoutMinutes: 40320,
			ModLogsMax:        50,
		},
		Welcome: WelcomeConfig{
			Width:           800,
			Height:          300,
			AvatarSize:      150,
			BackgroundColor: "#7289da",
			TextColor:       "#ffffff",
			FetchTimeoutSec: 5,
		},
		Notifications: NotifyConfig{
			DMWarnEnabled: true,
			EmbedColors: EmbedColors{
				Action:  0x5865F2,
				Success: 0x57F287,
				Warning: 0xFEE75C,
				Error:   0xED4245,
				Level:   0xFFD700,
			},
		},
	}
}

// Load reads the configuration and checks the settings needed to run the bot.
func Load() (Config, error) {
	cfg, err := Read()
	if err != nil {
		return Config{}, err
	}
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}
	if cfg.Dashboard.Enabled && cfg.Dashboard.JWTSecret == "" {
		return Config{}, errors.New("DASHBOARD_JWT_SECRET is required when the dashboard is enabled")
	}
	return cfg, nil
}

// Read merges defaults, the YAML file and the environment without validation.
func Read() (Config, error) {
	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	clampLimits(&cfg)

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.DatabaseURL = envString("DATABASE_URL", cfg.DatabaseURL)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.Health.Enabled = envBool("HEALTH_ENABLED", cfg.Health.Enabled)
	cfg.Health.Addr = envString("HEALTH_ADDR", cfg.Health.Addr)
	cfg.Dashboard.Enabled = envBool("DASHBOARD_ENABLED", cfg.Dashboard.Enabled)
	cfg.Dashboard.JWTSecret = envString("DASHBOARD_JWT_SECRET", cfg.Dashboard.JWTSecret)
	cfg.Dashboard.Burst = envInt("DASHBOARD_RATE_BURST", cfg.Dashboard.Burst)
	cfg.Dashboard.IdleMinutes = envInt("DASHBOARD_IDLE_MINUTES", cfg.Dashboard.IdleMinutes)
	cfg.Spam.Threshold = envInt("SPAM_THRESHOLD", cfg.Spam.Threshold)
	cfg.Spam.IntervalSeconds = envInt("SPAM_INTERVAL", cfg.Spam.IntervalSeconds)
	cfg.Spam.TimeoutMinutes = envInt("SPAM_TIMEOUT_MINUTES", cfg.Spam.TimeoutMinutes)
	cfg.Leveling.XPPerMessage = envInt("XP_PER_MESSAGE", cfg.Leveling.XPPerMessage)
	cfg.Leveling.CooldownSeconds = envInt("XP_COOLDOWN", cfg.Leveling.CooldownSeconds)
	cfg.Leveling.LevelMultiplier = envInt("LEVEL_MULTIPLIER", cfg.Leveling.LevelMultiplier)
	cfg.Automod.MaxMentions = envInt("MAX_MENTIONS", cfg.Automod.MaxMentions)
	cfg.Automod.MaxEmojis = envInt("MAX_EMOJIS", cfg.Automod.MaxEmojis)
	cfg.Moderation.ClearMax = envInt("CLEAR_MAX", cfg.Moderation.ClearMax)
	cfg.Notifications.DMWarnEnabled = envBool("DM_WARN_ENABLED", cfg.Notifications.DMWarnEnabled)
}

// clampLimits keeps values that would disable a guard at their defaults.
func clampLimits(cfg *Config) {
	defaults := DefaultConfig()
	if cfg.Spam.Threshold <= 0 {
		cfg.Spam.Threshold = defaults.Spam.Threshold
	}
	if cfg.Spam.IntervalSeconds <= 0 {
		cfg.Spam.IntervalSeconds = defaults.Spam.IntervalSeconds
	}
	if cfg.Leveling.LevelMultiplier <= 0 {
		cfg.Leveling.LevelMultiplier = defaults.Leveling.LevelMultiplier
	}
	if cfg.Leveling.XPPerMessage < 0 {
		cfg.Leveling.XPPerMessage = defaults.Leveling.XPPerMessage
	}
	if cfg.Moderation.ClearMax <= 0 || cfg.Moderation.ClearMax > 100 {
		cfg.Moderation.ClearMax = defaults.Moderation.ClearMax
	}
	if cfg.Dashboard.Rate <= 0 {
		cfg.Dashboard.Rate = defaults.Dashboard.Rate
	}
	if cfg.Dashboard.Burst <= 0 {
		cfg.Dashboard.Burst = defaults.Dashboard.Burst
	}
	if cfg.Dashboard.IdleMinutes <= 0 {
		cfg.Dashboard.IdleMinutes = defaults.Dashboard.IdleMinutes
	}
	// Discord caps timeouts at 28 days.
	if cfg.Moderation.MaxTimeoutMinutes <= 0 || cfg.Moderation.MaxTimeoutMinutes > defaults.Moderation.MaxTimeoutMinutes {
		cfg.Moderation.MaxTimeoutMinutes = defaults.Moderation.MaxTimeoutMinutes
	}
	if cfg.Spam.TimeoutMinutes <= 0 {
		cfg.Spam.TimeoutMinutes = defaults.Spam.TimeoutMinutes
	}
	if cfg.Spam.TimeoutMinutes > cfg.Moderation.MaxTimeoutMinutes {
		cfg.Spam.TimeoutMinutes = cfg.Moderation.MaxTimeoutMinutes
	}
	if cfg.Automod.MaxMentions < 1 || cfg.Automod.MaxMentions > 50 {
		cfg.Automod.MaxMentions = defaults.Automod.MaxMentions
	}
	if cfg.Automod.MaxEmojis < 1 || cfg.Automod.MaxEmojis > 100 {
		cfg.Automod.MaxEmojis = defaults.Automod.MaxEmojis
	}
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(strings.ToLower(level)))

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}
