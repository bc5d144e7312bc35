package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Maximus17a/BotRexy/internal/analytics"
	"github.com/Maximus17a/BotRexy/internal/bot"
	"github.com/Maximus17a/BotRexy/internal/config"
	"github.com/Maximus17a/BotRexy/internal/configstore"
	"github.com/Maximus17a/BotRexy/internal/dashboard"
	"github.com/Maximus17a/BotRexy/internal/metrics"
	"github.com/Maximus17a/BotRexy/internal/modules/antispam"
	"github.com/Maximus17a/BotRexy/internal/modules/audit"
	"github.com/Maximus17a/BotRexy/internal/modules/leveling"
	"github.com/Maximus17a/BotRexy/internal/storage"
	"github.com/Maximus17a/BotRexy/internal/welcome"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	app := &cli.App{
		Name:   "botrexy",
		Usage:  "Discord moderation and leveling bot",
		Action: run,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "connect to the gateway and serve the dashboard API",
				Action: run,
			},
			{
				Name:   "migrate",
				Usage:  "apply database migrations and exit",
				Action: migrate,
			},
			{
				Name:  "token",
				Usage: "issue a dashboard token for a user",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Usage: "Discord user id", Required: true},
					&cli.StringSliceFlag{Name: "guild", Usage: "guild id the user administers (repeatable)", Required: true},
					&cli.DurationFlag{Name: "ttl", Usage: "token lifetime", Value: 24 * time.Hour},
				},
				Action: issueToken,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := config.BuildLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	repo, err := openRepository(c.Context, cfg, logger)
	if err != nil {
		logger.Error("storage init failed", zap.Error(err))
		return err
	}
	defer repo.Close()

	stats := metrics.New()
	configStore := configstore.New(repo, cfg)
	modLog := audit.NewLogger(repo, logger)
	modLog.SetNotifier(func(_ context.Context, entry storage.ModerationLogEntry) {
		stats.ModLogEntry(entry.Action)
	})
	levels := leveling.NewEngine(repo, cfg.Leveling)

	botSvc, err := bot.New(cfg, logger, bot.Deps{
		Config:   configStore,
		Spam:     antispam.New(cfg.Spam),
		Leveling: levels,
		ModLog:   modLog,
		Renderer: welcome.NewRenderer(cfg.Welcome, logger),
		Metrics:  stats,
	})
	if err != nil {
		logger.Error("bot init failed", zap.Error(err))
		return err
	}
	if err := botSvc.Start(); err != nil {
		logger.Error("bot start failed", zap.Error(err))
		return err
	}
	logger.Info("bot started")

	var server *http.Server
	if cfg.Health.Enabled || cfg.Dashboard.Enabled {
		api := dashboard.New(cfg, dashboard.Deps{
			Config:           configStore,
			Leveling:         levels,
			ModLog:           modLog,
			Reports:          analytics.New(repo),
			Metrics:          stats,
			Store:            repo,
			Logger:           logger,
			GameRolesChanged: botSvc.GameRolesChanged,
		})
		server = api.HTTPServer()
		go func() {
			logger.Info("http server enabled", zap.String("addr", server.Addr), zap.Bool("dashboard", cfg.Dashboard.Enabled))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", zap.Error(err))
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown requested")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if server != nil {
		_ = server.Shutdown(ctx)
	}
	if err := botSvc.Close(); err != nil {
		logger.Warn("gateway close failed", zap.Error(err))
	}
	return nil
}

// openRepository uses Postgres when a database URL is set and falls back to
// process memory otherwise.
func openRepository(ctx context.Context, cfg config.Config, logger *zap.Logger) (storage.Repository, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory storage")
		return storage.NewMemory(), nil
	}
	store, err := storage.New(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

func migrate(c *cli.Context) error {
	cfg, err := config.Read()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	store, err := storage.New(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Migrate(c.Context); err != nil {
		return err
	}
	fmt.Println("migrations applied")
	return nil
}

func issueToken(c *cli.Context) error {
	cfg, err := config.Read()
	if err != nil {
		return err
	}
	if cfg.Dashboard.JWTSecret == "" {
		return errors.New("DASHBOARD_JWT_SECRET is required")
	}
	token, err := dashboard.NewTokens(cfg.Dashboard.JWTSecret).Issue(c.String("user"), c.StringSlice("guild"), c.Duration("ttl"))
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
