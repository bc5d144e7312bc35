// Package dashboard serves the HTTP API used by the web dashboard, plus the
// health and metrics endpoints.
package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/Maximus17a/BotRexy/internal/analytics"
	"github.com/Maximus17a/BotRexy/internal/config"
	"github.com/Maximus17a/BotRexy/internal/configstore"
	"github.com/Maximus17a/BotRexy/internal/metrics"
	"github.com/Maximus17a/BotRexy/internal/modules/audit"
	"github.com/Maximus17a/BotRexy/internal/modules/leveling"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Config   *configstore.Store
	Leveling *leveling.Engine
	ModLog   *audit.Logger
	Reports  *analytics.Service
	Metrics  *metrics.Metrics
	Store    Pinger
	Logger   *zap.Logger
	// GameRolesChanged is called after a binding is added or removed so the
	// guild's role panel can be refreshed.
	GameRolesChanged func(ctx context.Context, guildID string)
}

type Server struct {
	deps       Deps
	cfg        config.Config
	tokens     *Tokens
	modLogsMax int
	now        func() time.Time
}

func New(cfg config.Config, deps Deps) *Server {
	return &Server{
		deps:       deps,
		cfg:        cfg,
		tokens:     NewTokens(cfg.Dashboard.JWTSecret),
		modLogsMax: cfg.Moderation.ModLogsMax,
		now:        time.Now,
	}
}

func (s *Server) Tokens() *Tokens { return s.tokens }

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.countRequests)

	r.Get("/health", s.handleHealth)
	if s.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())
	}

	if !s.cfg.Dashboard.Enabled {
		return r
	}

	limiter := newClientLimiter(s.cfg.Dashboard, s.now)
	r.Route("/api", func(r chi.Router) {
		r.Use(allowOrigins(s.cfg.Dashboard.Origins))
		r.Use(rateLimit(limiter))
		r.Use(AuthMiddleware(s.tokens))

		r.Route("/guilds/{guildID}", func(r chi.Router) {
			r.Use(GuildAccessMiddleware)

			r.Get("/config", s.handleGetConfig)
			r.Patch("/config/{kind}", s.handlePatchConfig)
			r.Get("/leaderboard", s.handleLeaderboard)
			r.Get("/modlogs", s.handleModLogs)
			r.Get("/modlogs/summary", s.handleModLogSummary)
			r.Get("/game-roles", s.handleListGameRoles)
			r.Post("/game-roles", s.handleAddGameRole)
			r.Delete("/game-roles/{game}", s.handleRemoveGameRole)
		})
	})
	return r
}

// HTTPServer wraps the router with the configured listen address.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.Health.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		if s.deps.Metrics == nil {
			return
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		s.deps.Metrics.APIRequest(route, strconv.Itoa(ww.Status()))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Store.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
