package dashboard

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Maximus17a/BotRexy/internal/configstore"
	"github.com/Maximus17a/BotRexy/internal/errs"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxBodyBytes = 64 << 10

type configResponse struct {
	Guild        any `json:"guild"`
	Automod      any `json:"automod"`
	Welcome      any `json:"welcome"`
	Verification any `json:"verification"`
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	guildID := chi.URLParam(r, "guildID")

	guild, err := s.deps.Config.GuildPolicy(ctx, guildID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	automod, err := s.deps.Config.AutomodPolicy(ctx, guildID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	welcome, err := s.deps.Config.Welcome(ctx, guildID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	verification, err := s.deps.Config.Verification(ctx, guildID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, configResponse{Guild: guild, Automod: automod, Welcome: welcome, Verification: verification})
}

func (s *Server) handlePatchConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	guildID := chi.URLParam(r, "guildID")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	var result any
	switch kind := chi.URLParam(r, "kind"); kind {
	case configstore.KindGuild:
		update, derr := configstore.DecodeGuildPolicyUpdate(body)
		if derr != nil {
			s.fail(w, r, derr)
			return
		}
		result, err = s.deps.Config.UpdateGuildPolicy(ctx, guildID, update)
	case configstore.KindAutomod:
		update, derr := configstore.DecodeAutomodUpdate(body)
		if derr != nil {
			s.fail(w, r, derr)
			return
		}
		result, err = s.deps.Config.UpdateAutomodPolicy(ctx, guildID, update)
	case configstore.KindWelcome:
		update, derr := configstore.DecodeWelcomeUpdate(body)
		if derr != nil {
			s.fail(w, r, derr)
			return
		}
		result, err = s.deps.Config.UpdateWelcome(ctx, guildID, update)
	case configstore.KindVerification:
		update, derr := configstore.DecodeVerificationUpdate(body)
		if derr != nil {
			s.fail(w, r, derr)
			return
		}
		result, err = s.deps.Config.UpdateVerification(ctx, guildID, update)
	default:
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown config kind %q", kind))
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", 10, 1, 100)
	if !ok {
		return
	}
	entries, err := s.deps.Leveling.Leaderboard(r.Context(), chi.URLParam(r, "guildID"), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleModLogs(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", s.modLogsMax, 1, s.modLogsMax)
	if !ok {
		return
	}
	logs, err := s.deps.ModLog.List(r.Context(), chi.URLParam(r, "guildID"), r.URL.Query().Get("user_id"), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleModLogSummary(w http.ResponseWriter, r *http.Request) {
	days, ok := queryInt(w, r, "days", 7, 1, 90)
	if !ok {
		return
	}
	since := time.Now().Add(-time.Duration(days) * 24 * time.Hour)
	report, err := s.deps.Reports.Report(r.Context(), chi.URLParam(r, "guildID"), since)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleListGameRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := s.deps.Config.GameRoles(r.Context(), chi.URLParam(r, "guildID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, roles)
}

type addGameRoleRequest struct {
	Game   string `json:"game"`
	RoleID string `json:"role_id"`
}

func (s *Server) handleAddGameRole(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	var req addGameRoleRequest
	if err := configstore.DecodeStrict(body, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	roles, err := s.deps.Config.AddGameRole(r.Context(), guildID, req.Game, req.RoleID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.gameRolesChanged(r, guildID)
	writeJSON(w, http.StatusCreated, roles)
}

func (s *Server) handleRemoveGameRole(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")
	roles, err := s.deps.Config.RemoveGameRole(r.Context(), guildID, chi.URLParam(r, "game"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.gameRolesChanged(r, guildID)
	writeJSON(w, http.StatusOK, roles)
}

func (s *Server) gameRolesChanged(r *http.Request, guildID string) {
	if s.deps.GameRolesChanged != nil {
		s.deps.GameRolesChanged(r.Context(), guildID)
	}
}

// fail maps domain errors onto HTTP status codes.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, configstore.ErrFieldNotAllowed), errors.Is(err, configstore.ErrInvalidValue),
		errors.Is(err, errs.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, errs.ErrTargetNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, errs.ErrConfigUnavailable):
		s.logger().Warn("dashboard store unavailable", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "configuration store unavailable")
	default:
		s.logger().Error("dashboard request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) logger() *zap.Logger {
	if s.deps.Logger == nil {
		return zap.NewNop()
	}
	return s.deps.Logger
}

func queryInt(w http.ResponseWriter, r *http.Request, name string, def, min, max int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < min || n > max {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s must be between %d and %d", name, min, max))
		return 0, false
	}
	return n, true
}
