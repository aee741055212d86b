package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sameehj/gameshelf/pkg/config"
	"github.com/sameehj/gameshelf/pkg/game"
	"github.com/sameehj/gameshelf/pkg/settings"
	"github.com/sameehj/gameshelf/pkg/system"
	"github.com/sameehj/gameshelf/pkg/track"
	"github.com/sameehj/gameshelf/pkg/version"
)

const httpShutdownTimeout = 5 * time.Second

// Server exposes the game library, metadata editing, and launching
// over a JSON API.
type Server struct {
	cfg     *config.Config
	library *game.Library
	spawner track.Spawner
	logger  *slog.Logger
	mux     *http.ServeMux
}

func New(cfg *config.Config, lib *game.Library, spawner track.Spawner, logger *slog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		library: lib,
		spawner: spawner,
		logger:  logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/games", s.handleGames)
	mux.HandleFunc("GET /api/games/{id}", s.handleGame)
	mux.HandleFunc("POST /api/games/{id}", s.handleGameUpdate)
	mux.HandleFunc("POST /api/games/{id}/launchers", s.handleLauncherAdd)
	mux.HandleFunc("POST /api/games/{id}/launchers/{lid}", s.handleLauncherUpdate)
	mux.HandleFunc("DELETE /api/games/{id}/launchers/{lid}", s.handleLauncherRemove)
	mux.HandleFunc("POST /api/games/{id}/launch", s.handleLaunch)
	mux.HandleFunc("POST /api/games/{id}/run", s.handleRun)
	mux.HandleFunc("GET /api/games/{id}/cover", s.handleCover)
	mux.HandleFunc("GET /api/games/{id}/file/{name...}", s.handleFile)
	mux.HandleFunc("GET /api/settings", s.handleSettingsGet)
	mux.HandleFunc("PUT /api/settings", s.handleSettingsPut)
	s.mux = mux
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"name":    "gameshelf",
		"version": version.String(),
	})
}

type settingsView struct {
	DefaultSandboxed   bool   `json:"default_sandboxed"`
	IgnoreFile         string `json:"ignore_file"`
	IgnoreText         string `json:"ignore_text"`
	SandboxieAvailable bool   `json:"sandboxie_available"`
	SandboxiePath      string `json:"sandboxie_path,omitempty"`
	ShellWrapper       string `json:"shell_wrapper,omitempty"`
}

func (s *Server) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	st := settings.Load(s.cfg.GamesRoot)
	profile := system.Detect()

	view := settingsView{
		DefaultSandboxed:   st.DefaultSandboxed,
		IgnoreFile:         s.cfg.Scan.IgnoreFile,
		SandboxieAvailable: profile.SandboxAvailable(),
		SandboxiePath:      profile.Sandboxie,
		ShellWrapper:       profile.ShellWrapper,
	}
	if data, err := os.ReadFile(s.ignorePath()); err == nil {
		view.IgnoreText = string(data)
	}
	s.writeJSON(w, http.StatusOK, view)
}

type settingsUpdate struct {
	DefaultSandboxed *bool   `json:"default_sandboxed"`
	IgnoreText       *string `json:"ignore_text"`
}

func (s *Server) handleSettingsPut(w http.ResponseWriter, r *http.Request) {
	var upd settingsUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid settings payload")
		return
	}

	st := settings.Load(s.cfg.GamesRoot)
	if upd.DefaultSandboxed != nil {
		st.DefaultSandboxed = *upd.DefaultSandboxed
	}
	if err := settings.Save(s.cfg.GamesRoot, st); err != nil {
		s.logError("settings_save_failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "save settings: "+err.Error())
		return
	}

	if upd.IgnoreText != nil {
		if err := os.WriteFile(s.ignorePath(), []byte(*upd.IgnoreText), 0o644); err != nil {
			s.logError("ignore_save_failed", "error", err)
			s.writeError(w, http.StatusInternalServerError, "settings saved, but failed to save ignore file: "+err.Error())
			return
		}
	}

	s.logInfo("settings_saved", "default_sandboxed", st.DefaultSandboxed)
	s.handleSettingsGet(w, r)
}

func (s *Server) ignorePath() string {
	return filepath.Join(s.cfg.GamesRoot, s.cfg.Scan.IgnoreFile)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) logInfo(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Server) logWarn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

func (s *Server) logError(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Error(msg, args...)
	}
}

// Start serves the API on addr until the context is cancelled.
func Start(ctx context.Context, s *Server, addr string) error {
	httpServer := &http.Server{
		Addr:    addr,
		Handler: s,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logError("http_shutdown_error", "error", err)
		}
	}()

	s.logInfo("http_listening", "addr", addr)
	if err := httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
	return nil
}
