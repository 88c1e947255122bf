// Package server exposes a read-only HTTP API over persisted run results.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/greenfield-eo/recmap/internal/store"
)

// Server serves run records, statistics and zonal tables from the store.
type Server struct {
	store store.Store
	log   *zap.Logger
}

// New builds a server over a store.
func New(st store.Store) *Server {
	return &Server{
		store: st,
		log:   zap.L().With(zap.String("component", "server")),
	}
}

// Router assembles the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/runs", func(r chi.Router) {
		r.Get("/", s.handleListRuns)
		r.Route("/{runID}", func(r chi.Router) {
			r.Get("/", s.handleGetRun)
			r.Get("/tables", s.handleListTables)
			r.Get("/tables/{name}", s.handleGetTable)
			r.Get("/stats/{output}", s.handleGetStats)
		})
	})
	return r
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("starting server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	filter := store.RunFilter{
		Status: store.RunStatus(r.URL.Query().Get("status")),
		Limit:  50,
	}
	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		s.internalError(w, "list runs", err)
		return
	}
	if runs == nil {
		runs = []store.RunRecord{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetRun(r.Context(), chi.URLParam(r, "runID"))
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, `{"error":"run not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		s.internalError(w, "get run", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	names, err := s.store.ListTables(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		s.internalError(w, "list tables", err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleGetTable(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.GetTable(r.Context(), chi.URLParam(r, "runID"), chi.URLParam(r, "name"))
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, `{"error":"table not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		s.internalError(w, "get table", err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetStatistics(r.Context(), chi.URLParam(r, "runID"), chi.URLParam(r, "output"))
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, `{"error":"statistics not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		s.internalError(w, "get stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) internalError(w http.ResponseWriter, action string, err error) {
	s.log.Error(action+" failed", zap.Error(err))
	http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
