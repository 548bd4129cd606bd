// Package server serves stored run results over HTTP.
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/sboehler/folio/lib/store"
)

// Server is a read-only JSON API over the results database.
type Server struct {
	router chi.Router
	db     *sql.DB
	log    zerolog.Logger
}

// New creates a server.
func New(db *sql.DB, log zerolog.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		db:     db,
		log:    log.With().Str("component", "server").Logger(),
	}
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(s.loggingMiddleware)
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Route("/runs", func(r chi.Router) {
		r.Get("/", s.handleListRuns)
		r.Route("/{run}", func(r chi.Router) {
			r.Get("/", s.handleGetRun)
			r.Get("/returns", s.handleReturns)
			r.Get("/gains", s.handleGains)
			r.Get("/allocation", s.handleAllocation)
			r.Get("/issues", s.handleIssues)
		})
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("Starting HTTP server")
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	s.log.Info().Msg("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

const defaultLimit = 20

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	runs, err := store.ListRuns(r.Context(), s.db, limit)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, orEmpty(runs))
}

// run resolves the run of the request; "latest" names the newest run.
func (s *Server) run(w http.ResponseWriter, r *http.Request) (store.Run, bool) {
	var (
		id  = chi.URLParam(r, "run")
		run store.Run
		err error
	)
	if id == "latest" {
		run, err = store.LatestRun(r.Context(), s.db)
	} else {
		run, err = store.GetRun(r.Context(), s.db, id)
	}
	if err != nil {
		s.fail(w, err)
		return run, false
	}
	return run, true
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if run, ok := s.run(w, r); ok {
		s.writeJSON(w, http.StatusOK, run)
	}
}

func (s *Server) handleReturns(w http.ResponseWriter, r *http.Request) {
	run, ok := s.run(w, r)
	if !ok {
		return
	}
	returns, err := store.ListReturns(r.Context(), s.db, run.ID, r.URL.Query().Get("entity"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, orEmpty(returns))
}

func (s *Server) handleGains(w http.ResponseWriter, r *http.Request) {
	run, ok := s.run(w, r)
	if !ok {
		return
	}
	gains, err := store.ListGains(r.Context(), s.db, run.ID)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, orEmpty(gains))
}

type allocationResponse struct {
	Total    decimal.NullDecimal `json:"total"`
	Baseline decimal.NullDecimal `json:"baseline"`
	Buckets  []store.Bucket      `json:"buckets"`
	Holdings []store.Holding     `json:"holdings"`
}

func (s *Server) handleAllocation(w http.ResponseWriter, r *http.Request) {
	run, ok := s.run(w, r)
	if !ok {
		return
	}
	buckets, err := store.ListAllocation(r.Context(), s.db, run.ID)
	if err != nil {
		s.fail(w, err)
		return
	}
	holdings, err := store.ListHoldings(r.Context(), s.db, run.ID)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, allocationResponse{
		Total:    run.Total,
		Baseline: run.Baseline,
		Buckets:  orEmpty(buckets),
		Holdings: orEmpty(holdings),
	})
}

func (s *Server) handleIssues(w http.ResponseWriter, r *http.Request) {
	run, ok := s.run(w, r)
	if !ok {
		return
	}
	issues, err := store.ListIssues(r.Context(), s.db, run.ID)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, orEmpty(issues))
}

func orEmpty[T any](ts []T) []T {
	if ts == nil {
		return []T{}
	}
	return ts
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	s.log.Error().Err(err).Msg("Failed to query results")
	s.writeError(w, http.StatusInternalServerError, "internal error")
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
