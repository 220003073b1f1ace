// Package monitor serves inversion results over HTTP: JSON APIs for run
// records plus chart endpoints for quick visual inspection of reconstructed
// radial profiles.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/fusion-imaging/sitsi/internal/monitoring"
	"github.com/fusion-imaging/sitsi/internal/runstore"
)

// Server handles the HTTP interface for browsing inversion runs.
type Server struct {
	address string
	store   *runstore.Store
	server  *http.Server
}

// Config contains configuration options for the monitor server.
type Config struct {
	Address string
	Store   *runstore.Store
}

// NewServer creates a monitor server over the given run store.
func NewServer(config Config) *Server {
	s := &Server{
		address: config.Address,
		store:   config.Store,
	}
	s.server = &http.Server{
		Addr:    s.address,
		Handler: s.setupRoutes(),
	}
	return s
}

// setupRoutes configures the HTTP routes and handlers.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/runs", s.handleRuns)
	mux.HandleFunc("/charts/profile", s.handleProfileChart)
	mux.HandleFunc("/charts/fit", s.handleFitChart)
	mux.HandleFunc("/charts/runs", s.handleRunsChart)
	mux.HandleFunc("/plots/profile.png", s.handleProfilePNG)

	return mux
}

// Handler exposes the route mux, mostly for tests.
func (s *Server) Handler() http.Handler { return s.server.Handler }

// Start begins the HTTP server in a goroutine and blocks until the context
// is cancelled, then shuts the server down gracefully.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		monitoring.Logf("monitor: listening on %s", s.address)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			monitoring.Logf("monitor: server error: %v", err)
		}
	}()

	<-ctx.Done()
	monitoring.Logf("monitor: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		if cerr := s.server.Close(); cerr != nil {
			monitoring.Logf("monitor: force close error: %v", cerr)
		}
		return err
	}
	return nil
}

// Close shuts the server down immediately.
func (s *Server) Close() error { return s.server.Close() }

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleRuns serves run records as JSON. With ?run=<id> it returns a single
// run; otherwise it lists the most recent runs (?limit= caps the count).
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if runID := r.URL.Query().Get("run"); runID != "" {
		run, err := s.store.GetRun(runID)
		if errors.Is(err, runstore.ErrNotFound) {
			s.writeJSONError(w, http.StatusNotFound, "run not found")
			return
		}
		if err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(run)
		return
	}

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		v, err := strconv.Atoi(l)
		if err != nil || v < 1 {
			s.writeJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = v
	}

	runs, err := s.store.ListRuns(limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []runstore.Run{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(runs)
}

// completedRun fetches the run named by the ?run= query parameter and
// rejects runs that have no stored solution yet.
func (s *Server) completedRun(w http.ResponseWriter, r *http.Request) (runstore.Run, bool) {
	runID := r.URL.Query().Get("run")
	if runID == "" {
		s.writeJSONError(w, http.StatusBadRequest, "missing run parameter")
		return runstore.Run{}, false
	}
	run, err := s.store.GetRun(runID)
	if errors.Is(err, runstore.ErrNotFound) {
		s.writeJSONError(w, http.StatusNotFound, "run not found")
		return runstore.Run{}, false
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return runstore.Run{}, false
	}
	if len(run.Solution) == 0 {
		s.writeJSONError(w, http.StatusConflict, "run has no solution yet")
		return runstore.Run{}, false
	}
	return run, true
}
