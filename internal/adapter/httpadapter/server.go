// Package httpadapter serves the relay's operational endpoints.
package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/open-observatory/internal/domain"
)

const (
	defaultSubmissionLimit = 20
	maxSubmissionLimit     = 500
)

// SubmissionLister lists the latest relayed submissions.
type SubmissionLister interface {
	Recent(ctx context.Context, limit uint64) ([]domain.Submission, error)
}

// Server exposes health, readiness, metrics and submission history endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and
// /submissions routes. submissions may be nil, which leaves the route out.
func NewServer(addr string, ready sharedobs.ReadinessChecker, submissions SubmissionLister, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	if submissions != nil {
		mux.HandleFunc("GET /submissions", s.handleSubmissions(submissions))
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type submissionJSON struct {
	ReportKey     string    `json:"reportKey"`
	ObservationID int       `json:"observationId"`
	Topic         string    `json:"topic,omitempty"`
	Offset        int64     `json:"offset"`
	SubmittedAt   time.Time `json:"submittedAt"`
}

func (s *Server) handleSubmissions(lister SubmissionLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := uint64(defaultSubmissionLimit)
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil || n == 0 || n > maxSubmissionLimit {
				writeJSON(w, http.StatusBadRequest, map[string]string{
					"error": fmt.Sprintf("limit must be between 1 and %d", maxSubmissionLimit),
				})
				return
			}
			limit = n
		}

		subs, err := lister.Recent(r.Context(), limit)
		if err != nil {
			s.logger.Error("list submissions failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list submissions failed"})
			return
		}
		out := make([]submissionJSON, len(subs))
		for i, sub := range subs {
			out[i] = submissionJSON(sub)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}

// Checks is a ReadinessChecker that is ready when every named check passes.
type Checks map[string]sharedobs.ReadinessChecker

func (c Checks) CheckReadiness(ctx context.Context) error {
	var errs []error
	for name, check := range c {
		if err := check.CheckReadiness(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
