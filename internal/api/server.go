// Package api exposes the coordinator's HTTP surface: scheduling
// operations, round outcomes, final decisions, health and metrics.
package api

import (
	"context"
	"net/http"
	"net/http/pprof"
	"time"

	"admissions-coordinator/internal/common/auth"
	"admissions-coordinator/internal/common/config"
	"admissions-coordinator/internal/common/logger"
	"admissions-coordinator/internal/common/observability"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server wires the handlers into an http.Server.
type Server struct {
	httpServer *http.Server
	logger     logger.Logger
}

func NewServer(cfg *config.Config, h *Handler, resolver auth.ActorResolver, obs *observability.Observability, log logger.Logger) *Server {
	mux := http.NewServeMux()

	authed := func(operation string, fn authedHandler) http.HandlerFunc {
		inner := withActor(resolver, log, fn)
		return func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			inner(w, r)
			obs.RecordOperation(r.Context(), operation, "handled")
			obs.RecordOperationDuration(r.Context(), operation, time.Since(start))
		}
	}

	mux.HandleFunc("GET /api/v1/slots", authed("list_slots", h.listSlots))
	mux.HandleFunc("GET /api/v1/applicants/{applicantId}/schedules", authed("list_schedules", h.listSchedules))
	mux.HandleFunc("POST /api/v1/schedules", authed("schedule", h.scheduleInterview))
	mux.HandleFunc("POST /api/v1/schedules/{scheduleId}/cancel", authed("cancel", h.cancelInterview))
	mux.HandleFunc("POST /api/v1/schedules/{scheduleId}/reschedule", authed("reschedule", h.rescheduleInterview))
	mux.HandleFunc("POST /api/v1/applicants/{applicantId}/rounds", authed("round_outcome", h.updateRoundOutcome))
	mux.HandleFunc("PATCH /api/v1/applicants/{applicantId}/decision", authed("final_decision", h.updateFinalDecision))

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /debug/pprof/", pprof.Index)
	mux.HandleFunc("GET /debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("GET /debug/pprof/trace", pprof.Trace)

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Server.Address,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: log.WithFields(map[string]interface{}{"component": "api"}),
	}
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", map[string]interface{}{"address": s.httpServer.Addr})
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
