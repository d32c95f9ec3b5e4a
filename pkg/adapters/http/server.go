// Package http serves the fiber runtime's diagnostics over HTTP: a health
// probe, a JSON stats snapshot, and a Prometheus scrape endpoint.
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/tendril"
	"github.com/aretw0/tendril/internal/logging"
)

// Server exposes runtime diagnostics to external monitoring.
type Server struct {
	log *slog.Logger
}

// NewHandler creates the diagnostics HTTP handler. The registry, when
// non-nil, is served on /metrics; register an observability.Collector on it
// to expose the runtime aggregates.
func NewHandler(reg *prometheus.Registry, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{log: logger}

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/stats", s.GetStats)
	if reg != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
	return r
}

// StatsResponse is the JSON shape of a runtime stats snapshot.
type StatsResponse struct {
	Switches          uint64 `json:"switches"`
	SwitchDelayUsec   int64  `json:"switch_delay_usec"`
	LongRuns          uint64 `json:"long_runs"`
	LongRunExcessUsec int64  `json:"long_run_excess_usec"`
	LiveFibers        int64  `json:"live_fibers"`
	StackBytes        int64  `json:"stack_bytes"`
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok"}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetStats handles the GET /stats request.
func (s *Server) GetStats(w http.ResponseWriter, r *http.Request) {
	st := tendril.RuntimeStats()
	resp := StatsResponse{
		Switches:          st.Switches,
		SwitchDelayUsec:   st.SwitchDelay.Microseconds(),
		LongRuns:          st.LongRuns,
		LongRunExcessUsec: st.LongRunTotal.Microseconds(),
		LiveFibers:        st.LiveFibers,
		StackBytes:        st.StackBytes,
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Error("stats response encode failed", "error", err)
	}
}
