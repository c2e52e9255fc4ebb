package httpapi

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/E4Saber/stock-analyzer-sub000/internal/pipeline"
)

// Server is the read-only ops surface: health, metrics, and the latest
// cycle's output records as JSON. It renders nothing; charting and tables
// are downstream collaborators.
type Server struct {
	router  *mux.Router
	limiter *rate.Limiter

	mu     sync.RWMutex
	latest *pipeline.CycleResult
}

// New builds the server around a metrics registry and rate limits.
func New(registry *prometheus.Registry, perSecond float64, burst int) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	api := s.router.PathPrefix("/v1").Subrouter()
	api.Use(s.rateLimit)
	api.HandleFunc("/signals/latest", s.handleLatestSignals).Methods(http.MethodGet)
	api.HandleFunc("/signals/{symbol}", s.handleSymbolSignal).Methods(http.MethodGet)
	api.HandleFunc("/lifecycle/{id}", s.handleLifecycle).Methods(http.MethodGet)
	api.HandleFunc("/plans/latest", s.handleLatestPlans).Methods(http.MethodGet)
	return s
}

// SetLatest publishes a finished cycle to readers.
func (s *Server) SetLatest(result *pipeline.CycleResult) {
	s.mu.Lock()
	s.latest = result
	s.mu.Unlock()
}

// Handler returns the root handler for mounting.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe blocks serving the ops API.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	log.Info().Str("addr", addr).Msg("ops server listening")
	return srv.ListenAndServe()
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) snapshot() *pipeline.CycleResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	latest := s.snapshot()
	status := map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC(),
	}
	if latest != nil {
		status["last_run_id"] = latest.RunID
		status["last_cycle"] = latest.Date
		status["symbols_scored"] = len(latest.Results)
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleLatestSignals(w http.ResponseWriter, _ *http.Request) {
	latest := s.snapshot()
	if latest == nil {
		http.Error(w, "no cycle has completed yet", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, latest)
}

func (s *Server) handleSymbolSignal(w http.ResponseWriter, r *http.Request) {
	latest := s.snapshot()
	if latest == nil {
		http.Error(w, "no cycle has completed yet", http.StatusNotFound)
		return
	}
	symbol := mux.Vars(r)["symbol"]
	for i := range latest.Results {
		if latest.Results[i].Symbol == symbol {
			writeJSON(w, http.StatusOK, latest.Results[i])
			return
		}
	}
	http.Error(w, "symbol not in latest cycle", http.StatusNotFound)
}

func (s *Server) handleLifecycle(w http.ResponseWriter, r *http.Request) {
	latest := s.snapshot()
	if latest == nil {
		http.Error(w, "no cycle has completed yet", http.StatusNotFound)
		return
	}
	id := mux.Vars(r)["id"]
	for _, state := range latest.Themes {
		if state.ID == id {
			writeJSON(w, http.StatusOK, state)
			return
		}
	}
	for i := range latest.Results {
		if latest.Results[i].Symbol == id && latest.Results[i].Campaign != nil {
			writeJSON(w, http.StatusOK, latest.Results[i].Campaign)
			return
		}
	}
	http.Error(w, "no lifecycle state for id", http.StatusNotFound)
}

func (s *Server) handleLatestPlans(w http.ResponseWriter, _ *http.Request) {
	latest := s.snapshot()
	if latest == nil {
		http.Error(w, "no cycle has completed yet", http.StatusNotFound)
		return
	}
	plans := make([]interface{}, 0, len(latest.Results))
	for i := range latest.Results {
		if latest.Results[i].Plan != nil {
			plans = append(plans, latest.Results[i].Plan)
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id": latest.RunID,
		"date":   latest.Date,
		"plans":  plans,
	})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("response encode failed")
	}
}
