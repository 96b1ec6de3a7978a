// Package httpapi serves the monitoring surface: health, per-pool risk
// reports, equity series and Prometheus metrics.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/ctraderhq/ctrader/internal/metrics"
	"github.com/ctraderhq/ctrader/internal/risk"
)

// PoolStatus is the monitoring view of one pool after its latest cycle.
type PoolStatus struct {
	Pool      string      `json:"pool"`
	UpdatedAt time.Time   `json:"updated_at"`
	Equity    []float64   `json:"equity"`
	Risk      risk.Report `json:"risk"`
}

// StatusStore holds the latest per-pool state for the HTTP surface. The
// cycle runner writes, handlers read.
type StatusStore struct {
	mu    sync.RWMutex
	pools map[string]PoolStatus
}

func NewStatusStore() *StatusStore {
	return &StatusStore{pools: make(map[string]PoolStatus)}
}

func (s *StatusStore) Update(status PoolStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pools[status.Pool] = status
}

func (s *StatusStore) Get(pool string) (PoolStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status, ok := s.pools[pool]
	return status, ok
}

func (s *StatusStore) Pools() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.pools))
	for name := range s.pools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Server is the monitoring HTTP server.
type Server struct {
	store   *StatusStore
	metrics *metrics.Metrics
	srv     *http.Server
}

func NewServer(addr string, store *StatusStore, m *metrics.Metrics) *Server {
	s := &Server{store: store, metrics: m}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/pools", s.handlePools).Methods(http.MethodGet)
	r.HandleFunc("/risk/{pool}", s.handleRisk).Methods(http.MethodGet)
	r.HandleFunc("/equity/{pool}", s.handleEquity).Methods(http.MethodGet)
	r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	log.Info().Str("addr", s.srv.Addr).Msg("monitor server listening")
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"pools":  s.store.Pools(),
		"time":   time.Now().UTC(),
	})
}

func (s *Server) handlePools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Pools())
}

func (s *Server) handleRisk(w http.ResponseWriter, r *http.Request) {
	pool := mux.Vars(r)["pool"]
	status, ok := s.store.Get(pool)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown pool: " + pool})
		return
	}
	writeJSON(w, http.StatusOK, status.Risk)
}

func (s *Server) handleEquity(w http.ResponseWriter, r *http.Request) {
	pool := mux.Vars(r)["pool"]
	status, ok := s.store.Get(pool)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown pool: " + pool})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"pool":       status.Pool,
		"updated_at": status.UpdatedAt,
		"equity":     status.Equity,
	})
}
