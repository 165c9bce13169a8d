package debugserver

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"prompt-explorer/internal/logging"
)

// EnvAddr enables the debug server when set, e.g.
// PROMPT_EXPLORER_DEBUG_ADDR=localhost:9090.
const EnvAddr = "PROMPT_EXPLORER_DEBUG_ADDR"

// Version is stamped at build time via -ldflags.
var Version = "dev"

// StatusFunc reports application state for the health endpoint.
type StatusFunc func() Status

// Status is the application state exposed by /healthz.
type Status struct {
	Folder   string `json:"folder,omitempty"`
	Entries  int    `json:"entries"`
	Scanning bool   `json:"scanning"`
}

type healthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`

	Folder   string `json:"folder,omitempty"`
	Entries  int    `json:"entries"`
	Scanning bool   `json:"scanning"`

	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

type versionResponse struct {
	Version   string `json:"version"`
	GoVersion string `json:"goVersion"`
}

// Server is the optional debug HTTP endpoint. It exposes Prometheus
// metrics and a health snapshot; it serves nothing user-facing.
type Server struct {
	addr   string
	status StatusFunc
	start  time.Time

	srv *http.Server
}

// AddrFromEnv returns the configured listen address, or "" when the
// debug server is disabled.
func AddrFromEnv() string {
	return os.Getenv(EnvAddr)
}

// New builds a Server listening on addr. status may be nil.
func New(addr string, status StatusFunc) *Server {
	s := &Server{
		addr:   addr,
		status: status,
		start:  time.Now(),
	}

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	r.HandleFunc("/version", s.handleVersion).Methods("GET")

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Info("Debug server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			logging.Error("Debug server shutdown: %v", err)
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}

// Handler exposes the route table for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:       "healthy",
		Uptime:       time.Since(s.start).Round(time.Second).String(),
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}
	if s.status != nil {
		st := s.status()
		resp.Folder = st.Folder
		resp.Entries = st.Entries
		resp.Scanning = st.Scanning
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Error("Debug server: encode health: %v", err)
	}
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	resp := versionResponse{Version: Version, GoVersion: runtime.Version()}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Error("Debug server: encode version: %v", err)
	}
}
