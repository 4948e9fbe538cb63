// Package api provides the HTTP status endpoint served while a scan runs.
// It exposes Prometheus metrics and a JSON view of the open targets found
// so far.
package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/anstrom/rangescan/internal/errors"
	"github.com/anstrom/rangescan/internal/logging"
	"github.com/anstrom/rangescan/internal/scanning"
)

// Server timeout constants.
const (
	serverShutdownTimeout = 5 * time.Second
	readHeaderTimeout     = 5 * time.Second
	idleTimeout           = 60 * time.Second
)

const apiPrefix = "/api/v1"

// StatusSource reports the state of the running scan.
type StatusSource interface {
	Open() []scanning.Result
	Summary() *scanning.Summary
}

// Server represents the status server.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	listener   net.Listener
	logger     *logging.Logger
	registry   *prometheus.Registry
	status     StatusSource
	version    string
	startTime  time.Time
}

// New creates a status server for addr. registry may be nil, in which case
// /metrics is not routed; status may be nil before a scan starts.
func New(addr string, registry *prometheus.Registry, status StatusSource, version string) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		logger:    logging.Default().WithComponent("api"),
		registry:  registry,
		status:    status,
		version:   version,
		startTime: time.Now(),
	}

	s.setupRoutes()
	s.setupMiddleware()

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handlers.CompressHandler(s.router),
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}
	return s
}

// Start binds the listen address and serves in the background until ctx
// ends or Stop is called. Bind errors are returned immediately.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return errors.WrapConfigError(errors.CodeConfiguration, "failed to bind status server", err)
	}
	s.listener = ln

	s.logger.Info("Starting status server", "address", ln.Addr().String())

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Status server failed", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		_ = s.Stop()
	}()
	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("Status server shutdown error", "error", err)
		return errors.WrapScanError(errors.CodeTimeout, "status server shutdown failed", err)
	}
	return nil
}

// Addr returns the bound address once Start succeeded, else the configured one.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// setupRoutes configures all routes.
func (s *Server) setupRoutes() {
	if s.registry != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	// API routes stay on the root router so a wrong method yields 405.
	s.router.HandleFunc(apiPrefix+"/liveness", s.livenessHandler).Methods(http.MethodGet)
	s.router.HandleFunc(apiPrefix+"/status", s.statusHandler).Methods(http.MethodGet)
	s.router.HandleFunc(apiPrefix+"/version", s.versionHandler).Methods(http.MethodGet)

	s.router.HandleFunc("/", s.indexHandler).Methods(http.MethodGet)
}

// setupMiddleware configures middleware for the server.
func (s *Server) setupMiddleware() {
	s.router.Use(handlers.RecoveryHandler(handlers.PrintRecoveryStack(false)))
	s.router.Use(s.loggingMiddleware)
}

func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"service": "rangescan",
		"endpoints": map[string]string{
			"liveness": "/api/v1/liveness",
			"status":   "/api/v1/status",
			"version":  "/api/v1/version",
			"metrics":  "/metrics",
		},
	}
	s.WriteJSON(w, r, http.StatusOK, response)
}

func (s *Server) livenessHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "alive",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(s.startTime).String(),
	}
	s.WriteJSON(w, r, http.StatusOK, response)
}

// StatusResponse is the body of /api/v1/status.
type StatusResponse struct {
	State     string    `json:"state"`
	ScanID    string    `json:"scan_id,omitempty"`
	Open      []string  `json:"open"`
	ElapsedMs int64     `json:"elapsed_ms,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	response := StatusResponse{
		State:     "idle",
		Open:      []string{},
		Timestamp: time.Now().UTC(),
	}

	if s.status != nil {
		response.State = "running"
		for _, res := range s.status.Open() {
			response.Open = append(response.Open, res.String())
		}
		if summary := s.status.Summary(); summary != nil {
			response.State = "completed"
			response.ScanID = summary.ScanID
			response.ElapsedMs = summary.Elapsed.Milliseconds()
		}
	}

	s.WriteJSON(w, r, http.StatusOK, response)
}

func (s *Server) versionHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"version":   s.version,
		"timestamp": time.Now().UTC(),
		"service":   "rangescan",
	}
	s.WriteJSON(w, r, http.StatusOK, response)
}

// WriteJSON writes a JSON response.
func (s *Server) WriteJSON(w http.ResponseWriter, r *http.Request, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response",
			"error", err,
			"path", r.URL.Path,
			"method", r.Method)
	}
}

// loggingMiddleware logs HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		s.logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration", time.Since(start),
			"remote_addr", r.RemoteAddr)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
