// File: internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/log-monitor/internal/config"
	"github.com/smartdevs17/log-monitor/internal/connection"
	"github.com/smartdevs17/log-monitor/internal/ingest"
	"github.com/smartdevs17/log-monitor/internal/metrics"
	"github.com/smartdevs17/log-monitor/internal/models"
	"github.com/smartdevs17/log-monitor/internal/storage"
	"github.com/smartdevs17/log-monitor/pkg/utils"
)

// HTTPServer represents the HTTP server
type HTTPServer struct {
	config         *config.ServerConfig
	hubConfig      *config.HubConfig
	server         *http.Server
	router         *mux.Router
	gateway        *storage.Gateway
	hub            *connection.Manager
	pipeline       *ingest.Pipeline
	metricsManager *metrics.Manager
	logger         *logrus.Logger
}

// NewHTTPServer creates a new HTTP server
func NewHTTPServer(
	cfg *config.ServerConfig,
	hubCfg *config.HubConfig,
	gateway *storage.Gateway,
	hub *connection.Manager,
	pipeline *ingest.Pipeline,
	metricsManager *metrics.Manager,
) (*HTTPServer, error) {

	server := &HTTPServer{
		config:         cfg,
		hubConfig:      hubCfg,
		gateway:        gateway,
		hub:            hub,
		pipeline:       pipeline,
		metricsManager: metricsManager,
		logger:         utils.GetLogger(),
	}

	// Setup router
	server.setupRouter()

	// Create HTTP server
	server.server = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:     server.router,
		ReadTimeout: cfg.ReadTimeout,
		// WriteTimeout is deliberately left unset: it would sever the
		// long-lived websocket stream.
	}

	return server, nil
}

// setupRouter sets up the HTTP routes
func (s *HTTPServer) setupRouter() {
	s.router = mux.NewRouter()

	// Middleware
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.corsMiddleware)
	if s.metricsManager != nil {
		s.router.Use(s.metricsMiddleware)
	}

	// Ingestion, history and live stream
	s.router.HandleFunc("/logs", s.ingestHandler).Methods("POST")
	s.router.HandleFunc("/history", s.historyHandler).Methods("GET")
	s.router.HandleFunc("/ws", s.streamHandler).Methods("GET")

	// Operational endpoints
	api := s.router.PathPrefix("/api/v1").Subrouter()

	if s.config.EnableHealth {
		api.HandleFunc("/health", s.healthHandler).Methods("GET")
		api.HandleFunc("/health/detailed", s.detailedHealthHandler).Methods("GET")
	}

	if s.config.EnableMetrics {
		s.router.Handle("/metrics", promhttp.Handler())
		api.HandleFunc("/stats", s.statsHandler).Methods("GET")
	}

	// Static files for the dashboard
	if s.config.StaticDir != "" {
		s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// Router exposes the configured router, mainly for tests
func (s *HTTPServer) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *HTTPServer) Start() error {
	s.logger.WithFields(logrus.Fields{
		"address":         s.server.Addr,
		"metrics_enabled": s.config.EnableMetrics,
	}).Info("Starting HTTP server")

	// Immediately update system and component metrics so they appear on first scrape
	if s.metricsManager != nil {
		s.metricsManager.UpdateSystemMetrics()
		pm := s.metricsManager.GetPrometheusMetrics()
		if s.gateway != nil {
			pm.UpdateComponentHealth("storage", s.gateway.IsHealthy())
		}
		if s.hub != nil {
			pm.UpdateComponentHealth("hub", s.hub.IsHealthy())
		}

		go s.systemMetricsUpdater()
	}

	// Create a channel to receive startup errors
	errChan := make(chan error, 1)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("HTTP server error")
			errChan <- err
		}
	}()

	// Give the server a moment to start and check for immediate binding errors
	select {
	case err := <-errChan:
		return fmt.Errorf("failed to start HTTP server: %w", err)
	case <-time.After(100 * time.Millisecond):
		// Server started successfully
		return nil
	}
}

// systemMetricsUpdater updates system metrics periodically
func (s *HTTPServer) systemMetricsUpdater() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		s.metricsManager.UpdateSystemMetrics()

		pm := s.metricsManager.GetPrometheusMetrics()
		if s.gateway != nil {
			pm.UpdateComponentHealth("storage", s.gateway.IsHealthy())
		}
		if s.hub != nil {
			pm.UpdateComponentHealth("hub", s.hub.IsHealthy())
		}
	}
}

// Stop stops the HTTP server
func (s *HTTPServer) Stop() error {
	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// Handlers

// ingestHandler accepts a log record from a producer
func (s *HTTPServer) ingestHandler(w http.ResponseWriter, r *http.Request) {
	var req models.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	record, err := s.pipeline.Ingest(req.Level, req.Message, req.Source)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid log record", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   record,
	})
}

// historyHandler returns the most recent persisted records, newest first
func (s *HTTPServer) historyHandler(w http.ResponseWriter, r *http.Request) {
	limit := ingest.DefaultHistoryLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil {
			limit = l
		}
	}

	records := s.pipeline.History(r.Context(), limit)
	s.writeJSON(w, http.StatusOK, records)
}

// healthHandler returns basic health status
func (s *HTTPServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":          "healthy",
		"timestamp":       time.Now().UTC().Format(time.RFC3339Nano),
		"metrics_enabled": s.config.EnableMetrics,
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// detailedHealthHandler returns detailed health status
func (s *HTTPServer) detailedHealthHandler(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now(),
		"components": map[string]interface{}{
			"storage": s.gateway.GetHealth(),
			"hub":     s.hub.IsHealthy(),
		},
	}

	s.writeJSON(w, http.StatusOK, health)
}

// statsHandler returns application statistics
func (s *HTTPServer) statsHandler(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"timestamp":       time.Now(),
		"storage":         s.gateway.GetStats(),
		"hub":             s.hub.GetStats(),
		"degraded":        s.gateway.Degraded(),
		"metrics_enabled": s.config.EnableMetrics,
	}

	s.writeJSON(w, http.StatusOK, stats)
}

// Utility Methods

// writeJSON writes a JSON response
func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string, err error) {
	errorResponse := map[string]interface{}{
		"error":     message,
		"status":    status,
		"timestamp": time.Now(),
	}

	if err != nil {
		errorResponse["details"] = err.Error()
		s.logger.WithFields(logrus.Fields{
			"status":  status,
			"message": message,
			"error":   err,
		}).Error("HTTP error")
	}

	s.writeJSON(w, status, errorResponse)
}
