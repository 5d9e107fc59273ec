// Package webui serves the assessment workflow over HTTP: a server-rendered page plus a JSON API.
package webui

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"sync"
	"time"

	"solarassess/pkg/config"
	"solarassess/pkg/history"
	"solarassess/pkg/llm/middleware/metrics"
	"solarassess/pkg/logx"
	"solarassess/pkg/markdown"
	"solarassess/pkg/version"
	"solarassess/pkg/workflow"
)

//go:embed web/templates/*.html
var templateFS embed.FS

// BasicAuthUser is the fixed username for web UI basic auth.
const BasicAuthUser = "solar"

// startWait bounds how long an intent handler waits for the workflow to publish its first change.
const startWait = 2 * time.Second

// Workflow is the subset of *workflow.Workflow the server drives.
type Workflow interface {
	Snapshot() workflow.Snapshot
	OnChange(fn func(workflow.Snapshot)) func()
	SubmitIntake(ctx context.Context, data workflow.ClientData) error
	RequestSavingsVisualization(ctx context.Context) error
	Reset()
}

// HistoryLister lists recorded assessments.
type HistoryLister interface {
	List(ctx context.Context, limit int) ([]history.Entry, error)
}

// UsageReporter reports aggregated provider usage.
type UsageReporter interface {
	Snapshot() []metrics.OperationMetrics
}

// GatewayStatus reports whether the provider credential was configured.
type GatewayStatus interface {
	Available() bool
	UnavailableReason() error
	TextModel() string
	ImageModel() string
}

// Server represents the web UI HTTP server.
//
//nolint:govet // fieldalignment: logical grouping preferred for readability
type Server struct {
	workflow       Workflow
	history        HistoryLister
	usage          UsageReporter
	gateway        GatewayStatus
	metricsHandler http.Handler
	logger         *logx.Logger
	templates      *template.Template
	projectDir     string

	baseCtx context.Context
	wg      sync.WaitGroup
}

// NewServer creates a new web UI server.
func NewServer(wf Workflow, projectDir string) *Server {
	templates, err := template.New("").Funcs(template.FuncMap{
		"markdown": markdown.ToHTML,
		"safeURL":  safeDataURL,
	}).ParseFS(templateFS, "web/templates/*.html")
	if err != nil {
		// Templates are embedded at compile time
		panic(fmt.Sprintf("Failed to parse embedded templates: %v", err))
	}

	return &Server{
		workflow:   wf,
		logger:     logx.NewLogger("webui"),
		templates:  templates,
		projectDir: projectDir,
		baseCtx:    context.Background(),
	}
}

// SetHistory enables GET /api/history.
func (s *Server) SetHistory(h HistoryLister) { s.history = h }

// SetUsage enables GET /api/usage.
func (s *Server) SetUsage(u UsageReporter) { s.usage = u }

// SetGatewayStatus lets the page and health endpoint show provider availability.
func (s *Server) SetGatewayStatus(g GatewayStatus) { s.gateway = g }

// SetMetricsHandler serves h on /metrics.
func (s *Server) SetMetricsHandler(h http.Handler) { s.metricsHandler = h }

// requireAuth wraps an HTTP handler with Basic Authentication when a password is configured.
// Username is always "solar"; the password comes from the secrets file or SOLAR_PASSWORD.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		expectedPassword := config.GetWebUIPassword()
		if expectedPassword == "" {
			next(w, r)
			return
		}

		username, password, ok := r.BasicAuth()
		if !ok || username != BasicAuthUser ||
			subtle.ConstantTimeCompare([]byte(password), []byte(expectedPassword)) != 1 {
			if ok {
				s.logger.Warn("Failed authentication attempt from %s (username: %s)", r.RemoteAddr, username)
			}
			w.Header().Set("WWW-Authenticate", `Basic realm="Solar AI Assessor"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// RegisterRoutes sets up HTTP routes.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", s.requireAuth(s.handleDashboard))

	mux.HandleFunc("/api/state", s.requireAuth(s.handleState))
	mux.HandleFunc("/api/intake", s.requireAuth(s.handleIntake))
	mux.HandleFunc("/api/savings", s.requireAuth(s.handleSavings))
	mux.HandleFunc("/api/reset", s.requireAuth(s.handleReset))

	mux.HandleFunc("/api/history", s.requireAuth(s.handleHistory))
	mux.HandleFunc("/api/logs", s.requireAuth(s.handleLogs))
	mux.HandleFunc("/api/usage", s.requireAuth(s.handleUsage))
	mux.HandleFunc("/api/healthz", s.requireAuth(s.handleHealth))

	mux.HandleFunc("/api/secrets", s.requireAuth(s.handleSecretsRouter))
	mux.HandleFunc("/api/secrets/", s.requireAuth(s.handleSecretsDelete))

	if s.metricsHandler != nil {
		mux.Handle("/metrics", s.requireAuth(s.metricsHandler.ServeHTTP))
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return mux
}

// StartServer starts the HTTP server in the background and shuts it down when ctx is done.
// Background workflow operations started by requests run under ctx.
func (s *Server) StartServer(ctx context.Context, host string, port int) error {
	s.baseCtx = ctx
	addr := fmt.Sprintf("%s:%d", host, port)
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("Starting web UI server on http://%s", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server error: %v", err)
			errCh <- err
		}
	}()

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down web UI server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		//nolint:contextcheck // Parent context is cancelled; we need a fresh context for shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("HTTP server shutdown failed: %v", err)
		}
	}()

	// Surface immediate bind failures.
	select {
	case err := <-errCh:
		return fmt.Errorf("web UI server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// Wait blocks until all background workflow operations started by requests have returned.
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response: %v", err)
	}
}

// handleHealth implements GET /api/healthz.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status":  "ok",
		"version": version.Version,
	}
	if s.gateway != nil {
		response["provider_available"] = s.gateway.Available()
		response["text_model"] = s.gateway.TextModel()
		response["image_model"] = s.gateway.ImageModel()
	}
	s.writeJSON(w, http.StatusOK, response)
}

// handleHistory implements GET /api/history?limit=N.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.history == nil {
		http.Error(w, "History not enabled", http.StatusServiceUnavailable)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "Invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := s.history.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list history: %v", err)
		http.Error(w, "Failed to read history", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, entries)
	s.logger.Debug("Served %d history entries", len(entries))
}

// handleUsage implements GET /api/usage.
func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.usage == nil {
		s.writeJSON(w, http.StatusOK, []metrics.OperationMetrics{})
		return
	}
	s.writeJSON(w, http.StatusOK, s.usage.Snapshot())
}

// handleLogs implements GET /api/logs?domain=&since=RFC3339.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	domain := query.Get("domain")
	sinceStr := query.Get("since")

	var since time.Time
	if sinceStr != "" {
		var err error
		since, err = time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			s.logger.Warn("Invalid since parameter: %s", sinceStr)
			http.Error(w, "Invalid since parameter (use RFC3339)", http.StatusBadRequest)
			return
		}
	}

	logs := logx.GetRecentLogEntries(domain, since)
	if len(logs) > 1000 {
		logs = logs[len(logs)-1000:]
	}
	s.writeJSON(w, http.StatusOK, logs)
}
