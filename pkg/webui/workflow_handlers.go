package webui

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"solarassess/pkg/version"
	"solarassess/pkg/workflow"
)

// pageData is the view model for index.html.
type pageData struct {
	State           workflow.Snapshot
	Ready           bool
	Refresh         bool
	ProviderWarning string
	Version         string
}

// safeDataURL passes inline image data URIs through html/template; anything else renders empty.
func safeDataURL(uri string) template.URL {
	if !strings.HasPrefix(uri, "data:image/") {
		return ""
	}
	//nolint:gosec // restricted to data:image/ URIs produced by the gateway
	return template.URL(uri)
}

func isFormPost(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") || strings.HasPrefix(ct, "multipart/form-data")
}

// handleDashboard renders the assessment page. It refreshes itself while work is in flight.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap := s.workflow.Snapshot()
	data := pageData{
		State:   snap,
		Ready:   snap.Ready(),
		Refresh: snap.Loading.Assessment || snap.Loading.Savings,
		Version: version.Version,
	}
	if s.gateway != nil && !s.gateway.Available() {
		if reason := s.gateway.UnavailableReason(); reason != nil {
			data.ProviderWarning = reason.Error()
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		s.logger.Error("Failed to render dashboard: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// handleState implements GET /api/state.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, s.workflow.Snapshot())
}

// handleIntake implements POST /api/intake with a JSON body or form fields address and energyNeeds.
// The assessment continues in the background; the response carries the state once it has started.
func (s *Server) handleIntake(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	form := isFormPost(r)
	var data workflow.ClientData
	if form {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form", http.StatusBadRequest)
			return
		}
		data.Address = r.PostForm.Get("address")
		data.EnergyNeeds = r.PostForm.Get("energyNeeds")
	} else if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(data.Address) == "" || strings.TrimSpace(data.EnergyNeeds) == "" {
		http.Error(w, workflow.ErrInvalidIntake.Error(), http.StatusBadRequest)
		return
	}

	snap := s.startAndWait("assessment", func(ctx context.Context) error {
		return s.workflow.SubmitIntake(ctx, data)
	})
	s.respond(w, r, form, http.StatusAccepted, snap)
}

// handleSavings implements POST /api/savings.
func (s *Server) handleSavings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	form := isFormPost(r)
	snap := s.workflow.Snapshot()
	if !snap.Ready() || snap.Loading.Savings {
		// Nothing to start; report the current state.
		s.respond(w, r, form, http.StatusOK, snap)
		return
	}

	snap = s.startAndWait("savings", s.workflow.RequestSavingsVisualization)
	s.respond(w, r, form, http.StatusAccepted, snap)
}

// handleReset implements POST /api/reset.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.workflow.Reset()
	s.respond(w, r, isFormPost(r), http.StatusOK, s.workflow.Snapshot())
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, form bool, status int, snap workflow.Snapshot) {
	if form {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.writeJSON(w, status, snap)
}

// startAndWait runs op in the background under the server context and waits for the
// workflow to publish its first change or for op to return, bounded by startWait.
func (s *Server) startAndWait(name string, op func(ctx context.Context) error) workflow.Snapshot {
	changed := make(chan struct{}, 1)
	unsubscribe := s.workflow.OnChange(func(workflow.Snapshot) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	ctx := s.baseCtx
	done := make(chan struct{})
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(done)
		if err := op(ctx); err != nil && !errors.Is(err, workflow.ErrSuperseded) {
			s.logger.Warn("Background %s finished with error: %v", name, err)
		}
	}()

	// An op that turns into a no-op publishes nothing, so its return also ends the wait.
	select {
	case <-changed:
	case <-done:
	case <-time.After(startWait):
		s.logger.Warn("Timed out waiting for %s to start", name)
	}
	return s.workflow.Snapshot()
}
