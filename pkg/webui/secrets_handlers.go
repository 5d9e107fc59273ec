package webui

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"solarassess/pkg/config"
)

// SecretEntry represents a secret for the API response (name only, no value).
type SecretEntry struct {
	Name string `json:"name"`
}

func (s *Server) handleSecretsRouter(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleSecretsList(w, r)
	case http.MethodPost:
		s.handleSecretsSet(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleSecretsList implements GET /api/secrets.
// Returns secret names only.
func (s *Server) handleSecretsList(w http.ResponseWriter, _ *http.Request) {
	names := config.StoredCredentials()

	entries := make([]SecretEntry, 0, len(names))
	for _, name := range names {
		entries = append(entries, SecretEntry{Name: name})
	}

	s.writeJSON(w, http.StatusOK, entries)
	s.logger.Debug("Served secrets list: %d secrets", len(entries))
}

// handleSecretsSet implements POST /api/secrets.
// The gateway resolves its credential at startup, so a new key takes effect after restart.
func (s *Server) handleSecretsSet(w http.ResponseWriter, r *http.Request) {
	var reqBody struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if reqBody.Name == "" {
		http.Error(w, "Secret name is required", http.StatusBadRequest)
		return
	}
	if reqBody.Value == "" {
		http.Error(w, "Secret value is required", http.StatusBadRequest)
		return
	}

	if err := config.SetCredential(reqBody.Name, reqBody.Value); err != nil {
		if errors.Is(err, config.ErrUnknownCredential) {
			http.Error(w, "Unsupported secret name (allowed: "+strings.Join(config.CredentialNames, ", ")+")", http.StatusBadRequest)
			return
		}
		s.logger.Error("Failed to set secret: %v", err)
		http.Error(w, "Failed to set secret", http.StatusInternalServerError)
		return
	}

	persisted := s.persistSecrets()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"name":             reqBody.Name,
		"persisted":        persisted,
		"restart_required": true,
	})
	s.logger.Info("Secret %q set successfully", reqBody.Name)
}

// handleSecretsDelete implements DELETE /api/secrets/:name.
func (s *Server) handleSecretsDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/api/secrets/")
	if name == "" {
		http.Error(w, "Secret name required", http.StatusBadRequest)
		return
	}

	if err := config.DeleteCredential(name); err != nil {
		if errors.Is(err, config.ErrUnknownCredential) {
			http.Error(w, "Unsupported secret name", http.StatusBadRequest)
			return
		}
		s.logger.Error("Failed to delete secret: %v", err)
		http.Error(w, "Failed to delete secret", http.StatusInternalServerError)
		return
	}

	persisted := s.persistSecrets()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"name":      name,
		"persisted": persisted,
	})
	s.logger.Info("Secret %q deleted successfully", name)
}

// persistSecrets writes the in-memory secrets to the encrypted file when a project password is known.
func (s *Server) persistSecrets() bool {
	password := config.GetProjectPassword()
	if password == "" {
		s.logger.Warn("No project password set - secrets held in memory only")
		return false
	}
	if err := config.SaveCredentials(s.projectDir, password); err != nil {
		// Memory copy is still updated.
		s.logger.Error("Failed to persist secrets to file: %v", err)
		return false
	}
	return true
}
