package webui

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solarassess/pkg/config"
)

func TestSecretsLifecycle(t *testing.T) {
	e := newTestEnv(t)
	t.Cleanup(func() { _ = config.DeleteCredential(config.EnvOpenAIAPIKey) })

	rec := e.do(t, http.MethodPost, "/api/secrets", "application/json",
		`{"name":"OPENAI_API_KEY","value":"sk-test"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var setResp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &setResp))
	assert.Equal(t, true, setResp["success"])
	assert.Equal(t, false, setResp["persisted"])
	assert.Equal(t, true, setResp["restart_required"])

	value, err := config.GetSecret(config.EnvOpenAIAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", value)

	rec = e.do(t, http.MethodGet, "/api/secrets", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []SecretEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	assert.Contains(t, entries, SecretEntry{Name: config.EnvOpenAIAPIKey})

	rec = e.do(t, http.MethodDelete, "/api/secrets/OPENAI_API_KEY", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, config.StoredCredentials(), config.EnvOpenAIAPIKey)
}

func TestSecretsPersistWithPassword(t *testing.T) {
	e := newTestEnv(t)
	config.SetProjectPassword("hunter2")
	t.Cleanup(func() {
		config.ClearProjectPassword()
		_ = config.DeleteCredential(config.EnvAnthropicAPIKey)
	})

	req := `{"name":"ANTHROPIC_API_KEY","value":"sk-ant"}`
	// Auth is enabled once a project password is known.
	httpReq := e.do(t, http.MethodPost, "/api/secrets", "application/json", req)
	assert.Equal(t, http.StatusUnauthorized, httpReq.Code)

	rec := e.doAuth(t, http.MethodPost, "/api/secrets", "application/json", req, "hunter2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, config.SecretsFileExists(e.server.projectDir))

	secrets, err := config.ReadCredentialsFile(e.server.projectDir, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "sk-ant", secrets[config.EnvAnthropicAPIKey])
}

func TestSecretsValidation(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		wantStatus int
	}{
		{"invalid json", http.MethodPost, "/api/secrets", `nope`, http.StatusBadRequest},
		{"missing name", http.MethodPost, "/api/secrets", `{"value":"x"}`, http.StatusBadRequest},
		{"missing value", http.MethodPost, "/api/secrets", `{"name":"GEMINI_API_KEY"}`, http.StatusBadRequest},
		{"unsupported name", http.MethodPost, "/api/secrets", `{"name":"AWS_SECRET","value":"x"}`, http.StatusBadRequest},
		{"wrong method", http.MethodPut, "/api/secrets", ``, http.StatusMethodNotAllowed},
		{"delete without name", http.MethodDelete, "/api/secrets/", ``, http.StatusBadRequest},
		{"delete unsupported", http.MethodDelete, "/api/secrets/HOME", ``, http.StatusBadRequest},
		{"delete wrong method", http.MethodGet, "/api/secrets/GEMINI_API_KEY", ``, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			rec := e.do(t, tt.method, tt.target, "application/json", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
