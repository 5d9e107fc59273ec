package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solarassess/internal/mocks"
	"solarassess/pkg/artifacts"
	"solarassess/pkg/config"
	"solarassess/pkg/gateway"
	"solarassess/pkg/llmerrors"
	"solarassess/pkg/workflow"
)

func newMockWorkflow() (*workflow.Workflow, *mocks.MockGateway) {
	gw := mocks.NewMockGateway()
	return workflow.New(gw, workflow.WithIDGenerator(func() string { return "session-1" })), gw
}

func TestRunHeadless(t *testing.T) {
	wf, gw := newMockWorkflow()
	dir := t.TempDir()
	var out bytes.Buffer

	err := runHeadless(context.Background(), wf, &out, headlessRequest{
		Address:     "1 Main St",
		EnergyNeeds: "2 adults, EV",
		Savings:     true,
		ExportDir:   dir,
	})
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Assessment for: 1 Main St")
	assert.Contains(t, text, "Solar Potential Score: "+mocks.DefaultScore+"/100")
	assert.Contains(t, text, "KEY BENEFITS")
	assert.Contains(t, text, "Savings infographic generated.")
	assert.Equal(t, 1, gw.CallCount(mocks.CallSavings))

	sessionDir := filepath.Join(dir, "session-1")
	for _, name := range []string{
		artifacts.RooftopLayoutName + ".jpg",
		artifacts.SavingsInfographicName + ".jpg",
		artifacts.ProposalFile,
	} {
		path := filepath.Join(sessionDir, name)
		assert.FileExists(t, path)
		assert.Contains(t, text, path)
	}
}

func TestRunHeadlessWithoutExport(t *testing.T) {
	wf, gw := newMockWorkflow()
	var out bytes.Buffer

	err := runHeadless(context.Background(), wf, &out, headlessRequest{Address: "1 Main St", EnergyNeeds: "low"})
	require.NoError(t, err)
	assert.NotContains(t, out.String(), "Exported:")
	assert.Zero(t, gw.CallCount(mocks.CallSavings))
}

func TestRunHeadlessErrors(t *testing.T) {
	t.Run("invalid intake", func(t *testing.T) {
		wf, _ := newMockWorkflow()
		err := runHeadless(context.Background(), wf, &bytes.Buffer{}, headlessRequest{Address: "1 Main St"})
		assert.ErrorIs(t, err, workflow.ErrInvalidIntake)
	})

	t.Run("missing credential", func(t *testing.T) {
		gw := gateway.NewUnavailable(llmerrors.NewProviderUnavailable(config.ProviderGoogle, config.EnvGoogleAPIKey))
		wf := workflow.New(gw)
		err := runHeadless(context.Background(), wf, &bytes.Buffer{}, headlessRequest{Address: "a", EnergyNeeds: "b"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), workflow.MsgCredentialMissing)
		assert.True(t, llmerrors.IsProviderUnavailable(err))
	})

	t.Run("savings failure", func(t *testing.T) {
		wf, gw := newMockWorkflow()
		gw.GenerateSavingsInfographicFunc = func(_ context.Context, _, _ string) (string, error) {
			return "", errors.New("quota")
		}
		err := runHeadless(context.Background(), wf, &bytes.Buffer{}, headlessRequest{Address: "a", EnergyNeeds: "b", Savings: true})
		require.Error(t, err)
		assert.Contains(t, err.Error(), workflow.MsgSavingsFailed)
	})
}

// scripted returns a reader that yields answers in order.
func scripted(answers ...string) passwordReader {
	return func() ([]byte, error) {
		if len(answers) == 0 {
			return nil, errors.New("no more input")
		}
		next := answers[0]
		answers = answers[1:]
		return []byte(next), nil
	}
}

func TestPromptForPassword(t *testing.T) {
	var out bytes.Buffer
	password, err := promptForPassword(scripted("one", "two", "", "", "sunny", "sunny"), &out)
	require.NoError(t, err)
	assert.Equal(t, "sunny", password)
	assert.Contains(t, out.String(), "Passwords do not match.")
	assert.Contains(t, out.String(), "Password must not be empty.")

	_, err = promptForPassword(scripted("a", "b", "c", "d", "e", "f"), &bytes.Buffer{})
	assert.ErrorContains(t, err, "no valid password after 3 attempts")

	_, err = promptForPassword(scripted("a"), &bytes.Buffer{})
	assert.ErrorContains(t, err, "failed to read password")
}

func TestCollectSecrets(t *testing.T) {
	var out bytes.Buffer
	secrets, err := collectSecrets(scripted("gem-key", "", " sk-openai \n", ""), &out, secretPrompts)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		config.EnvGoogleAPIKey: "gem-key",
		config.EnvOpenAIAPIKey: "sk-openai",
	}, secrets)
	assert.Contains(t, out.String(), config.EnvAnthropicAPIKey+" (leave empty to skip)")
}

func TestUnlockSecrets(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, unlockSecrets(dir), "missing file is not an error")

	require.NoError(t, config.WriteCredentialsFile(dir, "sunny", map[string]string{config.EnvGoogleAPIKey: "from-file"}))
	t.Setenv(config.EnvPassword, "sunny")
	t.Cleanup(func() {
		config.ClearProjectPassword()
		_ = config.DeleteCredential(config.EnvGoogleAPIKey)
	})

	require.NoError(t, unlockSecrets(dir))
	value, err := config.GetSecret(config.EnvGoogleAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "from-file", value)
	assert.Equal(t, "sunny", config.GetProjectPassword())

	t.Setenv(config.EnvPassword, "wrong")
	assert.Error(t, unlockSecrets(dir))
}

func TestNewAppWiring(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(config.EnvGoogleAPIKey, "")
	t.Setenv(config.EnvLegacyAPIKey, "")
	t.Setenv(config.EnvPassword, "")
	require.NoError(t, config.LoadConfig(dir))
	cfg, err := config.GetConfig()
	require.NoError(t, err)

	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.False(t, a.gateway.Available())
	require.NotNil(t, a.history)
	require.NotNil(t, a.registry)
	assert.Equal(t, filepath.Join(dir, config.ProjectConfigDir, config.DefaultArtifactDir), a.exportDir)
	_, err = os.Stat(filepath.Join(dir, config.ProjectConfigDir, config.DefaultHistoryDB))
	assert.NoError(t, err)

	handler := newWebServer(a, dir).Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"provider_available":false`)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
