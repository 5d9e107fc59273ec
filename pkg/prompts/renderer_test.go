package prompts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedCatalogueRendersAllPrompts(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	data := Data{Address: "1 Main St", EnergyNeeds: "2 adults, EV", Score: "82"}

	score, err := r.Render(SolarScore, data)
	require.NoError(t, err)
	assert.Contains(t, score, `"1 Main St"`)
	assert.Contains(t, score, `"2 adults, EV"`)
	assert.Contains(t, score, "Respond with ONLY the numerical score.")

	layout, err := r.Render(RooftopLayout, data)
	require.NoError(t, err)
	assert.Contains(t, layout, "aerial satellite view")
	assert.Contains(t, layout, "1 Main St")

	summary, err := r.Render(ProposalSummary, data)
	require.NoError(t, err)
	assert.Contains(t, summary, "82/100")
	assert.Contains(t, summary, `"### Key Benefits" and "### Next Steps"`)

	infographic, err := r.Render(SavingsInfographic, data)
	require.NoError(t, err)
	assert.Contains(t, infographic, "#2196f3")
	assert.Contains(t, infographic, "#ff9800")
	assert.Contains(t, infographic, `"Current Bill" vs "New Bill with Solar"`)
}

func TestParseRequiresEveryPrompt(t *testing.T) {
	_, err := Parse([]byte("version: 1\nprompts:\n  solar_score:\n    template: x\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestParseRejectsBadTemplate(t *testing.T) {
	_, err := Parse([]byte("prompts:\n  solar_score:\n    template: \"{{.Address\"\n"))
	require.Error(t, err)
}

func TestRenderUnknownPrompt(t *testing.T) {
	r := MustNewRenderer()
	_, err := r.Render(Name("nope"), Data{})
	require.Error(t, err)
}

func TestNewRendererFromFileOverridesOnePrompt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("prompts:\n  solar_score:\n    template: \"Score {{.Address}} now.\"\n"), 0o600))

	r, err := NewRendererFromFile(path)
	require.NoError(t, err)

	score, err := r.Render(SolarScore, Data{Address: "9 Elm"})
	require.NoError(t, err)
	assert.Equal(t, "Score 9 Elm now.", score)

	layout, err := r.Render(RooftopLayout, Data{Address: "9 Elm"})
	require.NoError(t, err)
	assert.Contains(t, layout, "9 Elm")
}
