package artifacts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solarassess/pkg/workflow"
)

func TestDecodeDataURI(t *testing.T) {
	mime, data, err := DecodeDataURI("data:image/jpeg;base64,aGk=")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mime)
	assert.Equal(t, []byte("hi"), data)

	for _, bad := range []string{
		"https://example.com/a.jpg",
		"data:image/jpeg;base64",
		"data:text/plain,hello",
		"data:image/jpeg;base64,!!!",
	} {
		_, _, err := DecodeDataURI(bad)
		assert.Error(t, err, bad)
	}
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".jpg", Extension("image/jpeg"))
	assert.Equal(t, ".png", Extension("image/png"))
	assert.Equal(t, ".jpg", Extension(""))
}

func completedSnapshot() workflow.Snapshot {
	return workflow.Snapshot{
		SessionID:  "session-1",
		Step:       workflow.StepAssessment,
		ClientData: &workflow.ClientData{Address: "1 Main St", EnergyNeeds: "2 adults, EV"},
		Assessment: workflow.AssessmentData{
			SolarScore:       "82",
			RooftopLayoutURL: "data:image/jpeg;base64,aGk=",
			ProposalSummary:  "### Key Benefits\n* Lower bills",
		},
	}
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	snap := completedSnapshot()

	written, err := Export(dir, snap)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "session-1", "rooftop-layout.jpg"),
		filepath.Join(dir, "session-1", "proposal.md"),
	}, written)

	img, err := os.ReadFile(written[0])
	require.NoError(t, err)
	assert.Equal(t, "hi", string(img))

	doc, err := os.ReadFile(written[1])
	require.NoError(t, err)
	assert.Contains(t, string(doc), "- Address: 1 Main St")
	assert.Contains(t, string(doc), "- Solar score: 82/100")
	assert.Contains(t, string(doc), "### Key Benefits\n* Lower bills\n")
}

func TestExportIncludesInfographicAndReplacesEarlierExport(t *testing.T) {
	dir := t.TempDir()
	snap := completedSnapshot()
	_, err := Export(dir, snap)
	require.NoError(t, err)

	snap.Assessment.RooftopLayoutURL = "data:image/png;base64,aGk="
	snap.Assessment.SavingsInfographicURL = "data:image/png;base64,Ynll"
	written, err := Export(dir, snap)
	require.NoError(t, err)
	require.Len(t, written, 3)

	entries, err := os.ReadDir(filepath.Join(dir, "session-1"))
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"rooftop-layout.png", "savings-infographic.png", "proposal.md"}, names)
}

func TestExportWithoutSession(t *testing.T) {
	_, err := Export(t.TempDir(), workflow.Snapshot{Step: workflow.StepIntake})
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestExportBadDataURI(t *testing.T) {
	snap := completedSnapshot()
	snap.Assessment.RooftopLayoutURL = "data:image/jpeg;base64,***"
	_, err := Export(t.TempDir(), snap)
	assert.Error(t, err)
}
