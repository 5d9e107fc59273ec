// Package artifacts decodes the generated data URIs and exports a session's
// images and proposal to disk.
package artifacts

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"solarassess/pkg/utils"
	"solarassess/pkg/workflow"
)

// Exported file base names.
const (
	RooftopLayoutName      = "rooftop-layout"
	SavingsInfographicName = "savings-infographic"
	ProposalFile           = "proposal.md"
)

// ErrNoSession is returned when exporting a snapshot that has no session.
var ErrNoSession = errors.New("snapshot has no session to export")

// DecodeDataURI parses a base64 data URI into its MIME type and bytes.
func DecodeDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data URI")
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("data URI has no payload")
	}
	mime, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return "", nil, fmt.Errorf("data URI is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("invalid base64 payload: %w", err)
	}
	return mime, data, nil
}

// Extension returns the file extension for an image MIME type.
func Extension(mime string) string {
	switch mime {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

// Export writes every populated artifact of snap to <dir>/<session id>/ and returns the
// written paths. Earlier exports of the same session are replaced.
func Export(dir string, snap workflow.Snapshot) ([]string, error) {
	if snap.SessionID == "" {
		return nil, ErrNoSession
	}
	sessionDir := filepath.Join(dir, utils.SanitizeIdentifier(snap.SessionID))
	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	if err := utils.CleanDirectoryContents(sessionDir); err != nil {
		return nil, err //nolint:wrapcheck // already descriptive
	}

	var written []string
	images := []struct {
		name string
		uri  string
	}{
		{RooftopLayoutName, snap.Assessment.RooftopLayoutURL},
		{SavingsInfographicName, snap.Assessment.SavingsInfographicURL},
	}
	for _, img := range images {
		if img.uri == "" {
			continue
		}
		mime, data, err := DecodeDataURI(img.uri)
		if err != nil {
			return written, fmt.Errorf("%s: %w", img.name, err)
		}
		path := filepath.Join(sessionDir, img.name+Extension(mime))
		if err := utils.WriteFileAtomic(path, data, 0644); err != nil {
			return written, err //nolint:wrapcheck // already descriptive
		}
		written = append(written, path)
	}

	if snap.Assessment.ProposalSummary != "" {
		path := filepath.Join(sessionDir, ProposalFile)
		if err := utils.WriteFileAtomic(path, []byte(proposalDocument(snap)), 0644); err != nil {
			return written, err //nolint:wrapcheck // already descriptive
		}
		written = append(written, path)
	}
	return written, nil
}

func proposalDocument(snap workflow.Snapshot) string {
	var b strings.Builder
	b.WriteString("# Solar Assessment\n\n")
	if snap.ClientData != nil {
		fmt.Fprintf(&b, "- Address: %s\n", snap.ClientData.Address)
		fmt.Fprintf(&b, "- Energy needs: %s\n", snap.ClientData.EnergyNeeds)
	}
	fmt.Fprintf(&b, "- Solar score: %s/100\n\n", snap.Assessment.SolarScore)
	b.WriteString(snap.Assessment.ProposalSummary)
	if !strings.HasSuffix(snap.Assessment.ProposalSummary, "\n") {
		b.WriteString("\n")
	}
	return b.String()
}
