package main

import (
	"context"
	"fmt"
	"io"

	"solarassess/pkg/artifacts"
	"solarassess/pkg/markdown"
	"solarassess/pkg/workflow"
)

// assessmentRunner is the workflow surface headless mode needs.
type assessmentRunner interface {
	Snapshot() workflow.Snapshot
	SubmitIntake(ctx context.Context, data workflow.ClientData) error
	RequestSavingsVisualization(ctx context.Context) error
}

type headlessRequest struct {
	Address     string
	EnergyNeeds string
	Savings     bool
	ExportDir   string
}

// runHeadless runs one assessment to completion and prints the result.
func runHeadless(ctx context.Context, wf assessmentRunner, out io.Writer, req headlessRequest) error {
	err := wf.SubmitIntake(ctx, workflow.ClientData{Address: req.Address, EnergyNeeds: req.EnergyNeeds})
	if err != nil {
		if msg := wf.Snapshot().Error; msg != "" {
			return fmt.Errorf("%s: %w", msg, err)
		}
		return err //nolint:wrapcheck // ErrInvalidIntake is already user-facing
	}

	snap := wf.Snapshot()
	fmt.Fprintf(out, "Assessment for: %s\n\n", snap.ClientData.Address)
	fmt.Fprintf(out, "Solar Potential Score: %s/100\n\n", snap.Assessment.SolarScore)
	fmt.Fprintln(out, "Personalized Initial Proposal Summary")
	fmt.Fprintln(out, markdown.ToText(snap.Assessment.ProposalSummary))

	if req.Savings {
		if err := wf.RequestSavingsVisualization(ctx); err != nil {
			if msg := wf.Snapshot().Error; msg != "" {
				return fmt.Errorf("%s: %w", msg, err)
			}
			return err //nolint:wrapcheck // already descriptive
		}
		fmt.Fprintln(out, "\nSavings infographic generated.")
	}

	if req.ExportDir == "" {
		return nil
	}
	paths, err := artifacts.Export(req.ExportDir, wf.Snapshot())
	if err != nil {
		return fmt.Errorf("failed to export artifacts: %w", err)
	}
	fmt.Fprintln(out, "\nExported:")
	for _, p := range paths {
		fmt.Fprintf(out, "  %s\n", p)
	}
	return nil
}
