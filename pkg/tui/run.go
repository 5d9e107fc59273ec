package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"solarassess/pkg/workflow"
)

// Run starts the terminal UI and blocks until the user quits or ctx is cancelled.
func Run(ctx context.Context, wf Workflow, exportDir string) error {
	p := tea.NewProgram(NewModel(ctx, wf, exportDir), tea.WithAltScreen(), tea.WithContext(ctx))

	// Reset runs inside Update, so a blocking Send would deadlock the event loop.
	// Order is restored by Snapshot.Version in Update.
	unsubscribe := wf.OnChange(func(snap workflow.Snapshot) {
		go p.Send(StateMsg(snap))
	})
	defer unsubscribe()

	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("terminal UI: %w", err)
	}
	return nil
}
