// Package tui is the terminal front end for the assessment workflow.
//
// It follows the bubbletea model: workflow state arrives as StateMsg values pushed from
// Workflow.OnChange, and user intents run as commands that call into the workflow.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"solarassess/pkg/artifacts"
	"solarassess/pkg/workflow"
)

// Workflow is the subset of *workflow.Workflow the terminal UI drives.
type Workflow interface {
	Snapshot() workflow.Snapshot
	OnChange(fn func(workflow.Snapshot)) func()
	SubmitIntake(ctx context.Context, data workflow.ClientData) error
	RequestSavingsVisualization(ctx context.Context) error
	Reset()
}

const (
	focusAddress = iota
	focusNeeds
)

// StateMsg carries a workflow snapshot into the program.
type StateMsg workflow.Snapshot

type opDoneMsg struct {
	op  string
	err error
}

type exportedMsg struct {
	paths []string
	err   error
}

var (
	primary = lipgloss.Color("#2196f3")
	accent  = lipgloss.Color("#ff9800")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(primary).
			Padding(0, 2)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primary).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#607d8b"))

	scoreStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#c62828"))

	footerKeyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent)
)

// Model is the bubbletea model for the assessment screen.
type Model struct {
	wf        Workflow
	ctx       context.Context
	exportDir string

	snap     workflow.Snapshot
	address  textinput.Model
	needs    textinput.Model
	focus    int
	spinner  spinner.Model
	notice   string
	exported []string
	width    int
	quitting bool
}

// NewModel creates the model. Exports are disabled when exportDir is empty.
func NewModel(ctx context.Context, wf Workflow, exportDir string) Model {
	address := textinput.New()
	address.Placeholder = "e.g., 1600 Amphitheatre Parkway, Mountain View, CA"
	address.CharLimit = 256
	address.Width = 60
	address.Focus()

	needs := textinput.New()
	needs.Placeholder = "e.g., High usage, 2 adults, 2 kids, EV charger"
	needs.CharLimit = 256
	needs.Width = 60

	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(lipgloss.NewStyle().Foreground(accent)))

	return Model{
		wf:        wf,
		ctx:       ctx,
		exportDir: exportDir,
		snap:      wf.Snapshot(),
		address:   address,
		needs:     needs,
		spinner:   sp,
	}
}

// Init starts the input cursor and spinner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.quitting = true
			return m, tea.Quit
		}
		if m.snap.Step == workflow.StepAssessment {
			return m.updateAssessment(msg)
		}
		return m.updateIntake(msg)

	case StateMsg:
		m.setSnapshot(workflow.Snapshot(msg))
		return m, nil

	case opDoneMsg:
		// Completion also arrives via StateMsg when running under a program;
		// reading here keeps the model correct without one.
		m.setSnapshot(m.wf.Snapshot())
		return m, nil

	case exportedMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("Export failed: %v", msg.err)
		} else {
			m.notice = fmt.Sprintf("Exported %d file(s)", len(msg.paths))
		}
		m.exported = msg.paths
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	}
	return m, nil
}

func (m *Model) setSnapshot(snap workflow.Snapshot) {
	if snap.Version < m.snap.Version {
		return
	}
	if m.snap.Step == workflow.StepAssessment && snap.Step == workflow.StepIntake && snap.ClientData == nil {
		m.clearInputs()
	}
	if snap.SessionID != m.snap.SessionID {
		m.exported = nil
	}
	m.snap = snap
}

func (m *Model) clearInputs() {
	m.address.SetValue("")
	m.needs.SetValue("")
	m.focus = focusAddress
	m.address.Focus()
	m.needs.Blur()
}

func (m Model) updateIntake(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.quitting = true
		return m, tea.Quit

	case tea.KeyTab, tea.KeyShiftTab, tea.KeyUp, tea.KeyDown:
		cmd := m.toggleFocus()
		return m, cmd

	case tea.KeyEnter:
		if m.focus == focusAddress {
			cmd := m.toggleFocus()
			return m, cmd
		}
		if m.snap.Loading.Assessment {
			return m, nil
		}
		data := workflow.ClientData{
			Address:     strings.TrimSpace(m.address.Value()),
			EnergyNeeds: strings.TrimSpace(m.needs.Value()),
		}
		if data.Address == "" || data.EnergyNeeds == "" {
			m.notice = "Please enter both the address and energy needs."
			return m, nil
		}
		m.notice = ""
		return m, m.submit(data)
	}

	var cmd tea.Cmd
	if m.focus == focusAddress {
		m.address, cmd = m.address.Update(msg)
	} else {
		m.needs, cmd = m.needs.Update(msg)
	}
	return m, cmd
}

func (m *Model) toggleFocus() tea.Cmd {
	if m.focus == focusAddress {
		m.focus = focusNeeds
		m.address.Blur()
		return m.needs.Focus()
	}
	m.focus = focusAddress
	m.needs.Blur()
	return m.address.Focus()
}

func (m Model) updateAssessment(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		m.quitting = true
		return m, tea.Quit

	case "s":
		if !m.snap.Ready() || m.snap.Loading.Savings {
			return m, nil
		}
		return m, m.requestSavings()

	case "r", "n":
		m.wf.Reset()
		m.notice = ""
		m.setSnapshot(m.wf.Snapshot())
		return m, nil

	case "e":
		if m.exportDir == "" {
			m.notice = "Export directory not configured."
			return m, nil
		}
		return m, exportCmd(m.exportDir, m.snap)
	}
	return m, nil
}

func (m Model) submit(data workflow.ClientData) tea.Cmd {
	wf, ctx := m.wf, m.ctx
	return func() tea.Msg {
		return opDoneMsg{op: workflow.OperationAssessment, err: wf.SubmitIntake(ctx, data)}
	}
}

func (m Model) requestSavings() tea.Cmd {
	wf, ctx := m.wf, m.ctx
	return func() tea.Msg {
		return opDoneMsg{op: workflow.OperationSavings, err: wf.RequestSavingsVisualization(ctx)}
	}
}

func exportCmd(dir string, snap workflow.Snapshot) tea.Cmd {
	return func() tea.Msg {
		paths, err := artifacts.Export(dir, snap)
		return exportedMsg{paths: paths, err: err}
	}
}
