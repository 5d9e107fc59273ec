package tui

import (
	"fmt"
	"strings"

	"solarassess/pkg/artifacts"
	"solarassess/pkg/markdown"
	"solarassess/pkg/workflow"
)

// View renders the current screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Solar AI Assessor"))
	b.WriteString("\n")

	if m.snap.Error != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("Error: " + m.snap.Error))
		b.WriteString("\n")
	}

	if m.snap.Step == workflow.StepAssessment {
		m.viewAssessment(&b)
	} else {
		m.viewIntake(&b)
	}

	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(m.notice))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.footer())
	return b.String()
}

func (m Model) viewIntake(b *strings.Builder) {
	b.WriteString(sectionStyle.Render("Client Intake"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Enter client details to begin the AI-powered assessment."))
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render("Client's Full Address"))
	b.WriteString("\n")
	b.WriteString(m.address.View())
	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render("Basic Energy Needs"))
	b.WriteString("\n")
	b.WriteString(m.needs.View())
	b.WriteString("\n\n")

	if m.snap.Loading.Assessment {
		b.WriteString(m.spinner.View() + " Analyzing...")
	} else {
		b.WriteString(footerKeyStyle.Render("[enter]") + " Start Assessment")
	}
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("How It Works"))
	b.WriteString("\n")
	b.WriteString("1. Client Intake: " + dimStyle.Render("Enter property address and energy needs.") + "\n")
	b.WriteString("2. AI Assessment: " + dimStyle.Render("Generate solar score, rooftop layout, and proposal.") + "\n")
	b.WriteString("3. Visualize Savings: " + dimStyle.Render("Create a custom infographic of potential savings.") + "\n")
}

func (m Model) viewAssessment(b *strings.Builder) {
	address := ""
	if m.snap.ClientData != nil {
		address = m.snap.ClientData.Address
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Assessment for: ") + labelStyle.Render(address))
	b.WriteString("\n")

	loading := m.spinner.View() + " Analyzing..."

	b.WriteString(sectionStyle.Render("Solar Potential Score"))
	b.WriteString("\n")
	switch {
	case m.snap.Assessment.SolarScore != "":
		b.WriteString(scoreStyle.Render(m.snap.Assessment.SolarScore + "/100"))
	case m.snap.Loading.Assessment:
		b.WriteString(loading)
	}
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Preliminary Rooftop Layout"))
	b.WriteString("\n")
	switch {
	case m.snap.Assessment.RooftopLayoutURL != "":
		b.WriteString(describeImage(m.snap.Assessment.RooftopLayoutURL))
	case m.snap.Loading.Assessment:
		b.WriteString(loading)
	}
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Personalized Initial Proposal Summary"))
	b.WriteString("\n")
	switch {
	case m.snap.Assessment.ProposalSummary != "":
		b.WriteString(markdown.ToText(m.snap.Assessment.ProposalSummary))
	case m.snap.Loading.Assessment:
		b.WriteString(loading)
	}
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Visualize Savings"))
	b.WriteString("\n")
	switch {
	case m.snap.Loading.Savings:
		b.WriteString(m.spinner.View() + " Generating...")
	case m.snap.Assessment.SavingsInfographicURL != "":
		b.WriteString(describeImage(m.snap.Assessment.SavingsInfographicURL))
	case m.snap.Ready():
		b.WriteString(footerKeyStyle.Render("[s]") + " Generate Savings Infographic")
	}
	b.WriteString("\n")

	if len(m.exported) > 0 {
		b.WriteString(sectionStyle.Render("Exported"))
		b.WriteString("\n")
		for _, p := range m.exported {
			b.WriteString("  " + p + "\n")
		}
	}
}

// describeImage summarizes a data URI since the terminal cannot display it.
func describeImage(uri string) string {
	mime, data, err := artifacts.DecodeDataURI(uri)
	if err != nil {
		return dimStyle.Render("image ready")
	}
	return dimStyle.Render(fmt.Sprintf("image ready (%s, %d bytes); press e to export", mime, len(data)))
}

func (m Model) footer() string {
	keys := []string{"[tab] switch field", "[enter] submit", "[esc] quit"}
	if m.snap.Step == workflow.StepAssessment {
		keys = []string{"[s] savings", "[e] export", "[r] start new assessment", "[q] quit"}
	}
	return dimStyle.Render(strings.Join(keys, "  "))
}
