package workflow

import (
	"context"
	"errors"
	"time"
)

// Step is the current phase of the assessment session.
type Step string

const (
	// StepIntake collects address and energy needs.
	StepIntake Step = "INTAKE"
	// StepAssessment shows score, layout, proposal and the optional infographic.
	StepAssessment Step = "ASSESSMENT"
)

// User-facing error messages.
const (
	MsgCredentialMissing = "The Gemini API Key is not configured. Please ensure it is set correctly and try again."
	MsgAssessmentFailed  = "An error occurred while generating the assessment. Please try again."
	MsgSavingsFailed     = "Failed to generate savings visualization. Please try again."

	credentialMissingFormat = "The %s API Key is not configured. Please ensure it is set correctly and try again."
)

var (
	// ErrInvalidIntake is returned when address or energy needs are empty. State is unchanged.
	ErrInvalidIntake = errors.New("address and energy needs are required")
	// ErrSuperseded is returned by an operation whose session was replaced by a newer
	// SubmitIntake or a Reset while it ran. Its results were discarded.
	ErrSuperseded = errors.New("operation superseded by a newer session")
)

// ClientData is the intake form submission. Immutable once stored.
type ClientData struct {
	Address     string `json:"address"`
	EnergyNeeds string `json:"energyNeeds"`
}

// AssessmentData holds the generated artifacts. Empty string means not yet populated.
type AssessmentData struct {
	SolarScore            string `json:"solarScore"`
	RooftopLayoutURL      string `json:"rooftopLayoutUrl"`
	ProposalSummary       string `json:"proposalSummary"`
	SavingsInfographicURL string `json:"savingsInfographicUrl"`
}

// LoadingState flags the operations currently in flight.
type LoadingState struct {
	Assessment bool `json:"assessment"`
	Savings    bool `json:"savings"`
}

// Snapshot is a read-only copy of the workflow state handed to presentation.
type Snapshot struct {
	ClientData *ClientData    `json:"clientData"`
	SessionID  string         `json:"sessionId,omitempty"`
	Step       Step           `json:"step"`
	Error      string         `json:"error,omitempty"`
	Assessment AssessmentData `json:"assessment"`
	Loading    LoadingState   `json:"loading"`
	Version    uint64         `json:"version"` // increases on every change
}

// Ready reports whether a savings visualization can be requested: the session is in
// the assessment step with a score and energy needs.
func (s Snapshot) Ready() bool {
	return s.Step == StepAssessment && s.Assessment.SolarScore != "" &&
		s.ClientData != nil && s.ClientData.EnergyNeeds != ""
}

// Gateway is the provider boundary the workflow drives.
type Gateway interface {
	EstimateSolarScore(ctx context.Context, address, energyNeeds string) (string, error)
	GenerateRooftopLayout(ctx context.Context, address string) (string, error)
	GenerateProposalSummary(ctx context.Context, score, energyNeeds string) (string, error)
	GenerateSavingsInfographic(ctx context.Context, score, energyNeeds string) (string, error)
}

// Record describes a completed assessment for the history sink.
type Record struct {
	StartedAt       time.Time
	CompletedAt     time.Time
	SessionID       string
	Address         string
	EnergyNeeds     string
	SolarScore      string
	ProposalSummary string
}

// HistorySink receives completed assessments. Failures are logged, never surfaced.
type HistorySink interface {
	AssessmentCompleted(ctx context.Context, rec Record) error
	SavingsGenerated(ctx context.Context, sessionID string) error
}

// Observer receives operation outcomes; metrics.Recorder satisfies it.
type Observer interface {
	ObserveWorkflow(operation, outcome string)
}

// Operation and outcome labels passed to the Observer.
const (
	OperationAssessment = "assessment"
	OperationSavings    = "savings"

	OutcomeSucceeded  = "succeeded"
	OutcomeFailed     = "failed"
	OutcomeSuperseded = "superseded"
	OutcomeSkipped    = "skipped"
)
