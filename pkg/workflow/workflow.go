// Package workflow owns the assessment session: the step machine, client data,
// generated artifacts, loading flags and the last error. Presentation layers read
// snapshots and forward three intents: SubmitIntake, RequestSavingsVisualization, Reset.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"solarassess/pkg/llmerrors"
	"solarassess/pkg/logx"
)

// Workflow is safe for concurrent use.
//
// Every SubmitIntake and Reset advances the session token. Operations capture the token
// at start and apply results only while it is still current; a superseded operation's
// context is cancelled and its completions are dropped.
//
//nolint:govet // fieldalignment: logical grouping preferred for readability
type Workflow struct {
	gateway  Gateway
	history  HistorySink
	observer Observer
	logger   *logx.Logger
	newID    func() string
	now      func() time.Time

	mu               sync.Mutex
	state            Snapshot
	session          uint64
	assessmentOp     uint64
	savingsOp        uint64
	cancelAssessment context.CancelFunc
	cancelSavings    context.CancelFunc
	startedAt        time.Time
	listeners        map[int]func(Snapshot)
	nextListener     int
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithHistory records completed assessments in sink.
func WithHistory(sink HistorySink) Option {
	return func(w *Workflow) { w.history = sink }
}

// WithObserver reports operation outcomes to o.
func WithObserver(o Observer) Option {
	return func(w *Workflow) { w.observer = o }
}

// WithLogger sets the workflow logger.
func WithLogger(l *logx.Logger) Option {
	return func(w *Workflow) { w.logger = l }
}

// WithIDGenerator replaces the session id source.
func WithIDGenerator(fn func() string) Option {
	return func(w *Workflow) { w.newID = fn }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) { w.now = now }
}

// New creates a workflow in the intake step.
func New(gateway Gateway, opts ...Option) *Workflow {
	w := &Workflow{
		gateway:   gateway,
		logger:    logx.NewLogger("workflow"),
		newID:     uuid.NewString,
		now:       time.Now,
		state:     Snapshot{Step: StepIntake},
		listeners: make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Snapshot returns a copy of the current state.
func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

func (w *Workflow) snapshotLocked() Snapshot {
	snap := w.state
	if snap.ClientData != nil {
		data := *snap.ClientData
		snap.ClientData = &data
	}
	return snap
}

// OnChange registers fn to be called with a snapshot after every state change.
// Callbacks run on the goroutine that made the change; they may arrive out of order
// across goroutines, so use Snapshot.Version to drop stale ones. The returned func unsubscribes.
func (w *Workflow) OnChange(fn func(Snapshot)) func() {
	w.mu.Lock()
	id := w.nextListener
	w.nextListener++
	w.listeners[id] = fn
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		delete(w.listeners, id)
		w.mu.Unlock()
	}
}

// mutateLocked bumps the version and returns the snapshot and listeners to notify
// once the lock is released.
func (w *Workflow) mutateLocked() (Snapshot, []func(Snapshot)) {
	w.state.Version++
	fns := make([]func(Snapshot), 0, len(w.listeners))
	for _, fn := range w.listeners {
		fns = append(fns, fn)
	}
	return w.snapshotLocked(), fns
}

func notify(snap Snapshot, fns []func(Snapshot)) {
	for _, fn := range fns {
		fn(snap)
	}
}

func (w *Workflow) observe(operation, outcome string) {
	if w.observer != nil {
		w.observer.ObserveWorkflow(operation, outcome)
	}
}

// SubmitIntake starts a new session and runs the assessment: score and rooftop layout
// concurrently, then the proposal summary from the score. It blocks until the
// assessment finishes or is superseded.
//
// Failures are reported through the snapshot (step back to intake, error message set)
// and also returned. ErrInvalidIntake leaves the state untouched.
func (w *Workflow) SubmitIntake(ctx context.Context, data ClientData) error {
	if strings.TrimSpace(data.Address) == "" || strings.TrimSpace(data.EnergyNeeds) == "" {
		return ErrInvalidIntake
	}

	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	w.mu.Lock()
	w.session++
	token := w.session
	w.assessmentOp++
	op := w.assessmentOp
	w.cancelInFlightLocked()
	w.cancelAssessment = cancel
	w.startedAt = w.now()

	stored := data
	w.state.ClientData = &stored
	w.state.SessionID = w.newID()
	w.state.Step = StepAssessment
	w.state.Loading.Assessment = true
	w.state.Error = ""
	w.state.Assessment = AssessmentData{}
	sessionID := w.state.SessionID
	snap, fns := w.mutateLocked()
	w.mu.Unlock()
	notify(snap, fns)

	w.logger.Info("Assessment started: session=%s", sessionID)
	logx.DebugState(ctx, "workflow", "transition", string(StepAssessment), sessionID)

	defer w.finishAssessment(op)

	err := w.runAssessment(opCtx, token, data)
	switch {
	case err == nil:
		w.observe(OperationAssessment, OutcomeSucceeded)
		w.logger.Info("Assessment completed: session=%s", sessionID)
	case errors.Is(err, ErrSuperseded):
		w.observe(OperationAssessment, OutcomeSuperseded)
		w.logger.Info("Assessment superseded: session=%s", sessionID)
	default:
		w.observe(OperationAssessment, OutcomeFailed)
		w.logger.Warn("Assessment failed: session=%s: %v", sessionID, err)
	}
	return err
}

func (w *Workflow) runAssessment(ctx context.Context, token uint64, data ClientData) error {
	var score, layout string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := w.gateway.EstimateSolarScore(gctx, data.Address, data.EnergyNeeds)
		if err != nil {
			return fmt.Errorf("solar score: %w", err)
		}
		score = s
		return nil
	})
	g.Go(func() error {
		l, err := w.gateway.GenerateRooftopLayout(gctx, data.Address)
		if err != nil {
			return fmt.Errorf("rooftop layout: %w", err)
		}
		layout = l
		return nil
	})
	if err := g.Wait(); err != nil {
		return w.failAssessment(token, err)
	}

	if !w.apply(token, func(s *Snapshot) {
		s.Assessment.SolarScore = score
		s.Assessment.RooftopLayoutURL = layout
	}) {
		return ErrSuperseded
	}

	summary, err := w.gateway.GenerateProposalSummary(ctx, score, data.EnergyNeeds)
	if err != nil {
		return w.failAssessment(token, fmt.Errorf("proposal summary: %w", err))
	}

	var rec Record
	if !w.apply(token, func(s *Snapshot) {
		s.Assessment.ProposalSummary = summary
		rec = Record{
			StartedAt:       w.startedAt,
			CompletedAt:     w.now(),
			SessionID:       s.SessionID,
			Address:         data.Address,
			EnergyNeeds:     data.EnergyNeeds,
			SolarScore:      score,
			ProposalSummary: summary,
		}
	}) {
		return ErrSuperseded
	}

	if w.history != nil {
		if err := w.history.AssessmentCompleted(context.WithoutCancel(ctx), rec); err != nil {
			w.logger.Warn("Failed to record assessment %s: %v", rec.SessionID, err)
		}
	}
	return nil
}

// failAssessment rolls the session back to intake with a user message, unless superseded.
// Results gathered before the failure are discarded.
func (w *Workflow) failAssessment(token uint64, err error) error {
	msg := userMessage(err, MsgAssessmentFailed)
	if !w.apply(token, func(s *Snapshot) {
		s.Error = msg
		s.Step = StepIntake
		s.Assessment = AssessmentData{}
	}) {
		return ErrSuperseded
	}
	return err
}

// finishAssessment clears the loading flag unless a newer assessment has started.
func (w *Workflow) finishAssessment(op uint64) {
	w.mu.Lock()
	if w.assessmentOp != op {
		w.mu.Unlock()
		return
	}
	w.cancelAssessment = nil
	w.state.Loading.Assessment = false
	snap, fns := w.mutateLocked()
	w.mu.Unlock()
	notify(snap, fns)
}

// apply runs fn under the lock when token is still the current session.
func (w *Workflow) apply(token uint64, fn func(*Snapshot)) bool {
	w.mu.Lock()
	if w.session != token {
		w.mu.Unlock()
		return false
	}
	fn(&w.state)
	snap, fns := w.mutateLocked()
	w.mu.Unlock()
	notify(snap, fns)
	return true
}

// RequestSavingsVisualization generates the savings infographic for the current session.
// It is a no-op when no score or energy needs exist, or when a request is already in flight.
// The step never changes.
func (w *Workflow) RequestSavingsVisualization(ctx context.Context) error {
	w.mu.Lock()
	if !w.state.Ready() || w.state.Loading.Savings {
		inFlight := w.state.Loading.Savings
		w.mu.Unlock()
		logx.Debug(ctx, "workflow", "savings request ignored (in flight: %t)", inFlight)
		w.observe(OperationSavings, OutcomeSkipped)
		return nil
	}

	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	token := w.session
	w.savingsOp++
	op := w.savingsOp
	w.cancelSavings = cancel
	score := w.state.Assessment.SolarScore
	needs := w.state.ClientData.EnergyNeeds
	sessionID := w.state.SessionID
	w.state.Loading.Savings = true
	w.state.Error = ""
	snap, fns := w.mutateLocked()
	w.mu.Unlock()
	notify(snap, fns)

	w.logger.Info("Savings visualization started: session=%s", sessionID)
	url, err := w.gateway.GenerateSavingsInfographic(opCtx, score, needs)

	w.mu.Lock()
	if w.savingsOp == op {
		w.cancelSavings = nil
		w.state.Loading.Savings = false
	}
	current := w.session == token
	if current {
		if err != nil {
			w.state.Error = userMessage(err, MsgSavingsFailed)
		} else {
			w.state.Assessment.SavingsInfographicURL = url
		}
	}
	snap, fns = w.mutateLocked()
	w.mu.Unlock()
	notify(snap, fns)

	switch {
	case !current:
		w.observe(OperationSavings, OutcomeSuperseded)
		return ErrSuperseded
	case err != nil:
		w.observe(OperationSavings, OutcomeFailed)
		w.logger.Warn("Savings visualization failed: session=%s: %v", sessionID, err)
		return fmt.Errorf("savings infographic: %w", err)
	}

	w.observe(OperationSavings, OutcomeSucceeded)
	w.logger.Info("Savings visualization completed: session=%s", sessionID)
	if w.history != nil {
		if err := w.history.SavingsGenerated(context.WithoutCancel(ctx), sessionID); err != nil {
			w.logger.Warn("Failed to record savings for %s: %v", sessionID, err)
		}
	}
	return nil
}

// Reset returns to intake and clears all session data. Loading flags are left to the
// in-flight operations, which are cancelled and clear their own flags on return.
func (w *Workflow) Reset() {
	w.mu.Lock()
	w.session++
	w.cancelInFlightLocked()
	w.state.Step = StepIntake
	w.state.ClientData = nil
	w.state.SessionID = ""
	w.state.Assessment = AssessmentData{}
	w.state.Error = ""
	snap, fns := w.mutateLocked()
	w.mu.Unlock()
	notify(snap, fns)

	logx.DebugState(context.Background(), "workflow", "reset", string(StepIntake))
}

func (w *Workflow) cancelInFlightLocked() {
	if w.cancelAssessment != nil {
		w.cancelAssessment()
		w.cancelAssessment = nil
	}
	if w.cancelSavings != nil {
		w.cancelSavings()
		w.cancelSavings = nil
	}
}

// userMessage maps an operation error onto the message shown to the user.
func userMessage(err error, generic string) string {
	if !llmerrors.IsProviderUnavailable(err) {
		return generic
	}
	switch llmerrors.ProviderOf(err) {
	case "anthropic":
		return fmt.Sprintf(credentialMissingFormat, "Anthropic")
	case "openai":
		return fmt.Sprintf(credentialMissingFormat, "OpenAI")
	default:
		return MsgCredentialMissing
	}
}
