// Package metrics provides metrics recording for generative provider operations.
package metrics

import (
	"time"
)

// Recorder defines the interface for recording provider and workflow metrics.
type Recorder interface {
	// ObserveRequest records metrics for a completed text completion.
	ObserveRequest(
		model, operation string,
		promptTokens, completionTokens int,
		success bool,
		errorType string,
		duration time.Duration,
	)

	// ObserveImages records metrics for a completed image generation call.
	ObserveImages(model, operation string, images int, success bool, errorType string, duration time.Duration)

	// ObserveWorkflow counts a workflow operation outcome (succeeded, failed, superseded, skipped).
	ObserveWorkflow(operation, outcome string)
}

// NoopRecorder implements Recorder with no-op behavior for when metrics are disabled.
type NoopRecorder struct{}

// Nop returns a no-op metrics recorder that discards all metrics.
func Nop() Recorder {
	return &NoopRecorder{}
}

// ObserveRequest does nothing in the no-op recorder.
func (n *NoopRecorder) ObserveRequest(_, _ string, _, _ int, _ bool, _ string, _ time.Duration) {}

// ObserveImages does nothing in the no-op recorder.
func (n *NoopRecorder) ObserveImages(_, _ string, _ int, _ bool, _ string, _ time.Duration) {}

// ObserveWorkflow does nothing in the no-op recorder.
func (n *NoopRecorder) ObserveWorkflow(_, _ string) {}

// multiRecorder fans observations out to several recorders.
type multiRecorder []Recorder

// Multi returns a Recorder that forwards to every non-nil recorder given.
func Multi(recorders ...Recorder) Recorder {
	out := make(multiRecorder, 0, len(recorders))
	for _, r := range recorders {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func (m multiRecorder) ObserveRequest(model, operation string, promptTokens, completionTokens int, success bool, errorType string, duration time.Duration) {
	for _, r := range m {
		r.ObserveRequest(model, operation, promptTokens, completionTokens, success, errorType, duration)
	}
}

func (m multiRecorder) ObserveImages(model, operation string, images int, success bool, errorType string, duration time.Duration) {
	for _, r := range m {
		r.ObserveImages(model, operation, images, success, errorType, duration)
	}
}

func (m multiRecorder) ObserveWorkflow(operation, outcome string) {
	for _, r := range m {
		r.ObserveWorkflow(operation, outcome)
	}
}
