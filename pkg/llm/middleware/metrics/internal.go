package metrics

import (
	"sort"
	"sync"
	"time"
)

// InternalRecorder implements the Recorder interface using in-memory aggregation.
// The web UI reads it for the usage panel without querying Prometheus.
type InternalRecorder struct {
	operations map[string]*OperationMetrics
	mu         sync.RWMutex
}

// OperationMetrics represents aggregated metrics for one gateway operation.
//
//nolint:govet
type OperationMetrics struct {
	Operation        string        `json:"operation"`
	RequestCount     int64         `json:"request_count"`
	ErrorCount       int64         `json:"error_count"`
	PromptTokens     int64         `json:"prompt_tokens"`
	CompletionTokens int64         `json:"completion_tokens"`
	Images           int64         `json:"images"`
	TotalDuration    time.Duration `json:"total_duration_ns"`
	LastUpdated      time.Time     `json:"last_updated"`
}

// NewInternalRecorder returns an empty in-memory recorder.
func NewInternalRecorder() *InternalRecorder {
	return &InternalRecorder{
		operations: make(map[string]*OperationMetrics),
	}
}

func (r *InternalRecorder) entry(operation string) *OperationMetrics {
	m, ok := r.operations[operation]
	if !ok {
		m = &OperationMetrics{Operation: operation}
		r.operations[operation] = m
	}
	return m
}

// ObserveRequest records metrics for a completed text completion.
func (r *InternalRecorder) ObserveRequest(_, operation string, promptTokens, completionTokens int, success bool, _ string, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.entry(operation)
	m.RequestCount++
	if !success {
		m.ErrorCount++
	} else {
		m.PromptTokens += int64(promptTokens)
		m.CompletionTokens += int64(completionTokens)
	}
	m.TotalDuration += duration
	m.LastUpdated = time.Now()
}

// ObserveImages records metrics for a completed image generation call.
func (r *InternalRecorder) ObserveImages(_, operation string, images int, success bool, _ string, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.entry(operation)
	m.RequestCount++
	if !success {
		m.ErrorCount++
	} else {
		m.Images += int64(images)
	}
	m.TotalDuration += duration
	m.LastUpdated = time.Now()
}

// ObserveWorkflow is not aggregated in memory.
func (r *InternalRecorder) ObserveWorkflow(_, _ string) {}

// Snapshot returns a copy of the aggregated metrics sorted by operation name.
func (r *InternalRecorder) Snapshot() []OperationMetrics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]OperationMetrics, 0, len(r.operations))
	for _, m := range r.operations {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Operation < out[j].Operation })
	return out
}
