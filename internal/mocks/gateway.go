package mocks

import (
	"context"
	"sync"
)

// Gateway operation names recorded in MockGateway.Calls.
const (
	CallScore      = "score"
	CallLayout     = "layout"
	CallSummary    = "summary"
	CallSavings    = "savings"
	DefaultScore   = "82"
	DefaultLayout  = "data:image/jpeg;base64,AAAA"
	DefaultSavings = "data:image/jpeg;base64,BBBB"
)

// GatewayCall records one gateway invocation.
type GatewayCall struct {
	Op   string
	Args []string
}

// MockGateway implements workflow.Gateway with per-operation functions.
//
//nolint:govet // fieldalignment: mock struct layout optimized for readability
type MockGateway struct {
	EstimateSolarScoreFunc         func(ctx context.Context, address, energyNeeds string) (string, error)
	GenerateRooftopLayoutFunc      func(ctx context.Context, address string) (string, error)
	GenerateProposalSummaryFunc    func(ctx context.Context, score, energyNeeds string) (string, error)
	GenerateSavingsInfographicFunc func(ctx context.Context, score, energyNeeds string) (string, error)

	calls []GatewayCall
	mu    sync.Mutex
}

// NewMockGateway creates a gateway whose operations all succeed with fixed values.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		EstimateSolarScoreFunc: func(_ context.Context, _, _ string) (string, error) {
			return DefaultScore, nil
		},
		GenerateRooftopLayoutFunc: func(_ context.Context, _ string) (string, error) {
			return DefaultLayout, nil
		},
		GenerateProposalSummaryFunc: func(_ context.Context, _, _ string) (string, error) {
			return "### Key Benefits\n* Lower bills\n### Next Steps\n* Book a survey", nil
		},
		GenerateSavingsInfographicFunc: func(_ context.Context, _, _ string) (string, error) {
			return DefaultSavings, nil
		},
	}
}

func (m *MockGateway) record(op string, args ...string) {
	m.mu.Lock()
	m.calls = append(m.calls, GatewayCall{Op: op, Args: args})
	m.mu.Unlock()
}

// EstimateSolarScore implements workflow.Gateway.
func (m *MockGateway) EstimateSolarScore(ctx context.Context, address, energyNeeds string) (string, error) {
	m.record(CallScore, address, energyNeeds)
	return m.EstimateSolarScoreFunc(ctx, address, energyNeeds)
}

// GenerateRooftopLayout implements workflow.Gateway.
func (m *MockGateway) GenerateRooftopLayout(ctx context.Context, address string) (string, error) {
	m.record(CallLayout, address)
	return m.GenerateRooftopLayoutFunc(ctx, address)
}

// GenerateProposalSummary implements workflow.Gateway.
func (m *MockGateway) GenerateProposalSummary(ctx context.Context, score, energyNeeds string) (string, error) {
	m.record(CallSummary, score, energyNeeds)
	return m.GenerateProposalSummaryFunc(ctx, score, energyNeeds)
}

// GenerateSavingsInfographic implements workflow.Gateway.
func (m *MockGateway) GenerateSavingsInfographic(ctx context.Context, score, energyNeeds string) (string, error) {
	m.record(CallSavings, score, energyNeeds)
	return m.GenerateSavingsInfographicFunc(ctx, score, energyNeeds)
}

// Calls returns a copy of every recorded call in order.
func (m *MockGateway) Calls() []GatewayCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]GatewayCall(nil), m.calls...)
}

// CallCount returns how many times op was invoked.
func (m *MockGateway) CallCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}
