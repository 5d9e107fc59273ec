package mocks

import (
	"context"
	"sync"

	"solarassess/pkg/llm"
)

// MockTextClient implements llm.TextClient for testing.
//
//nolint:govet // fieldalignment: mock struct layout optimized for readability
type MockTextClient struct {
	// CompleteFunc is called when Complete is invoked. Override to customize behavior.
	CompleteFunc func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error)

	// CompleteCalls tracks all calls to Complete for verification.
	CompleteCalls []llm.CompletionRequest

	modelName string

	// mu protects call tracking
	mu sync.Mutex
}

// NewMockTextClient creates a mock text client. Default behavior: Complete returns content.
func NewMockTextClient(content string) *MockTextClient {
	m := &MockTextClient{modelName: "mock-text"}
	m.CompleteFunc = func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		return llm.CompletionResponse{Content: content, StopReason: "stop"}, nil
	}
	return m
}

// Complete implements llm.TextClient.
func (m *MockTextClient) Complete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	m.mu.Lock()
	m.CompleteCalls = append(m.CompleteCalls, req)
	m.mu.Unlock()
	return m.CompleteFunc(ctx, req)
}

// GetModelName implements llm.TextClient.
func (m *MockTextClient) GetModelName() string {
	return m.modelName
}

// Calls returns a copy of the recorded requests.
func (m *MockTextClient) Calls() []llm.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.CompletionRequest(nil), m.CompleteCalls...)
}

// MockImageClient implements llm.ImageClient for testing.
//
//nolint:govet // fieldalignment: mock struct layout optimized for readability
type MockImageClient struct {
	// GenerateImagesFunc is called when GenerateImages is invoked.
	GenerateImagesFunc func(ctx context.Context, req llm.ImageRequest) (llm.ImageResponse, error)

	// GenerateImagesCalls tracks all calls to GenerateImages.
	GenerateImagesCalls []llm.ImageRequest

	modelName string
	mu        sync.Mutex
}

// NewMockImageClient creates a mock image client that returns one image holding data.
// Passing nil data makes it return zero images.
func NewMockImageClient(data []byte) *MockImageClient {
	m := &MockImageClient{modelName: "mock-imagen"}
	m.GenerateImagesFunc = func(_ context.Context, req llm.ImageRequest) (llm.ImageResponse, error) {
		if data == nil {
			return llm.ImageResponse{}, nil
		}
		return llm.ImageResponse{Images: []llm.GeneratedImage{{MIMEType: req.OutputMIMEType, Data: data}}}, nil
	}
	return m
}

// GenerateImages implements llm.ImageClient.
func (m *MockImageClient) GenerateImages(ctx context.Context, req llm.ImageRequest) (llm.ImageResponse, error) {
	m.mu.Lock()
	m.GenerateImagesCalls = append(m.GenerateImagesCalls, req)
	m.mu.Unlock()
	return m.GenerateImagesFunc(ctx, req)
}

// GetModelName implements llm.ImageClient.
func (m *MockImageClient) GetModelName() string {
	return m.modelName
}

// Calls returns a copy of the recorded requests.
func (m *MockImageClient) Calls() []llm.ImageRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.ImageRequest(nil), m.GenerateImagesCalls...)
}
