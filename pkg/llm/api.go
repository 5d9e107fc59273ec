// Package llm provides interfaces and types for generative model client implementations.
package llm

import (
	"context"
	"strings"
)

// CompletionRole represents the role of a message in a conversation.
type CompletionRole string

const (
	// RoleSystem indicates a system message that provides instructions or context.
	RoleSystem CompletionRole = "system"
	// RoleUser indicates a message from the human user.
	RoleUser CompletionRole = "user"
	// RoleAssistant indicates a message from the model.
	RoleAssistant CompletionRole = "assistant"
)

const (
	// TemperatureDeterministic is used for the score estimate, where only a bare integer is wanted.
	TemperatureDeterministic = 0.2

	// TemperatureCreative is used for the proposal narrative.
	TemperatureCreative = 0.7

	// ScoreMaxTokens caps the score response; the answer is one to three digits.
	ScoreMaxTokens = 5

	// DefaultMaxTokens is the cap for providers that require one when a request leaves
	// MaxTokens at zero. Other providers apply their own default.
	DefaultMaxTokens = 2048
)

// CompletionMessage represents a message in a completion request.
type CompletionMessage struct {
	Content string
	Role    CompletionRole
}

// CompletionRequest represents a request to generate a text completion.
type CompletionRequest struct {
	Messages    []CompletionMessage
	Operation   string // gateway operation name, used for metrics and logs
	MaxTokens   int
	Temperature float32
}

// CompletionResponse represents a response from a completion request.
type CompletionResponse struct {
	Content    string
	StopReason string
}

// ImageRequest asks for one or more generated images.
type ImageRequest struct {
	Prompt         string
	Operation      string
	AspectRatio    string // e.g. "16:9"
	OutputMIMEType string // e.g. "image/jpeg"
	NumberOfImages int
}

// GeneratedImage is one image returned by the provider.
type GeneratedImage struct {
	MIMEType string
	Data     []byte
}

// ImageResponse holds the generated images. It may be empty.
type ImageResponse struct {
	Images []GeneratedImage
}

// TextClient defines the interface for text-completion models.
type TextClient interface {
	// Complete generates a completion synchronously.
	Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error)

	// GetModelName returns the model name for this client.
	GetModelName() string
}

// ImageClient defines the interface for image-generation models.
type ImageClient interface {
	GenerateImages(ctx context.Context, in ImageRequest) (ImageResponse, error)
	GetModelName() string
}

// NewCompletionRequest creates a new completion request with default values.
func NewCompletionRequest(messages []CompletionMessage) CompletionRequest {
	return CompletionRequest{
		Messages:    messages,
		MaxTokens:   DefaultMaxTokens,
		Temperature: TemperatureDeterministic,
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) CompletionMessage {
	return CompletionMessage{
		Role:    RoleUser,
		Content: content,
	}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) CompletionMessage {
	return CompletionMessage{
		Role:    RoleSystem,
		Content: content,
	}
}

// PromptText concatenates message contents, separated by blank lines.
// Providers without a chat structure send this as the single prompt.
func (r CompletionRequest) PromptText() string {
	parts := make([]string, 0, len(r.Messages))
	for i := range r.Messages {
		parts = append(parts, r.Messages[i].Content)
	}
	return strings.Join(parts, "\n\n")
}
