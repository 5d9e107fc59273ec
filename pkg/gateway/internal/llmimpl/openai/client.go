// Package openai provides the OpenAI text client using the Responses API.
package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"solarassess/pkg/llm"
	"solarassess/pkg/llmerrors"
)

const (
	providerName = "openai"

	// minOutputTokens is the smallest max_output_tokens the Responses API accepts.
	minOutputTokens = 16
)

// OfficialClient wraps the official OpenAI Go client to implement llm.TextClient.
//
//nolint:govet // Simple struct
type OfficialClient struct {
	client openai.Client
	model  string
}

// NewOfficialClient creates a new OpenAI client with a specific model (raw client, middleware applied at higher level).
func NewOfficialClient(apiKey, model string, opts ...option.RequestOption) *OfficialClient {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OfficialClient{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

// Complete implements the llm.TextClient interface.
//
//nolint:gocritic // CompletionRequest passed by value to match interface
func (o *OfficialClient) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	instructions, inputText := splitMessages(in.Messages)
	if inputText == "" {
		return llm.CompletionResponse{}, llmerrors.NewErrorWithCause(llmerrors.CauseBadPrompt, nil, "no user content in messages")
	}

	params := responses.ResponseNewParams{
		Model:       o.model,
		Temperature: openai.Float(float64(in.Temperature)),
		Input:       responses.ResponseNewParamsInputUnion{OfString: openai.String(inputText)},
	}
	if limit, ok := outputTokenLimit(in.MaxTokens); ok {
		params.MaxOutputTokens = openai.Int(limit)
	}
	if instructions != "" {
		params.Instructions = openai.String(instructions)
	}

	resp, err := o.client.Responses.New(ctx, params)
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.Classify(fmt.Errorf("OpenAI Responses API failed: %w", err), providerName)
	}
	if resp == nil {
		return llm.CompletionResponse{}, llmerrors.NewErrorWithCause(llmerrors.CauseUnknown, nil, "empty response from OpenAI Responses API")
	}

	return llm.CompletionResponse{
		Content:    resp.OutputText(),
		StopReason: string(resp.Status),
	}, nil
}

// GetModelName returns the model name for this client.
func (o *OfficialClient) GetModelName() string {
	return o.model
}

// splitMessages separates system text into instructions and joins the rest into one input string.
func splitMessages(messages []llm.CompletionMessage) (instructions, input string) {
	var system, rest []string
	for i := range messages {
		msg := &messages[i]
		switch msg.Role {
		case llm.RoleSystem:
			system = append(system, msg.Content)
		case llm.RoleAssistant:
			rest = append(rest, "Assistant: "+msg.Content)
		default:
			rest = append(rest, msg.Content)
		}
	}
	return strings.Join(system, "\n\n"), strings.Join(rest, "\n\n")
}

// outputTokenLimit maps MaxTokens onto max_output_tokens. Zero leaves the field unset.
func outputTokenLimit(maxTokens int) (int64, bool) {
	if maxTokens <= 0 {
		return 0, false
	}
	return int64(max(maxTokens, minOutputTokens)), true
}
