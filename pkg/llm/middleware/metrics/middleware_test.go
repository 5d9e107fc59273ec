package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solarassess/pkg/llm"
	"solarassess/pkg/llmerrors"
)

type observed struct {
	model, operation string
	prompt, compl    int
	images           int
	success          bool
	errorType        string
}

type captureRecorder struct {
	requests  []observed
	workflows []string
}

func (c *captureRecorder) ObserveRequest(model, operation string, promptTokens, completionTokens int, success bool, errorType string, _ time.Duration) {
	c.requests = append(c.requests, observed{model: model, operation: operation, prompt: promptTokens, compl: completionTokens, success: success, errorType: errorType})
}

func (c *captureRecorder) ObserveImages(model, operation string, images int, success bool, errorType string, _ time.Duration) {
	c.requests = append(c.requests, observed{model: model, operation: operation, images: images, success: success, errorType: errorType})
}

func (c *captureRecorder) ObserveWorkflow(operation, outcome string) {
	c.workflows = append(c.workflows, operation+":"+outcome)
}

func textClient(content string, err error) llm.TextClient {
	return llm.WrapClient(
		func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
			return llm.CompletionResponse{Content: content}, err
		},
		func() string { return "gemini-2.5-flash" },
	)
}

func TestMiddlewareRecordsSuccess(t *testing.T) {
	rec := &captureRecorder{}
	fixed := func(_ llm.CompletionRequest, _ llm.CompletionResponse) (int, int) { return 12, 1 }
	client := llm.Chain(textClient("82", nil), Middleware(rec, fixed, nil))

	req := llm.CompletionRequest{Operation: "estimate_score", Messages: []llm.CompletionMessage{llm.NewUserMessage("score?")}}
	resp, err := client.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "82", resp.Content)

	require.Len(t, rec.requests, 1)
	assert.Equal(t, observed{model: "gemini-2.5-flash", operation: "estimate_score", prompt: 12, compl: 1, success: true}, rec.requests[0])
}

func TestMiddlewareRecordsClassifiedFailure(t *testing.T) {
	rec := &captureRecorder{}
	failure := llmerrors.NewErrorWithCause(llmerrors.CauseRateLimit, errors.New("429"), "quota")
	client := llm.Chain(textClient("", failure), Middleware(rec, nil, nil))

	_, err := client.Complete(context.Background(), llm.CompletionRequest{Operation: "proposal_summary"})
	require.ErrorIs(t, err, failure)

	require.Len(t, rec.requests, 1)
	assert.False(t, rec.requests[0].success)
	assert.Equal(t, "rate_limit", rec.requests[0].errorType)
	assert.Zero(t, rec.requests[0].prompt)
}

func TestImageMiddleware(t *testing.T) {
	rec := &captureRecorder{}
	base := llm.WrapImageClient(
		func(_ context.Context, _ llm.ImageRequest) (llm.ImageResponse, error) {
			return llm.ImageResponse{Images: []llm.GeneratedImage{{Data: []byte{0xff}}}}, nil
		},
		func() string { return "imagen-4.0-generate-001" },
	)

	client := llm.ChainImages(base, ImageMiddleware(rec, nil))
	_, err := client.GenerateImages(context.Background(), llm.ImageRequest{Operation: "rooftop_layout"})
	require.NoError(t, err)

	require.Len(t, rec.requests, 1)
	assert.Equal(t, 1, rec.requests[0].images)
	assert.Equal(t, "rooftop_layout", rec.requests[0].operation)
}

func TestErrorLabel(t *testing.T) {
	assert.Empty(t, ErrorLabel(nil))
	assert.Equal(t, "provider_unavailable", ErrorLabel(llmerrors.NewProviderUnavailable("google", "GEMINI_API_KEY")))
	assert.Equal(t, "generation_failed", ErrorLabel(llmerrors.NewGenerationFailed("none")))
	assert.Equal(t, "unknown", ErrorLabel(errors.New("plain")))
}

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewPrometheusRecorder(reg)

	rec.ObserveRequest("gemini-2.5-flash", "estimate_score", 10, 1, true, "", 100*time.Millisecond)
	rec.ObserveRequest("gemini-2.5-flash", "estimate_score", 0, 0, false, "transient", time.Second)
	rec.ObserveImages("imagen-4.0-generate-001", "rooftop_layout", 1, true, "", 2*time.Second)
	rec.ObserveWorkflow("submit_intake", "succeeded")

	families, err := reg.Gather()
	require.NoError(t, err)

	counts := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				counts[mf.GetName()] += c.GetValue()
			}
		}
	}

	assert.InDelta(t, 3, counts["solar_provider_requests_total"], 0.001)
	assert.InDelta(t, 11, counts["solar_provider_tokens_total"], 0.001)
	assert.InDelta(t, 1, counts["solar_provider_images_total"], 0.001)
	assert.InDelta(t, 1, counts["solar_workflow_operations_total"], 0.001)
}

func TestInternalRecorderAggregates(t *testing.T) {
	rec := NewInternalRecorder()
	rec.ObserveRequest("m", "proposal_summary", 100, 50, true, "", time.Second)
	rec.ObserveRequest("m", "proposal_summary", 0, 0, false, "unknown", time.Second)
	rec.ObserveImages("i", "savings_infographic", 1, true, "", time.Second)

	snap := rec.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "proposal_summary", snap[0].Operation)
	assert.Equal(t, int64(2), snap[0].RequestCount)
	assert.Equal(t, int64(1), snap[0].ErrorCount)
	assert.Equal(t, int64(150), snap[0].PromptTokens+snap[0].CompletionTokens)
	assert.Equal(t, "savings_infographic", snap[1].Operation)
	assert.Equal(t, int64(1), snap[1].Images)
}

func TestMultiSkipsNil(t *testing.T) {
	a, b := &captureRecorder{}, &captureRecorder{}
	m := Multi(a, nil, b, Nop())
	m.ObserveWorkflow("reset", "succeeded")
	assert.Equal(t, []string{"reset:succeeded"}, a.workflows)
	assert.Equal(t, []string{"reset:succeeded"}, b.workflows)
}
