package metrics

import (
	"context"
	"time"

	"solarassess/pkg/llm"
	"solarassess/pkg/llmerrors"
	"solarassess/pkg/logx"
	"solarassess/pkg/utils"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// UsageExtractor is a function that extracts token usage from a request and response.
type UsageExtractor func(req llm.CompletionRequest, resp llm.CompletionResponse) (promptTokens, completionTokens int)

// DefaultUsageExtractor estimates usage with TikToken; no provider reports usage in a common shape.
func DefaultUsageExtractor(req llm.CompletionRequest, resp llm.CompletionResponse) (promptTokens, completionTokens int) {
	promptTokens = utils.CountTokensSimple(req.PromptText())
	completionTokens = utils.CountTokensSimple(resp.Content)
	return promptTokens, completionTokens
}

// Middleware returns a middleware function that records metrics for text completions.
// It tracks request latency, token usage, success/failure rates, and error types.
func Middleware(recorder Recorder, usageExtractor UsageExtractor, logger *logx.Logger) llm.Middleware {
	if usageExtractor == nil {
		usageExtractor = DefaultUsageExtractor
	}

	return func(next llm.TextClient) llm.TextClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				start := time.Now()
				model := next.GetModelName()

				resp, err := next.Complete(ctx, req)
				duration := time.Since(start)

				var promptTokens, completionTokens int
				if err == nil {
					promptTokens, completionTokens = usageExtractor(req, resp)
				}

				recorder.ObserveRequest(model, req.Operation, promptTokens, completionTokens, err == nil, ErrorLabel(err), duration)

				if logger != nil {
					status := statusSuccess
					if err != nil {
						status = statusError
					}
					logger.Info("Provider request: model=%s op=%s tokens=%d+%d status=%s duration=%dms",
						model, req.Operation, promptTokens, completionTokens, status, duration.Milliseconds())
				}

				return resp, err //nolint:wrapcheck // Middleware should pass through errors unchanged
			},
			next.GetModelName,
		)
	}
}

// ImageMiddleware records metrics for image generation calls.
func ImageMiddleware(recorder Recorder, logger *logx.Logger) llm.ImageMiddleware {
	return func(next llm.ImageClient) llm.ImageClient {
		return llm.WrapImageClient(
			func(ctx context.Context, req llm.ImageRequest) (llm.ImageResponse, error) {
				start := time.Now()
				model := next.GetModelName()

				resp, err := next.GenerateImages(ctx, req)
				duration := time.Since(start)

				recorder.ObserveImages(model, req.Operation, len(resp.Images), err == nil, ErrorLabel(err), duration)

				if logger != nil {
					status := statusSuccess
					if err != nil {
						status = statusError
					}
					logger.Info("Image request: model=%s op=%s images=%d status=%s duration=%dms",
						model, req.Operation, len(resp.Images), status, duration.Milliseconds())
				}

				return resp, err //nolint:wrapcheck // Middleware should pass through errors unchanged
			},
			next.GetModelName,
		)
	}
}

// ErrorLabel classifies errors for metrics labeling.
func ErrorLabel(err error) string {
	if err == nil {
		return ""
	}
	switch llmerrors.TypeOf(err) {
	case llmerrors.ErrorTypeProviderUnavailable:
		return "provider_unavailable"
	case llmerrors.ErrorTypeGenerationFailed:
		return "generation_failed"
	default:
		return string(llmerrors.CauseOf(err))
	}
}
