// Package logging provides logging middleware for provider clients.
package logging

import (
	"context"

	"solarassess/pkg/llm"
	"solarassess/pkg/llmerrors"
	"solarassess/pkg/logx"
)

// promptLogChars bounds how much of a prompt reaches the log.
const promptLogChars = 400

// FailureLoggingMiddleware logs the sanitized prompt and request parameters when a
// completion fails, then passes the error through unchanged.
func FailureLoggingMiddleware(logger *logx.Logger) llm.Middleware {
	if logger == nil {
		logger = logx.NewLogger("llm-middleware")
	}
	return func(next llm.TextClient) llm.TextClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				resp, err := next.Complete(ctx, req)
				if err != nil && ctx.Err() == nil {
					logger.Error("%s failed on %s (%s): %v", req.Operation, next.GetModelName(), llmerrors.CauseOf(err), err)
					logger.Error("  prompt: %s", llmerrors.SanitizePrompt(req.PromptText(), promptLogChars))
					logger.Error("  temperature=%v max_tokens=%d", req.Temperature, req.MaxTokens)
				}
				//nolint:wrapcheck // Middleware intentionally passes through errors unchanged
				return resp, err
			},
			next.GetModelName,
		)
	}
}

// ImageFailureLoggingMiddleware logs failed and empty image generations.
func ImageFailureLoggingMiddleware(logger *logx.Logger) llm.ImageMiddleware {
	if logger == nil {
		logger = logx.NewLogger("llm-middleware")
	}
	return func(next llm.ImageClient) llm.ImageClient {
		return llm.WrapImageClient(
			func(ctx context.Context, req llm.ImageRequest) (llm.ImageResponse, error) {
				resp, err := next.GenerateImages(ctx, req)
				switch {
				case err != nil && ctx.Err() == nil:
					logger.Error("%s failed on %s: %v", req.Operation, next.GetModelName(), err)
					logger.Error("  prompt: %s", llmerrors.SanitizePrompt(req.Prompt, promptLogChars))
				case err == nil && len(resp.Images) == 0:
					logger.Warn("%s returned no images from %s (aspect=%s)", req.Operation, next.GetModelName(), req.AspectRatio)
				}
				//nolint:wrapcheck // Middleware intentionally passes through errors unchanged
				return resp, err
			},
			next.GetModelName,
		)
	}
}
