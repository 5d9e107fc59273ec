package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"solarassess/pkg/config"
	"solarassess/pkg/gateway/internal/llmimpl/anthropic"
	"solarassess/pkg/gateway/internal/llmimpl/google"
	"solarassess/pkg/gateway/internal/llmimpl/ollama"
	"solarassess/pkg/gateway/internal/llmimpl/openai"
	"solarassess/pkg/llm"
	"solarassess/pkg/llm/middleware/logging"
	"solarassess/pkg/llm/middleware/metrics"
	"solarassess/pkg/llmerrors"
	"solarassess/pkg/logx"
	"solarassess/pkg/prompts"
)

// NewFromConfig builds the gateway once at startup, resolving credentials eagerly.
//
// A missing credential does not fail construction: the returned gateway is unavailable
// and every operation reports ProviderUnavailable. Errors are returned only for
// configuration that can never work (unknown model, unreadable prompt catalogue).
func NewFromConfig(ctx context.Context, cfg config.Config, recorder metrics.Recorder) (*Client, error) {
	logger := logx.NewLogger("gateway")
	if recorder == nil {
		recorder = metrics.Nop()
	}
	if cfg.Providers == nil || cfg.Generation == nil {
		return nil, fmt.Errorf("gateway: providers and generation config are required")
	}

	opts := []Option{
		WithLogger(logger),
		WithImageFormat(cfg.Generation.AspectRatio, cfg.Generation.OutputMIMEType),
	}
	if cfg.Generation.PromptsFile != "" {
		renderer, err := prompts.NewRendererFromFile(config.ResolvePath(cfg.Generation.PromptsFile))
		if err != nil {
			return nil, fmt.Errorf("gateway: %w", err)
		}
		opts = append(opts, WithPrompts(renderer))
	}

	textProvider, err := config.GetModelProvider(cfg.Providers.TextModel)
	if err != nil {
		return nil, fmt.Errorf("gateway: %w", err)
	}

	// Images always go through Imagen, so the Google key is required in every setup.
	googleKey, err := config.GetAPIKey(config.ProviderGoogle)
	if err != nil {
		logger.Warn("Google credential missing, gateway starts unavailable: %v", err)
		return NewUnavailable(llmerrors.NewProviderUnavailable(config.ProviderGoogle, config.EnvGoogleAPIKey), opts...), nil
	}

	genaiClient, err := google.NewGenAIClient(ctx, googleKey)
	if err != nil {
		return nil, fmt.Errorf("gateway: %w", err)
	}

	rawText, err := newTextClient(textProvider, cfg.Providers.TextModel, genaiClient)
	if err != nil {
		var classified *llmerrors.Error
		if errors.As(err, &classified) && classified.Type == llmerrors.ErrorTypeProviderUnavailable {
			logger.Warn("%v, gateway starts unavailable", err)
			return NewUnavailable(classified, opts...), nil
		}
		return nil, fmt.Errorf("gateway: %w", err)
	}
	rawImages := google.NewImagenClient(genaiClient, cfg.Providers.ImageModel)

	text := llm.Chain(rawText,
		metrics.Middleware(recorder, nil, logger),
		logging.FailureLoggingMiddleware(logger),
	)
	images := llm.ChainImages(rawImages,
		metrics.ImageMiddleware(recorder, logger),
		logging.ImageFailureLoggingMiddleware(logger),
	)

	logger.Info("Gateway ready: text=%s (%s) images=%s", text.GetModelName(), textProvider, images.GetModelName())
	return New(text, images, opts...), nil
}

// newTextClient constructs the raw text client for provider.
func newTextClient(provider, model string, genaiClient *genai.Client) (llm.TextClient, error) {
	if provider == config.ProviderGoogle {
		return google.NewGeminiClient(genaiClient, model), nil
	}

	key, err := config.GetAPIKey(provider)
	if err != nil {
		return nil, llmerrors.NewProviderUnavailable(provider, config.APIKeyEnvVar(provider))
	}

	switch provider {
	case config.ProviderAnthropic:
		return anthropic.NewClaudeClient(key, model), nil
	case config.ProviderOpenAI:
		return openai.NewOfficialClient(key, model), nil
	case config.ProviderOllama:
		client, err := ollama.NewClient(key, strings.TrimPrefix(model, "ollama:"), nil)
		if err != nil {
			return nil, err //nolint:wrapcheck // wrapped by caller
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}
