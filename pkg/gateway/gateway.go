// Package gateway wraps the generative provider calls behind four plain-string operations:
// solar score, rooftop layout image, proposal summary and savings infographic.
package gateway

import (
	"context"
	"encoding/base64"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"solarassess/pkg/llm"
	"solarassess/pkg/llmerrors"
	"solarassess/pkg/logx"
	"solarassess/pkg/prompts"
)

// Operation names, used as metrics labels and log tags.
const (
	OpEstimateScore      = "estimate_score"
	OpRooftopLayout      = "rooftop_layout"
	OpProposalSummary    = "proposal_summary"
	OpSavingsInfographic = "savings_infographic"
)

// Fallback score range, inclusive. Used when the score response contains no digits.
const (
	FallbackScoreMin = 75
	FallbackScoreMax = 95
)

const (
	defaultAspectRatio = "16:9"
	defaultImageMIME   = "image/jpeg"
)

// Client implements the four gateway operations over a text client and an image client.
// A Client built without a credential is unavailable: every operation returns the same
// ProviderUnavailable error without contacting the provider.
type Client struct {
	text        llm.TextClient
	images      llm.ImageClient
	prompts     *prompts.Renderer
	unavailable *llmerrors.Error
	intN        func(n int) int
	logger      *logx.Logger
	aspectRatio string
	mimeType    string
}

// Option configures a Client.
type Option func(*Client)

// WithPrompts replaces the embedded prompt catalogue.
func WithPrompts(r *prompts.Renderer) Option {
	return func(c *Client) { c.prompts = r }
}

// WithRandom replaces the source of the fallback score. intN must return a value in [0, n).
func WithRandom(intN func(n int) int) Option {
	return func(c *Client) { c.intN = intN }
}

// WithImageFormat sets the aspect ratio and MIME type requested for images.
func WithImageFormat(aspectRatio, mimeType string) Option {
	return func(c *Client) {
		if aspectRatio != "" {
			c.aspectRatio = aspectRatio
		}
		if mimeType != "" {
			c.mimeType = mimeType
		}
	}
}

// WithLogger sets the gateway logger.
func WithLogger(l *logx.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a gateway over already-constructed provider clients.
func New(text llm.TextClient, images llm.ImageClient, opts ...Option) *Client {
	c := &Client{
		text:        text,
		images:      images,
		intN:        rand.IntN,
		logger:      logx.NewLogger("gateway"),
		aspectRatio: defaultAspectRatio,
		mimeType:    defaultImageMIME,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.prompts == nil {
		c.prompts = prompts.MustNewRenderer()
	}
	return c
}

// NewUnavailable creates a gateway whose every operation fails with reason.
func NewUnavailable(reason *llmerrors.Error, opts ...Option) *Client {
	c := New(nil, nil, opts...)
	c.unavailable = reason
	return c
}

// Available reports whether the provider credential was configured.
func (c *Client) Available() bool {
	return c.unavailable == nil
}

// UnavailableReason returns the error every operation fails with, or nil.
func (c *Client) UnavailableReason() error {
	if c.unavailable == nil {
		return nil
	}
	return c.unavailable
}

// TextModel returns the text model name, or "" when unavailable.
func (c *Client) TextModel() string {
	if c.text == nil {
		return ""
	}
	return c.text.GetModelName()
}

// ImageModel returns the image model name, or "" when unavailable.
func (c *Client) ImageModel() string {
	if c.images == nil {
		return ""
	}
	return c.images.GetModelName()
}

// EstimateSolarScore asks for a 1-100 score and returns only its digits.
// When the response holds no digits, a score is sampled uniformly from
// [FallbackScoreMin, FallbackScoreMax].
func (c *Client) EstimateSolarScore(ctx context.Context, address, energyNeeds string) (string, error) {
	if c.unavailable != nil {
		return "", c.unavailable
	}
	if strings.TrimSpace(address) == "" || strings.TrimSpace(energyNeeds) == "" {
		return "", llmerrors.NewErrorWithCause(llmerrors.CauseBadPrompt, nil, "address and energy needs are required")
	}

	prompt, err := c.prompts.Render(prompts.SolarScore, prompts.Data{Address: address, EnergyNeeds: energyNeeds})
	if err != nil {
		return "", err //nolint:wrapcheck // already descriptive
	}

	resp, err := c.text.Complete(ctx, llm.CompletionRequest{
		Operation:   OpEstimateScore,
		Messages:    []llm.CompletionMessage{llm.NewUserMessage(prompt)},
		MaxTokens:   llm.ScoreMaxTokens,
		Temperature: llm.TemperatureDeterministic,
	})
	if err != nil {
		return "", fmt.Errorf("estimate solar score: %w", err)
	}

	score := DigitsOnly(resp.Content)
	if score == "" {
		score = strconv.Itoa(FallbackScoreMin + c.intN(FallbackScoreMax-FallbackScoreMin+1))
		c.logger.Warn("Score response %q had no digits, using fallback score %s", resp.Content, score)
		return score, nil
	}
	logx.Debug(ctx, "gateway", "score raw=%q normalized=%s", resp.Content, score)
	return score, nil
}

// GenerateRooftopLayout returns an aerial image of address with a panel layout, as a data URI.
func (c *Client) GenerateRooftopLayout(ctx context.Context, address string) (string, error) {
	if c.unavailable != nil {
		return "", c.unavailable
	}
	if strings.TrimSpace(address) == "" {
		return "", llmerrors.NewErrorWithCause(llmerrors.CauseBadPrompt, nil, "address is required")
	}

	prompt, err := c.prompts.Render(prompts.RooftopLayout, prompts.Data{Address: address})
	if err != nil {
		return "", err //nolint:wrapcheck // already descriptive
	}
	return c.generateImage(ctx, OpRooftopLayout, prompt, "Image generation failed to produce an image.")
}

// GenerateProposalSummary returns the markdown proposal for a computed score, verbatim.
func (c *Client) GenerateProposalSummary(ctx context.Context, score, energyNeeds string) (string, error) {
	if c.unavailable != nil {
		return "", c.unavailable
	}
	if score == "" {
		return "", llmerrors.NewErrorWithCause(llmerrors.CauseBadPrompt, nil, "a solar score is required before the proposal")
	}

	prompt, err := c.prompts.Render(prompts.ProposalSummary, prompts.Data{Score: score, EnergyNeeds: energyNeeds})
	if err != nil {
		return "", err //nolint:wrapcheck // already descriptive
	}

	// MaxTokens stays unset; thinking tokens count against any cap on Gemini 2.5.
	resp, err := c.text.Complete(ctx, llm.CompletionRequest{
		Operation:   OpProposalSummary,
		Messages:    []llm.CompletionMessage{llm.NewUserMessage(prompt)},
		Temperature: llm.TemperatureCreative,
	})
	if err != nil {
		return "", fmt.Errorf("generate proposal summary: %w", err)
	}
	return resp.Content, nil
}

// GenerateSavingsInfographic returns a bill comparison chart as a data URI.
func (c *Client) GenerateSavingsInfographic(ctx context.Context, score, energyNeeds string) (string, error) {
	if c.unavailable != nil {
		return "", c.unavailable
	}
	if score == "" || strings.TrimSpace(energyNeeds) == "" {
		return "", llmerrors.NewErrorWithCause(llmerrors.CauseBadPrompt, nil, "score and energy needs are required")
	}

	prompt, err := c.prompts.Render(prompts.SavingsInfographic, prompts.Data{Score: score, EnergyNeeds: energyNeeds})
	if err != nil {
		return "", err //nolint:wrapcheck // already descriptive
	}
	return c.generateImage(ctx, OpSavingsInfographic, prompt, "Infographic generation failed to produce an image.")
}

// generateImage requests exactly one image. Zero images is GenerationFailed.
func (c *Client) generateImage(ctx context.Context, operation, prompt, emptyMessage string) (string, error) {
	resp, err := c.images.GenerateImages(ctx, llm.ImageRequest{
		Prompt:         prompt,
		Operation:      operation,
		AspectRatio:    c.aspectRatio,
		OutputMIMEType: c.mimeType,
		NumberOfImages: 1,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", operation, err)
	}
	if len(resp.Images) == 0 || len(resp.Images[0].Data) == 0 {
		return "", llmerrors.NewGenerationFailed(emptyMessage)
	}

	img := resp.Images[0]
	mime := img.MIMEType
	if mime == "" {
		mime = c.mimeType
	}
	return DataURI(mime, img.Data), nil
}

// DigitsOnly removes every character that is not an ASCII digit.
func DigitsOnly(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// DataURI encodes data as a base64 data URI.
func DataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
