package google

import (
	"context"

	"google.golang.org/genai"

	"solarassess/pkg/llm"
	"solarassess/pkg/llmerrors"
)

// ImagenClient generates images through the Imagen models of the GenAI API.
type ImagenClient struct {
	client *genai.Client
	model  string
}

// NewImagenClient creates an image client for model.
func NewImagenClient(client *genai.Client, model string) *ImagenClient {
	return &ImagenClient{client: client, model: model}
}

// GenerateImages implements llm.ImageClient. An empty result is returned as-is;
// the caller decides whether zero images is a failure.
func (c *ImagenClient) GenerateImages(ctx context.Context, in llm.ImageRequest) (llm.ImageResponse, error) {
	count := in.NumberOfImages
	if count <= 0 {
		count = 1
	}

	config := &genai.GenerateImagesConfig{
		NumberOfImages: int32(count), //nolint:gosec // small positive count
		AspectRatio:    in.AspectRatio,
		OutputMIMEType: in.OutputMIMEType,
	}

	result, err := c.client.Models.GenerateImages(ctx, c.model, in.Prompt, config)
	if err != nil {
		return llm.ImageResponse{}, llmerrors.Classify(err, providerName)
	}

	return convertImages(result, in.OutputMIMEType), nil
}

// GetModelName returns the model name for this client.
func (c *ImagenClient) GetModelName() string {
	return c.model
}

// convertImages keeps every image that carries bytes.
func convertImages(result *genai.GenerateImagesResponse, defaultMIME string) llm.ImageResponse {
	var out llm.ImageResponse
	if result == nil {
		return out
	}
	for _, generated := range result.GeneratedImages {
		if generated == nil || generated.Image == nil || len(generated.Image.ImageBytes) == 0 {
			continue
		}
		mime := generated.Image.MIMEType
		if mime == "" {
			mime = defaultMIME
		}
		out.Images = append(out.Images, llm.GeneratedImage{MIMEType: mime, Data: generated.Image.ImageBytes})
	}
	return out
}
