package llm

import (
	"context"
)

// Middleware represents a function that wraps a TextClient with additional behavior.
// Middleware functions are composed using Chain() to create a processing pipeline.
type Middleware func(next TextClient) TextClient

// ImageMiddleware is the ImageClient counterpart of Middleware.
type ImageMiddleware func(next ImageClient) ImageClient

// textClientFunc is an adapter that allows plain functions to implement the TextClient interface.
type textClientFunc struct {
	complete  func(context.Context, CompletionRequest) (CompletionResponse, error)
	modelName func() string
}

func (f textClientFunc) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	return f.complete(ctx, req)
}

func (f textClientFunc) GetModelName() string {
	return f.modelName()
}

type imageClientFunc struct {
	generate  func(context.Context, ImageRequest) (ImageResponse, error)
	modelName func() string
}

func (f imageClientFunc) GenerateImages(ctx context.Context, req ImageRequest) (ImageResponse, error) {
	return f.generate(ctx, req)
}

func (f imageClientFunc) GetModelName() string {
	return f.modelName()
}

// WrapClient creates a new TextClient using the provided function implementations.
// This is a helper for middleware implementations that need to wrap behavior.
func WrapClient(
	complete func(context.Context, CompletionRequest) (CompletionResponse, error),
	modelName func() string,
) TextClient {
	return textClientFunc{complete: complete, modelName: modelName}
}

// WrapImageClient creates a new ImageClient using the provided function implementations.
func WrapImageClient(
	generate func(context.Context, ImageRequest) (ImageResponse, error),
	modelName func() string,
) ImageClient {
	return imageClientFunc{generate: generate, modelName: modelName}
}

// Chain composes multiple middlewares around a base TextClient.
// Middlewares are applied in order, with earlier middlewares being outermost.
//
// For example: Chain(client, mw1, mw2) creates the call stack:
//
//	mw1 -> mw2 -> client
func Chain(base TextClient, middlewares ...Middleware) TextClient {
	client := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		client = middlewares[i](client)
	}
	return client
}

// ChainImages composes image middlewares the same way Chain does.
func ChainImages(base ImageClient, middlewares ...ImageMiddleware) ImageClient {
	client := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		client = middlewares[i](client)
	}
	return client
}
