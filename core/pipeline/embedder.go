package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/siherrmann/docqa/model"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/googleai"
)

// EmbedFunc converts a piece of text into an embedding vector.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// NewEmbedFunc wraps an embeddings client with a per-call timeout and maps
// provider failures onto the service error taxonomy so callers can decide
// whether a retry is worthwhile.
func NewEmbedFunc(embedder embeddings.Embedder, timeout time.Duration) EmbedFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		callCtx := ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		vector, err := embedder.EmbedQuery(callCtx, text)
		if err != nil {
			return nil, model.ClassifyServiceError("embedding", err)
		}
		if len(vector) == 0 {
			return nil, model.ClassifyServiceError("embedding", fmt.Errorf("empty embedding returned"))
		}
		return vector, nil
	}
}

// GoogleAIEmbedder creates an embedder backed by the Google AI embedding API.
// The API key is read from GOOGLE_API_KEY if not given.
func GoogleAIEmbedder(ctx context.Context, modelName string, apiKey string, timeout time.Duration) (EmbedFunc, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		return nil, &model.ConfigError{Field: "GOOGLE_API_KEY", Reason: "api key for embedding service missing"}
	}

	client, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultEmbeddingModel(modelName),
	)
	if err != nil {
		return nil, model.ClassifyServiceError("embedding", err)
	}

	embedder, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, model.ClassifyServiceError("embedding", err)
	}

	return NewEmbedFunc(embedder, timeout), nil
}
