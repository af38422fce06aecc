package synthesis

import (
	"context"
	"os"

	"github.com/siherrmann/docqa/model"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

// GoogleAIModel creates a generation model backed by the Google AI API.
// The API key is read from GOOGLE_API_KEY if not given.
func GoogleAIModel(ctx context.Context, modelName string, apiKey string) (llms.Model, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		return nil, &model.ConfigError{Field: "GOOGLE_API_KEY", Reason: "api key for generation service missing"}
	}

	client, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(modelName),
	)
	if err != nil {
		return nil, model.ClassifyServiceError("generation", err)
	}
	return client, nil
}
