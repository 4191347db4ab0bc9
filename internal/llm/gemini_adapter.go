package llm

import (
	"context"
	"os"

	"wassistant/internal/chat"

	"github.com/tmc/langchaingo/llms/googleai"
)

func NewGeminiAdapter(model, baseURL, apiKey string) (chat.VisionAdapter, error) {
	effectiveModel := model
	if effectiveModel == "" {
		effectiveModel = googleai.DefaultOptions().DefaultModel
	}

	opts := []googleai.Option{
		googleai.WithDefaultModel(effectiveModel),
	}
	if baseURL != "" {
		opts = append(opts, googleai.WithRest())
	}
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey != "" {
		opts = append(opts, googleai.WithAPIKey(apiKey))
	}

	client, err := googleai.New(context.Background(), opts...)
	if err != nil {
		return nil, err
	}
	return &modelAdapter{client: client, provider: ProviderGemini, model: effectiveModel, images: imageBinary}, nil
}
