package llm

import (
	"os"

	"wassistant/internal/chat"

	"github.com/tmc/langchaingo/llms/openai"
)

func NewOpenAIAdapter(model, baseURL, apiKey string) (chat.VisionAdapter, error) {
	opts := []openai.Option{
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey != "" {
		opts = append(opts, openai.WithToken(apiKey))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	return &modelAdapter{client: client, provider: ProviderOpenAI, model: model, images: imageDataURL}, nil
}
