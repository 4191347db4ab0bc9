package llm

import (
	"os"

	"wassistant/internal/chat"

	"github.com/tmc/langchaingo/llms/anthropic"
)

func NewAnthropicAdapter(model, apiKey string) (chat.VisionAdapter, error) {
	opts := []anthropic.Option{
		anthropic.WithModel(model),
	}
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey != "" {
		opts = append(opts, anthropic.WithToken(apiKey))
	}

	client, err := anthropic.New(opts...)
	if err != nil {
		return nil, err
	}
	return &modelAdapter{client: client, provider: ProviderAnthropic, model: model, images: imageBinary}, nil
}
