package llm

import (
	"wassistant/internal/chat"

	"github.com/tmc/langchaingo/llms/ollama"
)

// NewOllamaAdapter targets a local multimodal model such as llava. Ollama
// takes images as raw bytes.
func NewOllamaAdapter(model, baseURL string) (chat.VisionAdapter, error) {
	var opts []ollama.Option
	if model != "" {
		opts = append(opts, ollama.WithModel(model))
	}
	if baseURL != "" {
		opts = append(opts, ollama.WithServerURL(baseURL))
	}
	client, err := ollama.New(opts...)
	if err != nil {
		return nil, err
	}
	return &modelAdapter{client: client, provider: ProviderOllama, model: model, images: imageBinary}, nil
}
