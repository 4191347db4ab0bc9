package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"wassistant/internal/chat"

	"github.com/tmc/langchaingo/llms"
)

type Provider string

const (
	ProviderOllama    Provider = "ollama"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
)

// DefaultMaxTokens caps completions when the request does not.
const DefaultMaxTokens = 500

// NewAdapter returns the vision adapter for provider. An empty provider
// selects OpenAI. An empty apiKey falls back to the provider's usual
// environment variable.
func NewAdapter(provider Provider, model, baseURL, apiKey string) (chat.VisionAdapter, error) {
	switch provider {
	case ProviderOpenAI, "":
		return NewOpenAIAdapter(model, baseURL, apiKey)
	case ProviderOllama:
		return NewOllamaAdapter(model, baseURL)
	case ProviderAnthropic:
		return NewAnthropicAdapter(model, apiKey)
	case ProviderGemini:
		return NewGeminiAdapter(model, baseURL, apiKey)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

// imageEncoding selects how image parts reach the provider.
type imageEncoding int

const (
	// imageDataURL sends a data: URL with a detail hint.
	imageDataURL imageEncoding = iota
	// imageBinary sends the decoded bytes with their MIME type.
	imageBinary
)

// modelAdapter runs single-turn completions against any langchaingo model.
type modelAdapter struct {
	client   llms.Model
	provider Provider
	model    string
	images   imageEncoding
}

func (a *modelAdapter) Complete(ctx context.Context, req chat.CompletionRequest) (string, error) {
	messages, err := buildMessages(req, a.images)
	if err != nil {
		return "", err
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	opts := []llms.CallOption{llms.WithMaxTokens(maxTokens)}
	if a.model != "" {
		opts = append(opts, llms.WithModel(a.model))
	}

	resp, err := a.client.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("%s completion: %w", a.provider, err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty response from model")
	}
	return resp.Choices[0].Content, nil
}

func buildMessages(req chat.CompletionRequest, images imageEncoding) ([]llms.MessageContent, error) {
	messages := make([]llms.MessageContent, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.SystemPrompt))
	}

	parts := make([]llms.ContentPart, 0, len(req.Parts))
	for _, p := range req.Parts {
		switch p.Type {
		case chat.PartText:
			parts = append(parts, llms.TextPart(p.Text))
		case chat.PartImage:
			part, err := imagePart(p, images)
			if err != nil {
				return nil, err
			}
			parts = append(parts, part)
		default:
			return nil, fmt.Errorf("unsupported content part type: %q", p.Type)
		}
	}
	if len(parts) == 0 {
		return nil, errors.New("completion request has no content")
	}

	messages = append(messages, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: parts,
	})
	return messages, nil
}

func imagePart(p chat.ContentPart, images imageEncoding) (llms.ContentPart, error) {
	mimeType := p.MIMEType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	if images == imageBinary {
		data, err := base64.StdEncoding.DecodeString(p.ImageBase64)
		if err != nil {
			return nil, fmt.Errorf("decoding image: %w", err)
		}
		return llms.BinaryPart(mimeType, data), nil
	}

	detail := p.Detail
	if detail == "" {
		detail = chat.DefaultImageDetail
	}
	url := "data:" + mimeType + ";base64," + p.ImageBase64
	return llms.ImageURLWithDetailPart(url, detail), nil
}
