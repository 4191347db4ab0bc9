package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"wassistant/internal/chat"
)

type recordingModel struct {
	messages []llms.MessageContent
	opts     llms.CallOptions
	resp     *llms.ContentResponse
	err      error
}

func (m *recordingModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.messages = messages
	for _, o := range options {
		o(&m.opts)
	}
	return m.resp, m.err
}

func (m *recordingModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func reply(text string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: text}}}
}

var pixel = base64.StdEncoding.EncodeToString([]byte("\x89PNG\r\n\x1a\nfake"))

func visionRequest() chat.CompletionRequest {
	return chat.CompletionRequest{
		SystemPrompt: "You are a helpful WhatsApp assistant.",
		Parts: []chat.ContentPart{
			chat.TextContent("What is in this picture?"),
			chat.ImageContent(pixel, "image/png"),
		},
	}
}

func TestCompleteSendsDataURLImage(t *testing.T) {
	model := &recordingModel{resp: reply("A cat 🐱")}
	a := &modelAdapter{client: model, provider: ProviderOpenAI, model: "gpt-4o", images: imageDataURL}

	out, err := a.Complete(context.Background(), visionRequest())
	require.NoError(t, err)
	assert.Equal(t, "A cat 🐱", out)

	require.Len(t, model.messages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, model.messages[0].Role)
	assert.Equal(t, []llms.ContentPart{llms.TextContent{Text: "You are a helpful WhatsApp assistant."}}, model.messages[0].Parts)

	user := model.messages[1]
	assert.Equal(t, llms.ChatMessageTypeHuman, user.Role)
	require.Len(t, user.Parts, 2)
	assert.Equal(t, llms.TextContent{Text: "What is in this picture?"}, user.Parts[0])
	assert.Equal(t, llms.ImageURLContent{URL: "data:image/png;base64," + pixel, Detail: "high"}, user.Parts[1])

	assert.Equal(t, DefaultMaxTokens, model.opts.MaxTokens)
	assert.Equal(t, "gpt-4o", model.opts.Model)
}

func TestCompleteSendsBinaryImage(t *testing.T) {
	model := &recordingModel{resp: reply("ok")}
	a := &modelAdapter{client: model, provider: ProviderOllama, images: imageBinary}

	req := visionRequest()
	req.MaxTokens = 120
	_, err := a.Complete(context.Background(), req)
	require.NoError(t, err)

	user := model.messages[1]
	require.Len(t, user.Parts, 2)
	assert.Equal(t, llms.BinaryContent{MIMEType: "image/png", Data: []byte("\x89PNG\r\n\x1a\nfake")}, user.Parts[1])
	assert.Equal(t, 120, model.opts.MaxTokens)
	assert.Empty(t, model.opts.Model)
}

func TestCompleteImageOnly(t *testing.T) {
	model := &recordingModel{resp: reply("ok")}
	a := &modelAdapter{client: model, provider: ProviderOpenAI, images: imageDataURL}

	_, err := a.Complete(context.Background(), chat.CompletionRequest{
		Parts: []chat.ContentPart{{Type: chat.PartImage, ImageBase64: pixel}},
	})
	require.NoError(t, err)

	require.Len(t, model.messages, 1, "no system message without a prompt")
	assert.Equal(t, llms.ImageURLContent{URL: "data:image/jpeg;base64," + pixel, Detail: "high"}, model.messages[0].Parts[0])
}

func TestCompleteErrors(t *testing.T) {
	boom := errors.New("connection refused")

	t.Run("provider", func(t *testing.T) {
		a := &modelAdapter{client: &recordingModel{err: boom}, provider: ProviderOpenAI}
		_, err := a.Complete(context.Background(), visionRequest())
		assert.ErrorIs(t, err, boom)
	})

	t.Run("no choices", func(t *testing.T) {
		a := &modelAdapter{client: &recordingModel{resp: &llms.ContentResponse{}}, provider: ProviderOpenAI}
		_, err := a.Complete(context.Background(), visionRequest())
		assert.Error(t, err)
	})

	t.Run("no parts", func(t *testing.T) {
		model := &recordingModel{resp: reply("ok")}
		a := &modelAdapter{client: model, provider: ProviderOpenAI}
		_, err := a.Complete(context.Background(), chat.CompletionRequest{SystemPrompt: "x"})
		assert.Error(t, err)
		assert.Nil(t, model.messages, "nothing is sent")
	})

	t.Run("bad base64", func(t *testing.T) {
		a := &modelAdapter{client: &recordingModel{resp: reply("ok")}, provider: ProviderOllama, images: imageBinary}
		_, err := a.Complete(context.Background(), chat.CompletionRequest{
			Parts: []chat.ContentPart{{Type: chat.PartImage, ImageBase64: "%%%"}},
		})
		assert.Error(t, err)
	})
}

func TestNewAdapter(t *testing.T) {
	a, err := NewAdapter(ProviderOpenAI, "gpt-4o", "", "sk-test")
	require.NoError(t, err)
	assert.NotNil(t, a)

	a, err = NewAdapter("", "gpt-4o", "", "sk-test")
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, a.(*modelAdapter).provider)

	a, err = NewAdapter(ProviderOllama, "llava", "http://localhost:11434", "")
	require.NoError(t, err)
	assert.Equal(t, imageBinary, a.(*modelAdapter).images)

	_, err = NewAdapter("carrier-pigeon", "x", "", "")
	assert.Error(t, err)
}
