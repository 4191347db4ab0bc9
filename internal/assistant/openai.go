package assistant

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

// listLimit bounds how many messages are fetched after a run; only the
// newest assistant message is used.
const listLimit = 20

// OpenAIClient implements API on the OpenAI Assistants v2 endpoints.
type OpenAIClient struct {
	client *openai.Client
}

// NewOpenAIClient builds a client for apiKey. baseURL and httpClient are
// optional.
func NewOpenAIClient(apiKey, baseURL string, httpClient *http.Client) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &OpenAIClient{client: openai.NewClientWithConfig(cfg)}
}

func (c *OpenAIClient) CreateThread(ctx context.Context) (Thread, error) {
	t, err := c.client.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return Thread{}, fmt.Errorf("creating thread: %w", err)
	}
	return Thread{ID: t.ID}, nil
}

func (c *OpenAIClient) GetThread(ctx context.Context, threadID string) (Thread, error) {
	t, err := c.client.RetrieveThread(ctx, threadID)
	if err != nil {
		return Thread{}, fmt.Errorf("retrieving thread %s: %w", threadID, err)
	}
	return Thread{ID: t.ID}, nil
}

func (c *OpenAIClient) AppendMessage(ctx context.Context, threadID, role, content string) error {
	_, err := c.client.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    role,
		Content: content,
	})
	if err != nil {
		return fmt.Errorf("adding message to thread %s: %w", threadID, err)
	}
	return nil
}

func (c *OpenAIClient) CreateRun(ctx context.Context, threadID, assistantID string) (Run, error) {
	r, err := c.client.CreateRun(ctx, threadID, openai.RunRequest{AssistantID: assistantID})
	if err != nil {
		return Run{}, fmt.Errorf("creating run on thread %s: %w", threadID, err)
	}
	return runFromOpenAI(r), nil
}

func (c *OpenAIClient) GetRun(ctx context.Context, threadID, runID string) (Run, error) {
	r, err := c.client.RetrieveRun(ctx, threadID, runID)
	if err != nil {
		return Run{}, fmt.Errorf("retrieving run %s: %w", runID, err)
	}
	return runFromOpenAI(r), nil
}

func (c *OpenAIClient) ListMessages(ctx context.Context, threadID string) ([]Message, error) {
	limit := listLimit
	order := "desc"
	list, err := c.client.ListMessage(ctx, threadID, &limit, &order, nil, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("listing messages on thread %s: %w", threadID, err)
	}

	out := make([]Message, 0, len(list.Messages))
	for _, m := range list.Messages {
		msg := Message{
			ID:        m.ID,
			Role:      m.Role,
			CreatedAt: int64(m.CreatedAt),
			Content:   make([]Segment, 0, len(m.Content)),
		}
		for _, c := range m.Content {
			seg := Segment{Type: c.Type}
			if c.Text != nil {
				seg.Text = c.Text.Value
			}
			msg.Content = append(msg.Content, seg)
		}
		out = append(out, msg)
	}
	return out, nil
}

func runFromOpenAI(r openai.Run) Run {
	run := Run{
		ID:       r.ID,
		ThreadID: r.ThreadID,
		Status:   RunStatus(r.Status),
	}
	if r.LastError != nil {
		run.ErrorCode = string(r.LastError.Code)
		run.ErrorText = r.LastError.Message
	}
	return run
}
