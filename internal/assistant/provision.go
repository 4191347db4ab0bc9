package assistant

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/sashabaranov/go-openai"
)

// Defaults for a newly provisioned assistant.
const (
	DefaultAssistantName  = "WhatsApp AirBnb Assistant"
	DefaultAssistantModel = "gpt-4o"
	DefaultInstructions   = "You're a helpful WhatsApp assistant that can assist guests that are staying in our Paris AirBnb. " +
		"Use your knowledge base to best respond to customer queries. " +
		"If you don't know the answer, say simply that you cannot help with question and advice to contact the host directly. " +
		"Be friendly and funny."
)

// ProvisionRequest describes the assistant to create.
type ProvisionRequest struct {
	Name         string
	Instructions string
	Model        string
	// KnowledgeFile is uploaded and attached through a vector store for
	// file search. Optional.
	KnowledgeFile string
}

func (r ProvisionRequest) withDefaults() ProvisionRequest {
	if r.Name == "" {
		r.Name = DefaultAssistantName
	}
	if r.Instructions == "" {
		r.Instructions = DefaultInstructions
	}
	if r.Model == "" {
		r.Model = DefaultAssistantModel
	}
	return r
}

// Provision creates the assistant that runs are started against and returns
// its id. It is run once, out of band; the id then goes into configuration.
func (c *OpenAIClient) Provision(ctx context.Context, req ProvisionRequest) (string, error) {
	req = req.withDefaults()

	assistantReq := openai.AssistantRequest{
		Model:        req.Model,
		Name:         &req.Name,
		Instructions: &req.Instructions,
	}

	if req.KnowledgeFile != "" {
		file, err := c.client.CreateFile(ctx, openai.FileRequest{
			FileName: filepath.Base(req.KnowledgeFile),
			FilePath: req.KnowledgeFile,
			Purpose:  string(openai.PurposeAssistants),
		})
		if err != nil {
			return "", fmt.Errorf("uploading %s: %w", req.KnowledgeFile, err)
		}

		store, err := c.client.CreateVectorStore(ctx, openai.VectorStoreRequest{
			Name:    req.Name + " knowledge",
			FileIDs: []string{file.ID},
		})
		if err != nil {
			return "", fmt.Errorf("creating vector store: %w", err)
		}

		assistantReq.Tools = []openai.AssistantTool{{Type: openai.AssistantToolTypeFileSearch}}
		assistantReq.ToolResources = &openai.AssistantToolResource{
			FileSearch: &openai.AssistantToolFileSearch{VectorStoreIDs: []string{store.ID}},
		}
	}

	created, err := c.client.CreateAssistant(ctx, assistantReq)
	if err != nil {
		return "", fmt.Errorf("creating assistant: %w", err)
	}
	if created.ID == "" {
		return "", errors.New("creating assistant: empty id in response")
	}
	return created.ID, nil
}
