package assistant_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wassistant/internal/assistant"
	"wassistant/internal/assistant/assistanttest"
)

func TestProvisionWithKnowledgeFile(t *testing.T) {
	ctx := context.Background()
	fake := assistanttest.NewFakeAPI("unused")
	client := newHTTPClient(t, fake)

	path := filepath.Join(t.TempDir(), "airbnb-faq.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 check-in 3pm"), 0o644))

	id, err := client.Provision(ctx, assistant.ProvisionRequest{KnowledgeFile: path})
	require.NoError(t, err)

	files := fake.Files()
	require.Len(t, files, 1)
	assert.Equal(t, "assistants", files[0].Purpose)
	assert.Equal(t, "airbnb-faq.pdf", files[0].FileName)
	assert.Equal(t, "%PDF-1.4 check-in 3pm", string(files[0].Content))

	stores := fake.VectorStores()
	require.Len(t, stores, 1)
	assert.Equal(t, []string{files[0].ID}, stores[0].FileIDs)

	created := fake.Assistants()
	require.Len(t, created, 1)
	assert.Equal(t, created[0].ID, id)
	assert.Equal(t, []string{"file_search"}, created[0].Tools)
	assert.Equal(t, []string{stores[0].ID}, created[0].VectorStoreIDs)

	assert.Equal(t, assistant.DefaultAssistantName, created[0].Name)
	assert.Equal(t, assistant.DefaultAssistantModel, created[0].Model)
	assert.Equal(t, assistant.DefaultInstructions, created[0].Instructions)

	assert.Equal(t, []string{"CreateFile", "CreateVectorStore", "CreateAssistant"}, fake.Calls())
}

func TestProvisionWithoutKnowledgeFile(t *testing.T) {
	fake := assistanttest.NewFakeAPI("unused")
	client := newHTTPClient(t, fake)

	id, err := client.Provision(context.Background(), assistant.ProvisionRequest{
		Name:         "Lyon flat",
		Model:        "gpt-4o-mini",
		Instructions: "Answer briefly.",
	})
	require.NoError(t, err)

	assert.Empty(t, fake.Files())
	assert.Empty(t, fake.VectorStores())

	created := fake.Assistants()
	require.Len(t, created, 1)
	assert.Equal(t, created[0].ID, id)
	assert.Empty(t, created[0].Tools)
	assert.Empty(t, created[0].VectorStoreIDs)
	assert.Equal(t, "Lyon flat", created[0].Name)
	assert.Equal(t, "gpt-4o-mini", created[0].Model)
	assert.Equal(t, "Answer briefly.", created[0].Instructions)
}

func TestProvisionMissingKnowledgeFile(t *testing.T) {
	fake := assistanttest.NewFakeAPI("unused")
	client := newHTTPClient(t, fake)

	_, err := client.Provision(context.Background(), assistant.ProvisionRequest{
		KnowledgeFile: filepath.Join(t.TempDir(), "missing.pdf"),
	})
	require.Error(t, err)
	assert.Empty(t, fake.Assistants())
}
