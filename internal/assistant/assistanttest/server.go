package assistanttest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"

	"github.com/gorilla/mux"

	"wassistant/internal/assistant"
)

// ErrRateLimited makes the server answer 429 when set in FakeAPI.Errors.
var ErrRateLimited = errors.New("rate limit reached for requests")

// NewServer serves the subset of the Assistants v2 HTTP API that
// assistant.OpenAIClient uses, backed by api. Point the client's base URL at
// server.URL + "/v1".
func NewServer(api *FakeAPI) *httptest.Server {
	r := mux.NewRouter().PathPrefix("/v1").Subrouter()

	r.HandleFunc("/threads", func(w http.ResponseWriter, req *http.Request) {
		th, err := api.CreateThread(req.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, threadJSON(th.ID))
	}).Methods(http.MethodPost)

	r.HandleFunc("/threads/{thread}", func(w http.ResponseWriter, req *http.Request) {
		th, err := api.GetThread(req.Context(), mux.Vars(req)["thread"])
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, threadJSON(th.ID))
	}).Methods(http.MethodGet)

	r.HandleFunc("/threads/{thread}/messages", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		threadID := mux.Vars(req)["thread"]
		if err := api.AppendMessage(req.Context(), threadID, body.Role, body.Content); err != nil {
			writeError(w, err)
			return
		}
		msgs := api.Messages(threadID)
		writeJSON(w, http.StatusOK, messageJSON(threadID, msgs[len(msgs)-1]))
	}).Methods(http.MethodPost)

	r.HandleFunc("/threads/{thread}/messages", func(w http.ResponseWriter, req *http.Request) {
		threadID := mux.Vars(req)["thread"]
		msgs, err := api.ListMessages(req.Context(), threadID)
		if err != nil {
			writeError(w, err)
			return
		}
		data := make([]map[string]any, 0, len(msgs))
		for _, m := range msgs {
			data = append(data, messageJSON(threadID, m))
		}
		writeJSON(w, http.StatusOK, map[string]any{"object": "list", "data": data})
	}).Methods(http.MethodGet)

	r.HandleFunc("/threads/{thread}/runs", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			AssistantID string `json:"assistant_id"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		run, err := api.CreateRun(req.Context(), mux.Vars(req)["thread"], body.AssistantID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, runJSON(run))
	}).Methods(http.MethodPost)

	r.HandleFunc("/threads/{thread}/runs/{run}", func(w http.ResponseWriter, req *http.Request) {
		vars := mux.Vars(req)
		run, err := api.GetRun(req.Context(), vars["thread"], vars["run"])
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, runJSON(run))
	}).Methods(http.MethodGet)

	r.HandleFunc("/files", func(w http.ResponseWriter, req *http.Request) {
		if err := req.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		src, header, err := req.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer src.Close()
		content, err := io.ReadAll(src)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		file, err := api.uploadFile(filepath.Base(header.Filename), req.FormValue("purpose"), content)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":       file.ID,
			"object":   "file",
			"bytes":    len(file.Content),
			"filename": file.FileName,
			"purpose":  file.Purpose,
		})
	}).Methods(http.MethodPost)

	r.HandleFunc("/vector_stores", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Name    string   `json:"name"`
			FileIDs []string `json:"file_ids"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		vs, err := api.createVectorStore(body.Name, body.FileIDs)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": vs.ID, "object": "vector_store", "name": vs.Name})
	}).Methods(http.MethodPost)

	r.HandleFunc("/assistants", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Name         string `json:"name"`
			Model        string `json:"model"`
			Instructions string `json:"instructions"`
			Tools        []struct {
				Type string `json:"type"`
			} `json:"tools"`
			ToolResources struct {
				FileSearch struct {
					VectorStoreIDs []string `json:"vector_store_ids"`
				} `json:"file_search"`
			} `json:"tool_resources"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		a := CreatedAssistant{
			Name:           body.Name,
			Model:          body.Model,
			Instructions:   body.Instructions,
			VectorStoreIDs: body.ToolResources.FileSearch.VectorStoreIDs,
		}
		for _, tool := range body.Tools {
			a.Tools = append(a.Tools, tool.Type)
		}
		created, err := api.createAssistant(a)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":     created.ID,
			"object": "assistant",
			"name":   created.Name,
			"model":  created.Model,
			"tools":  []any{},
		})
	}).Methods(http.MethodPost)

	return httptest.NewServer(r)
}

func threadJSON(id string) map[string]any {
	return map[string]any{"id": id, "object": "thread", "created_at": 1}
}

func messageJSON(threadID string, m assistant.Message) map[string]any {
	content := make([]map[string]any, 0, len(m.Content))
	for _, seg := range m.Content {
		content = append(content, map[string]any{
			"type": seg.Type,
			"text": map[string]any{"value": seg.Text, "annotations": []any{}},
		})
	}
	return map[string]any{
		"id":         m.ID,
		"object":     "thread.message",
		"created_at": m.CreatedAt,
		"thread_id":  threadID,
		"role":       m.Role,
		"content":    content,
	}
}

func runJSON(r assistant.Run) map[string]any {
	out := map[string]any{
		"id":        r.ID,
		"object":    "thread.run",
		"thread_id": r.ThreadID,
		"status":    string(r.Status),
	}
	if r.ErrorCode != "" || r.ErrorText != "" {
		out["last_error"] = map[string]any{"code": r.ErrorCode, "message": r.ErrorText}
	}
	return out
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, ErrRateLimited) {
		status = http.StatusTooManyRequests
	}
	writeJSON(w, status, map[string]any{
		"error": map[string]any{"message": err.Error(), "type": "server_error"},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
