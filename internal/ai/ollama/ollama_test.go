package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteWithSystem(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		var body struct {
			Model    string              `json:"model"`
			Stream   bool                `json:"stream"`
			Messages []map[string]string `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "llama3", body.Model)
		assert.False(t, body.Stream)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "be brief", body.Messages[0]["content"])
		json.NewEncoder(w).Encode(map[string]any{"message": map[string]string{"content": " A dog running into a cat sleeping "}})
	}))
	defer srv.Close()

	text, err := New(srv.URL+"/", "").CompleteWithSystem(context.Background(), "llama3", "be brief", "go")
	require.NoError(t, err)
	assert.Equal(t, "A dog running into a cat sleeping", text)
}

func TestErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	_, err := New(srv.URL, "").Complete(context.Background(), "llama3", "go")
	assert.EqualError(t, err, "ollama status 500")
}

func TestAnalyzeScene(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		var body struct {
			Model  string   `json:"model"`
			Images []string `json:"images"`
			Format string   `json:"format"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "llava", body.Model)
		assert.Equal(t, []string{"AAAA"}, body.Images)
		assert.Equal(t, "json", body.Format)
		json.NewEncoder(w).Encode(map[string]any{"response": `{"objects":[{"label":"tree"}]}`})
	}))
	defer srv.Close()

	doc, err := New(srv.URL, "").AnalyzeScene(context.Background(), "data:image/png;base64,AAAA")
	require.NoError(t, err)
	assert.JSONEq(t, `{"objects":[{"label":"tree"}]}`, doc)
}
