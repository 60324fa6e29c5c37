package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatServer(t *testing.T, reply string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if seen != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": reply}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestComplete(t *testing.T) {
	var body map[string]any
	srv := chatServer(t, "  A frog hopping into a pond splashing \n", &body)
	c := New("test-key", srv.URL, "")

	text, err := c.Complete(context.Background(), "gpt-4o-mini", "prompt please")
	require.NoError(t, err)
	assert.Equal(t, "A frog hopping into a pond splashing", text)
	assert.Equal(t, "gpt-4o-mini", body["model"])
}

func TestAnalyzeSceneExtractsJSON(t *testing.T) {
	var body map[string]any
	srv := chatServer(t, "Here you go:\n```json\n{\"objects\":[{\"label\":\"cat\"}],\"confidence\":0.9}\n```", &body)
	c := New("test-key", srv.URL, "vision-model")

	doc, err := c.AnalyzeScene(context.Background(), "iVBORw0KGgo=")
	require.NoError(t, err)
	assert.JSONEq(t, `{"objects":[{"label":"cat"}],"confidence":0.9}`, doc)
	assert.Equal(t, "vision-model", body["model"])
}

func TestAnalyzeSceneRejectsProse(t *testing.T) {
	srv := chatServer(t, "I cannot see a drawing.", nil)
	c := New("test-key", srv.URL, "")
	_, err := c.AnalyzeScene(context.Background(), "data:image/png;base64,AAAA")
	assert.Error(t, err)
}

func TestMissingKey(t *testing.T) {
	_, err := New("", "http://unused", "").Complete(context.Background(), "m", "p")
	assert.EqualError(t, err, "missing OPENAI_API_KEY")
}

func TestErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()
	_, err := New("test-key", srv.URL, "").Complete(context.Background(), "m", "p")
	assert.EqualError(t, err, "openai status 429")
}
