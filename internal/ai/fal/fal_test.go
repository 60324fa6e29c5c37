package fal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiliankoe/sketchdash/internal/ai"
)

func TestGenerateVideoPrimary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/"+DefaultModel, r.URL.Path)
		assert.Equal(t, "Key secret", r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "data:image/png;base64,AAAA", body["first_frame_url"])
		assert.Equal(t, "https://cdn.example/b.png", body["last_frame_url"])
		assert.Equal(t, "a cat jumps", body["prompt"])
		json.NewEncoder(w).Encode(map[string]any{"video": map[string]string{"url": "https://cdn.example/v.mp4"}})
	}))
	defer srv.Close()

	c := New("secret", srv.URL, "", "fallback/model")
	url, err := c.GenerateVideo(context.Background(), ai.VideoRequest{
		FirstFrameURL: "AAAA",
		LastFrameURL:  "https://cdn.example/b.png",
		Prompt:        "a cat jumps",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/v.mp4", url)
}

func TestGenerateVideoFallback(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/primary/model" {
			http.Error(w, "quota exceeded", http.StatusPaymentRequired)
			return
		}
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "data:image/png;base64,AAAA", body["image_url"])
		assert.NotContains(t, body, "last_frame_url")
		json.NewEncoder(w).Encode(map[string]any{"video": map[string]string{"url": "https://cdn.example/fallback.mp4"}})
	}))
	defer srv.Close()

	c := New("secret", srv.URL, "primary/model", "fallback/model")
	url, err := c.GenerateVideo(context.Background(), ai.VideoRequest{FirstFrameURL: "data:image/png;base64,AAAA", Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/fallback.mp4", url)
	assert.Equal(t, []string{"/primary/model", "/fallback/model"}, paths)
}

func TestGenerateVideoNoFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"video": map[string]string{}})
	}))
	defer srv.Close()

	_, err := New("secret", srv.URL, "m", "").GenerateVideo(context.Background(), ai.VideoRequest{})
	assert.EqualError(t, err, "fal m returned no video")
}

func TestMissingKey(t *testing.T) {
	_, err := New("", "", "", "").GenerateVideo(context.Background(), ai.VideoRequest{})
	assert.EqualError(t, err, "missing FAL_KEY")
}
