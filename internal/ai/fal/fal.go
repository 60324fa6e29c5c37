package fal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kiliankoe/sketchdash/internal/ai"
)

const (
	DefaultModel         = "fal-ai/veo3.1/fast/first-last-frame-to-video"
	DefaultFallbackModel = "fal-ai/kling-video/v2.1/standard/image-to-video"
)

// Client calls fal.ai synchronous model endpoints. The primary model animates
// between both frames; the fallback only gets the first frame.
type Client struct {
	APIKey        string
	BaseURL       string
	Model         string
	FallbackModel string
	http          *http.Client
}

func New(apiKey, baseURL, model, fallbackModel string) *Client {
	if baseURL == "" {
		baseURL = "https://fal.run"
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		APIKey:        apiKey,
		BaseURL:       strings.TrimRight(baseURL, "/"),
		Model:         model,
		FallbackModel: fallbackModel,
		// Video models take minutes.
		http: &http.Client{Timeout: 6 * time.Minute},
	}
}

func (c *Client) GenerateVideo(ctx context.Context, req ai.VideoRequest) (string, error) {
	if c.APIKey == "" {
		return "", errors.New("missing FAL_KEY")
	}
	url, err := c.run(ctx, c.Model, map[string]any{
		"prompt":          req.Prompt,
		"first_frame_url": frameURL(req.FirstFrameURL),
		"last_frame_url":  frameURL(req.LastFrameURL),
		"duration":        "8s",
		"generate_audio":  false,
	})
	if err == nil || c.FallbackModel == "" {
		return url, err
	}
	log.Warn().Err(err).Str("model", c.Model).Str("fallback", c.FallbackModel).Msg("video model failed, trying fallback")
	return c.run(ctx, c.FallbackModel, map[string]any{
		"prompt":    req.Prompt,
		"image_url": frameURL(req.FirstFrameURL),
	})
}

func (c *Client) run(ctx context.Context, model string, payload map[string]any) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/"+model, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Key "+c.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("fal %s status %d: %s", model, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	var out struct {
		Video struct {
			URL string `json:"url"`
		} `json:"video"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.Video.URL == "" {
		return "", fmt.Errorf("fal %s returned no video", model)
	}
	return out.Video.URL, nil
}

// frameURL turns bare base64 PNG data into a data URL; URLs pass through.
func frameURL(s string) string {
	if s == "" || strings.HasPrefix(s, "data:") || strings.HasPrefix(s, "http") {
		return s
	}
	return "data:image/png;base64," + s
}
