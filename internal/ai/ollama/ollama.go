package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client talks to a local Ollama server. Chat models generate prompts; a
// multimodal model such as llava analyzes sketches.
type Client struct {
	Host        string
	VisionModel string
	http        *http.Client
}

func New(host, visionModel string) *Client {
	if host == "" {
		host = "http://localhost:11434"
	}
	if visionModel == "" {
		visionModel = "llava"
	}
	return &Client{
		Host:        strings.TrimRight(host, "/"),
		VisionModel: visionModel,
		http:        &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) Complete(ctx context.Context, model string, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, model, "", prompt)
}

func (c *Client) CompleteWithSystem(ctx context.Context, model string, systemPrompt string, prompt string) (string, error) {
	if systemPrompt == "" {
		systemPrompt = "You write short, playful text for a children's drawing game."
	}
	payload := map[string]any{
		"model": model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": prompt},
		},
		"stream": false,
	}
	var out struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := c.post(ctx, "/api/chat", payload, &out); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Message.Content), nil
}

// AnalyzeScene asks the vision model for a JSON description of the sketch.
func (c *Client) AnalyzeScene(ctx context.Context, imageData string) (string, error) {
	if i := strings.Index(imageData, "base64,"); i >= 0 {
		imageData = imageData[i+len("base64,"):]
	}
	payload := map[string]any{
		"model":  c.VisionModel,
		"prompt": "Describe the objects in this drawing as JSON: {\"objects\":[{\"label\":\"...\",\"type\":\"...\"}],\"confidence\":0.0}",
		"images": []string{imageData},
		"format": "json",
		"stream": false,
	}
	var out struct {
		Response string `json:"response"`
	}
	if err := c.post(ctx, "/api/generate", payload, &out); err != nil {
		return "", err
	}
	doc := strings.TrimSpace(out.Response)
	if !json.Valid([]byte(doc)) {
		return "", fmt.Errorf("ollama returned invalid analysis JSON")
	}
	return doc, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.Host+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("ollama status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
