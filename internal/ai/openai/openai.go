package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultSystemPrompt = "You write short, playful text for a children's drawing game. Answer in one or two sentences."

const analysisInstruction = `Analyze this drawing and return JSON only, with this shape:
{"objects":[{"label":"...","type":"person|animal|vehicle|building|nature|object|shape","description":"..."}],
 "relationships":[{"from":"label","to":"label","type":"above|below|left|right|inside|near|touching"}],
 "suggestedAnimations":[{"object":"label","animationType":"bounce|float|rotate|scale|move|fade","description":"..."}],
 "confidence":0.0}`

type Client struct {
	APIKey      string
	BaseURL     string
	VisionModel string
	http        *http.Client
}

func New(apiKey, baseURL, visionModel string) *Client {
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	if visionModel == "" {
		visionModel = "gpt-4o-mini"
	}
	return &Client{
		APIKey:      apiKey,
		BaseURL:     strings.TrimRight(baseURL, "/"),
		VisionModel: visionModel,
		http:        &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Complete(ctx context.Context, model string, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, model, "", prompt)
}

func (c *Client) CompleteWithSystem(ctx context.Context, model string, systemPrompt string, prompt string) (string, error) {
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}
	return c.chat(ctx, map[string]any{
		"model": model,
		"messages": []map[string]any{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": prompt},
		},
		"temperature": 0.8,
		"max_tokens":  200,
	})
}

// AnalyzeScene sends the sketch to the vision model. imageData may be a data
// URL or bare base64 PNG.
func (c *Client) AnalyzeScene(ctx context.Context, imageData string) (string, error) {
	if !strings.HasPrefix(imageData, "data:") && !strings.HasPrefix(imageData, "http") {
		imageData = "data:image/png;base64," + imageData
	}
	text, err := c.chat(ctx, map[string]any{
		"model": c.VisionModel,
		"messages": []map[string]any{
			{"role": "user", "content": []map[string]any{
				{"type": "text", "text": analysisInstruction},
				{"type": "image_url", "image_url": map[string]string{"url": imageData}},
			}},
		},
		"response_format": map[string]string{"type": "json_object"},
		"max_tokens":      800,
	})
	if err != nil {
		return "", err
	}
	return extractJSON(text)
}

func (c *Client) chat(ctx context.Context, payload map[string]any) (string, error) {
	if c.APIKey == "" {
		return "", errors.New("missing OPENAI_API_KEY")
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/v1/chat/completions", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("openai status %d", resp.StatusCode)
	}
	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", errors.New("no choices")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

// extractJSON returns the outermost JSON object in text, tolerating prose or
// code fences around it.
func extractJSON(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return "", errors.New("no JSON object in analysis")
	}
	doc := text[start : end+1]
	if !json.Valid([]byte(doc)) {
		return "", errors.New("invalid JSON in analysis")
	}
	return doc, nil
}
