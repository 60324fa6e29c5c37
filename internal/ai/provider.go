package ai

import "context"

// Provider is a text completion backend (OpenAI, Ollama).
type Provider interface {
	Complete(ctx context.Context, model string, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, model string, systemPrompt string, prompt string) (string, error)
}

// SceneAnalyzer describes one sketch. The result is an opaque JSON document
// stored next to the submission.
type SceneAnalyzer interface {
	AnalyzeScene(ctx context.Context, imageData string) (string, error)
}

type VideoRequest struct {
	FirstFrameURL string
	LastFrameURL  string
	Prompt        string
}

// VideoGenerator turns two frames into a short clip and returns its URL.
type VideoGenerator interface {
	GenerateVideo(ctx context.Context, req VideoRequest) (string, error)
}
