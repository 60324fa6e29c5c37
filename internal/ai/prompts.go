package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kiliankoe/sketchdash/internal/game"
)

const gamePromptInstruction = `Generate a creative, kid-friendly drawing prompt for a multiplayer game.

Format: "[Subject] [Action1] into [Subject] [Action2]"

Requirements:
- Use simple, recognizable objects (animals, vehicles, nature, everyday items)
- Include fun, active verbs (jumping, flying, dancing, growing)
- Keep it under 8 words total
- Examples: "A cat jumping into a tree sleeping", "A bird flying into a fish swimming"

Reply with the prompt only.`

// PromptGenerator asks a Provider for round prompts and falls back to a
// static catalog when the provider fails or answers in the wrong shape.
type PromptGenerator struct {
	Provider Provider
	Model    string
	Fallback game.PromptSource
	Timeout  time.Duration
}

func (g *PromptGenerator) NextPrompt(ctx context.Context) string {
	fallback := g.Fallback
	if fallback == nil {
		fallback = game.DefaultPrompts
	}
	if g.Provider == nil {
		return fallback.NextPrompt(ctx)
	}
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	text, err := g.Provider.Complete(ctx, g.Model, gamePromptInstruction)
	if err != nil {
		log.Warn().Err(err).Msg("prompt generation failed, using catalog")
		return fallback.NextPrompt(ctx)
	}
	prompt, ok := CleanGamePrompt(text)
	if !ok {
		log.Warn().Str("text", text).Msg("generated prompt has wrong shape, using catalog")
		return fallback.NextPrompt(ctx)
	}
	return prompt
}

// CleanGamePrompt strips quotes and checks the "<a> into <b>" shape with at
// least two words on each side.
func CleanGamePrompt(text string) (string, bool) {
	cleaned := strings.TrimSpace(strings.NewReplacer(`"`, "", `'`, "").Replace(text))
	if i := strings.IndexByte(cleaned, '\n'); i >= 0 {
		cleaned = strings.TrimSpace(cleaned[:i])
	}
	parts := strings.Split(cleaned, " into ")
	if len(parts) != 2 {
		return "", false
	}
	first, second := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if len(strings.Fields(first)) < 2 || len(strings.Fields(second)) < 2 {
		return "", false
	}
	return first + " into " + second, true
}

// AnimationPrompt describes the motion between both scenes for the video
// model. Without a provider, or when it fails, the round prompt is used.
func AnimationPrompt(ctx context.Context, p Provider, model, roundPrompt, firstAnalysis, secondAnalysis string) string {
	if p == nil || (firstAnalysis == "" && secondAnalysis == "") {
		return roundPrompt
	}
	instruction := fmt.Sprintf(`Two sketches were drawn for the prompt %q.

First scene analysis:
%s

Second scene analysis:
%s

Write an animation prompt for a video model that moves from the first scene to
the second with smooth, natural motion. Describe what moves and changes, keep it
playful and under 100 words. Reply with the prompt only.`, roundPrompt, firstAnalysis, secondAnalysis)

	text, err := p.Complete(ctx, model, instruction)
	if err != nil || strings.TrimSpace(text) == "" {
		log.Warn().Err(err).Msg("animation prompt failed, using round prompt")
		return roundPrompt
	}
	return strings.TrimSpace(text)
}
