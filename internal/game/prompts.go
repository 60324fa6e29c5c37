package game

import (
	"context"
	"math/rand"
)

// PromptSource picks the prompt shown to every player for a round.
type PromptSource interface {
	NextPrompt(ctx context.Context) string
}

// Catalog picks uniformly at random from a fixed list.
type Catalog []string

var DefaultPrompts = Catalog{
	"A bird flying and catching on fire",
	"A car hitting the wall and exploding",
	"A kid jumping all the way to the moon",
	"A coke bottle exploding into many pieces",
	"A runner winning a race at the last second",
	"A snowman melting on a summer beach",
	"A cat knocking a vase off the table",
	"A rocket launching and missing the moon",
	"A seed growing into a giant tree",
	"A fish jumping out of the bowl",
}

func (c Catalog) NextPrompt(context.Context) string {
	if len(c) == 0 {
		return ""
	}
	return c[rand.Intn(len(c))]
}

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomCode(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
	}
	return string(b)
}
