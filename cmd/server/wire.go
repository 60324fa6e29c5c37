package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kiliankoe/sketchdash/internal/ai"
	"github.com/kiliankoe/sketchdash/internal/ai/fal"
	"github.com/kiliankoe/sketchdash/internal/ai/ollama"
	"github.com/kiliankoe/sketchdash/internal/ai/openai"
	"github.com/kiliankoe/sketchdash/internal/config"
	"github.com/kiliankoe/sketchdash/internal/events"
	"github.com/kiliankoe/sketchdash/internal/game"
	"github.com/kiliankoe/sketchdash/internal/store/mongodb"
	"github.com/kiliankoe/sketchdash/internal/store/postgres"
	"github.com/kiliankoe/sketchdash/internal/store/sqlite"
	"github.com/kiliankoe/sketchdash/internal/video"
)

// openStore returns the configured session store and a func releasing it.
func openStore(ctx context.Context, cfg config.Config) (game.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		s, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				log.Warn().Err(err).Msg("closing sqlite")
			}
		}, nil
	case config.StorePostgres:
		s, err := postgres.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.StoreMongo:
		s, err := mongodb.New(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.Close(closeCtx); err != nil {
				log.Warn().Err(err).Msg("closing mongo")
			}
		}, nil
	}
	return game.NewMemoryStore(), func() {}, nil
}

func openBus(cfg config.Config) (events.Bus, error) {
	if cfg.NATSURL == "" {
		return events.NewLocal(), nil
	}
	return events.ConnectNATS(cfg.NATSURL, cfg.NATSToken)
}

// textProvider returns the configured completion backend, or nil.
func textProvider(cfg config.Config) ai.Provider {
	switch cfg.PromptProvider {
	case "openai":
		return openai.New(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAIVisionModel)
	case "ollama":
		return ollama.New(cfg.OllamaHost, cfg.OllamaVisionModel)
	}
	return nil
}

func promptSource(cfg config.Config) game.PromptSource {
	p := textProvider(cfg)
	if p == nil {
		return game.DefaultPrompts
	}
	return &ai.PromptGenerator{Provider: p, Model: cfg.PromptModel, Fallback: game.DefaultPrompts}
}

func videoPipeline(cfg config.Config, svc *game.Service) *video.Pipeline {
	if !cfg.VideoEnabled {
		return nil
	}
	vc := video.Config{
		Workers:   cfg.VideoWorkers,
		QueueSize: cfg.VideoQueueSize,
		Provider:  textProvider(cfg),
		Model:     cfg.PromptModel,
	}
	// Both text backends can also look at sketches.
	if analyzer, ok := vc.Provider.(ai.SceneAnalyzer); ok {
		vc.Analyzer = analyzer
	}
	gen := fal.New(cfg.FalKey, cfg.FalBaseURL, cfg.VideoModel, cfg.VideoFallbackModel)
	return video.New(gen, svc.Submissions, vc)
}
