// Package video turns submitted sketches into short clips in the background.
package video

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/kiliankoe/sketchdash/internal/ai"
	"github.com/kiliankoe/sketchdash/internal/game"
)

// StatusUpdater records video progress on a submission.
type StatusUpdater interface {
	UpdateSubmissionVideo(ctx context.Context, submissionID, videoURL string, status game.VideoStatus) error
}

type Config struct {
	Workers   int
	QueueSize int
	// Provider and Model write the animation prompt. Optional.
	Provider ai.Provider
	Model    string
	// Analyzer fills in scene analyses the client did not send. Optional.
	Analyzer ai.SceneAnalyzer
}

type job struct {
	sub    *game.Submission
	prompt string
}

// Pipeline is a fixed worker pool fed by a bounded queue. It implements
// game.VideoQueue.
type Pipeline struct {
	cfg       Config
	generator ai.VideoGenerator
	updater   StatusUpdater
	jobs      chan job
	wg        sync.WaitGroup
	stopOnce  sync.Once
	cancel    context.CancelFunc
}

func New(generator ai.VideoGenerator, updater StatusUpdater, cfg Config) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	return &Pipeline{
		cfg:       cfg,
		generator: generator,
		updater:   updater,
		jobs:      make(chan job, cfg.QueueSize),
	}
}

// Start launches the workers. They stop when ctx is cancelled or Stop is
// called.
func (p *Pipeline) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
	log.Info().Int("workers", p.cfg.Workers).Int("queue", p.cfg.QueueSize).Msg("video pipeline started")
}

// Stop cancels in-flight jobs and waits for the workers to exit. Queued jobs
// are dropped and stay pending.
func (p *Pipeline) Stop() {
	p.stopOnce.Do(func() {
		if p.cancel != nil {
			p.cancel()
		}
		p.wg.Wait()
	})
}

// Enqueue never blocks; it reports false when the queue is full.
func (p *Pipeline) Enqueue(sub *game.Submission, prompt string) bool {
	select {
	case p.jobs <- job{sub: sub.Clone(), prompt: prompt}:
		return true
	default:
		return false
	}
}

func (p *Pipeline) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-p.jobs:
			p.process(ctx, j)
		}
	}
}

func (p *Pipeline) process(ctx context.Context, j job) {
	sub := j.sub
	logger := log.With().Str("submissionId", sub.ID).Str("sessionId", sub.SessionID).Int("round", sub.RoundNumber).Logger()

	if err := p.updater.UpdateSubmissionVideo(ctx, sub.ID, "", game.VideoProcessing); err != nil {
		// Usually a newer resubmission already moved the record on.
		logger.Warn().Err(err).Msg("could not mark video processing")
		return
	}

	first, second := sub.FirstSceneAnalysis, sub.SecondSceneAnalysis
	if p.cfg.Analyzer != nil && first == "" && second == "" {
		first = p.analyze(ctx, sub.FirstSceneImage)
		second = p.analyze(ctx, sub.SecondSceneImage)
	}
	prompt := ai.AnimationPrompt(ctx, p.cfg.Provider, p.cfg.Model, j.prompt, first, second)

	url, err := p.generator.GenerateVideo(ctx, ai.VideoRequest{
		FirstFrameURL: sub.FirstSceneImage,
		LastFrameURL:  sub.SecondSceneImage,
		Prompt:        prompt,
	})
	status := game.VideoCompleted
	if err != nil {
		logger.Error().Err(err).Msg("video generation failed")
		status, url = game.VideoFailed, ""
	}
	// The job context may be cancelled by now; the outcome is still recorded.
	if err := p.updater.UpdateSubmissionVideo(context.WithoutCancel(ctx), sub.ID, url, status); err != nil {
		logger.Warn().Err(err).Str("status", string(status)).Msg("could not record video outcome")
		return
	}
	logger.Info().Str("status", string(status)).Msg("video finished")
}

func (p *Pipeline) analyze(ctx context.Context, image string) string {
	doc, err := p.cfg.Analyzer.AnalyzeScene(ctx, image)
	if err != nil {
		log.Warn().Err(err).Msg("scene analysis failed")
		return ""
	}
	return doc
}
