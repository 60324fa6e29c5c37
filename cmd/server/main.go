package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kiliankoe/sketchdash/internal/api"
	"github.com/kiliankoe/sketchdash/internal/config"
	"github.com/kiliankoe/sketchdash/internal/events"
	"github.com/kiliankoe/sketchdash/internal/game"
	"github.com/kiliankoe/sketchdash/internal/ws"
	staticserver "github.com/kiliankoe/sketchdash/static"
)

const version = "v0.3.0-dev"

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
		portFlag    = flag.String("port", "", "Port to listen on (overrides PORT env var)")
	)
	flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showHelp {
		fmt.Printf(`sketchdash - multiplayer drawing party game

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information
  --port PORT     Port to listen on (default: 8080 or PORT env var)

Environment Variables:
  PORT                  Port to listen on (default: 8080)
  STORE_DRIVER          memory, sqlite, postgres or mongo (default: memory)
  DATABASE_PATH         SQLite file (default: ./sketchdash.db)
  DATABASE_URL          Postgres connection string
  MONGODB_URI           MongoDB URI; the path names the database
  NATS_URL, NATS_TOKEN  Share session updates between instances
  PROMPT_PROVIDER       openai or ollama; unset uses the built-in prompts
  PROMPT_MODEL          Model for prompt generation (default: gpt-4o-mini)
  OPENAI_API_KEY        OpenAI API key
  OPENAI_BASE_URL       Custom OpenAI API base URL (optional)
  OLLAMA_HOST           Ollama host URL (default: http://localhost:11434)
  VIDEO_ENABLED         Generate a clip per submission (default: false)
  VIDEO_WORKERS         Concurrent video jobs (default: 2)
  FAL_KEY               fal.ai API key
  VIDEO_MODEL           Primary fal model
  VIDEO_FALLBACK_MODEL  Fallback fal model
  ROUNDS_TARGET         Rounds per game (default: 3)
  SESSION_TTL           Session lifetime (default: 2h)
  EXPORT_ENABLED        Append scored rounds to a file (default: false)
  EXPORT_FILE           Export path (default: ./sketchdash-results.txt)
  ALLOWED_ORIGINS       Comma separated CORS origins (default: *)
  RATE_LIMIT            Requests per second per IP on /api (default: 10)

Examples:
  %s                  Start server with default settings
  %s --port 3000      Start server on port 3000
`, os.Args[0], os.Args[0], os.Args[0])
		return
	}

	if *showVersion {
		fmt.Printf("sketchdash %s\n", version)
		return
	}

	// zerolog setup (human-friendly console)
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	cfg := config.FromEnv()
	if *portFlag != "" {
		cfg.Port = *portFlag
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func run(ctx context.Context, cfg config.Config) error {
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	defer closeStore()

	bus, err := openBus(cfg)
	if err != nil {
		return fmt.Errorf("connect event bus: %w", err)
	}
	defer bus.Close()

	svc := game.NewService(store, game.Options{
		Prompts:      promptSource(cfg),
		Notifier:     events.Notifier(bus),
		RoundsTarget: cfg.RoundsTarget,
		SessionTTL:   cfg.SessionTTL,
	})

	if pipeline := videoPipeline(cfg, svc); pipeline != nil {
		pipeline.Start(ctx)
		defer pipeline.Stop()
		svc.Submissions.SetVideoQueue(pipeline)
	}

	// Gin setup with custom logger (skip /socket.io noise)
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/socket.io") {
			return
		}
		log.Info().Str("method", c.Request.Method).Str("path", path).Int("status", c.Writer.Status()).Dur("dur", time.Since(start)).Msg("http")
	})
	r.Use(cors.New(corsConfig(cfg.AllowedOrigins)))

	exportFile := ""
	if cfg.ExportEnabled {
		exportFile = cfg.ExportFile
	}
	api.New(svc, api.Options{RateLimit: cfg.RateLimit, RateBurst: cfg.RateBurst, ExportFile: exportFile}).Register(r)

	sock := ws.New(svc)
	unsubscribe, err := sock.Subscribe(bus)
	if err != nil {
		return fmt.Errorf("subscribe socket server: %w", err)
	}
	defer unsubscribe()
	io := sock.Mount(r)
	defer io.Close()

	// Serve frontend for all other routes
	r.NoRoute(func(c *gin.Context) {
		staticserver.Handler().ServeHTTP(c.Writer, c.Request)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.StoreDriver).Str("version", version).Msg("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Origin"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}
