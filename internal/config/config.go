package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

type Config struct {
	Port string

	StoreDriver  string
	DatabasePath string
	PostgresURL  string
	MongoURI     string

	NATSURL   string
	NATSToken string

	// PromptProvider is "", "openai" or "ollama". Empty uses the static catalog.
	PromptProvider    string
	PromptModel       string
	OpenAIKey         string
	OpenAIBaseURL     string
	OpenAIVisionModel string
	OllamaHost        string
	OllamaVisionModel string

	VideoEnabled       bool
	VideoWorkers       int
	VideoQueueSize     int
	FalKey             string
	FalBaseURL         string
	VideoModel         string
	VideoFallbackModel string

	RoundsTarget int
	SessionTTL   time.Duration

	ExportEnabled bool
	ExportFile    string

	AllowedOrigins []string
	RateLimit      float64
	RateBurst      int
}

// FromEnv reads the environment, after loading .env when one exists.
func FromEnv() Config {
	_ = godotenv.Load()

	c := Config{}
	c.Port = getenv("PORT", "8080")

	c.StoreDriver = strings.ToLower(getenv("STORE_DRIVER", StoreMemory))
	c.DatabasePath = getenv("DATABASE_PATH", "./sketchdash.db")
	c.PostgresURL = os.Getenv("DATABASE_URL")
	c.MongoURI = os.Getenv("MONGODB_URI")

	c.NATSURL = os.Getenv("NATS_URL")
	c.NATSToken = os.Getenv("NATS_TOKEN")

	c.PromptProvider = strings.ToLower(os.Getenv("PROMPT_PROVIDER"))
	c.PromptModel = getenv("PROMPT_MODEL", "gpt-4o-mini")
	c.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	c.OpenAIBaseURL = os.Getenv("OPENAI_BASE_URL")
	c.OpenAIVisionModel = getenv("OPENAI_VISION_MODEL", "gpt-4o-mini")
	c.OllamaHost = getenv("OLLAMA_HOST", "http://localhost:11434")
	c.OllamaVisionModel = getenv("OLLAMA_VISION_MODEL", "llava")

	c.VideoEnabled = getbool("VIDEO_ENABLED", false)
	c.VideoWorkers = getint("VIDEO_WORKERS", 2)
	c.VideoQueueSize = getint("VIDEO_QUEUE_SIZE", 64)
	c.FalKey = os.Getenv("FAL_KEY")
	c.FalBaseURL = os.Getenv("FAL_BASE_URL")
	c.VideoModel = os.Getenv("VIDEO_MODEL")
	c.VideoFallbackModel = getenv("VIDEO_FALLBACK_MODEL", "fal-ai/kling-video/v2.1/standard/image-to-video")

	c.RoundsTarget = getint("ROUNDS_TARGET", 3)
	c.SessionTTL = getduration("SESSION_TTL", 2*time.Hour)

	c.ExportEnabled = getbool("EXPORT_ENABLED", false)
	c.ExportFile = getenv("EXPORT_FILE", "./sketchdash-results.txt")

	c.AllowedOrigins = splitList(getenv("ALLOWED_ORIGINS", "*"))
	c.RateLimit = getfloat("RATE_LIMIT", 10)
	c.RateBurst = getint("RATE_BURST", 20)
	return c
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case StoreMemory, StoreSQLite:
	case StorePostgres:
		if c.PostgresURL == "" {
			return fmt.Errorf("STORE_DRIVER=postgres needs DATABASE_URL")
		}
	case StoreMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("STORE_DRIVER=mongo needs MONGODB_URI")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.PromptProvider {
	case "", "ollama":
	case "openai":
		if c.OpenAIKey == "" {
			return fmt.Errorf("PROMPT_PROVIDER=openai needs OPENAI_API_KEY")
		}
	default:
		return fmt.Errorf("unknown PROMPT_PROVIDER %q", c.PromptProvider)
	}
	if c.VideoEnabled && c.FalKey == "" {
		return fmt.Errorf("VIDEO_ENABLED needs FAL_KEY")
	}
	return nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getbool(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warn().Str("key", k).Str("value", v).Msg("invalid boolean, using default")
		return def
	}
	return b
}

func getint(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", k).Str("value", v).Msg("invalid integer, using default")
		return def
	}
	return n
}

func getfloat(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Warn().Str("key", k).Str("value", v).Msg("invalid number, using default")
		return def
	}
	return f
}

func getduration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn().Str("key", k).Str("value", v).Msg("invalid duration, using default")
		return def
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
