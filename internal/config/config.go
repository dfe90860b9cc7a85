package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port string

	// Docs API
	DocsAPIURL    string
	DocsRateLimit float64

	// Image relay
	PublicBaseURL string
	TicketTTL     time.Duration

	// Persistence
	DBPath string

	// Batch execution. Zero overrides fall back to the preset.
	ChunkPreset string
	PresetsFile string
	ChunkSize   int
	MaxRetries  int
	BackoffBase time.Duration
	BackoffMax  time.Duration
	Strategy    string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Request limits
	MaxRequestBytes int64

	// Job state
	JobTTL time.Duration

	LogLevel string
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		DocsAPIURL:    envOr("DOCS_API_URL", "https://docs.googleapis.com"),
		DocsRateLimit: envFloat("DOCS_RATE_LIMIT", 5),

		PublicBaseURL: strings.TrimRight(os.Getenv("PUBLIC_BASE_URL"), "/"),
		TicketTTL:     envDuration("TICKET_TTL", 5*time.Minute),

		DBPath: envOr("DB_PATH", "data/docresizer.db"),

		ChunkPreset: envOr("CHUNK_PRESET", PresetMicro),
		PresetsFile: os.Getenv("PRESETS_FILE"),
		ChunkSize:   envInt("CHUNK_SIZE", 0),
		MaxRetries:  envInt("MAX_RETRIES", 0),
		BackoffBase: envDuration("BACKOFF_BASE", 0),
		BackoffMax:  envDuration("BACKOFF_MAX", 0),
		Strategy:    envOr("STRATEGY", "delete_insert"),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxRequestBytes: envInt64("MAX_REQUEST_BYTES", 1<<20),

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		LogLevel: envOr("LOG_LEVEL", "info"),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxRequestBytes <= 0 {
		cfg.MaxRequestBytes = 1 << 20
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.TicketTTL <= 0 {
		cfg.TicketTTL = 5 * time.Minute
	}

	return cfg
}

func (c Config) Validate() error {
	if c.PublicBaseURL == "" {
		return fmt.Errorf("PUBLIC_BASE_URL is required")
	}
	if c.ChunkSize < 0 {
		return fmt.Errorf("CHUNK_SIZE must not be negative")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("MAX_RETRIES must not be negative")
	}
	switch c.Strategy {
	case "delete_insert", "property":
	default:
		return fmt.Errorf("STRATEGY must be delete_insert or property, got %q", c.Strategy)
	}
	if _, err := c.Batch(); err != nil {
		return err
	}
	return nil
}

// Batch resolves the chunking preset and applies explicit overrides.
func (c Config) Batch() (Preset, error) {
	presets := DefaultPresets()
	if c.PresetsFile != "" {
		loaded, err := LoadPresets(c.PresetsFile)
		if err != nil {
			return Preset{}, err
		}
		presets = loaded
	}
	p, ok := presets[c.ChunkPreset]
	if !ok {
		return Preset{}, fmt.Errorf("unknown chunk preset %q", c.ChunkPreset)
	}
	if c.ChunkSize > 0 {
		p.ChunkSize = c.ChunkSize
	}
	if c.MaxRetries > 0 {
		p.MaxRetries = c.MaxRetries
	}
	if c.BackoffBase > 0 {
		p.BackoffBase = c.BackoffBase
	}
	if c.BackoffMax > 0 {
		p.BackoffMax = c.BackoffMax
	}
	return p, nil
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
