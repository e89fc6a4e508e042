package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config represents runtime configuration derived from environment variables.
type Config struct {
	Server      ServerConfig
	Logging     LoggingConfig
	Search      SearchConfig
	Verdict     VerdictConfig
	Calibration CalibrationConfig
}

// ServerConfig holds HTTP server runtime parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LoggingConfig represents structured logging configuration.
type LoggingConfig struct {
	Level  slog.Level
	Format string
}

// SearchConfig configures the external web-search provider. An empty APIKey
// is a valid degraded mode: evidence gathering proceeds with the hybrid
// search path only.
type SearchConfig struct {
	APIKey            string
	Endpoint          string
	Timeout           time.Duration
	RequestsPerSecond float64
	CacheTTL          time.Duration
}

// VerdictConfig configures the ordered LLM provider chain for verdict
// classification. OpenAI is the primary provider, Anthropic the fallback;
// either may be disabled by leaving its key empty.
type VerdictConfig struct {
	OpenAIAPIKey    string
	OpenAIModel     string
	AnthropicAPIKey string
	AnthropicModel  string
	EmbeddingModel  string
	CallTimeout     time.Duration
}

// CalibrationConfig controls the periodic calibration report scheduler.
type CalibrationConfig struct {
	Interval   time.Duration
	WindowDays int
}

const (
	defaultPort            = "8080"
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultShutdownTimeout = 5 * time.Second

	defaultLogFormat = "json"

	defaultSearchEndpoint = "https://api.search.brave.com/res/v1/web/search"
	defaultSearchTimeout  = 15 * time.Second
	defaultSearchRPS      = 1.0
	defaultSearchCacheTTL = 6 * time.Hour

	defaultOpenAIModel    = "gpt-4o"
	defaultAnthropicModel = "claude-sonnet-4-20250514"
	defaultEmbeddingModel = "text-embedding-3-small"

	// Per-provider call budget. Kept well below the caller's wall-clock
	// budget so that the fallback provider has time to run.
	defaultVerdictCallTimeout = 60 * time.Second

	defaultCalibrationInterval = 6 * time.Hour
	defaultCalibrationWindow   = 90
)

// Load reads configuration from environment variables, applying defaults when
// values are not provided or invalid.
func Load() (Config, error) {
	// Cloud Run sets PORT, but allow SERVER_PORT override for local dev
	port := getEnv("PORT", "")
	if port == "" {
		port = getEnv("SERVER_PORT", defaultPort)
	}

	cfg := Config{
		Server: ServerConfig{
			Port:            port,
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Logging: LoggingConfig{
			Level:  slog.LevelInfo,
			Format: defaultLogFormat,
		},
		Search: SearchConfig{
			APIKey:            os.Getenv("SEARCH_API_KEY"),
			Endpoint:          getEnv("SEARCH_ENDPOINT", defaultSearchEndpoint),
			Timeout:           defaultSearchTimeout,
			RequestsPerSecond: defaultSearchRPS,
			CacheTTL:          defaultSearchCacheTTL,
		},
		Verdict: VerdictConfig{
			OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
			OpenAIModel:     getEnv("OPENAI_MODEL", defaultOpenAIModel),
			AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
			AnthropicModel:  getEnv("ANTHROPIC_MODEL", defaultAnthropicModel),
			EmbeddingModel:  getEnv("OPENAI_EMBEDDING_MODEL", defaultEmbeddingModel),
			CallTimeout:     defaultVerdictCallTimeout,
		},
		Calibration: CalibrationConfig{
			Interval:   defaultCalibrationInterval,
			WindowDays: defaultCalibrationWindow,
		},
	}

	if v := os.Getenv("SERVER_READ_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_READ_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.ReadTimeout = d
	}

	if v := os.Getenv("SERVER_WRITE_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_WRITE_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.WriteTimeout = d
	}

	if v := os.Getenv("SERVER_SHUTDOWN_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_SHUTDOWN_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.ShutdownTimeout = d
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		cfg.Logging.Level = level
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		switch v {
		case "json", "text":
			cfg.Logging.Format = v
		default:
			return Config{}, fmt.Errorf("invalid LOG_FORMAT: must be 'json' or 'text'")
		}
	}

	if v := os.Getenv("SEARCH_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SEARCH_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Search.Timeout = d
	}

	if v := os.Getenv("SEARCH_REQUESTS_PER_SECOND"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil || rps <= 0 {
			return Config{}, fmt.Errorf("invalid SEARCH_REQUESTS_PER_SECOND: must be a positive number")
		}
		cfg.Search.RequestsPerSecond = rps
	}

	if v := os.Getenv("VERDICT_CALL_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid VERDICT_CALL_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Verdict.CallTimeout = d
	}

	if v := os.Getenv("CALIBRATION_INTERVAL_MINUTES"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil || minutes <= 0 {
			return Config{}, fmt.Errorf("invalid CALIBRATION_INTERVAL_MINUTES: must be a positive integer")
		}
		cfg.Calibration.Interval = time.Duration(minutes) * time.Minute
	}

	if v := os.Getenv("CALIBRATION_WINDOW_DAYS"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days <= 0 {
			return Config{}, fmt.Errorf("invalid CALIBRATION_WINDOW_DAYS: must be a positive integer")
		}
		cfg.Calibration.WindowDays = days
	}

	return cfg, nil
}

func parseSeconds(raw string) (time.Duration, error) {
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return time.Duration(seconds) * time.Second, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch raw {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("must be one of debug, info, warn, error")
	}
}
