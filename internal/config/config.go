// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Generation policies.
const (
	// GenerationScripted asks the model only where the scripted flow delegates.
	GenerationScripted = "scripted"
	// GenerationLLM asks the model on every turn, scripted text is the fallback.
	GenerationLLM = "llm"
)

// Config holds all application configuration.
type Config struct {
	Port               string
	FrontendURL        string
	DB                 DBConfig
	LLM                LLMConfig
	Transcription      TranscriptionConfig
	Session            SessionConfig
	RateLimit          RateLimitConfig
	ConversationLog    ConversationLogConfig
	MaxRequestBodySize int64
	MaxAudioBytes      int64
}

// DBConfig selects and addresses the store.
type DBConfig struct {
	Driver string // "sqlite" or "postgres"
	Path   string
	DSN    string
}

// LLMConfig controls reply generation.
type LLMConfig struct {
	BaseURL           string
	APIKey            string
	Model             string
	Temperature       float64
	MaxTokens         int
	PresencePenalty   float64
	FrequencyPenalty  float64
	Timeout           time.Duration
	RequestsPerSecond float64
	Generation        string
}

// TranscriptionConfig controls speech-to-text.
type TranscriptionConfig struct {
	BaseURL  string
	APIKey   string
	Model    string
	Language string
	Timeout  time.Duration
}

// SessionConfig controls in-memory and persisted session lifetimes.
type SessionConfig struct {
	IdleTTL       time.Duration
	RetentionDays int
	SweepInterval time.Duration
	HistoryLimit  int
	ContextWindow int
}

// RateLimitConfig limits chat and transcription requests per user.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// ConversationLogConfig controls JSON conversation logging.
type ConversationLogConfig struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("CONVERSATION_LOG_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}
	openAIKey := getEnv("OPENAI_API_KEY", "")
	openAIBase := getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1")

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DB: DBConfig{
			Driver: getEnv("DB_DRIVER", "sqlite"),
			Path:   getEnv("DB_PATH", "./data/nux.db"),
			DSN:    getEnv("DATABASE_URL", ""),
		},
		LLM: LLMConfig{
			BaseURL:           openAIBase,
			APIKey:            openAIKey,
			Model:             getEnv("LLM_MODEL", "gpt-4o-mini"),
			Temperature:       getEnvFloat("LLM_TEMPERATURE", 0.8),
			MaxTokens:         getEnvInt("LLM_MAX_TOKENS", 1000),
			PresencePenalty:   getEnvFloat("LLM_PRESENCE_PENALTY", 0.2),
			FrequencyPenalty:  getEnvFloat("LLM_FREQUENCY_PENALTY", 0.1),
			Timeout:           getEnvDuration("LLM_TIMEOUT", 30*time.Second),
			RequestsPerSecond: getEnvFloat("LLM_REQUESTS_PER_SECOND", 5),
			Generation:        getEnv("NUX_GENERATION", GenerationScripted),
		},
		Transcription: TranscriptionConfig{
			BaseURL:  getEnv("TRANSCRIPTION_BASE_URL", openAIBase),
			APIKey:   getEnv("TRANSCRIPTION_API_KEY", openAIKey),
			Model:    getEnv("TRANSCRIPTION_MODEL", "whisper-1"),
			Language: getEnv("TRANSCRIPTION_LANGUAGE", "de"),
			Timeout:  getEnvDuration("TRANSCRIPTION_TIMEOUT", 60*time.Second),
		},
		Session: SessionConfig{
			IdleTTL:       getEnvDuration("SESSION_IDLE_TTL", 60*time.Minute),
			RetentionDays: getEnvInt("SESSION_RETENTION_DAYS", 30),
			SweepInterval: getEnvDuration("SESSION_SWEEP_INTERVAL", 5*time.Minute),
			HistoryLimit:  getEnvInt("SESSION_HISTORY_LIMIT", 50),
			ContextWindow: getEnvInt("SESSION_CONTEXT_WINDOW", 8),
		},
		RateLimit: RateLimitConfig{
			Requests: getEnvInt("RATE_LIMIT_REQUESTS", 20),
			Window:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		ConversationLog: ConversationLogConfig{
			Enabled:       getEnvBool("CONVERSATION_LOG_ENABLED", true),
			Dir:           getEnv("CONVERSATION_LOG_DIR", "./data/logs/conversations"),
			GlobalEnabled: getEnvBool("CONVERSATION_LOG_GLOBAL_ENABLED", false),
			GlobalPath:    getEnv("CONVERSATION_LOG_GLOBAL_PATH", "./data/logs/conversations/all.ndjson"),
			QueueSize:     queueSize,
		},
		MaxRequestBodySize: int64(getEnvInt("MAX_REQUEST_BODY_BYTES", 1<<20)),
		MaxAudioBytes:      int64(getEnvInt("MAX_AUDIO_BYTES", 25<<20)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	switch c.DB.Driver {
	case "sqlite":
		if c.DB.Path == "" {
			return fmt.Errorf("DB_PATH cannot be empty")
		}
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", c.DB.Driver)
	}
	if c.LLM.Generation != GenerationScripted && c.LLM.Generation != GenerationLLM {
		return fmt.Errorf("NUX_GENERATION must be %q or %q", GenerationScripted, GenerationLLM)
	}
	if c.Session.HistoryLimit <= 0 || c.Session.ContextWindow <= 0 {
		return fmt.Errorf("SESSION_HISTORY_LIMIT and SESSION_CONTEXT_WINDOW must be > 0")
	}
	if c.Session.RetentionDays <= 0 {
		return fmt.Errorf("SESSION_RETENTION_DAYS must be > 0")
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be > 0")
	}
	if c.ConversationLog.Dir == "" {
		return fmt.Errorf("CONVERSATION_LOG_DIR cannot be empty")
	}
	if c.ConversationLog.GlobalPath == "" {
		return fmt.Errorf("CONVERSATION_LOG_GLOBAL_PATH cannot be empty")
	}
	if c.ConversationLog.QueueSize <= 0 {
		return fmt.Errorf("CONVERSATION_LOG_QUEUE_SIZE must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// DBTarget returns the path or connection string for the configured driver.
func (c *Config) DBTarget() string {
	if c.DB.Driver == "postgres" {
		return c.DB.DSN
	}
	return c.DB.Path
}

// Retention returns how long inactive sessions are kept in the store.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Session.RetentionDays) * 24 * time.Hour
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
