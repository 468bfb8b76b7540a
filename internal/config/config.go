// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port            string
	FrontendURL     string
	DBPath          string
	WarehouseSeed   bool
	QueryTimeout    time.Duration
	AnalystAddr     string // empty disables generated SQL
	DefaultPersona  string
	SessionTTL      time.Duration
	RateLimit       RateLimitConfig
	Stream          StreamConfig
	ConversationLog ConversationLogConfig
}

// RateLimitConfig bounds chat requests per session.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// StreamConfig controls the SSE and websocket chat transports.
type StreamConfig struct {
	ChunkSize          int
	MaxRequestBodySize int64
	KeepaliveInterval  time.Duration
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

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		FrontendURL:    getEnv("FRONTEND_URL", ""),
		DBPath:         getEnv("DB_PATH", "./data/vigil.db"),
		WarehouseSeed:  getEnvBool("WAREHOUSE_SEED", true),
		QueryTimeout:   getEnvDuration("QUERY_TIMEOUT", 30*time.Second),
		AnalystAddr:    getEnv("ANALYST_ADDR", ""),
		DefaultPersona: getEnv("DEFAULT_PERSONA", "safety_guardian"),
		SessionTTL:     getEnvDuration("SESSION_TTL", 60*time.Minute),
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvFloat("RATE_LIMIT_RPS", 2),
			Burst:             getEnvInt("RATE_LIMIT_BURST", 10),
		},
		Stream: StreamConfig{
			ChunkSize:          getEnvInt("STREAM_CHUNK_SIZE", 100),
			MaxRequestBodySize: int64(getEnvInt("SSE_MAX_REQUEST_BODY", 1<<20)),
			KeepaliveInterval:  getEnvDuration("SSE_KEEPALIVE_INTERVAL", 10*time.Second),
		},
		ConversationLog: ConversationLogConfig{
			Enabled:       getEnvBool("CONVERSATION_LOG_ENABLED", true),
			Dir:           getEnv("CONVERSATION_LOG_DIR", "./data/logs/conversations"),
			GlobalEnabled: getEnvBool("CONVERSATION_LOG_GLOBAL_ENABLED", false),
			GlobalPath:    getEnv("CONVERSATION_LOG_GLOBAL_PATH", "./data/logs/conversations/all.ndjson"),
			QueueSize:     queueSize,
		},
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
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.QueryTimeout < 0 {
		return fmt.Errorf("QUERY_TIMEOUT cannot be negative")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be > 0")
	}
	if c.Stream.ChunkSize <= 0 {
		return fmt.Errorf("STREAM_CHUNK_SIZE must be > 0")
	}
	if c.Stream.MaxRequestBodySize <= 0 {
		return fmt.Errorf("SSE_MAX_REQUEST_BODY must be > 0")
	}
	if c.Stream.KeepaliveInterval <= 0 {
		return fmt.Errorf("SSE_KEEPALIVE_INTERVAL must be > 0")
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

// SweepInterval is how often idle sessions are checked: a sixth of the TTL,
// at least one second.
func (c *Config) SweepInterval() time.Duration {
	return max(c.SessionTTL/6, time.Second)
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

// getEnvDuration accepts Go duration strings ("30s", "1h") or bare seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
