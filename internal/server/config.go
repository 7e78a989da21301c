// Package server provides configuration helpers that define runtime defaults,
// validation, and policy parameters for the chat service.
package server

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// RateLimitConfig defines the parameters for per-user message rate limiting.
// A user may send at most MaxMessages chat or file messages within any rolling
// Window.
type RateLimitConfig struct {
	MaxMessages int
	Window      time.Duration
}

// Config holds the server configuration settings including transport security
// and policy controls.
type Config struct {
	Port           string
	CertFile       string
	KeyFile        string
	FileDir        string
	MaxFileSize    int64
	MaxMessageSize int64
	AllowedOrigins []string
	RateLimit      RateLimitConfig
	// Users seeds the credential store with username/password pairs. The
	// passwords are hashed at startup and never retained in clear.
	Users map[string]string
}

const (
	defaultPort        = ":8765"
	defaultFileDir     = "uploads"
	defaultMaxFileSize = 10 * 1024 * 1024
)

func defaultConfig() Config {
	return Config{
		Port:        defaultPort,
		FileDir:     defaultFileDir,
		MaxFileSize: defaultMaxFileSize,
		// A base64-encoded maximum-size file plus envelope overhead must
		// still fit in a single frame.
		MaxMessageSize: 16 * 1024 * 1024,
		AllowedOrigins: []string{"https://localhost:8765"},
		RateLimit: RateLimitConfig{
			MaxMessages: 5,
			Window:      10 * time.Second,
		},
		Users: map[string]string{
			"joe": "joe123",
			"bob": "bob123",
			"jim": "jim123",
			"lee": "lee123",
			"eve": "eve123",
		},
	}
}

func sanitizeConfig(cfg Config) Config {
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.FileDir == "" {
		cfg.FileDir = defaultFileDir
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = defaultMaxFileSize
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 16 * 1024 * 1024
	}
	if cfg.RateLimit.MaxMessages <= 0 {
		cfg.RateLimit.MaxMessages = 5
	}
	if cfg.RateLimit.Window <= 0 {
		cfg.RateLimit.Window = 10 * time.Second
	}
	if cfg.Users == nil {
		cfg.Users = map[string]string{}
	}
	cfg.AllowedOrigins = normalizeOrigins(cfg.AllowedOrigins)
	return cfg
}

// NewConfig creates a Config instance populated with default values for all
// settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv creates a Config instance from environment variables.
// Falls back to default values if environment variables are not set.
func NewConfigFromEnv() *Config {
	cfg := defaultConfig()

	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}

	if cert := os.Getenv("TLS_CERT_FILE"); cert != "" {
		cfg.CertFile = cert
	}

	if key := os.Getenv("TLS_KEY_FILE"); key != "" {
		cfg.KeyFile = key
	}

	if dir := os.Getenv("FILE_STORE_DIR"); dir != "" {
		cfg.FileDir = dir
	}

	if maxFile := os.Getenv("MAX_FILE_SIZE"); maxFile != "" {
		cfg.MaxFileSize = parseInt64Value(maxFile, cfg.MaxFileSize)
	}

	if maxSize := os.Getenv("MAX_MESSAGE_SIZE"); maxSize != "" {
		cfg.MaxMessageSize = parseInt64Value(maxSize, cfg.MaxMessageSize)
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}

	if maxMessages := os.Getenv("RATE_LIMIT_MAX_MESSAGES"); maxMessages != "" {
		cfg.RateLimit.MaxMessages = parseIntValue(maxMessages, cfg.RateLimit.MaxMessages)
	}

	if window := os.Getenv("RATE_LIMIT_WINDOW_SECONDS"); window != "" {
		cfg.RateLimit.Window = parseWindowSeconds(window, cfg.RateLimit.Window)
	}

	if users := os.Getenv("CHAT_USERS"); users != "" {
		if parsed := parseUsers(users); len(parsed) > 0 {
			cfg.Users = parsed
		}
	}

	return &cfg
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// parseUsers parses a comma-separated list of "username:password" pairs.
// Entries without a colon or with an empty username are skipped.
func parseUsers(value string) map[string]string {
	users := make(map[string]string)
	for _, pair := range strings.Split(value, ",") {
		pair = strings.TrimSpace(pair)
		name, password, ok := strings.Cut(pair, ":")
		if !ok || name == "" {
			continue
		}
		users[name] = password
	}
	return users
}

func parseInt64Value(value string, defaultValue int64) int64 {
	if parsed, err := strconv.ParseInt(value, 10, 64); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseWindowSeconds(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
