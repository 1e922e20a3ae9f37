// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port           string
	FrontendURL    string
	DBPath         string
	AllowedOrigins []string
	Completion     CompletionConfig
	Contact        ContactConfig
	Retention      RetentionConfig
	Log            LogConfig
}

// CompletionConfig controls the hosted completion service. The credential
// itself is not stored here; it is read from CredentialVar on every turn.
type CompletionConfig struct {
	CredentialVar string
	BaseURL       string
	Timeout       time.Duration
}

// ContactConfig controls the contact form relay.
type ContactConfig struct {
	RelayURL string
	Timeout  time.Duration
}

// RetentionConfig controls pruning of audit records.
type RetentionConfig struct {
	MaxAge   time.Duration
	Interval time.Duration
}

// LogConfig controls logger output.
type LogConfig struct {
	Level slog.Level
	File  string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	retentionDays := getEnvInt("RETENTION_DAYS", 90)
	if retentionDays <= 0 {
		retentionDays = 90
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		FrontendURL:    getEnv("FRONTEND_URL", ""),
		DBPath:         getEnv("DB_PATH", "./data/devmud.db"),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"*"}),
		Completion: CompletionConfig{
			CredentialVar: CredentialVar,
			BaseURL:       getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
			Timeout:       getEnvDuration("COMPLETION_TIMEOUT", 60*time.Second),
		},
		Contact: ContactConfig{
			RelayURL: getEnv("CONTACT_RELAY_URL", "https://formsubmit.co/devmudservices@gmail.com"),
			Timeout:  getEnvDuration("CONTACT_RELAY_TIMEOUT", 15*time.Second),
		},
		Retention: RetentionConfig{
			MaxAge:   time.Duration(retentionDays) * 24 * time.Hour,
			Interval: getEnvDuration("RETENTION_INTERVAL", time.Hour),
		},
		Log: LogConfig{
			Level: getEnvLevel("LOG_LEVEL", slog.LevelInfo),
			File:  getEnv("LOG_FILE", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
// The completion credential is deliberately not required: its absence is
// reported per chat turn, not at startup.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.Completion.BaseURL == "" {
		return fmt.Errorf("GROQ_BASE_URL cannot be empty")
	}
	if c.Completion.Timeout <= 0 {
		return fmt.Errorf("COMPLETION_TIMEOUT must be > 0")
	}
	if c.Contact.RelayURL == "" {
		return fmt.Errorf("CONTACT_RELAY_URL cannot be empty")
	}
	if c.Retention.Interval <= 0 {
		return fmt.Errorf("RETENTION_INTERVAL must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	if env := os.Getenv("APP_ENV"); env != "" {
		return env == "development"
	}
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// WidgetOrigins returns the origins allowed to open the chat widget: the CORS
// list plus the frontend URL when it is set.
func (c *Config) WidgetOrigins() []string {
	origins := slices.Clone(c.AllowedOrigins)
	if c.FrontendURL != "" && !slices.Contains(origins, c.FrontendURL) {
		origins = append(origins, c.FrontendURL)
	}
	return origins
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
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

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func getEnvLevel(key string, fallback slog.Level) slog.Level {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return fallback
	}
	return level
}
