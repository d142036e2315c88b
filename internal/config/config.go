// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Crawler    CrawlerConfig    `mapstructure:"crawler"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Headless   HeadlessConfig   `mapstructure:"headless"`
	DB         DBConfig         `mapstructure:"db"`
	Storage    StorageConfig    `mapstructure:"storage"`
	PubSub     PubSubConfig     `mapstructure:"pubsub"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port            int `mapstructure:"port"`
	RequestTimeoutS int `mapstructure:"request_timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// CrawlerConfig governs workers, queue depth and fetch retry behavior.
type CrawlerConfig struct {
	Workers            int     `mapstructure:"workers"`
	QueueDepth         int     `mapstructure:"queue_depth"`
	MaxRetries         int     `mapstructure:"max_retries"`
	UserAgent          string  `mapstructure:"user_agent"`
	RawContentMaxChars int     `mapstructure:"raw_content_max_chars"`
	DefaultRPS         float64 `mapstructure:"default_rps"`
	DefaultBurst       int     `mapstructure:"default_burst"`
	RespectRobots      bool    `mapstructure:"respect_robots"`
}

// ExtractionConfig configures the AI extraction boundary.
type ExtractionConfig struct {
	APIKey          string `mapstructure:"api_key"`
	Model           string `mapstructure:"model"`
	MaxContentChars int    `mapstructure:"max_content_chars"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
}

// HeadlessConfig configures the rendered-fetch subsystem.
type HeadlessConfig struct {
	MaxParallel     int `mapstructure:"max_parallel"`
	NavTimeoutSec   int `mapstructure:"nav_timeout_seconds"`
	StabilizeWaitMs int `mapstructure:"stabilize_wait_ms"`
}

// DBConfig controls access to Postgres. An empty DSN selects the in-memory
// stores.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// StorageConfig selects the raw-content archive backend.
type StorageConfig struct {
	Provider    string `mapstructure:"provider"`
	Bucket      string `mapstructure:"bucket"`
	BaseDir     string `mapstructure:"base_dir"`
	Prefix      string `mapstructure:"prefix"`
	ContentType string `mapstructure:"content_type"`
}

// PubSubConfig holds metadata for publish-on-approval notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("EVENTLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 60)
	v.SetDefault("crawler.workers", 1)
	v.SetDefault("crawler.queue_depth", 64)
	v.SetDefault("crawler.max_retries", 3)
	v.SetDefault("crawler.user_agent", "eventlens-bot/0.1")
	v.SetDefault("crawler.raw_content_max_chars", 50000)
	v.SetDefault("crawler.default_rps", 2)
	v.SetDefault("crawler.default_burst", 1)
	v.SetDefault("crawler.respect_robots", true)
	v.SetDefault("extraction.model", "gemini-2.5-pro")
	v.SetDefault("extraction.max_content_chars", 15000)
	v.SetDefault("extraction.timeout_seconds", 120)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 45)
	v.SetDefault("headless.stabilize_wait_ms", 500)
	v.SetDefault("storage.provider", "memory")
	v.SetDefault("storage.prefix", "raw")
	v.SetDefault("storage.content_type", "text/html; charset=utf-8")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Crawler.Workers <= 0 {
		return fmt.Errorf("crawler.workers must be > 0")
	}
	if c.Crawler.MaxRetries <= 0 {
		return fmt.Errorf("crawler.max_retries must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	switch c.Storage.Provider {
	case "memory", "gcs", "local":
	default:
		return fmt.Errorf("storage.provider must be memory, local or gcs, got %q", c.Storage.Provider)
	}
	if c.Storage.Provider == "gcs" && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket must be set when storage.provider is gcs")
	}
	if c.Storage.Provider == "local" && c.Storage.BaseDir == "" {
		return fmt.Errorf("storage.base_dir must be set when storage.provider is local")
	}
	if c.PubSub.Topic != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic is set")
	}
	return nil
}

// RequestTimeout returns the server request timeout as a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutS) * time.Second
}
