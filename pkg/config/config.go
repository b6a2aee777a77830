package config

import (
	"fmt"
	"os"
	"time"

	"github.com/duallang/duallang/pkg/models"
	"gopkg.in/yaml.v3"
)

// Config holds all duallang configuration.
type Config struct {
	Listen      string          `yaml:"listen"`
	DBPath      string          `yaml:"db_path"`
	Settings    models.Settings `yaml:"settings"`
	Cache       CacheConfig     `yaml:"cache"`
	Retry       RetryConfig     `yaml:"retry"`
	Scheduler   SchedulerConfig `yaml:"scheduler"`
	Document    DocumentConfig  `yaml:"document"`
	Google      BackendConfig   `yaml:"google"`
	Gemini      GeminiConfig    `yaml:"gemini"`
	Usage       UsageConfig     `yaml:"usage"`
	CORSOrigins []string        `yaml:"cors_origins"`
}

// CacheConfig selects where the translation table is persisted.
// Backend is "sqlite" (default), "redis" or "memory".
type CacheConfig struct {
	Backend string      `yaml:"backend"`
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig points the cache at a Redis hash.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
}

// RetryConfig controls the retry controller.
type RetryConfig struct {
	Retries   int           `yaml:"retries"`
	BaseDelay time.Duration `yaml:"base_delay"`
}

// SchedulerConfig controls the continuous subtitle scheduler.
type SchedulerConfig struct {
	Lookahead         time.Duration `yaml:"lookahead"`
	BackfillBatchSize int           `yaml:"backfill_batch_size"`
	Interval          time.Duration `yaml:"interval"`
}

// DocumentConfig controls paragraph-list translation pacing.
type DocumentConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// BackendConfig defines an upstream translation endpoint.
type BackendConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// GeminiConfig adds the model name to the endpoint settings.
type GeminiConfig struct {
	BackendConfig `yaml:",inline"`
	Model         string `yaml:"model"`
}

// UsageConfig toggles recording of backend calls.
type UsageConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen:   "127.0.0.1:8787",
		DBPath:   "duallang.db",
		Settings: models.DefaultSettings(),
		Cache: CacheConfig{
			Backend: "sqlite",
			Redis: RedisConfig{
				Addr: "localhost:6379",
				Key:  "duallang:cache",
			},
		},
		Retry: RetryConfig{
			Retries:   3,
			BaseDelay: time.Second,
		},
		Scheduler: SchedulerConfig{
			Lookahead:         2 * time.Minute,
			BackfillBatchSize: 50,
			Interval:          1500 * time.Millisecond,
		},
		Document: DocumentConfig{
			Interval: 1200 * time.Millisecond,
		},
		Google: BackendConfig{
			URL:     "https://translate.googleapis.com",
			Timeout: 30 * time.Second,
		},
		Gemini: GeminiConfig{
			BackendConfig: BackendConfig{
				URL:     "https://generativelanguage.googleapis.com",
				Timeout: 2 * time.Minute,
			},
			Model: "gemini-1.5-flash",
		},
		Usage:       UsageConfig{Enabled: true},
		CORSOrigins: []string{"*"},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads path when it exists and falls back to Default otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	if err := c.Settings.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	switch c.Cache.Backend {
	case "sqlite", "redis", "memory":
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Retry.Retries < 0 {
		return fmt.Errorf("retry.retries must not be negative")
	}
	if c.Scheduler.BackfillBatchSize <= 0 {
		return fmt.Errorf("scheduler.backfill_batch_size must be positive")
	}
	return nil
}
