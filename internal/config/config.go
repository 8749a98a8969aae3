// Package config loads and validates application configuration.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Provider ProviderConfig `mapstructure:"provider"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ProviderConfig selects and tunes the snapshot source.
type ProviderConfig struct {
	Mode           string        `mapstructure:"mode"` // "mock" or "http"
	SnapshotURL    string        `mapstructure:"snapshot_url"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
	MockSeed       int64         `mapstructure:"mock_seed"` // 0 = time-seeded
}

// PipelineConfig tunes the detection pipeline's windows. Rule thresholds
// themselves are fixed constants and deliberately not configurable.
type PipelineConfig struct {
	HistorySize    int           `mapstructure:"history_size"`
	ThrottleWindow time.Duration `mapstructure:"throttle_window"`
	EventRetention time.Duration `mapstructure:"event_retention"`
}

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// StorageConfig holds the audit-log database configuration.
type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	MaxEvents int    `mapstructure:"max_events"`
	DBPath    string `mapstructure:"db_path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	setDefaults(v)

	v.SetEnvPrefix("MARKETPULSE")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// setDefaults configures default values for all configuration options.
func setDefaults(v *viper.Viper) {
	v.SetDefault("provider.mode", "mock")
	v.SetDefault("provider.snapshot_url", "")
	v.SetDefault("provider.poll_interval", "1m")
	v.SetDefault("provider.timeout", "30s")
	v.SetDefault("provider.max_retries", 3)
	v.SetDefault("provider.retry_delay_base", "1s")
	v.SetDefault("provider.mock_seed", 0)

	v.SetDefault("pipeline.history_size", 100)
	v.SetDefault("pipeline.throttle_window", "30m")
	v.SetDefault("pipeline.event_retention", "30m")

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	v.SetDefault("storage.enabled", true)
	v.SetDefault("storage.max_events", 1000)
	v.SetDefault("storage.db_path", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid.
func (c *Config) Validate() error {
	switch c.Provider.Mode {
	case "mock":
	case "http":
		if c.Provider.SnapshotURL == "" {
			return fmt.Errorf("provider.snapshot_url is required when provider.mode is http")
		}
	default:
		return fmt.Errorf("provider.mode must be one of: mock, http")
	}
	if c.Provider.PollInterval < time.Second {
		return fmt.Errorf("provider.poll_interval must be at least 1 second")
	}
	if c.Provider.Timeout <= 0 {
		return fmt.Errorf("provider.timeout must be positive")
	}
	if c.Provider.MaxRetries < 1 {
		return fmt.Errorf("provider.max_retries must be at least 1")
	}

	if c.Pipeline.HistorySize < 1 {
		return fmt.Errorf("pipeline.history_size must be at least 1")
	}
	if c.Pipeline.ThrottleWindow < time.Minute {
		return fmt.Errorf("pipeline.throttle_window must be at least 1 minute")
	}
	if c.Pipeline.EventRetention < time.Minute {
		return fmt.Errorf("pipeline.event_retention must be at least 1 minute")
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	if c.Storage.Enabled && c.Storage.MaxEvents < 1 {
		return fmt.Errorf("storage.max_events must be at least 1")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
