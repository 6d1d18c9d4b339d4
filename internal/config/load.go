package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional config
// file. Environment variables (prefix QDISPATCH_, nested keys joined with _)
// take precedence over values from the config file, which takes precedence
// over defaults. Returns a populated Config or an error when loading or
// validation fails.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("queue.list_key", "qdispatch")
	v.SetDefault("queue.cached", false)
	v.SetDefault("queue.sync", false)
	v.SetDefault("queue.save", true)
	v.SetDefault("queue.workers", 4)
	v.SetDefault("queue.queue_size", 256)
	// Registered with empty defaults so AutomaticEnv can populate them.
	v.SetDefault("signing.secret", "")
	v.SetDefault("database.url", "")

	v.SetConfigName("qdispatch")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/qdispatch")

	v.SetEnvPrefix("QDISPATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env vars and defaults cover it.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
