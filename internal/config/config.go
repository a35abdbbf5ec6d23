// Package config provides configuration management for the labeler.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	Server  ServerConfig
	Model   ModelConfig
	Logging LoggingConfig
}

// ServerConfig holds the optional HTTP serving wrapper's configuration.
type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxBodySize     int64
}

// ModelConfig holds compiled-model loading configuration.
type ModelConfig struct {
	// Path to a single-root or node-list compiled model file.
	Path string
	// ListFormat selects the node-list reader/writer instead of single-root.
	ListFormat bool
	// CacheSize bounds the day-keyed model cache's entry count.
	CacheSize int
}

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level  string
	Format string // "json" or "text"
}

// Load loads the configuration from environment variables.
func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvAsInt("VPLABEL_PORT", 8080),
			Host:            getEnv("VPLABEL_HOST", "0.0.0.0"),
			ReadTimeout:     getEnvAsDuration("VPLABEL_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("VPLABEL_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getEnvAsDuration("VPLABEL_SHUTDOWN_TIMEOUT", 30*time.Second),
			MaxBodySize:     getEnvAsInt64("VPLABEL_MAX_BODY_SIZE", 4*1024*1024),
		},
		Model: ModelConfig{
			Path:       getEnv("VPLABEL_MODEL_PATH", ""),
			ListFormat: getEnvAsBool("VPLABEL_MODEL_LIST_FORMAT", false),
			CacheSize:  getEnvAsInt("VPLABEL_MODEL_CACHE_SIZE", 30),
		},
		Logging: LoggingConfig{
			Level:  getEnv("VPLABEL_LOG_LEVEL", "info"),
			Format: getEnv("VPLABEL_LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid log format: %s (must be json or text)", c.Logging.Format)
	}

	if c.Model.CacheSize < 1 {
		return fmt.Errorf("model cache size must be at least 1")
	}

	return nil
}

// Helper functions for environment variables.

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
