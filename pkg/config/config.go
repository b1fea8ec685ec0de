package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	DefaultCycleInterval  = 50 * time.Millisecond
	DefaultMetricsAddress = ":9090"
	DefaultStackLimit     = 64
)

type Config struct {
	LogLevel      string        `json:"log_level"`
	WorldFile     string        `json:"world_file"`
	CycleInterval time.Duration `json:"-"`
	StackLimit    int           `json:"stack_limit"`
	Metrics       MetricsConfig `json:"metrics"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Address string `json:"address"`
}

// Default returns a config with every field set to its default.
func Default() *Config {
	return &Config{
		LogLevel:      "info",
		CycleInterval: DefaultCycleInterval,
		StackLimit:    DefaultStackLimit,
		Metrics: MetricsConfig{
			Address: DefaultMetricsAddress,
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	return LoadConfigFrom(path, Default())
}

// LoadConfigFrom layers the config file at path over base.
func LoadConfigFrom(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := LoadConfigOver(base, data)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv reads CORENET_* variables over the defaults.
func LoadFromEnv() *Config {
	cfg := Default()
	cfg.LogLevel = getEnv("CORENET_LOG_LEVEL", cfg.LogLevel)
	cfg.WorldFile = getEnv("CORENET_WORLD_FILE", "")
	cfg.Metrics.Address = getEnv("CORENET_METRICS_ADDRESS", cfg.Metrics.Address)

	if v, err := strconv.ParseBool(getEnv("CORENET_METRICS_ENABLED", "false")); err == nil {
		cfg.Metrics.Enabled = v
	}
	if v, err := parseInterval(getEnv("CORENET_CYCLE_INTERVAL", "")); err == nil && v > 0 {
		cfg.CycleInterval = v
	}
	if v, err := strconv.Atoi(getEnv("CORENET_STACK_LIMIT", "")); err == nil && v > 0 {
		cfg.StackLimit = v
	}

	return cfg
}

// Validate reports the first unusable setting.
func (c *Config) Validate() error {
	if c.CycleInterval <= 0 {
		return fmt.Errorf("cycle interval must be positive, got %s", c.CycleInterval)
	}
	if c.StackLimit <= 0 {
		return fmt.Errorf("stack limit must be positive, got %d", c.StackLimit)
	}
	if c.Metrics.Enabled && c.Metrics.Address == "" {
		return fmt.Errorf("metrics enabled without an address")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
