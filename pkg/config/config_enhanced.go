package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// ConfigRaw represents the raw JSON structure with flexible types
// Absent fields leave the base config untouched.
type ConfigRaw struct {
	LogLevel      string           `json:"log_level"`
	WorldFile     string           `json:"world_file"`
	CycleInterval interface{}      `json:"cycle_interval"` // Can be string or number
	StackLimit    int              `json:"stack_limit"`
	Metrics       MetricsConfigRaw `json:"metrics"`
}

type MetricsConfigRaw struct {
	Enabled *bool  `json:"enabled"`
	Address string `json:"address"`
}

// ParseCycleInterval converts the raw cycle_interval value. Numbers are
// milliseconds, strings are Go durations or bare millisecond counts.
func ParseCycleInterval(raw interface{}) (time.Duration, error) {
	switch v := raw.(type) {
	case float64:
		// JSON numbers are parsed as float64
		return time.Duration(v * float64(time.Millisecond)), nil
	case string:
		d, err := parseInterval(v)
		if err != nil {
			return 0, fmt.Errorf("invalid cycle interval format: %w", err)
		}
		return d, nil
	case nil:
		return DefaultCycleInterval, nil
	default:
		return 0, fmt.Errorf("cycle_interval must be a number or string, got %T", v)
	}
}

func parseInterval(s string) (time.Duration, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(s)
}

// LoadConfigEnhanced loads config with support for human-friendly intervals
func LoadConfigEnhanced(data []byte) (*Config, error) {
	return LoadConfigOver(Default(), data)
}

// LoadConfigOver applies the fields present in data on top of base and
// validates the result. base is not modified.
func LoadConfigOver(base *Config, data []byte) (*Config, error) {
	var raw ConfigRaw
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg := *base
	if raw.LogLevel != "" {
		cfg.LogLevel = raw.LogLevel
	}
	if raw.WorldFile != "" {
		cfg.WorldFile = raw.WorldFile
	}
	if raw.StackLimit != 0 {
		cfg.StackLimit = raw.StackLimit
	}
	if raw.Metrics.Address != "" {
		cfg.Metrics.Address = raw.Metrics.Address
	}
	if raw.Metrics.Enabled != nil {
		cfg.Metrics.Enabled = *raw.Metrics.Enabled
	}

	if raw.CycleInterval != nil {
		interval, err := ParseCycleInterval(raw.CycleInterval)
		if err != nil {
			return nil, fmt.Errorf("failed to parse cycle interval: %w", err)
		}
		cfg.CycleInterval = interval
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
