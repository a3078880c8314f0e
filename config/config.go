// Package config loads the service configuration from an optional TOML
// file, a .env file and WORKTIME_* environment variables, in that order of
// increasing precedence.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"

	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/worktime"
)

//go:embed sample_config.toml
var sampleConfig string

// Server contains HTTP settings.
type Server struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// Storage selects the database and the notification backend.
type Storage struct {
	DBPath              string `toml:"db_path"`
	NotificationBackend string `toml:"notification_backend"` // "sqlite" or "redis"
	RedisAddr           string `toml:"redis_addr"`
}

// Compliance contains rule evaluation settings.
type Compliance struct {
	WorkWeek           []string `toml:"work_week"`
	IncludeMissingDays bool     `toml:"include_missing_days"`
	RuleSetPath        string   `toml:"ruleset_path"`
}

// Flex contains flex balance settings. Threshold values are hours.
type Flex struct {
	GreenHours         float64 `toml:"green_hours"`
	RedHours           float64 `toml:"red_hours"`
	IncludeMissingDays bool    `toml:"include_missing_days"`
	TrimToWorkWindow   bool    `toml:"trim_to_work_window"`
}

// Scheduler contains periodic evaluation settings.
type Scheduler struct {
	Enabled         bool `toml:"enabled"`
	IntervalMinutes int  `toml:"interval_minutes"`
	LookbackDays    int  `toml:"lookback_days"`
	Workers         int  `toml:"workers"`
}

// Logging contains logger settings.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "text" or "json"
}

// Config is the full service configuration.
type Config struct {
	Server     Server     `toml:"server"`
	Storage    Storage    `toml:"storage"`
	Compliance Compliance `toml:"compliance"`
	Flex       Flex       `toml:"flex"`
	Scheduler  Scheduler  `toml:"scheduler"`
	Logging    Logging    `toml:"logging"`
}

// Load parses path (if non-empty and present), applies .env and environment
// overrides and validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("open config: %w", err)
		default:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// CreateSample writes the annotated sample configuration to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// WorkWeek parses the configured working weekdays.
func (c *Config) WorkWeek() (generic.WorkWeek, error) {
	return generic.ParseWorkWeek(c.Compliance.WorkWeek)
}

// DefaultThresholds returns the system-wide traffic-light thresholds.
func (c *Config) DefaultThresholds() worktime.Thresholds {
	return worktime.SymmetricThresholds(
		decimal.NewFromFloat(c.Flex.GreenHours),
		decimal.NewFromFloat(c.Flex.RedHours),
	)
}
