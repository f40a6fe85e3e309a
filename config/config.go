// Package config loads server configuration from defaults, an optional YAML
// file and PAYCLOCK_* environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/warp/payclock/generic"
)

// Config defines server configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	DB      DBConfig      `yaml:"db"`
	Log     LogConfig     `yaml:"log"`
	Clock   ClockConfig   `yaml:"clock"`
	Periods PeriodsConfig `yaml:"periods"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// ClockConfig names the reference zone for calendar-day decisions.
type ClockConfig struct {
	Timezone string `yaml:"timezone"`
}

// PeriodsConfig drives automatic period finalization.
type PeriodsConfig struct {
	AutoClose     bool          `yaml:"auto_close"`
	LengthDays    int           `yaml:"length_days"`
	Anchor        string        `yaml:"anchor"`
	CheckInterval time.Duration `yaml:"check_interval"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		DB: DBConfig{
			Path: "payclock.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Clock: ClockConfig{
			Timezone: "UTC",
		},
		Periods: PeriodsConfig{
			LengthDays:    14,
			CheckInterval: time.Hour,
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("PAYCLOCK_CONFIG_PATH"); path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("PAYCLOCK_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("PAYCLOCK_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid PAYCLOCK_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if dbPath := os.Getenv("PAYCLOCK_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("PAYCLOCK_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if tz := os.Getenv("PAYCLOCK_TIMEZONE"); tz != "" {
		cfg.Clock.Timezone = tz
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile merges the YAML file at path into cfg.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// Validate checks the fields that cannot be checked by the YAML decoder.
func (c Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Periods.LengthDays <= 0 {
		return fmt.Errorf("periods.length_days must be positive, got %d", c.Periods.LengthDays)
	}
	if c.Periods.CheckInterval <= 0 {
		return fmt.Errorf("periods.check_interval must be positive, got %s", c.Periods.CheckInterval)
	}
	if c.Periods.AutoClose {
		if _, err := c.Calendar(); err != nil {
			return err
		}
	}
	return nil
}

// Location resolves clock.timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Clock.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Clock.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid clock.timezone %q: %w", c.Clock.Timezone, err)
	}
	return loc, nil
}

// Calendar builds the pay period calendar from periods.anchor and periods.length_days.
func (c Config) Calendar() (generic.PeriodCalendar, error) {
	if c.Periods.Anchor == "" {
		return generic.PeriodCalendar{}, fmt.Errorf("periods.anchor is required when periods.auto_close is set")
	}
	anchor, err := generic.ParseDate(c.Periods.Anchor)
	if err != nil {
		return generic.PeriodCalendar{}, fmt.Errorf("invalid periods.anchor: %w", err)
	}
	return generic.PeriodCalendar{Anchor: anchor, LengthDays: c.Periods.LengthDays}, nil
}
