// Package config loads daemon and client settings from a YAML file with
// TEMPO_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Timer scope modes.
const (
	ScopeProject = "project"
	ScopeAccount = "account"
)

// Config is the daemon and client configuration, read from YAML and the
// environment.
type Config struct {
	LogLevel string         `yaml:"log_level" env:"TEMPO_LOG_LEVEL" env-default:"INFO"`
	HTTP     HTTPConfig     `yaml:"http"`
	DB       DBConfig       `yaml:"db"`
	Timer    TimerConfig    `yaml:"timer"`
	Watchdog WatchdogConfig `yaml:"watchdog"`
}

// HTTPConfig sets where the daemon listens and how it authenticates.
type HTTPConfig struct {
	Address      string        `yaml:"address" env:"TEMPO_ADDRESS" env-default:"127.0.0.1:7466"`
	APIToken     string        `yaml:"api_token" env:"TEMPO_API_TOKEN"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"TEMPO_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"TEMPO_WRITE_TIMEOUT" env-default:"30s"`
}

// DBConfig selects the database.
type DBConfig struct {
	// DSN is a SQLite file path or a postgres:// URL. Empty means
	// tempo.db in the data directory.
	DSN string `yaml:"dsn" env:"TEMPO_DB_DSN"`
}

// TimerConfig sets the single-timer scope and the display refresh rate.
type TimerConfig struct {
	Scope        string        `yaml:"scope" env:"TEMPO_TIMER_SCOPE" env-default:"project"`
	TickInterval time.Duration `yaml:"tick_interval" env:"TEMPO_TICK_INTERVAL" env-default:"1s"`
}

// WatchdogConfig controls automatic stopping of forgotten timers.
// A zero MaxSession disables it.
type WatchdogConfig struct {
	Interval   time.Duration `yaml:"interval" env:"TEMPO_WATCHDOG_INTERVAL" env-default:"1m"`
	MaxSession time.Duration `yaml:"max_session" env:"TEMPO_WATCHDOG_MAX_SESSION" env-default:"0s"`
}

// DataDir returns ~/.tempo, falling back to the working directory when the
// home directory is unknown.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tempo"
	}
	return filepath.Join(home, ".tempo")
}

// DefaultPath is the config file used when --config is not given.
func DefaultPath() string {
	return filepath.Join(DataDir(), "config.yaml")
}

// Load reads configPath, or only the environment when the path is empty or
// the file does not exist.
func Load(configPath string) (Config, error) {
	var cfg Config

	if configPath == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return cfg, fmt.Errorf("read env: %w", err)
		}
	} else if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		var pe *os.PathError
		if !errors.As(err, &pe) {
			return cfg, fmt.Errorf("read config %q: %w", configPath, err)
		}
		cfg = Config{}
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return cfg, fmt.Errorf("read env: %w", err)
		}
	}

	if cfg.DB.DSN == "" {
		cfg.DB.DSN = filepath.Join(DataDir(), "tempo.db")
	}
	cfg.LogLevel = strings.ToUpper(cfg.LogLevel)
	cfg.Timer.Scope = strings.ToLower(cfg.Timer.Scope)

	return cfg, cfg.Validate()
}

// Validate checks values the loader cannot express as defaults.
func (c Config) Validate() error {
	switch c.LogLevel {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	if c.HTTP.Address == "" {
		return errors.New("http.address is required")
	}
	if c.Timer.Scope != ScopeProject && c.Timer.Scope != ScopeAccount {
		return fmt.Errorf("invalid timer.scope %q: want %s or %s", c.Timer.Scope, ScopeProject, ScopeAccount)
	}
	if c.Timer.TickInterval <= 0 {
		return errors.New("timer.tick_interval must be positive")
	}
	if c.Watchdog.MaxSession < 0 {
		return errors.New("watchdog.max_session must not be negative")
	}
	if c.Watchdog.MaxSession > 0 && c.Watchdog.Interval <= 0 {
		return errors.New("watchdog.interval must be positive when max_session is set")
	}
	return nil
}
