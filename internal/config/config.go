// Package config loads run configuration from an optional YAML file and
// environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/talgya/authorsim/internal/engine"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config is the full configuration of an authorsim process.
type Config struct {
	Seed                int64         `yaml:"seed"`
	Population          int           `yaml:"population"`
	GenerationLength    int           `yaml:"generation_length"`
	Fertility           int           `yaml:"fertility"`
	SurvivalRatio       float64       `yaml:"survival_ratio"`
	GenerationLimit     int           `yaml:"generation_limit"`
	Interval            time.Duration `yaml:"interval"`
	PauseEachGeneration bool          `yaml:"pause_each_generation"`

	Port         int      `yaml:"port"` // 0 disables the HTTP API
	AdminKey     string   `yaml:"admin_key"`
	CORSOrigins  []string `yaml:"cors_origins"`
	LogLevel     string   `yaml:"log_level"`
	RandomOrgKey string   `yaml:"random_org_key"`
}

// Default returns the classic run: 100 authors, 20 ticks per generation,
// 9 generations, one tick every 100ms.
func Default() Config {
	opts := engine.DefaultOptions()
	return Config{
		Seed:             42,
		Population:       opts.Population,
		GenerationLength: opts.GenerationLength,
		Fertility:        opts.Fertility,
		SurvivalRatio:    opts.SurvivalRatio,
		GenerationLimit:  opts.GenerationLimit,
		Interval:         engine.DefaultInterval,
		Port:             8080,
		LogLevel:         "info",
	}
}

// Load reads path (if non-empty) over the defaults, then applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := cfg.decode(data); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		// An empty document leaves the defaults alone.
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

// ApplyEnv overrides fields from environment variables looked up with
// getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	var err error
	if c.Seed, err = envInt64(getenv, "AUTHORSIM_SEED", c.Seed); err != nil {
		return err
	}
	if c.Population, err = envInt(getenv, "AUTHORSIM_POPULATION", c.Population); err != nil {
		return err
	}
	if c.GenerationLimit, err = envInt(getenv, "AUTHORSIM_LIMIT", c.GenerationLimit); err != nil {
		return err
	}
	if c.Port, err = envInt(getenv, "AUTHORSIM_PORT", c.Port); err != nil {
		return err
	}
	if v := getenv("AUTHORSIM_INTERVAL"); v != "" {
		d, perr := time.ParseDuration(v)
		if perr != nil {
			return fmt.Errorf("AUTHORSIM_INTERVAL: %w", perr)
		}
		c.Interval = d
	}
	c.AdminKey = envOrDefault(getenv, "AUTHORSIM_ADMIN_KEY", c.AdminKey)
	if v := getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = strings.Split(v, ",")
	}
	c.LogLevel = envOrDefault(getenv, "AUTHORSIM_LOG_LEVEL", c.LogLevel)
	c.RandomOrgKey = envOrDefault(getenv, "RANDOM_ORG_API_KEY", c.RandomOrgKey)
	return nil
}

// Validate checks the configuration for values the simulation cannot run
// with.
func (c Config) Validate() error {
	switch {
	case c.Population < 0:
		return fmt.Errorf("%w: population must be >= 0, got %d", ErrInvalid, c.Population)
	case c.GenerationLength < 2:
		// Tick 1 seeds, so a generation needs at least two ticks.
		return fmt.Errorf("%w: generation_length must be >= 2, got %d", ErrInvalid, c.GenerationLength)
	case c.Fertility < 0:
		return fmt.Errorf("%w: fertility must be >= 0, got %d", ErrInvalid, c.Fertility)
	case c.SurvivalRatio <= 0 || c.SurvivalRatio > 1:
		return fmt.Errorf("%w: survival_ratio must be in (0,1], got %v", ErrInvalid, c.SurvivalRatio)
	case c.GenerationLimit < 0:
		return fmt.Errorf("%w: generation_limit must be >= 0, got %d", ErrInvalid, c.GenerationLimit)
	case c.Interval <= 0:
		return fmt.Errorf("%w: interval must be positive, got %v", ErrInvalid, c.Interval)
	case c.Port < 0 || c.Port > 65535:
		return fmt.Errorf("%w: port out of range: %d", ErrInvalid, c.Port)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Options converts the configuration into simulation options.
func (c Config) Options() engine.Options {
	return engine.Options{
		Population:          c.Population,
		GenerationLength:    c.GenerationLength,
		Fertility:           c.Fertility,
		SurvivalRatio:       c.SurvivalRatio,
		GenerationLimit:     c.GenerationLimit,
		PauseEachGeneration: c.PauseEachGeneration,
	}
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("%w: log_level %q", ErrInvalid, c.LogLevel)
	}
	return lvl, nil
}

func envOrDefault(getenv func(string) string, key, fallback string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(getenv func(string) string, key string, fallback int) (int, error) {
	v := getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envInt64(getenv func(string) string, key string, fallback int64) (int64, error) {
	v := getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
