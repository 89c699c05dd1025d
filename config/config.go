// Package config holds the settings of the cinder command, read from a YAML
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/ezachrisen/cinder/predicates"
	"gopkg.in/yaml.v3"
)

// Config is the complete configuration of a checking run.
type Config struct {
	Rules      string          `yaml:"rules"`
	Changes    string          `yaml:"changes"`
	Check      CheckConfig     `yaml:"check"`
	Log        LogConfig       `yaml:"log"`
	Predicates PredicateConfig `yaml:"predicates"`
	Metrics    MetricsConfig   `yaml:"metrics"`
}

// CheckConfig controls how changes are batched and rules checked.
type CheckConfig struct {
	// BatchSize is the number of changes applied between checks.
	BatchSize int `yaml:"batch_size"`
	// Parallelism limits the rules checked at the same time; 0 is unlimited.
	Parallelism int `yaml:"parallelism"`
	// Verbose prints the witness table of failing rules.
	Verbose bool `yaml:"verbose"`
}

// LogConfig selects the slog handler of the command.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`
	// Format is text or json.
	Format string `yaml:"format"`
}

// PredicateConfig configures the predicate library rules are checked with.
type PredicateConfig struct {
	Bounds predicates.Options `yaml:"bounds"`
	// CEL maps predicate names to CEL expressions. CEL predicates take
	// precedence over built-in predicates with the same name.
	CEL map[string]string `yaml:"cel"`
	// CacheSize is the number of predicate results kept; 0 disables the cache.
	CacheSize int `yaml:"cache_size"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address for the Prometheus /metrics endpoint.
	// Empty disables the endpoint.
	Addr string `yaml:"addr"`
}

// DefaultConfig returns the settings used when neither the file nor the
// environment sets a value.
func DefaultConfig() *Config {
	return &Config{
		Check: CheckConfig{
			BatchSize: 1,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
		Predicates: PredicateConfig{
			Bounds:    predicates.DefaultOptions(),
			CacheSize: 4096,
		},
	}
}

// Load reads the file at path over the defaults and applies CINDER_*
// environment overrides. An empty path loads the defaults only.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	if err := applyEnvironment(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvironment(cfg *Config) error {
	if v := os.Getenv("CINDER_RULES"); v != "" {
		cfg.Rules = v
	}
	if v := os.Getenv("CINDER_CHANGES"); v != "" {
		cfg.Changes = v
	}
	if v := os.Getenv("CINDER_BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CINDER_BATCH_SIZE: %w", err)
		}
		cfg.Check.BatchSize = n
	}
	if v := os.Getenv("CINDER_PARALLELISM"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CINDER_PARALLELISM: %w", err)
		}
		cfg.Check.Parallelism = n
	}
	if v := os.Getenv("CINDER_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("CINDER_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("CINDER_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	return nil
}

// Validate checks the settings for values the command cannot use.
func (c *Config) Validate() error {
	var errs []error
	if c.Check.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("check.batch_size must be at least 1, is %d", c.Check.BatchSize))
	}
	if c.Check.Parallelism < 0 {
		errs = append(errs, fmt.Errorf("check.parallelism must not be negative, is %d", c.Check.Parallelism))
	}
	if c.Predicates.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("predicates.cache_size must not be negative, is %d", c.Predicates.CacheSize))
	}
	if err := c.Predicates.Bounds.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("predicates.bounds: %w", err))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, is %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// Logger builds a logger writing to w with the configured level and format.
func (l LogConfig) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(l.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(l.Format) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level %q: %w", s, err)
	}
	return level, nil
}
