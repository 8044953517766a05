// Package config loads checker settings from YAML with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"checker/internal/checkfile"
	"checker/internal/sources"
)

// Config holds all checker configuration.
type Config struct {
	// CheckPrefix is the directive keyword, CHECK by default.
	CheckPrefix string `yaml:"check_prefix"`

	// Architectures are the names accepted in -START-ARCH suffixes.
	Architectures []string `yaml:"architectures"`

	// TargetArch selects arch-tagged test cases. Empty runs untagged ones only.
	TargetArch string `yaml:"target_arch"`

	// Debuggable selects -DEBUGGABLE test cases instead of the regular ones.
	Debuggable bool `yaml:"debuggable"`

	SourceExtensions []string `yaml:"source_extensions"`

	// Workers bounds concurrent test case runs. 0 means one per CPU.
	Workers int `yaml:"workers"`

	// PrintDump echoes the dump when a test case fails.
	PrintDump bool `yaml:"print_dump"`

	Conditions ConditionsConfig `yaml:"conditions"`
	Logging    LoggingConfig    `yaml:"logging"`
	History    HistoryConfig    `yaml:"history"`
	Watch      WatchConfig      `yaml:"watch"`
}

// ConditionsConfig configures CHECK-EVAL and CHECK-IF evaluation.
type ConditionsConfig struct {
	// AllowEnv permits os.environ.get(...) in conditions.
	AllowEnv bool `yaml:"allow_env"`
}

// HistoryConfig configures the run history database.
type HistoryConfig struct {
	Path string `yaml:"path"` // empty disables history
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	Debounce string `yaml:"debounce"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		CheckPrefix:      "CHECK",
		Architectures:    slices.Clone(checkfile.DefaultArchitectures),
		SourceExtensions: slices.Clone(sources.DefaultExtensions),
		PrintDump:        true,
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
		Watch: WatchConfig{
			Debounce: "300ms",
		},
	}
}

// Load reads the config at path. A missing file yields the defaults.
// Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to path as YAML.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("CHECKER_PREFIX"); v != "" {
		c.CheckPrefix = v
	}
	if v := os.Getenv("CHECKER_ARCH"); v != "" {
		c.TargetArch = v
	}
	if v := os.Getenv("CHECKER_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid CHECKER_WORKERS %q: %w", v, err)
		}
		c.Workers = n
	}
	if v := os.Getenv("CHECKER_HISTORY_DB"); v != "" {
		c.History.Path = v
	}
	if v := os.Getenv("CHECKER_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("CHECKER_ALLOW_ENV"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid CHECKER_ALLOW_ENV %q: %w", v, err)
		}
		c.Conditions.AllowEnv = b
	}
	return nil
}

// GetWatchDebounce returns the watch debounce interval.
func (c *Config) GetWatchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil {
		return 300 * time.Millisecond
	}
	return d
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.CheckPrefix) == "" {
		return fmt.Errorf("check_prefix must not be empty")
	}
	if strings.ContainsAny(c.CheckPrefix, " \t:") {
		return fmt.Errorf("check_prefix %q must not contain whitespace or ':'", c.CheckPrefix)
	}
	if len(c.Architectures) == 0 {
		return fmt.Errorf("architectures must not be empty")
	}
	if c.TargetArch != "" && !slices.Contains(c.Architectures, c.TargetArch) {
		return fmt.Errorf("target_arch %q is not one of %v", c.TargetArch, c.Architectures)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	for _, ext := range c.SourceExtensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("source extension %q must start with '.'", ext)
		}
	}
	if _, err := time.ParseDuration(c.Watch.Debounce); c.Watch.Debounce != "" && err != nil {
		return fmt.Errorf("invalid watch.debounce: %w", err)
	}
	return nil
}

// ParserOptions returns the annotation parser settings.
func (c *Config) ParserOptions() checkfile.Options {
	return checkfile.Options{
		Prefix:        c.CheckPrefix,
		Architectures: c.Architectures,
		TargetArch:    c.TargetArch,
	}
}
