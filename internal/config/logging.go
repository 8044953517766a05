package config

import "checker/internal/logging"

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level,omitempty"`   // debug, info, warn, error
	Format string `yaml:"format" json:"format,omitempty"` // console, json
}

// Options converts the config for logging.Initialize. quiet forces error level.
func (c LoggingConfig) Options(quiet bool) logging.Options {
	return logging.Options{Level: c.Level, Format: c.Format, Quiet: quiet}
}
