// Package logging provides categorized zap loggers for the checker.
// Each subsystem logs under its own category so output can be filtered by
// logger name. Until Initialize is called every logger is a no-op.
package logging

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot    Category = "boot"    // CLI startup, config loading
	CategoryParse   Category = "parse"   // Checker annotation parsing
	CategoryDump    Category = "dump"    // C1visualizer dump parsing
	CategoryMatch   Category = "match"   // Match engine and runner
	CategoryReport  Category = "report"  // Reporter output
	CategoryWatch   Category = "watch"   // File watcher
	CategoryHistory Category = "history" // Run history store
)

// Options mirrors the relevant parts of config.LoggingConfig
// to avoid circular imports
type Options struct {
	Level  string // debug, info, warn, error
	Format string // console, json
	Quiet  bool   // forces error level
}

var (
	mu      sync.RWMutex
	base    = zap.NewNop()
	loggers = make(map[Category]*zap.SugaredLogger)
)

// Initialize builds the process-wide logger. Logs go to stderr so they never
// interleave with the reporter's stdout stream.
func Initialize(opts Options) error {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return err
	}
	if opts.Quiet {
		level = zapcore.ErrorLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	cfg.Sampling = nil

	switch strings.ToLower(opts.Format) {
	case "", "console", "text":
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	case "json":
		cfg.Encoding = "json"
	default:
		return fmt.Errorf("unknown log format %q", opts.Format)
	}

	logger, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	Set(logger)
	return nil
}

// Set replaces the base logger and drops cached category loggers.
// Tests use it to install an observer core.
func Set(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	mu.Lock()
	defer mu.Unlock()
	base = logger
	loggers = make(map[Category]*zap.SugaredLogger)
}

// Get returns (or creates) a logger for the given category.
func Get(category Category) *zap.SugaredLogger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()

	// Double-check after acquiring write lock
	if l, ok := loggers[category]; ok {
		return l
	}
	l := base.Named(string(category)).Sugar()
	loggers[category] = l
	return l
}

// Sync flushes buffered entries.
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	return base.Sync()
}

func parseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// Convenience helpers for the busiest categories.

// Parse logs a debug message under the parse category.
func Parse(format string, args ...interface{}) {
	Get(CategoryParse).Debugf(format, args...)
}

// Dump logs a debug message under the dump category.
func Dump(format string, args ...interface{}) {
	Get(CategoryDump).Debugf(format, args...)
}

// Match logs a debug message under the match category.
func Match(format string, args ...interface{}) {
	Get(CategoryMatch).Debugf(format, args...)
}
