// Package logging builds the zap loggers used across indicadores.
// One root logger is built from config; each subsystem asks for a named
// category logger, which is a no-op when the category is disabled.
package logging

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"indicadores/internal/config"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot    Category = "boot"    // Startup, config resolution
	CategoryAPI     Category = "api"     // Backend HTTP calls
	CategoryForm    Category = "form"    // Selection adapter state changes
	CategoryBatch   Category = "batch"   // Batch submissions
	CategoryWatch   Category = "watch"   // File watcher
	CategoryMetrics Category = "metrics" // Prometheus listener
)

// Loggers hands out category loggers derived from one root logger.
type Loggers struct {
	root *zap.Logger
	cfg  config.LoggingConfig

	mu     sync.Mutex
	byName map[Category]*zap.Logger
}

// Options adjust how New builds the root logger.
type Options struct {
	// Verbose forces debug level.
	Verbose bool
	// Interactive is set for the terminal form: without a log file nothing
	// may be written to the terminal, so logging is disabled.
	Interactive bool
}

// New builds the root logger from cfg.
func New(cfg config.LoggingConfig, opts Options) (*Loggers, error) {
	if opts.Interactive && strings.TrimSpace(cfg.File) == "" {
		return NewNop(), nil
	}

	zcfg := zap.NewProductionConfig()
	level, err := zapcore.ParseLevel(defaultString(cfg.Level, "info"))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	if opts.Verbose {
		level = zapcore.DebugLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.Encoding = defaultString(cfg.Format, "console")
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zcfg.Sampling = nil
	if cfg.File != "" {
		zcfg.OutputPaths = []string{cfg.File}
		zcfg.ErrorOutputPaths = []string{cfg.File}
	}

	root, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return FromLogger(root, cfg), nil
}

// FromLogger wraps an existing root logger.
func FromLogger(root *zap.Logger, cfg config.LoggingConfig) *Loggers {
	return &Loggers{
		root:   root,
		cfg:    cfg,
		byName: make(map[Category]*zap.Logger),
	}
}

// NewNop returns Loggers that discard everything.
func NewNop() *Loggers {
	return FromLogger(zap.NewNop(), config.LoggingConfig{})
}

// Root returns the uncategorized logger.
func (l *Loggers) Root() *zap.Logger { return l.root }

// Get returns the logger for category, or a no-op logger when the category
// is disabled in config.
func (l *Loggers) Get(category Category) *zap.Logger {
	if !l.cfg.IsCategoryEnabled(string(category)) {
		return zap.NewNop()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if lg, ok := l.byName[category]; ok {
		return lg
	}
	lg := l.root.Named(string(category))
	l.byName[category] = lg
	return lg
}

// Sync flushes buffered entries. Errors from syncing a terminal are ignored.
func (l *Loggers) Sync() error {
	if err := l.root.Sync(); err != nil && !isIgnorableSyncError(err) {
		return err
	}
	return nil
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "invalid argument") ||
		strings.Contains(msg, "inappropriate ioctl") ||
		strings.Contains(msg, "bad file descriptor")
}

func defaultString(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
