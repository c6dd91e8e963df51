// Package logging provides config-driven categorized logging for the
// succession tool on top of zap. Every subsystem logs through its category
// so noisy areas (photo fetches, table fills) can be silenced from config.
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
	CategoryBoot     Category = "boot"     // Startup, config
	CategoryDeck     Category = "deck"     // Deck assembly
	CategoryTable    Category = "table"    // Table filling
	CategoryClone    Category = "clone"    // Slide cloning
	CategoryPhoto    Category = "photo"    // Photo fetch and circular crop
	CategoryRepair   Category = "repair"   // Repair pass
	CategoryTemplate Category = "template" // Template loading and watching
	CategoryStore    Category = "store"    // sqlite store
	CategoryHTTP     Category = "http"     // HTTP surface
)

// Options mirrors config.LoggingConfig to avoid an import cycle.
type Options struct {
	Level      string
	Format     string // console, json
	File       string
	AuditFile  string
	Categories map[string]bool
}

var (
	mu         sync.RWMutex
	base       = zap.NewNop()
	categories map[string]bool
	loggers    = make(map[Category]*zap.SugaredLogger)
)

// Initialize builds the root zap logger from options and installs it.
func Initialize(opts Options) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(normalizeLevel(opts.Level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}

	var cfg zap.Config
	if strings.EqualFold(opts.Format, "json") {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	cfg.Level = level
	cfg.OutputPaths = []string{"stderr"}
	if opts.File != "" {
		cfg.OutputPaths = append(cfg.OutputPaths, opts.File)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	SetLogger(logger, opts.Categories)
	if err := InitAudit(opts.AuditFile); err != nil {
		return nil, err
	}
	return logger, nil
}

func normalizeLevel(level string) string {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "":
		return "info"
	case "warning":
		return "warn"
	default:
		return strings.ToLower(strings.TrimSpace(level))
	}
}

// SetLogger installs an existing zap logger as the root, e.g. a test
// observer. A nil category map enables every category.
func SetLogger(logger *zap.Logger, cats map[string]bool) {
	if logger == nil {
		logger = zap.NewNop()
	}
	mu.Lock()
	defer mu.Unlock()
	base = logger
	categories = cats
	loggers = make(map[Category]*zap.SugaredLogger)
}

// Reset restores the no-op logger.
func Reset() {
	SetLogger(nil, nil)
}

// Root returns the installed root logger.
func Root() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// IsCategoryEnabled returns whether a specific category is enabled.
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	if categories == nil {
		return true
	}
	enabled, exists := categories[string(category)]
	if !exists {
		return true // Enable by default if not specified
	}
	return enabled
}

var nop = zap.NewNop().Sugar()

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if the category is disabled.
func Get(category Category) *zap.SugaredLogger {
	if !IsCategoryEnabled(category) {
		return nop
	}

	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	l := base.Named(string(category)).Sugar()
	loggers[category] = l
	return l
}

// Sync flushes the root logger.
func Sync() {
	_ = Root().Sync()
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// These are no-ops if the category is disabled
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Infof(format, args...)
}

// Deck logs to the deck category
func Deck(format string, args ...interface{}) {
	Get(CategoryDeck).Infof(format, args...)
}

// DeckDebug logs debug to the deck category
func DeckDebug(format string, args ...interface{}) {
	Get(CategoryDeck).Debugf(format, args...)
}

// TableDebug logs debug to the table category
func TableDebug(format string, args ...interface{}) {
	Get(CategoryTable).Debugf(format, args...)
}

// Clone logs to the clone category
func Clone(format string, args ...interface{}) {
	Get(CategoryClone).Infof(format, args...)
}

// Photo logs to the photo category
func Photo(format string, args ...interface{}) {
	Get(CategoryPhoto).Infof(format, args...)
}

// PhotoDebug logs debug to the photo category
func PhotoDebug(format string, args ...interface{}) {
	Get(CategoryPhoto).Debugf(format, args...)
}

// Repair logs to the repair category
func Repair(format string, args ...interface{}) {
	Get(CategoryRepair).Infof(format, args...)
}

// Template logs to the template category
func Template(format string, args ...interface{}) {
	Get(CategoryTemplate).Infof(format, args...)
}

// TemplateDebug logs debug to the template category
func TemplateDebug(format string, args ...interface{}) {
	Get(CategoryTemplate).Debugf(format, args...)
}

// Store logs to the store category
func Store(format string, args ...interface{}) {
	Get(CategoryStore).Infof(format, args...)
}

// StoreDebug logs debug to the store category
func StoreDebug(format string, args ...interface{}) {
	Get(CategoryStore).Debugf(format, args...)
}

// HTTP logs to the http category
func HTTP(format string, args ...interface{}) {
	Get(CategoryHTTP).Infof(format, args...)
}
