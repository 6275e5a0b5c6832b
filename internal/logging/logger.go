// Package logging configures log/slog for the videobridge CLI: one global
// level plus optional per-module levels, text or JSON output.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Config selects the global level, output format and per-module overrides.
type Config struct {
	Level   string            `yaml:"level" toml:"level"`
	Format  string            `yaml:"format" toml:"format"`
	Modules map[string]string `yaml:"modules" toml:"modules"`
}

var (
	mutex           sync.RWMutex
	globalConfig    Config
	globalLevelVar            = &slog.LevelVar{}
	moduleLoggers             = make(map[string]*slog.Logger)
	moduleLevelVars           = make(map[string]*slog.LevelVar)
	output          io.Writer = os.Stderr
)

// Initialize applies config and installs the default logger. Module loggers
// created earlier pick up the new levels and format.
func Initialize(config Config) {
	InitializeTo(os.Stderr, config)
}

// InitializeTo is Initialize writing to w.
func InitializeTo(w io.Writer, config Config) {
	mutex.Lock()
	defer mutex.Unlock()

	globalConfig = config
	output = w
	globalLevelVar.Set(levelOr(config.Level, slog.LevelInfo))

	for module, levelVar := range moduleLevelVars {
		levelVar.Set(moduleLevel(module))
		moduleLoggers[module] = slog.New(createHandler(config.Format, levelVar)).With("module", module)
	}

	slog.SetDefault(slog.New(createHandler(config.Format, globalLevelVar)))
}

// GetLogger returns the logger for module, creating it if needed.
func GetLogger(module string) *slog.Logger {
	mutex.RLock()
	if logger, ok := moduleLoggers[module]; ok {
		mutex.RUnlock()
		return logger
	}
	mutex.RUnlock()

	mutex.Lock()
	defer mutex.Unlock()
	if logger, ok := moduleLoggers[module]; ok {
		return logger
	}

	levelVar := &slog.LevelVar{}
	levelVar.Set(moduleLevel(module))
	logger := slog.New(createHandler(globalConfig.Format, levelVar)).With("module", module)
	moduleLoggers[module] = logger
	moduleLevelVars[module] = levelVar
	return logger
}

// SetLevel changes the level of module at runtime; an empty module changes
// the global level. Returns false when level does not parse.
func SetLevel(module, level string) bool {
	parsed := parseLevel(level)
	if parsed == nil {
		return false
	}

	mutex.Lock()
	defer mutex.Unlock()
	if module == "" {
		globalLevelVar.Set(*parsed)
		return true
	}
	if lv, ok := moduleLevelVars[module]; ok {
		lv.Set(*parsed)
	}
	if globalConfig.Modules == nil {
		globalConfig.Modules = make(map[string]string)
	}
	globalConfig.Modules[module] = level
	return true
}

// moduleLevel must be called with mutex held.
func moduleLevel(module string) slog.Level {
	level := levelOr(globalConfig.Level, slog.LevelInfo)
	if s, ok := globalConfig.Modules[module]; ok {
		level = levelOr(s, level)
	}
	return level
}

func createHandler(format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(output, opts)
	}
	return slog.NewTextHandler(output, opts)
}

func levelOr(s string, fallback slog.Level) slog.Level {
	if l := parseLevel(s); l != nil {
		return *l
	}
	return fallback
}

// parseLevel converts a level name to slog.Level, nil when unknown.
func parseLevel(level string) *slog.Level {
	var l slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		return nil
	}
	return &l
}

// ValidLevel reports whether level names a known level.
func ValidLevel(level string) bool { return parseLevel(level) != nil }
