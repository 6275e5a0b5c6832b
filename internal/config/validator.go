package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/e7canasta/videobridge/internal/logging"
)

// Validate checks the configuration and fills defaults for unset values.
func Validate(cfg *Config) error {
	// Logging
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if !logging.ValidLevel(cfg.Logging.Level) {
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", cfg.Logging.Level)
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "":
		cfg.Logging.Format = "text"
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not one of text, json", cfg.Logging.Format)
	}

	// Capture
	if cfg.Capture.Width < 0 || cfg.Capture.Height < 0 {
		return fmt.Errorf("capture size must not be negative, got %dx%d", cfg.Capture.Width, cfg.Capture.Height)
	}
	if (cfg.Capture.Width == 0) != (cfg.Capture.Height == 0) {
		return fmt.Errorf("capture.width and capture.height must be set together")
	}
	if cfg.Capture.Width == 0 {
		cfg.Capture.Width, cfg.Capture.Height = 640, 480
	}
	if !finite(cfg.Capture.FPS) || cfg.Capture.FPS < 0 {
		return fmt.Errorf("capture.fps must be >= 0, got %v", cfg.Capture.FPS)
	}

	// Movie
	if !finite(cfg.Movie.Speed) {
		return fmt.Errorf("movie.speed must be finite")
	}
	if cfg.Movie.Speed == 0 {
		cfg.Movie.Speed = 1
	}
	if !finite(cfg.Movie.Volume) || cfg.Movie.Volume < 0 || cfg.Movie.Volume > 1 {
		return fmt.Errorf("movie.volume must be in [0, 1], got %v", cfg.Movie.Volume)
	}

	// Host
	if !finite(cfg.Host.FPS) || cfg.Host.FPS < 0 {
		return fmt.Errorf("host.fps must be > 0, got %v", cfg.Host.FPS)
	}
	if cfg.Host.FPS == 0 {
		cfg.Host.FPS = 60
	}
	if cfg.Host.StatsIntervalS < 0 {
		return fmt.Errorf("host.stats_interval_s must be >= 0")
	}

	// Snapshot
	if cfg.Snapshot.Every < 0 {
		return fmt.Errorf("snapshot.every must be >= 0")
	}
	if cfg.Snapshot.Every == 0 {
		cfg.Snapshot.Every = 30
	}

	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
