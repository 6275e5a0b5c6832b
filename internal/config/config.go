// Package config loads the videobridge CLI configuration.
//
// Precedence is CLI flags > VIDEOBRIDGE_* environment > config file >
// defaults. The file format follows the extension: .yaml/.yml or .toml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/e7canasta/videobridge/internal/logging"
)

// Config is the complete CLI configuration.
type Config struct {
	Logging  logging.Config `yaml:"logging" toml:"logging"`
	Capture  CaptureConfig  `yaml:"capture" toml:"capture"`
	Movie    MovieConfig    `yaml:"movie" toml:"movie"`
	Host     HostConfig     `yaml:"host" toml:"host"`
	Snapshot SnapshotConfig `yaml:"snapshot" toml:"snapshot"`
	Metrics  MetricsConfig  `yaml:"metrics" toml:"metrics"`
}

// CaptureConfig contains capture device settings
type CaptureConfig struct {
	Device string  `yaml:"device" toml:"device"` // "", device name, or "pipeline:<launch>"
	Width  int     `yaml:"width" toml:"width"`
	Height int     `yaml:"height" toml:"height"`
	FPS    float64 `yaml:"fps" toml:"fps"`
}

// MovieConfig contains movie playback settings
type MovieConfig struct {
	Loop   bool    `yaml:"loop" toml:"loop"`
	Speed  float64 `yaml:"speed" toml:"speed"`
	Volume float64 `yaml:"volume" toml:"volume"`
}

// HostConfig contains the headless host render loop settings
type HostConfig struct {
	FPS            float64 `yaml:"fps" toml:"fps"` // render loop rate
	GPU            bool    `yaml:"gpu" toml:"gpu"`
	DataDir        string  `yaml:"data_dir" toml:"data_dir"`
	StatsIntervalS int     `yaml:"stats_interval_s" toml:"stats_interval_s"` // 0 disables stats output
}

// SnapshotConfig controls msgpack frame snapshots
type SnapshotConfig struct {
	Path  string `yaml:"path" toml:"path"` // empty disables snapshots
	Every int    `yaml:"every" toml:"every"`
}

// MetricsConfig controls the prometheus endpoint
type MetricsConfig struct {
	Addr string `yaml:"addr" toml:"addr"` // empty disables the endpoint
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Logging: logging.Config{Level: "info", Format: "text"},
		Capture: CaptureConfig{Width: 640, Height: 480, FPS: 30},
		Movie:   MovieConfig{Speed: 1, Volume: 1},
		Host:    HostConfig{FPS: 60, StatsIntervalS: 5},
		Snapshot: SnapshotConfig{
			Every: 30,
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := decode(path, data, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse TOML config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config format %q (use .yaml, .yml or .toml)", ext)
	}
	return nil
}
