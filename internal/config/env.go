package config

import (
	"fmt"
	"strconv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "VIDEOBRIDGE_"

type envBinding struct {
	key string
	set func(cfg *Config, v string) error
}

var envBindings = []envBinding{
	{"DEVICE", func(c *Config, v string) error { c.Capture.Device = v; return nil }},
	{"WIDTH", intSetter(func(c *Config) *int { return &c.Capture.Width })},
	{"HEIGHT", intSetter(func(c *Config) *int { return &c.Capture.Height })},
	{"FPS", floatSetter(func(c *Config) *float64 { return &c.Capture.FPS })},
	{"HOST_FPS", floatSetter(func(c *Config) *float64 { return &c.Host.FPS })},
	{"GPU", boolSetter(func(c *Config) *bool { return &c.Host.GPU })},
	{"DATA_DIR", func(c *Config, v string) error { c.Host.DataDir = v; return nil }},
	{"LOOP", boolSetter(func(c *Config) *bool { return &c.Movie.Loop })},
	{"SNAPSHOT_PATH", func(c *Config, v string) error { c.Snapshot.Path = v; return nil }},
	{"METRICS_ADDR", func(c *Config, v string) error { c.Metrics.Addr = v; return nil }},
	{"LOG_LEVEL", func(c *Config, v string) error { c.Logging.Level = v; return nil }},
	{"LOG_FORMAT", func(c *Config, v string) error { c.Logging.Format = v; return nil }},
}

// applyEnv overrides cfg from the environment. lookup is os.LookupEnv in
// production.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	for _, b := range envBindings {
		v, ok := lookup(EnvPrefix + b.key)
		if !ok || v == "" {
			continue
		}
		if err := b.set(cfg, v); err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, b.key, err)
		}
	}
	return nil
}

func intSetter(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func floatSetter(field func(*Config) *float64) func(*Config, string) error {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*field(c) = f
		return nil
	}
}

func boolSetter(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}
