package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "videobridge.yaml", `
logging:
  level: debug
  modules:
    gstpipe: warn
capture:
  device: "pipeline:videotestsrc"
  width: 320
  height: 240
  fps: 15
movie:
  loop: true
  speed: -1
host:
  fps: 30
  data_dir: /srv/media
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Capture.Device != "pipeline:videotestsrc" || cfg.Capture.Width != 320 || cfg.Capture.FPS != 15 {
		t.Errorf("capture = %+v", cfg.Capture)
	}
	if !cfg.Movie.Loop || cfg.Movie.Speed != -1 {
		t.Errorf("movie = %+v", cfg.Movie)
	}
	if cfg.Movie.Volume != 1 {
		t.Errorf("volume default lost: %v", cfg.Movie.Volume)
	}
	if cfg.Host.DataDir != "/srv/media" || cfg.Host.FPS != 30 {
		t.Errorf("host = %+v", cfg.Host)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Modules["gstpipe"] != "warn" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("format default = %q", cfg.Logging.Format)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "videobridge.toml", `
[capture]
device = "Integrated Camera #2"
fps = 29.97

[snapshot]
path = "/tmp/frames.msgpack"
every = 10

[metrics]
addr = ":9108"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Capture.Device != "Integrated Camera #2" || cfg.Capture.FPS != 29.97 {
		t.Errorf("capture = %+v", cfg.Capture)
	}
	if cfg.Capture.Width != 640 || cfg.Capture.Height != 480 {
		t.Errorf("size defaults lost: %dx%d", cfg.Capture.Width, cfg.Capture.Height)
	}
	if cfg.Snapshot.Path != "/tmp/frames.msgpack" || cfg.Snapshot.Every != 10 {
		t.Errorf("snapshot = %+v", cfg.Snapshot)
	}
	if cfg.Metrics.Addr != ":9108" {
		t.Errorf("metrics addr = %q", cfg.Metrics.Addr)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{"unknown extension", "config.ini", "x=1", "unsupported config format"},
		{"bad yaml", "config.yaml", "capture: [", "failed to parse YAML"},
		{"bad toml", "config.toml", "[capture", "failed to parse TOML"},
		{"negative fps", "config.yaml", "capture:\n  fps: -1\n", "capture.fps"},
		{"half size", "config.yaml", "capture:\n  width: 320\n  height: 0\n", "set together"},
		{"volume range", "config.yaml", "movie:\n  volume: 2\n", "movie.volume"},
		{"log level", "config.yaml", "logging:\n  level: loud\n", "logging.level"},
		{"log format", "config.yaml", "logging:\n  format: xml\n", "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want it to contain %q", err, tt.want)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() of a missing file succeeded")
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") failed: %v", err)
	}
	if cfg.Capture.FPS != 30 || cfg.Host.FPS != 60 || cfg.Snapshot.Every != 30 {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"VIDEOBRIDGE_DEVICE":       "pipeline:videotestsrc",
		"VIDEOBRIDGE_WIDTH":        "1280",
		"VIDEOBRIDGE_HEIGHT":       "720",
		"VIDEOBRIDGE_FPS":          "60",
		"VIDEOBRIDGE_GPU":          "true",
		"VIDEOBRIDGE_LOG_LEVEL":    "debug",
		"VIDEOBRIDGE_METRICS_ADDR": ":9000",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	if err := applyEnv(cfg, lookup); err != nil {
		t.Fatalf("applyEnv() failed: %v", err)
	}
	if cfg.Capture.Device != "pipeline:videotestsrc" || cfg.Capture.Width != 1280 || cfg.Capture.Height != 720 || cfg.Capture.FPS != 60 {
		t.Errorf("capture = %+v", cfg.Capture)
	}
	if !cfg.Host.GPU || cfg.Logging.Level != "debug" || cfg.Metrics.Addr != ":9000" {
		t.Errorf("cfg = %+v", cfg)
	}

	env["VIDEOBRIDGE_WIDTH"] = "wide"
	err := applyEnv(Default(), lookup)
	if err == nil || !strings.Contains(err.Error(), "VIDEOBRIDGE_WIDTH") {
		t.Errorf("applyEnv() error = %v, want it to name the variable", err)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "videobridge.yaml", "capture:\n  device: from-file\n")
	t.Setenv("VIDEOBRIDGE_DEVICE", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Capture.Device != "from-env" {
		t.Errorf("device = %q, want from-env", cfg.Capture.Device)
	}
}

func TestApplyFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse([]string{"--fps", "12.5", "--loop", "--log-format", "json"}); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	cfg.Capture.Device = "from-file"
	cfg.Capture.Width = 320
	cfg.Capture.Height = 240
	if err := cfg.ApplyFlags(fs); err != nil {
		t.Fatalf("ApplyFlags() failed: %v", err)
	}

	if cfg.Capture.FPS != 12.5 || !cfg.Movie.Loop || cfg.Logging.Format != "json" {
		t.Errorf("changed flags not applied: %+v", cfg)
	}
	if cfg.Capture.Device != "from-file" || cfg.Capture.Width != 320 {
		t.Errorf("unchanged flags overwrote file values: %+v", cfg.Capture)
	}

	fs = pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse([]string{"--volume", "3"}); err != nil {
		t.Fatal(err)
	}
	if err := Default().ApplyFlags(fs); err == nil {
		t.Error("ApplyFlags() accepted volume 3")
	}
	t.Log("✅ flags override only when set")
}
