package config

import (
	"github.com/spf13/pflag"
)

// RegisterFlags adds the configuration flags to fs. Their defaults are only
// shown in help: ApplyFlags copies a flag into the config only when it was
// set on the command line.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.StringP("device", "d", d.Capture.Device, `capture device name, or "pipeline:<launch>"`)
	fs.Int("width", d.Capture.Width, "capture width")
	fs.Int("height", d.Capture.Height, "capture height")
	fs.Float64("fps", d.Capture.FPS, "capture frame rate")
	fs.Float64("host-fps", d.Host.FPS, "host render loop rate")
	fs.Bool("gpu", d.Host.GPU, "consume frames through a buffer sink")
	fs.String("data-dir", d.Host.DataDir, "directory movies are looked up in first")
	fs.Int("stats-interval", d.Host.StatsIntervalS, "seconds between stats lines, 0 disables")
	fs.Bool("loop", d.Movie.Loop, "loop the movie")
	fs.Float64("speed", d.Movie.Speed, "movie playback rate, negative plays backwards")
	fs.Float64("volume", d.Movie.Volume, "movie volume in [0, 1]")
	fs.String("snapshot", d.Snapshot.Path, "write msgpack frame snapshots to this file")
	fs.Int("snapshot-every", d.Snapshot.Every, "snapshot every Nth read frame")
	fs.String("metrics-addr", d.Metrics.Addr, "serve prometheus metrics on this address")
	fs.String("log-level", d.Logging.Level, "log level (debug, info, warn, error)")
	fs.String("log-format", d.Logging.Format, "log format (text, json)")
}

// ApplyFlags copies every flag changed on the command line into cfg and
// validates the result. Flags not registered on fs are skipped.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) error {
	changed := func(name string) bool {
		f := fs.Lookup(name)
		return f != nil && f.Changed
	}

	var err error
	str := func(name string, dst *string) {
		if err == nil && changed(name) {
			*dst, err = fs.GetString(name)
		}
	}
	integer := func(name string, dst *int) {
		if err == nil && changed(name) {
			*dst, err = fs.GetInt(name)
		}
	}
	float := func(name string, dst *float64) {
		if err == nil && changed(name) {
			*dst, err = fs.GetFloat64(name)
		}
	}
	boolean := func(name string, dst *bool) {
		if err == nil && changed(name) {
			*dst, err = fs.GetBool(name)
		}
	}

	str("device", &c.Capture.Device)
	integer("width", &c.Capture.Width)
	integer("height", &c.Capture.Height)
	float("fps", &c.Capture.FPS)
	float("host-fps", &c.Host.FPS)
	boolean("gpu", &c.Host.GPU)
	str("data-dir", &c.Host.DataDir)
	integer("stats-interval", &c.Host.StatsIntervalS)
	boolean("loop", &c.Movie.Loop)
	float("speed", &c.Movie.Speed)
	float("volume", &c.Movie.Volume)
	str("snapshot", &c.Snapshot.Path)
	integer("snapshot-every", &c.Snapshot.Every)
	str("metrics-addr", &c.Metrics.Addr)
	str("log-level", &c.Logging.Level)
	str("log-format", &c.Logging.Format)
	if err != nil {
		return err
	}
	return Validate(c)
}
