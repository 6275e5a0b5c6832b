package gstpipe

import (
	"log/slog"
	"time"

	"github.com/e7canasta/videobridge/internal/media"
)

// Backend builds GStreamer pipelines.
type Backend struct {
	log *slog.Logger
}

var _ media.Backend = (*Backend)(nil)

// NewBackend initialises GStreamer and returns a backend logging to log
// (slog.Default() when nil).
func NewBackend(log *slog.Logger) (*Backend, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := Init(); err != nil {
		return nil, err
	}
	return &Backend{log: log}, nil
}

// NewCapture assembles a capture chain for spec.
func (b *Backend) NewCapture(spec media.CaptureSpec) (media.Pipeline, error) {
	return buildCapture(b.log, spec)
}

// NewPlayback assembles a playbin chain for spec.
func (b *Backend) NewPlayback(spec media.PlaybackSpec) (media.Pipeline, error) {
	return buildPlayback(b.log, spec)
}

// Devices enumerates the devices of class.
func (b *Backend) Devices(class string) ([]media.Device, error) {
	start := time.Now()
	devs := enumerateDevices(class)
	b.log.Debug("gstpipe: devices enumerated",
		"class", class,
		"count", len(devs),
		"took", time.Since(start),
	)
	return devs, nil
}
