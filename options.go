package videobridge

import (
	"log/slog"

	"github.com/e7canasta/videobridge/internal/events"
)

// EventBus carries lifecycle and pipeline notifications (see internal/events).
type EventBus = events.Bus

// NewEventBus creates an event bus to share between sources.
func NewEventBus() *EventBus { return events.New() }

const (
	defaultCaptureWidth  = 640
	defaultCaptureHeight = 480
	defaultCaptureFPS    = 30
)

// Option configures a source at construction.
type Option func(*options)

type options struct {
	width         int
	height        int
	device        string
	fps           float64
	backend       Backend
	logger        *slog.Logger
	bus           *EventBus
	useBufferSink bool
	handler       func(Source) error
	id            string
}

func defaultOptions() options {
	return options{
		width:         defaultCaptureWidth,
		height:        defaultCaptureHeight,
		fps:           defaultCaptureFPS,
		useBufferSink: true,
	}
}

// WithSize requests a capture resolution (default 640x480).
func WithSize(width, height int) Option {
	return func(o *options) { o.width, o.height = width, height }
}

// WithDevice selects the capture device: a display name, a raw device name, a
// disambiguated "<name> #k", or "pipeline:<launch>" for a custom pipeline.
func WithDevice(device string) Option {
	return func(o *options) { o.device = device }
}

// WithFrameRate requests a capture frame rate (default 30). Zero is accepted
// only for custom pipelines, where it leaves the rate unconstrained.
func WithFrameRate(fps float64) Option {
	return func(o *options) { o.fps = fps }
}

// WithBackend replaces the GStreamer backend.
func WithBackend(b Backend) Option {
	return func(o *options) { o.backend = b }
}

// WithLogger sets the source logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithEventBus publishes the source's lifecycle and pipeline events on bus.
func WithEventBus(bus *EventBus) Option {
	return func(o *options) { o.bus = bus }
}

// WithBufferSink enables or disables the buffer sink protocol (default
// enabled). Disabled sources stay on the CPU pixel path even on GPU hosts.
func WithBufferSink(enabled bool) Option {
	return func(o *options) { o.useBufferSink = enabled }
}

// WithEventHandler installs the frame callback, taking precedence over any
// handler interface the host implements.
func WithEventHandler(fn func(Source) error) Option {
	return func(o *options) { o.handler = fn }
}

// WithID sets the source identifier used in logs, events and metrics
// (default: a random UUID).
func WithID(id string) Option {
	return func(o *options) { o.id = id }
}
