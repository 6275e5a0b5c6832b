package videobridge

import (
	"errors"
	"fmt"
	"time"

	"github.com/e7canasta/videobridge/internal/devices"
	"github.com/e7canasta/videobridge/internal/events"
	"github.com/e7canasta/videobridge/internal/media"
)

// Capture delivers frames from a capture device or a custom pipeline.
type Capture struct {
	*source
	device Descriptor
}

// NewCapture builds a capture source. host may be nil for headless use.
//
// The device (WithDevice) is either empty for the platform default, a
// "pipeline:<launch>" custom pipeline, or a device name as listed by
// ListDevices. The pipeline is assembled but not started.
func NewCapture(host Host, opts ...Option) (*Capture, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	// Fail-fast validation
	if o.width <= 0 || o.height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, o.width, o.height)
	}
	if !validFrameRate(o.fps) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFramerate, o.fps)
	}
	desc := ParseDevice(o.device)
	if _, custom := desc.(CustomPipeline); !custom && o.fps == 0 {
		return nil, fmt.Errorf("%w: device capture needs a concrete frame rate", ErrInvalidFramerate)
	}
	if cp, ok := desc.(CustomPipeline); ok && cp.Launch == "" {
		return nil, fmt.Errorf("%w: empty custom pipeline", ErrPipelineParse)
	}

	backend, err := o.resolveBackend()
	if err != nil {
		return nil, err
	}

	consumer := consumerFor(host, o)
	format := SelectPixelFormat(NativeByteOrder(), consumer)
	num, den := FPSToFraction(o.fps)

	spec := media.CaptureSpec{
		Width:        o.width,
		Height:       o.height,
		FramerateNum: num,
		FramerateDen: den,
		Format:       string(format),
	}
	switch d := desc.(type) {
	case CustomPipeline:
		spec.Launch = d.Launch
	case NamedDevice:
		dev, err := deviceRegistry(backend).Resolve(d.Name)
		if errors.Is(err, devices.ErrNotFound) {
			return nil, fmt.Errorf("%w: %q", ErrDeviceNotFound, d.Name)
		}
		if err != nil {
			return nil, fmt.Errorf("videobridge: resolve device %q: %w", d.Name, err)
		}
		spec.Device = &dev
	}

	pipe, err := backend.NewCapture(spec)
	if err != nil {
		return nil, wrapBuildError("build capture pipeline", err)
	}

	c := &Capture{
		source: newSource("capture", host, o, pipe, consumer, format),
		device: desc,
	}
	c.bind(c, captureHandler(host, o.handler), c.onEOS)

	c.log.Info("videobridge: capture created",
		"device", desc.String(),
		"width", o.width,
		"height", o.height,
		"fps", o.fps,
		"format", format,
		"consumer", consumer,
	)
	return c, nil
}

func captureHandler(host Host, explicit func(Source) error) func(Source) error {
	if explicit != nil {
		return explicit
	}
	if h, ok := host.(CaptureEventHandler); ok {
		return func(src Source) error {
			if c, ok := src.(*Capture); ok {
				h.CaptureEvent(c)
			}
			return nil
		}
	}
	if h, ok := host.(FrameEventHandler); ok {
		return h.FrameEvent
	}
	return nil
}

// Device returns the descriptor the capture was built from.
func (c *Capture) Device() Descriptor { return c.device }

// Start begins capturing. The pipeline reaches PLAYING asynchronously;
// Available turns true with the first frame.
func (c *Capture) Start() error { return c.play() }

// Stop stops capturing and sets the pipeline to NULL. Start resumes.
func (c *Capture) Stop() error { return c.stop(false) }

// IsCapturing reports whether the capture is started.
func (c *Capture) IsCapturing() bool { return c.State() == StatePlaying }

// A capture reaching end of stream (device unplugged, finite custom
// pipeline) stops.
func (c *Capture) onEOS() {
	if c.disposed.Load() {
		return
	}
	c.bus.Publish(events.EndOfStreamEvent{
		SourceID:  c.id,
		Rate:      c.rate.Load(),
		Timestamp: time.Now(),
	})
	c.log.Info("videobridge: capture reached end of stream")

	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked(false)
}
