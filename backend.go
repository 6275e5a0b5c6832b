package videobridge

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/e7canasta/videobridge/internal/devices"
	"github.com/e7canasta/videobridge/internal/gstpipe"
	"github.com/e7canasta/videobridge/internal/media"
)

var (
	defaultBackendOnce sync.Once
	defaultBackend     Backend
	defaultBackendErr  error

	// registries holds one device cache per backend.
	registries sync.Map
)

// DefaultBackend returns the process-wide GStreamer backend, initialising
// GStreamer on first use.
func DefaultBackend() (Backend, error) {
	defaultBackendOnce.Do(func() {
		b, err := gstpipe.NewBackend(slog.Default())
		if err != nil {
			defaultBackendErr = fmt.Errorf("%w: %v", ErrGStreamerUnavailable, err)
			return
		}
		defaultBackend = b
	})
	return defaultBackend, defaultBackendErr
}

func (o options) resolveBackend() (Backend, error) {
	if o.backend != nil {
		return o.backend, nil
	}
	return DefaultBackend()
}

func deviceRegistry(b Backend) *devices.Registry {
	if r, ok := registries.Load(b); ok {
		return r.(*devices.Registry)
	}
	r, _ := registries.LoadOrStore(b, devices.NewRegistry(b, media.VideoSourceClass))
	return r.(*devices.Registry)
}

// ListDevices returns the display names of the capture devices, with
// duplicates disambiguated as "<name> #k". The list is enumerated once per
// backend and cached until InvalidateDevices.
func ListDevices(opts ...Option) ([]string, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	b, err := o.resolveBackend()
	if err != nil {
		return nil, err
	}
	names, err := deviceRegistry(b).List()
	if err != nil {
		return nil, fmt.Errorf("videobridge: list devices: %w", err)
	}
	return names, nil
}

// InvalidateDevices drops the cached device list, so the next ListDevices or
// named capture enumerates again (e.g. after a camera was plugged in).
func InvalidateDevices(opts ...Option) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	b, err := o.resolveBackend()
	if err != nil {
		return
	}
	deviceRegistry(b).Invalidate()
}

// consumerFor picks the GPU path only for GPU hosts that allow buffer sinks.
func consumerFor(host Host, o options) ConsumerKind {
	if host != nil && host.IsGPU() && o.useBufferSink {
		return ConsumerGPU
	}
	return ConsumerCPU
}

func wrapBuildError(what string, err error) error {
	if errors.Is(err, gstpipe.ErrParse) {
		return fmt.Errorf("videobridge: %s: %w: %v", what, ErrPipelineParse, err)
	}
	if errors.Is(err, gstpipe.ErrNotInitialized) {
		return fmt.Errorf("videobridge: %s: %w: %v", what, ErrGStreamerUnavailable, err)
	}
	return fmt.Errorf("videobridge: %s: %w", what, err)
}
