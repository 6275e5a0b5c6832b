package videobridge

import (
	"fmt"
	"strings"
)

// BufferSourceSetter receives the source once, at binding time.
type BufferSourceSetter interface {
	SetBufferSource(src Source)
}

// BufferCopier receives every accepted frame on the producer goroutine while
// the handoff latch is held. It must be short and must not call back into the
// source. The sink may Release the frame itself; otherwise the source releases
// it when a newer frame supersedes it or on disposal.
type BufferCopier interface {
	CopyBufferFromSource(frame *Frame, data []byte, width, height int)
}

// BufferPixelsGetter reads the latest uploaded frame back into CPU pixels.
type BufferPixelsGetter interface {
	GetBufferPixels(pixels []uint32)
}

// SourceBufferDisposer releases whatever native buffer the sink still holds.
// Called from the host post hook.
type SourceBufferDisposer interface {
	DisposeSourceBuffer()
}

// BufferSink is the GPU upload capability a host may bind to a source.
type BufferSink interface {
	BufferSourceSetter
	BufferCopier
	BufferPixelsGetter
	SourceBufferDisposer
}

// BindBufferSink checks v for each BufferSink capability. The error names
// every missing method.
func BindBufferSink(v any) (BufferSink, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: sink is nil", ErrMissingCapability)
	}
	if sink, ok := v.(BufferSink); ok {
		return sink, nil
	}

	var missing []string
	if _, ok := v.(BufferSourceSetter); !ok {
		missing = append(missing, "SetBufferSource")
	}
	if _, ok := v.(BufferCopier); !ok {
		missing = append(missing, "CopyBufferFromSource")
	}
	if _, ok := v.(BufferPixelsGetter); !ok {
		missing = append(missing, "GetBufferPixels")
	}
	if _, ok := v.(SourceBufferDisposer); !ok {
		missing = append(missing, "DisposeSourceBuffer")
	}
	return nil, fmt.Errorf("%w: %T lacks %s", ErrMissingCapability, v, strings.Join(missing, ", "))
}
