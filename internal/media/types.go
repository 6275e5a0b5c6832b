// Package media defines the producer-side contract the bridge needs from a media
// pipeline: a linear chain ending in an application sink that emits packed 32-bit
// raw frames, seekable with (rate, start-type, start, stop-type, stop), with a bus
// carrying ERROR and EOS, and an asynchronous state model including READY.
//
// The GStreamer implementation lives in internal/gstpipe; internal/fakemedia
// provides a deterministic in-memory one for tests.
package media

import (
	"fmt"
	"time"
)

// State mirrors the pipeline element states.
type State int

const (
	StateVoidPending State = iota
	StateNull
	StateReady
	StatePaused
	StatePlaying
)

// String returns a human-readable representation of the state
func (s State) String() string {
	switch s {
	case StateNull:
		return "NULL"
	case StateReady:
		return "READY"
	case StatePaused:
		return "PAUSED"
	case StatePlaying:
		return "PLAYING"
	default:
		return "VOID_PENDING"
	}
}

// Caps is the negotiated raw-video format of a sample.
type Caps struct {
	Width        int
	Height       int
	FramerateNum int
	FramerateDen int
	Format       string
}

// FrameRate returns the framerate fraction as frames per second, or 0 when the
// fraction is unknown or variable (0/1).
func (c Caps) FrameRate() float64 {
	if c.FramerateDen == 0 {
		return 0
	}
	return float64(c.FramerateNum) / float64(c.FramerateDen)
}

// NativeBuffer is the backend-owned buffer behind a sample.
//
// Unmap releases the mapped byte view; Dispose drops the backend reference.
// Callers go through videobridge.Frame, which guarantees each runs once.
type NativeBuffer interface {
	Unmap()
	Dispose()
}

// Sample is one frame delivered on the pipeline's streaming thread.
//
// Data is a mapped view into Buffer and is only valid until Buffer.Unmap.
type Sample struct {
	Caps   Caps
	Data   []byte
	Stride int
	PTS    time.Duration
	Buffer NativeBuffer
}

// SeekType selects how a seek boundary is interpreted.
type SeekType int

const (
	SeekTypeNone SeekType = iota
	SeekTypeSet
)

// SeekFlags is a bit set of seek options.
type SeekFlags uint

const (
	SeekFlagFlush SeekFlags = 1 << iota
	SeekFlagAccurate
)

// SeekRequest is a segment seek in TIME format, positions in nanoseconds.
type SeekRequest struct {
	Rate      float64
	Flags     SeekFlags
	StartType SeekType
	Start     int64
	StopType  SeekType
	Stop      int64
}

// String renders the request for logs.
func (r SeekRequest) String() string {
	return fmt.Sprintf("rate=%.3f start=%d stop=%d", r.Rate, r.Start, r.Stop)
}

// PipelineError is an ERROR message taken off the pipeline bus.
type PipelineError struct {
	Source   string
	Message  string
	Debug    string
	Category string
}

func (e *PipelineError) Error() string {
	if e.Source == "" {
		return e.Message
	}
	return e.Source + ": " + e.Message
}

// Device is an enumerated capture device. Ref is backend specific and is only
// meaningful to the backend that produced it.
type Device struct {
	DisplayName string
	Name        string
	Class       string
	Ref         any
}

// VideoSourceClass is the device class filter used for capture enumeration.
const VideoSourceClass = "Video/Source"
