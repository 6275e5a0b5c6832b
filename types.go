package videobridge

import (
	"time"

	"github.com/e7canasta/videobridge/internal/media"
)

// Backend builds pipelines and enumerates capture devices.
//
// The default backend is GStreamer (see internal/gstpipe); tests inject an
// in-memory one with WithBackend.
type Backend = media.Backend

// ConsumerKind selects how the host consumes frames.
type ConsumerKind int

const (
	// ConsumerCPU copies every frame into a host pixel array
	ConsumerCPU ConsumerKind = iota
	// ConsumerGPU hands native buffers to a bound buffer sink for texture upload
	ConsumerGPU
)

// String returns a human-readable string representation of the consumer kind
func (k ConsumerKind) String() string {
	if k == ConsumerGPU {
		return "gpu"
	}
	return "cpu"
}

// State is the lifecycle state of a source.
//
//	Uninit → Ready → {Playing, Paused} → Stopped → … → Disposed
type State int

const (
	StateUninit State = iota
	StateReady
	StatePlaying
	StatePaused
	StateStopped
	StateDisposed
)

// String returns a human-readable string representation of the state
func (s State) String() string {
	switch s {
	case StateUninit:
		return "uninit"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Stats contains current source statistics
type Stats struct {
	// SourceID is the unique source identifier
	SourceID string
	// Kind is "capture" or "movie"
	Kind string
	// State is the current lifecycle state
	State State
	// Consumer is the active consumer path
	Consumer ConsumerKind
	// FramesProduced is the number of frames latched by the frame sink
	FramesProduced uint64
	// FramesDropped is the number of frames dropped on latch contention
	FramesDropped uint64
	// FramesMalformed is the number of samples discarded as incomplete
	FramesMalformed uint64
	// FramesOverwritten is the number of latched frames replaced before being read
	FramesOverwritten uint64
	// FramesRead is the number of frames consumed by the host
	FramesRead uint64
	// DropRate is the percentage of frames dropped (0-100)
	DropRate float64
	// FPSTarget is the controller frame-rate target (-1 until known)
	FPSTarget float64
	// FPSSource is the frame rate negotiated by the pipeline
	FPSSource float64
	// FPSRead is the measured host read rate over the recent window
	FPSRead float64
	// ReadStable is true if host reads are regular (see internal/fpsstats)
	ReadStable bool
	// Resolution is the negotiated source resolution (e.g., "640x480")
	Resolution string
	// Rate is the speed multiplier
	Rate float64
	// AppliedRate is the signed rate of the last accepted seek
	AppliedRate float64
	// SeekFailures is the number of seeks refused by the pipeline
	SeekFailures uint64
	// PipelineErrors counts bus ERROR messages by category
	PipelineErrors map[string]uint64
	// Uptime is the time since construction
	Uptime time.Duration
}
