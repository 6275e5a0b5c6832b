package media

import "time"

// Handlers are the callbacks a pipeline delivers. Preroll and Sample run on the
// streaming thread and must not block; EOS, Error and StateChanged run on the
// bus dispatch goroutine.
type Handlers struct {
	Preroll      func(*Sample)
	Sample       func(*Sample)
	EOS          func()
	Error        func(*PipelineError)
	StateChanged func(old, new State)
}

// Pipeline is an assembled, linear media pipeline terminating in an application
// sink.
type Pipeline interface {
	// Connect installs the sink and bus callbacks. Samples delivered before
	// Connect are discarded.
	Connect(h Handlers)

	// Disconnect removes all callbacks. Safe to call more than once.
	Disconnect()

	// SetState requests an asynchronous state change.
	SetState(s State) error

	// WaitState blocks until any pending asynchronous change (including a
	// flushing seek) completes or the timeout elapses, and returns the
	// resulting state.
	WaitState(timeout time.Duration) (State, error)

	// Seek performs a TIME seek and reports whether the pipeline accepted it.
	Seek(req SeekRequest) bool

	QueryPosition() (int64, bool)
	QueryDuration() (int64, bool)

	// SetVolume sets the scalar audio volume (0..1). Capture pipelines ignore it.
	SetVolume(v float64) error

	// Invoke posts fn onto the pipeline's own task queue. Tasks run one at a
	// time, in order, never on the caller's goroutine.
	Invoke(fn func())

	// Close sets the pipeline to NULL, drains the task queue and releases
	// the bus. Idempotent.
	Close() error
}

// CaptureSpec describes a capture chain to assemble.
//
// Exactly one of Device and Launch selects the source; both empty selects the
// platform default device.
type CaptureSpec struct {
	Device       *Device
	Launch       string
	Width        int
	Height       int
	FramerateNum int
	FramerateDen int
	Format       string
}

// PlaybackSpec describes a playback chain to assemble.
type PlaybackSpec struct {
	URI    string
	Format string
}

// Backend builds pipelines and enumerates devices.
type Backend interface {
	NewCapture(spec CaptureSpec) (Pipeline, error)
	NewPlayback(spec PlaybackSpec) (Pipeline, error)
	Devices(class string) ([]Device, error)
}
