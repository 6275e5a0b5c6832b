package events

import "time"

// Event type constants for kelindar/event.
const (
	TypeStateChanged uint32 = iota + 1
	TypePipelineState
	TypeEndOfStream
	TypePipelineError
	TypeSeekFailed
	TypeCallbackDisabled
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// StateChangedEvent is a lifecycle transition of a source.
type StateChangedEvent struct {
	SourceID  string
	Kind      string
	From      string
	To        string
	Timestamp time.Time
}

// Type returns the event type identifier for StateChangedEvent.
func (e StateChangedEvent) Type() uint32 { return TypeStateChanged }

// PipelineStateEvent is a state change reported by the pipeline bus.
type PipelineStateEvent struct {
	SourceID  string
	From      string
	To        string
	Timestamp time.Time
}

// Type returns the event type identifier for PipelineStateEvent.
func (e PipelineStateEvent) Type() uint32 { return TypePipelineState }

// EndOfStreamEvent is published when the pipeline reaches end of stream.
// Looping tells whether the source wrapped around instead of stopping.
type EndOfStreamEvent struct {
	SourceID  string
	Looping   bool
	Rate      float64
	Timestamp time.Time
}

// Type returns the event type identifier for EndOfStreamEvent.
func (e EndOfStreamEvent) Type() uint32 { return TypeEndOfStream }

// PipelineErrorEvent is an ERROR message taken off the pipeline bus.
type PipelineErrorEvent struct {
	SourceID  string
	Element   string
	Message   string
	Debug     string
	Category  string
	Timestamp time.Time
}

// Type returns the event type identifier for PipelineErrorEvent.
func (e PipelineErrorEvent) Type() uint32 { return TypePipelineError }

// SeekFailedEvent is published when the pipeline refuses a seek.
type SeekFailedEvent struct {
	SourceID  string
	Rate      float64
	Start     int64
	Stop      int64
	Timestamp time.Time
}

// Type returns the event type identifier for SeekFailedEvent.
func (e SeekFailedEvent) Type() uint32 { return TypeSeekFailed }

// CallbackDisabledEvent is published when a user frame callback failed and
// was removed.
type CallbackDisabledEvent struct {
	SourceID  string
	Error     string
	Timestamp time.Time
}

// Type returns the event type identifier for CallbackDisabledEvent.
func (e CallbackDisabledEvent) Type() uint32 { return TypeCallbackDisabled }
