package gstpipe

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/e7canasta/videobridge/internal/media"
)

// busPollInterval bounds how long the bus monitor blocks per poll, and so
// how quickly Close is observed.
const busPollInterval = 50 * time.Millisecond

// Pipeline wraps an assembled GStreamer pipeline ending in an appsink.
type Pipeline struct {
	log      *slog.Logger
	pipeline *gst.Pipeline
	sink     *app.Sink
	// volume is the element carrying the "volume" property (playbin), nil
	// for capture chains.
	volume *gst.Element

	mu       sync.RWMutex
	handlers media.Handlers

	queue     *media.TaskQueue
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

var _ media.Pipeline = (*Pipeline)(nil)

func newPipeline(log *slog.Logger, pipeline *gst.Pipeline, sink *app.Sink, volume *gst.Element) *Pipeline {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		log:      log,
		pipeline: pipeline,
		sink:     sink,
		volume:   volume,
		queue:    media.NewTaskQueue(),
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	sink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: func(s *app.Sink) gst.FlowReturn {
			return p.deliver(s.PullSample(), p.current().Sample)
		},
		NewPrerollFunc: func(s *app.Sink) gst.FlowReturn {
			return p.deliver(s.PullPreroll(), p.current().Preroll)
		},
	})

	go p.monitorBus(ctx)
	return p
}

func (p *Pipeline) current() media.Handlers {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.handlers
}

// Connect installs the sink and bus callbacks.
func (p *Pipeline) Connect(h media.Handlers) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = h
}

// Disconnect removes all callbacks.
func (p *Pipeline) Disconnect() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = media.Handlers{}
}

// deliver converts an appsink sample and hands it to fn. A sample that
// cannot be read is skipped: one bad frame must not end the stream.
func (p *Pipeline) deliver(sample *gst.Sample, fn func(*media.Sample)) gst.FlowReturn {
	if sample == nil {
		p.log.Warn("gstpipe: failed to pull sample from appsink, skipping frame")
		return gst.FlowOK
	}
	if fn == nil {
		return gst.FlowOK
	}

	ms, err := toMediaSample(sample)
	if err != nil {
		p.log.Warn("gstpipe: skipping unreadable sample", "error", err)
		return gst.FlowOK
	}
	fn(ms)
	return gst.FlowOK
}

// SetState requests an asynchronous state change.
func (p *Pipeline) SetState(s media.State) error {
	if err := p.pipeline.SetState(toGstState(s)); err != nil {
		return fmt.Errorf("gstpipe: set state %s: %w", s, err)
	}
	return nil
}

// WaitState blocks until a pending state change or flushing seek completes.
func (p *Pipeline) WaitState(timeout time.Duration) (media.State, error) {
	ret, st := p.pipeline.GetState(gst.VoidPending, gst.ClockTime(timeout.Nanoseconds()))
	if ret == gst.StateChangeFailure {
		return fromGstState(st), fmt.Errorf("gstpipe: state change failed")
	}
	return fromGstState(st), nil
}

// Seek performs a TIME seek.
func (p *Pipeline) Seek(req media.SeekRequest) bool {
	var flags gst.SeekFlags
	if req.Flags&media.SeekFlagFlush != 0 {
		flags |= gst.SeekFlagFlush
	}
	if req.Flags&media.SeekFlagAccurate != 0 {
		flags |= gst.SeekFlagAccurate
	}
	return p.pipeline.Seek(
		req.Rate,
		gst.FormatTime,
		flags,
		toGstSeekType(req.StartType), req.Start,
		toGstSeekType(req.StopType), req.Stop,
	)
}

func (p *Pipeline) QueryPosition() (int64, bool) {
	ok, pos := p.pipeline.QueryPosition(gst.FormatTime)
	return pos, ok
}

func (p *Pipeline) QueryDuration() (int64, bool) {
	ok, d := p.pipeline.QueryDuration(gst.FormatTime)
	return d, ok
}

// SetVolume sets the playbin volume. Capture chains ignore it.
func (p *Pipeline) SetVolume(v float64) error {
	if p.volume == nil {
		return nil
	}
	if err := p.volume.SetProperty("volume", v); err != nil {
		return fmt.Errorf("gstpipe: set volume: %w", err)
	}
	return nil
}

// Invoke posts fn onto the pipeline task queue.
func (p *Pipeline) Invoke(fn func()) { p.queue.Post(fn) }

// Close drains the task queue, sets the pipeline to NULL and stops the bus
// monitor. Idempotent.
func (p *Pipeline) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.queue.Close()

		if serr := p.pipeline.SetState(gst.StateNull); serr != nil {
			err = fmt.Errorf("gstpipe: set pipeline to NULL: %w", serr)
		}

		p.cancel()
		select {
		case <-p.done:
		case <-time.After(time.Second):
			p.log.Warn("gstpipe: bus monitor did not stop in time")
		}
		p.log.Debug("gstpipe: pipeline closed")
	})
	return err
}

// monitorBus polls the pipeline bus and dispatches EOS, ERROR and pipeline
// state changes to the connected handlers until ctx is cancelled.
func (p *Pipeline) monitorBus(ctx context.Context) {
	defer close(p.done)
	bus := p.pipeline.GetPipelineBus()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg := bus.TimedPop(busPollInterval)
		if msg == nil {
			continue
		}

		switch msg.Type() {
		case gst.MessageEOS:
			p.log.Debug("gstpipe: end of stream")
			if h := p.current().EOS; h != nil {
				h()
			}

		case gst.MessageError:
			gerr := msg.ParseError()
			pe := &media.PipelineError{
				Source:   msg.Source(),
				Message:  gerr.Error(),
				Debug:    gerr.DebugString(),
				Category: ClassifyGError(gerr).String(),
			}
			if h := p.current().Error; h != nil {
				h(pe)
			} else {
				p.log.Error("gstpipe: pipeline error",
					"element", pe.Source,
					"error", pe.Message,
					"category", pe.Category,
				)
			}

		case gst.MessageWarning:
			gerr := msg.ParseWarning()
			p.log.Warn("gstpipe: pipeline warning",
				"element", msg.Source(),
				"warning", gerr.Error(),
				"debug", gerr.DebugString(),
			)

		case gst.MessageStateChanged:
			if msg.Source() == p.pipeline.GetName() {
				old, cur := msg.ParseStateChanged()
				if h := p.current().StateChanged; h != nil {
					h(fromGstState(old), fromGstState(cur))
				}
			}
		}
	}
}

func toGstState(s media.State) gst.State {
	switch s {
	case media.StateNull:
		return gst.StateNull
	case media.StateReady:
		return gst.StateReady
	case media.StatePaused:
		return gst.StatePaused
	case media.StatePlaying:
		return gst.StatePlaying
	default:
		return gst.VoidPending
	}
}

func fromGstState(s gst.State) media.State {
	switch s {
	case gst.StateNull:
		return media.StateNull
	case gst.StateReady:
		return media.StateReady
	case gst.StatePaused:
		return media.StatePaused
	case gst.StatePlaying:
		return media.StatePlaying
	default:
		return media.StateVoidPending
	}
}

func toGstSeekType(t media.SeekType) gst.SeekType {
	if t == media.SeekTypeSet {
		return gst.SeekTypeSet
	}
	return gst.SeekTypeNone
}
