package videobridge

import (
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/e7canasta/videobridge/internal/events"
	"github.com/e7canasta/videobridge/internal/fpsstats"
	"github.com/e7canasta/videobridge/internal/handoff"
	"github.com/e7canasta/videobridge/internal/media"
	"github.com/e7canasta/videobridge/internal/metrics"
)

// Source is the host-facing surface shared by Capture and Movie.
type Source interface {
	ID() string
	Available() bool
	Read() bool
	LoadPixels()
	Pixels() []uint32
	Width() int
	Height() int
	Get(x, y int) uint32
	GetRegion(x, y, w, h int) []uint32
	FrameRate(fps float64)
	SetBufferSink(sink any) error
	HasBufferSink() bool
	Post()
	Dispose()
	Stats() Stats
}

// slot is the latched frame: caps published together with the pixels (CPU
// path) or the pending native frame (GPU path).
type slot struct {
	caps   media.Caps
	pixels []uint32
	frame  *Frame
}

type sinkBinding struct {
	sink BufferSink
}

type frameCallback struct {
	fn func(Source) error
}

// source implements everything Capture and Movie share: the frame sink, the
// handoff latch, the host-visible image, the rate controller and the
// lifecycle state machine.
type source struct {
	id   string
	kind string
	log  *slog.Logger
	host Host
	bus  *events.Bus
	pipe media.Pipeline

	consumer      ConsumerKind
	format        PixelFormat
	useBufferSink bool
	pauseForSeek  bool

	self Source

	latch *handoff.Latch[slot]

	// Host-visible image, swapped with the slot on Read.
	imgMu  sync.Mutex
	pixels []uint32
	caps   media.Caps

	// Lifecycle. mu serialises transitions; state is read lock-free by the
	// producer.
	mu       sync.Mutex
	state    atomic.Int32
	ready    bool
	looping  atomic.Bool
	seeking  atomic.Bool
	disposed atomic.Bool

	// Controller.
	rate      atomicFloat
	applied   atomicFloat
	frameRate atomicFloat
	volume    float64

	srcCaps atomic.Pointer[media.Caps]

	sink       BufferSink
	activeSink atomic.Pointer[sinkBinding]
	handler    atomic.Pointer[frameCallback]

	hooks HookHandle

	reads        atomic.Uint64
	seekFailures atomic.Uint64
	errMu        sync.Mutex
	errCounts    map[string]uint64
	readWindow   fpsstats.Window
	created      time.Time
}

func newSource(kind string, host Host, o options, pipe media.Pipeline, consumer ConsumerKind, format PixelFormat) *source {
	id := o.id
	if id == "" {
		id = uuid.NewString()
	}
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &source{
		id:            id,
		kind:          kind,
		log:           logger.With("source_id", id, "kind", kind),
		host:          host,
		bus:           o.bus,
		pipe:          pipe,
		consumer:      consumer,
		format:        format,
		useBufferSink: o.useBufferSink,
		latch:         handoff.New[slot](),
		volume:        -1,
		errCounts:     make(map[string]uint64),
		created:       time.Now(),
	}
	s.state.Store(int32(StateUninit))
	s.rate.Store(1)
	s.applied.Store(1)
	s.frameRate.Store(-1)
	return s
}

// bind connects the pipeline callbacks, registers the host hooks and installs
// the frame callback. self is the outer Capture or Movie.
func (s *source) bind(self Source, handler func(Source) error, onEOS func()) {
	s.self = self
	if handler != nil {
		s.handler.Store(&frameCallback{fn: handler})
	}

	s.pipe.Connect(media.Handlers{
		Preroll:      s.onPreroll,
		Sample:       s.onSample,
		EOS:          onEOS,
		Error:        s.onError,
		StateChanged: s.onPipelineState,
	})

	if s.host != nil {
		s.hooks = RegisterHooks(s.host.Hooks(), s, (*source).Post, (*source).Dispose)
	}
	metrics.SourceCreated(s.kind)
}

// ID returns the source identifier.
func (s *source) ID() string { return s.id }

// Available reports whether a new frame is latched and unread.
func (s *source) Available() bool {
	return !s.disposed.Load() && s.latch.Available()
}

// Read consumes the latched frame into the host-visible pixels. Returns false
// when no frame was available.
//
// On the CPU path the latched scratch array and the visible array are
// swapped, so a slice obtained from Pixels before Read must not be retained.
func (s *source) Read() bool {
	if s.disposed.Load() {
		return false
	}

	gpu := s.activeSink.Load() != nil
	took := s.latch.Take(func(sl *slot) {
		s.imgMu.Lock()
		defer s.imgMu.Unlock()
		s.caps = sl.caps
		if !gpu {
			s.pixels, sl.pixels = sl.pixels, s.pixels
		}
	})
	if !took {
		return false
	}
	if !gpu {
		s.latch.MarkFresh()
	}

	s.reads.Add(1)
	s.readWindow.Record(time.Now())
	metrics.IncRead(s.id, s.kind)
	return true
}

// LoadPixels makes the visible pixels reflect the latest read frame. On the
// GPU path this reads the frame back through the buffer sink.
func (s *source) LoadPixels() {
	if s.disposed.Load() {
		return
	}
	if b := s.activeSink.Load(); b != nil {
		s.imgMu.Lock()
		n := s.caps.Width * s.caps.Height
		if len(s.pixels) != n {
			s.pixels = make([]uint32, n)
		}
		px := s.pixels
		s.imgMu.Unlock()

		if n > 0 {
			b.sink.GetBufferPixels(px)
		}
	}
	s.latch.MarkFresh()
}

func (s *source) refreshIfOutdated() {
	if s.latch.Outdated() {
		s.LoadPixels()
	}
}

// Pixels returns the visible pixels, packed 0xAARRGGBB, row major. The slice
// is valid until the next Read.
func (s *source) Pixels() []uint32 {
	s.refreshIfOutdated()
	s.imgMu.Lock()
	defer s.imgMu.Unlock()
	return s.pixels
}

// Width returns the width of the last read frame.
func (s *source) Width() int {
	s.imgMu.Lock()
	defer s.imgMu.Unlock()
	return s.caps.Width
}

// Height returns the height of the last read frame.
func (s *source) Height() int {
	s.imgMu.Lock()
	defer s.imgMu.Unlock()
	return s.caps.Height
}

// Get returns the pixel at (x, y), or 0 outside the image.
func (s *source) Get(x, y int) uint32 {
	s.refreshIfOutdated()
	s.imgMu.Lock()
	defer s.imgMu.Unlock()

	w, h := s.caps.Width, s.caps.Height
	if x < 0 || y < 0 || x >= w || y >= h || len(s.pixels) < w*h {
		return 0
	}
	return s.pixels[y*w+x]
}

// GetRegion copies the w×h region at (x, y). Pixels outside the image are 0.
func (s *source) GetRegion(x, y, w, h int) []uint32 {
	if w <= 0 || h <= 0 {
		return nil
	}
	s.refreshIfOutdated()
	s.imgMu.Lock()
	defer s.imgMu.Unlock()

	out := make([]uint32, w*h)
	iw, ih := s.caps.Width, s.caps.Height
	if len(s.pixels) < iw*ih {
		return out
	}
	for row := 0; row < h; row++ {
		sy := y + row
		if sy < 0 || sy >= ih {
			continue
		}
		for col := 0; col < w; col++ {
			sx := x + col
			if sx < 0 || sx >= iw {
				continue
			}
			out[row*w+col] = s.pixels[sy*iw+sx]
		}
	}
	return out
}

// SourceWidth returns the width negotiated by the pipeline (0 until the first
// sample or preroll).
func (s *source) SourceWidth() int {
	if c := s.srcCaps.Load(); c != nil {
		return c.Width
	}
	return 0
}

// SourceHeight returns the height negotiated by the pipeline.
func (s *source) SourceHeight() int {
	if c := s.srcCaps.Load(); c != nil {
		return c.Height
	}
	return 0
}

// SourceFrameRate returns the frame rate negotiated by the pipeline, or -1
// while unknown.
func (s *source) SourceFrameRate() float64 {
	if c := s.srcCaps.Load(); c != nil && c.FramerateDen > 0 {
		return c.FrameRate()
	}
	return -1
}

// SetBufferSink binds a GPU upload sink. The sink becomes active only when
// the host renders on the GPU.
func (s *source) SetBufferSink(v any) error {
	if s.disposed.Load() {
		return ErrDisposed
	}
	if !s.useBufferSink {
		return fmt.Errorf("%w: %s", ErrBufferSinkDisabled, s.id)
	}
	sink, err := BindBufferSink(v)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.sink = sink
	s.mu.Unlock()

	sink.SetBufferSource(s.self)

	active := s.consumer == ConsumerGPU
	if active {
		s.activeSink.Store(&sinkBinding{sink: sink})
	}
	s.log.Info("videobridge: buffer sink bound",
		"sink", fmt.Sprintf("%T", v),
		"active", active,
		"format", s.format,
	)
	return nil
}

// HasBufferSink reports whether a buffer sink is bound.
func (s *source) HasBufferSink() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sink != nil
}

// Post is the end-of-render hook: it lets an active buffer sink release the
// native buffer it holds.
func (s *source) Post() {
	if s.disposed.Load() {
		return
	}
	if b := s.activeSink.Load(); b != nil {
		b.sink.DisposeSourceBuffer()
	}
}

// IsLooping reports whether the source wraps at end of stream.
func (s *source) IsLooping() bool { return s.looping.Load() }

// Stats returns current source statistics
func (s *source) Stats() Stats {
	ls := s.latch.Stats()
	produced := ls.Offered - ls.Dropped

	var dropRate float64
	if ls.Offered > 0 {
		dropRate = float64(ls.Dropped) / float64(ls.Offered) * 100.0
	}

	read := s.readWindow.Snapshot(time.Now())

	s.errMu.Lock()
	errs := maps.Clone(s.errCounts)
	s.errMu.Unlock()

	consumer := ConsumerCPU
	if s.activeSink.Load() != nil {
		consumer = ConsumerGPU
	}

	return Stats{
		SourceID:          s.id,
		Kind:              s.kind,
		State:             s.State(),
		Consumer:          consumer,
		FramesProduced:    produced,
		FramesDropped:     ls.Dropped,
		FramesMalformed:   ls.Abandoned,
		FramesOverwritten: ls.Overwritten,
		FramesRead:        s.reads.Load(),
		DropRate:          dropRate,
		FPSTarget:         s.frameRate.Load(),
		FPSSource:         s.SourceFrameRate(),
		FPSRead:           read.FPSMean,
		ReadStable:        read.IsStable,
		Resolution:        fmt.Sprintf("%dx%d", s.SourceWidth(), s.SourceHeight()),
		Rate:              s.rate.Load(),
		AppliedRate:       s.applied.Load(),
		SeekFailures:      s.seekFailures.Load(),
		PipelineErrors:    errs,
		Uptime:            time.Since(s.created),
	}
}

// onError handles an ERROR bus message: logged and published, never fatal.
func (s *source) onError(e *media.PipelineError) {
	category := e.Category
	if category == "" {
		category = "unknown"
	}

	s.errMu.Lock()
	s.errCounts[category]++
	s.errMu.Unlock()
	metrics.IncPipelineError(s.id, category)

	s.log.Error("videobridge: pipeline error",
		"element", e.Source,
		"error", e.Message,
		"debug", e.Debug,
		"category", category,
		"state", s.State(),
	)
	s.bus.Publish(events.PipelineErrorEvent{
		SourceID:  s.id,
		Element:   e.Source,
		Message:   e.Message,
		Debug:     e.Debug,
		Category:  category,
		Timestamp: time.Now(),
	})
}

func (s *source) onPipelineState(old, cur media.State) {
	s.log.Debug("videobridge: pipeline state changed", "from", old, "to", cur)
	s.bus.Publish(events.PipelineStateEvent{
		SourceID:  s.id,
		From:      old.String(),
		To:        cur.String(),
		Timestamp: time.Now(),
	})
}

// fireFrameEvent calls the user frame callback. A failing callback is
// disabled and reported once.
func (s *source) fireFrameEvent() {
	if s.State() != StatePlaying {
		return
	}
	cb := s.handler.Load()
	if cb == nil {
		return
	}

	err := callFrameHandler(cb.fn, s.self)
	if err == nil {
		return
	}
	if s.handler.CompareAndSwap(cb, nil) {
		s.log.Error("videobridge: frame event callback failed, disabling it", "error", err)
		s.bus.Publish(events.CallbackDisabledEvent{
			SourceID:  s.id,
			Error:     err.Error(),
			Timestamp: time.Now(),
		})
	}
}

func callFrameHandler(fn func(Source) error, src Source) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("frame event callback panicked: %v", r)
		}
	}()
	return fn(src)
}
