// Package fakemedia is an in-memory media backend for deterministic tests of
// the frame bridge. Pipelines record every seek and state change and let the
// test drive samples, EOS and bus errors by hand.
package fakemedia

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/e7canasta/videobridge/internal/media"
)

// Buffer is a fake native buffer counting Unmap and Dispose calls.
type Buffer struct {
	unmapped atomic.Int32
	disposed atomic.Int32
}

func (b *Buffer) Unmap()   { b.unmapped.Add(1) }
func (b *Buffer) Dispose() { b.disposed.Add(1) }

// Unmapped returns how many times Unmap was called.
func (b *Buffer) Unmapped() int { return int(b.unmapped.Load()) }

// Disposed returns how many times Dispose was called.
func (b *Buffer) Disposed() int { return int(b.disposed.Load()) }

// NewSample builds a packed 32-bit frame whose every word reads as fill in
// machine byte order.
func NewSample(width, height int, fill uint32) *media.Sample {
	data := make([]byte, width*height*4)
	for i := 0; i < width*height; i++ {
		binary.NativeEndian.PutUint32(data[i*4:], fill)
	}
	return &media.Sample{
		Caps: media.Caps{
			Width:        width,
			Height:       height,
			FramerateNum: 30,
			FramerateDen: 1,
			Format:       "BGRx",
		},
		Data:   data,
		Stride: width * 4,
		Buffer: &Buffer{},
	}
}

// Pipeline is a fake media.Pipeline.
type Pipeline struct {
	mu        sync.Mutex
	handlers  media.Handlers
	connected bool
	state     media.State
	states    []media.State
	position  int64
	duration  int64
	seeks     []media.SeekRequest
	refuse    bool
	volume    float64
	volumes   []float64
	closed    bool

	queue *media.TaskQueue

	Capture  media.CaptureSpec
	Playback media.PlaybackSpec
}

// NewPipeline creates a pipeline in NULL with its task queue running.
func NewPipeline() *Pipeline {
	return &Pipeline{
		state:  media.StateNull,
		volume: 1,
		queue:  media.NewTaskQueue(),
	}
}

func (p *Pipeline) Connect(h media.Handlers) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = h
	p.connected = true
}

func (p *Pipeline) Disconnect() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = media.Handlers{}
	p.connected = false
}

func (p *Pipeline) SetState(s media.State) error {
	p.mu.Lock()
	if p.closed && s != media.StateNull {
		p.mu.Unlock()
		return fmt.Errorf("fakemedia: pipeline closed")
	}
	old := p.state
	p.state = s
	p.states = append(p.states, s)
	h := p.handlers.StateChanged
	p.mu.Unlock()

	if h != nil && old != s {
		h(old, s)
	}
	return nil
}

func (p *Pipeline) WaitState(time.Duration) (media.State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state, nil
}

// Seek records req and moves the fake position: forward seeks land on Start,
// reverse seeks with a bounded stop land on Stop.
func (p *Pipeline) Seek(req media.SeekRequest) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seeks = append(p.seeks, req)
	if p.refuse {
		return false
	}
	switch {
	case req.Rate < 0 && req.StopType == media.SeekTypeSet && req.Stop >= 0:
		p.position = req.Stop
	case req.StartType == media.SeekTypeSet:
		p.position = req.Start
	}
	return true
}

func (p *Pipeline) QueryPosition() (int64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position, true
}

func (p *Pipeline) QueryDuration() (int64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.duration <= 0 {
		return 0, false
	}
	return p.duration, true
}

func (p *Pipeline) SetVolume(v float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = v
	p.volumes = append(p.volumes, v)
	return nil
}

func (p *Pipeline) Invoke(fn func()) { p.queue.Post(fn) }

func (p *Pipeline) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.state = media.StateNull
	p.states = append(p.states, media.StateNull)
	p.mu.Unlock()

	p.queue.Close()
	return nil
}

// Flush waits for every task posted through Invoke so far.
func (p *Pipeline) Flush() { p.queue.Flush() }

// SetPosition moves the fake playback head.
func (p *Pipeline) SetPosition(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position = int64(d)
}

// SetDuration sets the reported stream duration.
func (p *Pipeline) SetDuration(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.duration = int64(d)
}

// RefuseSeeks makes subsequent seeks fail.
func (p *Pipeline) RefuseSeeks(refuse bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refuse = refuse
}

// Seeks returns a copy of the recorded seek requests.
func (p *Pipeline) Seeks() []media.SeekRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]media.SeekRequest(nil), p.seeks...)
}

// LastSeek returns the most recent seek request.
func (p *Pipeline) LastSeek() (media.SeekRequest, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.seeks) == 0 {
		return media.SeekRequest{}, false
	}
	return p.seeks[len(p.seeks)-1], true
}

// State returns the current fake state.
func (p *Pipeline) State() media.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// States returns every state requested so far, in order.
func (p *Pipeline) States() []media.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]media.State(nil), p.states...)
}

// Volumes returns every volume applied so far.
func (p *Pipeline) Volumes() []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]float64(nil), p.volumes...)
}

// Connected reports whether handlers are installed.
func (p *Pipeline) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// Closed reports whether Close was called.
func (p *Pipeline) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Emit delivers s as a streaming sample on the caller's goroutine. Returns
// false when no handler is connected.
func (p *Pipeline) Emit(s *media.Sample) bool {
	p.mu.Lock()
	h := p.handlers.Sample
	p.mu.Unlock()
	if h == nil {
		return false
	}
	h(s)
	return true
}

// EmitPreroll delivers s as a preroll sample.
func (p *Pipeline) EmitPreroll(s *media.Sample) bool {
	p.mu.Lock()
	h := p.handlers.Preroll
	p.mu.Unlock()
	if h == nil {
		return false
	}
	h(s)
	return true
}

// EmitEOS posts an end-of-stream message.
func (p *Pipeline) EmitEOS() {
	p.mu.Lock()
	h := p.handlers.EOS
	p.mu.Unlock()
	if h != nil {
		h()
	}
}

// EmitError posts an ERROR bus message.
func (p *Pipeline) EmitError(e *media.PipelineError) {
	p.mu.Lock()
	h := p.handlers.Error
	p.mu.Unlock()
	if h != nil {
		h(e)
	}
}

// Backend is a fake media.Backend handing out fake pipelines.
type Backend struct {
	mu          sync.Mutex
	devices     []media.Device
	devicesErr  error
	deviceCalls int
	pipelines   []*Pipeline
	failNext    error

	// Duration preloaded into playback pipelines.
	Duration time.Duration
}

// NewBackend creates a backend with the given device list.
func NewBackend(devices ...media.Device) *Backend {
	return &Backend{devices: devices}
}

// FailNext makes the next NewCapture or NewPlayback call return err.
func (b *Backend) FailNext(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failNext = err
}

// SetDevices replaces the enumerated device list.
func (b *Backend) SetDevices(devices ...media.Device) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.devices = devices
}

// SetDevicesError makes enumeration fail.
func (b *Backend) SetDevicesError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.devicesErr = err
}

// DeviceCalls returns how many times Devices was called.
func (b *Backend) DeviceCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.deviceCalls
}

// Last returns the most recently built pipeline.
func (b *Backend) Last() *Pipeline {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pipelines) == 0 {
		return nil
	}
	return b.pipelines[len(b.pipelines)-1]
}

func (b *Backend) take() error {
	err := b.failNext
	b.failNext = nil
	return err
}

func (b *Backend) NewCapture(spec media.CaptureSpec) (media.Pipeline, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.take(); err != nil {
		return nil, err
	}
	p := NewPipeline()
	p.Capture = spec
	b.pipelines = append(b.pipelines, p)
	return p, nil
}

func (b *Backend) NewPlayback(spec media.PlaybackSpec) (media.Pipeline, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.take(); err != nil {
		return nil, err
	}
	p := NewPipeline()
	p.Playback = spec
	p.duration = int64(b.Duration)
	b.pipelines = append(b.pipelines, p)
	return p, nil
}

func (b *Backend) Devices(class string) ([]media.Device, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deviceCalls++
	if b.devicesErr != nil {
		return nil, b.devicesErr
	}
	out := make([]media.Device, 0, len(b.devices))
	for _, d := range b.devices {
		if class == "" || d.Class == "" || d.Class == class {
			out = append(out, d)
		}
	}
	return out, nil
}
