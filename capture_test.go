package videobridge

import (
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/e7canasta/videobridge/internal/events"
	"github.com/e7canasta/videobridge/internal/fakemedia"
	"github.com/e7canasta/videobridge/internal/media"
)

func TestNewCapture_Validation(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantErr error
	}{
		{"zero_width", []Option{WithSize(0, 480)}, ErrInvalidSize},
		{"negative_height", []Option{WithSize(640, -1)}, ErrInvalidSize},
		{"nan_fps", []Option{WithFrameRate(math.NaN())}, ErrInvalidFramerate},
		{"negative_fps", []Option{WithFrameRate(-5)}, ErrInvalidFramerate},
		{"zero_fps_device", []Option{WithFrameRate(0)}, ErrInvalidFramerate},
		{"empty_custom_pipeline", []Option{WithDevice("pipeline:")}, ErrPipelineParse},
		{"unknown_device", []Option{WithDevice("No Such Camera")}, ErrDeviceNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := append([]Option{WithBackend(fakemedia.NewBackend()), WithLogger(quietLogger)}, tt.opts...)
			c, err := NewCapture(nil, opts...)
			if !errors.Is(err, tt.wantErr) {
				if c != nil {
					c.Dispose()
				}
				t.Fatalf("NewCapture() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewCapture_BackendFailure(t *testing.T) {
	backend := fakemedia.NewBackend()
	backend.FailNext(errors.New("no pipeline today"))

	_, err := NewCapture(nil, WithBackend(backend), WithLogger(quietLogger))
	if err == nil {
		t.Fatal("expected construction error")
	}
	t.Logf("✅ backend failure surfaced: %v", err)
}

func TestNewCapture_DefaultSpec(t *testing.T) {
	_, pipe := newCaptureForTest(t, nil)

	spec := pipe.Capture
	if spec.Width != 640 || spec.Height != 480 {
		t.Errorf("size = %dx%d, want 640x480", spec.Width, spec.Height)
	}
	if spec.FramerateNum != 30 || spec.FramerateDen != 1 {
		t.Errorf("framerate = %d/%d, want 30/1", spec.FramerateNum, spec.FramerateDen)
	}
	if spec.Device != nil || spec.Launch != "" {
		t.Errorf("default capture selected device=%v launch=%q", spec.Device, spec.Launch)
	}
	want := SelectPixelFormat(NativeByteOrder(), ConsumerCPU)
	if spec.Format != string(want) {
		t.Errorf("format = %q, want %q", spec.Format, want)
	}
	if !pipe.Connected() {
		t.Error("pipeline callbacks not connected")
	}
}

func TestNewCapture_CustomPipeline(t *testing.T) {
	c, pipe := newCaptureForTest(t, nil,
		WithDevice("pipeline:videotestsrc pattern=0"),
		WithFrameRate(0),
		WithSize(320, 240),
	)

	if pipe.Capture.Launch != "videotestsrc pattern=0" {
		t.Errorf("launch = %q", pipe.Capture.Launch)
	}
	if pipe.Capture.FramerateNum != 0 {
		t.Errorf("fps 0 on a custom pipeline should leave the rate open, got %d/%d",
			pipe.Capture.FramerateNum, pipe.Capture.FramerateDen)
	}
	if _, ok := c.Device().(CustomPipeline); !ok {
		t.Errorf("descriptor = %T, want CustomPipeline", c.Device())
	}
}

func TestNewCapture_NamedDevice(t *testing.T) {
	backend := fakemedia.NewBackend(
		media.Device{DisplayName: "USB Camera", Name: "video0", Class: media.VideoSourceClass},
		media.Device{DisplayName: "USB Camera", Name: "video2", Class: media.VideoSourceClass},
	)

	tests := []struct {
		device string
		want   string
	}{
		{"USB Camera", "video0"},
		{"USB Camera #2", "video2"},
		{"video2", "video2"},
	}
	for _, tt := range tests {
		t.Run(tt.device, func(t *testing.T) {
			c, err := NewCapture(nil, WithBackend(backend), WithLogger(quietLogger), WithDevice(tt.device))
			if err != nil {
				t.Fatalf("NewCapture(%q) failed: %v", tt.device, err)
			}
			defer c.Dispose()

			dev := backend.Last().Capture.Device
			if dev == nil || dev.Name != tt.want {
				t.Errorf("resolved %+v, want %s", dev, tt.want)
			}
		})
	}
}

func TestCapture_StartStop(t *testing.T) {
	c, pipe := newCaptureForTest(t, nil)

	if c.State() != StateUninit {
		t.Fatalf("initial state = %s", c.State())
	}
	if err := c.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if !c.IsCapturing() {
		t.Error("IsCapturing() = false after Start")
	}
	pipe.Flush()
	if !statesEqual(pipe.States(), media.StateReady, media.StatePlaying) {
		t.Errorf("pipeline states = %v, want [READY PLAYING]", pipe.States())
	}

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	pipe.Flush()
	if c.State() != StateStopped || c.IsCapturing() {
		t.Errorf("state after Stop = %s", c.State())
	}
	if pipe.State() != media.StateNull {
		t.Errorf("pipeline state after Stop = %s, want NULL", pipe.State())
	}

	// Restart passes through READY again.
	if err := c.Start(); err != nil {
		t.Fatalf("second Start() failed: %v", err)
	}
	pipe.Flush()
	if !statesEqual(pipe.States(),
		media.StateReady, media.StatePlaying, media.StateNull, media.StateReady, media.StatePlaying) {
		t.Errorf("pipeline states = %v", pipe.States())
	}
	t.Log("✅ Uninit → Ready → Playing → Stopped → Playing")
}

func TestCapture_SetReadyIdempotent(t *testing.T) {
	c, pipe := newCaptureForTest(t, nil)

	for i := 0; i < 3; i++ {
		if err := c.SetReady(); err != nil {
			t.Fatalf("SetReady() failed: %v", err)
		}
	}
	pipe.Flush()
	if c.State() != StateReady {
		t.Errorf("state = %s, want ready", c.State())
	}
	if !statesEqual(pipe.States(), media.StateReady) {
		t.Errorf("pipeline states = %v, want one READY", pipe.States())
	}
}

// A 640x480 frame read into host pixels.
func TestCapture_ReadCPU(t *testing.T) {
	c, pipe := newCaptureForTest(t, nil)
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}

	if c.Available() || c.Read() {
		t.Fatal("frame available before any sample")
	}

	sample := fakemedia.NewSample(640, 480, 0xFF336699)
	pipe.Emit(sample)

	if !c.Available() {
		t.Fatal("Available() = false after a sample")
	}
	if !c.Read() {
		t.Fatal("Read() = false with a frame available")
	}
	if c.Width() != 640 || c.Height() != 480 {
		t.Errorf("size = %dx%d, want 640x480", c.Width(), c.Height())
	}
	px := c.Pixels()
	if len(px) != 640*480 {
		t.Fatalf("len(Pixels()) = %d, want %d", len(px), 640*480)
	}
	if px[0] != 0xFF336699 || px[len(px)-1] != 0xFF336699 {
		t.Errorf("pixels = %08x..%08x, want ff336699", px[0], px[len(px)-1])
	}
	if got := c.Get(10, 10); got != 0xFF336699 {
		t.Errorf("Get(10,10) = %08x", got)
	}
	if got := c.Get(-1, 0); got != 0 {
		t.Errorf("Get out of range = %08x, want 0", got)
	}

	if c.Available() || c.Read() {
		t.Error("frame still available after Read")
	}

	buf := sample.Buffer.(*fakemedia.Buffer)
	if buf.Unmapped() != 1 || buf.Disposed() != 1 {
		t.Errorf("native buffer unmapped=%d disposed=%d, want 1/1", buf.Unmapped(), buf.Disposed())
	}
	t.Logf("✅ %dx%d frame read, %d pixels", c.Width(), c.Height(), len(px))
}

func TestCapture_GetRegion(t *testing.T) {
	c, pipe := newCaptureForTest(t, nil)
	pipe.Emit(fakemedia.NewSample(4, 4, 0xFF00FF00))
	c.Read()

	region := c.GetRegion(2, 2, 4, 4)
	if len(region) != 16 {
		t.Fatalf("len(region) = %d", len(region))
	}
	if region[0] != 0xFF00FF00 || region[1*4+1] != 0xFF00FF00 {
		t.Errorf("inside pixels = %08x %08x", region[0], region[5])
	}
	if region[3] != 0 || region[15] != 0 {
		t.Errorf("outside pixels = %08x %08x, want 0", region[3], region[15])
	}
	if c.GetRegion(0, 0, 0, 5) != nil {
		t.Error("empty region should be nil")
	}
}

func TestCapture_LatestFrameWins(t *testing.T) {
	c, pipe := newCaptureForTest(t, nil)

	for _, fill := range []uint32{0xFF000001, 0xFF000002, 0xFF000003} {
		pipe.Emit(fakemedia.NewSample(8, 8, fill))
	}
	if !c.Read() {
		t.Fatal("Read() = false")
	}
	if got := c.Pixels()[0]; got != 0xFF000003 {
		t.Errorf("pixel = %08x, want the latest frame ff000003", got)
	}

	stats := c.Stats()
	if stats.FramesOverwritten != 2 {
		t.Errorf("FramesOverwritten = %d, want 2", stats.FramesOverwritten)
	}
	if stats.FramesRead != 1 {
		t.Errorf("FramesRead = %d, want 1", stats.FramesRead)
	}
}

// Frames arriving while the consumer holds the latch are dropped.
func TestCapture_DropOnContention(t *testing.T) {
	c, pipe := newCaptureForTest(t, nil)

	pipe.Emit(fakemedia.NewSample(8, 8, 0xFFAAAAAA))

	var released atomic.Int32
	c.latch.With(func(*slot) {
		for i := 0; i < 29; i++ {
			s := fakemedia.NewSample(8, 8, 0xFFBBBBBB)
			pipe.Emit(s)
			if s.Buffer.(*fakemedia.Buffer).Disposed() == 1 {
				released.Add(1)
			}
		}
	})

	stats := c.Stats()
	if stats.FramesDropped != 29 {
		t.Errorf("FramesDropped = %d, want 29", stats.FramesDropped)
	}
	if released.Load() != 29 {
		t.Errorf("dropped frames released = %d, want 29", released.Load())
	}
	if !c.Available() {
		t.Fatal("Available() = false, the frame latched before contention is lost")
	}
	if !c.Read() {
		t.Fatal("Read() = false")
	}
	for i, p := range c.Pixels() {
		if p != 0xFFAAAAAA {
			t.Fatalf("pixel %d = %08x, want the coherent pre-contention frame", i, p)
		}
	}
	t.Logf("✅ drops=%d, one coherent frame read", stats.FramesDropped)
}

func TestCapture_MalformedSampleDiscarded(t *testing.T) {
	c, pipe := newCaptureForTest(t, nil)

	s := fakemedia.NewSample(8, 8, 0xFF123456)
	s.Data = s.Data[:10]
	pipe.Emit(s)

	if c.Available() {
		t.Error("malformed sample was latched")
	}
	if s.Buffer.(*fakemedia.Buffer).Disposed() != 1 {
		t.Error("malformed sample buffer not released")
	}
	st := c.Stats()
	if st.FramesDropped != 0 {
		t.Error("malformed sample counted as a contention drop")
	}
	if st.FramesProduced != 0 || st.FramesMalformed != 1 {
		t.Errorf("produced=%d malformed=%d, want 0/1", st.FramesProduced, st.FramesMalformed)
	}

	pipe.Emit(fakemedia.NewSample(8, 8, 0xFF123456))
	if st := c.Stats(); st.FramesProduced != 1 || st.FramesMalformed != 1 {
		t.Errorf("after a good sample produced=%d malformed=%d, want 1/1", st.FramesProduced, st.FramesMalformed)
	}
}

func TestCapture_SourceCapsAndPreroll(t *testing.T) {
	c, pipe := newCaptureForTest(t, nil)

	if c.SourceWidth() != 0 || c.SourceFrameRate() != -1 || c.TargetFrameRate() != -1 {
		t.Errorf("caps known before preroll: %dx? @%v", c.SourceWidth(), c.SourceFrameRate())
	}

	pre := fakemedia.NewSample(320, 240, 0)
	pipe.EmitPreroll(pre)

	if c.SourceWidth() != 320 || c.SourceHeight() != 240 || c.SourceFrameRate() != 30 {
		t.Errorf("source caps = %dx%d@%v", c.SourceWidth(), c.SourceHeight(), c.SourceFrameRate())
	}
	if c.TargetFrameRate() != 30 {
		t.Errorf("TargetFrameRate() = %v, want seeded 30", c.TargetFrameRate())
	}
	if c.Available() {
		t.Error("preroll must not latch a frame")
	}
	if pre.Buffer.(*fakemedia.Buffer).Disposed() != 1 {
		t.Error("preroll buffer not released")
	}
}

func TestCapture_FrameEventHandler(t *testing.T) {
	var calls atomic.Int32
	c, pipe := newCaptureForTest(t, nil, WithEventHandler(func(src Source) error {
		calls.Add(1)
		src.Read()
		return nil
	}))

	// Not playing: frames latch, callback stays quiet.
	pipe.Emit(fakemedia.NewSample(8, 8, 1))
	if calls.Load() != 0 {
		t.Fatalf("callback fired before Start")
	}

	if err := c.Start(); err != nil {
		t.Fatal(err)
	}
	pipe.Emit(fakemedia.NewSample(8, 8, 2))
	pipe.Emit(fakemedia.NewSample(8, 8, 3))

	if calls.Load() != 2 {
		t.Errorf("callback calls = %d, want 2", calls.Load())
	}
	if c.Available() {
		t.Error("frame still available; Read inside the callback did not consume it")
	}
	t.Log("✅ callback may Read re-entrantly")
}

func TestCapture_HostCaptureEvent(t *testing.T) {
	host := &captureHost{testHost: newTestHost(false)}
	c, pipe := newCaptureForTest(t, host)
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}

	pipe.Emit(fakemedia.NewSample(8, 8, 1))
	pipe.Emit(fakemedia.NewSample(8, 8, 2))

	events, reads := host.counts()
	if events != 2 || reads != 2 {
		t.Errorf("events=%d reads=%d, want 2/2", events, reads)
	}
}

func TestCapture_ExplicitHandlerWinsOverHost(t *testing.T) {
	host := &captureHost{testHost: newTestHost(false)}
	var calls atomic.Int32
	c, pipe := newCaptureForTest(t, host, WithEventHandler(func(Source) error {
		calls.Add(1)
		return nil
	}))
	c.Start()
	pipe.Emit(fakemedia.NewSample(8, 8, 1))

	if events, _ := host.counts(); events != 0 || calls.Load() != 1 {
		t.Errorf("host events=%d explicit calls=%d, want 0/1", events, calls.Load())
	}
}

func TestCapture_FailingCallbackDisabled(t *testing.T) {
	bus := NewEventBus()
	disabled := make(chan events.CallbackDisabledEvent, 1)
	defer bus.Subscribe(func(e events.CallbackDisabledEvent) { disabled <- e })()

	tests := []struct {
		name string
		fn   func(Source) error
	}{
		{"error", func(Source) error { return errors.New("boom") }},
		{"panic", func(Source) error { panic("kaboom") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			c, pipe := newCaptureForTest(t, nil, WithEventBus(bus), WithEventHandler(func(src Source) error {
				calls.Add(1)
				return tt.fn(src)
			}))
			c.Start()

			pipe.Emit(fakemedia.NewSample(8, 8, 1))
			pipe.Emit(fakemedia.NewSample(8, 8, 2))

			if calls.Load() != 1 {
				t.Errorf("callback calls = %d, want 1 (disabled after failure)", calls.Load())
			}
			if !c.Available() {
				t.Error("frames must keep flowing after the callback is disabled")
			}

			select {
			case e := <-disabled:
				if e.SourceID != c.ID() {
					t.Errorf("event for %s, want %s", e.SourceID, c.ID())
				}
			case <-time.After(time.Second):
				t.Fatal("CallbackDisabledEvent not published")
			}
		})
	}
}

func TestCapture_EndOfStreamStops(t *testing.T) {
	c, pipe := newCaptureForTest(t, nil)
	c.Start()

	pipe.EmitEOS()
	pipe.Flush()

	if c.State() != StateStopped {
		t.Errorf("state after EOS = %s, want stopped", c.State())
	}
	if pipe.State() != media.StateNull {
		t.Errorf("pipeline state after EOS = %s, want NULL", pipe.State())
	}
}

func TestCapture_PipelineErrorIsNotFatal(t *testing.T) {
	bus := NewEventBus()
	errs := make(chan events.PipelineErrorEvent, 1)
	defer bus.Subscribe(func(e events.PipelineErrorEvent) { errs <- e })()

	c, pipe := newCaptureForTest(t, nil, WithEventBus(bus))
	c.Start()

	pipe.EmitError(&media.PipelineError{Source: "v4l2src0", Message: "Device is busy", Category: "resource"})
	pipe.EmitError(&media.PipelineError{Source: "v4l2src0", Message: "???"})

	if c.State() != StatePlaying {
		t.Errorf("state after ERROR = %s, want playing", c.State())
	}
	stats := c.Stats()
	if stats.PipelineErrors["resource"] != 1 || stats.PipelineErrors["unknown"] != 1 {
		t.Errorf("PipelineErrors = %v", stats.PipelineErrors)
	}

	select {
	case e := <-errs:
		if e.Element != "v4l2src0" {
			t.Errorf("Element = %q", e.Element)
		}
	case <-time.After(time.Second):
		t.Fatal("PipelineErrorEvent not published")
	}
}

// Capture retargets without pausing around the seek.
func TestCapture_FrameRate(t *testing.T) {
	c, pipe := newCaptureForTest(t, nil)
	c.Start()
	pipe.Emit(fakemedia.NewSample(8, 8, 1)) // caps: 30 fps
	pipe.SetPosition(3 * time.Second)

	c.FrameRate(15)
	pipe.Flush()

	seek, ok := pipe.LastSeek()
	if !ok {
		t.Fatal("no seek issued")
	}
	if seek.Rate != 0.5 {
		t.Errorf("seek rate = %v, want 0.5", seek.Rate)
	}
	if seek.StartType != media.SeekTypeSet || seek.Start != int64(3*time.Second) || seek.StopType != media.SeekTypeNone {
		t.Errorf("forward seek = %+v, want start=position stop=none", seek)
	}
	if seek.Flags != media.SeekFlagFlush|media.SeekFlagAccurate {
		t.Errorf("flags = %v", seek.Flags)
	}
	if !statesEqual(pipe.States(), media.StateReady, media.StatePlaying) {
		t.Errorf("capture paused around the seek: %v", pipe.States())
	}
	if c.TargetFrameRate() != 15 || c.AppliedRate() != 0.5 {
		t.Errorf("target=%v applied=%v", c.TargetFrameRate(), c.AppliedRate())
	}
}

func TestCapture_FrameRateNonFiniteIgnored(t *testing.T) {
	c, pipe := newCaptureForTest(t, nil)

	for _, fps := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		c.FrameRate(fps)
	}
	pipe.Flush()
	if len(pipe.Seeks()) != 0 {
		t.Errorf("non-finite rates issued seeks: %v", pipe.Seeks())
	}
}

func TestCapture_DisposeIdempotent(t *testing.T) {
	host := newTestHost(false)
	c, pipe := newCaptureForTest(t, host)
	c.Start()
	pipe.Emit(fakemedia.NewSample(8, 8, 1))

	if host.hooks.Len() != 1 {
		t.Fatalf("hooks registered = %d, want 1", host.hooks.Len())
	}

	c.Dispose()
	c.Dispose()

	if c.State() != StateDisposed {
		t.Errorf("state = %s, want disposed", c.State())
	}
	if !pipe.Closed() || pipe.Connected() {
		t.Errorf("pipeline closed=%v connected=%v", pipe.Closed(), pipe.Connected())
	}
	if host.hooks.Len() != 0 {
		t.Errorf("hooks left registered: %d", host.hooks.Len())
	}
	if c.Available() || c.Read() {
		t.Error("disposed source still delivers frames")
	}
	if err := c.Start(); !errors.Is(err, ErrDisposed) {
		t.Errorf("Start() after Dispose = %v, want ErrDisposed", err)
	}
	if pipe.Emit(fakemedia.NewSample(8, 8, 2)) {
		t.Error("sample handler still connected after Dispose")
	}
	t.Log("✅ repeated Dispose is a no-op")
}

func TestCapture_HostShutdownDisposes(t *testing.T) {
	host := newTestHost(false)
	c, pipe := newCaptureForTest(t, host)

	host.hooks.RunDispose()

	if c.State() != StateDisposed || !pipe.Closed() {
		t.Errorf("state=%s closed=%v after host shutdown", c.State(), pipe.Closed())
	}
}

func TestListDevices(t *testing.T) {
	backend := fakemedia.NewBackend(
		media.Device{DisplayName: "HD Webcam", Name: "video0", Class: media.VideoSourceClass},
		media.Device{DisplayName: "HD Webcam", Name: "video2", Class: media.VideoSourceClass},
		media.Device{DisplayName: "Capture Card", Name: "video4", Class: media.VideoSourceClass},
		media.Device{DisplayName: "Mic", Name: "hw:0", Class: "Audio/Source"},
	)

	names, err := ListDevices(WithBackend(backend))
	if err != nil {
		t.Fatalf("ListDevices() failed: %v", err)
	}
	want := []string{"HD Webcam #1", "HD Webcam #2", "Capture Card"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	if _, err := ListDevices(WithBackend(backend)); err != nil {
		t.Fatal(err)
	}
	if backend.DeviceCalls() != 1 {
		t.Errorf("enumerations = %d, want 1 (cached)", backend.DeviceCalls())
	}

	backend.SetDevices(media.Device{DisplayName: "New Cam", Name: "video6", Class: media.VideoSourceClass})
	InvalidateDevices(WithBackend(backend))
	names, err = ListDevices(WithBackend(backend))
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 || names[0] != "New Cam" || backend.DeviceCalls() != 2 {
		t.Errorf("after invalidate: names=%v calls=%d", names, backend.DeviceCalls())
	}
}

func TestListDevices_Error(t *testing.T) {
	backend := fakemedia.NewBackend()
	backend.SetDevicesError(errors.New("monitor failed"))

	if _, err := ListDevices(WithBackend(backend)); err == nil {
		t.Fatal("expected enumeration error")
	}
}
