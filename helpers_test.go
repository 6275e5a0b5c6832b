package videobridge

import (
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/e7canasta/videobridge/internal/fakemedia"
	"github.com/e7canasta/videobridge/internal/media"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// testHost is a minimal Host.
type testHost struct {
	dataDir string
	gpu     bool
	hooks   *HookRegistry
}

func newTestHost(gpu bool) *testHost {
	return &testHost{gpu: gpu, hooks: NewHookRegistry()}
}

func (h *testHost) DataPath(name string) string {
	if h.dataDir == "" {
		return ""
	}
	return filepath.Join(h.dataDir, name)
}

func (h *testHost) IsGPU() bool          { return h.gpu }
func (h *testHost) Hooks() *HookRegistry { return h.hooks }

// captureHost also receives capture frame events.
type captureHost struct {
	*testHost
	mu     sync.Mutex
	events int
	reads  int
}

func (h *captureHost) CaptureEvent(c *Capture) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events++
	if c.Read() {
		h.reads++
	}
}

func (h *captureHost) counts() (events, reads int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.events, h.reads
}

// recordingSink implements every BufferSink capability.
type recordingSink struct {
	mu          sync.Mutex
	src         Source
	copies      int
	lastW       int
	lastH       int
	frames      []*Frame
	pixelsCalls int
	disposals   int
	fill        uint32
}

func (s *recordingSink) SetBufferSource(src Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.src = src
}

func (s *recordingSink) CopyBufferFromSource(frame *Frame, data []byte, width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.copies++
	s.lastW, s.lastH = width, height
	s.frames = append(s.frames, frame)
}

func (s *recordingSink) GetBufferPixels(pixels []uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pixelsCalls++
	for i := range pixels {
		pixels[i] = s.fill
	}
}

func (s *recordingSink) DisposeSourceBuffer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disposals++
}

func (s *recordingSink) snapshot() (copies, w, h, pixelsCalls, disposals int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copies, s.lastW, s.lastH, s.pixelsCalls, s.disposals
}

// partialSink lacks GetBufferPixels and DisposeSourceBuffer.
type partialSink struct{}

func (partialSink) SetBufferSource(Source)                        {}
func (partialSink) CopyBufferFromSource(*Frame, []byte, int, int) {}

func newCaptureForTest(t *testing.T, host Host, opts ...Option) (*Capture, *fakemedia.Pipeline) {
	t.Helper()
	backend := fakemedia.NewBackend()
	opts = append([]Option{WithBackend(backend), WithLogger(quietLogger)}, opts...)
	c, err := NewCapture(host, opts...)
	if err != nil {
		t.Fatalf("NewCapture() failed: %v", err)
	}
	t.Cleanup(c.Dispose)
	return c, backend.Last()
}

func newMovieForTest(t *testing.T, host Host, duration time.Duration, opts ...Option) (*Movie, *fakemedia.Pipeline) {
	t.Helper()
	backend := fakemedia.NewBackend()
	backend.Duration = duration
	opts = append([]Option{WithBackend(backend), WithLogger(quietLogger)}, opts...)
	m, err := NewMovie(host, "http://media.example/clip.mp4", opts...)
	if err != nil {
		t.Fatalf("NewMovie() failed: %v", err)
	}
	t.Cleanup(m.Dispose)
	return m, backend.Last()
}

func statesEqual(got []media.State, want ...media.State) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
