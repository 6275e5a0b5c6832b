package headless

import (
	"sync"

	"github.com/e7canasta/videobridge"
)

// MemorySink is a buffer sink that "uploads" frames into a byte texture in
// memory. It stands in for a GPU texture when the host runs headless with
// GPU enabled.
type MemorySink struct {
	mu     sync.Mutex
	src    videobridge.Source
	tex    []byte
	width  int
	height int
	format videobridge.PixelFormat
	held   *videobridge.Frame

	uploads   uint64
	disposals uint64
}

var _ videobridge.BufferSink = (*MemorySink)(nil)

func (s *MemorySink) SetBufferSource(src videobridge.Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.src = src
}

// CopyBufferFromSource copies the visible rows of the frame into the texture
// and holds the frame until the post hook.
func (s *MemorySink) CopyBufferFromSource(frame *videobridge.Frame, data []byte, width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := width * height * 4
	if cap(s.tex) < n {
		s.tex = make([]byte, n)
	}
	s.tex = s.tex[:n]
	row := width * 4
	for y := 0; y < height; y++ {
		copy(s.tex[y*row:(y+1)*row], data[y*frame.Stride:])
	}
	s.width, s.height, s.format = width, height, frame.Format
	s.held = frame
	s.uploads++
}

// GetBufferPixels converts the texture to 0xAARRGGBB words.
func (s *MemorySink) GetBufferPixels(pixels []uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := min(len(pixels), s.width*s.height)
	for i := 0; i < n; i++ {
		p := s.tex[i*4 : i*4+4]
		var r, g, b byte
		switch s.format {
		case videobridge.FormatRGBx:
			r, g, b = p[0], p[1], p[2]
		case videobridge.FormatBGRx:
			r, g, b = p[2], p[1], p[0]
		default: // xRGB
			r, g, b = p[1], p[2], p[3]
		}
		pixels[i] = 0xFF000000 | uint32(r)<<16 | uint32(g)<<8 | uint32(b)
	}
}

// DisposeSourceBuffer releases the held frame.
func (s *MemorySink) DisposeSourceBuffer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held != nil {
		s.held.Release()
		s.held = nil
	}
	s.disposals++
}

// Counts returns the number of uploads and disposals.
func (s *MemorySink) Counts() (uploads, disposals uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploads, s.disposals
}
