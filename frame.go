package videobridge

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/e7canasta/videobridge/internal/media"
)

// Frame is one producer frame: negotiated geometry plus the mapped view of a
// pipeline-owned native buffer.
//
// Data is valid until Release. Release unmaps and disposes the native buffer
// exactly once, whichever path calls it (frame sink, buffer sink, disposal).
type Frame struct {
	Width  int
	Height int
	Stride int
	Format PixelFormat
	PTS    time.Duration
	Data   []byte

	buf      media.NativeBuffer
	once     sync.Once
	released atomic.Bool
}

func newFrame(s *media.Sample, format PixelFormat) *Frame {
	stride := s.Stride
	if stride <= 0 {
		stride = s.Caps.Width * 4
	}
	return &Frame{
		Width:  s.Caps.Width,
		Height: s.Caps.Height,
		Stride: stride,
		Format: format,
		PTS:    s.PTS,
		Data:   s.Data,
		buf:    s.Buffer,
	}
}

// Release unmaps and disposes the native buffer. Safe to call more than once
// and from any goroutine.
func (f *Frame) Release() {
	if f == nil {
		return
	}
	f.once.Do(func() {
		if f.buf != nil {
			f.buf.Unmap()
			f.buf.Dispose()
		}
		f.released.Store(true)
	})
}

// Released reports whether Release has run.
func (f *Frame) Released() bool {
	return f != nil && f.released.Load()
}
