package videobridge

import (
	"encoding/binary"

	"github.com/e7canasta/videobridge/internal/media"
	"github.com/e7canasta/videobridge/internal/metrics"
)

// onSample is the frame sink: it runs on the pipeline streaming thread for
// every new sample and must never block on the consumer.
func (s *source) onSample(sample *media.Sample) {
	frame := newFrame(sample, s.format)
	if s.disposed.Load() {
		frame.Release()
		return
	}
	s.updateSourceCaps(sample.Caps)

	gpu := s.activeSink.Load()
	kept, malformed := false, false
	accepted := s.latch.TryOffer(func(sl *slot) bool {
		if !frameComplete(frame) {
			malformed = true
			return false
		}
		sl.caps = sample.Caps
		if gpu != nil {
			gpu.sink.CopyBufferFromSource(frame, frame.Data, frame.Width, frame.Height)
			if sl.frame != nil && sl.frame != frame {
				sl.frame.Release()
			}
			sl.frame = frame
			kept = true
			return true
		}
		sl.pixels = copyWords(sl.pixels, frame)
		return true
	})

	if !kept {
		frame.Release()
	}

	if malformed {
		s.log.Warn("videobridge: discarding malformed sample",
			"width", frame.Width,
			"height", frame.Height,
			"stride", frame.Stride,
			"bytes", len(frame.Data),
		)
		return
	}
	if !accepted {
		if !s.latch.Closed() {
			metrics.IncDropped(s.id, s.kind)
		}
		return
	}
	metrics.IncProduced(s.id, s.kind)
	s.fireFrameEvent()
}

// onPreroll publishes the negotiated caps of the first (prerolled) buffer
// without latching a frame.
func (s *source) onPreroll(sample *media.Sample) {
	frame := newFrame(sample, s.format)
	defer frame.Release()
	if s.disposed.Load() {
		return
	}
	s.updateSourceCaps(sample.Caps)
}

// updateSourceCaps records the pipeline caps and seeds the requested frame
// rate from them the first time they are known.
func (s *source) updateSourceCaps(c media.Caps) {
	if c.Width <= 0 || c.Height <= 0 {
		return
	}
	if prev := s.srcCaps.Load(); prev == nil || *prev != c {
		caps := c
		s.srcCaps.Store(&caps)
		if prev == nil {
			s.log.Info("videobridge: caps negotiated",
				"width", c.Width,
				"height", c.Height,
				"framerate", c.FrameRate(),
				"format", c.Format,
			)
		}
	}
	if fps := c.FrameRate(); fps > 0 {
		s.frameRate.CompareAndSwap(-1, fps)
	}
}

func frameComplete(f *Frame) bool {
	if f.Width <= 0 || f.Height <= 0 || f.Stride < f.Width*4 {
		return false
	}
	return len(f.Data) >= (f.Height-1)*f.Stride+f.Width*4
}

// copyWords unpacks the frame rows into dst (resized when needed) as native
// endian 32-bit words. The pipeline negotiates the byte order that makes each
// word read back as 0xAARRGGBB.
func copyWords(dst []uint32, f *Frame) []uint32 {
	n := f.Width * f.Height
	if cap(dst) < n {
		dst = make([]uint32, n)
	}
	dst = dst[:n]

	order := binary.NativeEndian
	for y := 0; y < f.Height; y++ {
		row := f.Data[y*f.Stride : y*f.Stride+f.Width*4]
		out := dst[y*f.Width : (y+1)*f.Width]
		for x := range out {
			out[x] = order.Uint32(row[x*4:])
		}
	}
	return dst
}
