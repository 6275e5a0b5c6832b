package videobridge

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/e7canasta/videobridge/internal/events"
	"github.com/e7canasta/videobridge/internal/media"
	"github.com/e7canasta/videobridge/internal/metrics"
)

const (
	// seekTimeout bounds the wait for a flushing seek or state change to
	// settle on the pipeline task queue.
	seekTimeout = 5 * time.Second

	// speedThreshold is the smallest rate change Speed acts on.
	speedThreshold = 0.1

	volumeEpsilon = 0.001
)

type atomicFloat struct {
	bits atomic.Uint64
}

func (f *atomicFloat) Load() float64 { return math.Float64frombits(f.bits.Load()) }

func (f *atomicFloat) Store(v float64) { f.bits.Store(math.Float64bits(v)) }

func (f *atomicFloat) CompareAndSwap(old, new float64) bool {
	return f.bits.CompareAndSwap(math.Float64bits(old), math.Float64bits(new))
}

// FrameRate retargets the delivery rate to fps frames per second.
//
// The pipeline keeps its negotiated frame rate; what changes is the playback
// rate, scaled by fps over the current target with a seek that keeps the
// direction of travel. The seek runs on the pipeline task queue, so FrameRate
// is safe to call from a frame callback.
//
// A zero or negative fps, or an unknown current target, leaves the rate
// magnitude unchanged: the seek reasserts the current rate and fps becomes
// the new target.
func (s *source) FrameRate(fps float64) {
	if s.disposed.Load() {
		return
	}
	if math.IsNaN(fps) || math.IsInf(fps, 0) {
		s.log.Warn("videobridge: ignoring invalid frame rate", "fps", fps)
		return
	}
	if s.seeking.Load() {
		s.log.Debug("videobridge: frame rate change ignored while seeking", "fps", fps)
		return
	}

	f := 1.0
	if cur := s.frameRate.Load(); fps > 0 && cur > 0 {
		f = fps / cur
	}
	s.frameRate.Store(fps)
	s.postRateSeek(f)
}

// TargetFrameRate returns the frame rate last requested through FrameRate, the
// negotiated rate if none was requested, or -1 while unknown.
func (s *source) TargetFrameRate() float64 { return s.frameRate.Load() }

// Rate returns the signed rate multiplier set through Speed.
func (s *source) Rate() float64 { return s.rate.Load() }

// AppliedRate returns the signed rate of the last accepted seek.
func (s *source) AppliedRate() float64 { return s.applied.Load() }

func (s *source) postRateSeek(f float64) {
	s.pipe.Invoke(func() {
		if s.disposed.Load() {
			return
		}
		s.rateSeek(f)
	})
}

// rateSeek changes the rate magnitude by f without changing direction: going
// forward the current position becomes the segment start, going backwards it
// becomes the segment stop. Runs on the pipeline task queue.
func (s *source) rateSeek(f float64) {
	pause := s.pauseForSeek && s.State() == StatePlaying
	if pause {
		s.applyState(media.StatePaused)
	}

	pos, ok := s.pipe.QueryPosition()
	if !ok || pos < 0 {
		pos = 0
	}

	rate := s.rate.Load()
	req := media.SeekRequest{
		Rate:  rate * f,
		Flags: media.SeekFlagFlush | media.SeekFlagAccurate,
	}
	if rate > 0 {
		req.StartType, req.Start = media.SeekTypeSet, pos
		req.StopType, req.Stop = media.SeekTypeNone, -1
	} else {
		req.StartType, req.Start = media.SeekTypeSet, 0
		req.StopType, req.Stop = media.SeekTypeSet, pos
	}
	s.seek(req)

	if pause && s.State() == StatePlaying {
		s.applyState(media.StatePlaying)
	}
}

// seekTo moves the playback head to pos nanoseconds at the current rate.
// Runs on the pipeline task queue.
func (s *source) seekTo(pos int64) bool {
	return s.seek(media.SeekRequest{
		Rate:      s.rate.Load(),
		Flags:     media.SeekFlagFlush | media.SeekFlagAccurate,
		StartType: media.SeekTypeSet,
		Start:     pos,
		StopType:  media.SeekTypeNone,
		Stop:      -1,
	})
}

func (s *source) seek(req media.SeekRequest) bool {
	ok := s.pipe.Seek(req)
	if ok {
		if _, err := s.pipe.WaitState(seekTimeout); err != nil {
			s.log.Warn("videobridge: seek did not settle", "seek", req, "error", err)
			ok = false
		}
	}
	if !ok {
		s.seekFailures.Add(1)
		metrics.IncSeekFailure(s.id, s.kind)
		s.log.Warn("videobridge: seek failed", "seek", req, "state", s.State())
		s.bus.Publish(events.SeekFailedEvent{
			SourceID:  s.id,
			Rate:      req.Rate,
			Start:     req.Start,
			Stop:      req.Stop,
			Timestamp: time.Now(),
		})
		return false
	}

	s.applied.Store(req.Rate)
	metrics.SetRate(s.id, s.kind, req.Rate)
	s.log.Debug("videobridge: seek applied", "seek", req)
	return true
}

// speed sets the signed rate multiplier. Changes of speedThreshold or less are
// ignored.
func (s *source) speed(r float64) {
	if s.disposed.Load() {
		return
	}
	if math.IsNaN(r) || math.IsInf(r, 0) || r == 0 {
		s.log.Warn("videobridge: ignoring invalid rate", "rate", r)
		return
	}
	if math.Abs(s.rate.Load()-r) <= speedThreshold {
		return
	}

	s.rate.Store(r)
	if s.seeking.Load() {
		s.log.Debug("videobridge: rate stored, seek deferred while seeking", "rate", r)
		return
	}
	s.postRateSeek(1)
}

// jump seeks to sec seconds, snapped to the nearest frame boundary when the
// source frame rate is known. A jump already in flight makes this a no-op.
func (s *source) jump(sec float64) {
	if s.disposed.Load() {
		return
	}
	if math.IsNaN(sec) || math.IsInf(sec, 0) {
		s.log.Warn("videobridge: ignoring invalid jump target", "seconds", sec)
		return
	}
	if !s.seeking.CompareAndSwap(false, true) {
		s.log.Debug("videobridge: jump ignored while seeking", "seconds", sec)
		return
	}

	pos := toNanos(snapToFrame(sec, s.SourceFrameRate()))
	s.pipe.Invoke(func() {
		defer s.seeking.Store(false)
		if s.disposed.Load() {
			return
		}
		s.seekTo(pos)
	})
}

// Seeking reports whether a jump is in flight.
func (s *source) Seeking() bool { return s.seeking.Load() }

func snapToFrame(sec, fps float64) float64 {
	if sec < 0 {
		sec = 0
	}
	if fps > 0 {
		sec = math.Round(sec*fps) / fps
	}
	return sec
}

func toNanos(sec float64) int64 { return int64(math.Round(sec * float64(time.Second))) }

func toSeconds(ns int64) float64 { return float64(ns) / float64(time.Second) }

// position returns the playback position in seconds (0 when unknown).
func (s *source) position() float64 {
	if s.disposed.Load() {
		return 0
	}
	pos, ok := s.pipe.QueryPosition()
	if !ok || pos < 0 {
		return 0
	}
	return toSeconds(pos)
}

// duration returns the stream duration in seconds (0 when unknown).
func (s *source) duration() float64 {
	if s.disposed.Load() {
		return 0
	}
	d, ok := s.pipe.QueryDuration()
	if !ok || d < 0 {
		return 0
	}
	return toSeconds(d)
}

// setVolume applies v (clamped to [0, 1]) while playing.
func (s *source) setVolume(v float64) {
	if s.disposed.Load() || math.IsNaN(v) {
		return
	}
	v = math.Max(0, math.Min(1, v))

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State() != StatePlaying || math.Abs(s.volume-v) <= volumeEpsilon {
		return
	}
	s.volume = v
	s.pipe.Invoke(func() {
		if s.disposed.Load() {
			return
		}
		if err := s.pipe.SetVolume(v); err != nil {
			s.log.Warn("videobridge: set volume failed", "volume", v, "error", err)
		}
	})
}
