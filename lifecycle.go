package videobridge

import (
	"time"

	"github.com/e7canasta/videobridge/internal/events"
	"github.com/e7canasta/videobridge/internal/media"
	"github.com/e7canasta/videobridge/internal/metrics"
)

// State returns the lifecycle state.
func (s *source) State() State { return State(s.state.Load()) }

// setStateLocked records a lifecycle transition. Caller holds s.mu.
func (s *source) setStateLocked(to State) {
	from := State(s.state.Swap(int32(to)))
	if from == to {
		return
	}
	s.log.Debug("videobridge: state changed", "from", from, "to", to)
	s.bus.Publish(events.StateChangedEvent{
		SourceID:  s.id,
		Kind:      s.kind,
		From:      from.String(),
		To:        to.String(),
		Timestamp: time.Now(),
	})
}

// applyState drives the pipeline to target and waits for it to settle. Runs
// on the pipeline task queue.
func (s *source) applyState(target media.State) {
	if err := s.pipe.SetState(target); err != nil {
		s.log.Warn("videobridge: pipeline state change failed", "target", target, "error", err)
		return
	}
	if got, err := s.pipe.WaitState(seekTimeout); err != nil {
		s.log.Warn("videobridge: pipeline state change did not settle",
			"target", target,
			"state", got,
			"error", err,
		)
	}
}

func (s *source) postState(target media.State) {
	s.pipe.Invoke(func() {
		if s.disposed.Load() {
			return
		}
		s.applyState(target)
	})
}

// SetReady brings the pipeline to READY. Idempotent; Start and Play call it
// implicitly.
func (s *source) SetReady() error {
	if s.disposed.Load() {
		return ErrDisposed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setReadyLocked()
	return nil
}

func (s *source) setReadyLocked() {
	if s.ready {
		return
	}
	s.ready = true
	s.latch.ResetNewFrame()
	s.postState(media.StateReady)
	if st := s.State(); st == StateUninit || st == StateStopped {
		s.setStateLocked(StateReady)
	}
}

// play moves Ready, Paused or Stopped to Playing, passing through READY when
// needed.
func (s *source) play() error {
	if s.disposed.Load() {
		return ErrDisposed
	}
	if s.seeking.Load() {
		s.log.Debug("videobridge: play ignored while seeking")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State() == StatePlaying {
		return nil
	}
	s.setReadyLocked()
	s.postState(media.StatePlaying)
	s.setStateLocked(StatePlaying)
	s.log.Info("videobridge: playing", "rate", s.rate.Load(), "looping", s.looping.Load())
	return nil
}

// pause moves Playing to Paused.
func (s *source) pause() error {
	if s.disposed.Load() {
		return ErrDisposed
	}
	if s.seeking.Load() {
		s.log.Debug("videobridge: pause ignored while seeking")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State() != StatePlaying {
		return nil
	}
	s.postState(media.StatePaused)
	s.setStateLocked(StatePaused)
	return nil
}

// stop moves Ready, Playing or Paused to Stopped (pipeline NULL). With
// rewind, a playing source is first sought back to the start.
func (s *source) stop(rewind bool) error {
	if s.disposed.Load() {
		return ErrDisposed
	}
	if s.seeking.Load() {
		s.log.Debug("videobridge: stop ignored while seeking")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked(rewind)
	return nil
}

func (s *source) stopLocked(rewind bool) {
	switch s.State() {
	case StateReady, StatePlaying, StatePaused:
	default:
		return
	}

	if rewind && s.State() == StatePlaying {
		s.pipe.Invoke(func() {
			if s.disposed.Load() {
				return
			}
			s.seekTo(0)
		})
	}
	s.postState(media.StateNull)
	s.ready = false
	s.setStateLocked(StateStopped)
	s.log.Info("videobridge: stopped")
}

// Dispose tears the source down: pipeline to NULL, task queue drained,
// callbacks disconnected, latched frame released, host hooks unregistered.
// Safe to call more than once.
func (s *source) Dispose() {
	if !s.disposed.CompareAndSwap(false, true) {
		return
	}

	s.pipe.Disconnect()
	if err := s.pipe.Close(); err != nil {
		s.log.Warn("videobridge: pipeline close failed", "error", err)
	}

	s.latch.Close()
	s.latch.With(func(sl *slot) {
		if sl.frame != nil {
			sl.frame.Release()
			sl.frame = nil
		}
		sl.pixels = nil
	})

	if b := s.activeSink.Swap(nil); b != nil {
		b.sink.DisposeSourceBuffer()
	}
	s.hooks.Unregister()
	s.handler.Store(nil)

	s.mu.Lock()
	s.ready = false
	s.setStateLocked(StateDisposed)
	s.mu.Unlock()

	metrics.SourceDisposed(s.id, s.kind)
	s.log.Info("videobridge: source disposed")
}
