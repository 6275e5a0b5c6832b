package videobridge

import (
	"time"

	"github.com/e7canasta/videobridge/internal/events"
	"github.com/e7canasta/videobridge/internal/media"
)

// Movie plays a local file or an HTTP URI.
type Movie struct {
	*source
	filename string
	desc     Descriptor
}

// NewMovie opens filename, looked up in the host data path, as a literal
// path, then as a URI of a supported scheme. host may be nil.
func NewMovie(host Host, filename string, opts ...Option) (*Movie, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	desc, err := ResolveMovie(filename, host)
	if err != nil {
		return nil, err
	}

	backend, err := o.resolveBackend()
	if err != nil {
		return nil, err
	}

	consumer := consumerFor(host, o)
	format := SelectPixelFormat(NativeByteOrder(), consumer)

	var uri string
	switch d := desc.(type) {
	case LocalFile:
		uri = d.URI()
	case RemoteURI:
		uri = d.URL
	}

	pipe, err := backend.NewPlayback(media.PlaybackSpec{URI: uri, Format: string(format)})
	if err != nil {
		return nil, wrapBuildError("build playback pipeline", err)
	}

	m := &Movie{
		source:   newSource("movie", host, o, pipe, consumer, format),
		filename: filename,
		desc:     desc,
	}
	m.pauseForSeek = true
	m.bind(m, movieHandler(host, o.handler), m.onEOS)

	m.log.Info("videobridge: movie opened",
		"source", desc.String(),
		"format", format,
		"consumer", consumer,
	)
	return m, nil
}

func movieHandler(host Host, explicit func(Source) error) func(Source) error {
	if explicit != nil {
		return explicit
	}
	if h, ok := host.(MovieEventHandler); ok {
		return func(src Source) error {
			if m, ok := src.(*Movie); ok {
				h.MovieEvent(m)
			}
			return nil
		}
	}
	if h, ok := host.(FrameEventHandler); ok {
		return h.FrameEvent
	}
	return nil
}

// Filename returns the name the movie was opened with.
func (m *Movie) Filename() string { return m.filename }

// Descriptor returns the resolved movie location.
func (m *Movie) Descriptor() Descriptor { return m.desc }

// Play starts or resumes playback.
func (m *Movie) Play() error { return m.play() }

// Pause pauses playback.
func (m *Movie) Pause() error { return m.pause() }

// Stop stops playback, rewinding to the start, and sets the pipeline to NULL.
func (m *Movie) Stop() error { return m.stop(true) }

// Loop makes end of stream wrap around: to the start going forward, to the
// end going backwards.
func (m *Movie) Loop() {
	m.looping.Store(true)
}

// NoLoop makes end of stream stop playback.
func (m *Movie) NoLoop() {
	m.looping.Store(false)
}

// IsPlaying reports whether the movie is playing.
func (m *Movie) IsPlaying() bool { return m.State() == StatePlaying }

// IsPaused reports whether the movie is paused.
func (m *Movie) IsPaused() bool { return m.State() == StatePaused }

// Speed sets the signed playback rate (negative plays backwards). Changes
// of 0.1 or less are ignored.
func (m *Movie) Speed(rate float64) { m.speed(rate) }

// Jump seeks to seconds, snapped to the nearest frame.
func (m *Movie) Jump(seconds float64) { m.jump(seconds) }

// Time returns the playback position in seconds.
func (m *Movie) Time() float64 { return m.position() }

// Duration returns the movie length in seconds, 0 while unknown.
func (m *Movie) Duration() float64 { return m.duration() }

// Volume sets the audio volume in [0, 1]. Applied only while playing.
func (m *Movie) Volume(v float64) { m.setVolume(v) }

// onEOS wraps a looping movie around, direction aware, and stops one that
// does not loop.
func (m *Movie) onEOS() {
	if m.disposed.Load() {
		return
	}
	looping := m.looping.Load()
	rate := m.rate.Load()
	m.bus.Publish(events.EndOfStreamEvent{
		SourceID:  m.id,
		Looping:   looping,
		Rate:      rate,
		Timestamp: time.Now(),
	})

	if !looping {
		m.log.Info("videobridge: movie reached end of stream")
		m.mu.Lock()
		defer m.mu.Unlock()
		m.stopLocked(false)
		return
	}

	m.log.Debug("videobridge: end of stream, looping", "rate", rate)
	m.pipe.Invoke(func() {
		if m.disposed.Load() {
			return
		}
		var target int64
		if rate < 0 {
			if d, ok := m.pipe.QueryDuration(); ok {
				target = d
			}
		}
		m.seekTo(target)
		// The wrap seek resets the pipeline rate; reassert it.
		m.rateSeek(1)
	})
}
