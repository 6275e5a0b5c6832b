package main

import (
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/e7canasta/videobridge"
	"github.com/e7canasta/videobridge/internal/events"
	"github.com/e7canasta/videobridge/internal/headless"
)

func newPlayCmd(a *app) *cobra.Command {
	var maxFrames uint64

	cmd := &cobra.Command{
		Use:   "play <file|http-uri>",
		Short: "Play a movie headless and report stats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bus := videobridge.NewEventBus()
			defer a.watchBus(bus)()

			host, closeSnapshots, err := a.newHost(nil, os.Stdout)
			if err != nil {
				return err
			}
			defer closeSnapshots()

			m, err := a.openMovie(host, args[0], bus)
			if err != nil {
				return err
			}
			defer m.Dispose()

			stop, unsub := stopAtEnd(bus, m)
			defer unsub()
			host.SetMaxFrames(maxFrames)
			return a.run(cmd.Context(), host, m, stop)
		},
	}
	cmd.Flags().Uint64Var(&maxFrames, "max-frames", 0, "stop after this many frames (0 = unlimited)")
	return cmd
}

// openMovie opens name and applies the movie settings.
func (a *app) openMovie(host *headless.Host, name string, bus *videobridge.EventBus) (*videobridge.Movie, error) {
	m, err := videobridge.NewMovie(host, name, a.sourceOptions("movie", bus)...)
	if err != nil {
		return nil, err
	}
	if err := a.bindSink(m); err != nil {
		m.Dispose()
		return nil, err
	}

	mc := a.cfg.Movie
	if mc.Loop {
		m.Loop()
	}
	if err := m.Play(); err != nil {
		m.Dispose()
		return nil, err
	}
	m.Volume(mc.Volume)
	m.Speed(mc.Speed)

	a.log.Info("cli: playing", "movie", m.Descriptor().String(), "loop", mc.Loop, "speed", mc.Speed)
	return m, nil
}

// stopAtEnd closes the returned channel when a movie that does not loop
// reaches its end. The second result unsubscribes.
func stopAtEnd(bus *videobridge.EventBus, m *videobridge.Movie) (<-chan struct{}, func()) {
	stop := make(chan struct{})
	var once sync.Once
	unsub := bus.Subscribe(func(e events.EndOfStreamEvent) {
		if e.SourceID != m.ID() || e.Looping {
			return
		}
		once.Do(func() { close(stop) })
	})
	return stop, unsub
}
