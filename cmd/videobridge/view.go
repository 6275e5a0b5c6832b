package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/e7canasta/videobridge"
	"github.com/e7canasta/videobridge/internal/termview"
)

const seekStep = 5.0 // seconds

func newViewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "view [file|http-uri]",
		Short: "Show a movie, or the capture device when no movie is given, in the terminal",
		Long: `Renders frames with half blocks. Keys: q quit, space pause, ←/→ seek,
+/- speed, r reverse, l loop, Home restart.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := termview.New()
			if err != nil {
				return err
			}
			defer view.Close()

			bus := videobridge.NewEventBus()
			defer a.watchBus(bus)()

			// Stats boxes would scribble over the screen.
			a.cfg.Host.StatsIntervalS = 0
			host, closeSnapshots, err := a.newHost(view.Draw, io.Discard)
			if err != nil {
				return err
			}
			defer closeSnapshots()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			var src videobridge.Source
			var m *videobridge.Movie
			if len(args) == 1 {
				m, err = a.openMovie(host, args[0], bus)
				if err != nil {
					return err
				}
				defer m.Dispose()
				src = m
			} else {
				cc := a.cfg.Capture
				opts := append(a.sourceOptions("capture", bus),
					videobridge.WithDevice(cc.Device),
					videobridge.WithSize(cc.Width, cc.Height),
					videobridge.WithFrameRate(cc.FPS),
				)
				c, err := videobridge.NewCapture(host, opts...)
				if err != nil {
					return err
				}
				defer c.Dispose()
				if err := a.bindSink(c); err != nil {
					return err
				}
				if err := c.Start(); err != nil {
					return err
				}
				src = c
			}

			go func() {
				for action := range view.Actions(ctx) {
					if action == termview.ActionQuit {
						cancel()
						return
					}
					if m != nil {
						applyAction(m, action)
					}
					view.SetStatus(statusLine(src, m))
				}
			}()
			view.SetStatus(statusLine(src, m))

			return a.run(ctx, host, src, nil)
		},
	}
}

// applyAction maps a key action onto the movie controls.
func applyAction(m *videobridge.Movie, action termview.Action) {
	switch action {
	case termview.ActionTogglePause:
		if m.IsPlaying() {
			m.Pause()
		} else {
			m.Play()
		}
	case termview.ActionSeekBack:
		m.Jump(max(m.Time()-seekStep, 0))
	case termview.ActionSeekForward:
		m.Jump(m.Time() + seekStep)
	case termview.ActionFaster:
		m.Speed(m.Rate() * 2)
	case termview.ActionSlower:
		m.Speed(m.Rate() / 2)
	case termview.ActionReverse:
		m.Speed(-m.Rate())
	case termview.ActionToggleLoop:
		if m.IsLooping() {
			m.NoLoop()
		} else {
			m.Loop()
		}
	case termview.ActionRestart:
		m.Jump(0)
	}
}

func statusLine(src videobridge.Source, m *videobridge.Movie) string {
	st := src.Stats()
	if m == nil {
		return fmt.Sprintf(" %s  %s  %.1f fps  q quit", st.Kind, st.Resolution, st.FPSRead)
	}
	return fmt.Sprintf(" %s  %.1f/%.1fs  rate %.2f  loop %v  %s  q quit",
		st.State, m.Time(), m.Duration(), m.Rate(), m.IsLooping(), st.Resolution)
}
