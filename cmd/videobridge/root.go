package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/e7canasta/videobridge"
	"github.com/e7canasta/videobridge/internal/config"
	"github.com/e7canasta/videobridge/internal/events"
	"github.com/e7canasta/videobridge/internal/headless"
	"github.com/e7canasta/videobridge/internal/logging"
	"github.com/e7canasta/videobridge/internal/metrics"
	"github.com/e7canasta/videobridge/internal/snapshot"
)

// app carries the resolved configuration to the subcommands.
type app struct {
	configPath string
	cfg        *config.Config
	log        *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "videobridge",
		Short:         "Bridge camera and movie frames into a render loop",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "configuration file (.yaml, .yml or .toml)")
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		newListCmd(a),
		newCaptureCmd(a),
		newPlayCmd(a),
		newViewCmd(a),
	)
	return root
}

// load resolves file, environment and flags, then installs logging.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if err := cfg.ApplyFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	a.cfg = cfg

	logging.Initialize(cfg.Logging)
	a.log = logging.GetLogger("cli")
	a.log.Debug("cli: configuration loaded", "config", a.configPath, "command", cmd.Name())
	return nil
}

func (a *app) sourceOptions(module string, bus *videobridge.EventBus) []videobridge.Option {
	return []videobridge.Option{
		videobridge.WithLogger(logging.GetLogger(module)),
		videobridge.WithEventBus(bus),
	}
}

// newHost builds the headless host; the returned close func flushes the
// snapshot file.
func (a *app) newHost(render func(videobridge.Source) error, out io.Writer) (*headless.Host, func(), error) {
	hc := headless.Config{
		FPS:           a.cfg.Host.FPS,
		GPU:           a.cfg.Host.GPU,
		DataDir:       a.cfg.Host.DataDir,
		StatsInterval: time.Duration(a.cfg.Host.StatsIntervalS) * time.Second,
		SnapshotEvery: a.cfg.Snapshot.Every,
		Render:        render,
		Out:           out,
		Logger:        logging.GetLogger("headless"),
	}

	closeFn := func() {}
	if a.cfg.Snapshot.Path != "" {
		f, err := os.Create(a.cfg.Snapshot.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create snapshot file: %w", err)
		}
		hc.Snapshots = snapshot.NewWriter(f)
		closeFn = func() { f.Close() }
		a.log.Info("cli: snapshots enabled", "path", a.cfg.Snapshot.Path, "every", a.cfg.Snapshot.Every)
	}
	return headless.New(hc), closeFn, nil
}

// bindSink gives a GPU host an in-memory buffer sink.
func (a *app) bindSink(src videobridge.Source) error {
	if !a.cfg.Host.GPU {
		return nil
	}
	return src.SetBufferSink(&headless.MemorySink{})
}

// watchBus logs bus notifications.
func (a *app) watchBus(bus *videobridge.EventBus) func() {
	unsubs := []func(){
		bus.Subscribe(func(e events.PipelineErrorEvent) {
			a.log.Warn("cli: pipeline error", "source_id", e.SourceID, "category", e.Category, "error", e.Message)
		}),
		bus.Subscribe(func(e events.SeekFailedEvent) {
			a.log.Warn("cli: seek failed", "source_id", e.SourceID, "rate", e.Rate)
		}),
		bus.Subscribe(func(e events.StateChangedEvent) {
			a.log.Debug("cli: state changed", "source_id", e.SourceID, "from", e.From, "to", e.To)
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// run drives host on src with the metrics endpoint alongside, until a signal,
// stop, or a component failure.
func (a *app) run(ctx context.Context, host *headless.Host, src videobridge.Source, stop <-chan struct{}) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		return host.Run(ctx, src)
	})

	if stop != nil {
		g.Go(func() error {
			select {
			case <-stop:
				cancel()
			case <-ctx.Done():
			}
			return nil
		})
	}

	if addr := a.cfg.Metrics.Addr; addr != "" {
		g.Go(func() error {
			return metrics.Serve(ctx, addr, logging.GetLogger("metrics"))
		})
	}

	err := g.Wait()
	host.Shutdown()
	return err
}
