// Package headless is a videobridge host without a window: a ticker drives
// the render loop, reads frames from one source, optionally snapshots them,
// and runs the post hooks once per tick.
package headless

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/e7canasta/videobridge"
	"github.com/e7canasta/videobridge/internal/snapshot"
)

// Config configures a Host.
type Config struct {
	// FPS is the render loop rate (default 60)
	FPS float64
	// GPU makes sources prefer the buffer sink path
	GPU bool
	// DataDir is searched first when opening movies
	DataDir string
	// StatsInterval between stats reports, 0 disables them
	StatsInterval time.Duration
	// MaxFrames stops the loop after that many reads, 0 = unlimited
	MaxFrames uint64
	// Snapshots receives every SnapshotEvery-th frame when set
	Snapshots     *snapshot.Writer
	SnapshotEvery int
	// Render is called after every read frame; an error ends the loop
	Render func(src videobridge.Source) error
	// Out receives stats reports (default os.Stdout)
	Out    io.Writer
	Logger *slog.Logger
}

// Host implements videobridge.Host.
type Host struct {
	cfg   Config
	log   *slog.Logger
	hooks *videobridge.HookRegistry

	ticks     atomic.Uint64
	frames    atomic.Uint64
	snapshots atomic.Uint64
}

var _ videobridge.Host = (*Host)(nil)

// New creates a Host.
func New(cfg Config) *Host {
	if cfg.FPS <= 0 {
		cfg.FPS = 60
	}
	if cfg.SnapshotEvery <= 0 {
		cfg.SnapshotEvery = 1
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Host{
		cfg:   cfg,
		log:   cfg.Logger,
		hooks: videobridge.NewHookRegistry(),
	}
}

func (h *Host) DataPath(name string) string {
	if h.cfg.DataDir == "" {
		return ""
	}
	return filepath.Join(h.cfg.DataDir, name)
}

func (h *Host) IsGPU() bool                      { return h.cfg.GPU }
func (h *Host) Hooks() *videobridge.HookRegistry { return h.hooks }

// SetMaxFrames changes the frame limit. Call before Run.
func (h *Host) SetMaxFrames(n uint64) { h.cfg.MaxFrames = n }

// Frames returns the number of frames read by the loop.
func (h *Host) Frames() uint64 { return h.frames.Load() }

// Snapshots returns the number of snapshots written.
func (h *Host) Snapshots() uint64 { return h.snapshots.Load() }

// Ticks returns the number of render loop iterations.
func (h *Host) Ticks() uint64 { return h.ticks.Load() }

// Run drives the render loop on src until ctx is done, MaxFrames is reached,
// or Render fails. Cancellation is not an error.
func (h *Host) Run(ctx context.Context, src videobridge.Source) error {
	interval := time.Duration(float64(time.Second) / h.cfg.FPS)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var statsC <-chan time.Time
	if h.cfg.StatsInterval > 0 {
		st := time.NewTicker(h.cfg.StatsInterval)
		defer st.Stop()
		statsC = st.C
	}

	h.log.Info("headless: render loop started",
		"source_id", src.ID(),
		"fps", h.cfg.FPS,
		"gpu", h.cfg.GPU,
	)
	start := time.Now()

	for {
		select {
		case <-ctx.Done():
			h.log.Info("headless: render loop stopped",
				"frames", h.frames.Load(),
				"uptime", time.Since(start).Round(time.Millisecond),
			)
			return nil

		case <-statsC:
			PrintStats(h.cfg.Out, src.Stats())

		case <-ticker.C:
			done, err := h.tick(src)
			if err != nil {
				return err
			}
			if done {
				h.log.Info("headless: frame limit reached", "frames", h.frames.Load())
				return nil
			}
		}
	}
}

// tick is one render loop iteration.
func (h *Host) tick(src videobridge.Source) (done bool, err error) {
	h.ticks.Add(1)
	defer h.hooks.RunPost()

	if !src.Available() || !src.Read() {
		return false, nil
	}
	n := h.frames.Add(1)

	if h.cfg.Snapshots != nil && n%uint64(h.cfg.SnapshotEvery) == 0 {
		if _, err := h.cfg.Snapshots.Write(src.ID(), src.Width(), src.Height(), src.Pixels()); err != nil {
			h.log.Warn("headless: snapshot failed", "error", err, "frame", n)
		} else {
			h.snapshots.Add(1)
		}
	}

	if h.cfg.Render != nil {
		if err := h.cfg.Render(src); err != nil {
			return true, fmt.Errorf("headless: render: %w", err)
		}
	}
	return h.cfg.MaxFrames > 0 && n >= h.cfg.MaxFrames, nil
}

// Shutdown runs the dispose hooks of every source still registered.
func (h *Host) Shutdown() {
	h.log.Debug("headless: shutdown", "sources", h.hooks.Len())
	h.hooks.RunDispose()
}
