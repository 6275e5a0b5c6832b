package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/e7canasta/videobridge"
)

func newCaptureCmd(a *app) *cobra.Command {
	var maxFrames uint64

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture from a device headless and report stats",
		Example: `  videobridge capture --device "Integrated Camera" --fps 15
  videobridge capture --device "pipeline:videotestsrc pattern=ball" --snapshot frames.msgpack`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bus := videobridge.NewEventBus()
			defer a.watchBus(bus)()

			host, closeSnapshots, err := a.newHost(nil, os.Stdout)
			if err != nil {
				return err
			}
			defer closeSnapshots()

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

			a.log.Info("cli: capturing", "device", c.Device().String(), "source_id", c.ID())
			host.SetMaxFrames(maxFrames)
			return a.run(cmd.Context(), host, c, nil)
		},
	}
	cmd.Flags().Uint64Var(&maxFrames, "max-frames", 0, "stop after this many frames (0 = unlimited)")
	return cmd
}
