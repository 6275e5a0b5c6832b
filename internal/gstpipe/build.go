package gstpipe

import (
	"fmt"
	"log/slog"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/e7canasta/videobridge/internal/media"
)

// launchTail is appended to custom launch descriptions.
const launchTail = " ! videorate ! videoscale ! videoconvert ! appsink name=sink"

// buildCapture assembles a capture chain. The pipeline is configured but NOT
// started (state remains NULL).
func buildCapture(log *slog.Logger, spec media.CaptureSpec) (*Pipeline, error) {
	if spec.Launch != "" {
		return buildLaunch(log, spec)
	}

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("gstpipe: create pipeline: %w", err)
	}

	src, err := sourceElement(spec.Device)
	if err != nil {
		return nil, err
	}
	scaler, err := newElement("videoscale")
	if err != nil {
		return nil, err
	}
	converter, err := newElement("videoconvert")
	if err != nil {
		return nil, err
	}
	capsfilter, err := newElement("capsfilter")
	if err != nil {
		return nil, err
	}

	capsStr := media.RawCaps(spec.Format, spec.Width, spec.Height, spec.FramerateNum, spec.FramerateDen)
	capsfilter.SetProperty("caps", gst.NewCapsFromString(capsStr))

	sink, err := newAppSink(spec.Format, false)
	if err != nil {
		return nil, err
	}

	pipeline.AddMany(src, scaler, converter, capsfilter, sink.Element)
	if err := gst.ElementLinkMany(src, scaler, converter, capsfilter, sink.Element); err != nil {
		return nil, fmt.Errorf("gstpipe: link capture chain: %w", err)
	}

	device := "default"
	if spec.Device != nil {
		device = spec.Device.DisplayName
	}
	log.Info("gstpipe: capture pipeline created",
		"device", device,
		"caps", capsStr,
	)
	return newPipeline(log, pipeline, sink, nil), nil
}

func sourceElement(dev *media.Device) (*gst.Element, error) {
	if dev == nil {
		return newElement("autovideosrc")
	}
	gdev, ok := dev.Ref.(*gst.Device)
	if !ok || gdev == nil {
		return nil, fmt.Errorf("gstpipe: device %q was not enumerated by this backend", dev.DisplayName)
	}
	src := gdev.CreateElement("")
	if src == nil {
		return nil, fmt.Errorf("%w: source for device %q", ErrMissingElement, dev.DisplayName)
	}
	return src, nil
}

// buildLaunch parses a user launch description with the standard tail and
// finds the appsink by name.
func buildLaunch(log *slog.Logger, spec media.CaptureSpec) (*Pipeline, error) {
	launch := spec.Launch + launchTail
	pipeline, err := gst.NewPipelineFromString(launch)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrParse, spec.Launch, err)
	}

	elem, err := pipeline.GetElementByName("sink")
	if err != nil || elem == nil {
		return nil, fmt.Errorf("%w: appsink not found in %q", ErrParse, launch)
	}
	sink := app.SinkFromElement(elem)
	if sink == nil {
		return nil, fmt.Errorf("%w: element \"sink\" is not an appsink", ErrParse)
	}

	capsStr := media.RawCaps(spec.Format, spec.Width, spec.Height, spec.FramerateNum, spec.FramerateDen)
	configureAppSink(sink, capsStr, false)

	log.Info("gstpipe: custom pipeline created", "launch", launch, "caps", capsStr)
	return newPipeline(log, pipeline, sink, nil), nil
}

// buildPlayback assembles playbin with an appsink as its video sink.
func buildPlayback(log *slog.Logger, spec media.PlaybackSpec) (*Pipeline, error) {
	if spec.URI == "" {
		return nil, fmt.Errorf("gstpipe: playback needs a URI")
	}

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("gstpipe: create pipeline: %w", err)
	}
	playbin, err := newElement("playbin")
	if err != nil {
		return nil, err
	}
	sink, err := newAppSink(spec.Format, true)
	if err != nil {
		return nil, err
	}

	playbin.SetProperty("uri", spec.URI)
	playbin.SetProperty("video-sink", sink.Element)
	if err := pipeline.Add(playbin); err != nil {
		return nil, fmt.Errorf("gstpipe: add playbin: %w", err)
	}

	log.Info("gstpipe: playback pipeline created", "uri", spec.URI, "format", spec.Format)
	return newPipeline(log, pipeline, sink, playbin), nil
}

func newAppSink(format string, sync bool) (*app.Sink, error) {
	sink, err := app.NewAppSink()
	if err != nil {
		return nil, fmt.Errorf("%w: appsink: %v", ErrMissingElement, err)
	}
	configureAppSink(sink, media.RawCaps(format, 0, 0, 0, 0), sync)
	return sink, nil
}

// configureAppSink pins the raw format and keeps only the latest buffer.
// Playback syncs to the clock; capture delivers as fast as it produces.
func configureAppSink(sink *app.Sink, caps string, sync bool) {
	sink.SetCaps(gst.NewCapsFromString(caps))
	sink.SetProperty("sync", sync)
	sink.SetProperty("max-buffers", 1)
	sink.SetProperty("drop", true)
}
