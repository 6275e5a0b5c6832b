// Package gstpipe is the GStreamer implementation of media.Backend.
//
// Capture chains:
//
//	autovideosrc | <device element> → videoscale → videoconvert → capsfilter → appsink
//	<custom launch> ! videorate ! videoscale ! videoconvert ! appsink name=sink
//
// Playback chain:
//
//	playbin(uri, video-sink=appsink)
//
// Every appsink keeps only the latest buffer (max-buffers=1, drop=true) and is
// pinned to a packed 32-bit raw format. Bus messages are polled on a dedicated
// goroutine per pipeline; seeks and state changes go through the pipeline's
// media.TaskQueue.
package gstpipe
