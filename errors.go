package videobridge

import "errors"

var (
	// ErrDeviceNotFound is returned when a named capture device cannot be resolved
	ErrDeviceNotFound = errors.New("videobridge: capture device not found")

	// ErrFileNotFound is returned when no path strategy locates a movie file
	ErrFileNotFound = errors.New("videobridge: movie file not found")

	// ErrUnsupportedScheme is returned for URIs outside SupportedProtocols
	ErrUnsupportedScheme = errors.New("videobridge: unsupported URI scheme")

	// ErrInvalidFramerate is returned for negative or NaN frame rates, and for
	// a zero frame rate on device capture chains
	ErrInvalidFramerate = errors.New("videobridge: invalid frame rate")

	// ErrInvalidSize is returned for non-positive capture dimensions
	ErrInvalidSize = errors.New("videobridge: invalid capture size")

	// ErrPipelineParse is returned when a custom pipeline description cannot be parsed
	ErrPipelineParse = errors.New("videobridge: pipeline parse failed")

	// ErrMissingCapability is returned when a buffer sink lacks a required method
	ErrMissingCapability = errors.New("videobridge: buffer sink missing capability")

	// ErrBufferSinkDisabled is returned by SetBufferSink on sources built
	// without buffer sink support
	ErrBufferSinkDisabled = errors.New("videobridge: buffer sink disabled for this source")

	// ErrDisposed is returned by operations on a disposed source
	ErrDisposed = errors.New("videobridge: source disposed")

	// ErrGStreamerUnavailable is returned when the media backend cannot be initialised
	ErrGStreamerUnavailable = errors.New("videobridge: GStreamer not available")
)
