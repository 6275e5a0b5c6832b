package gstpipe

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tinyzimmer/go-gst/gst"
)

var (
	// ErrNotInitialized is returned when GStreamer cannot be initialised or
	// lacks its core elements.
	ErrNotInitialized = errors.New("gstpipe: GStreamer not initialized")

	// ErrParse is returned when a custom launch description cannot be parsed.
	ErrParse = errors.New("gstpipe: pipeline parse failed")

	// ErrMissingElement is returned when a required element factory is not
	// installed.
	ErrMissingElement = errors.New("gstpipe: element not available")
)

var (
	initOnce sync.Once
	initErr  error
)

// Init initialises GStreamer once per process and checks that the core
// elements are installed.
func Init() error {
	initOnce.Do(func() {
		gst.Init(nil)
		for _, factory := range []string{"fakesrc", "appsink", "videoconvert"} {
			if _, err := gst.NewElement(factory); err != nil {
				initErr = fmt.Errorf("%w: %s: %v", ErrNotInitialized, factory, err)
				return
			}
		}
	})
	return initErr
}

func newElement(factory string) (*gst.Element, error) {
	e, err := gst.NewElement(factory)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMissingElement, factory, err)
	}
	return e, nil
}
