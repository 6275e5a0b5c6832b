package videobridge

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// SupportedProtocols lists the URI schemes a Movie may open.
var SupportedProtocols = []string{"http"}

// pipelinePrefix marks a capture device string as a custom pipeline.
const pipelinePrefix = "pipeline:"

// Descriptor identifies what a source binds to. Values are immutable.
type Descriptor interface {
	fmt.Stringer
	descriptor()
}

// DefaultDevice selects the platform default capture device.
type DefaultDevice struct{}

// NamedDevice selects an enumerated device by display name, raw name, or
// disambiguated display name ("<name> #k").
type NamedDevice struct{ Name string }

// CustomPipeline is a user-supplied pipeline prefix; the standard tail ending
// in the frame sink is appended.
type CustomPipeline struct{ Launch string }

// LocalFile is a movie on the local filesystem.
type LocalFile struct{ Path string }

// RemoteURI is a movie fetched over one of SupportedProtocols.
type RemoteURI struct {
	URL    string
	Scheme string
}

func (DefaultDevice) descriptor()  {}
func (NamedDevice) descriptor()    {}
func (CustomPipeline) descriptor() {}
func (LocalFile) descriptor()      {}
func (RemoteURI) descriptor()      {}

func (DefaultDevice) String() string    { return "default-device" }
func (d NamedDevice) String() string    { return "device:" + d.Name }
func (d CustomPipeline) String() string { return pipelinePrefix + d.Launch }
func (d LocalFile) String() string      { return "file:" + d.Path }
func (d RemoteURI) String() string      { return d.URL }

// URI returns the file:// URI of the movie.
func (d LocalFile) URI() string {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(d.Path)}).String()
}

// ParseDevice maps a capture device string to a descriptor:
//
//	""                 → DefaultDevice
//	"pipeline:<launch>"  → CustomPipeline{launch}
//	anything else      → NamedDevice
func ParseDevice(device string) Descriptor {
	device = strings.TrimSpace(device)
	switch {
	case device == "":
		return DefaultDevice{}
	case strings.HasPrefix(device, pipelinePrefix):
		return CustomPipeline{Launch: strings.TrimSpace(device[len(pipelinePrefix):])}
	default:
		return NamedDevice{Name: device}
	}
}

// ResolveMovie locates filename, trying in order: the host data path, the
// literal path, then each supported URI scheme. host may be nil.
func ResolveMovie(filename string, host Host) (Descriptor, error) {
	if filename == "" {
		return nil, fmt.Errorf("%w: empty filename", ErrFileNotFound)
	}

	if host != nil {
		if p := host.DataPath(filename); p != "" && fileExists(p) {
			return localFile(p), nil
		}
	}
	if fileExists(filename) {
		return localFile(filename), nil
	}

	if scheme, _, ok := strings.Cut(filename, "://"); ok {
		scheme = strings.ToLower(scheme)
		if !slices.Contains(SupportedProtocols, scheme) {
			return nil, fmt.Errorf("%w: %q (supported: %v)", ErrUnsupportedScheme, scheme, SupportedProtocols)
		}
		if _, err := url.Parse(filename); err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrFileNotFound, filename, err)
		}
		return RemoteURI{URL: filename, Scheme: scheme}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrFileNotFound, filename)
}

func localFile(p string) LocalFile {
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	return LocalFile{Path: p}
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
