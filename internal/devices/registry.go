// Package devices caches capture device enumeration and resolves user-facing
// device names to enumerated devices.
//
// Several devices may share a display name (two identical webcams). Those are
// listed as "<name> #k" where k counts the device among its duplicates, in
// enumeration order, starting at 1.
package devices

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/e7canasta/videobridge/internal/media"
)

// ErrNotFound is returned when no enumerated device matches a name.
var ErrNotFound = errors.New("devices: device not found")

// Enumerator lists devices of a class. media.Backend satisfies it.
type Enumerator interface {
	Devices(class string) ([]media.Device, error)
}

// Registry is an initialised-on-first-use device cache.
type Registry struct {
	mu     sync.Mutex
	enum   Enumerator
	class  string
	cached []media.Device
	loaded bool
}

// NewRegistry creates an empty registry enumerating class through enum.
func NewRegistry(enum Enumerator, class string) *Registry {
	return &Registry{enum: enum, class: class}
}

// Devices returns the cached device list, enumerating on first use.
func (r *Registry) Devices() ([]media.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.loadLocked(); err != nil {
		return nil, err
	}
	return append([]media.Device(nil), r.cached...), nil
}

// List returns the disambiguated display names of the cached devices.
func (r *Registry) List() ([]string, error) {
	devs, err := r.Devices()
	if err != nil {
		return nil, err
	}
	return DisplayNames(devs), nil
}

// Resolve finds the device whose display name, raw name or disambiguated
// display name equals name.
func (r *Registry) Resolve(name string) (media.Device, error) {
	devs, err := r.Devices()
	if err != nil {
		return media.Device{}, err
	}

	names := DisplayNames(devs)
	for i, d := range devs {
		if d.DisplayName == name || d.Name == name || names[i] == name {
			return d, nil
		}
	}
	return media.Device{}, fmt.Errorf("%w: %q (%d devices enumerated)", ErrNotFound, name, len(devs))
}

// Invalidate drops the cache; the next call re-enumerates.
func (r *Registry) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cached = nil
	r.loaded = false
	slog.Debug("devices: cache invalidated", "class", r.class)
}

func (r *Registry) loadLocked() error {
	if r.loaded {
		return nil
	}
	devs, err := r.enum.Devices(r.class)
	if err != nil {
		return fmt.Errorf("devices: enumeration failed: %w", err)
	}
	r.cached = devs
	r.loaded = true
	slog.Debug("devices: enumerated", "class", r.class, "count", len(devs))
	return nil
}

// DisplayNames returns the user-facing name of each device, appending " #k"
// to display names shared by more than one device.
func DisplayNames(devs []media.Device) []string {
	total := make(map[string]int, len(devs))
	for _, d := range devs {
		total[d.DisplayName]++
	}

	seen := make(map[string]int, len(devs))
	out := make([]string, len(devs))
	for i, d := range devs {
		seen[d.DisplayName]++
		if total[d.DisplayName] > 1 {
			out[i] = d.DisplayName + " #" + strconv.Itoa(seen[d.DisplayName])
			continue
		}
		out[i] = d.DisplayName
	}
	return out
}
