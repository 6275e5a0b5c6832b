package gstpipe

import (
	"github.com/tinyzimmer/go-gst/gst"

	"github.com/e7canasta/videobridge/internal/media"
)

// enumerateDevices probes the devices of class through a device monitor. An
// empty class lists every device.
func enumerateDevices(class string) []media.Device {
	monitor := gst.NewDeviceMonitor()
	if class != "" {
		monitor.AddFilter(class, nil)
	}

	gdevs := monitor.GetDevices()
	out := make([]media.Device, 0, len(gdevs))
	for _, d := range gdevs {
		if d == nil {
			continue
		}
		out = append(out, media.Device{
			DisplayName: d.GetDisplayName(),
			Name:        d.GetName(),
			Class:       d.GetDeviceClass(),
			Ref:         d,
		})
	}
	return out
}
