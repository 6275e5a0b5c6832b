package videobridge

import (
	"encoding/binary"
	"testing"
)

func TestSelectPixelFormat(t *testing.T) {
	tests := []struct {
		name  string
		order binary.ByteOrder
		kind  ConsumerKind
		want  PixelFormat
	}{
		{"little-endian CPU", binary.LittleEndian, ConsumerCPU, FormatBGRx},
		{"little-endian GPU", binary.LittleEndian, ConsumerGPU, FormatRGBx},
		{"big-endian CPU", binary.BigEndian, ConsumerCPU, FormatXRGB},
		{"big-endian GPU", binary.BigEndian, ConsumerGPU, FormatXRGB},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SelectPixelFormat(tt.order, tt.kind); got != tt.want {
				t.Errorf("SelectPixelFormat() = %s, want %s", got, tt.want)
			}
		})
	}
}

// The selected CPU format must make bytes read as native words land in
// 0xAARRGGBB.
func TestSelectPixelFormat_NativeWordLayout(t *testing.T) {
	format := SelectPixelFormat(NativeByteOrder(), ConsumerCPU)

	var px []byte
	switch format {
	case FormatBGRx:
		px = []byte{0x33, 0x22, 0x11, 0xFF}
	case FormatXRGB:
		px = []byte{0xFF, 0x11, 0x22, 0x33}
	default:
		t.Fatalf("unexpected CPU format %s", format)
	}
	if got := binary.NativeEndian.Uint32(px) & 0x00FFFFFF; got != 0x112233 {
		t.Errorf("%s word = %06x, want 112233", format, got)
	}
}

func TestPixelFormatCaps(t *testing.T) {
	tests := []struct {
		format   PixelFormat
		w, h     int
		num, den int
		want     string
	}{
		{FormatBGRx, 640, 480, 30, 1, "video/x-raw, format=BGRx, width=640, height=480, framerate=30/1"},
		{FormatRGBx, 320, 240, 2997, 100, "video/x-raw, format=RGBx, width=320, height=240, framerate=2997/100"},
		{FormatXRGB, 0, 0, 0, 1, "video/x-raw, format=xRGB"},
		{FormatBGRx, 640, 480, 0, 1, "video/x-raw, format=BGRx, width=640, height=480"},
	}

	for _, tt := range tests {
		if got := tt.format.Caps(tt.w, tt.h, tt.num, tt.den); got != tt.want {
			t.Errorf("Caps() = %q, want %q", got, tt.want)
		}
	}
}
