package videobridge

import (
	"encoding/binary"

	"github.com/e7canasta/videobridge/internal/media"
)

// PixelFormat is the raw video format requested from the pipeline.
//
// Hosts store packed 0xAARRGGBB words. The format is chosen so that the byte
// stream, read as machine-order 32-bit words, lands in that layout (CPU) or in
// the layout the texture upload expects (GPU).
type PixelFormat string

const (
	FormatRGBx PixelFormat = "RGBx"
	FormatBGRx PixelFormat = "BGRx"
	FormatXRGB PixelFormat = "xRGB"
)

// NativeByteOrder returns binary.LittleEndian or binary.BigEndian, whichever
// matches the running machine.
func NativeByteOrder() binary.ByteOrder {
	if isBigEndian(binary.NativeEndian) {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func isBigEndian(order binary.ByteOrder) bool {
	return order.Uint16([]byte{0x00, 0x01}) == 0x0001
}

// SelectPixelFormat picks the raw format for a host byte order and consumer.
//
//	little-endian + GPU → RGBx
//	little-endian + CPU → BGRx
//	big-endian          → xRGB
func SelectPixelFormat(order binary.ByteOrder, kind ConsumerKind) PixelFormat {
	if isBigEndian(order) {
		return FormatXRGB
	}
	if kind == ConsumerGPU {
		return FormatRGBx
	}
	return FormatBGRx
}

// Caps renders the format as a raw-video caps string. Zero width, height or
// framerate numerator leave the field out.
func (f PixelFormat) Caps(width, height, fpsNum, fpsDen int) string {
	return media.RawCaps(string(f), width, height, fpsNum, fpsDen)
}
