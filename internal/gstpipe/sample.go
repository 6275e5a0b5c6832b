package gstpipe

import (
	"errors"
	"fmt"

	"github.com/tinyzimmer/go-gst/gst"

	"github.com/e7canasta/videobridge/internal/media"
)

// nativeBuffer keeps the sample (and so its buffer) referenced while the
// mapped view is in use. Dispose drops the references; go-gst unrefs the
// underlying objects from their finalizers.
type nativeBuffer struct {
	sample *gst.Sample
	buffer *gst.Buffer
}

func (b *nativeBuffer) Unmap() {
	if b.buffer != nil {
		b.buffer.Unmap()
	}
}

func (b *nativeBuffer) Dispose() {
	b.buffer = nil
	b.sample = nil
}

// toMediaSample maps the sample buffer for reading. The mapped view is not
// copied: it stays valid until the returned Buffer is unmapped.
func toMediaSample(sample *gst.Sample) (*media.Sample, error) {
	buffer := sample.GetBuffer()
	if buffer == nil {
		return nil, errors.New("sample has no buffer")
	}
	gcaps := sample.GetCaps()
	if gcaps == nil {
		return nil, errors.New("sample has no caps")
	}
	caps := media.ParseCaps(gcaps.String())
	if caps.Width <= 0 || caps.Height <= 0 {
		return nil, fmt.Errorf("sample caps lack geometry: %s", gcaps.String())
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) == 0 {
		buffer.Unmap()
		return nil, errors.New("empty buffer")
	}

	return &media.Sample{
		Caps:   caps,
		Data:   data,
		Stride: strideOf(len(data), caps.Width, caps.Height),
		Buffer: &nativeBuffer{sample: sample, buffer: buffer},
	}, nil
}

// strideOf derives the row stride of a packed 32-bit frame, accounting for
// row padding.
func strideOf(size, width, height int) int {
	stride := width * 4
	if height > 0 && size/height > stride {
		stride = size / height
	}
	return stride
}
