// Package snapshot writes frames read by a host as a stream of msgpack
// records, each prefixed with its length as a 4-byte big-endian integer.
package snapshot

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// maxRecordSize bounds a record on read (8K RGBA plus metadata).
const maxRecordSize = 7680*4320*4 + 4096

// Record is one snapshot. Pixels holds the packed 0xAARRGGBB words as
// big-endian bytes (A, R, G, B per pixel).
type Record struct {
	TraceID   string    `msgpack:"trace_id"`
	SourceID  string    `msgpack:"source_id"`
	Seq       uint64    `msgpack:"seq"`
	Timestamp time.Time `msgpack:"timestamp"`
	Width     int       `msgpack:"width"`
	Height    int       `msgpack:"height"`
	Pixels    []byte    `msgpack:"pixels"`
}

// Words unpacks Pixels back into 0xAARRGGBB words.
func (r *Record) Words() []uint32 {
	out := make([]uint32, len(r.Pixels)/4)
	for i := range out {
		out[i] = binary.BigEndian.Uint32(r.Pixels[i*4:])
	}
	return out
}

// Writer appends records to an io.Writer. Safe for concurrent use.
type Writer struct {
	mu  sync.Mutex
	w   *bufio.Writer
	seq uint64
	now func() time.Time
}

// NewWriter creates a Writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w), now: time.Now}
}

// Write encodes one frame and returns its record.
func (w *Writer) Write(sourceID string, width, height int, pixels []uint32) (*Record, error) {
	if width <= 0 || height <= 0 || len(pixels) < width*height {
		return nil, fmt.Errorf("snapshot: %d pixels do not fill %dx%d", len(pixels), width, height)
	}

	buf := make([]byte, width*height*4)
	for i, p := range pixels[:width*height] {
		binary.BigEndian.PutUint32(buf[i*4:], p)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.seq++
	rec := &Record{
		TraceID:   uuid.NewString(),
		SourceID:  sourceID,
		Seq:       w.seq,
		Timestamp: w.now(),
		Width:     width,
		Height:    height,
		Pixels:    buf,
	}

	data, err := msgpack.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("snapshot: failed to marshal record: %w", err)
	}

	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(data)))
	if _, err := w.w.Write(prefix[:]); err != nil {
		return nil, fmt.Errorf("snapshot: failed to write length prefix: %w", err)
	}
	if _, err := w.w.Write(data); err != nil {
		return nil, fmt.Errorf("snapshot: failed to write record: %w", err)
	}
	if err := w.w.Flush(); err != nil {
		return nil, fmt.Errorf("snapshot: flush: %w", err)
	}
	return rec, nil
}

// Count returns the number of records written.
func (w *Writer) Count() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.seq
}

// Reader decodes a record stream.
type Reader struct {
	r *bufio.Reader
}

// NewReader creates a Reader on r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next returns the next record, or io.EOF at a clean end of stream.
func (r *Reader) Next() (*Record, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r.r, prefix[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("snapshot: truncated length prefix: %w", err)
	}

	n := binary.BigEndian.Uint32(prefix[:])
	if n > maxRecordSize {
		return nil, fmt.Errorf("snapshot: record of %d bytes exceeds limit", n)
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(r.r, data); err != nil {
		return nil, fmt.Errorf("snapshot: truncated record: %w", err)
	}

	var rec Record
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("snapshot: failed to unmarshal record: %w", err)
	}
	return &rec, nil
}
