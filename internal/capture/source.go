// Package capture provides the frame sources the engine reads from.
package capture

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/gopacket"
)

// ErrUnsupportedLinkType is returned for sources that do not carry
// Ethernet frames.
var ErrUnsupportedLinkType = errors.New("unsupported link type")

// Source yields raw link-layer frames. ReadFrame returns io.EOF once the
// source is exhausted. The returned buffer stays valid until the next call.
type Source interface {
	ReadFrame(ctx context.Context) ([]byte, gopacket.CaptureInfo, error)
	Close() error
}

// MemorySource replays a fixed list of frames.
type MemorySource struct {
	frames [][]byte
	next   int
	start  time.Time
}

// NewMemorySource returns a source yielding frames in order, stamped one
// millisecond apart from start.
func NewMemorySource(start time.Time, frames ...[]byte) *MemorySource {
	return &MemorySource{frames: frames, start: start}
}

// ReadFrame returns the next frame.
func (m *MemorySource) ReadFrame(ctx context.Context) ([]byte, gopacket.CaptureInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, gopacket.CaptureInfo{}, err
	}
	if m.next >= len(m.frames) {
		return nil, gopacket.CaptureInfo{}, io.EOF
	}
	data := m.frames[m.next]
	ci := gopacket.CaptureInfo{
		Timestamp:     m.start.Add(time.Duration(m.next) * time.Millisecond),
		CaptureLength: len(data),
		Length:        len(data),
	}
	m.next++
	return data, ci, nil
}

// Close is a no-op.
func (m *MemorySource) Close() error { return nil }
