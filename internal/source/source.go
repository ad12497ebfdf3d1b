// Package source provides frame sources: an ffmpeg decoder and a still image.
// Each keeps only the latest frame; older unread frames are dropped. The gocv
// camera lives in source/camera so this package stays cgo-free.
package source

import (
	"context"
	"sync"
	"time"

	"github.com/andresmejia3/lookout/internal/types"
)

// Source supplies the current frame of one video stream.
type Source interface {
	// Start opens the device and begins capturing in the background.
	Start(ctx context.Context) error
	// Stop releases the device. Idempotent.
	Stop() error
	// Ready reports whether a frame newer than the last Current call is available.
	Ready() bool
	// Current returns the latest frame and marks it consumed. The caller owns it.
	Current() types.Frame
	// Size returns the frame dimensions.
	Size() (width, height int)
}

// Mailbox is a single-slot latest-frame buffer shared by a capture goroutine
// and the tick loop. Publishing over an unread frame counts as a drop.
// The zero value is ready to use.
type Mailbox struct {
	mu    sync.Mutex
	frame types.Frame
	fresh bool
	seq   uint64
	drops uint64
}

// Publish stores a frame, replacing any unread one. pix must not be reused by the caller.
func (m *Mailbox) Publish(pix []byte, w, h int, order types.ScanOrder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fresh {
		m.drops++
	}
	m.seq++
	m.frame = types.Frame{Pix: pix, Width: w, Height: h, Order: order, Seq: m.seq, Timestamp: time.Now()}
	m.fresh = true
}

// Ready reports whether an unread frame is waiting.
func (m *Mailbox) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fresh
}

// Take returns the latest frame. Publishers hand over a fresh buffer per
// frame, so returning the slice without copying keeps ownership exclusive.
func (m *Mailbox) Take() types.Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fresh = false
	return m.frame
}

// Dropped counts frames overwritten before anyone took them.
func (m *Mailbox) Dropped() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drops
}
