// Package sink presents finished RGBA frames: a PNG file rewritten on each
// frame, or nowhere at all. The OpenCV window lives in sink/window.
package sink

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
)

// ErrClosed is returned by Present once the sink can no longer show frames,
// e.g. the user closed the preview window.
var ErrClosed = errors.New("sink closed")

// Sink is the display target. Present is always called from the goroutine
// that owns the display.
type Sink interface {
	Present(pix []byte, width, height int) error
	Close() error
}

// Poller is implemented by sinks that need servicing between frames, such as
// GUI windows that must pump events. The driver polls on every tick.
type Poller interface {
	Poll() error
}

// CheckSize rejects buffers that do not hold a tightly packed width x height RGBA frame.
func CheckSize(pix []byte, width, height int) error {
	if width < 0 || height < 0 || len(pix) != width*height*4 {
		return errors.Newf("buffer of %d bytes does not hold a %dx%d RGBA frame", len(pix), width, height)
	}
	return nil
}

// Discard accepts and counts frames.
type Discard struct {
	mu     sync.Mutex
	frames int
	closed bool
}

// Present implements Sink.
func (d *Discard) Present(pix []byte, width, height int) error {
	if err := CheckSize(pix, width, height); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	d.frames++
	return nil
}

// Frames returns how many frames were presented.
func (d *Discard) Frames() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frames
}

// Close implements Sink.
func (d *Discard) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

// PNG rewrites a single PNG file with every presented frame. Writes go through
// a temp file and rename so viewers never see a torn image.
type PNG struct {
	path string
}

// NewPNG returns a sink writing to path.
func NewPNG(path string) *PNG {
	return &PNG{path: path}
}

// Present implements Sink.
func (p *PNG) Present(pix []byte, width, height int) error {
	if err := CheckSize(pix, width, height); err != nil {
		return err
	}
	if width == 0 || height == 0 {
		return nil
	}
	img := &image.RGBA{Pix: pix, Stride: width * 4, Rect: image.Rect(0, 0, width, height)}
	return WritePNG(p.path, img)
}

// Close implements Sink.
func (p *PNG) Close() error { return nil }

// WritePNG atomically replaces path with img encoded as PNG.
func WritePNG(path string, img image.Image) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".lookout-*.png")
	if err != nil {
		return errors.Wrapf(err, "creating temp file for %s", path)
	}
	defer os.Remove(tmp.Name())

	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		return errors.Wrap(err, "encoding png")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "closing temp file")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "replacing %s", path)
	}
	return nil
}
