// Package window presents frames in an OpenCV HighGUI window.
package window

import (
	"github.com/andresmejia3/lookout/internal/sink"
	"gocv.io/x/gocv"
)

const keyEsc = 27

var (
	_ sink.Sink   = (*Window)(nil)
	_ sink.Poller = (*Window)(nil)
)

// Window must be created and used from the main OS thread.
type Window struct {
	window *gocv.Window
	bgr    gocv.Mat
	shown  bool
	closed bool
}

// New opens a preview window titled title.
func New(title string) *Window {
	return &Window{window: gocv.NewWindow(title), bgr: gocv.NewMat()}
}

// Present implements sink.Sink. Pressing Esc or closing the window returns sink.ErrClosed.
func (w *Window) Present(pix []byte, width, height int) error {
	if err := sink.CheckSize(pix, width, height); err != nil {
		return err
	}
	if err := w.Poll(); err != nil {
		return err
	}
	if width == 0 || height == 0 {
		return nil
	}

	rgba, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC4, pix)
	if err != nil {
		return err
	}
	defer rgba.Close()

	gocv.CvtColor(rgba, &w.bgr, gocv.ColorRGBAToBGR)
	w.window.IMShow(w.bgr)
	w.shown = true
	return w.Poll()
}

// Poll implements sink.Poller: it pumps HighGUI events so the window keeps
// repainting while a job is in flight, and reports Esc or a closed window.
func (w *Window) Poll() error {
	if w.closed {
		return sink.ErrClosed
	}
	if key := w.window.WaitKey(1); key == keyEsc {
		w.closed = true
		return sink.ErrClosed
	}
	if w.shown && !w.window.IsOpen() {
		w.closed = true
		return sink.ErrClosed
	}
	return nil
}

// Close destroys the window.
func (w *Window) Close() error {
	w.closed = true
	w.bgr.Close()
	return w.window.Close()
}
