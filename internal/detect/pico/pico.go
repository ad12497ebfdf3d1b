// Package pico provides a pure-Go cascade backend built on pigo. It reads pico
// binary cascades (e.g. "facefinder") instead of OpenCV XML and needs no cgo.
package pico

import (
	"fmt"
	"image"
	"math"
	"os"

	"github.com/andresmejia3/lookout/internal/detect"
	"github.com/cockroachdb/errors"
	pigo "github.com/esimov/pigo/core"
)

// Options are the pico-specific knobs that have no equivalent in detect.Params.
type Options struct {
	// Quality is the minimum detection score kept after clustering.
	Quality float64 `mapstructure:"quality"`
	// ShiftFactor is the sliding window step as a fraction of the window size.
	ShiftFactor float64 `mapstructure:"shift_factor"`
	// IoU is the overlap above which raw detections are merged.
	IoU float64 `mapstructure:"iou"`
}

// DefaultOptions follow the pigo examples.
var DefaultOptions = Options{Quality: 5.0, ShiftFactor: 0.1, IoU: 0.2}

// Classifier is an unpacked pico cascade.
type Classifier struct {
	cascade *pigo.Pigo
	opts    Options
}

// Load reads and unpacks a pico cascade file.
func Load(kind, path string, opts Options) (*Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, detect.LoadError(err, kind, path)
	}
	cascade, err := unpack(data)
	if err != nil {
		return nil, detect.LoadError(err, kind, path)
	}
	return &Classifier{cascade: cascade, opts: opts}, nil
}

// unpack guards against truncated files, which make pigo index out of range.
func unpack(data []byte) (c *pigo.Pigo, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("malformed pico cascade: %v", r)
		}
	}()
	return pigo.NewPigo().Unpack(data)
}

// DetectMultiScale implements detect.Classifier. MinNeighbors is not used:
// pico merges overlapping windows by IoU and filters by score instead.
func (c *Classifier) DetectMultiScale(img *image.Gray, p detect.Params) ([]image.Rectangle, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	minSize := p.MinSize
	if minSize < 1 {
		minSize = 1
	}
	maxSize := w
	if h < maxSize {
		maxSize = h
	}
	if maxSize < minSize {
		return nil, nil
	}

	params := pigo.CascadeParams{
		MinSize:     minSize,
		MaxSize:     maxSize,
		ShiftFactor: c.opts.ShiftFactor,
		ScaleFactor: progressiveScale(p.ScaleFactor, minSize),
		ImageParams: pigo.ImageParams{
			// SubImage views already start at their first pixel; Dim carries the stride.
			Pixels: img.Pix,
			Rows:   h,
			Cols:   w,
			Dim:    img.Stride,
		},
	}

	dets := c.cascade.RunCascade(params, 0.0)
	dets = c.cascade.ClusterDetections(dets, c.opts.IoU)

	rects := make([]image.Rectangle, 0, len(dets))
	for _, d := range dets {
		if float64(d.Q) < c.opts.Quality {
			continue
		}
		half := d.Scale / 2
		rects = append(rects, image.Rect(d.Col-half, d.Row-half, d.Col-half+d.Scale, d.Row-half+d.Scale))
	}
	return detect.Clip(rects, image.Rect(0, 0, w, h)), nil
}

// progressiveScale raises the factor just enough for pigo's integer scale loop
// to advance from minSize; otherwise int(minSize*factor) == minSize forever.
func progressiveScale(factor float64, minSize int) float64 {
	floor := float64(minSize+1)/float64(minSize) + 1e-9
	return math.Max(factor, floor)
}

// Close is a no-op; pico cascades are plain Go memory.
func (c *Classifier) Close() error { return nil }

func (c *Classifier) String() string {
	return fmt.Sprintf("pico(q>=%.1f)", c.opts.Quality)
}
