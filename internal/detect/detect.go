// Package detect defines the cascade classifier contract consumed by the pipeline.
// Backends live in subpackages: opencv (Haar/LBP XML through gocv) and pico (pure Go).
package detect

import (
	"image"

	"github.com/cockroachdb/errors"
)

// ErrInitialization marks failures that must disable the pipeline at startup:
// a classifier that cannot be loaded, a missing display target or source.
var ErrInitialization = errors.New("initialization failed")

// Params tunes one multi-scale detection pass.
type Params struct {
	// ScaleFactor is the multiplicative step between scanned scales. Must be > 1.
	ScaleFactor float64 `mapstructure:"scale_factor"`
	// MinSize is the smallest window side, in pixels, that is considered.
	MinSize int `mapstructure:"min_size"`
	// MinNeighbors is how many overlapping candidates a detection needs to be kept.
	MinNeighbors int `mapstructure:"min_neighbors"`
}

// DefaultParams are used for both the face and the eye pass.
var DefaultParams = Params{ScaleFactor: 1.01, MinSize: 5, MinNeighbors: 5}

// Validate checks the parameter ranges.
func (p Params) Validate() error {
	if p.ScaleFactor <= 1.0 {
		return errors.Newf("scale factor must be > 1.0, got %g", p.ScaleFactor)
	}
	if p.MinSize < 0 {
		return errors.Newf("min size must be >= 0, got %d", p.MinSize)
	}
	if p.MinNeighbors < 0 {
		return errors.Newf("min neighbors must be >= 0, got %d", p.MinNeighbors)
	}
	return nil
}

// Classifier detects one object class at multiple scales in a grayscale image.
//
// img may be a view whose Bounds().Min is not the origin; returned rectangles are
// relative to img.Bounds().Min and lie within the image. The result is unordered,
// may overlap and may be empty. Implementations are loaded once and must be safe
// for read-only use from any goroutine.
type Classifier interface {
	DetectMultiScale(img *image.Gray, p Params) ([]image.Rectangle, error)
	Close() error
}

// LoadError wraps a backend failure to read a cascade resource.
func LoadError(err error, kind, path string) error {
	err = errors.Wrapf(err, "loading %s cascade %q", kind, path)
	err = errors.WithHint(err, "check detector.face_cascade / detector.eye_cascade and the detector backend")
	return errors.Mark(err, ErrInitialization)
}

// Clip keeps rectangles inside bounds and drops the ones left empty.
func Clip(rects []image.Rectangle, bounds image.Rectangle) []image.Rectangle {
	out := rects[:0]
	for _, r := range rects {
		r = r.Intersect(bounds)
		if !r.Empty() {
			out = append(out, r)
		}
	}
	return out
}

// Pack copies a possibly strided gray view into a contiguous row-major buffer.
func Pack(img *image.Gray) []byte {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if img.Stride == w {
		return img.Pix[:w*h]
	}
	buf := make([]byte, w*h)
	for y := 0; y < h; y++ {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		copy(buf[y*w:(y+1)*w], img.Pix[off:off+w])
	}
	return buf
}
