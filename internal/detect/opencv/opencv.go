// Package opencv provides the Haar/LBP cascade backend through gocv.
package opencv

import (
	"image"
	"os"
	"sync"

	"github.com/andresmejia3/lookout/internal/detect"
	"github.com/cockroachdb/errors"
	"gocv.io/x/gocv"
)

// Classifier wraps a loaded gocv cascade. The cascade is never mutated after Load.
type Classifier struct {
	cascade gocv.CascadeClassifier
	path    string

	closeOnce sync.Once
}

// Load reads a cascade XML file. kind ("face", "eye") only decorates errors.
func Load(kind, path string) (*Classifier, error) {
	// gocv.Load only reports a bool, so surface the os error first when there is one.
	if _, err := os.Stat(path); err != nil {
		return nil, detect.LoadError(err, kind, path)
	}

	cascade := gocv.NewCascadeClassifier()
	if !cascade.Load(path) {
		cascade.Close()
		return nil, detect.LoadError(errors.New("opencv rejected the cascade description"), kind, path)
	}
	return &Classifier{cascade: cascade, path: path}, nil
}

// DetectMultiScale implements detect.Classifier.
func (c *Classifier) DetectMultiScale(img *image.Gray, p detect.Params) ([]image.Rectangle, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, nil
	}

	mat, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8U, detect.Pack(img))
	if err != nil {
		return nil, errors.Wrapf(err, "wrapping %dx%d gray image", b.Dx(), b.Dy())
	}
	defer mat.Close()

	rects := c.cascade.DetectMultiScaleWithParams(mat,
		p.ScaleFactor, p.MinNeighbors, 0,
		image.Pt(p.MinSize, p.MinSize), image.Pt(0, 0),
	)
	return detect.Clip(rects, image.Rect(0, 0, b.Dx(), b.Dy())), nil
}

// Path returns the cascade file the classifier was loaded from.
func (c *Classifier) Path() string { return c.path }

// Close releases the native cascade. Safe to call more than once.
func (c *Classifier) Close() error {
	var err error
	c.closeOnce.Do(func() { err = c.cascade.Close() })
	return err
}
