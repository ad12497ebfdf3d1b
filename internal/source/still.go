package source

import (
	"context"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/andresmejia3/lookout/internal/detect"
	"github.com/andresmejia3/lookout/internal/types"
	"github.com/cockroachdb/errors"
)

// Still serves the same image on every tick. Useful for tuning detector
// parameters without a camera, and for exercising the bottom-up path.
type Still struct {
	path     string
	bottomUp bool

	rgba *image.RGBA
	box  Mailbox
}

// NewStill prepares a still source for the PNG or JPEG at path.
func NewStill(path string, bottomUp bool) *Still {
	return &Still{path: path, bottomUp: bottomUp}
}

// NewStillImage wraps an already decoded image.
func NewStillImage(img image.Image, bottomUp bool) *Still {
	return &Still{rgba: toRGBA(img), bottomUp: bottomUp}
}

// Start decodes the image.
func (s *Still) Start(ctx context.Context) error {
	if s.rgba != nil {
		return nil
	}
	img, err := LoadImage(s.path)
	if err != nil {
		return errors.Mark(err, detect.ErrInitialization)
	}
	s.rgba = toRGBA(img)
	return nil
}

// LoadImage decodes a PNG or JPEG file.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening image %s", path)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding image %s", path)
	}
	return img, nil
}

func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

// Ready is true once the image is loaded; a still never runs dry.
func (s *Still) Ready() bool { return s.rgba != nil }

// Current returns a fresh copy of the image, stored bottom-up if configured.
func (s *Still) Current() types.Frame {
	w, h := s.Size()
	pix := make([]byte, w*h*4)
	order := types.TopDown
	if s.bottomUp {
		order = types.BottomUp
	}
	for y := 0; y < h; y++ {
		src := y
		if s.bottomUp {
			src = h - 1 - y
		}
		copy(pix[y*w*4:(y+1)*w*4], s.rgba.Pix[src*s.rgba.Stride:src*s.rgba.Stride+w*4])
	}
	s.box.Publish(pix, w, h, order)
	return s.box.Take()
}

// Size implements Source.
func (s *Still) Size() (int, int) {
	if s.rgba == nil {
		return 0, 0
	}
	b := s.rgba.Bounds()
	return b.Dx(), b.Dy()
}

// Stop implements Source.
func (s *Still) Stop() error { return nil }
