// Package imaging holds the pure pixel transforms used by the detection pipeline:
// frame conversion, grayscale, repacking for display and annotation drawing.
package imaging

import (
	"image"
	"image/color"

	"github.com/andresmejia3/lookout/internal/types"
)

// RGB is a 3-channel, 8-bit, row-major image with row 0 at the top.
// The standard library has no packed 3-channel type, so this mirrors image.RGBA minus alpha.
type RGB struct {
	Pix    []uint8
	Stride int
	Rect   image.Rectangle
}

// NewRGB allocates a zeroed RGB image.
func NewRGB(r image.Rectangle) *RGB {
	return &RGB{
		Pix:    make([]uint8, 3*r.Dx()*r.Dy()),
		Stride: 3 * r.Dx(),
		Rect:   r,
	}
}

func (p *RGB) ColorModel() color.Model { return color.RGBAModel }

func (p *RGB) Bounds() image.Rectangle { return p.Rect }

func (p *RGB) At(x, y int) color.Color {
	if !(image.Point{x, y}.In(p.Rect)) {
		return color.RGBA{}
	}
	i := p.PixOffset(x, y)
	return color.RGBA{p.Pix[i], p.Pix[i+1], p.Pix[i+2], 0xff}
}

// PixOffset returns the index of the first element of Pix that corresponds to (x, y).
func (p *RGB) PixOffset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*3
}

// FromFrame converts a source frame into a top-down RGB working image.
// Bottom-up frames are flipped vertically: output row r takes source row H-1-r.
// Horizontal order is preserved and alpha is dropped. The frame must be Valid.
func FromFrame(f types.Frame) *RGB {
	dst := NewRGB(image.Rect(0, 0, f.Width, f.Height))
	srcStride := f.Width * 4
	for r := 0; r < f.Height; r++ {
		sr := r
		if f.Order == types.BottomUp {
			sr = f.Height - 1 - r
		}
		src := f.Pix[sr*srcStride : (sr+1)*srcStride]
		row := dst.Pix[r*dst.Stride : (r+1)*dst.Stride]
		for c := 0; c < f.Width; c++ {
			row[c*3] = src[c*4]
			row[c*3+1] = src[c*4+1]
			row[c*3+2] = src[c*4+2]
		}
	}
	return dst
}
