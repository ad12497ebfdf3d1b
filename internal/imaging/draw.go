package imaging

import (
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// White is the annotation intensity.
const White uint8 = 255

// StrokeRect draws the border of the rectangle spanning the inclusive corners
// (x0, y0) and (x1, y1). Thickness grows around the nominal edge: a thickness of 2
// covers the edge and the pixel just outside it. Pixels outside img are skipped.
func StrokeRect(img *image.Gray, x0, y0, x1, y1, thickness int, v uint8) {
	if thickness < 1 {
		thickness = 1
	}
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	lo := -(thickness / 2)
	hi := lo + thickness - 1
	for d := lo; d <= hi; d++ {
		// d < 0 pushes the stroke outward, d > 0 pulls it inward.
		ax0, ay0, ax1, ay1 := x0+d, y0+d, x1-d, y1-d
		if ax0 > ax1 || ay0 > ay1 {
			continue
		}
		hline(img, ax0, ax1, ay0, v)
		hline(img, ax0, ax1, ay1, v)
		vline(img, ax0, ay0, ay1, v)
		vline(img, ax1, ay0, ay1, v)
	}
}

// Outline draws a rectangle the way a {x, y, w, h} region is drawn: the far
// edges sit on the last pixel inside the region.
func Outline(img *image.Gray, r image.Rectangle, thickness int, v uint8) {
	if r.Empty() {
		return
	}
	StrokeRect(img, r.Min.X, r.Min.Y, r.Max.X-1, r.Max.Y-1, thickness, v)
}

// Box draws a rectangle corner to corner, from Min to Max inclusive.
func Box(img *image.Gray, r image.Rectangle, thickness int, v uint8) {
	StrokeRect(img, r.Min.X, r.Min.Y, r.Max.X, r.Max.Y, thickness, v)
}

func hline(img *image.Gray, x0, x1, y int, v uint8) {
	b := img.Bounds()
	if y < b.Min.Y || y >= b.Max.Y {
		return
	}
	if x0 < b.Min.X {
		x0 = b.Min.X
	}
	if x1 >= b.Max.X {
		x1 = b.Max.X - 1
	}
	for x := x0; x <= x1; x++ {
		img.Pix[img.PixOffset(x, y)] = v
	}
}

func vline(img *image.Gray, x, y0, y1 int, v uint8) {
	b := img.Bounds()
	if x < b.Min.X || x >= b.Max.X {
		return
	}
	if y0 < b.Min.Y {
		y0 = b.Min.Y
	}
	if y1 >= b.Max.Y {
		y1 = b.Max.Y - 1
	}
	for y := y0; y <= y1; y++ {
		img.Pix[img.PixOffset(x, y)] = v
	}
}

// Label writes text onto img with its baseline at (x, y) using the 7x13 bitmap face.
func Label(img *image.RGBA, x, y int, text string, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
