package imaging

import (
	"image"
)

// Fixed-point luma weights (Q14), the same integer coefficients OpenCV uses for RGB2GRAY.
const (
	lumaR     = 4899
	lumaG     = 9617
	lumaB     = 1868
	lumaShift = 14
	lumaRound = 1 << (lumaShift - 1)
)

// Grayscale converts an RGB working image to a single-channel image of the same size
// using Y = 0.299R + 0.587G + 0.114B.
func Grayscale(src *RGB) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		in := src.Pix[y*src.Stride : y*src.Stride+b.Dx()*3]
		out := dst.Pix[y*dst.Stride : y*dst.Stride+b.Dx()]
		for x := range out {
			r, g, bl := uint32(in[x*3]), uint32(in[x*3+1]), uint32(in[x*3+2])
			out[x] = uint8((r*lumaR + g*lumaG + bl*lumaB + lumaRound) >> lumaShift)
		}
	}
	return dst
}

// ToRGBA replicates each gray value into R, G and B with an opaque alpha.
func ToRGBA(src *image.Gray) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		in := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
		rowStart := y * dst.Stride
		for x := 0; x < b.Dx(); x++ {
			v := in[x]
			off := rowStart + x*4
			dst.Pix[off] = v
			dst.Pix[off+1] = v
			dst.Pix[off+2] = v
			dst.Pix[off+3] = 255
		}
	}
	return dst
}

// Clone returns a deep copy of a gray image with the same bounds.
func Clone(src *image.Gray) *image.Gray {
	dst := image.NewGray(src.Bounds())
	for y := src.Rect.Min.Y; y < src.Rect.Max.Y; y++ {
		copy(dst.Pix[dst.PixOffset(src.Rect.Min.X, y):], src.Pix[src.PixOffset(src.Rect.Min.X, y):src.PixOffset(src.Rect.Max.X, y)])
	}
	return dst
}

// Region returns a non-owning view of r inside src, clipped to its bounds.
// The view shares pixels with src and keeps src's coordinate space.
func Region(src *image.Gray, r image.Rectangle) *image.Gray {
	return src.SubImage(r.Intersect(src.Bounds())).(*image.Gray)
}
