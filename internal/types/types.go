package types

import (
	"image"
	"time"
)

// ScanOrder describes how a source lays out rows in Frame.Pix.
type ScanOrder int

const (
	// BottomUp means row 0 of Pix is the bottom row of the picture (texture convention).
	BottomUp ScanOrder = iota
	// TopDown means row 0 of Pix is the top row of the picture.
	TopDown
)

func (o ScanOrder) String() string {
	if o == TopDown {
		return "top-down"
	}
	return "bottom-up"
}

// Frame is an immutable snapshot of Width*Height RGBA samples as delivered by a source.
// Pix is tightly packed (4 bytes per sample, no row padding) and MUST NOT be modified
// once the frame has been handed to the scheduler.
type Frame struct {
	Pix       []byte
	Width     int
	Height    int
	Order     ScanOrder
	Seq       uint64
	Timestamp time.Time
}

// Valid reports whether the buffer length matches the declared dimensions.
func (f Frame) Valid() bool {
	return f.Width >= 0 && f.Height >= 0 && len(f.Pix) == f.Width*f.Height*4
}

// Face is a detected face with its eyes, all in full-image coordinates.
type Face struct {
	Rect image.Rectangle   `json:"rect"`
	Eyes []image.Rectangle `json:"eyes"`
}
