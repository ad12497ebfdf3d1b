package source

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/andresmejia3/lookout/internal/detect"
	"github.com/andresmejia3/lookout/internal/types"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailbox(t *testing.T) {
	var m Mailbox
	assert.False(t, m.Ready())

	m.Publish([]byte{1, 2, 3, 4}, 1, 1, types.TopDown)
	m.Publish([]byte{5, 6, 7, 8}, 1, 1, types.TopDown)
	assert.True(t, m.Ready())
	assert.Equal(t, uint64(1), m.Dropped(), "second publish overwrote an unread frame")

	f := m.Take()
	assert.Equal(t, []byte{5, 6, 7, 8}, f.Pix)
	assert.Equal(t, uint64(2), f.Seq)
	assert.False(t, m.Ready())

	m.Publish([]byte{9, 9, 9, 9}, 1, 1, types.TopDown)
	assert.Equal(t, uint64(1), m.Dropped(), "publishing after a take is not a drop")
}

// gradient returns a 2x3 image whose rows are distinguishable by red value.
func gradient() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 2, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 2; x++ {
			img.Set(x, y, color.RGBA{R: uint8(y * 100), G: uint8(x), A: 255})
		}
	}
	return img
}

func TestStill(t *testing.T) {
	tests := []struct {
		name     string
		bottomUp bool
		wantRow0 uint8
		order    types.ScanOrder
	}{
		{"Top down", false, 0, types.TopDown},
		{"Bottom up", true, 200, types.BottomUp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStillImage(gradient(), tt.bottomUp)
			require.NoError(t, s.Start(context.Background()))
			require.True(t, s.Ready())

			w, h := s.Size()
			assert.Equal(t, 2, w)
			assert.Equal(t, 3, h)

			f := s.Current()
			assert.True(t, f.Valid())
			assert.Equal(t, tt.order, f.Order)
			assert.Equal(t, tt.wantRow0, f.Pix[0])

			// Every call hands out an independent buffer.
			f.Pix[0] = 42
			assert.Equal(t, tt.wantRow0, s.Current().Pix[0])
			assert.True(t, s.Ready(), "a still never runs dry")
		})
	}
}

func TestStillFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "face.png")
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, gradient()))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	s := NewStill(path, false)
	require.NoError(t, s.Start(context.Background()))
	w, h := s.Size()
	assert.Equal(t, 2, w)
	assert.Equal(t, 3, h)
}

func TestStillMissingFile(t *testing.T) {
	s := NewStill(filepath.Join(t.TempDir(), "missing.png"), false)
	err := s.Start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, detect.ErrInitialization))
	assert.False(t, s.Ready())
}

func TestFFmpegRead(t *testing.T) {
	f := NewFFmpeg("test", 2, 1, false)
	stream := bytes.Repeat([]byte{1}, 8)
	stream = append(stream, bytes.Repeat([]byte{2}, 8)...)

	require.NoError(t, f.read(bytes.NewReader(stream)))
	require.True(t, f.Ready())

	frame := f.Current()
	assert.Equal(t, types.TopDown, frame.Order)
	assert.Equal(t, bytes.Repeat([]byte{2}, 8), frame.Pix, "only the latest frame is kept")
	assert.Equal(t, uint64(1), f.box.Dropped())
}

func TestFFmpegReadTruncated(t *testing.T) {
	f := NewFFmpeg("test", 2, 1, false)
	err := f.read(bytes.NewReader(make([]byte, 12)))
	assert.Error(t, err, "half a frame is a decode error")
	assert.True(t, f.Ready(), "the complete frame was still published")
}

func TestStopBeforeStart(t *testing.T) {
	assert.NoError(t, NewFFmpeg("x", 1, 1, false).Stop())
}
