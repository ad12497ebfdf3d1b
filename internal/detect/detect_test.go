package detect

import (
	"image"
	"os"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		p       Params
		wantErr bool
	}{
		{"Defaults", DefaultParams, false},
		{"Scale factor of one", Params{ScaleFactor: 1.0, MinSize: 5}, true},
		{"Scale factor below one", Params{ScaleFactor: 0.5}, true},
		{"Negative min size", Params{ScaleFactor: 1.1, MinSize: -1}, true},
		{"Negative neighbours", Params{ScaleFactor: 1.1, MinNeighbors: -2}, true},
		{"Zero min size", Params{ScaleFactor: 1.2}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadErrorIsMarked(t *testing.T) {
	err := LoadError(os.ErrNotExist, "face", "/nope.xml")
	assert.True(t, errors.Is(err, ErrInitialization))
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Contains(t, err.Error(), "/nope.xml")
	assert.NotEmpty(t, errors.GetAllHints(err))
}

func TestClip(t *testing.T) {
	bounds := image.Rect(0, 0, 10, 10)
	got := Clip([]image.Rectangle{
		image.Rect(1, 1, 4, 4),
		image.Rect(8, 8, 14, 14),
		image.Rect(20, 20, 30, 30),
	}, bounds)
	assert.Equal(t, []image.Rectangle{image.Rect(1, 1, 4, 4), image.Rect(8, 8, 10, 10)}, got)
}

func TestPack(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = uint8(i)
	}

	t.Run("Contiguous image is shared", func(t *testing.T) {
		assert.Equal(t, img.Pix, Pack(img))
	})

	t.Run("View is compacted", func(t *testing.T) {
		view := img.SubImage(image.Rect(1, 1, 3, 3)).(*image.Gray)
		require.Equal(t, []byte{5, 6, 9, 10}, Pack(view))
	})
}
