package pico

import (
	"image"
	"image/draw"
	_ "image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/andresmejia3/lookout/internal/detect"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressiveScale(t *testing.T) {
	tests := []struct {
		name    string
		factor  float64
		minSize int
	}{
		{"Default tiny step", 1.01, 5},
		{"Step already large", 1.5, 5},
		{"Single pixel window", 1.01, 1},
		{"Large window", 1.01, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := progressiveScale(tt.factor, tt.minSize)
			assert.GreaterOrEqual(t, f, tt.factor)
			assert.Greater(t, int(float64(tt.minSize)*f), tt.minSize, "scale loop must advance")
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("face", filepath.Join(t.TempDir(), "facefinder"), DefaultOptions)
	require.Error(t, err)
	assert.True(t, errors.Is(err, detect.ErrInitialization))
}

func TestLoadTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facefinder")
	require.NoError(t, os.WriteFile(path, []byte{0x01, 0x02, 0x03}, 0644))

	_, err := Load("face", path, DefaultOptions)
	require.Error(t, err)
	assert.True(t, errors.Is(err, detect.ErrInitialization))
}

// fixtureParams trade the tiny default step for speed on a 320x400 photo.
var fixtureParams = detect.Params{ScaleFactor: 1.1, MinSize: 20}

func loadFacefinder(t *testing.T) *Classifier {
	t.Helper()
	c, err := Load("face", filepath.Join("testdata", "facefinder"), DefaultOptions)
	require.NoError(t, err)
	return c
}

func loadSample(t *testing.T) *image.Gray {
	t.Helper()
	f, err := os.Open(filepath.Join("testdata", "sample.jpg"))
	require.NoError(t, err)
	defer f.Close()
	src, _, err := image.Decode(f)
	require.NoError(t, err)

	gray := image.NewGray(image.Rect(0, 0, src.Bounds().Dx(), src.Bounds().Dy()))
	draw.Draw(gray, gray.Bounds(), src, src.Bounds().Min, draw.Src)
	return gray
}

func iou(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	i := float64(inter.Dx() * inter.Dy())
	u := float64(a.Dx()*a.Dy()+b.Dx()*b.Dy()) - i
	return i / u
}

func bestMatch(rects []image.Rectangle, want image.Rectangle) float64 {
	best := 0.0
	for _, r := range rects {
		if v := iou(r, want); v > best {
			best = v
		}
	}
	return best
}

func TestFacefinderOnBlackImage(t *testing.T) {
	c := loadFacefinder(t)
	rects, err := c.DetectMultiScale(image.NewGray(image.Rect(0, 0, 64, 64)), detect.DefaultParams)
	require.NoError(t, err)
	assert.Empty(t, rects)
}

func TestFacefinderFindsFace(t *testing.T) {
	c := loadFacefinder(t)
	gray := loadSample(t)

	rects, err := c.DetectMultiScale(gray, fixtureParams)
	require.NoError(t, err)
	require.NotEmpty(t, rects)
	for _, r := range rects {
		assert.True(t, r.In(gray.Bounds()), "%v outside the image", r)
		assert.GreaterOrEqual(t, r.Dx(), fixtureParams.MinSize)
	}

	again, err := c.DetectMultiScale(gray, fixtureParams)
	require.NoError(t, err)
	assert.Equal(t, rects, again, "detection is deterministic")
}

// The photo is pasted at a known offset into a larger canvas; the face must be
// found at the shifted position, and a view over the pasted region must report
// the same rectangles as the bare photo.
func TestFacefinderOffsets(t *testing.T) {
	c := loadFacefinder(t)
	gray := loadSample(t)
	base, err := c.DetectMultiScale(gray, fixtureParams)
	require.NoError(t, err)
	require.NotEmpty(t, base)
	face := base[0]

	offset := image.Pt(60, 50)
	canvas := image.NewGray(image.Rect(0, 0, gray.Bounds().Dx()+120, gray.Bounds().Dy()+100))
	placed := gray.Bounds().Add(offset)
	draw.Draw(canvas, placed, gray, image.Point{}, draw.Src)

	t.Run("Full canvas", func(t *testing.T) {
		rects, err := c.DetectMultiScale(canvas, fixtureParams)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, bestMatch(rects, face.Add(offset)), 0.5)
	})

	t.Run("Sub-image view", func(t *testing.T) {
		view := canvas.SubImage(placed).(*image.Gray)
		rects, err := c.DetectMultiScale(view, fixtureParams)
		require.NoError(t, err)
		assert.Equal(t, base, rects, "view results are relative to the view origin")
	})
}

func TestRejectsBadParams(t *testing.T) {
	c := &Classifier{opts: DefaultOptions}
	_, err := c.DetectMultiScale(image.NewGray(image.Rect(0, 0, 8, 8)), detect.Params{ScaleFactor: 1})
	assert.Error(t, err)
}

func TestImageSmallerThanWindow(t *testing.T) {
	c := &Classifier{opts: DefaultOptions}
	rects, err := c.DetectMultiScale(image.NewGray(image.Rect(0, 0, 3, 3)), detect.DefaultParams)
	require.NoError(t, err)
	assert.Empty(t, rects)
}
