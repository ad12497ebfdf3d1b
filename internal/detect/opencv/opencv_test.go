package opencv

import (
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/andresmejia3/lookout/internal/detect"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cascadeDir points at a directory holding the stock OpenCV haarcascades.
func cascadeDir(t *testing.T) string {
	dir := os.Getenv("LOOKOUT_CASCADE_DIR")
	if dir == "" {
		dir = filepath.Join("..", "..", "..", "haarcascades")
	}
	if _, err := os.Stat(filepath.Join(dir, "haarcascade_frontalface_alt.xml")); err != nil {
		t.Skipf("Skipping: no haarcascades in %s", dir)
	}
	return dir
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("face", filepath.Join(t.TempDir(), "missing.xml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, detect.ErrInitialization))
}

func TestBlackImageHasNoFaces(t *testing.T) {
	dir := cascadeDir(t)
	c, err := Load("face", filepath.Join(dir, "haarcascade_frontalface_alt.xml"))
	require.NoError(t, err)
	defer c.Close()

	for _, size := range []int{4, 64} {
		rects, err := c.DetectMultiScale(image.NewGray(image.Rect(0, 0, size, size)), detect.DefaultParams)
		require.NoError(t, err)
		assert.Empty(t, rects)
	}
}

// TestDetectsFixtureFace needs a grayscale photo with one face at (10,10,40,40),
// supplied through LOOKOUT_FACE_FIXTURE.
func TestDetectsFixtureFace(t *testing.T) {
	dir := cascadeDir(t)
	fixture := os.Getenv("LOOKOUT_FACE_FIXTURE")
	if fixture == "" {
		t.Skip("Skipping: LOOKOUT_FACE_FIXTURE not set")
	}
	f, err := os.Open(fixture)
	require.NoError(t, err)
	defer f.Close()
	src, _, err := image.Decode(f)
	require.NoError(t, err)

	gray := image.NewGray(src.Bounds())
	for y := src.Bounds().Min.Y; y < src.Bounds().Max.Y; y++ {
		for x := src.Bounds().Min.X; x < src.Bounds().Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(src.At(x, y)))
		}
	}

	c, err := Load("face", filepath.Join(dir, "haarcascade_frontalface_alt.xml"))
	require.NoError(t, err)
	defer c.Close()

	rects, err := c.DetectMultiScale(gray, detect.Params{ScaleFactor: 1.05, MinSize: 5, MinNeighbors: 3})
	require.NoError(t, err)

	want := image.Rect(10, 10, 50, 50)
	best := 0.0
	for _, r := range rects {
		if v := iou(r, want); v > best {
			best = v
		}
	}
	assert.GreaterOrEqual(t, best, 0.5)
}

func iou(a, b image.Rectangle) float64 {
	in := a.Intersect(b)
	if in.Empty() {
		return 0
	}
	ia := float64(in.Dx() * in.Dy())
	return ia / (float64(a.Dx()*a.Dy()+b.Dx()*b.Dy()) - ia)
}
