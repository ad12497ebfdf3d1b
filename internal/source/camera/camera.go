// Package camera captures frames from a local video device through OpenCV.
package camera

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/andresmejia3/lookout/internal/detect"
	"github.com/andresmejia3/lookout/internal/logger"
	"github.com/andresmejia3/lookout/internal/source"
	"github.com/andresmejia3/lookout/internal/types"
	"github.com/cockroachdb/errors"
	"gocv.io/x/gocv"
)

// Camera is a source.Source backed by gocv.VideoCapture.
type Camera struct {
	device        int
	width, height int

	webcam *gocv.VideoCapture
	box    source.Mailbox

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New prepares a camera source; nothing is opened until Start.
func New(device, width, height int) *Camera {
	return &Camera{device: device, width: width, height: height}
}

// Start opens the device and spawns the capture goroutine.
func (c *Camera) Start(ctx context.Context) error {
	webcam, err := gocv.OpenVideoCapture(c.device)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "opening video device %d", c.device), detect.ErrInitialization)
	}
	webcam.Set(gocv.VideoCaptureFrameWidth, float64(c.width))
	webcam.Set(gocv.VideoCaptureFrameHeight, float64(c.height))
	c.webcam = webcam

	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.capture(ctx)
	}()

	logger.Logger.Infow("Camera started", logger.FieldKind, "camera", "device", c.device, logger.FieldWidth, c.width, logger.FieldHeight, c.height)
	return nil
}

func (c *Camera) capture(ctx context.Context) {
	raw := gocv.NewMat()
	defer raw.Close()
	scaled := gocv.NewMat()
	defer scaled.Close()
	rgba := gocv.NewMat()
	defer rgba.Close()

	size := image.Pt(c.width, c.height)
	for ctx.Err() == nil {
		if ok := c.webcam.Read(&raw); !ok || raw.Empty() {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		src := raw
		if raw.Cols() != c.width || raw.Rows() != c.height {
			gocv.Resize(raw, &scaled, size, 0, 0, gocv.InterpolationLinear)
			src = scaled
		}
		gocv.CvtColor(src, &rgba, gocv.ColorBGRToRGBA)
		// ToBytes copies, so every published frame owns its buffer.
		c.box.Publish(rgba.ToBytes(), c.width, c.height, types.TopDown)
	}
}

// Ready implements source.Source.
func (c *Camera) Ready() bool { return c.box.Ready() }

// Current implements source.Source.
func (c *Camera) Current() types.Frame { return c.box.Take() }

// Size implements source.Source.
func (c *Camera) Size() (int, int) { return c.width, c.height }

// Stop ends capture and closes the device.
func (c *Camera) Stop() error {
	var err error
	c.stopOnce.Do(func() {
		if c.cancel == nil {
			return
		}
		c.cancel()
		c.wg.Wait()
		err = c.webcam.Close()
		logger.Logger.Infow("Camera stopped", "dropped", c.box.Dropped())
	})
	return err
}
