package source

import (
	"context"
	"io"
	"sync"

	"github.com/andresmejia3/lookout/internal/detect"
	"github.com/andresmejia3/lookout/internal/logger"
	"github.com/andresmejia3/lookout/internal/types"
	"github.com/andresmejia3/lookout/internal/utils"
	"github.com/cockroachdb/errors"
)

// FFmpeg decodes any ffmpeg-readable input (file, URL, v4l2 device) into RGBA frames.
type FFmpeg struct {
	input         string
	width, height int
	loop          bool

	cmd *utils.SafeCommand
	box Mailbox

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
	errMu    sync.Mutex
	err      error
}

// NewFFmpeg prepares an ffmpeg source; the process is spawned by Start.
func NewFFmpeg(input string, width, height int, loop bool) *FFmpeg {
	return &FFmpeg{input: input, width: width, height: height, loop: loop}
}

// Start spawns ffmpeg and begins reading frames from its stdout.
func (f *FFmpeg) Start(ctx context.Context) error {
	ctx, f.cancel = context.WithCancel(ctx)
	f.cmd = utils.NewFFmpegRawDecoder(ctx, f.input, f.width, f.height, f.loop)

	stdout, err := f.cmd.StdoutPipe()
	if err != nil {
		f.cancel()
		return errors.Mark(errors.Wrap(err, "creating ffmpeg stdout pipe"), detect.ErrInitialization)
	}
	if err := f.cmd.Start(); err != nil {
		f.cancel()
		err = errors.WithHint(errors.Wrap(err, "starting ffmpeg"), "Is ffmpeg installed and on PATH?")
		return errors.Mark(err, detect.ErrInitialization)
	}

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		f.setErr(f.read(stdout))
		// Reap the process; its exit status only matters if reading failed.
		_ = f.cmd.Wait()
	}()

	logger.Logger.Infow("FFmpeg source started", logger.FieldKind, "ffmpeg", logger.FieldPath, f.input, logger.FieldWidth, f.width, logger.FieldHeight, f.height)
	return nil
}

// read publishes fixed-size RGBA frames until r is exhausted.
func (f *FFmpeg) read(r io.Reader) error {
	size := f.width * f.height * 4
	for {
		pix := make([]byte, size)
		if _, err := io.ReadFull(r, pix); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return errors.Wrap(err, "reading ffmpeg frame")
		}
		f.box.Publish(pix, f.width, f.height, types.TopDown)
	}
}

func (f *FFmpeg) setErr(err error) {
	if err == nil {
		return
	}
	f.errMu.Lock()
	f.err = err
	f.errMu.Unlock()
	logger.Logger.Warnw("FFmpeg stream ended", logger.FieldError, err)
}

// Err returns the error that ended the stream, if any.
func (f *FFmpeg) Err() error {
	f.errMu.Lock()
	defer f.errMu.Unlock()
	return f.err
}

// Command exposes the running ffmpeg process, mostly for its captured stderr.
func (f *FFmpeg) Command() *utils.SafeCommand { return f.cmd }

// Ready implements Source.
func (f *FFmpeg) Ready() bool { return f.box.Ready() }

// Current implements Source.
func (f *FFmpeg) Current() types.Frame { return f.box.Take() }

// Size implements Source.
func (f *FFmpeg) Size() (int, int) { return f.width, f.height }

// Stop kills ffmpeg and waits for the reader to drain.
func (f *FFmpeg) Stop() error {
	f.stopOnce.Do(func() {
		if f.cancel == nil {
			return
		}
		f.cancel()
		f.wg.Wait()
		logger.Logger.Infow("FFmpeg source stopped", "dropped", f.box.Dropped())
	})
	return nil
}
