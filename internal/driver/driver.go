// Package driver runs the display loop: it owns the sink, fires capture ticks
// into the scheduler and presents completed frames. Run must be called from the
// goroutine that owns the display (the main thread for a HighGUI window).
package driver

import (
	"context"
	"time"

	"github.com/andresmejia3/lookout/internal/detect"
	"github.com/andresmejia3/lookout/internal/logger"
	"github.com/andresmejia3/lookout/internal/pipeline"
	"github.com/andresmejia3/lookout/internal/scheduler"
	"github.com/andresmejia3/lookout/internal/sink"
	"github.com/andresmejia3/lookout/internal/source"
	"github.com/cockroachdb/errors"
)

// Driver wires a source, the scheduler and a sink together.
type Driver struct {
	src   source.Source
	sched *scheduler.Scheduler
	sink  sink.Sink
	poll  sink.Poller
	tick  time.Duration

	// OnDelivered, if set, is called after every frame reaches the sink.
	OnDelivered func(*pipeline.Result)
}

// New validates the wiring. A missing display target is fatal.
func New(src source.Source, sched *scheduler.Scheduler, sk sink.Sink, tick time.Duration) (*Driver, error) {
	if sk == nil {
		return nil, errors.Mark(errors.New("no display target configured"), detect.ErrInitialization)
	}
	if src == nil {
		return nil, errors.Mark(errors.New("no frame source configured"), detect.ErrInitialization)
	}
	if sched == nil {
		return nil, errors.Mark(errors.New("no scheduler configured"), detect.ErrInitialization)
	}
	if tick <= 0 {
		return nil, errors.Mark(errors.Newf("tick must be positive, got %s", tick), detect.ErrInitialization)
	}
	d := &Driver{src: src, sched: sched, sink: sk, tick: tick}
	d.poll, _ = sk.(sink.Poller)
	return d, nil
}

// Run starts the source and loops until ctx is cancelled or the sink closes.
// On return the source is stopped and no job is left running.
func (d *Driver) Run(ctx context.Context) error {
	log := logger.Named("driver")

	defer func() {
		d.sched.Close()
		if err := d.src.Stop(); err != nil {
			log.Warnw("Stopping source failed", logger.FieldError, err)
		}
		st := d.sched.Stats()
		log.Infow("Driver stopped", "started", st.Started, "skipped", st.Skipped, "delivered", st.Delivered, "failed", st.Failed)
	}()

	if err := d.src.Start(ctx); err != nil {
		return err
	}

	// Until the first frame is processed the display shows a transparent texture
	// of the output size.
	w, h := d.src.Size()
	if err := d.sink.Present(make([]byte, w*h*4), w, h); err != nil {
		if errors.Is(err, sink.ErrClosed) {
			return nil
		}
		return errors.Wrap(err, "presenting initial frame")
	}

	ticker := time.NewTicker(d.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			// The display is serviced on every tick, even while a job holds the slot.
			if d.poll != nil {
				if err := d.poll.Poll(); err != nil {
					if errors.Is(err, sink.ErrClosed) {
						log.Infow("Display closed")
						return nil
					}
					log.Warnw("Polling display failed", logger.FieldError, err)
				}
			}
			if d.src.Ready() {
				d.sched.Tick(d.src.Current)
			}

		case c := <-d.sched.Completions():
			err := d.sched.Deliver(c, d.present)
			if errors.Is(err, sink.ErrClosed) {
				log.Infow("Display closed")
				return nil
			}
			if err != nil {
				// Keep the previous image on screen and carry on.
				log.Errorw("Presenting frame failed", logger.FieldSeq, c.Seq, logger.FieldError, err)
			}
		}
	}
}

func (d *Driver) present(r *pipeline.Result) error {
	b := r.Image.Bounds()
	if err := d.sink.Present(r.Image.Pix, b.Dx(), b.Dy()); err != nil {
		return err
	}
	if d.OnDelivered != nil {
		d.OnDelivered(r)
	}
	return nil
}
