// Package scheduler keeps at most one pipeline execution in flight.
//
// The capture tick calls Tick; while a job is outstanding every further tick is
// skipped and its frame is never even snapshotted. A finished job is delivered as
// a Completion on a channel that the display loop drains; the display loop calls
// Deliver, which hands the result over and only then frees the slot.
package scheduler

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/andresmejia3/lookout/internal/logger"
	"github.com/andresmejia3/lookout/internal/pipeline"
	"github.com/andresmejia3/lookout/internal/types"
	"github.com/andresmejia3/lookout/internal/worker"
	"github.com/cockroachdb/errors"
)

// Runner processes one frame. *pipeline.Pipeline satisfies it.
type Runner interface {
	Run(frame types.Frame) (*pipeline.Result, error)
}

// Completion is the outcome of one job. Exactly one of Result and Err is set.
type Completion struct {
	Seq    uint64
	Result *pipeline.Result
	Err    error
}

// Stats is a snapshot of the scheduler counters.
type Stats struct {
	Started   uint64
	Skipped   uint64
	Delivered uint64
	Failed    uint64
}

// Scheduler is the single-slot async scheduler.
type Scheduler struct {
	runner Runner
	pool   *worker.Pool

	busy atomic.Bool
	done chan Completion

	started   atomic.Uint64
	skipped   atomic.Uint64
	delivered atomic.Uint64
	failed    atomic.Uint64
}

// New builds a scheduler running jobs on a pool of engines. Extra engines only
// matter for keeping a warm goroutine around; one job runs at a time.
func New(runner Runner, engines int) *Scheduler {
	s := &Scheduler{
		runner: runner,
		// Capacity 1: the single outstanding job can always park its result,
		// even after the display loop has gone away.
		done: make(chan Completion, 1),
	}
	s.pool = worker.NewPool(engines, s.recovered)
	return s
}

// Tick starts a job for the frame returned by snapshot if no job is outstanding.
// It reports whether a job was started. snapshot is only called when the slot is free.
func (s *Scheduler) Tick(snapshot func() types.Frame) bool {
	if !s.busy.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		return false
	}

	frame := snapshot()
	if err := s.pool.Submit(func() { s.execute(frame) }); err != nil {
		s.busy.Store(false)
		logger.Logger.Warnw("Could not start pipeline job", logger.FieldSeq, frame.Seq, logger.FieldError, err)
		return false
	}
	s.started.Add(1)
	return true
}

func (s *Scheduler) execute(frame types.Frame) {
	var c Completion
	c.Seq = frame.Seq
	defer func() {
		// Runs on panic too, so the slot is never leaked.
		if r := recover(); r != nil {
			c = Completion{Seq: frame.Seq, Err: errors.Mark(errors.Newf("panic in pipeline: %v", r), pipeline.ErrExecution)}
		}
		s.done <- c
	}()
	c.Result, c.Err = s.runner.Run(frame)
}

func (s *Scheduler) recovered(engine int, r any) {
	logger.Logger.Errorw("Engine panicked outside a job", logger.FieldEngine, engine, logger.FieldError, fmt.Sprint(r))
}

// Completions yields finished jobs. Receive from it on the display context.
func (s *Scheduler) Completions() <-chan Completion {
	return s.done
}

// Deliver finishes a completion on the display context: a successful result is
// passed to present, a failure is logged and dropped. The outstanding flag is
// cleared only after present returns, so the next job cannot start before the
// previous result is on screen. The returned error is present's error.
func (s *Scheduler) Deliver(c Completion, present func(*pipeline.Result) error) error {
	defer s.busy.Store(false)

	if c.Err != nil {
		s.failed.Add(1)
		logger.Logger.Errorw("Dropping frame after pipeline failure", logger.FieldSeq, c.Seq, logger.FieldError, c.Err)
		return nil
	}

	start := time.Now()
	if err := present(c.Result); err != nil {
		s.failed.Add(1)
		return err
	}
	s.delivered.Add(1)
	logger.Logger.Debugw("Frame delivered",
		logger.FieldSeq, c.Seq,
		logger.FieldFaces, len(c.Result.Faces),
		logger.FieldEyes, c.Result.EyeCount(),
		logger.FieldDurationMS, c.Result.Duration.Milliseconds(),
		"present_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Busy reports whether a job is outstanding.
func (s *Scheduler) Busy() bool { return s.busy.Load() }

// Stats returns a snapshot of the counters.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Started:   s.started.Load(),
		Skipped:   s.skipped.Load(),
		Delivered: s.delivered.Load(),
		Failed:    s.failed.Load(),
	}
}

// Close stops accepting ticks and lets an in-flight job run to completion.
// Its completion stays parked in the channel and is discarded with the scheduler.
func (s *Scheduler) Close() {
	s.busy.Store(true)
	s.pool.Close()
}
