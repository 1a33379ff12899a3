// Package schedule decides when bursts run and when a run ends.
package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/torosent/burst/internal/output"
	"github.com/torosent/burst/internal/runner"
)

// ErrDeadlineReached is returned by a TimedExact run when its deadline fires.
// It marks a normal end, not a failure.
var ErrDeadlineReached = errors.New("exact deadline reached")

// BurstRunner runs one burst of count units and returns when all finish.
type BurstRunner interface {
	Run(ctx context.Context, count int) runner.Result
}

type Options struct {
	Load     int
	Duration time.Duration
	Interval time.Duration
	Exact    bool
	Verbose  bool
	Reporter output.Reporter
	Logger   *zap.Logger
}

// Controller runs a session of bursts according to its Kind.
type Controller struct {
	kind    Kind
	runner  BurstRunner
	opt     Options
	session atomic.Pointer[Session]
}

func New(r BurstRunner, opt Options) *Controller {
	if opt.Reporter == nil {
		opt.Reporter = output.Discard
	}
	if opt.Logger == nil {
		opt.Logger = zap.NewNop()
	}
	if opt.Load < 0 {
		opt.Load = 0
	}
	if opt.Interval < 0 {
		opt.Interval = 0
	}
	return &Controller{
		kind:   KindFor(opt.Duration, opt.Exact),
		runner: r,
		opt:    opt,
	}
}

func (c *Controller) Kind() Kind {
	return c.kind
}

// Session returns the most recently started session, or nil before Run.
func (c *Controller) Session() *Session {
	return c.session.Load()
}

// Run executes the session. It returns nil when a Single or Timed run
// completes, ErrDeadlineReached when a TimedExact deadline fires, and the
// context error when ctx is cancelled first.
func (c *Controller) Run(ctx context.Context) error {
	s := newSession()
	c.session.Store(s)

	log := c.opt.Logger.With(zap.Stringer("run_id", s.ID), zap.Stringer("kind", c.kind))
	log.Info("run started",
		zap.Int("load", c.opt.Load),
		zap.Duration("duration", c.opt.Duration),
		zap.Duration("interval", c.opt.Interval),
	)

	var err error
	switch c.kind {
	case Single:
		c.opt.Reporter.Report(output.Sending(c.opt.Load))
		c.burst(ctx, s, log)
		err = ctx.Err()
	case Timed:
		c.opt.Reporter.Report(output.SendingFor(c.opt.Duration))
		err = c.loop(ctx, s, log, true)
	case TimedExact:
		err = c.runExact(ctx, s, log)
	}

	log.Info("run finished",
		zap.Int64("bursts", s.Bursts()),
		zap.Duration("elapsed", s.Elapsed()),
		zap.Error(err),
	)
	return err
}

// runExact arms the deadline before the first burst and returns as soon as
// it fires, leaving in-flight requests behind.
func (c *Controller) runExact(ctx context.Context, s *Session, log *zap.Logger) error {
	deadline := time.NewTimer(c.opt.Duration)
	defer deadline.Stop()

	c.opt.Reporter.Report(output.SendingUntil(c.opt.Duration))

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- c.loop(loopCtx, s, log, false)
	}()

	select {
	case <-deadline.C:
		cancel()
		return ErrDeadlineReached
	case err := <-done:
		return err
	}
}

// loop repeats bursts. When bounded, no burst starts once the duration has
// elapsed; otherwise it only ends with ctx.
func (c *Controller) loop(ctx context.Context, s *Session, log *zap.Logger, bounded bool) error {
	expired := func() bool {
		return bounded && s.Elapsed() >= c.opt.Duration
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if expired() {
			return nil
		}
		if s.Bursts() > 0 && c.opt.Interval > 0 {
			if c.opt.Verbose {
				c.opt.Reporter.Report(output.Pause(c.opt.Interval))
			}
			if err := sleep(ctx, c.opt.Interval); err != nil {
				return err
			}
			if expired() {
				return nil
			}
		}
		c.burst(ctx, s, log)
	}
}

func (c *Controller) burst(ctx context.Context, s *Session, log *zap.Logger) {
	res := c.runner.Run(ctx, c.opt.Load)
	n := s.bursts.Add(1)
	log.Debug("burst finished",
		zap.Int64("burst", n),
		zap.Int64("issued", res.Issued),
		zap.Int64("failed", res.Failed),
		zap.Int64("faults", res.Faults),
		zap.Duration("took", res.Duration),
	)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
