package runner

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/torosent/burst/internal/output"
)

// Unit stands for one request to send. It only identifies the work.
type Unit struct {
	Burst uint64
	Seq   int
}

// Result captures a burst summary.
type Result struct {
	Issued   int64
	Failed   int64
	Faults   int64
	Duration time.Duration
}

// requestIdentifier is implemented by worker errors that carry the request's
// correlation id.
type requestIdentifier interface {
	RequestID() uint64
}

// Runner executes bursts of units with bounded concurrency.
type Runner struct {
	opt    Options
	worker Worker
	bursts atomic.Uint64
}

func New(worker Worker, opt Options) *Runner {
	opt.normalize()
	return &Runner{opt: opt, worker: worker}
}

// Bursts returns how many bursts have started.
func (r *Runner) Bursts() uint64 {
	return r.bursts.Load()
}

// Run starts count units in order with at most Workers in flight and returns
// once every started unit has finished. No unit starts after ctx is done.
func (r *Runner) Run(ctx context.Context, count int) Result {
	start := time.Now()
	burst := r.bursts.Add(1)

	for _, h := range r.opt.Hooks {
		ctx = h.BurstStart(ctx, burst, count)
	}

	var issued, failed, faults atomic.Int64
	pace := newPacer(r.opt)

	var g errgroup.Group
	g.SetLimit(r.opt.Workers)
	for seq := 0; seq < count; seq++ {
		if ctx.Err() != nil {
			break
		}
		if err := pace.Wait(ctx); err != nil {
			break
		}
		unit := Unit{Burst: burst, Seq: seq}
		issued.Add(1)
		g.Go(func() error {
			r.execute(ctx, unit, &failed, &faults)
			return nil
		})
	}
	_ = g.Wait()

	res := Result{
		Issued:   issued.Load(),
		Failed:   failed.Load(),
		Faults:   faults.Load(),
		Duration: time.Since(start),
	}
	for i := len(r.opt.Hooks) - 1; i >= 0; i-- {
		r.opt.Hooks[i].BurstDone(ctx, burst, res)
	}
	return res
}

func (r *Runner) execute(ctx context.Context, unit Unit, failed, faults *atomic.Int64) {
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		faults.Add(1)
		r.opt.Logger.Error("unit execution fault",
			zap.Uint64("burst", unit.Burst),
			zap.Int("unit", unit.Seq),
			zap.Any("panic", rec),
			zap.Stack("stack"),
		)
		if ctx.Err() == nil {
			r.opt.Reporter.Report(output.InternalError(fmt.Errorf("unit %d of burst %d: %v", unit.Seq, unit.Burst, rec)))
		}
	}()

	err := r.worker.Do(ctx, unit)
	if err == nil {
		return
	}
	failed.Add(1)
	if ctx.Err() != nil {
		return
	}
	var id uint64
	var ri requestIdentifier
	if errors.As(err, &ri) {
		id = ri.RequestID()
	}
	r.opt.Reporter.Report(output.RequestError(id, err))
}
