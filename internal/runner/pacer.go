package runner

import (
	"context"

	"golang.org/x/time/rate"
)

// pacer spaces unit starts within one burst. A nil pacer never waits.
type pacer struct {
	limiter *rate.Limiter
}

func newPacer(opt Options) *pacer {
	if opt.RatePerSecond <= 0 {
		return nil
	}
	return &pacer{limiter: opt.LimiterFactory(opt.RatePerSecond)}
}

func (p *pacer) Wait(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}
