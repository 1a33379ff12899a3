package runner

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/torosent/burst/internal/output"
)

// Worker executes a single unit. A returned error is a transport failure and
// never stops sibling units.
type Worker interface {
	Do(ctx context.Context, unit Unit) error
}

// WorkerFunc adapts a function to Worker.
type WorkerFunc func(ctx context.Context, unit Unit) error

func (f WorkerFunc) Do(ctx context.Context, unit Unit) error { return f(ctx, unit) }

// Options configure the Runner.
type Options struct {
	Workers        int                         // maximum units in flight
	RatePerSecond  int                         // unit starts per second within a burst (0 means unlimited)
	Reporter       output.Reporter             // receives request and internal error lines
	Logger         *zap.Logger                 // diagnostics for internal faults
	Hooks          []BurstHook                 // observe burst start and end
	LimiterFactory func(rps int) *rate.Limiter // optional injection for tests
}

func (o *Options) normalize() {
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.RatePerSecond < 0 {
		o.RatePerSecond = 0
	}
	if o.Reporter == nil {
		o.Reporter = output.Discard
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps int) *rate.Limiter {
			if rps <= 0 {
				return rate.NewLimiter(rate.Inf, 0)
			}
			// Burst equal to rps to smooth pacing under concurrency.
			return rate.NewLimiter(rate.Limit(rps), rps)
		}
	}
}
