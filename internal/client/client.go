// Package client composes a burst run from a validated configuration. It is
// the only entry point the CLI uses.
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/torosent/burst/internal/auth"
	"github.com/torosent/burst/internal/config"
	"github.com/torosent/burst/internal/dispatch"
	"github.com/torosent/burst/internal/httpclient"
	"github.com/torosent/burst/internal/lock"
	"github.com/torosent/burst/internal/metrics"
	"github.com/torosent/burst/internal/output"
	"github.com/torosent/burst/internal/runner"
	"github.com/torosent/burst/internal/schedule"
	"github.com/torosent/burst/internal/tracing"
)

// ErrDeadlineReached is returned by Run when an exact run hits its deadline.
var ErrDeadlineReached = schedule.ErrDeadlineReached

// Client owns every resource of one run.
type Client struct {
	cfg        *config.Config
	logger     *zap.Logger
	controller *schedule.Controller
	recorder   *metrics.Recorder

	auth      auth.Provider
	transport *httpclient.Client
	tracer    *tracing.Provider
	runLock   *lock.RunLock
	metricsLn net.Listener

	closeOnce sync.Once
	closeErr  error
}

// New validates cfg and builds the run. Resources acquired here (the lock,
// the metrics listener, the trace exporter) are released by Close, or
// immediately if New fails.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (c *Client, err error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	kind := schedule.KindFor(cfg.DurationValue(), cfg.Exact)
	if err := checkKind(cfg, kind); err != nil {
		return nil, err
	}

	o := options{reporter: output.Discard, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	c = &Client{cfg: cfg, logger: o.logger}
	if kind == schedule.Single && (cfg.Exact || cfg.IntervalValue() > 0) {
		o.logger.Warn("duration is 0, interval and exact are ignored for a single burst")
	}
	defer func() {
		if err != nil {
			_ = c.Close(context.Background())
			c = nil
		}
	}()

	if cfg.LockFile != "" {
		if c.runLock, err = lock.Acquire(cfg.LockFile); err != nil {
			return c, err
		}
		o.logger.Debug("run lock acquired", zap.String("path", c.runLock.Path()))
	}

	builder, err := httpclient.NewRequestBuilder(cfg)
	if err != nil {
		return c, fmt.Errorf("request: %w", err)
	}

	httpClient := o.httpClient
	if httpClient == nil {
		c.auth = auth.FromConfig(cfg)
		c.transport = httpclient.New(cfg.Timeout, c.auth)
		httpClient = c.transport
	}

	if c.tracer, err = tracing.Init(ctx, cfg.Tracing); err != nil {
		return c, err
	}
	c.recorder = metrics.NewRecorder()
	if cfg.MetricsAddr != "" {
		if c.metricsLn, err = metrics.Listen(cfg.MetricsAddr); err != nil {
			return c, err
		}
	}

	dispatcher := dispatch.New(httpClient, builder, dispatch.Options{
		Timeout:  cfg.Timeout,
		Verbose:  cfg.Verbose,
		Reporter: o.reporter,
		Hooks:    []dispatch.Hook{c.tracer.RequestHook(), c.recorder},
	})
	r := runner.New(dispatcher, runner.Options{
		Workers:       cfg.Workers,
		RatePerSecond: cfg.Rate,
		Reporter:      o.reporter,
		Logger:        o.logger,
		Hooks:         []runner.BurstHook{c.tracer.BurstHook(), c.recorder},
	})
	c.controller = schedule.New(r, schedule.Options{
		Load:     cfg.Load,
		Duration: cfg.DurationValue(),
		Interval: cfg.IntervalValue(),
		Exact:    cfg.Exact,
		Verbose:  cfg.Verbose,
		Reporter: o.reporter,
		Logger:   o.logger,
	})

	return c, nil
}

// checkKind re-checks the settings that decide the execution kind. Interval
// and exact need a duration; with a zero duration they are inert.
func checkKind(cfg *config.Config, kind schedule.Kind) error {
	if cfg.Duration == nil && (cfg.Interval != nil || cfg.Exact) {
		return fmt.Errorf("kind %s: interval and exact require duration", kind)
	}
	if kind == schedule.TimedExact && cfg.DurationValue() <= 0 {
		return fmt.Errorf("kind %s requires a positive duration", kind)
	}
	return nil
}

// Kind returns the execution kind the run resolved to.
func (c *Client) Kind() schedule.Kind {
	return c.controller.Kind()
}

// Session returns the current run session, or nil before Run.
func (c *Client) Session() *schedule.Session {
	return c.controller.Session()
}

// Metrics returns the run's Prometheus recorder.
func (c *Client) Metrics() *metrics.Recorder {
	return c.recorder
}

// Run executes the session. It returns nil after a Single or Timed run,
// ErrDeadlineReached when an exact run hits its deadline, and the context
// error on interrupt. The metrics listener, if configured, serves for the
// length of the run.
func (c *Client) Run(ctx context.Context) error {
	if c.metricsLn == nil {
		return c.controller.Run(ctx)
	}

	serveCtx, stopServe := context.WithCancel(ctx)
	var g errgroup.Group
	g.Go(func() error {
		return metrics.Serve(serveCtx, c.metricsLn, c.recorder.Registry(), c.logger)
	})

	runErr := c.controller.Run(ctx)
	stopServe()
	if errors.Is(runErr, ErrDeadlineReached) {
		// The listener winds down on its own; an exact run does not wait
		// for in-progress scrapes.
		return runErr
	}
	if err := g.Wait(); err != nil {
		c.logger.Warn("metrics listener", zap.Error(err))
	}
	c.metricsLn = nil
	return runErr
}

// Close flushes spans and releases connections and the run lock. The span
// flush gives up when ctx is done. It is safe to call more than once.
func (c *Client) Close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		var errs []error
		if c.metricsLn != nil {
			if err := c.metricsLn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
				errs = append(errs, err)
			}
		}
		if err := c.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracing shutdown: %w", err))
		}
		if c.transport != nil {
			c.transport.CloseIdleConnections()
		}
		if c.auth != nil {
			if err := c.auth.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if err := c.runLock.Release(); err != nil {
			errs = append(errs, fmt.Errorf("release lock: %w", err))
		}
		c.closeErr = errors.Join(errs...)
	})
	return c.closeErr
}
