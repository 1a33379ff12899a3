// Package dispatch sends one request per work unit and reports its outcome.
package dispatch

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/torosent/burst/internal/httpclient"
	"github.com/torosent/burst/internal/output"
	"github.com/torosent/burst/internal/runner"
)

// HTTPClient performs a request and returns its status code. Only transport
// failures are errors.
type HTTPClient interface {
	Send(ctx context.Context, req httpclient.Request) (int, error)
}

// RequestSource produces a fresh request template per send.
type RequestSource interface {
	Build() httpclient.Request
}

// Hook instruments every send. Before may add headers to req and return a
// derived context; After receives that context and the outcome.
type Hook interface {
	Before(ctx context.Context, id uint64, req *httpclient.Request) context.Context
	After(ctx context.Context, out Outcome)
}

// Outcome is the result of one send. It is handed to hooks and then dropped.
type Outcome struct {
	ID      uint64
	Unit    runner.Unit
	Method  string
	Status  int
	Err     error
	Elapsed time.Duration
}

// RequestError is a transport failure for a single request. It never stops
// the run.
type RequestError struct {
	ID  uint64
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request %d: %v", e.ID, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// RequestID returns the correlation id of the failed request.
func (e *RequestError) RequestID() uint64 { return e.ID }

type Options struct {
	Timeout  time.Duration
	Verbose  bool
	Reporter output.Reporter
	Hooks    []Hook
	// NewID overrides the correlation id source; tests use it for
	// deterministic ids.
	NewID func() uint64
}

// Dispatcher implements runner.Worker over an HTTPClient.
type Dispatcher struct {
	client   HTTPClient
	requests RequestSource
	opt      Options
}

func New(client HTTPClient, requests RequestSource, opt Options) *Dispatcher {
	if opt.Reporter == nil {
		opt.Reporter = output.Discard
	}
	if opt.NewID == nil {
		opt.NewID = rand.Uint64
	}
	return &Dispatcher{client: client, requests: requests, opt: opt}
}

// Do sends one request for unit. With Verbose, the status line is reported
// unless ctx has been cancelled in the meantime.
func (d *Dispatcher) Do(ctx context.Context, unit runner.Unit) error {
	id := d.opt.NewID()
	req := d.requests.Build()

	reqCtx := ctx
	if d.opt.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, d.opt.Timeout)
		defer cancel()
	}
	for _, h := range d.opt.Hooks {
		reqCtx = h.Before(reqCtx, id, &req)
	}

	start := time.Now()
	status, err := d.client.Send(reqCtx, req)
	out := Outcome{
		ID:      id,
		Unit:    unit,
		Method:  req.Method,
		Status:  status,
		Err:     err,
		Elapsed: time.Since(start),
	}
	for i := len(d.opt.Hooks) - 1; i >= 0; i-- {
		d.opt.Hooks[i].After(reqCtx, out)
	}

	if err != nil {
		return &RequestError{ID: id, Err: err}
	}
	if d.opt.Verbose && ctx.Err() == nil {
		d.opt.Reporter.Report(output.Status(id, status))
	}
	return nil
}
