package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/torosent/burst/internal/dispatch"
	"github.com/torosent/burst/internal/httpclient"
	"github.com/torosent/burst/internal/runner"
)

// RequestHook returns a dispatch.Hook that wraps every send in a client span.
func (p *Provider) RequestHook() dispatch.Hook {
	return requestHook{tracer: p.Tracer(), propagate: p.ShouldPropagate()}
}

// BurstHook returns a runner.BurstHook that opens a parent span per burst.
func (p *Provider) BurstHook() runner.BurstHook {
	return burstHook{tracer: p.Tracer()}
}

type requestHook struct {
	tracer    trace.Tracer
	propagate bool
}

func (h requestHook) Before(ctx context.Context, id uint64, req *httpclient.Request) context.Context {
	ctx, span := StartRequestSpan(ctx, h.tracer, req.Method, req.URL)
	span.SetAttributes(attribute.Int64("burst.request_id", int64(id)))
	if h.propagate {
		if req.Header == nil {
			req.Header = http.Header{}
		}
		InjectHTTPHeaders(ctx, req.Header)
	}
	return ctx
}

func (h requestHook) After(ctx context.Context, out dispatch.Outcome) {
	span := trace.SpanFromContext(ctx)
	if out.Err != nil {
		EndSpan(span, out.Err)
		return
	}
	EndSpan(span, nil, attribute.Int("http.response.status_code", out.Status))
}

type burstHook struct {
	tracer trace.Tracer
}

func (h burstHook) BurstStart(ctx context.Context, burst uint64, count int) context.Context {
	ctx, _ = h.tracer.Start(ctx, "burst",
		trace.WithAttributes(
			attribute.Int64("burst.sequence", int64(burst)),
			attribute.Int("burst.size", count),
		),
	)
	return ctx
}

func (h burstHook) BurstDone(ctx context.Context, _ uint64, res runner.Result) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.Int64("burst.issued", res.Issued),
		attribute.Int64("burst.failed", res.Failed),
		attribute.Int64("burst.faults", res.Faults),
	)
	span.End()
}
