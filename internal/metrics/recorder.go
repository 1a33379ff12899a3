package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/torosent/burst/internal/dispatch"
	"github.com/torosent/burst/internal/httpclient"
	"github.com/torosent/burst/internal/runner"
)

const namespace = "burst"

// Recorder holds the run's Prometheus instruments.
type Recorder struct {
	registry *prometheus.Registry

	requests      *prometheus.CounterVec
	failures      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	inFlight      prometheus.Gauge
	bursts        prometheus.Counter
	burstDuration prometheus.Histogram
	burstFaults   prometheus.Counter
}

// NewRecorder creates a Recorder registered on a fresh registry, together with
// the Go runtime and process collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Requests that received a response, by method and status class.",
			},
			[]string{"method", "status_class"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "request_failures_total",
				Help:      "Requests that failed at the transport level, by reason.",
			},
			[]string{"method", "reason"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Time from send to response or failure.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
			},
			[]string{"method"},
		),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "requests_in_flight",
			Help:      "Requests currently awaiting a response.",
		}),
		bursts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bursts_total",
			Help:      "Bursts completed.",
		}),
		burstDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "burst_duration_seconds",
			Help:      "Wall time of each burst.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		burstFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "internal_faults_total",
			Help:      "Recovered scheduling faults.",
		}),
	}

	r.registry.MustRegister(
		r.requests,
		r.failures,
		r.latency,
		r.inFlight,
		r.bursts,
		r.burstDuration,
		r.burstFaults,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registry returns the registry the instruments are registered on.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Before implements dispatch.Hook.
func (r *Recorder) Before(ctx context.Context, _ uint64, _ *httpclient.Request) context.Context {
	r.inFlight.Inc()
	return ctx
}

// After implements dispatch.Hook.
func (r *Recorder) After(_ context.Context, out dispatch.Outcome) {
	r.inFlight.Dec()
	r.latency.WithLabelValues(out.Method).Observe(out.Elapsed.Seconds())
	if out.Err != nil {
		r.failures.WithLabelValues(out.Method, FailureReason(out.Err)).Inc()
		return
	}
	r.requests.WithLabelValues(out.Method, statusClass(out.Status)).Inc()
}

// BurstStart implements runner.BurstHook.
func (r *Recorder) BurstStart(ctx context.Context, _ uint64, _ int) context.Context {
	return ctx
}

// BurstDone implements runner.BurstHook.
func (r *Recorder) BurstDone(_ context.Context, _ uint64, res runner.Result) {
	r.bursts.Inc()
	r.burstDuration.Observe(res.Duration.Seconds())
	if res.Faults > 0 {
		r.burstFaults.Add(float64(res.Faults))
	}
}

var (
	_ dispatch.Hook    = (*Recorder)(nil)
	_ runner.BurstHook = (*Recorder)(nil)
)
