// Package metrics exposes Prometheus instruments for a burst run.
//
// A [Recorder] owns its own registry and observes the engine through two
// hooks: it implements dispatch.Hook for individual requests and
// runner.BurstHook for whole bursts.
//
//	rec := metrics.NewRecorder()
//	runner.New(dispatcher, runner.Options{Hooks: []runner.BurstHook{rec}})
//	dispatch.New(client, builder, dispatch.Options{Hooks: []dispatch.Hook{rec}})
//
// Outcomes are folded into counters and histograms as they arrive. Nothing is
// retained per request.
//
// # Listener
//
// [Serve] publishes the registry on /metrics until its context is cancelled:
//
//	go metrics.Serve(ctx, ":9090", rec.Registry(), logger)
package metrics
