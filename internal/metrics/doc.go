// Package metrics records regeneration and preview server metrics.
//
// Components receive a Recorder through their constructors and default to
// NoopRecorder, so no call site needs a nil check:
//
//	coord := regen.New(runner, notifier, sink, regen.WithRecorder(recorder))
//
// The watch command installs a PrometheusRecorder backed by a private
// registry and exposes it on the preview server's /metrics route via
// HTTPHandler.
package metrics
