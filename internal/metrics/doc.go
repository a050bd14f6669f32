// Package metrics exposes session engine observability hooks. The engine and
// its adapters depend on the Recorder interface; the daemon injects a
// PrometheusRecorder when metrics are enabled and NoopRecorder otherwise.
package metrics
