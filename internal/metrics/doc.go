// Package metrics defines the observability hooks used by the compiler.
//
// The compiler only talks to the Recorder interface. NoopRecorder is the
// default; PrometheusRecorder backs the CLI server's /metrics endpoint.
package metrics
