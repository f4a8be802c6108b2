// Package sinks implements progress consumers: structured logs, Prometheus collectors,
// run history persistence and Pub/Sub notifications. Each satisfies progress.Sink.
package sinks
