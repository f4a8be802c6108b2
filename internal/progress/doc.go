// Package progress carries sync run progress from the coordinator to pluggable sinks.
// Events are batched on a background goroutine so that reporting never slows the
// scrape; sinks turn them into logs, metrics, run records and notifications.
package progress
