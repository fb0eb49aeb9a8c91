// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from the data-access layer and the ingestion pipeline.
//
// The package exposes a narrow interface (Backend) focused on counters and
// timing data, and a global, pluggable backend that defaults to a no-op
// implementation, so instrumentation is always safe to call even when no real
// backend is configured. Concrete systems live in subpackages (prompush,
// datadog) so the rest of the code depends only on this package.
package metrics

import "time"

// Metric names emitted by the helpers below.
const (
	OpTotal            = "dbaccess_operation_total"
	OpDurationSeconds  = "dbaccess_operation_duration_seconds"
	IngestTotal        = "dbaccess_ingest_total"
	IngestDurationSecs = "dbaccess_ingest_duration_seconds"
	RowsTotal          = "dbaccess_ingest_rows_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
// Call it once during startup, before any operation runs.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

func status(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// RecordOp counts and times one adapter operation (select, execute, ...).
func RecordOp(kind, op string, err error, d time.Duration) {
	lbls := Labels{
		"kind":   kind,
		"op":     op,
		"status": status(err),
	}
	backend.IncCounter(OpTotal, 1, lbls)
	backend.ObserveHistogram(OpDurationSeconds, d.Seconds(), lbls)
}

// RecordIngest counts and times one ingestion run against table.
func RecordIngest(table string, err error, d time.Duration) {
	lbls := Labels{
		"table":  table,
		"status": status(err),
	}
	backend.IncCounter(IngestTotal, 1, lbls)
	backend.ObserveHistogram(IngestDurationSecs, d.Seconds(), lbls)
}

// RecordRows increments the row counter for table. Typical outcomes are
// "attempted", "succeeded" and "failed". Non-positive deltas are ignored.
func RecordRows(table, outcome string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RowsTotal, float64(delta), Labels{
		"table":   table,
		"outcome": outcome,
	})
}
