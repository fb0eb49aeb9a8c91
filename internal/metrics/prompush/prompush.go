// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// Collected series are pushed to a Pushgateway on Flush rather than exposed on
// a scrape endpoint, which suits short-lived CLI runs. All Prometheus-specific
// dependencies stay in this package.
package prompush

import (
	"fmt"

	"dbaccess/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	opCounter  *prometheus.CounterVec // dbaccess_operation_total
	opDuration *prometheus.SummaryVec // dbaccess_operation_duration_seconds

	ingestCounter  *prometheus.CounterVec // dbaccess_ingest_total
	ingestDuration *prometheus.SummaryVec // dbaccess_ingest_duration_seconds
	rowCounter     *prometheus.CounterVec // dbaccess_ingest_rows_total
}

var objectives = map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001}

// NewBackend constructs a Prometheus Pushgateway backend.
// jobName: the Pushgateway "job" name.
// gatewayURL: base URL of the Pushgateway server.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "dbaccess"
	}

	reg := prometheus.NewRegistry()

	opCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.OpTotal,
			Help: "Adapter operations, partitioned by engine kind, operation, and status.",
		},
		[]string{"kind", "op", "status"},
	)
	opDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       metrics.OpDurationSeconds,
			Help:       "Adapter operation latency in seconds.",
			Objectives: objectives,
		},
		[]string{"kind", "op", "status"},
	)
	ingestCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.IngestTotal,
			Help: "Ingestion runs, partitioned by table and status.",
		},
		[]string{"table", "status"},
	)
	ingestDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       metrics.IngestDurationSecs,
			Help:       "Ingestion run duration in seconds.",
			Objectives: objectives,
		},
		[]string{"table", "status"},
	)
	rowCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.RowsTotal,
			Help: "Ingested rows per outcome (attempted, succeeded, failed).",
		},
		[]string{"table", "outcome"},
	)

	for name, c := range map[string]prometheus.Collector{
		"operation counter": opCounter,
		"operation summary": opDuration,
		"ingest counter":    ingestCounter,
		"ingest summary":    ingestDuration,
		"row counter":       rowCounter,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", name, err)
		}
	}

	return &Backend{
		gatewayURL:     gatewayURL,
		jobName:        jobName,
		reg:            reg,
		opCounter:      opCounter,
		opDuration:     opDuration,
		ingestCounter:  ingestCounter,
		ingestDuration: ingestDuration,
		rowCounter:     rowCounter,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.OpTotal:
		if b.opCounter == nil {
			return
		}
		b.opCounter.WithLabelValues(labels["kind"], labels["op"], labels["status"]).Add(delta)

	case metrics.IngestTotal:
		if b.ingestCounter == nil {
			return
		}
		b.ingestCounter.WithLabelValues(labels["table"], labels["status"]).Add(delta)

	case metrics.RowsTotal:
		if b.rowCounter == nil {
			return
		}
		b.rowCounter.WithLabelValues(labels["table"], labels["outcome"]).Add(delta)

	default:
		// unknown metric name: ignore
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	switch name {
	case metrics.OpDurationSeconds:
		if b.opDuration == nil {
			return
		}
		b.opDuration.WithLabelValues(labels["kind"], labels["op"], labels["status"]).Observe(value)
	case metrics.IngestDurationSecs:
		if b.ingestDuration == nil {
			return
		}
		b.ingestDuration.WithLabelValues(labels["table"], labels["status"]).Observe(value)
	}
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
