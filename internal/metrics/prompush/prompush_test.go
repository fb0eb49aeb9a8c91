package prompush

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"dbaccess/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// readCounterValue reads the current value of a Counter for assertions in tests.
func readCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()

	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		t.Fatalf("Counter.Write() error = %v", err)
	}
	if m.GetCounter() == nil {
		t.Fatalf("metric did not contain Counter value")
	}
	return m.GetCounter().GetValue()
}

// readSummaryCountSum reads sample count and sum from a SummaryVec for assertions in tests.
func readSummaryCountSum(t *testing.T, v *prometheus.SummaryVec, labels ...string) (uint64, float64) {
	t.Helper()

	m := &dto.Metric{}
	metric, ok := v.WithLabelValues(labels...).(prometheus.Metric)
	if !ok {
		t.Fatalf("SummaryVec.WithLabelValues(...) does not implement prometheus.Metric")
	}
	if err := metric.Write(m); err != nil {
		t.Fatalf("Summary.Write() error = %v", err)
	}
	if m.GetSummary() == nil {
		t.Fatalf("metric did not contain Summary value")
	}
	sum := m.GetSummary()
	return sum.GetSampleCount(), sum.GetSampleSum()
}

func TestNewBackend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		jobName     string
		gatewayURL  string
		wantErr     bool
		wantJobName string
	}{
		{name: "missing gateway URL returns error", jobName: "job", wantErr: true},
		{name: "empty job name uses default", gatewayURL: "http://pushgateway:9091", wantJobName: "dbaccess"},
		{name: "explicit job name is preserved", jobName: "nightly", gatewayURL: "http://pushgateway:9091", wantJobName: "nightly"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b, err := NewBackend(tt.jobName, tt.gatewayURL)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("NewBackend(%q, %q) error = nil, want non-nil", tt.jobName, tt.gatewayURL)
				}
				if b != nil {
					t.Fatalf("NewBackend(%q, %q) backend = %v, want nil", tt.jobName, tt.gatewayURL, b)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewBackend(%q, %q) error = %v, want nil", tt.jobName, tt.gatewayURL, err)
			}
			if b.jobName != tt.wantJobName {
				t.Fatalf("backend.jobName = %q, want %q", b.jobName, tt.wantJobName)
			}
			if b.opCounter == nil || b.opDuration == nil || b.ingestCounter == nil || b.ingestDuration == nil || b.rowCounter == nil {
				t.Fatalf("collectors not initialized: %+v", b)
			}
		})
	}
}

func TestIncCounter(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("dbaccess", "http://example.com")
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}

	b.IncCounter(metrics.OpTotal, 2, metrics.Labels{"kind": "sqlite", "op": "insert", "status": "success"})
	b.IncCounter(metrics.RowsTotal, 5, metrics.Labels{"table": "t", "outcome": "succeeded"})
	b.IncCounter(metrics.IngestTotal, 1, metrics.Labels{"table": "t", "status": "failure"})
	b.IncCounter("unknown_metric", 10, metrics.Labels{"foo": "bar"})

	if got := readCounterValue(t, b.opCounter.WithLabelValues("sqlite", "insert", "success")); got != 2 {
		t.Fatalf("opCounter = %v, want 2", got)
	}
	if got := readCounterValue(t, b.rowCounter.WithLabelValues("t", "succeeded")); got != 5 {
		t.Fatalf("rowCounter = %v, want 5", got)
	}
	if got := readCounterValue(t, b.ingestCounter.WithLabelValues("t", "failure")); got != 1 {
		t.Fatalf("ingestCounter = %v, want 1", got)
	}
}

func TestIncCounterNilMetrics(t *testing.T) {
	t.Parallel()

	b := &Backend{} // zero-value backend with nil collectors

	b.IncCounter(metrics.OpTotal, 1, metrics.Labels{})
	b.IncCounter(metrics.IngestTotal, 1, metrics.Labels{})
	b.IncCounter(metrics.RowsTotal, 1, metrics.Labels{})
	b.ObserveHistogram(metrics.OpDurationSeconds, 1, metrics.Labels{})
	b.ObserveHistogram(metrics.IngestDurationSecs, 1, metrics.Labels{})
}

func TestObserveHistogram(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("dbaccess", "http://example.com")
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}

	b.ObserveHistogram(metrics.OpDurationSeconds, 1.5, metrics.Labels{"kind": "mssql", "op": "select", "status": "success"})
	b.ObserveHistogram(metrics.IngestDurationSecs, 0.25, metrics.Labels{"table": "t", "status": "success"})
	b.ObserveHistogram("other_metric", 2.0, metrics.Labels{"kind": "mssql", "op": "select", "status": "success"})

	count, sum := readSummaryCountSum(t, b.opDuration, "mssql", "select", "success")
	if count != 1 || sum != 1.5 {
		t.Fatalf("opDuration count=%d sum=%v, want 1 and 1.5", count, sum)
	}
	count, sum = readSummaryCountSum(t, b.ingestDuration, "t", "success")
	if count != 1 || sum != 0.25 {
		t.Fatalf("ingestDuration count=%d sum=%v, want 1 and 0.25", count, sum)
	}
}

// TestFlush verifies that Flush pushes the registry to the configured
// Pushgateway URL.
func TestFlush(t *testing.T) {
	t.Parallel()

	type pushRequestInfo struct {
		method  string
		path    string
		bodyLen int
	}
	reqCh := make(chan pushRequestInfo, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		body, _ := io.ReadAll(r.Body)
		reqCh <- pushRequestInfo{method: r.Method, path: r.URL.Path, bodyLen: len(body)}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	b, err := NewBackend("dbaccess-job", server.URL)
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}
	b.IncCounter(metrics.OpTotal, 1, metrics.Labels{"kind": "sqlite", "op": "select", "status": "success"})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	var got pushRequestInfo
	select {
	case got = <-reqCh:
	default:
		t.Fatalf("Flush() did not result in any HTTP request to the Pushgateway")
	}
	if got.method != http.MethodPut {
		t.Fatalf("push method = %q, want PUT", got.method)
	}
	if got.path != "/metrics/job/dbaccess-job" {
		t.Fatalf("push path = %q", got.path)
	}
	if got.bodyLen == 0 {
		t.Fatalf("Push request body length = 0, want > 0")
	}
}
