package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeBackend is a simple in-memory Backend implementation for tests.
type fakeBackend struct {
	mu sync.Mutex

	callsCounters   []counterCall
	callsHistograms []histCall
	flushCount      int
}

type counterCall struct {
	name   string
	delta  float64
	labels Labels
}

type histCall struct {
	name   string
	value  float64
	labels Labels
}

func (f *fakeBackend) IncCounter(name string, delta float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callsCounters = append(f.callsCounters, counterCall{name, delta, labels})
}

func (f *fakeBackend) ObserveHistogram(name string, value float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callsHistograms = append(f.callsHistograms, histCall{name, value, labels})
}

func (f *fakeBackend) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushCount++
	return nil
}

func TestRecordOp_SuccessAndFailure(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	backend = fb

	RecordOp("sqlite", "select", nil, 2*time.Second)
	RecordOp("postgresql", "execute", errors.New("boom"), 1500*time.Millisecond)

	if len(fb.callsCounters) != 2 {
		t.Fatalf("expected 2 counter calls, got %d", len(fb.callsCounters))
	}
	if len(fb.callsHistograms) != 2 {
		t.Fatalf("expected 2 histogram calls, got %d", len(fb.callsHistograms))
	}

	cc0 := fb.callsCounters[0]
	if cc0.name != OpTotal || cc0.delta != 1 {
		t.Fatalf("counter[0] = %#v; want name=%s, delta=1", cc0, OpTotal)
	}
	if cc0.labels["kind"] != "sqlite" || cc0.labels["op"] != "select" || cc0.labels["status"] != "success" {
		t.Fatalf("counter[0].labels = %v", cc0.labels)
	}

	h0 := fb.callsHistograms[0]
	if h0.name != OpDurationSeconds {
		t.Fatalf("hist[0].name=%q; want %s", h0.name, OpDurationSeconds)
	}
	if h0.value < 2.0-0.001 || h0.value > 2.0+0.001 {
		t.Fatalf("hist[0].value=%v; want ~2.0", h0.value)
	}

	cc1 := fb.callsCounters[1]
	if cc1.labels["status"] != "failure" {
		t.Fatalf("counter[1].labels[status]=%q; want %q", cc1.labels["status"], "failure")
	}
	if h1 := fb.callsHistograms[1]; h1.value < 1.5-0.001 || h1.value > 1.5+0.001 {
		t.Fatalf("hist[1].value=%v; want ~1.5", h1.value)
	}
}

func TestRecordIngestAndRows(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	backend = fb

	RecordRows("t", "attempted", 3)
	RecordRows("t", "failed", 0) // ignored
	RecordRows("t", "succeeded", 2)
	RecordIngest("t", nil, time.Second)

	if len(fb.callsCounters) != 3 {
		t.Fatalf("expected 3 counter calls, got %d", len(fb.callsCounters))
	}

	c0 := fb.callsCounters[0]
	if c0.name != RowsTotal || c0.delta != 3 {
		t.Fatalf("counter[0] = %#v; want name=%s, delta=3", c0, RowsTotal)
	}
	if c0.labels["table"] != "t" || c0.labels["outcome"] != "attempted" {
		t.Fatalf("counter[0] labels = %v", c0.labels)
	}

	c1 := fb.callsCounters[1]
	if c1.delta != 2 || c1.labels["outcome"] != "succeeded" {
		t.Fatalf("counter[1] = %#v", c1)
	}

	c2 := fb.callsCounters[2]
	if c2.name != IngestTotal || c2.labels["status"] != "success" {
		t.Fatalf("counter[2] = %#v", c2)
	}
	if len(fb.callsHistograms) != 1 || fb.callsHistograms[0].name != IngestDurationSecs {
		t.Fatalf("histograms = %#v", fb.callsHistograms)
	}
}

func TestSetBackendAndFlush(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	SetBackend(fb)

	if backend != fb {
		t.Fatal("SetBackend did not replace global backend")
	}

	if err := Flush(); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	if fb.flushCount != 1 {
		t.Fatalf("expected flushCount=1, got %d", fb.flushCount)
	}

	// SetBackend(nil) should not nil out the backend.
	SetBackend(nil)
	if backend != fb {
		t.Fatal("SetBackend(nil) should not change backend")
	}
}
