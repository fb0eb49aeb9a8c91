package datadog

import (
	"testing"

	"dbaccess/internal/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	name  string
	value float64
	tags  []string
}

type fakeClient struct {
	counts []recorded
	hists  []recorded
	closed int
}

func (f *fakeClient) Count(name string, value int64, tags []string, _ float64) error {
	f.counts = append(f.counts, recorded{name, float64(value), tags})
	return nil
}

func (f *fakeClient) Histogram(name string, value float64, tags []string, _ float64) error {
	f.hists = append(f.hists, recorded{name, value, tags})
	return nil
}

func (f *fakeClient) Close() error {
	f.closed++
	return nil
}

func TestNewBackend_RequiresAddr(t *testing.T) {
	t.Parallel()

	b, err := NewBackend(Config{})
	require.Error(t, err)
	assert.Nil(t, b)
}

func TestNewBackend_UDP(t *testing.T) {
	t.Parallel()

	// UDP clients do not dial eagerly, so no agent is needed.
	b, err := NewBackend(Config{Addr: "127.0.0.1:8125", Namespace: "dbaccess.", GlobalTags: []string{"env:test"}})
	require.NoError(t, err)
	require.NotNil(t, b.client)
	require.NoError(t, b.Flush())
}

func TestBackend_ForwardsWithSortedTags(t *testing.T) {
	t.Parallel()

	fc := &fakeClient{}
	b := &Backend{client: fc}

	b.IncCounter(metrics.OpTotal, 3, metrics.Labels{"op": "insert", "kind": "mysql", "status": "success"})
	b.ObserveHistogram(metrics.OpDurationSeconds, 0.5, metrics.Labels{"op": "insert", "kind": "mysql"})
	require.NoError(t, b.Flush())

	require.Len(t, fc.counts, 1)
	assert.Equal(t, metrics.OpTotal, fc.counts[0].name)
	assert.Equal(t, 3.0, fc.counts[0].value)
	assert.Equal(t, []string{"kind:mysql", "op:insert", "status:success"}, fc.counts[0].tags)

	require.Len(t, fc.hists, 1)
	assert.Equal(t, 0.5, fc.hists[0].value)
	assert.Equal(t, []string{"kind:mysql", "op:insert"}, fc.hists[0].tags)
	assert.Equal(t, 1, fc.closed)
}

func TestBackend_NilClientIsNoop(t *testing.T) {
	t.Parallel()

	b := &Backend{}
	b.IncCounter("x", 1, nil)
	b.ObserveHistogram("x", 1, nil)
	assert.NoError(t, b.Flush())
	assert.Nil(t, labelsToTags(nil))
}
