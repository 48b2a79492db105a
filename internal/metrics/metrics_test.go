package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBackend struct {
	mu       sync.Mutex
	counters map[string]float64
	hists    map[string][]float64
	labels   []Labels
	flushes  int
	flushErr error
}

func newRecording() *recordingBackend {
	return &recordingBackend{counters: map[string]float64{}, hists: map[string][]float64{}}
}

func (r *recordingBackend) IncCounter(name string, delta float64, labels Labels) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[name] += delta
	r.labels = append(r.labels, labels)
}

func (r *recordingBackend) ObserveHistogram(name string, value float64, labels Labels) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hists[name] = append(r.hists[name], value)
}

func (r *recordingBackend) Flush() error {
	r.flushes++
	return r.flushErr
}

func TestDefaultBackendIsNop(t *testing.T) {
	SetBackend(nil)
	IncCounter(RecordsTotal, 1, Labels{"kind": "read"})
	ObserveHistogram(StepDurationSeconds, 1, nil)
	assert.NoError(t, Flush())
}

func TestSetBackendRoutesCalls(t *testing.T) {
	rec := newRecording()
	SetBackend(rec)
	t.Cleanup(func() { SetBackend(nil) })

	IncCounter(TableRowsTotal, 42, Labels{"table": "fact_game"})
	RecordStep("load", time.Now(), nil)
	RecordStep("load", time.Now(), errors.New("boom"))

	assert.Equal(t, float64(42), rec.counters[TableRowsTotal])
	assert.Equal(t, float64(2), rec.counters[StepTotal])
	assert.Len(t, rec.hists[StepDurationSeconds], 2)
	require.Len(t, rec.labels, 3)
	assert.Equal(t, "ok", rec.labels[1]["status"])
	assert.Equal(t, "error", rec.labels[2]["status"])

	rec.flushErr = errors.New("submit failed")
	assert.EqualError(t, Flush(), "submit failed")
	assert.Equal(t, 1, rec.flushes)
}
