package observe

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumValue returns the total of all data points in a sum metric.
func sumValue(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %s is %T, want Sum[int64]", m.Name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestRecordEnqueueTracksQueueDepth(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordEnqueue(ctx, 3)
	m.RecordEnqueue(ctx, 0)
	m.RecordRemoval(ctx, true)

	rm := collect(t, reader)

	enq := findMetric(rm, "cadenza.molecules.enqueued")
	if enq == nil {
		t.Fatal("cadenza.molecules.enqueued not found")
	}
	if got := sumValue(t, enq); got != 2 {
		t.Errorf("enqueued = %d, want 2", got)
	}

	depth := findMetric(rm, "cadenza.queue.depth")
	if depth == nil {
		t.Fatal("cadenza.queue.depth not found")
	}
	if got := sumValue(t, depth); got != 1 {
		t.Errorf("queue depth = %d, want 1", got)
	}

	comp := findMetric(rm, "cadenza.molecules.completed")
	if comp == nil {
		t.Fatal("cadenza.molecules.completed not found")
	}
	if got := sumValue(t, comp); got != 1 {
		t.Errorf("completed = %d, want 1", got)
	}
}

func TestRecordRemoval_DiscardDoesNotCountCompletion(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordEnqueue(ctx, 1)
	m.RecordRemoval(ctx, false)

	rm := collect(t, reader)
	comp := findMetric(rm, "cadenza.molecules.completed")
	if comp != nil && sumValue(t, comp) != 0 {
		t.Error("a discard must not increment completions")
	}
	depth := findMetric(rm, "cadenza.queue.depth")
	if depth == nil {
		t.Fatal("cadenza.queue.depth not found")
	}
	if got := sumValue(t, depth); got != 0 {
		t.Errorf("queue depth = %d, want 0", got)
	}
}

func TestAtomDurationHistogram(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordAtomDuration(ctx, "play", 1500*time.Millisecond)
	m.RecordAtomDuration(ctx, "dtmf", 140*time.Millisecond)

	rm := collect(t, reader)
	h := findMetric(rm, "cadenza.atoms.duration")
	if h == nil {
		t.Fatal("cadenza.atoms.duration not found")
	}
	hist, ok := h.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("data is %T, want Histogram[float64]", h.Data)
	}
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	if count != 2 {
		t.Errorf("histogram count = %d, want 2", count)
	}
}

func TestCounters(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordParseFailure(ctx, "invalid_priority")
	m.RecordDispatch(ctx, "play")
	m.RecordDispatch(ctx, "record")
	m.RecordPreemption(ctx, "mute")
	m.RecordStartFailure(ctx, "play")

	rm := collect(t, reader)
	for name, want := range map[string]int64{
		"cadenza.parse.failures":       1,
		"cadenza.atoms.dispatched":     2,
		"cadenza.molecules.preempted":  1,
		"cadenza.audio.start_failures": 1,
	} {
		met := findMetric(rm, name)
		if met == nil {
			t.Errorf("%s not found", name)
			continue
		}
		if got := sumValue(t, met); got != want {
			t.Errorf("%s = %d, want %d", name, got, want)
		}
	}
}
