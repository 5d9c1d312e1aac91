// Package observe provides the observability primitives for cadenza:
// OpenTelemetry metrics for the scheduler and the provider wiring that
// exposes them through a Prometheus /metrics endpoint.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A
// package-level default [Metrics] instance ([DefaultMetrics]) is provided
// for convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all cadenza metrics.
const meterName = "github.com/MrWong99/cadenza"

// durationBuckets covers atom playback durations from a DTMF digit to a
// minute-long announcement, in seconds.
var durationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// Metrics holds all OpenTelemetry metric instruments for the scheduler.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// Enqueued counts accepted molecules. Attribute: priority.
	Enqueued metric.Int64Counter

	// ParseFailures counts rejected command lines. Attribute: kind.
	ParseFailures metric.Int64Counter

	// Dispatches counts atom starts. Attribute: atom.
	Dispatches metric.Int64Counter

	// Preemptions counts molecules stopped by a higher-priority arrival.
	// Attribute: policy (the interrupted molecule's interrupt policy).
	Preemptions metric.Int64Counter

	// Completions counts terminally completed molecules.
	Completions metric.Int64Counter

	// StartFailures counts audio device start errors that dropped a molecule.
	StartFailures metric.Int64Counter

	// QueueDepth tracks the number of queued molecules.
	QueueDepth metric.Int64UpDownCounter

	// AtomDuration tracks how long each atom actually ran.
	AtomDuration metric.Float64Histogram
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Enqueued, err = m.Int64Counter("cadenza.molecules.enqueued",
		metric.WithDescription("Total molecules accepted into the queue, by priority."),
	); err != nil {
		return nil, err
	}
	if met.ParseFailures, err = m.Int64Counter("cadenza.parse.failures",
		metric.WithDescription("Total rejected command lines, by error kind."),
	); err != nil {
		return nil, err
	}
	if met.Dispatches, err = m.Int64Counter("cadenza.atoms.dispatched",
		metric.WithDescription("Total atom starts, by atom kind."),
	); err != nil {
		return nil, err
	}
	if met.Preemptions, err = m.Int64Counter("cadenza.molecules.preempted",
		metric.WithDescription("Total preemptions, by the interrupted molecule's policy."),
	); err != nil {
		return nil, err
	}
	if met.Completions, err = m.Int64Counter("cadenza.molecules.completed",
		metric.WithDescription("Total terminally completed molecules."),
	); err != nil {
		return nil, err
	}
	if met.StartFailures, err = m.Int64Counter("cadenza.audio.start_failures",
		metric.WithDescription("Total audio device start errors that dropped a molecule."),
	); err != nil {
		return nil, err
	}
	if met.QueueDepth, err = m.Int64UpDownCounter("cadenza.queue.depth",
		metric.WithDescription("Number of molecules currently queued."),
	); err != nil {
		return nil, err
	}
	if met.AtomDuration, err = m.Float64Histogram("cadenza.atoms.duration",
		metric.WithDescription("Observed atom run time."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call using [otel.GetMeterProvider]. Subsequent calls return the
// same pointer. Panics if instrument creation fails (should not happen with
// the global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordEnqueue records an accepted molecule at the given priority.
func (m *Metrics) RecordEnqueue(ctx context.Context, priority int) {
	m.Enqueued.Add(ctx, 1, metric.WithAttributes(attribute.Int("priority", priority)))
	m.QueueDepth.Add(ctx, 1)
}

// RecordParseFailure records a rejected command line by error kind.
func (m *Metrics) RecordParseFailure(ctx context.Context, kind string) {
	m.ParseFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordDispatch records an atom start by atom kind.
func (m *Metrics) RecordDispatch(ctx context.Context, atom string) {
	m.Dispatches.Add(ctx, 1, metric.WithAttributes(attribute.String("atom", atom)))
}

// RecordPreemption records a preemption by the interrupted policy.
func (m *Metrics) RecordPreemption(ctx context.Context, policy string) {
	m.Preemptions.Add(ctx, 1, metric.WithAttributes(attribute.String("policy", policy)))
}

// RecordRemoval records a molecule leaving the queue; completed indicates a
// terminal completion rather than a discard or cancel.
func (m *Metrics) RecordRemoval(ctx context.Context, completed bool) {
	if completed {
		m.Completions.Add(ctx, 1)
	}
	m.QueueDepth.Add(ctx, -1)
}

// RecordStartFailure records a device start error.
func (m *Metrics) RecordStartFailure(ctx context.Context, atom string) {
	m.StartFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("atom", atom)))
}

// RecordAtomDuration records how long an atom ran.
func (m *Metrics) RecordAtomDuration(ctx context.Context, atom string, d time.Duration) {
	m.AtomDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("atom", atom)))
}
