// Package observe provides application-wide observability primitives for
// VietSpeak: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/vietspeak/vietspeak/internal/scheduler"
)

// meterName is the instrumentation scope name used for all VietSpeak metrics.
const meterName = "github.com/vietspeak/vietspeak"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// InferenceDuration tracks acoustic model inference latency.
	InferenceDuration metric.Float64Histogram

	// AnalysisDuration tracks end-to-end pronunciation analysis latency,
	// from audio validation through feedback aggregation.
	AnalysisDuration metric.Float64Histogram

	// AlignmentDuration tracks phoneme alignment latency.
	AlignmentDuration metric.Float64Histogram

	// ScoringDuration tracks GOP scoring plus interference detection latency.
	ScoringDuration metric.Float64Histogram

	// --- Counters ---

	// AnalysisRequests counts analysis requests. Use with attribute:
	//   attribute.String("status", ...) — "ok" or an error kind.
	AnalysisRequests metric.Int64Counter

	// QueueRejections counts requests turned away because the inference
	// queue was full.
	QueueRejections metric.Int64Counter

	// InterferenceNotes counts detected Vietnamese interference patterns.
	// Use with attribute: attribute.String("pattern", ...).
	InterferenceNotes metric.Int64Counter

	// --- Gauges ---

	// QueueDepth tracks the number of requests waiting for an inference slot.
	QueueDepth metric.Int64UpDownCounter

	// InferencesInFlight tracks the number of inferences currently running.
	InferencesInFlight metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// speech inference latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.InferenceDuration, err = m.Float64Histogram("vietspeak.inference.duration",
		metric.WithDescription("Latency of acoustic model inference."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AnalysisDuration, err = m.Float64Histogram("vietspeak.analysis.duration",
		metric.WithDescription("End-to-end pronunciation analysis latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AlignmentDuration, err = m.Float64Histogram("vietspeak.alignment.duration",
		metric.WithDescription("Phoneme alignment latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ScoringDuration, err = m.Float64Histogram("vietspeak.scoring.duration",
		metric.WithDescription("GOP scoring and interference detection latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.AnalysisRequests, err = m.Int64Counter("vietspeak.analysis.requests",
		metric.WithDescription("Total analysis requests by status."),
	); err != nil {
		return nil, err
	}
	if met.QueueRejections, err = m.Int64Counter("vietspeak.queue.rejections",
		metric.WithDescription("Requests rejected because the inference queue was full."),
	); err != nil {
		return nil, err
	}
	if met.InterferenceNotes, err = m.Int64Counter("vietspeak.interference.notes",
		metric.WithDescription("Detected Vietnamese interference patterns by pattern name."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.QueueDepth, err = m.Int64UpDownCounter("vietspeak.queue.depth",
		metric.WithDescription("Requests waiting for an inference slot."),
	); err != nil {
		return nil, err
	}
	if met.InferencesInFlight, err = m.Int64UpDownCounter("vietspeak.inference.in_flight",
		metric.WithDescription("Inferences currently running."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("vietspeak.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
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

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
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

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordAnalysis records one analysis request with its outcome and duration.
func (m *Metrics) RecordAnalysis(ctx context.Context, status string, d time.Duration) {
	m.AnalysisRequests.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
	m.AnalysisDuration.Record(ctx, d.Seconds())
}

// RecordInterference records one detected interference pattern.
func (m *Metrics) RecordInterference(ctx context.Context, pattern string) {
	m.InterferenceNotes.Add(ctx, 1,
		metric.WithAttributes(attribute.String("pattern", pattern)),
	)
}

// SchedulerMonitor adapts [Metrics] to the scheduler's monitoring hooks so
// queue depth, rejections, and inference latency show up in /metrics.
type SchedulerMonitor struct {
	Metrics *Metrics
}

var _ scheduler.Monitor = (*SchedulerMonitor)(nil)

func (sm *SchedulerMonitor) Enqueued() {
	sm.Metrics.QueueDepth.Add(context.Background(), 1)
}

func (sm *SchedulerMonitor) Dequeued() {
	sm.Metrics.QueueDepth.Add(context.Background(), -1)
}

func (sm *SchedulerMonitor) Rejected() {
	sm.Metrics.QueueRejections.Add(context.Background(), 1)
}

func (sm *SchedulerMonitor) InferenceStarted() {
	sm.Metrics.InferencesInFlight.Add(context.Background(), 1)
}

func (sm *SchedulerMonitor) InferenceFinished(d time.Duration, err error) {
	ctx := context.Background()
	sm.Metrics.InferencesInFlight.Add(ctx, -1)
	status := "ok"
	if err != nil {
		status = "error"
	}
	sm.Metrics.InferenceDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("status", status)),
	)
}
