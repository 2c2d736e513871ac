// Package observe provides application-wide observability primitives for
// Friday: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the admin /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Friday metrics.
const meterName = "github.com/MrWong99/friday"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// TranscribeDuration tracks transcription latency. Use with attribute:
	//   attribute.String("profile", "fast"|"accurate")
	TranscribeDuration metric.Float64Histogram

	// SpeechDuration tracks how long voicing a reply took.
	SpeechDuration metric.Float64Histogram

	// ResolveDuration tracks entity resolution latency. Use with attribute:
	//   attribute.String("kind", ...)
	ResolveDuration metric.Float64Histogram

	// CycleDuration tracks one full utterance cycle, transcription to reply.
	CycleDuration metric.Float64Histogram

	// --- Counters ---

	// WakeDetections counts wake events. Use with attribute:
	//   attribute.String("layer", ...)
	WakeDetections metric.Int64Counter

	// Commands counts dispatched intents. Use with attributes:
	//   attribute.String("action", ...), attribute.String("status", ...)
	Commands metric.Int64Counter

	// Resolutions counts resolution outcomes. Use with attributes:
	//   attribute.String("kind", ...), attribute.String("strategy", ...)
	Resolutions metric.Int64Counter

	// ProviderRequests counts backend calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// SessionsEnded counts finished sessions. Use with attribute:
	//   attribute.String("reason", ...)
	SessionsEnded metric.Int64Counter

	// FramesDropped counts audio frames discarded by the bounded queue.
	FramesDropped metric.Int64Counter

	// --- Error counters ---

	// ProviderErrors counts backend errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions is 1 while a session is open, 0 otherwise.
	ActiveSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for voice-pipeline latencies.
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
	if met.TranscribeDuration, err = m.Float64Histogram("friday.transcribe.duration",
		metric.WithDescription("Latency of speech transcription by profile."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SpeechDuration, err = m.Float64Histogram("friday.speech.duration",
		metric.WithDescription("Time spent voicing replies."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ResolveDuration, err = m.Float64Histogram("friday.resolve.duration",
		metric.WithDescription("Latency of entity resolution by kind."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CycleDuration, err = m.Float64Histogram("friday.cycle.duration",
		metric.WithDescription("Latency of one utterance cycle from transcript to reply."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.WakeDetections, err = m.Int64Counter("friday.wake.detections",
		metric.WithDescription("Total wake detections by detector layer."),
	); err != nil {
		return nil, err
	}
	if met.Commands, err = m.Int64Counter("friday.commands",
		metric.WithDescription("Total dispatched commands by action and status."),
	); err != nil {
		return nil, err
	}
	if met.Resolutions, err = m.Int64Counter("friday.resolutions",
		metric.WithDescription("Total entity resolutions by kind and winning strategy."),
	); err != nil {
		return nil, err
	}
	if met.ProviderRequests, err = m.Int64Counter("friday.provider.requests",
		metric.WithDescription("Total backend requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.SessionsEnded, err = m.Int64Counter("friday.sessions.ended",
		metric.WithDescription("Total ended sessions by reason."),
	); err != nil {
		return nil, err
	}
	if met.FramesDropped, err = m.Int64Counter("friday.audio.frames_dropped",
		metric.WithDescription("Audio frames dropped because the capture queue was full."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ProviderErrors, err = m.Int64Counter("friday.provider.errors",
		metric.WithDescription("Total backend errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("friday.active_sessions",
		metric.WithDescription("Number of open interaction sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("friday.http.request.duration",
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

// RecordProviderRequest records a backend request with the standard
// attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError records a backend error.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// RecordWake records a wake detection by layer.
func (m *Metrics) RecordWake(ctx context.Context, layer string) {
	m.WakeDetections.Add(ctx, 1, metric.WithAttributes(attribute.String("layer", layer)))
}

// RecordCommand records one dispatched command.
func (m *Metrics) RecordCommand(ctx context.Context, action, status string) {
	m.Commands.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("action", action),
			attribute.String("status", status),
		),
	)
}

// RecordResolution records which strategy resolved an entity. Unresolved
// lookups use strategy "none".
func (m *Metrics) RecordResolution(ctx context.Context, kind, strategy string) {
	m.Resolutions.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("strategy", strategy),
		),
	)
}

// RecordSessionEnd records a finished session and decrements ActiveSessions.
func (m *Metrics) RecordSessionEnd(ctx context.Context, reason string) {
	m.SessionsEnded.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	m.ActiveSessions.Add(ctx, -1)
}
