package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope name for the Friday tracer.
const tracerName = "github.com/MrWong99/friday"

// Tracer returns the package-level [trace.Tracer] for Friday. It uses the
// globally registered [trace.TracerProvider].
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan starts a new span and returns the updated context and span. The
// caller must call span.End() when done.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// StartCycle starts the root span of one utterance cycle. source is "audio"
// for microphone input and "text" for typed or API input.
func StartCycle(ctx context.Context, source string) (context.Context, trace.Span) {
	return StartSpan(ctx, "assistant.cycle",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("friday.source", source)),
	)
}

// StartStage starts a child span for one pipeline stage of a cycle, named
// "assistant.<stage>".
func StartStage(ctx context.Context, stage string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, "assistant."+stage, trace.WithAttributes(attrs...))
}

// EndStage ends span and marks it failed when err is non-nil.
func EndStage(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// CorrelationID extracts the trace ID from the OTel span context in ctx.
// Returns the empty string when no active span with a valid trace ID exists.
// The assistant tags every utterance cycle with it so that the log lines of
// one command can be grepped together.
func CorrelationID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// Logger returns an [slog.Logger] enriched with trace_id and span_id from
// the OTel span context in ctx. When no active span is present, the returned
// logger is the default slog logger without extra attributes.
func Logger(ctx context.Context) *slog.Logger {
	l := slog.Default()
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		l = l.With(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return l
}
