// Package tracing provides the thin OpenTelemetry span helpers the
// ReACT Agent wraps around each iteration and tool call. No SDK
// provider is configured here — a caller that wants exported spans
// installs a global TracerProvider at process startup; absent that,
// otel's default no-op tracer makes every call in this package free.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "wikisoft/rosterval/agent"

// StartIteration opens a span for one Think→Act→Observe iteration.
func StartIteration(ctx context.Context, step int, action string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "agent.iteration",
		trace.WithAttributes(
			attribute.Int("agent.step", step),
			attribute.String("agent.action", action),
		),
	)
}

// StartToolCall opens a span for one Registry dispatch.
func StartToolCall(ctx context.Context, tool string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "agent.tool_call",
		trace.WithAttributes(attribute.String("agent.tool", tool)),
	)
}

// RecordObservation annotates the current span with the outcome of an Act call.
func RecordObservation(span trace.Span, success bool, confidence float64, errMsg string) {
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(
		attribute.Bool("agent.observation.success", success),
		attribute.Float64("agent.observation.confidence", confidence),
	)
	if errMsg != "" {
		span.SetAttributes(attribute.String("agent.observation.error", errMsg))
	}
}
