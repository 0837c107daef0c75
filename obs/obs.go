// Package obs holds the resolver engine's tracing glue: one span per
// resolver invocation, carrying its stage chain as an attribute and any
// error as the span status.
// With no TracerProvider configured this is the usual OpenTelemetry no-op,
// so importing it costs nothing in a consumer that never calls otel.SetTracerProvider.
package obs

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/LongerWarrior/patternsleuth/resolver"

func tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartResolverSpan starts a span named after a resolver, nested under
// whatever span parentCtx already carries.
func StartResolverSpan(parentCtx context.Context, resolverName string) (context.Context, trace.Span) {
	return tracer().Start(parentCtx, resolverName, trace.WithAttributes(
		attribute.String("resolver.name", resolverName),
	))
}

// EndResolverSpan records the resolver's stages and error, if any, and
// closes the span.
// stages is the chain of intermediate VAs the resolution passed through.
func EndResolverSpan(span trace.Span, stages []uint64, err error) {
	if len(stages) > 0 {
		vas := make([]int64, len(stages))
		for i, va := range stages {
			vas[i] = int64(va)
		}
		span.SetAttributes(attribute.Int64Slice("resolver.stages", vas))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// StartFlushSpan traces one flush cycle of the resolver runtime.
func StartFlushSpan(parentCtx context.Context, queued int) (context.Context, trace.Span) {
	return tracer().Start(parentCtx, "resolver.flush", trace.WithAttributes(
		attribute.Int("resolver.flush.queued_scans", queued),
	))
}
