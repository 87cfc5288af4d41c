package implementations

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// telemetry bundles the tracer and counters every service records into.
// Counters are nil when the meter refuses to create them.
type telemetry struct {
	tracer      trace.Tracer
	operations  metric.Int64Counter
	cacheHits   metric.Int64Counter
	cacheMisses metric.Int64Counter
}

func newTelemetry(service string) *telemetry {
	name := "image-library/service/" + service
	meter := otel.Meter(name)

	operations, err := meter.Int64Counter(
		service+".operations.total",
		metric.WithDescription("Total number of "+service+" operations by outcome"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		operations = nil
	}

	hits, err := meter.Int64Counter(
		service+".cache.hits",
		metric.WithDescription("Number of "+service+" cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		hits = nil
	}

	misses, err := meter.Int64Counter(
		service+".cache.misses",
		metric.WithDescription("Number of "+service+" cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		misses = nil
	}

	return &telemetry{
		tracer:      otel.Tracer(name),
		operations:  operations,
		cacheHits:   hits,
		cacheMisses: misses,
	}
}

func (t *telemetry) start(ctx context.Context, op, ownerID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("library.owner_id", ownerID))
	return t.tracer.Start(ctx, op, trace.WithAttributes(attrs...))
}

// fail marks span as failed and counts the operation. It returns err so
// callers can write `return nil, t.fail(...)`.
func (t *telemetry) fail(ctx context.Context, span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, op+" failed")
	t.record(ctx, op, "error")
	return err
}

func (t *telemetry) succeed(ctx context.Context, span trace.Span, op string) {
	span.SetStatus(codes.Ok, "")
	t.record(ctx, op, "success")
}

func (t *telemetry) record(ctx context.Context, op, outcome string) {
	if t.operations == nil {
		return
	}
	t.operations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", outcome),
	))
}

func (t *telemetry) cacheResult(ctx context.Context, span trace.Span, hit bool) {
	if hit {
		span.AddEvent("cache_hit")
		if t.cacheHits != nil {
			t.cacheHits.Add(ctx, 1)
		}
		return
	}
	span.AddEvent("cache_miss")
	if t.cacheMisses != nil {
		t.cacheMisses.Add(ctx, 1)
	}
}
