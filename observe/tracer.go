package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Operation describes one backend request for telemetry purposes.
type Operation struct {
	Name   string // endpoint name, e.g. getProducts (required)
	Method string // HTTP method
	Route  string // route template, e.g. /products/{id}; never the raw URL
}

// SpanName returns the deterministic span name for this operation.
// Format: http.client <METHOD> <route>, or http.client <name> without a route.
func (o Operation) SpanName() string {
	if o.Route == "" {
		return "http.client " + o.Name
	}
	if o.Method == "" {
		return "http.client " + o.Route
	}
	return "http.client " + o.Method + " " + o.Route
}

func (o Operation) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String("operation.name", o.Name)}
	if o.Method != "" {
		attrs = append(attrs, attribute.String("http.method", o.Method))
	}
	if o.Route != "" {
		attrs = append(attrs, attribute.String("http.route", o.Route))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing with request span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a client span for op.
	StartSpan(ctx context.Context, op Operation) (context.Context, trace.Span)

	// EndSpan ends the span, recording the status code and any error.
	EndSpan(span trace.Span, status int, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, op Operation) (context.Context, trace.Span) {
	attrs := append(op.attributes(), attribute.Bool("operation.error", false))
	return t.tracer.Start(ctx, op.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, status int, err error) {
	if status > 0 {
		span.SetAttributes(attribute.Int("http.status_code", status))
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("operation.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

// NewNoopTracer returns a tracer that records nothing.
func NewNoopTracer() Tracer {
	return &noopTracer{noop: tracenoop.NewTracerProvider().Tracer("noop")}
}

func (t *noopTracer) StartSpan(ctx context.Context, op Operation) (context.Context, trace.Span) {
	return t.noop.Start(ctx, op.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, _ int, _ error) {
	span.End()
}
