package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric instrument names.
const (
	MetricRequestTotal    = "storeadmin.request.total"
	MetricRequestErrors   = "storeadmin.request.errors"
	MetricRequestDuration = "storeadmin.request.duration_ms"
)

// Metrics records backend request metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	RecordRequest(ctx context.Context, op Operation, status int, duration time.Duration, err error)
}

type metricsImpl struct {
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
}

// NewMetrics creates the request instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	totalCount, err := meter.Int64Counter(
		MetricRequestTotal,
		metric.WithDescription("Total number of backend requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		MetricRequestErrors,
		metric.WithDescription("Total number of failed backend requests"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		MetricRequestDuration,
		metric.WithDescription("Backend request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		totalCount:   totalCount,
		errorCount:   errorCount,
		durationHist: durationHist,
	}, nil
}

func (m *metricsImpl) RecordRequest(ctx context.Context, op Operation, status int, duration time.Duration, err error) {
	attrs := op.attributes()
	if status > 0 {
		attrs = append(attrs, attribute.Int("http.status_code", status))
	}
	opt := metric.WithAttributes(attrs...)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

type noopMetrics struct{}

// NewNoopMetrics returns metrics that record nothing.
func NewNoopMetrics() Metrics { return noopMetrics{} }

func (noopMetrics) RecordRequest(context.Context, Operation, int, time.Duration, error) {}
