// Package observability provides OpenTelemetry metrics for the
// scheduling engine: lifecycle counters for created, dispatched,
// completed, failed, retried, and cancelled jobs, plus a histogram of
// render durations.
//
// When no MeterProvider is configured, the OTel API hands back noop
// instruments and recording becomes a pass-through.
package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name for scheduler metrics.
const meterName = "github.com/AaraikAI/Abode-AI-sub011"

// Metrics holds the engine's lifecycle instruments. All instruments are
// safe for concurrent use.
type Metrics struct {
	JobsCreated    metric.Int64Counter
	JobsDispatched metric.Int64Counter
	JobsCompleted  metric.Int64Counter
	JobsFailed     metric.Int64Counter
	JobsRetried    metric.Int64Counter
	JobsCancelled  metric.Int64Counter

	RenderDuration metric.Float64Histogram
}

// NewMetrics creates Metrics using the global OTel MeterProvider.
func NewMetrics() *Metrics {
	return NewMetricsWithMeter(otel.Meter(meterName))
}

// NewMetricsWithMeter creates Metrics from the provided meter. This
// variant allows injecting a specific MeterProvider for testing.
func NewMetricsWithMeter(meter metric.Meter) *Metrics {
	// Create instruments once at construction time. On error the OTel
	// API returns noop instruments, so the errors are ignored.
	created, _ := meter.Int64Counter(
		"rendersched.job.created",
		metric.WithDescription("Total number of render jobs admitted"),
		metric.WithUnit("{job}"),
	)
	dispatched, _ := meter.Int64Counter(
		"rendersched.job.dispatched",
		metric.WithDescription("Total number of jobs dispatched to rendering"),
		metric.WithUnit("{job}"),
	)
	completed, _ := meter.Int64Counter(
		"rendersched.job.completed",
		metric.WithDescription("Total number of jobs completed successfully"),
		metric.WithUnit("{job}"),
	)
	failed, _ := meter.Int64Counter(
		"rendersched.job.failed",
		metric.WithDescription("Total number of jobs that failed terminally"),
		metric.WithUnit("{job}"),
	)
	retried, _ := meter.Int64Counter(
		"rendersched.job.retried",
		metric.WithDescription("Total number of retry re-admissions"),
		metric.WithUnit("{retry}"),
	)
	cancelled, _ := meter.Int64Counter(
		"rendersched.job.cancelled",
		metric.WithDescription("Total number of jobs cancelled"),
		metric.WithUnit("{job}"),
	)
	duration, _ := meter.Float64Histogram(
		"rendersched.job.render_duration",
		metric.WithDescription("Wall-clock render time of completed jobs in seconds"),
		metric.WithUnit("s"),
	)

	return &Metrics{
		JobsCreated:    created,
		JobsDispatched: dispatched,
		JobsCompleted:  completed,
		JobsFailed:     failed,
		JobsRetried:    retried,
		JobsCancelled:  cancelled,
		RenderDuration: duration,
	}
}

// RecordCompletion records a successful completion and its render time.
func (m *Metrics) RecordCompletion(ctx context.Context, priority string, renderTime time.Duration) {
	attrs := metric.WithAttributes(attribute.String("priority", priority))
	m.JobsCompleted.Add(ctx, 1, attrs)
	if renderTime > 0 {
		m.RenderDuration.Record(ctx, renderTime.Seconds(), attrs)
	}
}
