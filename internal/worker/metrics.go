package worker

import (
	"context"

	"github.com/mealsnap/mealsnap/internal/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

func recordJob(ctx context.Context, jobType, status string, duration float64) {
	attrs := []attribute.KeyValue{
		attribute.String("job.type", jobType),
	}

	metrics.JobsTotal.Add(ctx, 1, metric.WithAttributes(append(attrs, attribute.String("status", status))...))
	metrics.JobDuration.Record(ctx, duration, metric.WithAttributes(attrs...))
}
