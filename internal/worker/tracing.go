package worker

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
	apperrors "github.com/mealsnap/mealsnap/internal/errors"
	"github.com/mealsnap/mealsnap/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelMiddleware opens a consumer span per analysis task. The meal job ID and
// input kind are read from the payload when it decodes.
func OTelMiddleware(h asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		taskID, _ := asynq.GetTaskID(ctx)
		retried, _ := asynq.GetRetryCount(ctx)

		attrs := []attribute.KeyValue{
			attribute.String("messaging.system", "asynq"),
			attribute.String("messaging.message.id", taskID),
			attribute.String("analysis.task", t.Type()),
			attribute.Int("analysis.retried", retried),
		}
		var p AnalyzeMealPayload
		if json.Unmarshal(t.Payload(), &p) == nil {
			attrs = append(attrs,
				attribute.String("analysis.job_id", p.JobID),
				attribute.String("analysis.kind", p.Kind))
		}

		ctx, span := telemetry.Tracer("worker").Start(ctx, "analyze meal job",
			trace.WithSpanKind(trace.SpanKindConsumer),
			trace.WithAttributes(attrs...))
		defer span.End()

		err := h.ProcessTask(ctx, t)
		if err == nil {
			return nil
		}
		if isCancelled(err) {
			span.SetAttributes(attribute.Bool("analysis.cancelled", true))
			return err
		}
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.type", string(apperrors.TypeOf(err))))
		span.SetStatus(codes.Error, err.Error())
		return err
	})
}
