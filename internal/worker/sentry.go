package worker

import (
	"context"
	"strconv"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	apperrors "github.com/mealsnap/mealsnap/internal/errors"
)

// SentryMiddleware wraps asynq job handlers with Sentry error capture.
// Cancellations and input validation failures are not reported.
func SentryMiddleware(h asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		taskID, _ := asynq.GetTaskID(ctx)
		queueName, _ := asynq.GetQueueName(ctx)
		retryCount, _ := asynq.GetRetryCount(ctx)

		hub := sentry.CurrentHub().Clone()
		hub.Scope().SetTag("task_type", t.Type())
		hub.Scope().SetTag("task_id", taskID)
		hub.Scope().SetTag("queue", queueName)
		hub.Scope().SetTag("retry_count", strconv.Itoa(retryCount))

		ctx = sentry.SetHubOnContext(ctx, hub)

		err := h.ProcessTask(ctx, t)
		if err != nil && reportable(err) {
			if code := apperrors.TypeOf(err); code != "" {
				hub.Scope().SetTag("error_type", string(code))
			}
			hub.CaptureException(err)
		}

		return err
	})
}

func reportable(err error) bool {
	if isCancelled(err) {
		return false
	}
	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeValidation, apperrors.ErrorTypeNoCapableProvider:
		return false
	}
	return true
}
