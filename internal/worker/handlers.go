package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	apperrors "github.com/mealsnap/mealsnap/internal/errors"
	"github.com/mealsnap/mealsnap/internal/jobs"
	"github.com/mealsnap/mealsnap/internal/meallog"
	"github.com/mealsnap/mealsnap/internal/services/analysis"
	"github.com/mealsnap/mealsnap/internal/services/analyzer"
	"github.com/mealsnap/mealsnap/internal/utils"
)

// Runner runs one analyzer input.
type Runner interface {
	Run(ctx context.Context, in analyzer.Input) (*analysis.Result, error)
}

type MealProcessor struct {
	analyzers   Runner
	meals       meallog.Store
	jobs        jobs.Store
	retryConfig utils.RetryConfig
}

func NewMealProcessor(analyzers Runner, meals meallog.Store, jobStore jobs.Store) *MealProcessor {
	return &MealProcessor{
		analyzers:   analyzers,
		meals:       meals,
		jobs:        jobStore,
		retryConfig: utils.StoreRetryConfig(),
	}
}

// Handlers maps task types to handlers for Start.
func (p *MealProcessor) Handlers() map[string]asynq.HandlerFunc {
	return map[string]asynq.HandlerFunc{
		TypeAnalyzeMeal: p.HandleAnalyzeMeal,
	}
}

func (p *MealProcessor) HandleAnalyzeMeal(ctx context.Context, t *asynq.Task) (err error) {
	start := time.Now()
	defer func() {
		recordJob(ctx, t.Type(), jobStatus(err), time.Since(start).Seconds())
	}()

	var payload AnalyzeMealPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	slog.Info("Analyzing meal", "job_id", payload.JobID, "kind", payload.Kind, "provider", payload.Provider)

	job, err := p.loadJob(ctx, payload)
	if err != nil {
		return err
	}
	job.Start()
	if err := p.saveJob(ctx, job); err != nil {
		return err
	}

	in, err := payload.Input()
	if err != nil {
		return p.fail(ctx, job, payload.Language, err)
	}

	result, err := p.analyzers.Run(ctx, in)
	if err != nil {
		return p.fail(ctx, job, payload.Language, err)
	}

	// The result is paid for; a task deadline or shutdown must not lose it.
	ctx = context.WithoutCancel(ctx)

	entry := meallog.NewEntry(payload.UserID, in.Kind, in.Text, result)
	_, err = utils.WithRetry(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, p.meals.Append(ctx, entry)
	}, p.retryConfig)
	if err != nil {
		slog.Error("Failed to append meal log entry", "job_id", job.ID, "error", err)
		// The analysis succeeded; a retry would run it again.
		entry.ID = ""
	}

	job.Succeed(result, entry.ID)
	if err := p.saveJob(ctx, job); err != nil {
		return err
	}

	slog.Info("Meal analyzed",
		"job_id", job.ID,
		"provider", result.Provider,
		"fell_back", result.FellBack,
		"calories", result.Record.Calories)
	return nil
}

// loadJob returns the stored job, recreating it if it expired or was never
// written.
func (p *MealProcessor) loadJob(ctx context.Context, payload AnalyzeMealPayload) (*jobs.Job, error) {
	job, err := p.jobs.Get(ctx, payload.JobID)
	if err == nil {
		return job, nil
	}
	if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		return nil, err
	}

	job = jobs.New(payload.UserID, analysis.Kind(payload.Kind))
	job.ID = payload.JobID
	return job, nil
}

func (p *MealProcessor) saveJob(ctx context.Context, job *jobs.Job) error {
	_, err := utils.WithRetry(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, p.jobs.Save(ctx, job)
	}, p.retryConfig)
	if err != nil {
		return fmt.Errorf("failed to save job %s: %w", job.ID, err)
	}
	return nil
}

// fail records a terminal analysis failure on the job. The task is not
// retried: the orchestrator already tried every capable provider. The status
// is written even when ctx is already cancelled.
func (p *MealProcessor) fail(ctx context.Context, job *jobs.Job, language string, cause error) error {
	ctx = context.WithoutCancel(ctx)

	code := string(apperrors.ErrorTypeInternal)
	if appErr, ok := apperrors.As(cause); ok {
		code = appErr.Code()
	}

	if isCancelled(cause) {
		slog.Info("Meal analysis cancelled", "job_id", job.ID)
	} else {
		slog.Error("Meal analysis failed", "job_id", job.ID, "code", code, "error", cause)
	}

	job.Fail(code, apperrors.Localize(cause, language))
	if err := p.saveJob(ctx, job); err != nil {
		return err
	}
	return fmt.Errorf("%w: %w", cause, asynq.SkipRetry)
}

func isCancelled(err error) bool {
	return apperrors.IsType(err, apperrors.ErrorTypeCancelled) ||
		errors.Is(err, context.Canceled)
}

func jobStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case isCancelled(err):
		return "cancelled"
	default:
		return "failed"
	}
}
