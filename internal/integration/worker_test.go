package integration

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mealsnap/mealsnap/internal/jobs"
	"github.com/mealsnap/mealsnap/internal/services/analysis"
	"github.com/mealsnap/mealsnap/internal/worker"
)

func createMockTask(t *testing.T, payload worker.AnalyzeMealPayload) *asynq.Task {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return asynq.NewTask(worker.TypeAnalyzeMeal, data)
}

func TestWorker_AnalyzeMealJob(t *testing.T) {
	s := newStack(t, geminiDown(t), groqUp(t))
	ctx := context.Background()

	job := jobs.New("user-1", analysis.KindText)
	require.NoError(t, s.jobs.Save(ctx, job))

	processor := worker.NewMealProcessor(s.set, s.meals, s.jobs)
	err := processor.HandleAnalyzeMeal(ctx, createMockTask(t, worker.AnalyzeMealPayload{
		JobID:  job.ID,
		UserID: "user-1",
		Kind:   "text",
		Text:   "grilled chicken salad",
	}))
	require.NoError(t, err)

	got, err := s.jobs.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusSucceeded, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, "groq", got.Result.Provider)
	assert.True(t, got.Result.FellBack)

	entries, err := s.meals.List(ctx, "user-1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, got.MealID, entries[0].ID)
}

func TestWorker_AllProvidersFailIsNotRetried(t *testing.T) {
	s := newStack(t, geminiDown(t), groqDown(t))
	ctx := context.Background()

	processor := worker.NewMealProcessor(s.set, s.meals, s.jobs)
	err := processor.HandleAnalyzeMeal(ctx, createMockTask(t, worker.AnalyzeMealPayload{
		JobID:  "job-1",
		UserID: "user-1",
		Kind:   "text",
		Text:   "grilled chicken salad",
	}))

	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))

	got, err := s.jobs.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusFailed, got.Status)
	assert.Equal(t, "ALL_PROVIDERS_FAILED", got.ErrorCode)
	assert.Equal(t, "We could not estimate the nutrition values right now. Please try again.", got.Error)
}
