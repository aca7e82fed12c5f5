// Package jobs tracks the status of asynchronous meal analyses.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/mealsnap/mealsnap/internal/errors"
	"github.com/mealsnap/mealsnap/internal/services/analysis"
	"github.com/redis/go-redis/v9"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// DefaultTTL is how long finished and pending jobs stay readable.
const DefaultTTL = 24 * time.Hour

// Job is the stored view of one asynchronous analysis.
type Job struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Kind      analysis.Kind    `json:"kind"`
	Status    Status           `json:"status"`
	Result    *analysis.Result `json:"result,omitempty"`
	MealID    string           `json:"meal_id,omitempty"`
	Error     string           `json:"error,omitempty"`
	ErrorCode string           `json:"error_code,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// New returns a queued job with a fresh ID.
func New(userID string, kind analysis.Kind) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (j *Job) Start() {
	j.Status = StatusRunning
	j.UpdatedAt = time.Now().UTC()
}

func (j *Job) Succeed(result *analysis.Result, mealID string) {
	j.Status = StatusSucceeded
	j.Result = result
	j.MealID = mealID
	j.Error, j.ErrorCode = "", ""
	j.UpdatedAt = time.Now().UTC()
}

func (j *Job) Fail(code, message string) {
	j.Status = StatusFailed
	j.ErrorCode = code
	j.Error = message
	j.UpdatedAt = time.Now().UTC()
}

// Finished reports whether the job reached a terminal state.
func (j *Job) Finished() bool {
	return j.Status == StatusSucceeded || j.Status == StatusFailed
}

// Store persists jobs.
type Store interface {
	Save(ctx context.Context, job *Job) error
	Get(ctx context.Context, id string) (*Job, error)
}

// RedisStore keeps jobs as JSON strings with a TTL.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a job store on the given Redis client.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		client: client,
		prefix: "analysis:job:",
		ttl:    ttl,
	}
}

func (s *RedisStore) makeKey(id string) string {
	return s.prefix + id
}

func (s *RedisStore) Save(ctx context.Context, job *Job) error {
	if s.client == nil {
		return apperrors.NewConfigurationError("job store has no Redis client", "JOB_STORE_UNAVAILABLE", nil)
	}

	data, err := json.Marshal(job)
	if err != nil {
		return apperrors.NewInternalError("failed to encode job", "JOB_ENCODE_FAILED", err)
	}

	if err := s.client.Set(ctx, s.makeKey(job.ID), data, s.ttl).Err(); err != nil {
		slog.Warn("Redis job save failed", "job_id", job.ID, "error", err)
		return apperrors.NewInternalError("failed to save job", "JOB_SAVE_FAILED", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Job, error) {
	if s.client == nil {
		return nil, apperrors.NewConfigurationError("job store has no Redis client", "JOB_STORE_UNAVAILABLE", nil)
	}

	data, err := s.client.Get(ctx, s.makeKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, notFound(id)
	}
	if err != nil {
		slog.Warn("Redis job get failed", "job_id", id, "error", err)
		return nil, apperrors.NewInternalError("failed to load job", "JOB_LOAD_FAILED", err)
	}

	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, apperrors.NewInternalError("failed to decode job", "JOB_DECODE_FAILED", err)
	}
	return &job, nil
}

// MemoryStore is an in-process Store for tests and single-process runs.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]Job)}
}

func (s *MemoryStore) Save(_ context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = *job
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, notFound(id)
	}
	return &job, nil
}

func notFound(id string) error {
	return apperrors.NewNotFoundError(fmt.Sprintf("job %s not found", id), "JOB_NOT_FOUND",
		"Jobs expire 24 hours after they are created.")
}
