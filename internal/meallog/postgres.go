package meallog

import (
	"context"
	"fmt"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	apperrors "github.com/mealsnap/mealsnap/internal/errors"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS meal_entries (
    id UUID PRIMARY KEY,
    user_id TEXT NOT NULL,
    source TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    name TEXT NOT NULL,
    calories INTEGER NOT NULL,
    protein INTEGER NOT NULL,
    carbs INTEGER NOT NULL,
    fat INTEGER NOT NULL,
    provider TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_meal_entries_user_created ON meal_entries (user_id, created_at DESC);
`

func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}

	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	config.ConnConfig.Tracer = otelpgx.NewTracer()

	return pgxpool.NewWithConfig(ctx, config)
}

// PostgresStore keeps entries in a meal_entries table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects and creates the schema if needed.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := NewPool(ctx, databaseURL)
	if err != nil {
		return nil, apperrors.NewConfigurationError("failed to connect to meal log database", "MEAL_LOG_UNAVAILABLE", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, apperrors.NewConfigurationError("failed to initialize meal log schema", "MEAL_LOG_SCHEMA_FAILED", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Append(ctx context.Context, e *Entry) error {
	_, err := s.pool.Exec(ctx, `
        INSERT INTO meal_entries (id, user_id, source, description, name, calories, protein, carbs, fat, provider, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.ID, e.UserID, e.Source, e.Description, e.Name,
		e.Calories, e.Protein, e.Carbs, e.Fat, e.Provider, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert meal entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, userID string, limit int) ([]Entry, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT id::text, user_id, source, description, name, calories, protein, carbs, fat, provider, created_at
        FROM meal_entries
        WHERE user_id = $1
        ORDER BY created_at DESC
        LIMIT $2`, userID, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query meal entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Source, &e.Description, &e.Name,
			&e.Calories, &e.Protein, &e.Carbs, &e.Fat, &e.Provider, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan meal entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
