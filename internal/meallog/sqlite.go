package meallog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	apperrors "github.com/mealsnap/mealsnap/internal/errors"
	_ "modernc.org/sqlite"
)

// timeLayout sorts lexically in UTC.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore keeps entries in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, apperrors.NewConfigurationError("failed to open meal log database", "MEAL_LOG_UNAVAILABLE", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, apperrors.NewConfigurationError("failed to initialize meal log schema", "MEAL_LOG_SCHEMA_FAILED", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
    CREATE TABLE IF NOT EXISTS meal_entries (
        id TEXT PRIMARY KEY,
        user_id TEXT NOT NULL,
        source TEXT NOT NULL,
        description TEXT NOT NULL DEFAULT '',
        name TEXT NOT NULL,
        calories INTEGER NOT NULL,
        protein INTEGER NOT NULL,
        carbs INTEGER NOT NULL,
        fat INTEGER NOT NULL,
        provider TEXT NOT NULL,
        created_at TEXT NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_meal_entries_user_created ON meal_entries(user_id, created_at);
    `

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Append(ctx context.Context, e *Entry) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO meal_entries (id, user_id, source, description, name, calories, protein, carbs, fat, provider, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Source, e.Description, e.Name,
		e.Calories, e.Protein, e.Carbs, e.Fat, e.Provider,
		e.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to insert meal entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, userID string, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, user_id, source, description, name, calories, protein, carbs, fat, provider, created_at
        FROM meal_entries
        WHERE user_id = ?
        ORDER BY created_at DESC
        LIMIT ?`, userID, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query meal entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var createdAt string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Source, &e.Description, &e.Name,
			&e.Calories, &e.Protein, &e.Carbs, &e.Fat, &e.Provider, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan meal entry: %w", err)
		}
		if e.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at %q: %w", createdAt, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
