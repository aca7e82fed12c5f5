// Package meallog persists analyzed meals per user.
package meallog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/mealsnap/mealsnap/internal/errors"
	"github.com/mealsnap/mealsnap/internal/services/analysis"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// Entry is one logged meal.
type Entry struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Source      string    `json:"source"`
	Description string    `json:"description,omitempty"`
	Name        string    `json:"name"`
	Calories    int       `json:"calories"`
	Protein     int       `json:"protein"`
	Carbs       int       `json:"carbs"`
	Fat         int       `json:"fat"`
	Provider    string    `json:"provider"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewEntry builds an entry from an analysis result.
func NewEntry(userID string, kind analysis.Kind, description string, result *analysis.Result) *Entry {
	return &Entry{
		ID:          uuid.NewString(),
		UserID:      userID,
		Source:      string(kind),
		Description: description,
		Name:        result.Record.Name,
		Calories:    result.Record.Calories,
		Protein:     result.Record.Protein,
		Carbs:       result.Record.Carbs,
		Fat:         result.Record.Fat,
		Provider:    result.Provider,
		CreatedAt:   time.Now().UTC(),
	}
}

// Store appends and lists meal entries.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
	List(ctx context.Context, userID string, limit int) ([]Entry, error)
	Close() error
}

// Open returns the store for driver: "postgres", "sqlite" or "none".
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "", "none":
		return NopStore{}, nil
	case "postgres":
		return NewPostgresStore(ctx, dsn)
	case "sqlite":
		return NewSQLiteStore(ctx, dsn)
	default:
		return nil, apperrors.NewConfigurationError(
			fmt.Sprintf("unknown meal log driver %q", driver), "INVALID_MEAL_LOG_DRIVER", nil)
	}
}

// ClampLimit applies the default and maximum list sizes.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}

// NopStore drops every entry. Used when no meal log is configured.
type NopStore struct{}

func (NopStore) Append(context.Context, *Entry) error { return nil }

func (NopStore) List(context.Context, string, int) ([]Entry, error) { return []Entry{}, nil }

func (NopStore) Close() error { return nil }
