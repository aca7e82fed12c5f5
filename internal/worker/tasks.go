package worker

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"github.com/mealsnap/mealsnap/internal/services/analysis"
	"github.com/mealsnap/mealsnap/internal/services/analyzer"
	"github.com/mealsnap/mealsnap/internal/services/media"
)

// Task type constants
const (
	TypeAnalyzeMeal = "analysis:meal"
)

// QueueAnalysis is the queue meal analysis tasks run on.
const QueueAnalysis = "analysis"

// AnalyzeMealPayload is the payload for meal analysis tasks. Media travels
// as a data URL.
type AnalyzeMealPayload struct {
	JobID    string `json:"job_id"`
	UserID   string `json:"user_id"`
	Kind     string `json:"kind"`
	Text     string `json:"text,omitempty"`
	DataURL  string `json:"data_url,omitempty"`
	Provider string `json:"provider,omitempty"`
	Language string `json:"language,omitempty"`
}

// Input decodes the payload into an analyzer input.
func (p AnalyzeMealPayload) Input() (analyzer.Input, error) {
	kind, err := analysis.ParseKind(p.Kind)
	if err != nil {
		return analyzer.Input{}, err
	}

	in := analyzer.Input{Kind: kind, Text: p.Text, Provider: p.Provider}
	if kind == analysis.KindText {
		return in, nil
	}

	mediaKind := media.KindImage
	if kind == analysis.KindAudio {
		mediaKind = media.KindAudio
	}
	in.Media, err = media.FromDataURL(mediaKind, p.DataURL)
	if err != nil {
		return analyzer.Input{}, err
	}
	return in, nil
}

// NewAnalyzeMealTask creates a new meal analysis task. The analysis itself
// falls back across providers, so asynq only retries infrastructure failures.
func NewAnalyzeMealTask(payload AnalyzeMealPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeAnalyzeMeal, data,
		asynq.Queue(QueueAnalysis),
		asynq.MaxRetry(3),
		asynq.Timeout(3*time.Minute),
		asynq.Retention(24*time.Hour),
	), nil
}
