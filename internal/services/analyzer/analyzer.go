// Package analyzer holds the front doors for text, photo and voice meal
// analysis. Each validates its input and hands a request to the orchestrator.
package analyzer

import (
	"context"
	"log/slog"

	"github.com/mealsnap/mealsnap/internal/services/analysis"
	"github.com/mealsnap/mealsnap/internal/services/media"
	"github.com/mealsnap/mealsnap/internal/validation"
)

// Orchestrator runs one analysis request.
type Orchestrator interface {
	Analyze(ctx context.Context, req analysis.Request) (*analysis.Result, error)
}

// Text analyzes a typed meal description.
type Text struct {
	orchestrator Orchestrator
}

func NewText(o Orchestrator) *Text {
	return &Text{orchestrator: o}
}

func (a *Text) Analyze(ctx context.Context, description, preferredProvider string) (*analysis.Result, error) {
	trimmed, quick, err := validation.ValidateDescription(description)
	if err != nil {
		return nil, err
	}
	if quick.Confidence != validation.ConfidenceHigh {
		slog.Debug("Meal description has no food keywords", "length", len(trimmed))
	}

	return a.orchestrator.Analyze(ctx, analysis.Request{
		Kind:              analysis.KindText,
		Text:              trimmed,
		PreferredProvider: preferredProvider,
	})
}

// Photo analyzes an encoded meal photo with an optional note.
type Photo struct {
	orchestrator Orchestrator
}

func NewPhoto(o Orchestrator) *Photo {
	return &Photo{orchestrator: o}
}

func (a *Photo) Analyze(ctx context.Context, image *media.Encoded, note, preferredProvider string) (*analysis.Result, error) {
	if err := validation.ValidateMedia(image, media.KindImage, validation.MaxImageBytes); err != nil {
		return nil, err
	}
	note, err := validation.ValidateNote(note)
	if err != nil {
		return nil, err
	}

	return a.orchestrator.Analyze(ctx, analysis.Request{
		Kind:              analysis.KindImage,
		Text:              note,
		Media:             image,
		PreferredProvider: preferredProvider,
	})
}

// Audio analyzes an encoded voice recording describing a meal.
type Audio struct {
	orchestrator Orchestrator
}

func NewAudio(o Orchestrator) *Audio {
	return &Audio{orchestrator: o}
}

func (a *Audio) Analyze(ctx context.Context, recording *media.Encoded, preferredProvider string) (*analysis.Result, error) {
	if err := validation.ValidateMedia(recording, media.KindAudio, validation.MaxAudioBytes); err != nil {
		return nil, err
	}

	return a.orchestrator.Analyze(ctx, analysis.Request{
		Kind:              analysis.KindAudio,
		Media:             recording,
		PreferredProvider: preferredProvider,
	})
}

// Input is a transport-neutral analysis input, used by the API, the job
// worker and the MCP tool.
type Input struct {
	Kind     analysis.Kind
	Text     string
	Media    *media.Encoded
	Provider string
}

// Set bundles the three analyzers.
type Set struct {
	Text  *Text
	Photo *Photo
	Audio *Audio
}

func NewSet(o Orchestrator) *Set {
	return &Set{
		Text:  NewText(o),
		Photo: NewPhoto(o),
		Audio: NewAudio(o),
	}
}

// Run dispatches in to the analyzer for its kind.
func (s *Set) Run(ctx context.Context, in Input) (*analysis.Result, error) {
	switch in.Kind {
	case analysis.KindImage:
		return s.Photo.Analyze(ctx, in.Media, in.Text, in.Provider)
	case analysis.KindAudio:
		return s.Audio.Analyze(ctx, in.Media, in.Provider)
	case analysis.KindText:
		return s.Text.Analyze(ctx, in.Text, in.Provider)
	default:
		_, err := analysis.ParseKind(string(in.Kind))
		return nil, err
	}
}
