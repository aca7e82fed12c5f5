// Package validation checks user input before it reaches a provider.
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	apperrors "github.com/mealsnap/mealsnap/internal/errors"
	"github.com/mealsnap/mealsnap/internal/services/media"
)

const (
	MinDescriptionLength = 2
	MaxDescriptionLength = 2000
	MaxNoteLength        = 500
	MaxImageBytes        = 8 << 20
	MaxAudioBytes        = 10 << 20
)

// Confidence represents certainty in the validation result
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ContentValidationResult contains the outcome of validation
type ContentValidationResult struct {
	IsValid    bool       `json:"is_valid"`
	Confidence Confidence `json:"confidence"`
	Reason     string     `json:"reason"`
	Missing    []string   `json:"missing"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// foodKeywords for quick heuristic validation, English and Czech.
var foodKeywords = []string{
	// Quantities
	"gram", "kg", "ml", "cup", "slice", "piece", "bowl", "plate", "glass", "portion",
	"plátek", "kus", "talíř", "sklenice", "porce", "hrnek",
	// Meals
	"breakfast", "lunch", "dinner", "snack", "salad", "soup", "sandwich",
	"snídaně", "oběd", "večeře", "svačina", "salát", "polévka",
	// Common foods
	"egg", "bread", "rice", "pasta", "chicken", "beef", "pork", "fish", "cheese", "milk",
	"potato", "apple", "banana", "yogurt", "coffee", "tea", "beer", "pizza", "burger",
	"vejce", "chléb", "rýže", "těstoviny", "kuře", "hovězí", "vepřové", "ryba", "sýr", "mléko",
	"brambor", "jablko", "jogurt", "káva", "čaj", "pivo",
}

// QuickValidate performs a fast heuristic check of a meal description
func QuickValidate(description string) ContentValidationResult {
	content := strings.TrimSpace(description)
	length := utf8.RuneCountInString(content)

	if length < MinDescriptionLength {
		reason := fmt.Sprintf("Description too short (%d chars). Need at least %d chars.", length, MinDescriptionLength)
		if length == 0 {
			reason = "No description provided"
		}
		return ContentValidationResult{
			IsValid:    false,
			Confidence: ConfidenceHigh,
			Reason:     reason,
			Missing:    []string{"sufficient content length"},
		}
	}

	if length > MaxDescriptionLength {
		return ContentValidationResult{
			IsValid:    false,
			Confidence: ConfidenceHigh,
			Reason:     fmt.Sprintf("Description too long (%d chars). At most %d chars are accepted.", length, MaxDescriptionLength),
			Missing:    []string{},
		}
	}

	lowerContent := strings.ToLower(content)
	for _, kw := range foodKeywords {
		if strings.Contains(lowerContent, kw) {
			return ContentValidationResult{
				IsValid:    true,
				Confidence: ConfidenceHigh,
				Reason:     "Content passed quick validation",
				Missing:    []string{},
			}
		}
	}

	return ContentValidationResult{
		IsValid:    true,
		Confidence: ConfidenceMedium,
		Reason:     "Content has sufficient length but no common food keywords found",
		Missing:    []string{"food keywords"},
	}
}

// ValidateDescription trims a meal description and rejects it when it is
// outside the accepted length.
func ValidateDescription(description string) (string, ContentValidationResult, error) {
	trimmed := strings.TrimSpace(description)
	result := QuickValidate(trimmed)
	if result.IsValid {
		return trimmed, result, nil
	}

	code := "DESCRIPTION_TOO_SHORT"
	if utf8.RuneCountInString(trimmed) > MaxDescriptionLength {
		code = "DESCRIPTION_TOO_LONG"
	}
	return "", result, apperrors.NewValidationError(result.Reason, code,
		fmt.Sprintf("Describe the meal in %d to %d characters.", MinDescriptionLength, MaxDescriptionLength))
}

// ValidateNote trims an optional photo note.
func ValidateNote(note string) (string, error) {
	trimmed := strings.TrimSpace(note)
	if err := validate.Var(trimmed, fmt.Sprintf("max=%d", MaxNoteLength)); err != nil {
		return "", apperrors.NewValidationError(
			fmt.Sprintf("note exceeds %d characters", MaxNoteLength), "NOTE_TOO_LONG", "Shorten the note.")
	}
	return trimmed, nil
}

// ValidateMedia checks that an encoded payload has the expected kind, a
// matching MIME type and a raw size within maxBytes.
func ValidateMedia(m *media.Encoded, kind media.Kind, maxBytes int) error {
	if m == nil || m.Data == "" {
		return apperrors.NewValidationError(fmt.Sprintf("%s payload is missing", kind), "MEDIA_MISSING", "")
	}
	if m.Kind != kind || !mimeMatches(m.MIMEType, kind) {
		return apperrors.NewValidationError(
			fmt.Sprintf("expected %s media, got %s", kind, m.MIMEType), "UNSUPPORTED_MEDIA_TYPE", "")
	}
	size := m.OriginalSize
	if size == 0 {
		size = len(m.Data) / 4 * 3
	}
	if size > maxBytes {
		return apperrors.NewValidationError(
			fmt.Sprintf("%s exceeds %d bytes", kind, maxBytes), "UPLOAD_TOO_LARGE", "Send a smaller file.")
	}
	return nil
}

func mimeMatches(mimeType string, kind media.Kind) bool {
	mimeType = strings.ToLower(mimeType)
	switch kind {
	case media.KindImage:
		return strings.HasPrefix(mimeType, "image/")
	case media.KindAudio:
		return strings.HasPrefix(mimeType, "audio/") || strings.HasPrefix(mimeType, "video/webm")
	default:
		return false
	}
}
