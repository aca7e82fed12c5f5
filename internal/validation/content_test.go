package validation

import (
	"strings"
	"testing"

	apperrors "github.com/mealsnap/mealsnap/internal/errors"
	"github.com/mealsnap/mealsnap/internal/services/media"
)

func TestQuickValidate(t *testing.T) {
	tests := []struct {
		name        string
		description string
		wantIsValid bool
		wantConf    Confidence
	}{
		{
			name:        "Empty content",
			description: "   ",
			wantIsValid: false,
			wantConf:    ConfidenceHigh,
		},
		{
			name:        "Single character",
			description: "x",
			wantIsValid: false,
			wantConf:    ConfidenceHigh,
		},
		{
			name:        "Too long",
			description: strings.Repeat("a", MaxDescriptionLength+1),
			wantIsValid: false,
			wantConf:    ConfidenceHigh,
		},
		{
			name:        "Description with keywords",
			description: "Two slices of bread with cheese",
			wantIsValid: true,
			wantConf:    ConfidenceHigh,
		},
		{
			name:        "Czech description",
			description: "Svíčková s knedlíkem, velká porce",
			wantIsValid: true,
			wantConf:    ConfidenceHigh,
		},
		{
			name:        "No keywords",
			description: "Something my grandmother made",
			wantIsValid: true,
			wantConf:    ConfidenceMedium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := QuickValidate(tt.description)
			if got.IsValid != tt.wantIsValid {
				t.Errorf("QuickValidate() IsValid = %v, want %v", got.IsValid, tt.wantIsValid)
			}
			if got.Confidence != tt.wantConf {
				t.Errorf("QuickValidate() Confidence = %v, want %v", got.Confidence, tt.wantConf)
			}
		})
	}
}

func TestQuickValidate_CountsCharactersNotBytes(t *testing.T) {
	// 2000 two-byte runes is within the limit.
	if got := QuickValidate(strings.Repeat("č", MaxDescriptionLength)); !got.IsValid {
		t.Errorf("expected valid, got %+v", got)
	}
}

func TestValidateDescription(t *testing.T) {
	trimmed, _, err := ValidateDescription("  pasta carbonara  ")
	if err != nil || trimmed != "pasta carbonara" {
		t.Errorf("unexpected result %q, %v", trimmed, err)
	}

	_, _, err = ValidateDescription("a")
	appErr, ok := apperrors.As(err)
	if !ok || appErr.Code() != "DESCRIPTION_TOO_SHORT" {
		t.Errorf("expected DESCRIPTION_TOO_SHORT, got %v", err)
	}

	_, _, err = ValidateDescription(strings.Repeat("b", 2001))
	appErr, ok = apperrors.As(err)
	if !ok || appErr.Code() != "DESCRIPTION_TOO_LONG" {
		t.Errorf("expected DESCRIPTION_TOO_LONG, got %v", err)
	}
}

func TestValidateNote(t *testing.T) {
	if note, err := ValidateNote(" half eaten "); err != nil || note != "half eaten" {
		t.Errorf("unexpected result %q, %v", note, err)
	}
	if _, err := ValidateNote(strings.Repeat("n", MaxNoteLength+1)); !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestValidateMedia(t *testing.T) {
	tests := []struct {
		name    string
		m       *media.Encoded
		kind    media.Kind
		max     int
		wantErr bool
	}{
		{"valid image", &media.Encoded{Kind: media.KindImage, MIMEType: "image/jpeg", Data: "AAAA", OriginalSize: 3}, media.KindImage, 10, false},
		{"webm recording", &media.Encoded{Kind: media.KindAudio, MIMEType: "video/webm", Data: "AAAA"}, media.KindAudio, 10, false},
		{"missing", nil, media.KindImage, 10, true},
		{"wrong kind", &media.Encoded{Kind: media.KindAudio, MIMEType: "audio/mpeg", Data: "AAAA"}, media.KindImage, 10, true},
		{"wrong mime", &media.Encoded{Kind: media.KindImage, MIMEType: "application/pdf", Data: "AAAA"}, media.KindImage, 10, true},
		{"too large", &media.Encoded{Kind: media.KindImage, MIMEType: "image/png", Data: "AAAA", OriginalSize: 11}, media.KindImage, 10, true},
		{"size from payload", &media.Encoded{Kind: media.KindAudio, MIMEType: "audio/ogg", Data: strings.Repeat("A", 40)}, media.KindAudio, 10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMedia(tt.m, tt.kind, tt.max)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateMedia() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
