package provider

import (
	"testing"

	"github.com/mealsnap/mealsnap/internal/config"
	apperrors "github.com/mealsnap/mealsnap/internal/errors"
)

func TestCreateProvider_Types(t *testing.T) {
	cfg := &config.ProviderConfig{APIKey: "k", Endpoint: "https://llm.internal/v1"}

	tests := []struct {
		typeName string
		check    func(Provider) bool
	}{
		{"gemini", func(p Provider) bool { _, ok := p.(*GeminiProvider); return ok }},
		{"openai", func(p Provider) bool { _, ok := p.(*OpenAIProvider); return ok }},
		{"anthropic", func(p Provider) bool { _, ok := p.(*AnthropicProvider); return ok }},
		{"openai_compatible", func(p Provider) bool { _, ok := p.(*CompatibleProvider); return ok }},
		{"Groq", func(p Provider) bool { return p.Type() == ProviderGroq }},
		{"cerebras", func(p Provider) bool { return p.Type() == ProviderCerebras }},
	}

	for _, tt := range tests {
		t.Run(tt.typeName, func(t *testing.T) {
			p, err := CreateProvider("main", tt.typeName, cfg)
			if err != nil {
				t.Fatalf("CreateProvider failed: %v", err)
			}
			if !tt.check(p) {
				t.Errorf("unexpected provider %T", p)
			}
			if p.Name() != "main" {
				t.Errorf("expected name main, got %s", p.Name())
			}
		})
	}
}

func TestCreateProvider_Errors(t *testing.T) {
	if _, err := CreateProvider("x", "mistral", &config.ProviderConfig{APIKey: "k"}); !apperrors.IsType(err, apperrors.ErrorTypeUnknownProviderType) {
		t.Errorf("expected unknown provider type, got %v", err)
	}
	if _, err := CreateProvider("x", "gemini", nil); !apperrors.IsType(err, apperrors.ErrorTypeMissingConfig) {
		t.Errorf("expected missing config, got %v", err)
	}
}
