package provider

import (
	"strings"

	"github.com/mealsnap/mealsnap/internal/config"
	apperrors "github.com/mealsnap/mealsnap/internal/errors"
)

// CreateProvider constructs the vendor implementation named by typeName.
// name is the registry key the provider will answer to.
func CreateProvider(name, typeName string, cfg *config.ProviderConfig) (Provider, error) {
	kind := ProviderType(strings.ToLower(strings.TrimSpace(typeName)))

	switch kind {
	case ProviderGemini, ProviderOpenAI, ProviderAnthropic,
		ProviderOpenAICompatible, ProviderGroq, ProviderCerebras:
	default:
		return nil, apperrors.NewUnknownProviderTypeError(typeName)
	}
	if cfg == nil {
		return nil, apperrors.NewMissingConfigError(typeName)
	}

	var (
		p   Provider
		err error
	)
	switch kind {
	case ProviderGemini:
		p, err = NewGeminiProvider(name, cfg)
	case ProviderOpenAI:
		p, err = NewOpenAIProvider(name, cfg)
	case ProviderAnthropic:
		p, err = NewAnthropicProvider(name, cfg)
	default:
		p, err = NewCompatibleProvider(name, kind, cfg)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}
