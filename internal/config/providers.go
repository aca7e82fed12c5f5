package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	apperrors "github.com/mealsnap/mealsnap/internal/errors"
	"gopkg.in/yaml.v3"
)

// ProvidersConfig is the provider bundle: the default, the fallback order and
// the provider entries in declaration order.
type ProvidersConfig struct {
	DefaultProvider string
	FallbackOrder   []string
	Entries         []ProviderEntry
}

// ProviderEntry pairs a registry name with its settings.
type ProviderEntry struct {
	Name   string
	Config ProviderConfig
}

type ProviderConfig struct {
	Type         string             `yaml:"type"`
	Enabled      *bool              `yaml:"enabled"`
	APIKey       string             `yaml:"api_key"`
	Endpoint     string             `yaml:"endpoint" validate:"omitempty,url"`
	Models       []string           `yaml:"models" validate:"dive,required"`
	APIVersions  []string           `yaml:"api_versions" validate:"dive,required"`
	Temperature  *float64           `yaml:"temperature" validate:"omitempty,gte=0,lte=2"`
	MaxTokens    int                `yaml:"max_tokens" validate:"gte=0"`
	Timeout      time.Duration      `yaml:"timeout" validate:"gte=0"`
	Capabilities CapabilitiesConfig `yaml:"capabilities"`
}

// CapabilitiesConfig holds explicit capability flags. Nil means not configured.
type CapabilitiesConfig struct {
	Text   *bool `yaml:"text"`
	Images *bool `yaml:"images"`
	Audio  *bool `yaml:"audio"`
}

// IsEnabled reports whether the entry participates in registry construction.
// Only an explicit false disables it.
func (p ProviderConfig) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// TemperatureOr returns the configured temperature or def.
func (p ProviderConfig) TemperatureOr(def float64) float64 {
	if p.Temperature == nil {
		return def
	}
	return *p.Temperature
}

// Get returns the entry registered under name.
func (b *ProvidersConfig) Get(name string) (ProviderConfig, bool) {
	for _, e := range b.Entries {
		if e.Name == name {
			return e.Config, true
		}
	}
	return ProviderConfig{}, false
}

// Validate checks every entry's settings.
func (b *ProvidersConfig) Validate() error {
	seen := make(map[string]bool, len(b.Entries))
	for _, e := range b.Entries {
		if seen[e.Name] {
			return apperrors.NewConfigurationError(
				fmt.Sprintf("provider %q declared twice", e.Name), "CONFIG_DUPLICATE_PROVIDER", nil)
		}
		seen[e.Name] = true
		if err := validate.Struct(e.Config); err != nil {
			return apperrors.NewConfigurationError(
				fmt.Sprintf("invalid settings for provider %q", e.Name), "CONFIG_PROVIDER_INVALID", err)
		}
	}
	return nil
}

type providersFile struct {
	DefaultProvider string    `yaml:"default_provider"`
	FallbackOrder   []string  `yaml:"fallback_order"`
	Providers       yaml.Node `yaml:"providers"`
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

func expandEnv(data []byte) []byte {
	return envRef.ReplaceAllFunc(data, func(m []byte) []byte {
		name := envRef.FindSubmatch(m)[1]
		return []byte(os.Getenv(string(name)))
	})
}

// LoadProviders reads a provider bundle from path. It returns nil without
// error when the file does not exist.
func LoadProviders(path string) (*ProvidersConfig, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperrors.NewConfigurationError("failed to read providers file", "CONFIG_READ", err)
	}

	return ParseProviders(data)
}

// ParseProviders decodes a provider bundle. ${VAR} references are expanded
// from the environment and entry order follows the document.
func ParseProviders(data []byte) (*ProvidersConfig, error) {
	var file providersFile
	if err := yaml.Unmarshal(expandEnv(data), &file); err != nil {
		return nil, apperrors.NewConfigurationError("failed to parse providers file", "CONFIG_PARSE", err)
	}

	bundle := &ProvidersConfig{
		DefaultProvider: file.DefaultProvider,
		FallbackOrder:   file.FallbackOrder,
	}

	switch file.Providers.Kind {
	case 0:
		return bundle, nil
	case yaml.MappingNode:
	default:
		return nil, apperrors.NewConfigurationError("providers must be a mapping", "CONFIG_PARSE", nil)
	}

	nodes := file.Providers.Content
	for i := 0; i+1 < len(nodes); i += 2 {
		name := nodes[i].Value
		var pc ProviderConfig
		if err := nodes[i+1].Decode(&pc); err != nil {
			return nil, apperrors.NewConfigurationError(
				fmt.Sprintf("failed to parse provider %q", name), "CONFIG_PARSE", err)
		}
		if pc.Type == "" {
			pc.Type = name
		}
		bundle.Entries = append(bundle.Entries, ProviderEntry{Name: name, Config: pc})
	}

	return bundle, nil
}
