package provider

import (
	"context"
	"time"

	"github.com/mealsnap/mealsnap/internal/config"
	apperrors "github.com/mealsnap/mealsnap/internal/errors"
	"github.com/mealsnap/mealsnap/internal/metrics"
	"github.com/mealsnap/mealsnap/internal/services/media"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ProviderType represents the vendor implementation behind a provider
type ProviderType string

const (
	ProviderGemini           ProviderType = "gemini"
	ProviderOpenAI           ProviderType = "openai"
	ProviderAnthropic        ProviderType = "anthropic"
	ProviderOpenAICompatible ProviderType = "openai_compatible"
	ProviderGroq             ProviderType = "groq"
	ProviderCerebras         ProviderType = "cerebras"
)

// Provider is a uniform analysis interface over one AI vendor. Every method
// returns the raw model reply; parsing happens elsewhere.
type Provider interface {
	Name() string
	Type() ProviderType
	Capabilities() Capabilities
	AnalyzeText(ctx context.Context, prompt string) (string, error)
	AnalyzeImage(ctx context.Context, prompt string, image *media.Encoded) (string, error)
	AnalyzeAudio(ctx context.Context, prompt string, audio *media.Encoded) (string, error)
	HealthCheck(ctx context.Context) bool
}

const (
	defaultTemperature = 0.1
	defaultMaxTokens   = 1024
)

// settings holds what every vendor implementation needs from its config entry.
type settings struct {
	name        string
	kind        ProviderType
	apiKey      string
	endpoint    string
	models      []string
	temperature float64
	maxTokens   int
	timeout     time.Duration
	caps        Capabilities
}

// vendorDefaults describes a vendor's defaults and what it can technically do.
type vendorDefaults struct {
	endpoint  string
	models    []string
	supported Capabilities
}

func newSettings(name string, kind ProviderType, cfg *config.ProviderConfig, d vendorDefaults) settings {
	s := settings{
		name:        name,
		kind:        kind,
		apiKey:      cfg.APIKey,
		endpoint:    cfg.Endpoint,
		models:      cfg.Models,
		temperature: cfg.TemperatureOr(defaultTemperature),
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		caps:        ResolveCapabilities(name, cfg.Capabilities, d.supported),
	}
	if s.endpoint == "" {
		s.endpoint = d.endpoint
	}
	if len(s.models) == 0 {
		s.models = d.models
	}
	if s.maxTokens == 0 {
		s.maxTokens = defaultMaxTokens
	}
	return s
}

func (s *settings) Name() string               { return s.name }
func (s *settings) Type() ProviderType         { return s.kind }
func (s *settings) Capabilities() Capabilities { return s.caps }

// require fails fast when the provider cannot serve capability c or the media
// payload does not match it.
func (s *settings) require(c Capability, m *media.Encoded) error {
	if !s.caps.Has(c) {
		return apperrors.NewUnsupportedCapabilityError(s.name, string(c))
	}
	if c == CapabilityText {
		return nil
	}
	want := media.KindImage
	if c == CapabilityAudio {
		want = media.KindAudio
	}
	if m == nil {
		return apperrors.NewInvalidMediaKindError(s.name, "")
	}
	if m.Kind != want {
		return apperrors.NewInvalidMediaKindError(s.name, string(m.Kind))
	}
	return nil
}

// record emits call metrics for one Analyze invocation.
func (s *settings) record(ctx context.Context, c Capability, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = ClassifyError(err, s.name).Type
	}
	attrs := []attribute.KeyValue{
		attribute.String("provider", s.name),
		attribute.String("capability", string(c)),
	}
	metrics.ProviderCallDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attrs...))
	metrics.ProviderCallsTotal.Add(ctx, 1, metric.WithAttributes(append(attrs, attribute.String("status", status))...))
}
