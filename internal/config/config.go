package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	apperrors "github.com/mealsnap/mealsnap/internal/errors"
)

type Config struct {
	Env            string `env:"ENV" envDefault:"development" validate:"required"`
	ServiceName    string `env:"SERVICE_NAME" envDefault:"mealsnap"`
	ServiceVersion string `env:"SERVICE_VERSION" envDefault:"1.0.0"`
	Port           string `env:"PORT" envDefault:"8080" validate:"numeric"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	RedisURL          string `env:"REDIS_URL"`
	WorkerConcurrency int    `env:"WORKER_CONCURRENCY" envDefault:"10" validate:"min=1"`

	MealLogDriver string `env:"MEAL_LOG_DRIVER" envDefault:"none" validate:"oneof=none postgres sqlite"`
	MealLogDSN    string `env:"MEAL_LOG_DSN" validate:"required_unless=MealLogDriver none"`

	JWTSecret string `env:"AUTH_JWT_SECRET"`
	JWTIssuer string `env:"AUTH_ISSUER"`

	OtelExporterOTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelExporterOTLPHeaders  string `env:"OTEL_EXPORTER_OTLP_HEADERS"`
	SentryDSN                string `env:"SENTRY_DSN"`

	ProvidersConfigPath string        `env:"PROVIDERS_CONFIG" envDefault:"providers.yaml"`
	DefaultProvider     string        `env:"DEFAULT_PROVIDER"`
	HealthCheckTimeout  time.Duration `env:"HEALTH_CHECK_TIMEOUT" envDefault:"10s"`
	AnalysisTimeout     time.Duration `env:"ANALYSIS_TIMEOUT" envDefault:"90s"`

	// Keys used when no providers file exists.
	GeminiKey    string `env:"GEMINI_API_KEY"`
	OpenAIKey    string `env:"OPENAI_API_KEY"`
	AnthropicKey string `env:"ANTHROPIC_API_KEY"`
	GroqKey      string `env:"GROQ_API_KEY"`

	Providers ProvidersConfig
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, apperrors.NewConfigurationError("failed to parse environment", "CONFIG_ENV", err)
	}

	if err := cfg.LoadFromYAML(cfg.ProvidersConfigPath); err != nil {
		return nil, err
	}

	cfg.SetProviderDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromYAML reads the provider bundle from path. A missing file is not an error.
func (c *Config) LoadFromYAML(path string) error {
	bundle, err := LoadProviders(path)
	if err != nil {
		return err
	}
	if bundle != nil {
		c.Providers = *bundle
	}
	return nil
}

// SetProviderDefaults fills the bundle from API key variables when no
// providers file was found and applies the DEFAULT_PROVIDER override.
func (c *Config) SetProviderDefaults() {
	if len(c.Providers.Entries) == 0 {
		keys := []struct{ name, key string }{
			{"gemini", c.GeminiKey},
			{"openai", c.OpenAIKey},
			{"anthropic", c.AnthropicKey},
			{"groq", c.GroqKey},
		}
		for _, k := range keys {
			if k.key == "" {
				continue
			}
			c.Providers.Entries = append(c.Providers.Entries, ProviderEntry{
				Name:   k.name,
				Config: ProviderConfig{Type: k.name, APIKey: k.key},
			})
		}
	}

	if c.DefaultProvider != "" {
		c.Providers.DefaultProvider = c.DefaultProvider
	}
	if c.Providers.DefaultProvider == "" && len(c.Providers.Entries) > 0 {
		c.Providers.DefaultProvider = c.Providers.Entries[0].Name
	}
}

func (c *Config) validate() error {
	if err := validate.Struct(c); err != nil {
		return apperrors.NewConfigurationError("invalid service configuration", "CONFIG_INVALID", err)
	}
	return c.Providers.Validate()
}
