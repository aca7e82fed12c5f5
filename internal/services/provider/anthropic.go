package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/hashicorp/go-multierror"
	"github.com/mealsnap/mealsnap/internal/config"
	apperrors "github.com/mealsnap/mealsnap/internal/errors"
	"github.com/mealsnap/mealsnap/internal/httpclient"
	"github.com/mealsnap/mealsnap/internal/services/media"
)

var anthropicModels = []string{"claude-3-5-haiku-latest", "claude-3-5-sonnet-latest"}

type AnthropicProvider struct {
	settings
	client *anthropic.Client
}

// NewAnthropicProvider builds an Anthropic provider from its config entry.
func NewAnthropicProvider(name string, cfg *config.ProviderConfig) (*AnthropicProvider, error) {
	if cfg == nil {
		return nil, apperrors.NewMissingConfigError(string(ProviderAnthropic))
	}
	s := newSettings(name, ProviderAnthropic, cfg, vendorDefaults{
		models:    anthropicModels,
		supported: Capabilities{Text: true, Images: true},
	})

	opts := []option.RequestOption{
		option.WithAPIKey(s.apiKey),
		option.WithHTTPClient(httpclient.NewInstrumentedClient(s.timeout)),
		option.WithMaxRetries(0),
	}
	if s.endpoint != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(s.endpoint, "/")+"/"))
	}
	client := anthropic.NewClient(opts...)

	return &AnthropicProvider{settings: s, client: &client}, nil
}

func (p *AnthropicProvider) AnalyzeText(ctx context.Context, prompt string) (text string, err error) {
	if err := p.require(CapabilityText, nil); err != nil {
		return "", err
	}
	start := time.Now()
	defer func() { p.record(ctx, CapabilityText, start, err) }()

	return p.message(ctx, anthropic.NewTextBlock(prompt))
}

func (p *AnthropicProvider) AnalyzeImage(ctx context.Context, prompt string, image *media.Encoded) (text string, err error) {
	if err := p.require(CapabilityImages, image); err != nil {
		return "", err
	}
	start := time.Now()
	defer func() { p.record(ctx, CapabilityImages, start, err) }()

	return p.message(ctx,
		anthropic.NewImageBlockBase64(image.MIMEType, image.Data),
		anthropic.NewTextBlock(prompt))
}

func (p *AnthropicProvider) AnalyzeAudio(ctx context.Context, prompt string, audio *media.Encoded) (string, error) {
	return "", p.require(CapabilityAudio, audio)
}

func (p *AnthropicProvider) message(ctx context.Context, blocks ...anthropic.ContentBlockParamUnion) (string, error) {
	var errs *multierror.Error
	var last error
	for _, model := range p.models {
		msg, err := p.client.Messages.New(httpclient.WithProvider(ctx, "Anthropic"), anthropic.MessageNewParams{
			Model:       anthropic.Model(model),
			MaxTokens:   int64(p.maxTokens),
			Temperature: anthropic.Float(p.temperature),
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(blocks...),
			},
		})
		if err == nil {
			var sb strings.Builder
			for _, block := range msg.Content {
				if block.Type == "text" {
					sb.WriteString(block.Text)
				}
			}
			if strings.TrimSpace(sb.String()) != "" {
				return sb.String(), nil
			}
			err = apperrors.NewInvalidResponseShapeError("no text in Anthropic response", "PROVIDER_BAD_RESPONSE", nil)
		} else {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			err = mapAnthropicError(err)
		}

		slog.Debug("Anthropic model failed", "provider", p.name, "model", model, "error", err)
		errs = multierror.Append(errs, fmt.Errorf("%s: %w", model, err))
		last = err
	}
	return "", exhausted(p.name, errs, last)
}

// HealthCheck asks the first model for a single token.
func (p *AnthropicProvider) HealthCheck(ctx context.Context) bool {
	if len(p.models) == 0 {
		return false
	}
	_, err := p.client.Messages.New(httpclient.WithProvider(ctx, "Anthropic"), anthropic.MessageNewParams{
		Model:     anthropic.Model(p.models[0]),
		MaxTokens: 1,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("ping")),
		},
	})
	return err == nil
}

func mapAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apperrors.NewTransportError(
			fmt.Sprintf("Anthropic API error (status %d): %s", apiErr.StatusCode, truncate(apiErr.Error(), 300)),
			"PROVIDER_HTTP_ERROR", apiErr.StatusCode, err)
	}
	return apperrors.NewTransportError("Anthropic request failed", "PROVIDER_UNREACHABLE", 0, err)
}
