package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/mealsnap/mealsnap/internal/config"
	apperrors "github.com/mealsnap/mealsnap/internal/errors"
	"github.com/mealsnap/mealsnap/internal/httpclient"
	"github.com/mealsnap/mealsnap/internal/services/media"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

var openAIModels = []string{"gpt-4o-mini", "gpt-4o"}

// OpenAIProvider wraps the official OpenAI SDK. SDK retries are disabled so
// failures surface immediately to the analysis fallback loop.
type OpenAIProvider struct {
	settings
	client *openai.Client
}

// NewOpenAIProvider builds an OpenAI provider from its config entry.
func NewOpenAIProvider(name string, cfg *config.ProviderConfig) (*OpenAIProvider, error) {
	if cfg == nil {
		return nil, apperrors.NewMissingConfigError(string(ProviderOpenAI))
	}
	s := newSettings(name, ProviderOpenAI, cfg, vendorDefaults{
		models:    openAIModels,
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
	client := openai.NewClient(opts...)

	return &OpenAIProvider{settings: s, client: &client}, nil
}

func (p *OpenAIProvider) AnalyzeText(ctx context.Context, prompt string) (text string, err error) {
	if err := p.require(CapabilityText, nil); err != nil {
		return "", err
	}
	start := time.Now()
	defer func() { p.record(ctx, CapabilityText, start, err) }()

	return p.complete(ctx, openai.ChatCompletionUserMessageParamContentUnion{
		OfString: openai.String(prompt),
	}, true)
}

func (p *OpenAIProvider) AnalyzeImage(ctx context.Context, prompt string, image *media.Encoded) (text string, err error) {
	if err := p.require(CapabilityImages, image); err != nil {
		return "", err
	}
	start := time.Now()
	defer func() { p.record(ctx, CapabilityImages, start, err) }()

	return p.complete(ctx, openai.ChatCompletionUserMessageParamContentUnion{
		OfArrayOfContentParts: []openai.ChatCompletionContentPartUnionParam{
			openai.TextContentPart(prompt),
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: image.DataURL(),
			}),
		},
	}, true)
}

func (p *OpenAIProvider) AnalyzeAudio(ctx context.Context, prompt string, audio *media.Encoded) (string, error) {
	return "", p.require(CapabilityAudio, audio)
}

func (p *OpenAIProvider) complete(ctx context.Context, content openai.ChatCompletionUserMessageParamContentUnion, jsonMode bool) (string, error) {
	var errs *multierror.Error
	var last error
	for _, model := range p.models {
		params := openai.ChatCompletionNewParams{
			Model: shared.ChatModel(model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				{OfUser: &openai.ChatCompletionUserMessageParam{Content: content}},
			},
			Temperature:         openai.Float(p.temperature),
			MaxCompletionTokens: openai.Int(int64(p.maxTokens)),
		}
		if jsonMode {
			params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONObject: openai.Ptr(shared.NewResponseFormatJSONObjectParam()),
			}
		}

		completion, err := p.client.Chat.Completions.New(httpclient.WithProvider(ctx, "OpenAI"), params)
		if err == nil {
			if len(completion.Choices) > 0 && strings.TrimSpace(completion.Choices[0].Message.Content) != "" {
				return completion.Choices[0].Message.Content, nil
			}
			err = apperrors.NewInvalidResponseShapeError("no response from OpenAI", "PROVIDER_BAD_RESPONSE", nil)
		} else {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			err = mapSDKError("OpenAI", err)
		}

		slog.Debug("OpenAI model failed", "provider", p.name, "model", model, "error", err)
		errs = multierror.Append(errs, fmt.Errorf("%s: %w", model, err))
		last = err
	}
	return "", exhausted(p.name, errs, last)
}

// HealthCheck asks the first model for a single token.
func (p *OpenAIProvider) HealthCheck(ctx context.Context) bool {
	if len(p.models) == 0 {
		return false
	}
	_, err := p.client.Chat.Completions.New(httpclient.WithProvider(ctx, "OpenAI"), openai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.models[0]),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage("ping"),
		},
		MaxCompletionTokens: openai.Int(1),
	})
	return err == nil
}

// mapSDKError turns an SDK API error into a transport AppError keeping its
// HTTP status.
func mapSDKError(vendor string, err error) error {
	var oaiErr *openai.Error
	if errors.As(err, &oaiErr) {
		return apperrors.NewTransportError(
			fmt.Sprintf("%s API error (status %d): %s", vendor, oaiErr.StatusCode, truncate(oaiErr.Error(), 300)),
			"PROVIDER_HTTP_ERROR", oaiErr.StatusCode, err)
	}
	return apperrors.NewTransportError(fmt.Sprintf("%s request failed", vendor), "PROVIDER_UNREACHABLE", 0, err)
}
