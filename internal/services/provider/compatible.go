package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/mealsnap/mealsnap/internal/config"
	apperrors "github.com/mealsnap/mealsnap/internal/errors"
	"github.com/mealsnap/mealsnap/internal/httpclient"
	"github.com/mealsnap/mealsnap/internal/services/media"
)

var compatibleDefaults = map[ProviderType]vendorDefaults{
	ProviderGroq: {
		endpoint:  "https://api.groq.com/openai/v1",
		models:    []string{"llama-3.3-70b-versatile"},
		supported: Capabilities{Text: true, Images: true},
	},
	ProviderCerebras: {
		endpoint:  "https://api.cerebras.ai/v1",
		models:    []string{"llama-3.3-70b"},
		supported: Capabilities{Text: true},
	},
	ProviderOpenAICompatible: {
		supported: Capabilities{Text: true, Images: true},
	},
}

// CompatibleProvider speaks the OpenAI chat completions wire format to any
// vendor that exposes it (Groq, Cerebras, self-hosted gateways).
type CompatibleProvider struct {
	settings
	httpClient *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	MaxTokens      int           `json:"max_tokens"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewCompatibleProvider builds a chat-completions provider. kind selects the
// vendor defaults; the generic openai_compatible type needs an endpoint.
func NewCompatibleProvider(name string, kind ProviderType, cfg *config.ProviderConfig) (*CompatibleProvider, error) {
	if cfg == nil {
		return nil, apperrors.NewMissingConfigError(string(kind))
	}
	defaults, ok := compatibleDefaults[kind]
	if !ok {
		return nil, apperrors.NewUnknownProviderTypeError(string(kind))
	}
	s := newSettings(name, kind, cfg, defaults)
	if s.endpoint == "" {
		return nil, apperrors.NewConfigurationError(
			fmt.Sprintf("provider %s requires an endpoint", name), "MISSING_ENDPOINT", nil)
	}
	if len(s.models) == 0 {
		return nil, apperrors.NewConfigurationError(
			fmt.Sprintf("provider %s requires at least one model", name), "MISSING_MODELS", nil)
	}
	s.endpoint = strings.TrimRight(s.endpoint, "/")
	return &CompatibleProvider{
		settings:   s,
		httpClient: httpclient.NewInstrumentedClient(s.timeout),
	}, nil
}

func (p *CompatibleProvider) AnalyzeText(ctx context.Context, prompt string) (text string, err error) {
	if err := p.require(CapabilityText, nil); err != nil {
		return "", err
	}
	start := time.Now()
	defer func() { p.record(ctx, CapabilityText, start, err) }()

	return p.complete(ctx, chatMessage{Role: "user", Content: prompt}, true)
}

func (p *CompatibleProvider) AnalyzeImage(ctx context.Context, prompt string, image *media.Encoded) (text string, err error) {
	if err := p.require(CapabilityImages, image); err != nil {
		return "", err
	}
	start := time.Now()
	defer func() { p.record(ctx, CapabilityImages, start, err) }()

	// Vision models on these gateways reject response_format.
	return p.complete(ctx, chatMessage{
		Role: "user",
		Content: []chatContentPart{
			{Type: "text", Text: prompt},
			{Type: "image_url", ImageURL: &chatImageURL{URL: image.DataURL()}},
		},
	}, false)
}

// AnalyzeAudio always fails: the chat completions format has no audio input
// these vendors accept.
func (p *CompatibleProvider) AnalyzeAudio(ctx context.Context, prompt string, audio *media.Encoded) (string, error) {
	return "", p.require(CapabilityAudio, audio)
}

func (p *CompatibleProvider) complete(ctx context.Context, msg chatMessage, jsonMode bool) (string, error) {
	var errs *multierror.Error
	var last error
	for _, model := range p.models {
		req := chatRequest{
			Model:       model,
			Messages:    []chatMessage{msg},
			Temperature: p.temperature,
			MaxTokens:   p.maxTokens,
		}
		if jsonMode {
			req.ResponseFormat = &struct {
				Type string `json:"type"`
			}{Type: "json_object"}
		}

		text, err := p.call(ctx, req)
		if err == nil {
			return text, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		slog.Debug("Chat completion model failed",
			"provider", p.name,
			"model", model,
			"error", err)
		errs = multierror.Append(errs, fmt.Errorf("%s: %w", model, err))
		last = err
	}
	return "", exhausted(p.name, errs, last)
}

func (p *CompatibleProvider) call(ctx context.Context, req chatRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", apperrors.NewInternalError("failed to encode chat request", "REQUEST_ENCODE_FAILED", err)
	}

	httpReq, err := http.NewRequestWithContext(httpclient.WithProvider(ctx, p.name), "POST", p.endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", apperrors.NewInternalError("failed to build chat request", "REQUEST_BUILD_FAILED", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", apperrors.NewTransportError(fmt.Sprintf("%s request failed", p.name), "PROVIDER_UNREACHABLE", 0, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperrors.NewTransportError(fmt.Sprintf("failed to read %s response", p.name), "PROVIDER_READ_FAILED", 0, err)
	}

	if resp.StatusCode >= 400 {
		return "", apperrors.NewTransportError(
			fmt.Sprintf("%s API error (status %d): %s", p.name, resp.StatusCode, truncate(string(respBody), 300)),
			"PROVIDER_HTTP_ERROR", resp.StatusCode, nil)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", apperrors.NewInvalidResponseShapeError(fmt.Sprintf("%s response is not JSON", p.name), "PROVIDER_BAD_RESPONSE", err)
	}
	if len(chatResp.Choices) == 0 || strings.TrimSpace(chatResp.Choices[0].Message.Content) == "" {
		return "", apperrors.NewInvalidResponseShapeError(fmt.Sprintf("no response from %s", p.name), "PROVIDER_BAD_RESPONSE", nil)
	}
	return chatResp.Choices[0].Message.Content, nil
}

// HealthCheck lists the vendor's models.
func (p *CompatibleProvider) HealthCheck(ctx context.Context) bool {
	httpReq, err := http.NewRequestWithContext(httpclient.WithProvider(ctx, p.name), "GET", p.endpoint+"/models", nil)
	if err != nil {
		return false
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode < 400
}
