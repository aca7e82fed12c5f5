package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/mealsnap/mealsnap/internal/config"
	apperrors "github.com/mealsnap/mealsnap/internal/errors"
	"github.com/mealsnap/mealsnap/internal/httpclient"
	"github.com/mealsnap/mealsnap/internal/services/media"
)

const geminiEndpoint = "https://generativelanguage.googleapis.com"

var (
	geminiModels      = []string{"gemini-2.0-flash", "gemini-1.5-flash"}
	geminiAPIVersions = []string{"v1beta", "v1"}
)

// GeminiProvider talks to the Gemini REST API. Every model is tried against
// every API version until one combination yields text.
type GeminiProvider struct {
	settings
	apiVersions []string
	httpClient  *http.Client
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiRequest struct {
	Contents []struct {
		Parts []geminiPart `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		Temperature     float64 `json:"temperature"`
		MaxOutputTokens int     `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// NewGeminiProvider builds a Gemini provider from its config entry.
func NewGeminiProvider(name string, cfg *config.ProviderConfig) (*GeminiProvider, error) {
	if cfg == nil {
		return nil, apperrors.NewMissingConfigError(string(ProviderGemini))
	}
	s := newSettings(name, ProviderGemini, cfg, vendorDefaults{
		endpoint:  geminiEndpoint,
		models:    geminiModels,
		supported: Capabilities{Text: true, Images: true, Audio: true},
	})
	versions := cfg.APIVersions
	if len(versions) == 0 {
		versions = geminiAPIVersions
	}
	return &GeminiProvider{
		settings:    s,
		apiVersions: versions,
		httpClient:  httpclient.NewInstrumentedClient(s.timeout),
	}, nil
}

func (p *GeminiProvider) AnalyzeText(ctx context.Context, prompt string) (text string, err error) {
	if err := p.require(CapabilityText, nil); err != nil {
		return "", err
	}
	start := time.Now()
	defer func() { p.record(ctx, CapabilityText, start, err) }()
	return p.generate(ctx, []geminiPart{{Text: prompt}})
}

func (p *GeminiProvider) AnalyzeImage(ctx context.Context, prompt string, image *media.Encoded) (text string, err error) {
	if err := p.require(CapabilityImages, image); err != nil {
		return "", err
	}
	start := time.Now()
	defer func() { p.record(ctx, CapabilityImages, start, err) }()
	return p.generate(ctx, inlineParts(prompt, image))
}

func (p *GeminiProvider) AnalyzeAudio(ctx context.Context, prompt string, audio *media.Encoded) (text string, err error) {
	if err := p.require(CapabilityAudio, audio); err != nil {
		return "", err
	}
	start := time.Now()
	defer func() { p.record(ctx, CapabilityAudio, start, err) }()
	return p.generate(ctx, inlineParts(prompt, audio))
}

func inlineParts(prompt string, m *media.Encoded) []geminiPart {
	return []geminiPart{
		{Text: prompt},
		{InlineData: &geminiInlineData{MimeType: m.MIMEType, Data: m.Data}},
	}
}

func (p *GeminiProvider) generate(ctx context.Context, parts []geminiPart) (string, error) {
	var req geminiRequest
	req.Contents = append(req.Contents, struct {
		Parts []geminiPart `json:"parts"`
	}{Parts: parts})
	req.GenerationConfig.Temperature = p.temperature
	req.GenerationConfig.MaxOutputTokens = p.maxTokens

	body, err := json.Marshal(req)
	if err != nil {
		return "", apperrors.NewInternalError("failed to encode Gemini request", "REQUEST_ENCODE_FAILED", err)
	}

	var errs *multierror.Error
	var last error
	for _, model := range p.models {
		for _, version := range p.apiVersions {
			text, err := p.call(ctx, version, model, body)
			if err == nil {
				return text, nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			slog.Debug("Gemini combination failed",
				"provider", p.name,
				"model", model,
				"api_version", version,
				"error", err)
			errs = multierror.Append(errs, fmt.Errorf("%s/%s: %w", version, model, err))
			last = err
		}
	}
	return "", exhausted(p.name, errs, last)
}

func (p *GeminiProvider) call(ctx context.Context, version, model string, body []byte) (string, error) {
	endpoint := fmt.Sprintf("%s/%s/models/%s:generateContent?key=%s",
		strings.TrimRight(p.endpoint, "/"), version, model, url.QueryEscape(p.apiKey))

	httpReq, err := http.NewRequestWithContext(httpclient.WithProvider(ctx, "Gemini"), "POST", endpoint, bytes.NewReader(body))
	if err != nil {
		return "", apperrors.NewInternalError("failed to build Gemini request", "REQUEST_BUILD_FAILED", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", apperrors.NewTransportError("Gemini request failed", "PROVIDER_UNREACHABLE", 0, redactURL(err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperrors.NewTransportError("failed to read Gemini response", "PROVIDER_READ_FAILED", 0, err)
	}

	if resp.StatusCode >= 400 {
		return "", apperrors.NewTransportError(
			fmt.Sprintf("Gemini API error (status %d): %s", resp.StatusCode, truncate(string(respBody), 300)),
			"PROVIDER_HTTP_ERROR", resp.StatusCode, nil)
	}

	var genResp geminiResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return "", apperrors.NewInvalidResponseShapeError("Gemini response is not JSON", "PROVIDER_BAD_RESPONSE", err)
	}
	if len(genResp.Candidates) == 0 {
		return "", apperrors.NewInvalidResponseShapeError("Gemini response has no candidates", "PROVIDER_BAD_RESPONSE", nil)
	}

	var sb strings.Builder
	for _, part := range genResp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", apperrors.NewInvalidResponseShapeError("Gemini response has no text", "PROVIDER_BAD_RESPONSE", nil)
	}
	return sb.String(), nil
}

// HealthCheck lists the first model on the first API version that answers.
func (p *GeminiProvider) HealthCheck(ctx context.Context) bool {
	if len(p.models) == 0 {
		return false
	}
	for _, version := range p.apiVersions {
		endpoint := fmt.Sprintf("%s/%s/models/%s?key=%s",
			strings.TrimRight(p.endpoint, "/"), version, p.models[0], url.QueryEscape(p.apiKey))
		httpReq, err := http.NewRequestWithContext(httpclient.WithProvider(ctx, "Gemini"), "GET", endpoint, nil)
		if err != nil {
			return false
		}
		resp, err := p.httpClient.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return false
			}
			continue
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode < 400 {
			return true
		}
	}
	return false
}

// exhausted folds every per-combination failure into one error that keeps the
// last failure's category.
func exhausted(provider string, errs *multierror.Error, last error) error {
	if last == nil {
		return apperrors.NewConfigurationError(
			fmt.Sprintf("provider %s has no models configured", provider), "NO_MODELS_CONFIGURED", nil)
	}
	msg := fmt.Sprintf("%s: every model combination failed, last error: %v", provider, last)
	if apperrors.IsType(last, apperrors.ErrorTypeInvalidResponseShape) {
		return apperrors.NewInvalidResponseShapeError(msg, "PROVIDER_COMBINATIONS_EXHAUSTED", errs.ErrorOrNil())
	}
	status := 0
	if appErr, ok := apperrors.As(last); ok {
		status = appErr.StatusCode
	}
	return apperrors.NewTransportError(msg, "PROVIDER_COMBINATIONS_EXHAUSTED", status, errs.ErrorOrNil())
}

// redactURL drops the request URL from transport errors so query-string
// credentials never reach logs.
func redactURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
