// Package analysis turns one analysis request into one validated nutrition
// record, trying every capable provider in turn before giving up.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/go-multierror"
	apperrors "github.com/mealsnap/mealsnap/internal/errors"
	"github.com/mealsnap/mealsnap/internal/metrics"
	"github.com/mealsnap/mealsnap/internal/services/ai"
	"github.com/mealsnap/mealsnap/internal/services/media"
	"github.com/mealsnap/mealsnap/internal/services/nutrition"
	"github.com/mealsnap/mealsnap/internal/services/provider"
	"github.com/mealsnap/mealsnap/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Kind is the modality of an analysis request.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindAudio Kind = "audio"
)

// Capability maps the kind to the provider capability it requires.
func (k Kind) Capability() (provider.Capability, bool) {
	switch k {
	case KindText:
		return provider.CapabilityText, true
	case KindImage:
		return provider.CapabilityImages, true
	case KindAudio:
		return provider.CapabilityAudio, true
	default:
		return "", false
	}
}

// ParseKind validates a kind name coming from a request.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := k.Capability(); !ok {
		return "", apperrors.NewValidationError(fmt.Sprintf("unknown analysis kind %q", s), "INVALID_KIND",
			"Use one of text, image or audio.")
	}
	return k, nil
}

// Request is one analysis. Text is the meal description for text requests
// and an optional note for image requests.
type Request struct {
	Kind              Kind
	Text              string
	Media             *media.Encoded
	PreferredProvider string
}

// Result is a validated record plus which providers were involved.
type Result struct {
	Record   nutrition.Record `json:"record"`
	Provider string           `json:"provider"`
	Attempts []string         `json:"attempts"`
	FellBack bool             `json:"fell_back"`
}

// Service is the analysis orchestrator.
type Service struct {
	registry *provider.Registry
	tracer   trace.Tracer
}

func NewService(registry *provider.Registry) *Service {
	return &Service{
		registry: registry,
		tracer:   telemetry.Tracer("analysis"),
	}
}

// Registry exposes the provider registry the service routes over.
func (s *Service) Registry() *provider.Registry {
	return s.registry
}

// Analyze selects a capable provider, invokes it, parses its reply and falls
// back through the remaining capable providers in registry order until one
// yields a valid record. Attempts are strictly sequential. Cancellation of ctx
// ends the whole operation with a Cancelled error and is never retried.
func (s *Service) Analyze(ctx context.Context, req Request) (result *Result, err error) {
	ctx, span := s.tracer.Start(ctx, "analysis.Analyze", trace.WithAttributes(
		attribute.String("analysis.kind", string(req.Kind)),
		attribute.String("analysis.preferred_provider", req.PreferredProvider),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = string(apperrors.TypeOf(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(
				attribute.String("analysis.provider", result.Provider),
				attribute.Int("analysis.attempts", len(result.Attempts)),
			)
		}
		attrs := metric.WithAttributes(
			attribute.String("kind", string(req.Kind)),
			attribute.String("outcome", outcome),
		)
		metrics.AnalysisRequestsTotal.Add(ctx, 1, attrs)
		metrics.AnalysisDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	}()

	capability, ok := req.Kind.Capability()
	if !ok {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown analysis kind %q", req.Kind), "INVALID_KIND", "")
	}
	if err := checkMedia(req); err != nil {
		return nil, err
	}

	candidates := s.candidates(req.PreferredProvider, capability)
	if len(candidates) == 0 {
		return nil, apperrors.NewNoCapableProviderError(string(req.Kind))
	}

	prompt := buildPrompt(req)

	var (
		errs     *multierror.Error
		attempts []string
		reason   string
	)
	for i, p := range candidates {
		if ctx.Err() != nil {
			return nil, apperrors.NewCancelledError(ctx.Err())
		}

		if i > 0 {
			slog.Info("Falling back to next capable provider",
				"kind", req.Kind,
				"from_provider", candidates[i-1].Name(),
				"to_provider", p.Name(),
				"reason", reason)
			metrics.ProviderFallbackTotal.Add(ctx, 1, metric.WithAttributes(
				attribute.String("from_provider", candidates[i-1].Name()),
				attribute.String("to_provider", p.Name()),
				attribute.String("reason", reason),
			))
		}

		attempts = append(attempts, p.Name())
		raw, callErr := invoke(ctx, p, req.Kind, prompt, req.Media)

		// The reply of a call that raced with cancellation is discarded.
		if ctx.Err() != nil {
			return nil, apperrors.NewCancelledError(ctx.Err())
		}

		if callErr != nil {
			providerErr := provider.ClassifyError(callErr, p.Name())
			reason = providerErr.Type
			slog.Warn("Provider call failed",
				"provider", p.Name(),
				"kind", req.Kind,
				"error_type", providerErr.Type,
				"error", callErr)
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", p.Name(), callErr))
			continue
		}

		record := nutrition.Parse(raw)
		if record == nil {
			reason = "parse_failure"
			metrics.ParseFailuresTotal.Add(ctx, 1, metric.WithAttributes(
				attribute.String("provider", p.Name()),
				attribute.String("kind", string(req.Kind)),
			))
			slog.Warn("Provider reply has no valid nutrition record",
				"provider", p.Name(),
				"kind", req.Kind,
				"reply_length", len(raw))
			errs = multierror.Append(errs, fmt.Errorf("%s: reply has no valid nutrition record", p.Name()))
			continue
		}

		if i > 0 {
			slog.Info("Fallback provider succeeded",
				"provider", p.Name(),
				"kind", req.Kind,
				"attempts", len(attempts))
		}
		return &Result{
			Record:   *record,
			Provider: p.Name(),
			Attempts: attempts,
			FellBack: i > 0,
		}, nil
	}

	slog.Error("All capable providers failed",
		"kind", req.Kind,
		"attempts", attempts,
		"error", errs.ErrorOrNil())
	return nil, apperrors.NewAllProvidersFailedError(string(req.Kind), len(attempts), errs.ErrorOrNil())
}

// candidates orders the capable providers: the initial choice first, then the
// rest in registry order.
func (s *Service) candidates(preferred string, capability provider.Capability) []provider.Provider {
	first := s.initial(preferred, capability)
	if first == nil {
		return nil
	}

	out := []provider.Provider{first}
	for _, p := range s.registry.Providers() {
		if p.Name() != first.Name() && p.Capabilities().Has(capability) {
			out = append(out, p)
		}
	}
	return out
}

// initial picks the preferred provider if capable, then the default if
// capable, then the first capable provider in registry order.
func (s *Service) initial(preferred string, capability provider.Capability) provider.Provider {
	if preferred != "" {
		p, ok := s.registry.Get(preferred)
		switch {
		case !ok:
			slog.Warn("Preferred provider not registered", "provider", preferred)
		case p.Capabilities().Has(capability):
			return p
		default:
			slog.Info("Preferred provider lacks capability, bypassing",
				"provider", preferred,
				"capability", capability)
		}
	}

	if def := s.registry.Default(); def != nil {
		if def.Capabilities().Has(capability) {
			return def
		}
		slog.Info("Default provider lacks capability, bypassing",
			"provider", def.Name(),
			"capability", capability)
	}

	return s.registry.ResolveByCapability(capability)
}

func checkMedia(req Request) error {
	var want media.Kind
	switch req.Kind {
	case KindImage:
		want = media.KindImage
	case KindAudio:
		want = media.KindAudio
	default:
		return nil
	}
	if req.Media == nil || req.Media.Data == "" {
		return apperrors.NewValidationError(fmt.Sprintf("%s analysis needs a media payload", req.Kind), "MISSING_MEDIA", "")
	}
	if req.Media.Kind != want {
		return apperrors.NewValidationError(
			fmt.Sprintf("%s analysis received %s media", req.Kind, req.Media.Kind), "INVALID_MEDIA_KIND", "")
	}
	return nil
}

func buildPrompt(req Request) string {
	switch req.Kind {
	case KindImage:
		return ai.BuildImagePrompt(req.Text)
	case KindAudio:
		return ai.BuildAudioPrompt()
	default:
		return ai.BuildTextPrompt(req.Text)
	}
}

func invoke(ctx context.Context, p provider.Provider, kind Kind, prompt string, m *media.Encoded) (string, error) {
	switch kind {
	case KindImage:
		return p.AnalyzeImage(ctx, prompt, m)
	case KindAudio:
		return p.AnalyzeAudio(ctx, prompt, m)
	default:
		return p.AnalyzeText(ctx, prompt)
	}
}
