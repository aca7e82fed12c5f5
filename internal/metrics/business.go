package metrics

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	meter = otel.Meter("mealsnap/business")

	// Analysis metrics
	AnalysisRequestsTotal metric.Int64Counter
	AnalysisDuration      metric.Float64Histogram
	ParseFailuresTotal    metric.Int64Counter

	// Provider metrics
	ProviderCallsTotal    metric.Int64Counter
	ProviderCallDuration  metric.Float64Histogram
	ProviderFallbackTotal metric.Int64Counter

	// Worker metrics
	JobsTotal   metric.Int64Counter
	JobDuration metric.Float64Histogram
)

// Instruments are created from the global meter, which forwards to whatever
// provider is installed later, so package users never see nil instruments.
func init() {
	if err := Init(); err != nil {
		panic(err)
	}
}

func Init() error {
	var err error

	AnalysisRequestsTotal, err = meter.Int64Counter(
		"analysis.requests.total",
		metric.WithDescription("Total number of meal analysis requests by kind and outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	AnalysisDuration, err = meter.Float64Histogram(
		"analysis.duration",
		metric.WithDescription("Duration of a meal analysis including fallbacks"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 2, 5, 10, 30, 60, 120),
	)
	if err != nil {
		return err
	}

	ParseFailuresTotal, err = meter.Int64Counter(
		"analysis.parse.failures.total",
		metric.WithDescription("Provider replies that produced no valid nutrition record"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	ProviderCallsTotal, err = meter.Int64Counter(
		"provider.calls.total",
		metric.WithDescription("Total number of AI provider calls"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	ProviderCallDuration, err = meter.Float64Histogram(
		"provider.call.duration",
		metric.WithDescription("Duration of AI provider calls"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2, 5, 10, 30, 60),
	)
	if err != nil {
		return err
	}

	ProviderFallbackTotal, err = meter.Int64Counter(
		"provider.fallback.total",
		metric.WithDescription("Total number of provider fallback events"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	JobsTotal, err = meter.Int64Counter(
		"worker.jobs.total",
		metric.WithDescription("Total number of worker jobs processed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	JobDuration, err = meter.Float64Histogram(
		"worker.job.duration",
		metric.WithDescription("Duration of worker jobs"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 30, 60, 120),
	)
	if err != nil {
		return err
	}

	return nil
}
