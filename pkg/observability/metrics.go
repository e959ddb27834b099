package observability

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Search outcome statuses
const (
	SearchStatusSuccess = "success"
	SearchStatusEmpty   = "empty"
	SearchStatusFailed  = "failed"
)

// Metrics holds all application metrics
type Metrics struct {
	meter metric.Meter

	// Counters
	runsTotal          metric.Int64Counter
	searchesTotal      metric.Int64Counter
	revisionsTotal     metric.Int64Counter
	llmRequestsTotal   metric.Int64Counter
	llmTokensUsedTotal metric.Int64Counter

	// Histograms
	runDuration        metric.Float64Histogram
	stageDuration      metric.Float64Histogram
	llmRequestDuration metric.Float64Histogram
	citationCoverage   metric.Float64Histogram
	sourceDiversity    metric.Float64Histogram
	evaluationOverall  metric.Float64Histogram

	activeRuns metric.Int64ObservableGauge

	activeRunCount atomic.Int64
}

// NewMetrics creates and initializes all metrics
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{
		meter: meter,
	}

	var err error

	m.runsTotal, err = meter.Int64Counter(
		"research_runs_total",
		metric.WithDescription("Total number of research runs by final status"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.searchesTotal, err = meter.Int64Counter(
		"research_searches_total",
		metric.WithDescription("Total number of search tasks by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.revisionsTotal, err = meter.Int64Counter(
		"research_revisions_total",
		metric.WithDescription("Total number of revision passes triggered"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.llmRequestsTotal, err = meter.Int64Counter(
		"llm_requests_total",
		metric.WithDescription("Total number of LLM requests"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.llmTokensUsedTotal, err = meter.Int64Counter(
		"llm_tokens_used_total",
		metric.WithDescription("Total number of LLM tokens used"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.runDuration, err = meter.Float64Histogram(
		"research_run_duration_seconds",
		metric.WithDescription("Duration of research runs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.stageDuration, err = meter.Float64Histogram(
		"research_stage_duration_seconds",
		metric.WithDescription("Duration of individual pipeline stages in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.llmRequestDuration, err = meter.Float64Histogram(
		"llm_request_duration_seconds",
		metric.WithDescription("Duration of LLM requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.citationCoverage, err = meter.Float64Histogram(
		"research_citation_coverage",
		metric.WithDescription("Fraction of report sentences carrying a citation"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.sourceDiversity, err = meter.Float64Histogram(
		"research_source_diversity",
		metric.WithDescription("Simpson diversity of source domains"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.evaluationOverall, err = meter.Float64Histogram(
		"research_evaluation_overall",
		metric.WithDescription("Weighted overall evaluator score"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.activeRuns, err = meter.Int64ObservableGauge(
		"research_active_runs",
		metric.WithDescription("Number of research runs in progress"),
		metric.WithUnit("1"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(m.activeRunCount.Load())
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordRunStarted marks a run as in progress
func (m *Metrics) RecordRunStarted(ctx context.Context) {
	m.activeRunCount.Add(1)
}

// RecordRunComplete records completion of a run
func (m *Metrics) RecordRunComplete(ctx context.Context, duration time.Duration, status string) {
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.runsTotal.Add(ctx, 1, attrs)
	m.runDuration.Record(ctx, duration.Seconds(), attrs)
	m.activeRunCount.Add(-1)
}

// RecordStage records the duration of a pipeline stage
func (m *Metrics) RecordStage(ctx context.Context, stage string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.stageDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("stage", stage),
			attribute.String("status", status),
		),
	)
}

// RecordSearch records the outcome of one search task
func (m *Metrics) RecordSearch(ctx context.Context, status string) {
	m.searchesTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("status", status),
		),
	)
}

// RecordRevision records that a revision pass was triggered
func (m *Metrics) RecordRevision(ctx context.Context, reasons []string) {
	m.revisionsTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.StringSlice("reasons", reasons),
		),
	)
}

// RecordQuality records the quality signals of an evaluated draft. pass is
// "first" or "final".
func (m *Metrics) RecordQuality(ctx context.Context, pass string, overall, coverage, diversity float64) {
	attrs := metric.WithAttributes(attribute.String("pass", pass))
	m.evaluationOverall.Record(ctx, overall, attrs)
	m.citationCoverage.Record(ctx, coverage, attrs)
	m.sourceDiversity.Record(ctx, diversity, attrs)
}

// RecordLLMRequest records an LLM request
func (m *Metrics) RecordLLMRequest(ctx context.Context, provider, model string, promptTokens, completionTokens int64, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	m.llmRequestsTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("model", model),
			attribute.String("status", status),
		),
	)

	if err == nil {
		m.llmTokensUsedTotal.Add(ctx, promptTokens,
			metric.WithAttributes(
				attribute.String("model", model),
				attribute.String("type", "prompt"),
			),
		)
		m.llmTokensUsedTotal.Add(ctx, completionTokens,
			metric.WithAttributes(
				attribute.String("model", model),
				attribute.String("type", "completion"),
			),
		)
	}

	m.llmRequestDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("model", model),
		),
	)
}

// GetActiveRunCount returns the number of runs in progress
func (m *Metrics) GetActiveRunCount() int64 {
	return m.activeRunCount.Load()
}
