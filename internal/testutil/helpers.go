package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/ncolesummers/deep-research-agent/pkg/domain"
	"github.com/ncolesummers/deep-research-agent/pkg/observability"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestTimeout provides a standard timeout for test contexts
const TestTimeout = 5 * time.Second

// NewTestContext creates a context with standard test timeout
func NewTestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	t.Cleanup(cancel)
	return ctx
}

// NewTestPlan creates a plan with one directive per query
func NewTestPlan(queries ...string) *domain.SearchPlan {
	plan := &domain.SearchPlan{Searches: make([]domain.SearchDirective, 0, len(queries))}
	for _, q := range queries {
		plan.Searches = append(plan.Searches, domain.SearchDirective{Reason: "cover " + q, Query: q})
	}
	return plan
}

// NewTestDraft creates a draft with the given markdown body
func NewTestDraft(markdown string) *domain.Draft {
	return &domain.Draft{
		ShortSummary:      "Test summary",
		MarkdownReport:    markdown,
		FollowUpQuestions: []string{"What next?"},
	}
}

// NewTestEvaluation creates a normalized evaluation from three scores
func NewTestEvaluation(faithfulness, relevance, structure float64, recommendations ...string) *domain.EvaluationReport {
	criteria := []domain.CriterionScore{
		{Name: domain.CriterionFaithfulness, Score: faithfulness, Justification: "test"},
		{Name: domain.CriterionRelevance, Score: relevance, Justification: "test"},
		{Name: domain.CriterionStructure, Score: structure, Justification: "test"},
	}
	if recommendations == nil {
		recommendations = []string{}
	}
	return &domain.EvaluationReport{
		Criteria:        criteria,
		Overall:         domain.WeightedOverall(criteria),
		Recommendations: recommendations,
	}
}

// SetupTestTelemetry creates test telemetry with span recorder and metric reader
func SetupTestTelemetry(spanRecorder *tracetest.SpanRecorder, metricReader metric.Reader) *observability.Telemetry {
	tracerProvider := trace.NewTracerProvider(
		trace.WithSpanProcessor(spanRecorder),
	)
	meterProvider := metric.NewMeterProvider(
		metric.WithReader(metricReader),
	)
	return observability.NewTelemetryFromProviders("test-service", tracerProvider, meterProvider)
}
