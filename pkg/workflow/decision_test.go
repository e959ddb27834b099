package workflow_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ncolesummers/deep-research-agent/internal/testutil"
	"github.com/ncolesummers/deep-research-agent/pkg/domain"
	"github.com/ncolesummers/deep-research-agent/pkg/workflow"
)

func evalWithOverall(overall float64, recs ...string) *domain.EvaluationReport {
	eval := testutil.NewTestEvaluation(4, 4, 4, recs...)
	eval.Overall = overall
	return eval
}

func TestThresholds_Decide(t *testing.T) {
	passing := domain.Metrics{CitationCoverage: 0.60, SourceDiversity: 0.50, MedianSourceAgeDays: 180}

	tests := []struct {
		name        string
		overall     float64
		metrics     domain.Metrics
		wantRevise  bool
		wantReasons []string
	}{
		{
			name:       "all thresholds exactly met",
			overall:    4.0,
			metrics:    passing,
			wantRevise: false,
		},
		{
			name:        "overall just below",
			overall:     3.9,
			metrics:     passing,
			wantRevise:  true,
			wantReasons: []string{"overall 3.9 < 4.0"},
		},
		{
			name:        "coverage below",
			overall:     4.5,
			metrics:     domain.Metrics{CitationCoverage: 0.59, SourceDiversity: 0.8, MedianSourceAgeDays: 10},
			wantRevise:  true,
			wantReasons: []string{"coverage 0.59 < 0.60"},
		},
		{
			name:        "diversity below",
			overall:     4.5,
			metrics:     domain.Metrics{CitationCoverage: 0.9, SourceDiversity: 0.0, MedianSourceAgeDays: 10},
			wantRevise:  true,
			wantReasons: []string{"diversity 0.00 < 0.50"},
		},
		{
			name:        "sources too old",
			overall:     4.5,
			metrics:     domain.Metrics{CitationCoverage: 0.9, SourceDiversity: 0.8, MedianSourceAgeDays: 181},
			wantRevise:  true,
			wantReasons: []string{"median age 181d > 180d"},
		},
		{
			name:       "unknown age is exempt",
			overall:    4.5,
			metrics:    domain.Metrics{CitationCoverage: 0.9, SourceDiversity: 0.8, MedianSourceAgeDays: math.Inf(1)},
			wantRevise: false,
		},
		{
			name:        "every condition fails",
			overall:     2.0,
			metrics:     domain.Metrics{CitationCoverage: 0.1, SourceDiversity: 0.2, MedianSourceAgeDays: 400},
			wantRevise:  true,
			wantReasons: []string{"overall 2.0 < 4.0", "coverage 0.10 < 0.60", "diversity 0.20 < 0.50", "median age 400d > 180d"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := workflow.DefaultThresholds().Decide(evalWithOverall(tt.overall), tt.metrics)
			assert.Equal(t, tt.wantRevise, d.Revise)
			assert.Equal(t, tt.wantReasons, d.Reasons)
		})
	}
}

func TestBuildFeedback(t *testing.T) {
	assert.Equal(t, []string{workflow.GenericFeedback}, workflow.BuildFeedback(evalWithOverall(3)))
	assert.Equal(t, []string{workflow.GenericFeedback}, workflow.BuildFeedback(evalWithOverall(3, "  ")))
	assert.Equal(t, []string{workflow.GenericFeedback}, workflow.BuildFeedback(nil))
	assert.Equal(t,
		[]string{"Cite [2] for the revenue claim", "Remove the 2030 forecast"},
		workflow.BuildFeedback(evalWithOverall(3, "Cite [2] for the revenue claim", "Remove the 2030 forecast")),
	)
}

func TestAnnotate(t *testing.T) {
	eval := evalWithOverall(4.3)

	got := workflow.Annotate("Summary.", eval, domain.Metrics{CitationCoverage: 0.8, SourceDiversity: 0.72, MedianSourceAgeDays: 42})
	assert.Equal(t, "Summary.\n\n_Eval:_ overall 4.3/5 • cov 0.80 • div 0.72 • age_med 42d", got)

	got = workflow.Annotate("Summary.", eval, domain.Metrics{MedianSourceAgeDays: math.Inf(1)})
	assert.Equal(t, "Summary.\n\n_Eval:_ overall 4.3/5 • cov 0.00 • div 0.00 • age_med ∞d", got)
}
