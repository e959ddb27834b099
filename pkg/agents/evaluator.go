package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/ncolesummers/deep-research-agent/pkg/domain"
)

// Evaluator scores drafts against the allowed sources.
type Evaluator struct {
	llm  domain.LLMClient
	opts Options
}

// NewEvaluator creates an evaluator.
func NewEvaluator(llm domain.LLMClient, opts Options) *Evaluator {
	return &Evaluator{llm: llm, opts: opts}
}

// Evaluate asks the model for a verdict and normalizes it: criteria are
// renamed to the canonical order, overall is recomputed from the weights
// and recommendations are capped.
func (e *Evaluator) Evaluate(ctx context.Context, req domain.EvaluationRequest) (*domain.EvaluationReport, error) {
	var report domain.EvaluationReport
	err := chatJSON(ctx, e.llm, evaluatorInstructions, evaluationInput(req),
		domain.ChatOptions{Temperature: domain.Temperature(0), MaxTokens: e.opts.EvaluatorMaxTokens}, &report)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}

	if err := Normalize(&report); err != nil {
		return nil, err
	}
	return &report, nil
}

// Normalize enforces the evaluation report invariants in place.
func Normalize(report *domain.EvaluationReport) error {
	if len(report.Criteria) != len(domain.CriteriaOrder) {
		return fmt.Errorf("%w: expected %d criteria, got %d",
			domain.ErrInvalidEvaluation, len(domain.CriteriaOrder), len(report.Criteria))
	}
	for i := range report.Criteria {
		report.Criteria[i].Name = domain.CriteriaOrder[i]
	}
	report.Overall = domain.WeightedOverall(report.Criteria)

	recs := make([]string, 0, len(report.Recommendations))
	for _, r := range report.Recommendations {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		recs = append(recs, r)
		if len(recs) == domain.MaxRecommendations {
			break
		}
	}
	report.Recommendations = recs

	return report.Validate()
}
