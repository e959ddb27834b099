package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ncolesummers/deep-research-agent/pkg/domain"
)

// ErrEmptyPlan is returned when the planner produced no usable directive.
var ErrEmptyPlan = errors.New("planner returned no searches")

// Planner proposes the searches for a query.
type Planner struct {
	llm  domain.LLMClient
	opts Options
}

// NewPlanner creates a planner.
func NewPlanner(llm domain.LLMClient, opts Options) *Planner {
	return &Planner{llm: llm, opts: opts}
}

// Plan asks the model for PlanSize directives. Directives without a query
// are discarded and extras are cut.
func (p *Planner) Plan(ctx context.Context, query string) (*domain.SearchPlan, error) {
	var raw domain.SearchPlan
	err := chatJSON(ctx, p.llm, plannerInstructions(p.opts.PlanSize), plannerInput(query),
		domain.ChatOptions{Temperature: domain.Temperature(p.opts.Temperature), MaxTokens: p.opts.MaxTokens}, &raw)
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}

	plan := &domain.SearchPlan{Searches: make([]domain.SearchDirective, 0, p.opts.PlanSize)}
	for _, d := range raw.Searches {
		d.Query = strings.TrimSpace(d.Query)
		d.Reason = strings.TrimSpace(d.Reason)
		if d.Query == "" {
			continue
		}
		plan.Searches = append(plan.Searches, d)
		if len(plan.Searches) == p.opts.PlanSize {
			break
		}
	}
	if len(plan.Searches) == 0 {
		return nil, ErrEmptyPlan
	}
	return plan, nil
}
