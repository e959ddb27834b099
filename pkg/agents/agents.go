// Package agents implements the research capabilities on top of a chat
// model and a web search backend.
package agents

import (
	"context"
	"fmt"

	"github.com/ncolesummers/deep-research-agent/pkg/domain"
)

// Options configures the agent suite.
type Options struct {
	PlanSize           int
	SearchMaxResults   int
	Temperature        float64
	MaxTokens          int
	SummaryMaxTokens   int
	EvaluatorMaxTokens int
}

// DefaultOptions returns the standard agent settings.
func DefaultOptions() Options {
	return Options{
		PlanSize:           5,
		SearchMaxResults:   5,
		Temperature:        0.3,
		MaxTokens:          4096,
		SummaryMaxTokens:   600,
		EvaluatorMaxTokens: 1024,
	}
}

// Suite bundles the four agents into one domain.ResearchCapabilities.
type Suite struct {
	*Planner
	*Searcher
	*Writer
	*Evaluator
}

var _ domain.ResearchCapabilities = (*Suite)(nil)

// NewSuite builds all agents over the same model client.
func NewSuite(llm domain.LLMClient, search domain.SearchClient, opts Options) (*Suite, error) {
	if llm == nil {
		return nil, fmt.Errorf("llm client is required")
	}
	if search == nil {
		return nil, fmt.Errorf("search client is required")
	}
	defaults := DefaultOptions()
	if opts.PlanSize <= 0 {
		opts.PlanSize = defaults.PlanSize
	}
	if opts.SearchMaxResults <= 0 {
		opts.SearchMaxResults = defaults.SearchMaxResults
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaults.MaxTokens
	}
	if opts.SummaryMaxTokens <= 0 {
		opts.SummaryMaxTokens = defaults.SummaryMaxTokens
	}
	if opts.EvaluatorMaxTokens <= 0 {
		opts.EvaluatorMaxTokens = defaults.EvaluatorMaxTokens
	}

	return &Suite{
		Planner:   NewPlanner(llm, opts),
		Searcher:  NewSearcher(llm, search, opts),
		Writer:    NewWriter(llm, opts),
		Evaluator: NewEvaluator(llm, opts),
	}, nil
}

// chat sends a system/user exchange and returns the reply text.
func chat(ctx context.Context, llm domain.LLMClient, system, user string, opts domain.ChatOptions) (string, error) {
	resp, err := llm.Chat(ctx, []domain.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}, opts)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// chatJSON is chat in JSON mode with the reply decoded into v.
func chatJSON(ctx context.Context, llm domain.LLMClient, system, user string, opts domain.ChatOptions, v any) error {
	opts.JSONMode = true
	content, err := chat(ctx, llm, system, user, opts)
	if err != nil {
		return err
	}
	return ParseJSONResponse(content, v)
}
