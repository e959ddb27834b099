package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ncolesummers/deep-research-agent/pkg/domain"
)

// ErrNoResults is returned when the web search found nothing to summarize.
var ErrNoResults = errors.New("search returned no results")

// Searcher runs a web search and has the model summarize the hits.
type Searcher struct {
	llm    domain.LLMClient
	search domain.SearchClient
	opts   Options
}

// NewSearcher creates a searcher.
func NewSearcher(llm domain.LLMClient, search domain.SearchClient, opts Options) *Searcher {
	return &Searcher{llm: llm, search: search, opts: opts}
}

// Search runs one directive. The top hit's metadata is attached to the
// summary so the catalog can cite a real page.
func (s *Searcher) Search(ctx context.Context, directive domain.SearchDirective) (*domain.SearchSummary, error) {
	results, err := s.search.Search(ctx, directive.Query, domain.SearchOptions{MaxResults: s.opts.SearchMaxResults})
	if err != nil {
		return nil, fmt.Errorf("web search: %w", err)
	}
	if len(results) == 0 {
		return nil, ErrNoResults
	}

	summary, err := chat(ctx, s.llm, searchInstructions, searchInput(directive, results),
		domain.ChatOptions{Temperature: domain.Temperature(s.opts.Temperature), MaxTokens: s.opts.SummaryMaxTokens})
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}

	top := results[0]
	return &domain.SearchSummary{
		Summary:     strings.TrimSpace(summary),
		URL:         top.URL,
		Title:       top.Title,
		PublishedAt: top.PublishedAt,
	}, nil
}
