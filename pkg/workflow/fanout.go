package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ncolesummers/deep-research-agent/pkg/domain"
	"github.com/ncolesummers/deep-research-agent/pkg/observability"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
)

// ProgressFunc is told how many searches have settled out of total.
type ProgressFunc func(completed, total int)

// SearchFanOut runs every directive of a plan concurrently.
type SearchFanOut struct {
	searcher  domain.Searcher
	telemetry *observability.Telemetry
	metrics   *observability.Metrics
	logger    observability.Logger
}

// NewSearchFanOut creates a fan-out coordinator. telemetry and metrics may be nil.
func NewSearchFanOut(searcher domain.Searcher, telemetry *observability.Telemetry, metrics *observability.Metrics) *SearchFanOut {
	if telemetry == nil {
		telemetry = observability.NewNoopTelemetry()
	}
	return &SearchFanOut{
		searcher:  searcher,
		telemetry: telemetry,
		metrics:   metrics,
		logger:    observability.NewStructuredLogger("search_fanout"),
	}
}

// Run launches one task per directive and waits for all of them. Outcomes
// come back in arrival order and only successful searches are included.
// A failed or panicking task never affects its siblings.
func (f *SearchFanOut) Run(ctx context.Context, plan *domain.SearchPlan, progress ProgressFunc) []domain.SearchOutcome {
	if plan == nil || len(plan.Searches) == 0 {
		return []domain.SearchOutcome{}
	}

	total := len(plan.Searches)
	var (
		mu        sync.Mutex
		outcomes  = make([]domain.SearchOutcome, 0, total)
		completed int
	)

	p := pool.New().WithMaxGoroutines(total)
	for i, directive := range plan.Searches {
		p.Go(func() {
			outcome, ok := f.runOne(ctx, i, directive)

			mu.Lock()
			defer mu.Unlock()
			if ok {
				outcomes = append(outcomes, outcome)
			}
			completed++
			if progress != nil {
				progress(completed, total)
			}
		})
	}
	p.Wait()

	return outcomes
}

func (f *SearchFanOut) runOne(ctx context.Context, index int, directive domain.SearchDirective) (domain.SearchOutcome, bool) {
	outcome := domain.SearchOutcome{DirectiveIndex: index}

	err := f.telemetry.InstrumentSearch(ctx, index, directive.Query, func(ctx context.Context) (bool, error) {
		var (
			summary *domain.SearchSummary
			err     error
		)
		var pc panics.Catcher
		pc.Try(func() {
			summary, err = f.searcher.Search(ctx, directive)
		})
		if r := pc.Recovered(); r != nil {
			return false, fmt.Errorf("search panicked: %w", r.AsError())
		}
		if err != nil {
			return false, err
		}
		if summary == nil || strings.TrimSpace(summary.Summary) == "" {
			return false, nil
		}

		outcome.Summary = summary.Summary
		outcome.URL = summary.URL
		outcome.Title = summary.Title
		outcome.PublishedAt = summary.PublishedAt
		return true, nil
	})

	switch {
	case err != nil:
		f.logger.Warn(ctx, "Search failed", map[string]interface{}{
			"index": index,
			"query": directive.Query,
			"error": err.Error(),
		})
		f.record(ctx, observability.SearchStatusFailed)
		return outcome, false
	case !outcome.HasSummary():
		f.logger.Warn(ctx, "Search returned no summary", map[string]interface{}{
			"index": index,
			"query": directive.Query,
		})
		f.record(ctx, observability.SearchStatusEmpty)
		return outcome, false
	default:
		f.record(ctx, observability.SearchStatusSuccess)
		return outcome, true
	}
}

func (f *SearchFanOut) record(ctx context.Context, status string) {
	if f.metrics != nil {
		f.metrics.RecordSearch(ctx, status)
	}
}
