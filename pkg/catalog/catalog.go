// Package catalog turns search outcomes into the numbered source list that
// drafts cite with [n] markers.
package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ncolesummers/deep-research-agent/pkg/domain"
)

// Ordering selects how outcomes are ordered before numbering.
type Ordering string

const (
	// OrderByDirective numbers sources by the position of their directive in the plan.
	OrderByDirective Ordering = "directive"
	// OrderByArrival numbers sources in the order their searches completed.
	OrderByArrival Ordering = "arrival"
)

const (
	DefaultSnippetLength    = 400
	EvaluationSnippetLength = 250

	fallbackURLFormat = "https://example.com/search/%d"
	titlePrefix       = "Notes for: "
)

// Options configures catalog construction.
type Options struct {
	SnippetLength int
	Ordering      Ordering
}

// DefaultOptions returns directive ordering with the standard snippet bound.
func DefaultOptions() Options {
	return Options{SnippetLength: DefaultSnippetLength, Ordering: OrderByDirective}
}

// ParseOrdering validates a configured ordering name.
func ParseOrdering(s string) (Ordering, error) {
	switch Ordering(strings.ToLower(strings.TrimSpace(s))) {
	case OrderByDirective, "":
		return OrderByDirective, nil
	case OrderByArrival:
		return OrderByArrival, nil
	default:
		return "", fmt.Errorf("unknown catalog ordering %q", s)
	}
}

// Build produces one Source per outcome with a summary. Outcomes without a
// summary are dropped. The returned order is final: position i+1 is the
// citation number of element i.
func Build(plan *domain.SearchPlan, outcomes []domain.SearchOutcome, opts Options) []domain.Source {
	if opts.SnippetLength <= 0 {
		opts.SnippetLength = DefaultSnippetLength
	}

	ordered := Order(outcomes, opts.Ordering)
	sources := make([]domain.Source, 0, len(ordered))
	for _, o := range ordered {
		if !o.HasSummary() {
			continue
		}
		n := len(sources) + 1

		url := o.URL
		if url == "" {
			url = fmt.Sprintf(fallbackURLFormat, n)
		}
		title := o.Title
		if title == "" {
			title = titlePrefix + directiveQuery(plan, o.DirectiveIndex)
		}

		sources = append(sources, domain.Source{
			URL:         url,
			Title:       title,
			PublishedAt: o.PublishedAt,
			Snippet:     Truncate(o.Summary, opts.SnippetLength),
		})
	}
	return sources
}

// Order returns a copy of outcomes in catalog order. The input is not modified.
func Order(outcomes []domain.SearchOutcome, ordering Ordering) []domain.SearchOutcome {
	ordered := make([]domain.SearchOutcome, len(outcomes))
	copy(ordered, outcomes)
	if ordering != OrderByArrival {
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].DirectiveIndex < ordered[j].DirectiveIndex
		})
	}
	return ordered
}

// Summaries returns the full summaries of outcomes that have one, in catalog
// order, so the writer sees notes in the same order as the numbered sources.
func Summaries(outcomes []domain.SearchOutcome, ordering Ordering) []string {
	ordered := Order(outcomes, ordering)
	summaries := make([]string, 0, len(ordered))
	for _, o := range ordered {
		if o.HasSummary() {
			summaries = append(summaries, o.Summary)
		}
	}
	return summaries
}

func directiveQuery(plan *domain.SearchPlan, idx int) string {
	if plan != nil && idx >= 0 && idx < len(plan.Searches) {
		return plan.Searches[idx].Query
	}
	return fmt.Sprintf("Search %d", idx+1)
}

// Truncate cuts s to at most max runes.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// Label is the display name of the i-th (1-based) source.
func Label(s domain.Source, i int) string {
	switch {
	case s.Title != "":
		return s.Title
	case s.URL != "":
		return s.URL
	default:
		return fmt.Sprintf("Source %d", i)
	}
}

// FormatNumbered renders the sources block given to the writer:
// one "[i] label — url" line per source.
func FormatNumbered(sources []domain.Source) string {
	lines := make([]string, len(sources))
	for i, s := range sources {
		lines[i] = fmt.Sprintf("[%d] %s — %s", i+1, Label(s, i+1), s.URL)
	}
	return strings.Join(lines, "\n")
}

// FormatForEvaluation renders the sources block given to the evaluator.
// Publication date, snippet and url are included only when present.
func FormatForEvaluation(sources []domain.Source) string {
	lines := make([]string, len(sources))
	for i, s := range sources {
		var b strings.Builder
		fmt.Fprintf(&b, "[%d] %s", i+1, Label(s, i+1))
		if s.PublishedAt != "" {
			fmt.Fprintf(&b, " (%s)", s.PublishedAt)
		}
		if s.Snippet != "" {
			fmt.Fprintf(&b, ": %s", Truncate(s.Snippet, EvaluationSnippetLength))
		}
		if s.URL != "" {
			fmt.Fprintf(&b, " — %s", s.URL)
		}
		lines[i] = b.String()
	}
	return strings.Join(lines, "\n")
}
