package domain

import (
	"fmt"
	"math"
	"strings"
)

// Phase represents the current stage of a research run
type Phase string

const (
	PhaseStart        Phase = "start"
	PhasePlanning     Phase = "planning"
	PhaseSearching    Phase = "searching"
	PhaseCataloging   Phase = "cataloging"
	PhaseDrafting     Phase = "drafting"
	PhaseEvaluating   Phase = "evaluating"
	PhaseRevising     Phase = "revising"
	PhaseReEvaluating Phase = "re_evaluating"
	PhaseComplete     Phase = "complete"
)

// Evaluation criteria, in the fixed order the evaluator must score them.
const (
	CriterionFaithfulness = "Faithfulness"
	CriterionRelevance    = "Relevance & Completeness"
	CriterionStructure    = "Structure & Citations"
)

// CriteriaOrder lists the evaluation criteria in scoring order.
var CriteriaOrder = [3]string{CriterionFaithfulness, CriterionRelevance, CriterionStructure}

// CriteriaWeights are the weights applied to CriteriaOrder when computing the overall score.
var CriteriaWeights = [3]float64{0.5, 0.3, 0.2}

const (
	MinScore           = 1.0
	MaxScore           = 5.0
	MaxRecommendations = 5
)

// SearchDirective is one planned search: the query to run and why.
type SearchDirective struct {
	Reason string `json:"reason"`
	Query  string `json:"query"`
}

// SearchPlan is the ordered list of directives produced by the planner.
// Position in Searches is the directive index.
type SearchPlan struct {
	Searches []SearchDirective `json:"searches"`
}

// SearchSummary is the result of running a single directive.
// URL, Title and PublishedAt are filled when the search backend returned a top hit.
type SearchSummary struct {
	Summary     string `json:"summary"`
	URL         string `json:"url,omitempty"`
	Title       string `json:"title,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
}

// SearchOutcome ties a search result back to the directive that produced it.
// An empty Summary marks a failed or empty search.
type SearchOutcome struct {
	DirectiveIndex int    `json:"directive_index"`
	Summary        string `json:"summary,omitempty"`
	URL            string `json:"url,omitempty"`
	Title          string `json:"title,omitempty"`
	PublishedAt    string `json:"published_at,omitempty"`
}

// HasSummary reports whether the outcome carries usable content.
func (o SearchOutcome) HasSummary() bool {
	return o.Summary != ""
}

// Source is a citable entry in the source catalog. Its 1-based position in
// the catalog is the number used in [n] citations.
type Source struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	PublishedAt string `json:"published_at,omitempty"` // RFC 3339, empty when unknown
	Snippet     string `json:"snippet"`
}

// Draft is a written report, either the first draft or a revision.
type Draft struct {
	ShortSummary      string   `json:"short_summary"`
	MarkdownReport    string   `json:"markdown_report"`
	FollowUpQuestions []string `json:"follow_up_questions"`
}

// CriterionScore is the evaluator's judgment on a single criterion.
type CriterionScore struct {
	Name          string  `json:"name"`
	Score         float64 `json:"score"`
	Justification string  `json:"justification"`
}

// EvaluationReport is the evaluator's structured verdict on a draft.
type EvaluationReport struct {
	Criteria        []CriterionScore `json:"criteria"`
	Overall         float64          `json:"overall"`
	Recommendations []string         `json:"recommendations"`
}

// WeightedOverall combines the three criterion scores with CriteriaWeights,
// rounded to one decimal place.
func WeightedOverall(criteria []CriterionScore) float64 {
	var total float64
	for i, c := range criteria {
		if i >= len(CriteriaWeights) {
			break
		}
		total += c.Score * CriteriaWeights[i]
	}
	return math.Round(total*10) / 10
}

// Validate checks the structural invariants of an evaluation report.
func (e *EvaluationReport) Validate() error {
	if len(e.Criteria) != len(CriteriaOrder) {
		return fmt.Errorf("%w: expected %d criteria, got %d", ErrInvalidEvaluation, len(CriteriaOrder), len(e.Criteria))
	}
	for _, c := range e.Criteria {
		if c.Score < MinScore || c.Score > MaxScore {
			return fmt.Errorf("%w: criterion %q score %.1f out of range", ErrInvalidEvaluation, c.Name, c.Score)
		}
	}
	if e.Overall < MinScore || e.Overall > MaxScore {
		return fmt.Errorf("%w: overall %.1f out of range", ErrInvalidEvaluation, e.Overall)
	}
	if len(e.Recommendations) > MaxRecommendations {
		return fmt.Errorf("%w: %d recommendations exceeds %d", ErrInvalidEvaluation, len(e.Recommendations), MaxRecommendations)
	}
	return nil
}

// Metrics holds the deterministic quality measurements of a draft.
// MedianSourceAgeDays is +Inf when no source had a usable timestamp.
type Metrics struct {
	CitationCoverage    float64 `json:"citation_coverage"`
	SourceDiversity     float64 `json:"source_diversity"`
	MedianSourceAgeDays float64 `json:"median_source_age_days"`
}

// AgeKnown reports whether the median source age was computable.
func (m Metrics) AgeKnown() bool {
	return !math.IsInf(m.MedianSourceAgeDays, 1)
}

// FormatAge renders the median age as "Nd", or "∞d" when unknown.
func (m Metrics) FormatAge() string {
	if !m.AgeKnown() {
		return "∞d"
	}
	return fmt.Sprintf("%dd", int(m.MedianSourceAgeDays))
}

// RunTrace correlates one run with external observability.
type RunTrace struct {
	ID      string `json:"id"`
	Enabled bool   `json:"enabled"`
	URL     string `json:"url,omitempty"`
}

// NormalizeQuery trims a research query and rejects empty input.
func NormalizeQuery(query string) (string, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return "", ErrEmptyQuery
	}
	return q, nil
}
