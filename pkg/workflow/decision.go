package workflow

import (
	"fmt"
	"strings"

	"github.com/ncolesummers/deep-research-agent/pkg/domain"
)

// Quality gate thresholds. A value exactly at its threshold passes.
const (
	MinOverall       = 4.0
	MinCoverage      = 0.60
	MinDiversity     = 0.50
	MaxMedianAgeDays = 180
)

// GenericFeedback is sent to the writer when the evaluator had no recommendations.
const GenericFeedback = "Tighten unsupported claims and add/repair [n] citations for non-obvious facts."

// Thresholds is the quality gate applied to the first draft.
type Thresholds struct {
	MinOverall       float64
	MinCoverage      float64
	MinDiversity     float64
	MaxMedianAgeDays float64
}

// DefaultThresholds returns the standard quality gate.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinOverall:       MinOverall,
		MinCoverage:      MinCoverage,
		MinDiversity:     MinDiversity,
		MaxMedianAgeDays: MaxMedianAgeDays,
	}
}

// Decision is the outcome of the quality gate.
type Decision struct {
	Revise  bool
	Reasons []string
}

// Decide reports whether the draft needs a revision pass and lists every
// failing condition. An unknown median age never fails the gate.
func (t Thresholds) Decide(eval *domain.EvaluationReport, m domain.Metrics) Decision {
	var reasons []string
	if eval.Overall < t.MinOverall {
		reasons = append(reasons, fmt.Sprintf("overall %.1f < %.1f", eval.Overall, t.MinOverall))
	}
	if m.CitationCoverage < t.MinCoverage {
		reasons = append(reasons, fmt.Sprintf("coverage %.2f < %.2f", m.CitationCoverage, t.MinCoverage))
	}
	if m.SourceDiversity < t.MinDiversity {
		reasons = append(reasons, fmt.Sprintf("diversity %.2f < %.2f", m.SourceDiversity, t.MinDiversity))
	}
	if m.AgeKnown() && m.MedianSourceAgeDays > t.MaxMedianAgeDays {
		reasons = append(reasons, fmt.Sprintf("median age %s > %.0fd", m.FormatAge(), t.MaxMedianAgeDays))
	}
	return Decision{Revise: len(reasons) > 0, Reasons: reasons}
}

// Summary joins the reasons for display.
func (d Decision) Summary() string {
	return strings.Join(d.Reasons, "; ")
}

// BuildFeedback turns the evaluator's recommendations into revision
// feedback, falling back to GenericFeedback.
func BuildFeedback(eval *domain.EvaluationReport) []string {
	var feedback []string
	if eval != nil {
		for _, r := range eval.Recommendations {
			if r = strings.TrimSpace(r); r != "" {
				feedback = append(feedback, r)
			}
		}
	}
	if len(feedback) == 0 {
		return []string{GenericFeedback}
	}
	return feedback
}

// Annotate appends the evaluation footer to a short summary.
func Annotate(summary string, eval *domain.EvaluationReport, m domain.Metrics) string {
	return summary + fmt.Sprintf("\n\n_Eval:_ overall %.1f/5 • cov %.2f • div %.2f • age_med %s",
		eval.Overall, m.CitationCoverage, m.SourceDiversity, m.FormatAge())
}
