package agents

import (
	"fmt"
	"strings"

	"github.com/ncolesummers/deep-research-agent/pkg/catalog"
	"github.com/ncolesummers/deep-research-agent/pkg/domain"
)

func plannerInstructions(planSize int) string {
	return fmt.Sprintf(`You are a helpful research assistant. Given a query, propose specific web searches to perform to best answer the query. Output exactly %d focused queries. Avoid general terms; include likely authoritative sources or entities in the query.

Respond with JSON only, in this shape:
{"searches": [{"reason": "why this search matters for the query", "query": "the search term"}]}`, planSize)
}

const searchInstructions = `You are a research assistant. Given a search term and the results of a web search for it, produce a concise summary of the results. The summary must be 2-3 paragraphs and less than 300 words. Capture the main points. Write succinctly, no need to have complete sentences or good grammar. This will be consumed by someone synthesizing a report, so it is vital you capture the essence and ignore any fluff. Do not include any additional commentary other than the summary itself.`

const writerInstructions = `You are a senior researcher writing a cohesive report for a research query. You will be provided the query and multiple research notes (summaries of web results).
First, draft a clear outline. Then write a detailed markdown report (at least 1,000 words).
CRITICAL: When you assert any non-obvious fact, attach an inline numeric citation like [1] or [2] referring to the provided sources list (we will append it in order). Keep claims faithful to sources. Prefer primary/authoritative sources; avoid speculation.

Respond with JSON only, in this shape:
{"short_summary": "2-3 sentence summary of the findings", "markdown_report": "the full markdown report", "follow_up_questions": ["topic to research further"]}`

const evaluatorInstructions = `You are a STRICT research evaluator. Return ONLY structured JSON matching the output schema.

You are given:
1) user query
2) an ANSWER in markdown (may contain inline numeric citations like [1], [2], ...)
3) a list of ALLOWED SOURCES (numbered in the same order the answer should cite)

Evaluation rules (NO EXCEPTIONS):
- Judge FAITHFULNESS ONLY against the allowed sources. If a claim is not supported by those sources, treat it as unsupported.
- Do NOT introduce new facts or search elsewhere. If something is missing from sources, mark it down.
- Penalize any citation that is invalid (e.g., [7] when there are only 5 sources), duplicated incorrectly, or that points to the wrong source.
- Penalize missing citations for non-obvious claims (stats, product names, dates, launch/GA info, dollar figures, forecasts).
- Penalize CATEGORY MISPLACEMENT: examples/companies/case studies must appear under the correct sector/topic. Misplaced items count against Structure & Citations.
- Penalize TEMPORAL DRIFT: the answer must reflect the timeframe in the query. Do not reward forward-looking claims unless they are explicitly cited in the allowed sources. Uncited forecasts should be flagged as unsupported.
- Relevance & Completeness: the answer should directly address the query and cover the main angles found in the sources.
- Structure & Citations: clear organization, concise language, correct inline [n] citations throughout, and no placeholder/fake links.

Scoring (MANDATORY weights):
- Provide EXACTLY 3 criterion scores in this order: 1) Faithfulness, 2) Relevance & Completeness, 3) Structure & Citations.
- Each score is a number from 1 to 5.
- overall = 0.5 * Faithfulness + 0.3 * Relevance & Completeness + 0.2 * Structure & Citations (round to ONE decimal).

Recommendations (make them ACTIONABLE):
- Output 2-5 bullets that say exactly what to fix (e.g., 'Add a citation [3] to the revenue claim', 'Remove unsupported 2028 projection').
- Do NOT repeat the entire answer; focus on edits the writer should perform in one pass.

Output schema (JSON ONLY):
{"criteria": [{"name": "Faithfulness", "score": 4, "justification": "one sentence"}, {"name": "Relevance & Completeness", "score": 4, "justification": "..."}, {"name": "Structure & Citations", "score": 3, "justification": "..."}], "overall": 3.8, "recommendations": ["..."]}`

// RevisionPreamble opens every revision request.
const RevisionPreamble = "Revise the draft to address these issues. Keep markdown. " +
	"Only keep claims supported by the provided sources. " +
	"Attach inline numeric citations like [1], [2] for all non-obvious facts."

func plannerInput(query string) string {
	return "Query: " + query
}

func searchInput(directive domain.SearchDirective, results []domain.SearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Search term: %s\nReason for searching: %s\n\nSearch results:\n", directive.Query, directive.Reason)
	for i, r := range results {
		fmt.Fprintf(&b, "[%d] %s — %s\n", i+1, r.Title, r.URL)
		if r.PublishedAt != "" {
			fmt.Fprintf(&b, "Published: %s\n", r.PublishedAt)
		}
		if r.Snippet != "" {
			fmt.Fprintf(&b, "%s\n", r.Snippet)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func draftInput(req domain.DraftRequest) string {
	return fmt.Sprintf("Original query: %s\nSummarized search results: %s\n\nSources (for inline [n] citations):\n%s",
		req.Query, formatSummaries(req.Summaries), catalog.FormatNumbered(req.Sources))
}

// formatSummaries renders the raw notes as a bracketed list of quoted strings.
func formatSummaries(summaries []string) string {
	quoted := make([]string, len(summaries))
	for i, s := range summaries {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func revisionInput(req domain.RevisionRequest) string {
	feedback := make([]string, len(req.Feedback))
	for i, f := range req.Feedback {
		feedback[i] = "- " + f
	}
	revisePrompt := RevisionPreamble + "\n\nIssues:\n" + strings.Join(feedback, "\n")

	return fmt.Sprintf("Original query: %s\n\nFeedback:\n%s\n\nDraft:\n%s\n\nSources (for inline [n] citations):\n%s",
		req.Query, revisePrompt, req.Prior.MarkdownReport, catalog.FormatNumbered(req.Sources))
}

func evaluationInput(req domain.EvaluationRequest) string {
	return fmt.Sprintf("## User Query\n%s\n\n## Answer (Markdown)\n%s\n\n## Allowed Sources\n%s",
		req.Query, req.Markdown, catalog.FormatForEvaluation(req.Sources))
}
