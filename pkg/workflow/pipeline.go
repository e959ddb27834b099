// Package workflow runs a research query through planning, searching,
// drafting, evaluation and at most one revision.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/ncolesummers/deep-research-agent/pkg/catalog"
	"github.com/ncolesummers/deep-research-agent/pkg/domain"
	"github.com/ncolesummers/deep-research-agent/pkg/observability"
	"github.com/ncolesummers/deep-research-agent/pkg/quality"
	"go.opentelemetry.io/otel/attribute"
)

// Progress messages emitted at each transition.
const (
	MsgSearchesPlanned  = "Searches planned, starting to search..."
	MsgSearchesComplete = "Searches complete, writing report..."
	MsgReportWritten    = "Report written, evaluating quality..."
	MsgRevisionWritten  = "Revision written, re-evaluating..."
)

// StageError reports which stage ended a run. TraceURL is set when the
// run was traced but the link had not been emitted yet.
type StageError struct {
	Stage    domain.Phase
	Err      error
	TraceURL string
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FailureMessage renders a run error as the single user-facing message.
func FailureMessage(err error) string {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		msg := fmt.Sprintf("Research failed during %s: %v", stageErr.Stage, stageErr.Err)
		if stageErr.TraceURL != "" {
			msg += " (trace: " + stageErr.TraceURL + ")"
		}
		return msg
	}
	return fmt.Sprintf("Research failed: %v", err)
}

// Config holds the per-pipeline settings. Tracing is decided by the
// telemetry passed to NewPipeline, never by the environment.
type Config struct {
	Catalog    catalog.Options
	Thresholds Thresholds
	// TraceURLTemplate is formatted with the trace id, e.g. "http://localhost:16686/trace/%s".
	TraceURLTemplate string
	// Now overrides the clock used for source ages.
	Now func() time.Time
	// Logger receives run lifecycle logs. Defaults to a "pipeline" StructuredLogger.
	Logger observability.Logger
}

// DefaultConfig returns the standard pipeline settings.
func DefaultConfig() Config {
	return Config{
		Catalog:    catalog.DefaultOptions(),
		Thresholds: DefaultThresholds(),
		Now:        time.Now,
	}
}

// Result is everything a completed run produced.
type Result struct {
	Query           string
	Plan            *domain.SearchPlan
	Sources         []domain.Source
	Draft           *domain.Draft
	FirstEvaluation *domain.EvaluationReport
	FinalEvaluation *domain.EvaluationReport
	FirstMetrics    domain.Metrics
	Metrics         domain.Metrics
	Revised         bool
	RevisionReasons []string
	Trace           domain.RunTrace
	Duration        time.Duration
}

// Pipeline orchestrates research runs. It holds no per-run state and may
// serve concurrent runs.
type Pipeline struct {
	caps      domain.ResearchCapabilities
	fanout    *SearchFanOut
	config    Config
	telemetry *observability.Telemetry
	metrics   *observability.Metrics
	logger    observability.Logger
}

// NewPipeline creates a pipeline. telemetry and metrics may be nil.
func NewPipeline(caps domain.ResearchCapabilities, cfg Config, telemetry *observability.Telemetry, metrics *observability.Metrics) (*Pipeline, error) {
	if caps == nil {
		return nil, fmt.Errorf("research capabilities are required")
	}
	if telemetry == nil {
		telemetry = observability.NewNoopTelemetry()
	}
	if cfg.Catalog.SnippetLength <= 0 {
		cfg.Catalog.SnippetLength = catalog.DefaultSnippetLength
	}
	if cfg.Catalog.Ordering == "" {
		cfg.Catalog.Ordering = catalog.OrderByDirective
	}
	if cfg.Thresholds == (Thresholds{}) {
		cfg.Thresholds = DefaultThresholds()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NewStructuredLogger("pipeline")
	}

	return &Pipeline{
		caps:      caps,
		fanout:    NewSearchFanOut(caps, telemetry, metrics),
		config:    cfg,
		telemetry: telemetry,
		metrics:   metrics,
		logger:    cfg.Logger,
	}, nil
}

// RunOption customizes a single Run.
type RunOption func(*runOptions)

type runOptions struct {
	onDone func(*Result, error)
}

// WithResult registers fn to receive the run's Result and error. fn is
// called once, before the sequence ends, from the run's goroutine.
func WithResult(fn func(*Result, error)) RunOption {
	return func(o *runOptions) {
		o.onDone = fn
	}
}

// Run returns the lazy progress sequence of one run. The run starts when
// iteration starts and the sequence can be consumed once. Its last element
// is the final markdown, or a single failure message. Stopping early does
// not stop the run.
func (p *Pipeline) Run(ctx context.Context, query string, opts ...RunOption) iter.Seq[string] {
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}

	var started atomic.Bool
	return func(yield func(string) bool) {
		if !started.CompareAndSwap(false, true) {
			return
		}

		q := newProgressQueue()
		go func() {
			defer q.close()
			result, err := p.Execute(ctx, query, q.push)
			if err != nil {
				q.push(FailureMessage(err))
			}
			if o.onDone != nil {
				o.onDone(result, err)
			}
		}()

		for {
			msg, ok := q.next()
			if !ok || !yield(msg) {
				return
			}
		}
	}
}

// Execute performs one run synchronously. emit receives every progress
// message in order; calls are serialized but may come from different
// goroutines. On failure nothing further is emitted and the error is
// returned, wrapped in a *StageError when a stage failed.
func (p *Pipeline) Execute(ctx context.Context, query string, emit func(string)) (*Result, error) {
	if emit == nil {
		emit = func(string) {}
	}

	query, err := domain.NormalizeQuery(query)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	ctx, span := p.telemetry.StartResearchRun(ctx, runID, query)
	defer span.End()

	start := time.Now()
	status := "success"
	if p.metrics != nil {
		p.metrics.RecordRunStarted(ctx)
		defer func() {
			p.metrics.RecordRunComplete(ctx, time.Since(start), status)
		}()
	}

	result := &Result{Query: query, Trace: p.runTrace(ctx, runID)}

	// The trace link precedes the first progress message. A run that fails
	// before then carries the link in its StageError instead.
	linked := !result.Trace.Enabled
	progress := func(msg string) {
		if !linked {
			linked = true
			emit("View trace: " + result.Trace.URL)
		}
		emit(msg)
	}

	startAttrs := map[string]interface{}{
		"run_id":      runID,
		"query_chars": len(query),
	}
	if p.metrics != nil {
		startAttrs["active_runs"] = p.metrics.GetActiveRunCount()
	}
	p.logger.Info(ctx, "Research run started", startAttrs)

	if err := p.execute(ctx, result, progress); err != nil {
		status = "error"
		var stageErr *StageError
		if !linked && errors.As(err, &stageErr) {
			stageErr.TraceURL = result.Trace.URL
		}
		p.logger.Error(ctx, "Research run failed", err, map[string]interface{}{
			"run_id": runID,
		})
		return nil, err
	}

	result.Duration = time.Since(start)
	span.SetAttributes(
		attribute.Bool("run.revised", result.Revised),
		attribute.Int("run.sources", len(result.Sources)),
		attribute.Float64("run.overall", result.FinalEvaluation.Overall),
	)
	p.logger.Info(ctx, "Research run complete", map[string]interface{}{
		"run_id":   runID,
		"revised":  result.Revised,
		"sources":  len(result.Sources),
		"overall":  result.FinalEvaluation.Overall,
		"duration": result.Duration.String(),
	})
	return result, nil
}

func (p *Pipeline) execute(ctx context.Context, result *Result, emit func(string)) error {
	query := result.Query

	err := p.stage(ctx, domain.PhasePlanning, func(ctx context.Context) error {
		plan, err := p.caps.Plan(ctx, query)
		if err != nil {
			return err
		}
		if plan == nil {
			return fmt.Errorf("planner returned no plan")
		}
		result.Plan = plan
		return nil
	})
	if err != nil {
		return err
	}
	emit(MsgSearchesPlanned)

	var outcomes []domain.SearchOutcome
	err = p.stage(ctx, domain.PhaseSearching, func(ctx context.Context) error {
		outcomes = p.fanout.Run(ctx, result.Plan, func(completed, total int) {
			emit(fmt.Sprintf("Searching... %d/%d completed", completed, total))
		})
		return ctx.Err()
	})
	if err != nil {
		return err
	}
	emit(MsgSearchesComplete)

	var summaries []string
	err = p.stage(ctx, domain.PhaseCataloging, func(context.Context) error {
		result.Sources = catalog.Build(result.Plan, outcomes, p.config.Catalog)
		summaries = catalog.Summaries(outcomes, p.config.Catalog.Ordering)
		return nil
	})
	if err != nil {
		return err
	}
	p.logger.Debug(ctx, "Source catalog built", map[string]interface{}{
		"planned":  len(result.Plan.Searches),
		"returned": len(outcomes),
		"sources":  len(result.Sources),
	})

	var draft *domain.Draft
	err = p.stage(ctx, domain.PhaseDrafting, func(ctx context.Context) error {
		var err error
		draft, err = p.caps.Draft(ctx, domain.DraftRequest{
			Query:     query,
			Summaries: summaries,
			Sources:   result.Sources,
		})
		if err == nil && draft == nil {
			err = fmt.Errorf("writer returned no draft")
		}
		return err
	})
	if err != nil {
		return err
	}
	emit(MsgReportWritten)

	eval, metrics, err := p.evaluate(ctx, domain.PhaseEvaluating, query, draft, result.Sources)
	if err != nil {
		return err
	}
	result.FirstEvaluation, result.FirstMetrics = eval, metrics
	p.recordQuality(ctx, "first", eval, metrics)

	decision := p.config.Thresholds.Decide(eval, metrics)
	if decision.Revise {
		result.Revised = true
		result.RevisionReasons = decision.Reasons
		emit(fmt.Sprintf("Quality gate failed (%s), revising report...", decision.Summary()))
		if p.metrics != nil {
			p.metrics.RecordRevision(ctx, decision.Reasons)
		}

		prior := draft
		err = p.stage(ctx, domain.PhaseRevising, func(ctx context.Context) error {
			var err error
			draft, err = p.caps.Revise(ctx, domain.RevisionRequest{
				Query:    query,
				Feedback: BuildFeedback(eval),
				Prior:    *prior,
				Sources:  result.Sources,
			})
			if err == nil && draft == nil {
				err = fmt.Errorf("writer returned no revision")
			}
			return err
		})
		if err != nil {
			return err
		}
		emit(MsgRevisionWritten)

		// The second verdict is final whatever it says.
		eval, metrics, err = p.evaluate(ctx, domain.PhaseReEvaluating, query, draft, result.Sources)
		if err != nil {
			return err
		}
		p.recordQuality(ctx, "final", eval, metrics)
	}

	final := *draft
	final.ShortSummary = Annotate(final.ShortSummary, eval, metrics)
	result.Draft = &final
	result.FinalEvaluation = eval
	result.Metrics = metrics

	emit(fmt.Sprintf("Evaluation done (overall: %.1f). Research complete.", eval.Overall))
	emit(final.MarkdownReport)
	return nil
}

func (p *Pipeline) evaluate(ctx context.Context, phase domain.Phase, query string, draft *domain.Draft, sources []domain.Source) (*domain.EvaluationReport, domain.Metrics, error) {
	var eval *domain.EvaluationReport
	err := p.stage(ctx, phase, func(ctx context.Context) error {
		var err error
		eval, err = p.caps.Evaluate(ctx, domain.EvaluationRequest{
			Query:    query,
			Markdown: draft.MarkdownReport,
			Sources:  sources,
		})
		if err == nil && eval == nil {
			err = fmt.Errorf("evaluator returned no report")
		}
		return err
	})
	if err != nil {
		return nil, domain.Metrics{}, err
	}
	return eval, quality.Compute(draft.MarkdownReport, sources, p.config.Now()), nil
}

// stage runs fn inside a stage span and wraps its error.
func (p *Pipeline) stage(ctx context.Context, phase domain.Phase, fn func(context.Context) error) error {
	start := time.Now()
	err := p.telemetry.InstrumentStage(ctx, string(phase), fn)
	if p.metrics != nil {
		p.metrics.RecordStage(ctx, string(phase), time.Since(start), err)
	}
	if err != nil {
		return &StageError{Stage: phase, Err: err}
	}
	return nil
}

func (p *Pipeline) recordQuality(ctx context.Context, pass string, eval *domain.EvaluationReport, m domain.Metrics) {
	p.logger.Info(ctx, "Draft evaluated", map[string]interface{}{
		"pass":      pass,
		"overall":   eval.Overall,
		"coverage":  m.CitationCoverage,
		"diversity": m.SourceDiversity,
		"age_med":   m.FormatAge(),
	})
	if p.metrics != nil {
		p.metrics.RecordQuality(ctx, pass, eval.Overall, m.CitationCoverage, m.SourceDiversity)
	}
}

// runTrace links the run to its trace when tracing is on. Otherwise the run
// id is the correlation id.
func (p *Pipeline) runTrace(ctx context.Context, runID string) domain.RunTrace {
	rt := domain.RunTrace{ID: runID}
	if !p.telemetry.TracingEnabled() {
		return rt
	}
	traceID := observability.TraceIDFromContext(ctx)
	if traceID == "" {
		return rt
	}
	rt.ID = traceID
	rt.Enabled = true
	rt.URL = traceID
	if p.config.TraceURLTemplate != "" {
		rt.URL = fmt.Sprintf(p.config.TraceURLTemplate, traceID)
	}
	return rt
}
