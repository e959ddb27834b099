package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ncolesummers/deep-research-agent/pkg/domain"
)

// ErrEmptyReport is returned when the writer produced no markdown body.
var ErrEmptyReport = errors.New("writer returned an empty report")

// Writer drafts and revises reports.
type Writer struct {
	llm  domain.LLMClient
	opts Options
}

// NewWriter creates a writer.
func NewWriter(llm domain.LLMClient, opts Options) *Writer {
	return &Writer{llm: llm, opts: opts}
}

// Draft writes the first report from the search notes.
func (w *Writer) Draft(ctx context.Context, req domain.DraftRequest) (*domain.Draft, error) {
	return w.write(ctx, draftInput(req))
}

// Revise rewrites the prior draft against the feedback.
func (w *Writer) Revise(ctx context.Context, req domain.RevisionRequest) (*domain.Draft, error) {
	return w.write(ctx, revisionInput(req))
}

func (w *Writer) write(ctx context.Context, input string) (*domain.Draft, error) {
	var draft domain.Draft
	err := chatJSON(ctx, w.llm, writerInstructions, input,
		domain.ChatOptions{Temperature: domain.Temperature(w.opts.Temperature), MaxTokens: w.opts.MaxTokens}, &draft)
	if err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}
	if strings.TrimSpace(draft.MarkdownReport) == "" {
		return nil, ErrEmptyReport
	}
	if draft.FollowUpQuestions == nil {
		draft.FollowUpQuestions = []string{}
	}
	return &draft, nil
}
