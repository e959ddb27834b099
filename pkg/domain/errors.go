package domain

import "errors"

var (
	// ErrEmptyQuery is returned when a run is started without a question.
	ErrEmptyQuery = errors.New("research query is empty")

	// ErrInvalidEvaluation is returned when an evaluation report breaks its invariants.
	ErrInvalidEvaluation = errors.New("invalid evaluation report")
)
