package domain

import (
	"context"
)

// Planner turns a research question into a search plan
type Planner interface {
	Plan(ctx context.Context, query string) (*SearchPlan, error)
}

// Searcher runs one planned search and summarizes what it found
type Searcher interface {
	Search(ctx context.Context, directive SearchDirective) (*SearchSummary, error)
}

// Writer produces and revises report drafts
type Writer interface {
	// Draft writes the first version of the report
	Draft(ctx context.Context, req DraftRequest) (*Draft, error)

	// Revise rewrites a prior draft to address evaluator feedback
	Revise(ctx context.Context, req RevisionRequest) (*Draft, error)
}

// Evaluator judges the quality of a draft
type Evaluator interface {
	Evaluate(ctx context.Context, req EvaluationRequest) (*EvaluationReport, error)
}

// ResearchCapabilities is the full capability set a research run depends on
type ResearchCapabilities interface {
	Planner
	Searcher
	Writer
	Evaluator
}

// LLMClient defines the interface for language model interactions
type LLMClient interface {
	// Chat performs a chat completion
	Chat(ctx context.Context, messages []Message, opts ChatOptions) (*ChatResponse, error)
}

// SearchClient defines the interface for web search
type SearchClient interface {
	// Search performs a web search
	Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error)
}

// Supporting types for interfaces

// DraftRequest carries the inputs for a first draft
type DraftRequest struct {
	Query     string   `json:"query"`
	Summaries []string `json:"summaries"`
	Sources   []Source `json:"sources"`
}

// RevisionRequest carries the inputs for a revision pass
type RevisionRequest struct {
	Query    string   `json:"query"`
	Feedback []string `json:"feedback"`
	Prior    Draft    `json:"prior"`
	Sources  []Source `json:"sources"`
}

// EvaluationRequest carries the inputs for judging a draft
type EvaluationRequest struct {
	Query    string   `json:"query"`
	Markdown string   `json:"markdown"`
	Sources  []Source `json:"sources"`
}

// Message represents a chat message
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// ChatOptions provides options for chat completions. A nil Temperature
// leaves the client default in place; zero is sent as zero.
type ChatOptions struct {
	Model       string   `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	JSONMode    bool     `json:"json_mode,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// Temperature returns a pointer for ChatOptions.Temperature.
func Temperature(v float64) *float64 {
	return &v
}

// ChatResponse represents a chat completion response
type ChatResponse struct {
	Content      string     `json:"content"`
	Usage        TokenUsage `json:"usage"`
	FinishReason string     `json:"finish_reason,omitempty"`
}

// TokenUsage tracks token consumption
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// SearchOptions provides options for web search
type SearchOptions struct {
	MaxResults int    `json:"max_results,omitempty"`
	Language   string `json:"language,omitempty"`
	TimeRange  string `json:"time_range,omitempty"`
	SafeSearch bool   `json:"safe_search,omitempty"`
}

// SearchResult represents a single web search hit
type SearchResult struct {
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Snippet     string  `json:"snippet"`
	PublishedAt string  `json:"published_at,omitempty"`
	Engine      string  `json:"engine,omitempty"`
	Score       float64 `json:"score,omitempty"`
}
