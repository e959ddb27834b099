package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ncolesummers/deep-research-agent/pkg/domain"
)

// MockLLMClient is a mock implementation of LLMClient for testing
type MockLLMClient struct {
	mu           sync.Mutex
	Responses    map[string]string
	CallCount    int
	LastMessages []domain.Message
	LastOptions  domain.ChatOptions
	ShouldError  bool
	ErrorMessage string
	// ChatFunc allows custom chat behavior for tests
	ChatFunc func(ctx context.Context, messages []domain.Message, options domain.ChatOptions) (*domain.ChatResponse, error)
}

// NewMockLLMClient creates a new mock LLM client
func NewMockLLMClient() *MockLLMClient {
	return &MockLLMClient{
		Responses: make(map[string]string),
	}
}

// Chat implements domain.LLMClient
func (m *MockLLMClient) Chat(ctx context.Context, messages []domain.Message, options domain.ChatOptions) (*domain.ChatResponse, error) {
	if m.ChatFunc != nil {
		m.mu.Lock()
		m.CallCount++
		m.LastMessages = messages
		m.LastOptions = options
		m.mu.Unlock()
		return m.ChatFunc(ctx, messages, options)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.CallCount++
	m.LastMessages = messages
	m.LastOptions = options

	if m.ShouldError {
		return nil, fmt.Errorf("%s", m.ErrorMessage)
	}

	// Return predefined response or default
	var content string
	if len(messages) > 0 {
		lastMsg := messages[len(messages)-1]
		if resp, ok := m.Responses[lastMsg.Content]; ok {
			content = resp
		} else if resp, ok := m.Responses["default"]; ok {
			content = resp
		} else {
			content = "Mock response"
		}
	}

	return &domain.ChatResponse{
		Content: content,
		Usage: domain.TokenUsage{
			PromptTokens:     50,
			CompletionTokens: 50,
			TotalTokens:      100,
		},
		FinishReason: "stop",
	}, nil
}

// GetCallCount returns the number of Chat calls made
func (m *MockLLMClient) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// MockSearchClient is a mock implementation of SearchClient
type MockSearchClient struct {
	mu       sync.Mutex
	Results  map[string][]domain.SearchResult
	Errors   map[string]error
	Queries  []string
	LastOpts domain.SearchOptions
	Default  []domain.SearchResult
}

// NewMockSearchClient creates a new mock search client
func NewMockSearchClient() *MockSearchClient {
	return &MockSearchClient{
		Results: make(map[string][]domain.SearchResult),
		Errors:  make(map[string]error),
	}
}

// Search implements domain.SearchClient
func (m *MockSearchClient) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Queries = append(m.Queries, query)
	m.LastOpts = opts
	if err, ok := m.Errors[query]; ok {
		return nil, err
	}
	if results, ok := m.Results[query]; ok {
		return results, nil
	}
	return m.Default, nil
}

// FakeCapabilities is a scriptable domain.ResearchCapabilities. Unset funcs
// return canned values; the default search puts every directive on its own
// domain.
type FakeCapabilities struct {
	PlanFunc     func(ctx context.Context, query string) (*domain.SearchPlan, error)
	SearchFunc   func(ctx context.Context, directive domain.SearchDirective) (*domain.SearchSummary, error)
	DraftFunc    func(ctx context.Context, req domain.DraftRequest) (*domain.Draft, error)
	ReviseFunc   func(ctx context.Context, req domain.RevisionRequest) (*domain.Draft, error)
	EvaluateFunc func(ctx context.Context, req domain.EvaluationRequest) (*domain.EvaluationReport, error)

	mu            sync.Mutex
	planCalls     int
	searchCalls   int
	draftCalls    int
	reviseCalls   int
	evaluateCalls int
	revisions     []domain.RevisionRequest
	evaluations   []domain.EvaluationRequest
}

var _ domain.ResearchCapabilities = (*FakeCapabilities)(nil)

// Plan implements domain.Planner
func (f *FakeCapabilities) Plan(ctx context.Context, query string) (*domain.SearchPlan, error) {
	f.mu.Lock()
	f.planCalls++
	f.mu.Unlock()
	if f.PlanFunc != nil {
		return f.PlanFunc(ctx, query)
	}
	return NewTestPlan("q1", "q2"), nil
}

// Search implements domain.Searcher
func (f *FakeCapabilities) Search(ctx context.Context, directive domain.SearchDirective) (*domain.SearchSummary, error) {
	f.mu.Lock()
	f.searchCalls++
	f.mu.Unlock()
	if f.SearchFunc != nil {
		return f.SearchFunc(ctx, directive)
	}
	return &domain.SearchSummary{
		Summary: "notes on " + directive.Query,
		URL:     "https://" + strings.ReplaceAll(directive.Query, " ", "-") + ".example.org/notes",
		Title:   directive.Query,
	}, nil
}

// Draft implements domain.Writer
func (f *FakeCapabilities) Draft(ctx context.Context, req domain.DraftRequest) (*domain.Draft, error) {
	f.mu.Lock()
	f.draftCalls++
	f.mu.Unlock()
	if f.DraftFunc != nil {
		return f.DraftFunc(ctx, req)
	}
	return NewTestDraft("First draft [1]."), nil
}

// Revise implements domain.Writer
func (f *FakeCapabilities) Revise(ctx context.Context, req domain.RevisionRequest) (*domain.Draft, error) {
	f.mu.Lock()
	f.reviseCalls++
	f.revisions = append(f.revisions, req)
	f.mu.Unlock()
	if f.ReviseFunc != nil {
		return f.ReviseFunc(ctx, req)
	}
	return NewTestDraft("Revised draft [1]."), nil
}

// Evaluate implements domain.Evaluator
func (f *FakeCapabilities) Evaluate(ctx context.Context, req domain.EvaluationRequest) (*domain.EvaluationReport, error) {
	f.mu.Lock()
	f.evaluateCalls++
	f.evaluations = append(f.evaluations, req)
	f.mu.Unlock()
	if f.EvaluateFunc != nil {
		return f.EvaluateFunc(ctx, req)
	}
	return NewTestEvaluation(5, 5, 5), nil
}

// Calls returns how many times each capability was invoked.
func (f *FakeCapabilities) Calls() (plan, search, draft, revise, evaluate int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.planCalls, f.searchCalls, f.draftCalls, f.reviseCalls, f.evaluateCalls
}

// Revisions returns the revision requests received so far.
func (f *FakeCapabilities) Revisions() []domain.RevisionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.RevisionRequest(nil), f.revisions...)
}

// Evaluations returns the evaluation requests received so far.
func (f *FakeCapabilities) Evaluations() []domain.EvaluationRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.EvaluationRequest(nil), f.evaluations...)
}
