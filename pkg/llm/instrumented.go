package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/ncolesummers/deep-research-agent/pkg/domain"
	"github.com/ncolesummers/deep-research-agent/pkg/observability"
)

// InstrumentedLLMClient wraps an LLM client with observability
type InstrumentedLLMClient struct {
	client    domain.LLMClient
	telemetry *observability.Telemetry
	metrics   *observability.Metrics
	provider  string
	model     string
}

// NewInstrumentedLLMClient creates a new instrumented LLM client. When metrics
// is nil a set is created from the telemetry meter.
func NewInstrumentedLLMClient(client domain.LLMClient, telemetry *observability.Telemetry, metrics *observability.Metrics, provider, model string) (*InstrumentedLLMClient, error) {
	if client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if telemetry == nil {
		return nil, fmt.Errorf("telemetry is required")
	}

	if metrics == nil {
		var err error
		metrics, err = observability.NewMetrics(telemetry.Meter())
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics: %w", err)
		}
	}

	return &InstrumentedLLMClient{
		client:    client,
		telemetry: telemetry,
		metrics:   metrics,
		provider:  provider,
		model:     model,
	}, nil
}

// Chat performs an instrumented chat completion
func (c *InstrumentedLLMClient) Chat(ctx context.Context, messages []domain.Message, opts domain.ChatOptions) (*domain.ChatResponse, error) {
	var response *domain.ChatResponse
	startTime := time.Now()

	err := c.telemetry.InstrumentLLMCall(ctx, c.provider, c.model, func(ctx context.Context) (int, int, error) {
		var err error
		response, err = c.client.Chat(ctx, messages, opts)
		if err != nil {
			return 0, 0, err
		}
		return response.Usage.PromptTokens, response.Usage.CompletionTokens, nil
	})

	var prompt, completion int64
	if response != nil {
		prompt = int64(response.Usage.PromptTokens)
		completion = int64(response.Usage.CompletionTokens)
	}
	c.metrics.RecordLLMRequest(ctx, c.provider, c.model, prompt, completion, time.Since(startTime), err)

	if err != nil {
		return nil, err
	}
	return response, nil
}
