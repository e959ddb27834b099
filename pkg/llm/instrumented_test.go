package llm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ncolesummers/deep-research-agent/internal/testutil"
	"github.com/ncolesummers/deep-research-agent/pkg/domain"
	"github.com/ncolesummers/deep-research-agent/pkg/llm"
	"github.com/ncolesummers/deep-research-agent/pkg/observability"
)

func TestNewInstrumentedLLMClient_Validation(t *testing.T) {
	telemetry := observability.NewNoopTelemetry()

	_, err := llm.NewInstrumentedLLMClient(nil, telemetry, nil, "ollama", "m")
	assert.Error(t, err)

	_, err = llm.NewInstrumentedLLMClient(testutil.NewMockLLMClient(), nil, nil, "ollama", "m")
	assert.Error(t, err)

	client, err := llm.NewInstrumentedLLMClient(testutil.NewMockLLMClient(), telemetry, nil, "ollama", "m")
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestInstrumentedLLMClient_Chat(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	telemetry := observability.NewTelemetryFromProviders("test", tp, nil)

	mock := testutil.NewMockLLMClient()
	mock.Responses["default"] = "answer"

	client, err := llm.NewInstrumentedLLMClient(mock, telemetry, nil, "ollama", "llama3.2")
	require.NoError(t, err)

	resp, err := client.Chat(context.Background(), []domain.Message{{Role: "user", Content: "q"}}, domain.ChatOptions{})
	require.NoError(t, err)
	assert.Equal(t, "answer", resp.Content)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "llm.chat", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.Int("llm.total_tokens", 100))
}

func TestInstrumentedLLMClient_ChatError(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	telemetry := observability.NewTelemetryFromProviders("test", tp, nil)

	mock := testutil.NewMockLLMClient()
	mock.ShouldError = true
	mock.ErrorMessage = "backend down"

	client, err := llm.NewInstrumentedLLMClient(mock, telemetry, nil, "openai", "gpt-4o-mini")
	require.NoError(t, err)

	_, err = client.Chat(context.Background(), nil, domain.ChatOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend down")

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}
