package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ncolesummers/deep-research-agent/pkg/agents"
	"github.com/ncolesummers/deep-research-agent/pkg/catalog"
	"github.com/ncolesummers/deep-research-agent/pkg/config"
	"github.com/ncolesummers/deep-research-agent/pkg/domain"
	"github.com/ncolesummers/deep-research-agent/pkg/llm"
	"github.com/ncolesummers/deep-research-agent/pkg/observability"
	"github.com/ncolesummers/deep-research-agent/pkg/search"
	"github.com/ncolesummers/deep-research-agent/pkg/workflow"
)

// app holds the components wired from one configuration.
type app struct {
	telemetry     *observability.Telemetry
	metrics       *observability.Metrics
	metricsServer *http.Server
	pipeline      *workflow.Pipeline
	logger        *observability.StructuredLogger
}

func newApp(ctx context.Context, cfg *config.Config, version string) (*app, error) {
	a := &app{logger: observability.NewStructuredLogger("app")}

	telemetry, err := observability.NewTelemetry(&observability.TelemetryConfig{
		ServiceName:    "deep-research-agent",
		ServiceVersion: version,
		Environment:    getEnvironment(),
		OTLPEndpoint:   cfg.Observability.Tracing.Endpoint,
		OTLPInsecure:   cfg.Observability.Tracing.Insecure,
		SamplingRate:   cfg.Observability.Tracing.SamplingRate,
		EnableTracing:  cfg.Observability.Tracing.Enabled,
		EnableMetrics:  cfg.Observability.Metrics.Enabled,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	a.telemetry = telemetry

	a.metrics, err = observability.NewMetrics(telemetry.Meter())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	if cfg.Observability.Metrics.Enabled {
		a.serveMetrics(ctx, cfg.Observability.Metrics.Port)
	}

	chat, err := newLLMClient(ctx, cfg.LLM)
	if err != nil {
		a.Close()
		return nil, err
	}
	instrumented, err := llm.NewInstrumentedLLMClient(chat, telemetry, a.metrics, cfg.LLM.Provider, cfg.LLM.Model)
	if err != nil {
		a.Close()
		return nil, err
	}

	searcher := search.NewSearXNGClient(
		cfg.Search.BaseURL,
		config.GetDuration(cfg.Search.Timeout, 30*time.Second),
		domain.SearchOptions{
			MaxResults: cfg.Search.MaxResults,
			Language:   cfg.Search.Language,
			SafeSearch: cfg.Search.SafeSearch,
		},
	)

	suite, err := agents.NewSuite(instrumented, searcher, agents.Options{
		PlanSize:         cfg.Research.PlanSize,
		SearchMaxResults: cfg.Search.MaxResults,
		Temperature:      cfg.LLM.Temperature,
		MaxTokens:        cfg.LLM.MaxTokens,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	ordering, err := catalog.ParseOrdering(cfg.Research.CatalogOrdering)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.pipeline, err = workflow.NewPipeline(suite, workflow.Config{
		Catalog:          catalog.Options{SnippetLength: cfg.Research.SnippetLength, Ordering: ordering},
		Thresholds:       workflow.DefaultThresholds(),
		TraceURLTemplate: cfg.Observability.Tracing.TraceURLTemplate,
	}, telemetry, a.metrics)
	if err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

func newLLMClient(ctx context.Context, cfg config.LLMConfig) (domain.LLMClient, error) {
	timeout := config.GetDuration(cfg.Timeout, 3*time.Minute)
	retry := llm.DefaultRetryPolicy()
	retry.MaxRetries = cfg.MaxRetries

	switch cfg.Provider {
	case "openai":
		apiKey := os.Getenv(cfg.APIKeyEnv)
		client := llm.NewOpenAIClient(cfg.BaseURL, cfg.Model, apiKey, &llm.OpenAIOptions{
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     timeout,
			Retry:       retry,
		})
		if !client.IsConfigured() {
			return nil, fmt.Errorf("openai provider selected but %s is not set", cfg.APIKeyEnv)
		}
		return client, nil
	default:
		client := llm.NewOllamaClient(cfg.BaseURL, cfg.Model, &llm.OllamaOptions{
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     timeout,
			Retry:       retry,
		})
		if err := client.CheckHealth(ctx); err != nil {
			return nil, fmt.Errorf("ollama health check failed: %w", err)
		}
		return client, nil
	}
}

func (a *app) serveMetrics(ctx context.Context, port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	a.metricsServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Warn(ctx, "Metrics server stopped", map[string]interface{}{
				"port":  port,
				"error": err.Error(),
			})
		}
	}()
}

// Close stops the metrics endpoint and flushes telemetry.
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if a.metricsServer != nil {
		_ = a.metricsServer.Shutdown(ctx)
	}
	if a.telemetry != nil {
		if err := a.telemetry.Shutdown(ctx); err != nil {
			a.logger.Warn(ctx, "Error shutting down telemetry", map[string]interface{}{"error": err.Error()})
		}
	}
	_ = a.logger.Sync()
}

func getEnvironment() string {
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		return env
	}
	return "development"
}
