package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ncolesummers/deep-research-agent/pkg/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DEEP_RESEARCH_LLM_PROVIDER", "DEEP_RESEARCH_LLM_MODEL", "OLLAMA_BASE_URL",
		"SEARXNG_URL", "OTEL_EXPORTER_OTLP_ENDPOINT", "DEEP_RESEARCH_TRACING",
	} {
		t.Setenv(key, "")
	}
}

func TestDefault(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, 5, cfg.Research.PlanSize)
	assert.Equal(t, 400, cfg.Research.SnippetLength)
	assert.Equal(t, "directive", cfg.Research.CatalogOrdering)
	assert.False(t, cfg.Observability.Tracing.Enabled)
}

func TestLoad_AppliesDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
llm:
  model: qwen2.5
research:
  catalog_ordering: arrival
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "qwen2.5", cfg.LLM.Model)
	assert.Equal(t, "http://localhost:11434", cfg.LLM.BaseURL)
	assert.Equal(t, "arrival", cfg.Research.CatalogOrdering)
	assert.Equal(t, 5, cfg.Research.PlanSize)
	assert.Equal(t, "searxng", cfg.Search.Provider)
	assert.Equal(t, 2223, cfg.Observability.Metrics.Port)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEEP_RESEARCH_LLM_MODEL", "mistral")
	t.Setenv("SEARXNG_URL", "http://search:8080")
	t.Setenv("DEEP_RESEARCH_TRACING", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4318")

	cfg, err := config.Load(writeConfig(t, "llm:\n  model: llama3.2\n"))
	require.NoError(t, err)

	assert.Equal(t, "mistral", cfg.LLM.Model)
	assert.Equal(t, "http://search:8080", cfg.Search.BaseURL)
	assert.True(t, cfg.Observability.Tracing.Enabled)
	assert.Equal(t, "collector:4318", cfg.Observability.Tracing.Endpoint)
}

func TestLoadOrDefault_ProviderSwitch(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEEP_RESEARCH_LLM_PROVIDER", "openai")

	cfg := config.LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Empty(t, cfg.LLM.BaseURL, "ollama url must not leak into the openai client")
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "llm: [unclosed"},
		{"unknown provider", "llm:\n  provider: bard\n"},
		{"bad ordering", "research:\n  catalog_ordering: random\n"},
		{"bad timeout", "research:\n  timeout: soon\n"},
		{"bad sampling", "observability:\n  tracing:\n    sampling_rate: 2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadOrDefault(t *testing.T) {
	clearEnv(t)
	cfg := config.LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, config.Default(), cfg)
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := config.Default()
	cfg.LLM.Provider = "openai"
	cfg.LLM.BaseURL = "https://api.openai.com/v1"
	cfg.LLM.Model = "gpt-4o-mini"
	require.NoError(t, cfg.Save(path))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 2*time.Minute, config.GetDuration("2m", time.Second))
	assert.Equal(t, time.Second, config.GetDuration("", time.Second))
	assert.Equal(t, time.Second, config.GetDuration("later", time.Second))
}
