package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type Config struct {
	LLM           LLMConfig           `yaml:"llm"`
	Search        SearchConfig        `yaml:"search"`
	Research      ResearchConfig      `yaml:"research"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// LLMConfig contains language model backend configuration
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // "ollama", "openai"
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	APIKeyEnv   string  `yaml:"api_key_env,omitempty"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	Timeout     string  `yaml:"timeout"`
	MaxRetries  int     `yaml:"max_retries"`
}

// SearchConfig contains web search backend configuration
type SearchConfig struct {
	Provider   string `yaml:"provider"` // "searxng"
	BaseURL    string `yaml:"base_url"`
	MaxResults int    `yaml:"max_results"`
	Language   string `yaml:"language,omitempty"`
	SafeSearch bool   `yaml:"safe_search"`
	Timeout    string `yaml:"timeout"`
}

// ResearchConfig contains research pipeline configuration
type ResearchConfig struct {
	PlanSize        int    `yaml:"plan_size"`
	SnippetLength   int    `yaml:"snippet_length"`
	CatalogOrdering string `yaml:"catalog_ordering"` // "directive", "arrival"
	Timeout         string `yaml:"timeout"`
}

// ObservabilityConfig contains observability configuration
type ObservabilityConfig struct {
	Tracing TracingConfig `yaml:"tracing"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// TracingConfig contains tracing configuration
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
	Insecure     bool    `yaml:"insecure"`
	// TraceURLTemplate is formatted with the run's trace id for the progress link.
	TraceURLTemplate string `yaml:"trace_url_template"`
}

// MetricsConfig contains metrics configuration
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json", "console"
	Output string `yaml:"output"` // "stdout", "stderr", or a file path
}

// Load loads configuration from a file
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.applyDefaults()
	config.overrideFromEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// LoadOrDefault loads configuration from a file or returns default config.
// Environment overrides apply in both cases.
func LoadOrDefault(path string) *Config {
	config, err := Load(path)
	if err != nil {
		config = Default()
		config.overrideFromEnv()
	}
	return config
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "ollama",
			BaseURL:     "http://localhost:11434",
			Model:       "llama3.2",
			APIKeyEnv:   "OPENAI_API_KEY",
			Temperature: 0.3,
			MaxTokens:   4096,
			Timeout:     "3m",
			MaxRetries:  3,
		},
		Search: SearchConfig{
			Provider:   "searxng",
			BaseURL:    "http://localhost:8888",
			MaxResults: 5,
			SafeSearch: true,
			Timeout:    "30s",
		},
		Research: ResearchConfig{
			PlanSize:        5,
			SnippetLength:   400,
			CatalogOrdering: "directive",
			Timeout:         "15m",
		},
		Observability: ObservabilityConfig{
			Tracing: TracingConfig{
				Enabled:          false,
				Endpoint:         "localhost:4318",
				SamplingRate:     1.0,
				Insecure:         true,
				TraceURLTemplate: "http://localhost:16686/trace/%s",
			},
			Metrics: MetricsConfig{
				Enabled: true,
				Port:    2223,
			},
			Logging: LoggingConfig{
				Level:  "info",
				Format: "json",
				Output: "stderr",
			},
		},
	}
}

// applyDefaults applies default values to missing fields
func (c *Config) applyDefaults() {
	defaults := Default()

	if c.LLM.Provider == "" {
		c.LLM.Provider = defaults.LLM.Provider
	}
	if c.LLM.BaseURL == "" && c.LLM.Provider == defaults.LLM.Provider {
		c.LLM.BaseURL = defaults.LLM.BaseURL
	}
	if c.LLM.Model == "" {
		c.LLM.Model = defaults.LLM.Model
	}
	if c.LLM.APIKeyEnv == "" {
		c.LLM.APIKeyEnv = defaults.LLM.APIKeyEnv
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = defaults.LLM.Temperature
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = defaults.LLM.MaxTokens
	}
	if c.LLM.Timeout == "" {
		c.LLM.Timeout = defaults.LLM.Timeout
	}
	if c.LLM.MaxRetries == 0 {
		c.LLM.MaxRetries = defaults.LLM.MaxRetries
	}

	if c.Search.Provider == "" {
		c.Search.Provider = defaults.Search.Provider
	}
	if c.Search.BaseURL == "" {
		c.Search.BaseURL = defaults.Search.BaseURL
	}
	if c.Search.MaxResults == 0 {
		c.Search.MaxResults = defaults.Search.MaxResults
	}
	if c.Search.Timeout == "" {
		c.Search.Timeout = defaults.Search.Timeout
	}

	if c.Research.PlanSize == 0 {
		c.Research.PlanSize = defaults.Research.PlanSize
	}
	if c.Research.SnippetLength == 0 {
		c.Research.SnippetLength = defaults.Research.SnippetLength
	}
	if c.Research.CatalogOrdering == "" {
		c.Research.CatalogOrdering = defaults.Research.CatalogOrdering
	}
	if c.Research.Timeout == "" {
		c.Research.Timeout = defaults.Research.Timeout
	}

	if c.Observability.Tracing.Endpoint == "" {
		c.Observability.Tracing.Endpoint = defaults.Observability.Tracing.Endpoint
	}
	if c.Observability.Tracing.SamplingRate == 0 {
		c.Observability.Tracing.SamplingRate = defaults.Observability.Tracing.SamplingRate
	}
	if c.Observability.Tracing.TraceURLTemplate == "" {
		c.Observability.Tracing.TraceURLTemplate = defaults.Observability.Tracing.TraceURLTemplate
	}
	if c.Observability.Metrics.Port == 0 {
		c.Observability.Metrics.Port = defaults.Observability.Metrics.Port
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = defaults.Observability.Logging.Level
	}
	if c.Observability.Logging.Format == "" {
		c.Observability.Logging.Format = defaults.Observability.Logging.Format
	}
	if c.Observability.Logging.Output == "" {
		c.Observability.Logging.Output = defaults.Observability.Logging.Output
	}
}

// overrideFromEnv overrides configuration from environment variables.
// This is the only place the environment is consulted.
func (c *Config) overrideFromEnv() {
	if provider := os.Getenv("DEEP_RESEARCH_LLM_PROVIDER"); provider != "" {
		if provider != c.LLM.Provider && c.LLM.BaseURL == Default().LLM.BaseURL {
			c.LLM.BaseURL = ""
		}
		c.LLM.Provider = provider
	}
	if model := os.Getenv("DEEP_RESEARCH_LLM_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if url := os.Getenv("OLLAMA_BASE_URL"); url != "" && c.LLM.Provider == "ollama" {
		c.LLM.BaseURL = url
	}
	if url := os.Getenv("SEARXNG_URL"); url != "" {
		c.Search.BaseURL = url
	}

	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		c.Observability.Tracing.Endpoint = endpoint
	}
	if v := os.Getenv("DEEP_RESEARCH_TRACING"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.Observability.Tracing.Enabled = enabled
		}
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "ollama":
		if c.LLM.BaseURL == "" {
			return fmt.Errorf("llm base_url is required for ollama")
		}
	case "openai":
	default:
		return fmt.Errorf("unsupported llm provider: %s", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm model is required")
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("llm max_retries must not be negative")
	}

	if c.Search.Provider != "searxng" {
		return fmt.Errorf("unsupported search provider: %s", c.Search.Provider)
	}
	if c.Search.BaseURL == "" {
		return fmt.Errorf("search base_url is required")
	}
	if c.Search.MaxResults < 1 {
		return fmt.Errorf("search max_results must be at least 1")
	}

	if c.Research.PlanSize < 1 {
		return fmt.Errorf("research plan_size must be at least 1")
	}
	if c.Research.SnippetLength < 1 {
		return fmt.Errorf("research snippet_length must be at least 1")
	}
	switch strings.ToLower(c.Research.CatalogOrdering) {
	case "directive", "arrival":
	default:
		return fmt.Errorf("research catalog_ordering must be directive or arrival, got %q", c.Research.CatalogOrdering)
	}

	if c.Observability.Tracing.SamplingRate < 0 || c.Observability.Tracing.SamplingRate > 1 {
		return fmt.Errorf("tracing sampling_rate must be between 0 and 1")
	}
	if c.Observability.Metrics.Enabled && (c.Observability.Metrics.Port < 1 || c.Observability.Metrics.Port > 65535) {
		return fmt.Errorf("metrics port must be between 1 and 65535")
	}

	for name, value := range map[string]string{
		"llm timeout":      c.LLM.Timeout,
		"search timeout":   c.Search.Timeout,
		"research timeout": c.Research.Timeout,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetDuration parses a duration string from config, returning fallback
// when the value is empty or malformed.
func GetDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
