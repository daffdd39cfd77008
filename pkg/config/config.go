package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"
)

// Config defines the business-level application configuration.
// It maps directly to config.json (or config.yaml) and holds provider
// credentials, custom metric expressions and optional transports.
type Config struct {
	// Providers maps a provider name as used in /configure (e.g. "openai",
	// "groq") to its connection settings. Entries are optional: a provider
	// without an entry is resolved by name with credentials from the environment.
	Providers map[string]ProviderConfig `json:"providers" yaml:"providers"`
	// Metrics maps a metric name to a boolean expression over gold, pred and
	// fields. These extend the builtin metric set and are reloaded on change.
	Metrics map[string]string `json:"metrics" yaml:"metrics"`
	// DefaultModel, when set, is configured once at startup so the server can
	// answer predictions before the first /configure call.
	DefaultModel *ModelSpec `json:"default_model,omitempty" yaml:"default_model,omitempty"`
	// Channels enables extra transports (e.g. "web") next to the REST API.
	// Each value is the channel's own option object.
	Channels map[string]map[string]any `json:"channels" yaml:"channels"`
}

// ProviderConfig describes how to reach one model provider.
type ProviderConfig struct {
	// Type selects the client implementation ("openai", "ollama", "gemini",
	// "dummy"). Defaults to the provider name.
	Type    string         `json:"type,omitempty" yaml:"type,omitempty"`
	APIKeys []string       `json:"api_keys,omitempty" yaml:"api_keys,omitempty"`
	BaseURL string         `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Options map[string]any `json:"options,omitempty" yaml:"options,omitempty"`
}

// ModelSpec names a provider/model pair.
type ModelSpec struct {
	Provider string `json:"provider" yaml:"provider"`
	Model    string `json:"model" yaml:"model"`
	APIKey   string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

// Validate ensures the configuration is internally consistent before the
// server starts using it.
func (c *Config) Validate() error {
	for name := range c.Metrics {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("metric with empty name in 'metrics'")
		}
	}
	for name := range c.Providers {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("provider with empty name in 'providers'")
		}
	}
	if c.DefaultModel != nil && (c.DefaultModel.Provider == "" || c.DefaultModel.Model == "") {
		return fmt.Errorf("'default_model' requires both provider and model")
	}
	return nil
}

// Provider returns the settings for a provider name and whether an entry exists.
func (c *Config) Provider(name string) (ProviderConfig, bool) {
	if c == nil || c.Providers == nil {
		return ProviderConfig{}, false
	}
	p, ok := c.Providers[name]
	return p, ok
}

// SystemConfig defines engine-level technical parameters, usually stored in
// system.json. Missing fields keep their defaults.
type SystemConfig struct {
	// Addr is the listen address of the HTTP server.
	Addr string `json:"addr" yaml:"addr"`
	// ReadTimeoutMs bounds reading request headers.
	ReadTimeoutMs int `json:"read_timeout_ms" yaml:"read_timeout_ms"`
	// LLMTimeoutMs is the hard cutoff for a single model call. The context
	// handed to the provider is cancelled when it is exceeded.
	LLMTimeoutMs int `json:"llm_timeout_ms" yaml:"llm_timeout_ms"`
	// OllamaDefaultURL is used when an ollama provider has no base_url.
	OllamaDefaultURL string `json:"ollama_default_url" yaml:"ollama_default_url"`
	// DefaultMaxTokens and DefaultTemperature apply when /configure omits them.
	DefaultMaxTokens   int     `json:"default_max_tokens" yaml:"default_max_tokens"`
	DefaultTemperature float64 `json:"default_temperature" yaml:"default_temperature"`
	// DefaultMaxBootstraps applies when /optimize omits max_bootstraps.
	DefaultMaxBootstraps int `json:"default_max_bootstraps" yaml:"default_max_bootstraps"`
	// MaxLabeledDemos caps the raw labeled demos kept in a compiled module.
	MaxLabeledDemos int `json:"max_labeled_demos" yaml:"max_labeled_demos"`
	// MaxErrors is the number of failed teacher calls tolerated during one
	// optimization before it is aborted.
	MaxErrors int `json:"max_errors" yaml:"max_errors"`
	// OptimizerConcurrency is the number of training examples bootstrapped in parallel.
	OptimizerConcurrency int `json:"optimizer_concurrency" yaml:"optimizer_concurrency"`
	// DebugChunks saves every raw provider chunk under debug/chunks.
	DebugChunks bool `json:"debug_chunks" yaml:"debug_chunks"`
	// ShowMonitor prints one line per operation to stdout.
	ShowMonitor bool `json:"show_monitor" yaml:"show_monitor"`
	// LogLevel sets the minimum severity: "debug", "info", "warn", "error".
	LogLevel string `json:"log_level" yaml:"log_level"`
}

// DefaultSystemConfig returns the settings used when system.json is missing
// or unreadable.
func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		Addr:                 ":8000",
		ReadTimeoutMs:        30000,
		LLMTimeoutMs:         120000,
		OllamaDefaultURL:     "http://localhost:11434",
		DefaultMaxTokens:     1000,
		DefaultTemperature:   0.0,
		DefaultMaxBootstraps: 4,
		MaxLabeledDemos:      16,
		MaxErrors:            10,
		OptimizerConcurrency: 4,
		ShowMonitor:          true,
		LogLevel:             "info",
	}
}

// Load reads and validates the application config at path.
// A missing file is an error; callers decide whether to fall back to an empty config.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file '%s' not found", path)
	}

	var cfg Config
	if err := decodeFile(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadSystemConfig loads system settings over the defaults. Read or parse
// failures leave the defaults in place. PORT, when set, overrides the port of Addr.
func LoadSystemConfig(path string) *SystemConfig {
	cfg := DefaultSystemConfig()

	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			cfg = DefaultSystemConfig()
		}
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.Addr = ":" + port
	}
	return cfg
}

func decodeFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	default:
		if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	return nil
}
