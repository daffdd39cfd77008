package ollama

import (
	"promptgate/pkg/config"
	"promptgate/pkg/llm"
)

// OllamaFactory handles creation of Ollama clients.
type OllamaFactory struct{}

// Create implements llm.ProviderFactory. An empty base URL falls back to
// the system default.
func (f *OllamaFactory) Create(cfg llm.ProviderConfig, sys *config.SystemConfig) (llm.LLMClient, error) {
	if sys == nil {
		sys = config.DefaultSystemConfig()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = sys.OllamaDefaultURL
	}
	client, err := NewOllamaClient(cfg.Model, baseURL, cfg.Options)
	if err != nil {
		return nil, err
	}
	client.SetDebug(sys.DebugChunks)
	return client, nil
}

func init() {
	llm.RegisterKeylessProvider("ollama", &OllamaFactory{})
}
