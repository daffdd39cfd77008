package openailm

import (
	"promptgate/pkg/config"
	"promptgate/pkg/llm"
)

// OpenAIFactory handles creation of OpenAI and OpenAI-compatible clients.
type OpenAIFactory struct{}

// Create implements llm.ProviderFactory.
func (f *OpenAIFactory) Create(cfg llm.ProviderConfig, sys *config.SystemConfig) (llm.LLMClient, error) {
	client := NewClient(cfg.Name, cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Options)
	if sys != nil {
		client.SetDebug(sys.DebugChunks)
	}
	return client, nil
}

func init() {
	llm.RegisterProvider("openai", &OpenAIFactory{})
}
