package gemini

import (
	"context"

	"promptgate/pkg/config"
	"promptgate/pkg/llm"
)

// GeminiFactory handles creation of Gemini clients.
type GeminiFactory struct{}

// Create implements llm.ProviderFactory.
func (f *GeminiFactory) Create(cfg llm.ProviderConfig, sys *config.SystemConfig) (llm.LLMClient, error) {
	client, err := NewGeminiClient(context.Background(), cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Options)
	if err != nil {
		return nil, err
	}
	if sys != nil {
		client.SetDebug(sys.DebugChunks)
	}
	return client, nil
}

func init() {
	llm.RegisterProvider("gemini", &GeminiFactory{})
}
