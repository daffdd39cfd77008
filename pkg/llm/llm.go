package llm

import (
	"context"
	"log/slog"

	jsoniter "github.com/json-iterator/go"
)

// json is used for JSON handling inside package llm; all packages share json-iterator.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// LLMUsage is the provider-neutral token accounting of one call.
type LLMUsage struct {
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	ThoughtsTokens   int    `json:"thoughts_tokens,omitempty"`
	CachedTokens     int    `json:"cached_tokens,omitempty"`
	StopReason       string `json:"stop_reason,omitempty"`
}

// LogUsage logs the usage of one call at debug level.
func LogUsage(ctx context.Context, model string, usage *LLMUsage) {
	if usage == nil {
		return
	}
	slog.DebugContext(ctx, "LLM usage",
		"model", model,
		"prompt_tokens", usage.PromptTokens,
		"completion_tokens", usage.CompletionTokens,
		"total_tokens", usage.TotalTokens,
		"thoughts_tokens", usage.ThoughtsTokens,
		"cached_tokens", usage.CachedTokens,
		"stop_reason", usage.StopReason,
	)
}

// LLMClient is the provider-neutral chat client every provider implements.
type LLMClient interface {
	// StreamChat sends the conversation and returns a channel of incremental
	// chunks. The channel is closed after the final chunk or an error chunk.
	StreamChat(ctx context.Context, messages []Message) (<-chan StreamChunk, error)

	// Provider returns the provider type name, e.g. "openai".
	Provider() string
}
