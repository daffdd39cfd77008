package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"promptgate/pkg/llm"

	"google.golang.org/genai"
)

// GeminiClient Google Gemini API client
type GeminiClient struct {
	client       *genai.Client
	model        string
	config       *genai.GenerateContentConfig
	debugEnabled bool
}

// SetDebug toggles raw chunk dumps under debug/chunks.
func (g *GeminiClient) SetDebug(enabled bool) {
	g.debugEnabled = enabled
}

// NewGeminiClient creates a Gemini client bound to one model and API key.
func NewGeminiClient(ctx context.Context, apiKey, model, baseURL string, opts llm.Options) (*GeminiClient, error) {
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions.BaseURL = baseURL
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		model:  model,
		config: generateConfig(opts),
	}, nil
}

// generateConfig maps llm.Options onto the per-call Gemini config.
func generateConfig(o llm.Options) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if o.Temperature != nil {
		t := float32(*o.Temperature)
		cfg.Temperature = &t
	}
	if o.TopP != nil {
		p := float32(*o.TopP)
		cfg.TopP = &p
	}
	if o.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(o.MaxTokens)
	}
	if o.ThinkingEnabled() {
		cfg.ThinkingConfig = &genai.ThinkingConfig{IncludeThoughts: true}
	}
	return cfg
}

func (g *GeminiClient) Provider() string {
	return "gemini"
}

// StreamChat implements llm.LLMClient.StreamChat
func (g *GeminiClient) StreamChat(ctx context.Context, messages []llm.Message) (<-chan llm.StreamChunk, error) {
	contents, systemInstruction := convertMessages(messages)

	cfg := *g.config
	cfg.SystemInstruction = systemInstruction

	chunkCh := make(chan llm.StreamChunk, 100)

	slog.DebugContext(ctx, "Streaming", "provider", "gemini", "model", g.model)

	go func() {
		defer close(chunkCh)

		debugger := llm.NewStreamDebugger(ctx, "gemini", g.debugEnabled)
		defer debugger.Close()

		var lastUsage *llm.LLMUsage
		stopReason := llm.StopReasonStop

		for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, contents, &cfg) {
			if resp != nil {
				debugger.WriteJSON(resp)
			}
			if err != nil {
				// the SDK may return data together with the error
				if resp == nil {
					slog.ErrorContext(ctx, "Stream error", "provider", "gemini", "model", g.model, "error", err)
					chunkCh <- llm.NewErrorChunk(fmt.Sprintf("gemini %s: %v", g.model, err), err, true)
					return
				}
				slog.WarnContext(ctx, "Stream error with data", "provider", "gemini", "error", err)
			}

			if u := resp.UsageMetadata; u != nil {
				lastUsage = &llm.LLMUsage{
					PromptTokens:     int(u.PromptTokenCount),
					CompletionTokens: int(u.CandidatesTokenCount),
					TotalTokens:      int(u.TotalTokenCount),
					ThoughtsTokens:   int(u.ThoughtsTokenCount),
					CachedTokens:     int(u.CachedContentTokenCount),
				}
			}

			for _, candidate := range resp.Candidates {
				if candidate.FinishReason != "" {
					stopReason = normalizeStopReason(candidate.FinishReason)
					if stopReason == llm.StopReasonLength {
						chunkCh <- llm.NewErrorChunk("response truncated due to max tokens limit", nil, false)
					}
				}
				if candidate.Content == nil {
					continue
				}

				var blocks []llm.ContentBlock
				for _, part := range candidate.Content.Parts {
					if part.Text == "" {
						continue
					}
					if part.Thought {
						blocks = append(blocks, llm.NewThinkingBlock(part.Text))
					} else {
						blocks = append(blocks, llm.NewTextBlock(part.Text))
					}
				}
				if len(blocks) > 0 {
					chunkCh <- llm.StreamChunk{ContentBlocks: blocks}
				}
			}
		}

		if lastUsage != nil {
			lastUsage.StopReason = stopReason
		}
		llm.LogUsage(ctx, g.model, lastUsage)
		chunkCh <- llm.NewFinalChunk(stopReason, lastUsage)
	}()

	return chunkCh, nil
}

func normalizeStopReason(reason genai.FinishReason) string {
	switch reason {
	case genai.FinishReasonStop:
		return llm.StopReasonStop
	case genai.FinishReasonMaxTokens:
		return llm.StopReasonLength
	default:
		return strings.ToLower(string(reason))
	}
}

// convertMessages splits system turns into the system instruction and maps
// assistant turns to the "model" role.
func convertMessages(messages []llm.Message) ([]*genai.Content, *genai.Content) {
	var contents []*genai.Content
	var systemInstruction *genai.Content

	for _, msg := range messages {
		if msg.Role == llm.RoleSystem {
			if text := msg.GetTextContent(); text != "" {
				systemInstruction = &genai.Content{Parts: []*genai.Part{{Text: text}}}
			}
			continue
		}

		role := "user"
		if msg.Role == llm.RoleAssistant {
			role = "model"
		}

		var parts []*genai.Part
		for _, block := range msg.Content {
			if block.Text == "" {
				continue
			}
			switch block.Type {
			case llm.BlockTypeText:
				parts = append(parts, &genai.Part{Text: block.Text})
			case llm.BlockTypeThinking:
				parts = append(parts, &genai.Part{Text: block.Text, Thought: true})
			}
		}
		if len(parts) > 0 {
			contents = append(contents, &genai.Content{Role: role, Parts: parts})
		}
	}

	return contents, systemInstruction
}
