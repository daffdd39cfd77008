package openailm

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"promptgate/pkg/llm"

	jsoniter "github.com/json-iterator/go"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client wraps the official OpenAI SDK over the Responses streaming API.
// It serves OpenAI and any compatible endpoint reachable through a base URL.
type Client struct {
	client       *openai.Client
	provider     string
	model        string
	debugEnabled bool
	options      llm.Options
}

// NewClient creates a new OpenAI client.
func NewClient(provider, apiKey, model, baseURL string, options llm.Options) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(opts...)

	return &Client{
		client:   &client,
		provider: provider,
		model:    model,
		options:  options,
	}
}

func (c *Client) Provider() string {
	return c.provider
}

func (c *Client) SetDebug(enabled bool) {
	c.debugEnabled = enabled
}

func (c *Client) StreamChat(ctx context.Context, messages []llm.Message) (<-chan llm.StreamChunk, error) {
	chunkCh := make(chan llm.StreamChunk, 100)

	params := responses.ResponseNewParams{
		Model: c.model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: convertMessages(messages),
		},
	}
	if c.options.ThinkingEnabled() {
		params.Reasoning = shared.ReasoningParam{
			Effort: reasoningEffort(c.options.ThinkingEffort),
		}
	}

	var opts []option.RequestOption
	if t := c.options.Temperature; t != nil {
		opts = append(opts, option.WithJSONSet("temperature", *t))
	}
	if p := c.options.TopP; p != nil {
		opts = append(opts, option.WithJSONSet("top_p", *p))
	}
	if c.options.MaxTokens > 0 {
		opts = append(opts, option.WithJSONSet("max_output_tokens", c.options.MaxTokens))
	}

	go func() {
		defer close(chunkCh)

		stream := c.client.Responses.NewStreaming(ctx, params, opts...)
		defer stream.Close()

		debugger := llm.NewStreamDebugger(ctx, c.provider, c.debugEnabled)
		defer debugger.Close()

		var lastFinishReason string
		var lastUsage *llm.LLMUsage
		var thinkingLog strings.Builder

		for stream.Next() {
			event := stream.Current()

			raw := rawJSON(event.JSON)
			if raw != "" {
				debugger.WriteString(raw)
			}

			// Compatible servers (DeepSeek, vLLM) put reasoning in ad-hoc fields.
			var rawChoice struct {
				Reasoning        string `json:"reasoning"`
				Thinking         string `json:"thinking"`
				ReasoningContent string `json:"reasoning_content"`
			}
			if raw != "" && json.Unmarshal([]byte(raw), &rawChoice) == nil {
				thought := rawChoice.Reasoning
				if thought == "" {
					thought = rawChoice.Thinking
				}
				if thought == "" {
					thought = rawChoice.ReasoningContent
				}
				if thought != "" {
					thinkingLog.WriteString(thought)
					chunkCh <- llm.NewThinkingChunk(thought)
				}
			}

			switch variant := event.AsAny().(type) {
			case responses.ResponseTextDeltaEvent:
				chunkCh <- llm.NewTextChunk(variant.Delta)

			case responses.ResponseReasoningTextDeltaEvent:
				thinkingLog.WriteString(variant.Delta)
				chunkCh <- llm.NewThinkingChunk(variant.Delta)

			case responses.ResponseReasoningSummaryTextDeltaEvent:
				thinkingLog.WriteString(variant.Delta)
				chunkCh <- llm.NewThinkingChunk(variant.Delta)

			case responses.ResponseCompletedEvent:
				lastFinishReason = "stop"
				if variant.Response.Usage.TotalTokens > 0 {
					lastUsage = &llm.LLMUsage{
						PromptTokens:     int(variant.Response.Usage.InputTokens),
						CompletionTokens: int(variant.Response.Usage.OutputTokens),
						TotalTokens:      int(variant.Response.Usage.TotalTokens),
						ThoughtsTokens:   int(variant.Response.Usage.OutputTokensDetails.ReasoningTokens),
						CachedTokens:     int(variant.Response.Usage.InputTokensDetails.CachedTokens),
						StopReason:       llm.StopReasonStop,
					}
				}

			case responses.ResponseFailedEvent:
				lastFinishReason = "failed"
				chunkCh <- llm.NewErrorChunk("API response failed", nil, true)

			case responses.ResponseIncompleteEvent:
				lastFinishReason = "length"
				chunkCh <- llm.NewErrorChunk("API response incomplete", nil, false)

			case responses.ResponseErrorEvent:
				chunkCh <- llm.NewErrorChunk(fmt.Sprintf("API error: %s", variant.Message), nil, true)
			}
		}
		if thinkingLog.Len() > 0 {
			slog.DebugContext(ctx, "Captured full thinking process", "provider", c.provider, "content", thinkingLog.String())
		}

		if err := stream.Err(); err != nil {
			chunkCh <- llm.NewErrorChunk(fmt.Sprintf("stream error: %v", err), err, true)
			return
		}
		if lastFinishReason == "failed" {
			return
		}
		reason := llm.StopReasonStop
		if lastFinishReason != "" {
			reason = normalizeStopReason(lastFinishReason)
		}
		if lastUsage != nil {
			lastUsage.StopReason = reason
		}
		llm.LogUsage(ctx, c.model, lastUsage)
		chunkCh <- llm.NewFinalChunk(reason, lastUsage)
	}()

	return chunkCh, nil
}

// rawJSON reads the unexported raw payload kept by the SDK's JSON metadata.
func rawJSON(meta any) string {
	rv := reflect.ValueOf(meta)
	if rv.Kind() != reflect.Struct {
		return ""
	}
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		if rt.Field(i).Name == "raw" {
			return rv.Field(i).String()
		}
	}
	return ""
}

func convertMessages(messages []llm.Message) []responses.ResponseInputItemUnionParam {
	items := make([]responses.ResponseInputItemUnionParam, 0, len(messages))

	for _, m := range messages {
		text := m.GetTextContent()
		switch m.Role {
		case llm.RoleSystem:
			items = append(items, responses.ResponseInputItemParamOfMessage(text, responses.EasyInputMessageRoleSystem))
		case llm.RoleUser:
			items = append(items, responses.ResponseInputItemParamOfMessage(text, responses.EasyInputMessageRoleUser))
		case llm.RoleAssistant:
			if text != "" {
				items = append(items, responses.ResponseInputItemParamOfMessage(text, responses.EasyInputMessageRoleAssistant))
			}
		}
	}

	return items
}

func reasoningEffort(s string) shared.ReasoningEffort {
	switch s {
	case "low":
		return shared.ReasoningEffortLow
	case "high":
		return shared.ReasoningEffortHigh
	default:
		return shared.ReasoningEffortMedium
	}
}

// normalizeStopReason converts OpenAI-specific finish_reason to
// a standardized lowercase format.
func normalizeStopReason(reason string) string {
	switch strings.ToLower(reason) {
	case "stop":
		return llm.StopReasonStop
	case "length":
		return llm.StopReasonLength
	default:
		return reason
	}
}
