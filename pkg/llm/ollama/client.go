package ollama

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"promptgate/pkg/llm"

	jsoniter "github.com/json-iterator/go"
	"github.com/ollama/ollama/api"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// OllamaClient talks to a local or remote Ollama server.
type OllamaClient struct {
	client       *api.Client
	model        string
	options      map[string]any
	debugEnabled bool
}

// SetDebug toggles raw chunk dumps under debug/chunks.
func (o *OllamaClient) SetDebug(enabled bool) {
	o.debugEnabled = enabled
}

// NewOllamaClient creates an Ollama client for baseURL.
func NewOllamaClient(model, baseURL string, options llm.Options) (*OllamaClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}

	// No overall client timeout; callers bound each call through ctx.
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	httpClient := &http.Client{
		Transport: &JSONFixingRoundTripper{Proxied: transport},
	}

	slog.Info("Ollama client initialized", "model", model, "base_url", baseURL)

	return &OllamaClient{
		client:  api.NewClient(u, httpClient),
		model:   model,
		options: nativeOptions(options),
	}, nil
}

// nativeOptions maps llm.Options onto Ollama's option names.
func nativeOptions(o llm.Options) map[string]any {
	out := make(map[string]any, len(o.Extra)+3)
	for k, v := range o.Extra {
		out[k] = v
	}
	if o.Temperature != nil {
		out["temperature"] = *o.Temperature
	}
	if o.TopP != nil {
		out["top_p"] = *o.TopP
	}
	if o.MaxTokens > 0 {
		out["num_predict"] = o.MaxTokens
	}
	return out
}

func (o *OllamaClient) Provider() string {
	return "ollama"
}

func (o *OllamaClient) StreamChat(ctx context.Context, messages []llm.Message) (<-chan llm.StreamChunk, error) {
	chunkCh := make(chan llm.StreamChunk, 100)

	streamVal := true
	req := &api.ChatRequest{
		Model:    o.model,
		Messages: convertMessages(messages),
		Options:  o.options,
		Stream:   &streamVal,
	}

	go func() {
		defer close(chunkCh)

		debugger := llm.NewStreamDebugger(ctx, "ollama", o.debugEnabled)
		defer debugger.Close()

		var thoughtsCount, chunkIdx int
		err := o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
			chunkIdx++
			debugger.WriteJSON(resp)

			if resp.Message.Thinking != "" {
				thoughtsCount++
				chunkCh <- llm.NewThinkingChunk(resp.Message.Thinking)
			}
			if resp.Message.Content != "" {
				chunkCh <- llm.NewTextChunk(resp.Message.Content)
			}

			if resp.Done {
				usage := &llm.LLMUsage{
					PromptTokens:     resp.PromptEvalCount,
					CompletionTokens: resp.EvalCount,
					TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
					ThoughtsTokens:   thoughtsCount,
					StopReason:       resp.DoneReason,
				}
				if resp.DoneReason == llm.StopReasonLength {
					slog.WarnContext(ctx, "Response truncated due to length", "provider", "ollama")
					chunkCh <- llm.NewErrorChunk("response truncated", nil, false)
				}
				llm.LogUsage(ctx, o.model, usage)
				chunkCh <- llm.NewFinalChunk(resp.DoneReason, usage)
			}
			return nil
		})
		if err != nil {
			slog.ErrorContext(ctx, "Stream error", "provider", "ollama", "model", o.model, "chunks", chunkIdx, "error", err)
			chunkCh <- llm.NewErrorChunk(fmt.Sprintf("ollama %s: %v", o.model, err), err, true)
		}
	}()

	return chunkCh, nil
}

func convertMessages(messages []llm.Message) []api.Message {
	out := make([]api.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, api.Message{
			Role:    m.Role,
			Content: m.GetTextContent(),
		})
	}
	return out
}
