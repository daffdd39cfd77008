package llm

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"promptgate/pkg/config"
)

type stubClient struct {
	chunks []StreamChunk
	err    error
}

func (s *stubClient) StreamChat(ctx context.Context, _ []Message) (<-chan StreamChunk, error) {
	if s.err != nil {
		return nil, s.err
	}
	ch := make(chan StreamChunk, len(s.chunks))
	for _, c := range s.chunks {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func (s *stubClient) Provider() string { return "stub" }

func TestCollect(t *testing.T) {
	t.Parallel()

	client := &stubClient{chunks: []StreamChunk{
		NewThinkingChunk("let me "),
		NewThinkingChunk("think"),
		NewTextChunk("[[ ## answer ## ]]\n"),
		NewErrorChunk("truncated", nil, false),
		NewTextChunk("4"),
		NewFinalChunk(StopReasonStop, &LLMUsage{TotalTokens: 7}),
	}}

	out, err := Collect(context.Background(), client, []Message{NewUserMessage("2+2?")})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if out.Text != "[[ ## answer ## ]]\n4" {
		t.Fatalf("text = %q", out.Text)
	}
	if out.Thinking != "let me think" {
		t.Fatalf("thinking = %q", out.Thinking)
	}
	if out.FinishReason != StopReasonStop || out.Usage == nil || out.Usage.TotalTokens != 7 {
		t.Fatalf("final = %q %+v", out.FinishReason, out.Usage)
	}
	if len(out.Warnings) != 1 || out.Warnings[0] != "truncated" {
		t.Fatalf("warnings = %v", out.Warnings)
	}
}

func TestCollectFatalChunk(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	client := &stubClient{chunks: []StreamChunk{
		NewTextChunk("partial"),
		NewErrorChunk("stream error", boom, true),
	}}
	if _, err := Collect(context.Background(), client, nil); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	client = &stubClient{chunks: []StreamChunk{NewErrorChunk("failed", nil, true)}}
	if _, err := Collect(context.Background(), client, nil); err == nil || err.Error() != "failed" {
		t.Fatalf("err = %v, want synthesized error", err)
	}

	client = &stubClient{err: boom}
	if _, err := Collect(context.Background(), client, nil); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}

func TestCollectCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	blocked := &blockingClient{ch: make(chan StreamChunk)}
	t.Cleanup(func() { close(blocked.ch) })
	if _, err := Collect(ctx, blocked, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

type blockingClient struct {
	ch chan StreamChunk
}

func (b *blockingClient) StreamChat(context.Context, []Message) (<-chan StreamChunk, error) {
	return b.ch, nil
}

func (b *blockingClient) Provider() string { return "blocking" }

func TestMessageText(t *testing.T) {
	t.Parallel()

	m := Message{Role: RoleAssistant, Content: []ContentBlock{
		NewThinkingBlock("hmm"),
		NewTextBlock("a"),
		NewTextBlock("b"),
	}}
	if got := m.GetTextContent(); got != "ab" {
		t.Fatalf("text = %q", got)
	}
	if got := m.GetThinkingContent(); got != "hmm" {
		t.Fatalf("thinking = %q", got)
	}
}

func TestDecodeOptions(t *testing.T) {
	t.Parallel()

	opts, err := DecodeOptions(map[string]any{
		"temperature":     "0.5",
		"max_tokens":      256.0,
		"thinking_effort": "low",
		"seed":            7,
	})
	if err != nil {
		t.Fatalf("DecodeOptions: %v", err)
	}
	if opts.Temperature == nil || *opts.Temperature != 0.5 {
		t.Fatalf("temperature = %v", opts.Temperature)
	}
	if opts.MaxTokens != 256 || opts.ThinkingEffort != "low" || !opts.ThinkingEnabled() {
		t.Fatalf("opts = %+v", opts)
	}
	if opts.Extra["seed"] != 7 {
		t.Fatalf("extra = %v", opts.Extra)
	}

	if _, err := DecodeOptions(map[string]any{"max_tokens": "lots"}); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestOptionsMerge(t *testing.T) {
	t.Parallel()

	low, high := 0.1, 0.9
	base := Options{Temperature: &low, MaxTokens: 100, Extra: map[string]any{"a": 1, "b": 1}}
	got := base.Merge(Options{Temperature: &high, Extra: map[string]any{"b": 2}})

	if *got.Temperature != 0.9 || got.MaxTokens != 100 {
		t.Fatalf("merged = %+v", got)
	}
	if got.Extra["a"] != 1 || got.Extra["b"] != 2 {
		t.Fatalf("extra = %v", got.Extra)
	}
	if base.Extra["b"] != 1 {
		t.Fatal("merge mutated the base")
	}
}

func TestModelNames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		provider, model, qualified, bare string
	}{
		{"openai", "gpt-4o-mini", "openai/gpt-4o-mini", "gpt-4o-mini"},
		{"openai", "openai/gpt-4o-mini", "openai/gpt-4o-mini", "gpt-4o-mini"},
		{"groq", "meta-llama/llama-3-8b", "meta-llama/llama-3-8b", "meta-llama/llama-3-8b"},
	}
	for _, tt := range tests {
		if got := QualifiedModel(tt.provider, tt.model); got != tt.qualified {
			t.Errorf("QualifiedModel(%q, %q) = %q, want %q", tt.provider, tt.model, got, tt.qualified)
		}
		if got := BareModel(tt.provider, tt.model); got != tt.bare {
			t.Errorf("BareModel(%q, %q) = %q, want %q", tt.provider, tt.model, got, tt.bare)
		}
	}
}

func TestResolveAPIKeyOrder(t *testing.T) {
	cfg := &config.Config{Providers: map[string]config.ProviderConfig{
		"my-llm": {APIKeys: []string{"from-config"}},
	}}

	if got := APIKeyEnvVar("my-llm"); got != "MY_LLM_API_KEY" {
		t.Fatalf("env var = %q", got)
	}

	t.Setenv("MY_LLM_API_KEY", "")
	if got := ResolveAPIKey("my-llm", "", cfg); got != "from-config" {
		t.Fatalf("config key = %q", got)
	}
	t.Setenv("MY_LLM_API_KEY", "from-env")
	if got := ResolveAPIKey("my-llm", "", cfg); got != "from-env" {
		t.Fatalf("env key = %q", got)
	}
	if got := ResolveAPIKey("my-llm", "from-request", cfg); got != "from-request" {
		t.Fatalf("request key = %q", got)
	}
}

func TestResolveAPIKeyFromDotEnv(t *testing.T) {
	// Registers the variable for restore on cleanup, then leaves it unset
	// so the dotenv file is allowed to provide it.
	t.Setenv("DOTENV_LLM_API_KEY", "")
	os.Unsetenv("DOTENV_LLM_API_KEY")

	dir := t.TempDir()
	if err := config.LoadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("missing file: %v", err)
	}

	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("# keys\nDOTENV_LLM_API_KEY=from-dotenv\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := config.LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := ResolveAPIKey("dotenv-llm", "", nil); got != "from-dotenv" {
		t.Fatalf("dotenv key = %q", got)
	}

	t.Setenv("DOTENV_LLM_API_KEY", "from-env")
	if err := config.LoadDotEnv(path); err != nil {
		t.Fatal(err)
	}
	if got := ResolveAPIKey("dotenv-llm", "", nil); got != "from-env" {
		t.Fatalf("process env should win, got %q", got)
	}
}

func TestRegistryNew(t *testing.T) {
	t.Setenv("COMPAT_API_KEY", "")
	t.Setenv("LOCAL_API_KEY", "")

	var got ProviderConfig
	reg := NewRegistry()
	reg.Register("openai", FactoryFunc(func(cfg ProviderConfig, _ *config.SystemConfig) (LLMClient, error) {
		got = cfg
		return &stubClient{}, nil
	}))
	reg.RegisterKeyless("local", FactoryFunc(func(cfg ProviderConfig, _ *config.SystemConfig) (LLMClient, error) {
		return &stubClient{}, nil
	}))

	cfg := &config.Config{Providers: map[string]config.ProviderConfig{
		"compat": {
			Type:    "openai",
			APIKeys: []string{"k"},
			BaseURL: "http://compat.local/v1",
			Options: map[string]any{"max_tokens": 50, "top_p": 0.8},
		},
	}}

	temp := 0.0
	_, pc, err := reg.New(Request{
		Provider: "compat",
		Model:    "compat/small",
		Defaults: Options{Temperature: &temp, MaxTokens: 1000},
		Options:  Options{ThinkingEffort: "low"},
	}, cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if pc.Type != "openai" || pc.Model != "small" || pc.APIKey != "k" || pc.BaseURL != "http://compat.local/v1" {
		t.Fatalf("resolved = %+v", pc)
	}
	if got.Options.MaxTokens != 50 || got.Options.TopP == nil || *got.Options.TopP != 0.8 ||
		*got.Options.Temperature != 0 || got.Options.ThinkingEffort != "low" {
		t.Fatalf("options = %+v", got.Options)
	}

	if _, _, err := reg.New(Request{Provider: "local", Model: "m"}, nil, nil); err != nil {
		t.Fatalf("keyless provider: %v", err)
	}

	_, _, err = reg.New(Request{Provider: "nope", Model: "m", APIKey: "k"}, nil, nil)
	if !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("err = %v, want ErrUnknownProvider", err)
	}

	t.Setenv("OPENAI_API_KEY", "")
	_, _, err = reg.New(Request{Provider: "openai", Model: "m"}, nil, nil)
	if !errors.Is(err, ErrMissingAPIKey) || !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Fatalf("err = %v, want ErrMissingAPIKey", err)
	}

	if names := reg.Names(); len(names) != 2 || names[0] != "local" || names[1] != "openai" {
		t.Fatalf("names = %v", names)
	}
}
