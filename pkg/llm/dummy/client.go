// Package dummy provides a key-free provider that answers every call with
// the same fixed fields. It is meant for wiring tests and demos.
package dummy

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"promptgate/pkg/config"
	"promptgate/pkg/llm"

	"github.com/mitchellh/mapstructure"
)

// DefaultFields are answered when options.fields is not set.
var DefaultFields = map[string]string{
	"reasoning": "because",
	"answer":    "42",
}

// Client streams a fixed completion in the field-marker format.
type Client struct {
	fields map[string]string
}

// NewClient builds a client answering fields, or DefaultFields when empty.
func NewClient(fields map[string]string) *Client {
	if len(fields) == 0 {
		fields = DefaultFields
	}
	return &Client{fields: fields}
}

func (c *Client) Provider() string { return "dummy" }

// Completion renders the fixed answer.
func (c *Client) Completion() string {
	names := make([]string, 0, len(c.fields))
	for name := range c.fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		fmt.Fprintf(&sb, "[[ ## %s ## ]]\n%s\n\n", name, c.fields[name])
	}
	sb.WriteString("[[ ## completed ## ]]")
	return sb.String()
}

func (c *Client) StreamChat(ctx context.Context, messages []llm.Message) (<-chan llm.StreamChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch := make(chan llm.StreamChunk, 2)
	ch <- llm.NewTextChunk(c.Completion())
	ch <- llm.NewFinalChunk(llm.StopReasonStop, &llm.LLMUsage{StopReason: llm.StopReasonStop})
	close(ch)
	return ch, nil
}

// Factory builds dummy clients; options.fields overrides the answer.
type Factory struct{}

// Create implements llm.ProviderFactory.
func (Factory) Create(cfg llm.ProviderConfig, _ *config.SystemConfig) (llm.LLMClient, error) {
	var opts struct {
		Fields map[string]string `mapstructure:"fields"`
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &opts,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(cfg.Options.Extra); err != nil {
		return nil, fmt.Errorf("dummy options: %w", err)
	}
	return NewClient(opts.Fields), nil
}

func init() {
	llm.RegisterKeylessProvider("dummy", Factory{})
}
