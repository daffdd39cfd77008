package llm

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Options are the provider-neutral generation settings. Providers map them
// to their native parameters and ignore what they do not support.
type Options struct {
	Temperature    *float64       `mapstructure:"temperature" json:"temperature,omitempty"`
	TopP           *float64       `mapstructure:"top_p" json:"top_p,omitempty"`
	MaxTokens      int            `mapstructure:"max_tokens" json:"max_tokens,omitempty"`
	ThinkingEffort string         `mapstructure:"thinking_effort" json:"thinking_effort,omitempty"` // "off", "low", "medium", "high"
	Extra          map[string]any `mapstructure:",remain" json:"extra,omitempty"`
}

// DecodeOptions converts a free-form options object into Options.
// Numbers given as strings are accepted.
func DecodeOptions(raw map[string]any) (Options, error) {
	var opts Options
	if len(raw) == 0 {
		return opts, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &opts,
	})
	if err != nil {
		return opts, err
	}
	if err := dec.Decode(raw); err != nil {
		return opts, fmt.Errorf("decode options: %w", err)
	}
	return opts, nil
}

// Merge returns o overridden by every field set in over.
func (o Options) Merge(over Options) Options {
	out := o
	if over.Temperature != nil {
		out.Temperature = over.Temperature
	}
	if over.TopP != nil {
		out.TopP = over.TopP
	}
	if over.MaxTokens > 0 {
		out.MaxTokens = over.MaxTokens
	}
	if over.ThinkingEffort != "" {
		out.ThinkingEffort = over.ThinkingEffort
	}
	if len(over.Extra) > 0 {
		extra := make(map[string]any, len(o.Extra)+len(over.Extra))
		for k, v := range o.Extra {
			extra[k] = v
		}
		for k, v := range over.Extra {
			extra[k] = v
		}
		out.Extra = extra
	}
	return out
}

// ThinkingEnabled reports whether a thinking effort other than "off" is set.
func (o Options) ThinkingEnabled() bool {
	return o.ThinkingEffort != "" && o.ThinkingEffort != "off"
}
