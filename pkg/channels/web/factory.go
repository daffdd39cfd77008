package web

import (
	"fmt"

	"promptgate/pkg/api"
	"promptgate/pkg/channels"
	"promptgate/pkg/config"

	"github.com/mitchellh/mapstructure"
)

// DefaultPort is used when the channel options omit "port".
const DefaultPort = 8081

// WebFactory builds the websocket channel from its config options.
type WebFactory struct{}

// Create implements channels.ChannelFactory. {"enabled": false} turns the
// channel off without removing its block.
func (f *WebFactory) Create(options map[string]any, _ *config.SystemConfig) (api.Channel, error) {
	var opts struct {
		WebConfig `mapstructure:",squash"`
		Enabled   *bool `mapstructure:"enabled"`
	}
	opts.Port = DefaultPort

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &opts,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(options); err != nil {
		return nil, fmt.Errorf("failed to parse web config: %w", err)
	}
	if opts.Enabled != nil && !*opts.Enabled {
		return nil, nil
	}
	if opts.Port < 0 || opts.Port > 65535 {
		return nil, fmt.Errorf("web channel port %d out of range", opts.Port)
	}

	return NewWebChannel(opts.WebConfig), nil
}

func init() {
	channels.RegisterChannel("web", &WebFactory{})
}
