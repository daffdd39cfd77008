package channels

import (
	"errors"
	"testing"

	"promptgate/pkg/api"
	"promptgate/pkg/config"
)

type namedChannel string

func (c namedChannel) ID() string                     { return string(c) }
func (c namedChannel) Start(api.ChannelContext) error { return nil }
func (c namedChannel) Stop() error                    { return nil }

func TestLoad(t *testing.T) {
	RegisterChannel("test-ok", FactoryFunc(func(opts map[string]any, _ *config.SystemConfig) (api.Channel, error) {
		return namedChannel("ok:" + opts["tag"].(string)), nil
	}))
	RegisterChannel("test-off", FactoryFunc(func(map[string]any, *config.SystemConfig) (api.Channel, error) {
		return nil, nil
	}))
	RegisterChannel("test-broken", FactoryFunc(func(map[string]any, *config.SystemConfig) (api.Channel, error) {
		return nil, errors.New("boom")
	}))

	got := Load(map[string]map[string]any{
		"test-ok":     {"tag": "a"},
		"test-off":    {},
		"test-broken": {},
		"missing":     {},
	}, config.DefaultSystemConfig())

	if len(got) != 1 || got[0].ID() != "ok:a" {
		t.Fatalf("Load = %v", got)
	}
}
