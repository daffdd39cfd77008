package channels

import (
	"log/slog"
	"sort"

	"promptgate/pkg/api"
	"promptgate/pkg/config"
)

// Load builds every configured channel. Unknown names and factory failures
// are logged and skipped so one bad transport does not keep the REST API down.
func Load(configs map[string]map[string]any, system *config.SystemConfig) []api.Channel {
	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []api.Channel
	for _, name := range names {
		factory, ok := GetChannelFactory(name)
		if !ok {
			slog.Warn("Unknown channel type", "name", name, "known", Names())
			continue
		}

		channel, err := factory.Create(configs[name], system)
		if err != nil {
			slog.Error("Failed to create channel", "name", name, "error", err)
			continue
		}
		if channel == nil {
			continue
		}

		out = append(out, channel)
		slog.Info("Channel loaded", "name", name)
	}
	return out
}
