package channels

import (
	"sort"
	"sync"

	"promptgate/pkg/api"
	"promptgate/pkg/config"
)

// ChannelFactory creates a transport from its option object in config.json.
// This lets new transports be added without touching the gateway.
type ChannelFactory interface {
	// Create returns the channel, or nil when the options leave it disabled.
	Create(options map[string]any, system *config.SystemConfig) (api.Channel, error)
}

// FactoryFunc adapts a function to ChannelFactory.
type FactoryFunc func(options map[string]any, system *config.SystemConfig) (api.Channel, error)

func (f FactoryFunc) Create(options map[string]any, system *config.SystemConfig) (api.Channel, error) {
	return f(options, system)
}

var (
	mu              sync.RWMutex
	channelRegistry = make(map[string]ChannelFactory)
)

// RegisterChannel adds a factory under a channel name ("web").
// This is typically called during the package's init() phase.
func RegisterChannel(name string, factory ChannelFactory) {
	mu.Lock()
	defer mu.Unlock()
	channelRegistry[name] = factory
}

// GetChannelFactory retrieves a registered ChannelFactory by name.
func GetChannelFactory(name string) (ChannelFactory, bool) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := channelRegistry[name]
	return f, ok
}

// Names lists the registered channel names in order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(channelRegistry))
	for name := range channelRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
