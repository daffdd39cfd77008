package llm

import (
	"sort"
	"sync"

	"promptgate/pkg/config"
)

// ProviderConfig is the resolved input of a ProviderFactory: one provider
// endpoint bound to one model.
type ProviderConfig struct {
	Name    string // provider name as requested, e.g. "groq"
	Type    string // factory type, e.g. "openai"
	Model   string // bare model name sent to the provider
	APIKey  string
	BaseURL string
	Options Options
}

// ProviderFactory builds a client for one provider type.
type ProviderFactory interface {
	Create(cfg ProviderConfig, system *config.SystemConfig) (LLMClient, error)
}

// FactoryFunc adapts a plain function to ProviderFactory.
type FactoryFunc func(cfg ProviderConfig, system *config.SystemConfig) (LLMClient, error)

func (f FactoryFunc) Create(cfg ProviderConfig, system *config.SystemConfig) (LLMClient, error) {
	return f(cfg, system)
}

// Registry maps provider types to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
	keyless   map[string]bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]ProviderFactory),
		keyless:   make(map[string]bool),
	}
}

// Register adds or replaces a factory.
func (r *Registry) Register(name string, factory ProviderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// RegisterKeyless adds a factory whose clients need no API key.
func (r *Registry) RegisterKeyless(name string, factory ProviderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
	r.keyless[name] = true
}

// Get returns the factory for a provider type.
func (r *Registry) Get(name string) (ProviderFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

// Keyless reports whether the provider type works without an API key.
func (r *Registry) Keyless(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.keyless[name]
}

// Names lists registered provider types in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// defaultRegistry is filled by provider packages from init().
var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// RegisterProvider registers a factory in the default registry.
func RegisterProvider(name string, factory ProviderFactory) {
	defaultRegistry.Register(name, factory)
}

// RegisterKeylessProvider registers a key-free factory in the default registry.
func RegisterKeylessProvider(name string, factory ProviderFactory) {
	defaultRegistry.RegisterKeyless(name, factory)
}

// GetProviderFactory looks a factory up in the default registry.
func GetProviderFactory(name string) (ProviderFactory, bool) {
	return defaultRegistry.Get(name)
}
