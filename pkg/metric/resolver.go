package metric

import (
	"fmt"
	"sort"
	"sync"
)

// Resolver looks metrics up by name: builtins first, then expressions
// loaded from configuration.
type Resolver struct {
	mu     sync.RWMutex
	custom map[string]Func
}

// NewResolver compiles the configured expressions. Names that collide with
// a builtin are rejected.
func NewResolver(exprs map[string]string) (*Resolver, error) {
	r := &Resolver{}
	if err := r.Replace(exprs); err != nil {
		return nil, err
	}
	return r, nil
}

// Resolve returns the metric registered under name.
func (r *Resolver) Resolve(name string) (Func, error) {
	if f, ok := builtins[name]; ok {
		return f, nil
	}
	r.mu.RLock()
	f, ok := r.custom[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
	}
	return f, nil
}

// Replace swaps the whole expression set. On error the previous set stays.
func (r *Resolver) Replace(exprs map[string]string) error {
	custom := make(map[string]Func, len(exprs))
	for name, src := range exprs {
		if _, ok := builtins[name]; ok {
			return fmt.Errorf("metric %q shadows a builtin", name)
		}
		f, err := CompileExpr(src)
		if err != nil {
			return fmt.Errorf("metric %q: %w", name, err)
		}
		custom[name] = f
	}
	r.mu.Lock()
	r.custom = custom
	r.mu.Unlock()
	return nil
}

// Names lists every resolvable metric in sorted order.
func (r *Resolver) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(builtins)+len(r.custom))
	for name := range builtins {
		names = append(names, name)
	}
	for name := range r.custom {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
