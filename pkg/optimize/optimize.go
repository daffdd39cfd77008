// Package optimize compiles modules into few-shot programs using labeled
// examples and a metric.
package optimize

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"promptgate/pkg/config"
	"promptgate/pkg/metric"
	"promptgate/pkg/predict"
	"promptgate/pkg/signature"
)

var (
	// ErrUnsupported is returned for optimizer names with no registered factory.
	ErrUnsupported = errors.New("unsupported optimizer")
	// ErrInvalidTrainset is returned when the training data cannot be used.
	ErrInvalidTrainset = errors.New("invalid training data")
	// ErrTooManyErrors is returned when model calls fail past the error budget.
	ErrTooManyErrors = errors.New("too many failed model calls")
)

// DefaultOptimizer is used when a request names no optimizer.
const DefaultOptimizer = "BootstrapFewShot"

// Optimizer compiles a student module. It returns the compiled module and
// the number of bootstrapped demos it holds.
type Optimizer interface {
	Compile(ctx context.Context, student *predict.Module, score metric.Func, trainset []predict.Example, maxBootstraps int) (*predict.Module, int, error)
}

// Settings tune every optimizer built by a Registry.
type Settings struct {
	MaxLabeledDemos int
	MaxErrors       int
	Concurrency     int
}

// SettingsFrom reads the optimizer knobs of the system config.
func SettingsFrom(sys *config.SystemConfig) Settings {
	return Settings{
		MaxLabeledDemos: sys.MaxLabeledDemos,
		MaxErrors:       sys.MaxErrors,
		Concurrency:     sys.OptimizerConcurrency,
	}
}

// Factory builds an optimizer that calls the model through reasoner.
type Factory func(reasoner predict.Reasoner, settings Settings) Optimizer

// Registry maps optimizer names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a registry holding BootstrapFewShot.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register(DefaultOptimizer, NewBootstrapFewShot)
	return r
}

// Register adds or replaces a factory.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Get returns the factory for name; an empty name selects DefaultOptimizer.
func (r *Registry) Get(name string) (Factory, error) {
	if name == "" {
		name = DefaultOptimizer
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnsupported, name, strings.Join(r.namesLocked(), ", "))
	}
	return f, nil
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks training data before any model call is made.
func Validate(def signature.Definition, trainset []predict.Example, maxBootstraps int) error {
	if maxBootstraps <= 0 {
		return fmt.Errorf("%w: max_bootstraps must be positive, got %d", ErrInvalidTrainset, maxBootstraps)
	}
	if len(trainset) == 0 {
		return fmt.Errorf("%w: train_data is empty", ErrInvalidTrainset)
	}
	fields := def.Fields()
	for i, ex := range trainset {
		var missing []string
		for _, f := range fields {
			if v, ok := ex[f]; !ok || v == nil {
				missing = append(missing, f)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("%w: example %d is missing field(s) %s", ErrInvalidTrainset, i, strings.Join(missing, ", "))
		}
	}
	return nil
}
