package predict

import (
	"context"
	"time"

	"promptgate/pkg/signature"
)

// Example is one labeled record, field name to value.
type Example map[string]any

// Has reports whether every field is present with a non-nil value.
func (e Example) Has(fields []string) bool {
	for _, f := range fields {
		if v, ok := e[f]; !ok || v == nil {
			return false
		}
	}
	return true
}

// Pick returns a copy holding only fields present in e.
func (e Example) Pick(fields []string) Example {
	out := make(Example, len(fields))
	for _, f := range fields {
		if v, ok := e[f]; ok {
			out[f] = v
		}
	}
	return out
}

// Prediction is the structured result of one module run.
type Prediction struct {
	// Outputs holds every output field of the module's effective signature.
	Outputs map[string]any
	// Reasoning is the chain-of-thought field, or the model's native
	// thinking when the module has no reasoning field.
	Reasoning string
}

// Module is a runnable strategy bound to a signature. Compiled modules
// carry few-shot demos and the ID they were registered under.
type Module struct {
	ID        string
	Signature signature.Definition
	Kind      Kind
	Demos     []Example
	CreatedAt time.Time
}

// New returns a fresh module without demos.
func New(def signature.Definition, kind Kind) *Module {
	return &Module{Signature: def, Kind: kind}
}

// Effective returns the signature the model is actually asked to fill.
func (m *Module) Effective() signature.Definition {
	if m.Kind == KindChainOfThought {
		return m.Signature.WithPrefixedOutput(ReasoningField)
	}
	return m.Signature
}

// Clone returns a deep copy of the module and its demos.
func (m *Module) Clone() *Module {
	out := *m
	out.Demos = make([]Example, len(m.Demos))
	for i, d := range m.Demos {
		cp := make(Example, len(d))
		for k, v := range d {
			cp[k] = v
		}
		out.Demos[i] = cp
	}
	return &out
}

// Reasoner runs a module against inputs. Implementations must be safe for
// concurrent use.
type Reasoner interface {
	Run(ctx context.Context, m *Module, inputs map[string]any) (Prediction, error)
}

// ReasonerFunc adapts a function to Reasoner.
type ReasonerFunc func(ctx context.Context, m *Module, inputs map[string]any) (Prediction, error)

func (f ReasonerFunc) Run(ctx context.Context, m *Module, inputs map[string]any) (Prediction, error) {
	return f(ctx, m, inputs)
}
