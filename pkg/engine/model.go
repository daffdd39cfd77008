package engine

import (
	"sync/atomic"
	"time"

	"promptgate/pkg/llm"
)

// Model is one configured language model.
type Model struct {
	Provider     string
	Name         string // qualified, e.g. "openai/gpt-4o-mini"
	Client       llm.LLMClient
	ConfiguredAt time.Time
}

// ModelHolder is the single process-wide model slot. Set replaces the
// previous model wholesale.
type ModelHolder struct {
	p atomic.Pointer[Model]
}

func (h *ModelHolder) Set(m *Model) {
	h.p.Store(m)
}

// Get returns nil while unconfigured.
func (h *ModelHolder) Get() *Model {
	return h.p.Load()
}
