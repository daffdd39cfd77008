package predict

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"promptgate/pkg/llm"
)

// LMReasoner runs modules against a language model client. Each call is a
// single attempt bounded by Timeout.
type LMReasoner struct {
	Client  llm.LLMClient
	Timeout time.Duration
}

// NewLMReasoner returns a reasoner over client with a per-call timeout.
// A zero timeout leaves the deadline to the caller's context.
func NewLMReasoner(client llm.LLMClient, timeout time.Duration) *LMReasoner {
	return &LMReasoner{Client: client, Timeout: timeout}
}

func (r *LMReasoner) Run(ctx context.Context, m *Module, inputs map[string]any) (Prediction, error) {
	sig := m.Effective()
	if missing := missingFields(sig.Inputs, inputs); len(missing) > 0 {
		slog.WarnContext(ctx, "Missing input fields", "signature", sig.Name, "fields", missing)
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	start := time.Now()
	completion, err := llm.Collect(ctx, r.Client, FormatMessages(m, inputs))
	if err != nil {
		return Prediction{}, fmt.Errorf("%s call: %w", r.Client.Provider(), err)
	}
	for _, w := range completion.Warnings {
		slog.WarnContext(ctx, "Provider warning", "provider", r.Client.Provider(), "warning", w)
	}

	split := SplitThink(completion.Text)
	outputs, err := ParseCompletion(sig.Outputs, split.Content)
	if err != nil {
		return Prediction{}, err
	}

	pred := Prediction{Outputs: outputs}
	if s, ok := outputs[ReasoningField].(string); ok && m.Kind == KindChainOfThought {
		pred.Reasoning = s
	} else {
		pred.Reasoning = joinNonEmpty(strings.TrimSpace(completion.Thinking), split.Reasoning)
	}

	slog.DebugContext(ctx, "Module run",
		"signature", sig.Name,
		"kind", m.Kind.String(),
		"demos", len(m.Demos),
		"took", time.Since(start),
	)
	return pred, nil
}

func missingFields(fields []string, values map[string]any) []string {
	var missing []string
	for _, f := range fields {
		if _, ok := values[f]; !ok {
			missing = append(missing, f)
		}
	}
	return missing
}

func joinNonEmpty(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}
