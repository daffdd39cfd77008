package optimize

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"promptgate/pkg/metric"
	"promptgate/pkg/predict"
	"promptgate/pkg/signature"
)

func qaModule(t *testing.T, kind predict.Kind) *predict.Module {
	t.Helper()
	def, err := signature.Parse("question -> answer", "")
	if err != nil {
		t.Fatal(err)
	}
	def.Name = "qa"
	return predict.New(def, kind)
}

func exactMatch(t *testing.T) metric.Func {
	t.Helper()
	r, err := metric.NewResolver(nil)
	if err != nil {
		t.Fatal(err)
	}
	f, err := r.Resolve(metric.ExactMatch)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func trainset(n int) []predict.Example {
	out := make([]predict.Example, n)
	for i := range out {
		out[i] = predict.Example{"question": fmt.Sprintf("q%d", i), "answer": fmt.Sprintf("a%d", i)}
	}
	return out
}

func TestValidate(t *testing.T) {
	t.Parallel()

	def := qaModule(t, predict.KindPredict).Signature
	tests := []struct {
		name string
		data []predict.Example
		max  int
		ok   bool
	}{
		{"valid", trainset(2), 4, true},
		{"empty", nil, 4, false},
		{"zero bootstraps", trainset(2), 0, false},
		{"negative bootstraps", trainset(2), -1, false},
		{"missing output", []predict.Example{{"question": "q"}}, 1, false},
		{"nil input", []predict.Example{{"question": nil, "answer": "a"}}, 1, false},
	}
	for _, tt := range tests {
		err := Validate(def, tt.data, tt.max)
		if tt.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tt.name, err)
		}
		if !tt.ok && !errors.Is(err, ErrInvalidTrainset) {
			t.Errorf("%s: err = %v, want ErrInvalidTrainset", tt.name, err)
		}
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if _, err := r.Get(""); err != nil {
		t.Fatalf("default optimizer: %v", err)
	}
	if _, err := r.Get("BootstrapFewShot"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Get("MIPROv2"); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
}

func TestBootstrapFewShot(t *testing.T) {
	t.Parallel()

	correct := map[string]bool{"q0": true, "q2": true, "q3": true}
	var leaked atomic.Bool
	reasoner := predict.ReasonerFunc(func(ctx context.Context, m *predict.Module, inputs map[string]any) (predict.Prediction, error) {
		q := inputs["question"].(string)
		for _, d := range m.Demos {
			if d["question"] == q {
				leaked.Store(true)
			}
		}
		answer := "wrong"
		if correct[q] {
			answer = "a" + q[1:]
		}
		return predict.Prediction{
			Outputs:   map[string]any{"reasoning": "thought " + q, "answer": answer},
			Reasoning: "thought " + q,
		}, nil
	})

	opt := NewBootstrapFewShot(reasoner, Settings{MaxLabeledDemos: 3, MaxErrors: 10, Concurrency: 2})
	student := qaModule(t, predict.KindChainOfThought)

	compiled, n, err := opt.Compile(context.Background(), student, exactMatch(t), trainset(5), 2)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if n != 2 {
		t.Fatalf("bootstrapped = %d, want 2", n)
	}
	if leaked.Load() {
		t.Fatal("teacher saw the example it was bootstrapping")
	}
	if len(compiled.Demos) != 3 {
		t.Fatalf("demos = %d, want 3", len(compiled.Demos))
	}

	want := []struct{ question, reasoning string }{
		{"q0", "thought q0"},
		{"q2", "thought q2"},
		{"q1", ""},
	}
	for i, w := range want {
		d := compiled.Demos[i]
		if d["question"] != w.question {
			t.Errorf("demo %d question = %v, want %s", i, d["question"], w.question)
		}
		r, _ := d["reasoning"].(string)
		if r != w.reasoning {
			t.Errorf("demo %d reasoning = %q, want %q", i, r, w.reasoning)
		}
	}

	if len(student.Demos) != 0 {
		t.Fatal("student module was mutated")
	}
	if compiled.Kind != predict.KindChainOfThought {
		t.Fatalf("kind = %v", compiled.Kind)
	}
}

func TestBootstrapFewShotNoPasses(t *testing.T) {
	t.Parallel()

	reasoner := predict.ReasonerFunc(func(ctx context.Context, m *predict.Module, inputs map[string]any) (predict.Prediction, error) {
		return predict.Prediction{Outputs: map[string]any{"answer": "nope"}}, nil
	})
	opt := NewBootstrapFewShot(reasoner, Settings{MaxLabeledDemos: 16, MaxErrors: 10, Concurrency: 4})

	compiled, n, err := opt.Compile(context.Background(), qaModule(t, predict.KindPredict), exactMatch(t), trainset(3), 4)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if n != 0 || len(compiled.Demos) != 3 {
		t.Fatalf("bootstrapped = %d, demos = %d; want 0 and 3 labeled", n, len(compiled.Demos))
	}
}

func TestBootstrapFewShotErrorBudget(t *testing.T) {
	t.Parallel()

	boom := errors.New("provider down")
	var calls atomic.Int32
	reasoner := predict.ReasonerFunc(func(ctx context.Context, m *predict.Module, inputs map[string]any) (predict.Prediction, error) {
		calls.Add(1)
		if inputs["question"] == "q0" {
			return predict.Prediction{}, boom
		}
		return predict.Prediction{Outputs: map[string]any{"answer": "a" + inputs["question"].(string)[1:]}}, nil
	})

	opt := NewBootstrapFewShot(reasoner, Settings{MaxLabeledDemos: 16, MaxErrors: 1, Concurrency: 1})
	_, n, err := opt.Compile(context.Background(), qaModule(t, predict.KindPredict), exactMatch(t), trainset(3), 1)
	if err != nil {
		t.Fatalf("one failure within budget: %v", err)
	}
	if n != 1 || calls.Load() != 2 {
		t.Fatalf("bootstrapped = %d after %d calls; want 1 after 2", n, calls.Load())
	}

	failing := predict.ReasonerFunc(func(ctx context.Context, m *predict.Module, inputs map[string]any) (predict.Prediction, error) {
		return predict.Prediction{}, boom
	})
	opt = NewBootstrapFewShot(failing, Settings{MaxLabeledDemos: 16, MaxErrors: 1, Concurrency: 1})
	_, _, err = opt.Compile(context.Background(), qaModule(t, predict.KindPredict), exactMatch(t), trainset(3), 1)
	if !errors.Is(err, ErrTooManyErrors) || !errors.Is(err, boom) {
		t.Fatalf("err = %v, want ErrTooManyErrors wrapping the cause", err)
	}
}

func TestBootstrapFewShotCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reasoner := predict.ReasonerFunc(func(ctx context.Context, m *predict.Module, inputs map[string]any) (predict.Prediction, error) {
		return predict.Prediction{}, ctx.Err()
	})
	opt := NewBootstrapFewShot(reasoner, Settings{MaxErrors: 10, Concurrency: 2})
	if _, _, err := opt.Compile(ctx, qaModule(t, predict.KindPredict), exactMatch(t), trainset(2), 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
