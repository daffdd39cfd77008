package predict

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"promptgate/pkg/llm"
	"promptgate/pkg/signature"
)

// scriptedClient answers every call with the same completion text and
// records the last conversation it saw.
type scriptedClient struct {
	text     string
	thinking string
	delay    time.Duration
	last     []llm.Message
}

func (s *scriptedClient) StreamChat(ctx context.Context, msgs []llm.Message) (<-chan llm.StreamChunk, error) {
	s.last = msgs
	ch := make(chan llm.StreamChunk, 3)
	go func() {
		defer close(ch)
		if s.delay > 0 {
			select {
			case <-time.After(s.delay):
			case <-ctx.Done():
				ch <- llm.NewErrorChunk("canceled", ctx.Err(), true)
				return
			}
		}
		if s.thinking != "" {
			ch <- llm.NewThinkingChunk(s.thinking)
		}
		ch <- llm.NewTextChunk(s.text)
		ch <- llm.NewFinalChunk(llm.StopReasonStop, nil)
	}()
	return ch, nil
}

func (s *scriptedClient) Provider() string { return "scripted" }

func mustParse(t *testing.T, text string) signature.Definition {
	t.Helper()
	def, err := signature.Parse(text, "")
	if err != nil {
		t.Fatalf("Parse(%q): %v", text, err)
	}
	return def
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Kind
	}{
		{"", KindPredict},
		{"Predict", KindPredict},
		{"default", KindPredict},
		{"ChainOfThought", KindChainOfThought},
		{"chain_of_thought", KindChainOfThought},
		{"chain-of-thought", KindChainOfThought},
		{"CoT", KindChainOfThought},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseKind(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseKind("ReAct"); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("ParseKind(ReAct) err = %v", err)
	}
}

func TestEffectiveSignature(t *testing.T) {
	t.Parallel()

	def := mustParse(t, "question -> answer")
	if got := New(def, KindPredict).Effective().Outputs; len(got) != 1 || got[0] != "answer" {
		t.Fatalf("predict outputs = %v", got)
	}
	if got := New(def, KindChainOfThought).Effective().Outputs; len(got) != 2 || got[0] != ReasoningField {
		t.Fatalf("cot outputs = %v", got)
	}
}

func TestFormatMessages(t *testing.T) {
	t.Parallel()

	m := New(mustParse(t, "question -> answer"), KindChainOfThought)
	m.Demos = []Example{
		{"question": "1+1?", "answer": "2"},
		{"question": "3+3?", "reasoning": "3 and 3", "answer": 6},
	}

	msgs := FormatMessages(m, map[string]any{"question": "2+2?"})
	if len(msgs) != 6 {
		t.Fatalf("messages = %d, want 6", len(msgs))
	}

	sys := msgs[0].GetTextContent()
	for _, want := range []string{"1. `question`", "1. `reasoning`", "2. `answer`", "[[ ## completed ## ]]", "Given the fields `question`"} {
		if !strings.Contains(sys, want) {
			t.Errorf("system prompt missing %q:\n%s", want, sys)
		}
	}

	if got := msgs[2].GetTextContent(); !strings.Contains(got, "[[ ## reasoning ## ]]\n"+notSupplied) {
		t.Errorf("labeled demo should mark reasoning as not supplied:\n%s", got)
	}
	if got := msgs[4].GetTextContent(); !strings.Contains(got, "[[ ## answer ## ]]\n6") {
		t.Errorf("non-string demo value not rendered:\n%s", got)
	}

	last := msgs[5]
	if last.Role != llm.RoleUser {
		t.Fatalf("last role = %q", last.Role)
	}
	if got := last.GetTextContent(); !strings.HasPrefix(got, "[[ ## question ## ]]\n2+2?") ||
		!strings.Contains(got, "starting with the field `[[ ## reasoning ## ]]`, then `[[ ## answer ## ]]`") {
		t.Errorf("request message:\n%s", got)
	}
}

func TestParseCompletion(t *testing.T) {
	t.Parallel()

	text := "preamble\n[[ ## reasoning ## ]]\nadd them\n\n[[ ## answer ## ]]\n 4 \n\n[[ ## answer ## ]]\nignored\n[[ ## completed ## ]]"
	got, err := ParseCompletion([]string{"reasoning", "answer"}, text)
	if err != nil {
		t.Fatalf("ParseCompletion: %v", err)
	}
	if got["reasoning"] != "add them" || got["answer"] != "4" {
		t.Fatalf("got %v", got)
	}

	_, err = ParseCompletion([]string{"answer", "confidence"}, "[[ ## answer ## ]]\n4")
	if !errors.Is(err, ErrMalformedOutput) || !strings.Contains(err.Error(), "confidence") {
		t.Fatalf("err = %v", err)
	}
}

func TestSplitThink(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in, content, reasoning string
	}{
		{"plain", "plain", ""},
		{"<think> r </think>A", "A", "r"},
		{"A<THINK>r1</THINK>B<think>r2</think>C", "ABC", "r1r2"},
		{"A<think>unclosed", "A", "unclosed"},
		{strings.Repeat("Ⱥ", 40) + "<think>x", strings.Repeat("Ⱥ", 40), "x"},
		{strings.Repeat("İ", 30) + "<THINK>İİ</Think>ok", strings.Repeat("İ", 30) + "ok", "İİ"},
		{"\xff<think>ok</think>4", "\xff4", "ok"},
	}
	for _, tc := range cases {
		got := SplitThink(tc.in)
		if got.Content != tc.content || got.Reasoning != tc.reasoning {
			t.Errorf("SplitThink(%q) = %+v", tc.in, got)
		}
	}
}

func TestLMReasonerNonASCIIAnswer(t *testing.T) {
	t.Parallel()

	answer := strings.Repeat("İ", 30) + strings.Repeat("Ⱥ", 40)
	client := &scriptedClient{text: "\xff<think>ok</think>[[ ## answer ## ]]\n" + answer}
	r := NewLMReasoner(client, time.Second)

	m := New(mustParse(t, "question -> answer"), KindPredict)
	pred, err := r.Run(context.Background(), m, map[string]any{"question": "q"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if pred.Outputs["answer"] != answer {
		t.Fatalf("answer = %q, want %q", pred.Outputs["answer"], answer)
	}
}

func TestLMReasonerChainOfThought(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{text: "[[ ## reasoning ## ]]\n2 plus 2\n\n[[ ## answer ## ]]\n4\n\n[[ ## completed ## ]]"}
	r := NewLMReasoner(client, time.Second)

	m := New(mustParse(t, "question -> answer"), KindChainOfThought)
	pred, err := r.Run(context.Background(), m, map[string]any{"question": "2+2?"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if pred.Outputs["answer"] != "4" || pred.Reasoning != "2 plus 2" {
		t.Fatalf("pred = %+v", pred)
	}
}

func TestLMReasonerThinkFallback(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{
		text:     "<think>tags</think>[[ ## answer ## ]]\n4",
		thinking: "native",
	}
	pred, err := NewLMReasoner(client, 0).Run(context.Background(), New(mustParse(t, "question -> answer"), KindPredict), map[string]any{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if pred.Outputs["answer"] != "4" {
		t.Fatalf("answer = %v", pred.Outputs["answer"])
	}
	if pred.Reasoning != "native\ntags" {
		t.Fatalf("reasoning = %q", pred.Reasoning)
	}
}

func TestLMReasonerErrors(t *testing.T) {
	t.Parallel()

	m := New(mustParse(t, "question -> answer"), KindPredict)

	_, err := NewLMReasoner(&scriptedClient{text: "no markers"}, 0).Run(context.Background(), m, nil)
	if !errors.Is(err, ErrMalformedOutput) {
		t.Fatalf("err = %v, want ErrMalformedOutput", err)
	}

	slow := &scriptedClient{text: "[[ ## answer ## ]]\n4", delay: time.Second}
	_, err = NewLMReasoner(slow, 20*time.Millisecond).Run(context.Background(), m, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestCloneIsDeep(t *testing.T) {
	t.Parallel()

	m := New(mustParse(t, "q -> a"), KindPredict)
	m.Demos = []Example{{"q": "x", "a": "y"}}
	c := m.Clone()
	c.Demos[0]["a"] = "changed"
	c.Demos = append(c.Demos, Example{})
	if m.Demos[0]["a"] != "y" || len(m.Demos) != 1 {
		t.Fatalf("clone shares state: %+v", m.Demos)
	}
}
