package predict

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"promptgate/pkg/llm"
	"promptgate/pkg/signature"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrMalformedOutput is returned when a completion lacks a declared output.
var ErrMalformedOutput = errors.New("malformed model output")

const (
	completedMarker = "completed"
	notSupplied     = "Not supplied for this particular example."
)

var markerRe = regexp.MustCompile(`\[\[ ## (\w+) ## \]\]`)

func marker(field string) string {
	return "[[ ## " + field + " ## ]]"
}

// FormatMessages renders the module's prompt: a system message describing
// the fields and the objective, one user/assistant pair per demo, then the
// request itself.
func FormatMessages(m *Module, inputs map[string]any) []llm.Message {
	sig := m.Effective()

	msgs := make([]llm.Message, 0, 2+2*len(m.Demos))
	msgs = append(msgs, llm.NewSystemMessage(systemPrompt(sig)))

	for _, demo := range m.Demos {
		msgs = append(msgs,
			llm.NewUserMessage(fieldBlock(sig.Inputs, demo)),
			llm.NewAssistantMessage(fieldBlock(sig.Outputs, demo)+"\n\n"+marker(completedMarker)),
		)
	}

	msgs = append(msgs, llm.NewUserMessage(fieldBlock(sig.Inputs, inputs)+"\n\n"+outputRequest(sig.Outputs)))
	return msgs
}

func systemPrompt(sig signature.Definition) string {
	var sb strings.Builder
	sb.WriteString("Your input fields are:\n")
	for i, f := range sig.Inputs {
		fmt.Fprintf(&sb, "%d. `%s`\n", i+1, f)
	}
	sb.WriteString("Your output fields are:\n")
	for i, f := range sig.Outputs {
		fmt.Fprintf(&sb, "%d. `%s`\n", i+1, f)
	}
	sb.WriteString("All interactions will be structured in the following way, with the appropriate values filled in.\n\n")
	for _, f := range sig.Fields() {
		fmt.Fprintf(&sb, "%s\n{%s}\n\n", marker(f), f)
	}
	sb.WriteString(marker(completedMarker))
	sb.WriteString("\nIn adhering to this structure, your objective is: \n        ")
	sb.WriteString(sig.Instructions)
	return sb.String()
}

func outputRequest(outputs []string) string {
	quoted := make([]string, len(outputs))
	for i, f := range outputs {
		quoted[i] = "`" + marker(f) + "`"
	}
	var sb strings.Builder
	sb.WriteString("Respond with the corresponding output fields, starting with the field ")
	sb.WriteString(quoted[0])
	for _, q := range quoted[1:] {
		sb.WriteString(", then ")
		sb.WriteString(q)
	}
	sb.WriteString(", and then ending with the marker for `" + marker(completedMarker) + "`.")
	return sb.String()
}

func fieldBlock(fields []string, values map[string]any) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		v, ok := values[f]
		text := notSupplied
		if ok && v != nil {
			text = FormatValue(v)
		}
		parts = append(parts, marker(f)+"\n"+text)
	}
	return strings.Join(parts, "\n\n")
}

// FormatValue renders a field value for the prompt: strings verbatim,
// anything else as JSON.
func FormatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// ParseCompletion extracts the declared output fields from marker-delimited
// text. The first occurrence of a field wins; unknown sections are ignored.
func ParseCompletion(outputs []string, text string) (map[string]any, error) {
	sections := make(map[string]string)
	locs := markerRe.FindAllStringSubmatchIndex(text, -1)
	for i, loc := range locs {
		name := text[loc[2]:loc[3]]
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		if _, seen := sections[name]; !seen {
			sections[name] = strings.TrimSpace(text[loc[1]:end])
		}
	}

	result := make(map[string]any, len(outputs))
	var missing []string
	for _, f := range outputs {
		v, ok := sections[f]
		if !ok {
			missing = append(missing, f)
			continue
		}
		result[f] = v
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing field(s) %s", ErrMalformedOutput, strings.Join(missing, ", "))
	}
	return result, nil
}
