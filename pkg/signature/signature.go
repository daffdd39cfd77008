// Package signature parses and stores task signatures: named, ordered
// lists of input and output fields plus instructions for the model.
package signature

import (
	"errors"
	"fmt"
	"strings"
)

// ErrParse is returned for malformed compact signature strings.
var ErrParse = errors.New("signature parse error")

const arrow = "->"

// Definition is an immutable parsed signature.
type Definition struct {
	Name         string   `json:"name"`
	Inputs       []string `json:"input_fields"`
	Outputs      []string `json:"output_fields"`
	Instructions string   `json:"instructions"`
}

// Parse turns a compact form like "context, question -> answer" into a
// Definition. Empty instructions are replaced with a generated default.
func Parse(text, instructions string) (Definition, error) {
	left, right, ok := strings.Cut(text, arrow)
	if !ok {
		return Definition{}, fmt.Errorf("%w: missing %q in %q", ErrParse, arrow, text)
	}
	if strings.Contains(right, arrow) {
		return Definition{}, fmt.Errorf("%w: more than one %q in %q", ErrParse, arrow, text)
	}

	inputs, err := splitFields(left, "input")
	if err != nil {
		return Definition{}, err
	}
	outputs, err := splitFields(right, "output")
	if err != nil {
		return Definition{}, err
	}

	seen := make(map[string]bool, len(inputs)+len(outputs))
	for _, f := range append(append([]string(nil), inputs...), outputs...) {
		if seen[f] {
			return Definition{}, fmt.Errorf("%w: duplicate field %q", ErrParse, f)
		}
		seen[f] = true
	}

	instructions = strings.TrimSpace(instructions)
	if instructions == "" {
		instructions = DefaultInstructions(inputs, outputs)
	}
	return Definition{Inputs: inputs, Outputs: outputs, Instructions: instructions}, nil
}

func splitFields(side, kind string) ([]string, error) {
	if strings.TrimSpace(side) == "" {
		return nil, fmt.Errorf("%w: no %s fields", ErrParse, kind)
	}
	parts := strings.Split(side, ",")
	fields := make([]string, 0, len(parts))
	for _, p := range parts {
		f := strings.TrimSpace(p)
		if f == "" {
			return nil, fmt.Errorf("%w: empty %s field name in %q", ErrParse, kind, strings.TrimSpace(side))
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// DefaultInstructions describes the task from its field names alone.
func DefaultInstructions(inputs, outputs []string) string {
	return fmt.Sprintf("Given the fields %s, produce the fields %s.", quoteList(inputs), quoteList(outputs))
}

func quoteList(fields []string) string {
	q := make([]string, len(fields))
	for i, f := range fields {
		q[i] = "`" + f + "`"
	}
	return strings.Join(q, ", ")
}

// Fields returns inputs followed by outputs.
func (d Definition) Fields() []string {
	out := make([]string, 0, len(d.Inputs)+len(d.Outputs))
	out = append(out, d.Inputs...)
	return append(out, d.Outputs...)
}

// String renders the compact form.
func (d Definition) String() string {
	return strings.Join(d.Inputs, ", ") + " -> " + strings.Join(d.Outputs, ", ")
}

// WithPrefixedOutput returns a copy with field prepended to the outputs.
// It is a no-op when the field is already declared.
func (d Definition) WithPrefixedOutput(field string) Definition {
	for _, f := range d.Fields() {
		if f == field {
			return d
		}
	}
	out := d
	out.Outputs = append([]string{field}, d.Outputs...)
	out.Inputs = append([]string(nil), d.Inputs...)
	return out
}
