package predict

import "strings"

// ThinkSplit separates visible content from <think> blocks.
type ThinkSplit struct {
	Content   string
	Reasoning string
}

// SplitThink removes DeepSeek-style <think>...</think> blocks from raw
// output. An unclosed block makes the remainder reasoning.
func SplitThink(raw string) ThinkSplit {
	const (
		openTag  = "<think>"
		closeTag = "</think>"
	)
	lower := lowerASCII(raw)

	var content, reasoning strings.Builder
	cursor := 0
	for cursor < len(raw) {
		start := strings.Index(lower[cursor:], openTag)
		if start < 0 {
			content.WriteString(raw[cursor:])
			break
		}
		start += cursor
		content.WriteString(raw[cursor:start])

		thinkStart := start + len(openTag)
		end := strings.Index(lower[thinkStart:], closeTag)
		if end < 0 {
			reasoning.WriteString(raw[thinkStart:])
			break
		}
		end += thinkStart
		reasoning.WriteString(raw[thinkStart:end])
		cursor = end + len(closeTag)
	}

	return ThinkSplit{Content: content.String(), Reasoning: strings.TrimSpace(reasoning.String())}
}

// lowerASCII folds A-Z only, so byte offsets in the result are offsets in s.
func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}
