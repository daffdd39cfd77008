// Package metric resolves metric names to comparison functions used to
// score predictions against labeled examples.
package metric

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// ErrUnknownMetric is returned for names outside the builtin and configured sets.
var ErrUnknownMetric = errors.New("unknown metric")

// Func reports whether pred agrees with gold on fields.
type Func func(gold, pred map[string]any, fields []string) bool

const (
	ExactMatch  = "exact_match"
	StrictMatch = "strict_match"
	Contains    = "contains"
)

var builtins = map[string]Func{
	ExactMatch:  exactMatch,
	StrictMatch: strictMatch,
	Contains:    containsMatch,
}

func exactMatch(gold, pred map[string]any, fields []string) bool {
	return allFields(gold, pred, fields, func(g, p string) bool {
		return Normalize(g) == Normalize(p)
	})
}

func strictMatch(gold, pred map[string]any, fields []string) bool {
	return allFields(gold, pred, fields, func(g, p string) bool {
		return strings.TrimSpace(g) == strings.TrimSpace(p)
	})
}

func containsMatch(gold, pred map[string]any, fields []string) bool {
	return allFields(gold, pred, fields, func(g, p string) bool {
		return strings.Contains(Normalize(p), Normalize(g))
	})
}

func allFields(gold, pred map[string]any, fields []string, eq func(g, p string) bool) bool {
	if len(fields) == 0 {
		return false
	}
	for _, f := range fields {
		g, ok := gold[f]
		if !ok {
			return false
		}
		p, ok := pred[f]
		if !ok || !eq(toString(g), toString(p)) {
			return false
		}
	}
	return true
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

var articlesRe = regexp.MustCompile(`\b(a|an|the)\b`)

// Normalize lower-cases s, drops punctuation and English articles, and
// collapses whitespace.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) {
			return -1
		}
		return r
	}, s)
	s = articlesRe.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}
