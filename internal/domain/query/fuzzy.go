package query

import (
	"regexp"
	"strings"
)

// Fuzzify rewrites literal string equality into case-insensitive substring
// matching: every string valued on a plain field key becomes a pattern-match
// clause whose pattern is the regex-escaped literal. Operator operands (the
// value of any $-prefixed key, including strings inside their arrays) are
// never wrapped, and neither are field-path references ("$name",
// "$$CURRENT") — in aggregation expressions those strings address fields,
// not literals. The input tree is not modified.
//
// Fuzzify runs before sanitization and case normalization so any clause it
// produces still passes through the sanitizer.
func Fuzzify(tree map[string]any) map[string]any {
	out := fuzzifyValue(tree, true)
	m, _ := out.(map[string]any)
	return m
}

// FuzzifyPipeline applies Fuzzify to every stage of an aggregation pipeline.
func FuzzifyPipeline(pipeline []any) []any {
	out := make([]any, len(pipeline))
	for i, stage := range pipeline {
		out[i] = fuzzifyValue(stage, true)
	}
	return out
}

func fuzzifyValue(v any, wrapStrings bool) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			childWrap := !isOperatorKey(k)
			if s, ok := child.(string); ok && childWrap && !isFieldPathRef(s) {
				out[k] = fuzzyClause(s)
				continue
			}
			out[k] = fuzzifyValue(child, childWrap)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			if s, ok := e.(string); ok && wrapStrings && !isFieldPathRef(s) {
				out[i] = fuzzyClause(s)
				continue
			}
			out[i] = fuzzifyValue(e, wrapStrings)
		}
		return out
	default:
		return v
	}
}

func isOperatorKey(k string) bool {
	return len(k) > 0 && k[0] == '$'
}

// isFieldPathRef reports whether s is a field-path reference rather than a
// literal value.
func isFieldPathRef(s string) bool {
	return strings.HasPrefix(s, "$")
}

// fuzzyClause builds a case-insensitive exact-substring match for s.
func fuzzyClause(s string) map[string]any {
	return map[string]any{
		"$regex":   regexp.QuoteMeta(s),
		"$options": "i",
	}
}
