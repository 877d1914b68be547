package query

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/nlquery/internal/domain"
)

// deniedOperators allow arbitrary server-side code execution and are
// blocked outright, never silently removed.
var deniedOperators = map[string]struct{}{
	"$where":       {},
	"$function":    {},
	"$accumulator": {},
}

// Report summarizes what a sanitization pass removed.
type Report struct {
	// RemovedClauses counts dropped operator clauses (e.g. blank patterns).
	RemovedClauses int
}

// Sanitize walks a query tree in one recursive pass: first it rejects the
// whole tree if any mapping key (at any depth) is a denied operator, then it
// drops malformed pattern-match clauses from their parent mappings.
//
// The operator check is structural: only keys are inspected, so a string
// value that merely contains an operator name is not blocked. Sanitize is
// idempotent; the input tree is not modified.
func Sanitize(tree map[string]any) (map[string]any, Report, error) {
	if op := findDeniedOperator(tree); op != "" {
		return nil, Report{}, fmt.Errorf("%w: %s", domain.ErrDangerousOperator, op)
	}

	var report Report
	if isMalformedPatternClause(tree) {
		// The root itself is a broken pattern clause with no parent to drop
		// it from; the whole query collapses.
		report.RemovedClauses++
		return map[string]any{}, report, nil
	}
	out := sanitizeMap(tree, &report)
	return out, report, nil
}

// SanitizePipeline sanitizes every stage of an aggregation pipeline.
func SanitizePipeline(pipeline []any) ([]any, Report, error) {
	if op := findDeniedOperatorIn(pipeline); op != "" {
		return nil, Report{}, fmt.Errorf("%w: %s", domain.ErrDangerousOperator, op)
	}

	var report Report
	out := make([]any, len(pipeline))
	for i, stage := range pipeline {
		out[i] = sanitizeValue(stage, &report)
	}
	return out, report, nil
}

func findDeniedOperator(m map[string]any) string {
	for k, v := range m {
		if _, denied := deniedOperators[k]; denied {
			return k
		}
		if op := findDeniedOperatorIn(v); op != "" {
			return op
		}
	}
	return ""
}

func findDeniedOperatorIn(v any) string {
	switch t := v.(type) {
	case map[string]any:
		return findDeniedOperator(t)
	case []any:
		for _, e := range t {
			if op := findDeniedOperatorIn(e); op != "" {
				return op
			}
		}
	}
	return ""
}

func sanitizeMap(m map[string]any, report *Report) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if child, ok := v.(map[string]any); ok {
			if isMalformedPatternClause(child) {
				report.RemovedClauses++
				continue
			}
			if isPatternClause(child) {
				out[k] = normalizePatternClause(child)
				continue
			}
		}
		out[k] = sanitizeValue(v, report)
	}
	return out
}

func sanitizeValue(v any, report *Report) any {
	switch t := v.(type) {
	case map[string]any:
		return sanitizeMap(t, report)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = sanitizeValue(e, report)
		}
		return out
	default:
		return v
	}
}

func isPatternClause(m map[string]any) bool {
	_, ok := m["$regex"]
	return ok
}

// isMalformedPatternClause reports whether m is a pattern-match clause whose
// pattern is missing its value, not a string, or blank after trimming.
func isMalformedPatternClause(m map[string]any) bool {
	raw, ok := m["$regex"]
	if !ok {
		return false
	}
	pat, isStr := raw.(string)
	return !isStr || strings.TrimSpace(pat) == ""
}

// normalizePatternClause keeps a well-formed pattern clause, coercing a
// non-string flags value to its string form rather than dropping it.
func normalizePatternClause(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	if opts, ok := out["$options"]; ok {
		if _, isStr := opts.(string); !isStr {
			out["$options"] = fmt.Sprint(opts)
		}
	}
	return out
}
