package schema

import "strings"

// CaseMap maps a lower-cased field path to its canonical casing as first
// observed in the sampled schema. It is derived once per request and applied
// read-only.
type CaseMap map[string]string

// NewCaseMap derives a CaseMap from sampled field paths. The first
// occurrence of a path wins when two paths differ only by case.
func NewCaseMap(paths []string) CaseMap {
	m := make(CaseMap, len(paths))
	for _, p := range paths {
		lower := strings.ToLower(p)
		if _, ok := m[lower]; !ok {
			m[lower] = p
		}
	}
	return m
}

// Normalize rewrites every mapping key in a generated query tree to its
// canonical casing. Keys absent from the map (operator keys like $and, or
// fields never sampled) pass through unchanged, as do scalars; sequences are
// walked element-wise. Normalize is idempotent and does not modify its input.
func (m CaseMap) Normalize(tree map[string]any) map[string]any {
	out, _ := m.normalizeValue(tree).(map[string]any)
	return out
}

// NormalizePipeline applies Normalize to every aggregation stage.
func (m CaseMap) NormalizePipeline(pipeline []any) []any {
	out := make([]any, len(pipeline))
	for i, stage := range pipeline {
		out[i] = m.normalizeValue(stage)
	}
	return out
}

func (m CaseMap) normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			key := k
			if canonical, ok := m[strings.ToLower(k)]; ok {
				key = canonical
			}
			out[key] = m.normalizeValue(child)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = m.normalizeValue(e)
		}
		return out
	default:
		return v
	}
}
