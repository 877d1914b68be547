package generate

import (
	"encoding/json"
	"strings"
)

// A strategy attempts to recover a JSON object from raw model text.
// Strategies are pure and evaluated in priority order; the first success
// wins.
type strategy func(text string) (map[string]any, bool)

var strategies = []strategy{
	parseDirect,
	parseFenced,
	parseBraceSpan,
}

// extractObject recovers a JSON object from free-form model text.
func extractObject(text string) (map[string]any, bool) {
	for _, s := range strategies {
		if obj, ok := s(text); ok {
			return obj, true
		}
	}
	return nil, false
}

// parseDirect handles a model that followed the contract: the text itself
// is the JSON object.
func parseDirect(text string) (map[string]any, bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}
	return parseObject(trimmed)
}

// parseFenced handles output wrapped in a triple-backtick block, with or
// without a json language tag.
func parseFenced(text string) (map[string]any, bool) {
	start := strings.Index(text, "```")
	if start < 0 {
		return nil, false
	}
	rest := text[start+3:]
	end := strings.Index(rest, "```")
	if end < 0 {
		return nil, false
	}
	content := strings.TrimSpace(rest[:end])
	content = strings.TrimSpace(strings.TrimPrefix(content, "json"))
	return parseObject(content)
}

// parseBraceSpan handles prose wrapped around JSON: it parses the substring
// between the first { and the last }.
func parseBraceSpan(text string) (map[string]any, bool) {
	first := strings.IndexByte(text, '{')
	last := strings.LastIndexByte(text, '}')
	if first < 0 || last < first {
		return nil, false
	}
	return parseObject(text[first : last+1])
}

func parseObject(s string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}
