package generate

import (
	"strings"

	"github.com/kailas-cloud/nlquery/internal/domain/query"
)

// The system prompt states the output contract declaratively; compliance is
// not validated here — the response extractor deals with whatever comes back.

const systemPromptCommon = `You translate natural-language instructions into MongoDB queries.

Rules:
- Respond with a single JSON object and nothing else: no prose, no markdown, no code fences.
- Never include database or collection names inside the query itself.
- When a field list is supplied, use those exact field names with their exact casing.
- Never produce an empty condition when the instruction implies a concrete value.
- Use MongoDB extended JSON for special values: {"$oid": "..."} for object ids, {"$date": "..."} for datetimes.`

const systemPromptFind = systemPromptCommon + `
- The JSON object must have the form {"query": {...}} where {...} is the find filter document.`

const systemPromptAggregate = systemPromptCommon + `
- The JSON object must have the form {"pipeline": [...]} where [...] is the aggregation stage list.`

func buildSystemPrompt(mode query.Mode) string {
	if mode == query.ModeAggregate {
		return systemPromptAggregate
	}
	return systemPromptFind
}

func buildUserPrompt(instruction, collection string, fields []string) string {
	var b strings.Builder
	b.WriteString("Instruction: ")
	b.WriteString(instruction)
	if collection != "" {
		b.WriteString("\nTarget collection: ")
		b.WriteString(collection)
	}
	if len(fields) > 0 {
		b.WriteString("\nKnown fields:")
		for _, f := range fields {
			b.WriteString("\n- ")
			b.WriteString(f)
		}
	}
	return b.String()
}
