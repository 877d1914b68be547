// Package schema learns real field-name casing from sampled documents and
// reconciles generated query keys against it.
package schema

import "go.mongodb.org/mongo-driver/bson"

// DefaultSampleSize bounds how many documents the sampler reads.
const DefaultSampleSize = 50

// FieldPaths collects every distinct field path from the sampled documents,
// dot-joined for nested documents, preserving the casing and order of first
// occurrence. The primary-key field is excluded. Array elements that are
// themselves documents contribute paths under the array's own path.
//
// Documents must be order-preserving (bson.D); the sample is request-scoped
// and never cached.
func FieldPaths(docs []bson.D) []string {
	var paths []string
	seen := make(map[string]struct{})

	var walk func(doc bson.D, prefix string)
	var walkValue func(v any, path string)

	walk = func(doc bson.D, prefix string) {
		for _, elem := range doc {
			if prefix == "" && elem.Key == "_id" {
				continue
			}
			path := elem.Key
			if prefix != "" {
				path = prefix + "." + elem.Key
			}
			if _, ok := seen[path]; !ok {
				seen[path] = struct{}{}
				paths = append(paths, path)
			}
			walkValue(elem.Value, path)
		}
	}

	walkValue = func(v any, path string) {
		switch t := v.(type) {
		case bson.D:
			walk(t, path)
		case bson.A:
			for _, e := range t {
				walkValue(e, path)
			}
		}
	}

	for _, doc := range docs {
		walk(doc, "")
	}
	return paths
}
