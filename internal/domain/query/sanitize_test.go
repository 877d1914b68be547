package query

import (
	"errors"
	"reflect"
	"testing"

	"github.com/kailas-cloud/nlquery/internal/domain"
)

func TestSanitize_BlocksDeniedOperators(t *testing.T) {
	tests := []struct {
		name string
		tree map[string]any
	}{
		{"top-level $where", map[string]any{"$where": "this.a == 1"}},
		{"nested $where", map[string]any{"$or": []any{
			map[string]any{"$where": "sleep(1000)"},
		}}},
		{"deep $function", map[string]any{"a": map[string]any{
			"b": map[string]any{"$function": map[string]any{"body": "x"}},
		}}},
		{"$accumulator inside array", map[string]any{"stages": []any{
			map[string]any{"$accumulator": map[string]any{}},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Sanitize(tt.tree)
			if !errors.Is(err, domain.ErrDangerousOperator) {
				t.Fatalf("err = %v, want ErrDangerousOperator", err)
			}
		})
	}
}

func TestSanitize_OperatorCheckIsStructural(t *testing.T) {
	// A string value that merely contains an operator name must not block.
	tree := map[string]any{"comment": "docs mention $where here"}
	out, report, err := Sanitize(tree)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.RemovedClauses != 0 {
		t.Errorf("removed = %d, want 0", report.RemovedClauses)
	}
	if !reflect.DeepEqual(out, tree) {
		t.Errorf("tree changed: %v", out)
	}
}

func TestSanitize_RemovesBlankPatternClause(t *testing.T) {
	tree := map[string]any{
		"bio":  map[string]any{"$regex": "", "$options": "i"},
		"name": "Ada",
	}
	out, report, err := Sanitize(tree)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.RemovedClauses != 1 {
		t.Errorf("removed = %d, want 1", report.RemovedClauses)
	}
	if _, ok := out["bio"]; ok {
		t.Error("bio clause should have been dropped")
	}
	if out["name"] != "Ada" {
		t.Errorf("name = %v, want Ada", out["name"])
	}
}

func TestSanitize_MalformedPatterns(t *testing.T) {
	tests := []struct {
		name    string
		clause  any
		removed int
	}{
		{"non-string pattern", map[string]any{"$regex": 42.0}, 1},
		{"whitespace pattern", map[string]any{"$regex": "   "}, 1},
		{"nil pattern", map[string]any{"$regex": nil}, 1},
		{"valid pattern kept", map[string]any{"$regex": "^a"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, report, err := Sanitize(map[string]any{"field": tt.clause})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if report.RemovedClauses != tt.removed {
				t.Errorf("removed = %d, want %d", report.RemovedClauses, tt.removed)
			}
			_, kept := out["field"]
			if kept == (tt.removed == 1) {
				t.Errorf("kept = %v with removed = %d", kept, tt.removed)
			}
		})
	}
}

func TestSanitize_CoercesNonStringFlags(t *testing.T) {
	tree := map[string]any{
		"name": map[string]any{"$regex": "ada", "$options": 1.0},
	}
	out, report, err := Sanitize(tree)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.RemovedClauses != 0 {
		t.Errorf("removed = %d, want 0", report.RemovedClauses)
	}
	clause := out["name"].(map[string]any)
	if clause["$options"] != "1" {
		t.Errorf("$options = %v (%T), want \"1\"", clause["$options"], clause["$options"])
	}
}

func TestSanitize_RootPatternClause(t *testing.T) {
	out, report, err := Sanitize(map[string]any{"$regex": ""})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.RemovedClauses != 1 {
		t.Errorf("removed = %d, want 1", report.RemovedClauses)
	}
	if len(out) != 0 {
		t.Errorf("expected empty tree, got %v", out)
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	tree := map[string]any{
		"bio":  map[string]any{"$regex": "", "$options": "i"},
		"name": map[string]any{"$regex": "ada", "$options": 2.0},
		"age":  map[string]any{"$gt": 18.0},
	}
	first, report1, err := Sanitize(tree)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	second, report2, err := Sanitize(first)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if report1.RemovedClauses != 1 {
		t.Errorf("first removed = %d, want 1", report1.RemovedClauses)
	}
	if report2.RemovedClauses != 0 {
		t.Errorf("second pass removed = %d, want 0", report2.RemovedClauses)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("not idempotent:\nfirst  = %v\nsecond = %v", first, second)
	}
}

func TestSanitize_DoesNotModifyInput(t *testing.T) {
	tree := map[string]any{
		"bio": map[string]any{"$regex": ""},
	}
	_, _, err := Sanitize(tree)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := tree["bio"]; !ok {
		t.Error("input tree was mutated")
	}
}

func TestSanitizePipeline(t *testing.T) {
	pipeline := []any{
		map[string]any{"$match": map[string]any{
			"bio": map[string]any{"$regex": ""},
		}},
		map[string]any{"$sort": map[string]any{"name": 1.0}},
	}
	out, report, err := SanitizePipeline(pipeline)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.RemovedClauses != 1 {
		t.Errorf("removed = %d, want 1", report.RemovedClauses)
	}
	match := out[0].(map[string]any)["$match"].(map[string]any)
	if len(match) != 0 {
		t.Errorf("expected emptied $match, got %v", match)
	}
}

func TestSanitizePipeline_BlocksDeniedOperators(t *testing.T) {
	pipeline := []any{
		map[string]any{"$group": map[string]any{
			"_id":   nil,
			"total": map[string]any{"$accumulator": map[string]any{"init": "x"}},
		}},
	}
	_, _, err := SanitizePipeline(pipeline)
	if !errors.Is(err, domain.ErrDangerousOperator) {
		t.Fatalf("err = %v, want ErrDangerousOperator", err)
	}
}
