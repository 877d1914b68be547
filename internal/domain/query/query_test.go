package query

import "testing"

func TestClampLimit(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{"zero falls back to default", 0, DefaultLimit},
		{"negative falls back to default", -5, DefaultLimit},
		{"minimum kept", 1, 1},
		{"in range kept", 42, 42},
		{"maximum kept", 100, 100},
		{"above maximum clamped", 101, 100},
		{"far above maximum clamped", 1_000_000, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampLimit(tt.in); got != tt.want {
				t.Errorf("ClampLimit(%d) = %d, want %d", tt.in, got, tt.want)
			}
			if got := ClampLimit(tt.in); got < MinLimit || got > MaxLimit {
				t.Errorf("ClampLimit(%d) = %d, outside [%d,%d]", tt.in, got, MinLimit, MaxLimit)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode("find"); err != nil || m != ModeFind {
		t.Errorf("ParseMode(find) = %v, %v", m, err)
	}
	if m, err := ParseMode("aggregate"); err != nil || m != ModeAggregate {
		t.Errorf("ParseMode(aggregate) = %v, %v", m, err)
	}
	if _, err := ParseMode("mapreduce"); err == nil {
		t.Error("expected error for unknown mode")
	}
	if _, err := ParseMode(""); err == nil {
		t.Error("expected error for empty mode")
	}
}

func TestNewFind_ClampsLimit(t *testing.T) {
	spec := NewFind(map[string]any{"age": 30}, nil, nil, 500)
	if spec.Limit() != MaxLimit {
		t.Errorf("limit = %d, want %d", spec.Limit(), MaxLimit)
	}
	if spec.Mode() != ModeFind {
		t.Errorf("mode = %q, want %q", spec.Mode(), ModeFind)
	}
}

func TestNewAggregate_ClampsLimit(t *testing.T) {
	spec := NewAggregate([]any{map[string]any{"$match": map[string]any{}}}, 0)
	if spec.Limit() != DefaultLimit {
		t.Errorf("limit = %d, want %d", spec.Limit(), DefaultLimit)
	}
	if spec.Mode() != ModeAggregate {
		t.Errorf("mode = %q, want %q", spec.Mode(), ModeAggregate)
	}
}
