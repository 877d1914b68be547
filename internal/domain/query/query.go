// Package query holds the structured query model produced by the
// natural-language compiler, plus the safety transforms applied to it
// before execution.
package query

import "fmt"

const (
	// MinLimit is the smallest result cap a query may carry.
	MinLimit = 1
	// MaxLimit is the largest result cap a query may carry.
	MaxLimit = 100
	// DefaultLimit is used when the caller does not request a cap.
	DefaultLimit = 100
)

// Mode selects the query shape the compiler targets.
type Mode string

const (
	// ModeFind produces a filter/projection/sort query.
	ModeFind Mode = "find"
	// ModeAggregate produces an aggregation pipeline.
	ModeAggregate Mode = "aggregate"
)

// ParseMode validates a wire-level mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeFind, ModeAggregate:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("mode must be %q or %q, got %q", ModeFind, ModeAggregate, s)
	}
}

// ClampLimit forces a requested limit into [MinLimit, MaxLimit].
// Zero and negative values fall back to DefaultLimit.
func ClampLimit(n int) int {
	if n <= 0 {
		return DefaultLimit
	}
	if n < MinLimit {
		return MinLimit
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}

// Spec is a compiled query: either a find (filter, optional projection and
// sort) or an aggregation pipeline. The limit is always within
// [MinLimit, MaxLimit].
type Spec struct {
	mode       Mode
	filter     map[string]any
	projection map[string]any
	sort       map[string]any
	pipeline   []any
	limit      int
}

// NewFind builds a find-mode spec. projection and sort may be nil.
func NewFind(filter, projection, sort map[string]any, limit int) Spec {
	return Spec{
		mode:       ModeFind,
		filter:     filter,
		projection: projection,
		sort:       sort,
		limit:      ClampLimit(limit),
	}
}

// NewAggregate builds an aggregate-mode spec.
func NewAggregate(pipeline []any, limit int) Spec {
	return Spec{
		mode:     ModeAggregate,
		pipeline: pipeline,
		limit:    ClampLimit(limit),
	}
}

// Mode returns the query shape.
func (s Spec) Mode() Mode { return s.mode }

// Filter returns the find filter tree.
func (s Spec) Filter() map[string]any { return s.filter }

// Projection returns the projection tree, nil when absent.
func (s Spec) Projection() map[string]any { return s.projection }

// Sort returns the sort tree, nil when absent.
func (s Spec) Sort() map[string]any { return s.sort }

// Pipeline returns the aggregation stages.
func (s Spec) Pipeline() []any { return s.pipeline }

// Limit returns the clamped result cap.
func (s Spec) Limit() int { return s.limit }
