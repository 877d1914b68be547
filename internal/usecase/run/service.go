// Package run executes structured queries under the safety pipeline:
// optional fuzzy rewrite, sanitization, and the execution guard.
package run

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/nlquery/internal/domain"
	"github.com/kailas-cloud/nlquery/internal/domain/query"
	"github.com/kailas-cloud/nlquery/internal/extjson"
	"github.com/kailas-cloud/nlquery/internal/metrics"
)

// Service runs compiled queries against the data store. Unlike schema
// sampling, execution failures are never swallowed.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// New creates a run service.
func New(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Request describes one query execution.
type Request struct {
	Collection string
	Spec       query.Spec
	// CaseInsensitive attaches a collation to find operations so equality
	// and sort comparisons ignore case.
	CaseInsensitive bool
	// Fuzzy rewrites literal string equality into case-insensitive
	// substring matches before sanitization.
	Fuzzy bool
}

// Run executes a query and returns string-safe result documents.
func (s *Service) Run(ctx context.Context, req Request) ([]map[string]any, error) {
	if req.Collection == "" {
		return nil, fmt.Errorf("%w: collection is required", domain.ErrInvalidInput)
	}

	switch req.Spec.Mode() {
	case query.ModeAggregate:
		return s.runAggregate(ctx, req)
	default:
		return s.runFind(ctx, req)
	}
}

func (s *Service) runFind(ctx context.Context, req Request) ([]map[string]any, error) {
	filter := req.Spec.Filter()
	if filter == nil {
		filter = map[string]any{}
	}
	if req.Fuzzy {
		filter = query.Fuzzify(filter)
	}

	filter, report, err := query.Sanitize(filter)
	if err != nil {
		metrics.RunRequestsTotal.WithLabelValues(string(query.ModeFind), "blocked").Inc()
		return nil, err
	}
	metrics.SanitizerRemovedClausesTotal.Add(float64(report.RemovedClauses))

	// A query emptied by the sanitizer is an error, never a full scan.
	if report.RemovedClauses > 0 && len(filter) == 0 {
		metrics.RunRequestsTotal.WithLabelValues(string(query.ModeFind), "empty").Inc()
		return nil, domain.ErrEmptyQuery
	}

	var projection, sort any
	if p := req.Spec.Projection(); p != nil {
		projection = extjson.Decode(p)
	}
	if so := req.Spec.Sort(); so != nil {
		sort = extjson.Decode(so)
	}

	docs, err := s.repo.Find(ctx, req.Collection,
		extjson.Decode(filter), projection, sort, req.Spec.Limit(), req.CaseInsensitive)
	if err != nil {
		metrics.RunRequestsTotal.WithLabelValues(string(query.ModeFind), "error").Inc()
		s.logger.Warn("find failed", zap.String("collection", req.Collection), zap.Error(err))
		return nil, fmt.Errorf("%w: %s", domain.ErrExecution, err)
	}

	metrics.RunRequestsTotal.WithLabelValues(string(query.ModeFind), "success").Inc()
	return extjson.EncodeDocuments(docs), nil
}

func (s *Service) runAggregate(ctx context.Context, req Request) ([]map[string]any, error) {
	pipeline := req.Spec.Pipeline()
	if len(pipeline) == 0 {
		return nil, fmt.Errorf("%w: pipeline must not be empty", domain.ErrInvalidInput)
	}
	if req.Fuzzy {
		pipeline = query.FuzzifyPipeline(pipeline)
	}

	pipeline, report, err := query.SanitizePipeline(pipeline)
	if err != nil {
		metrics.RunRequestsTotal.WithLabelValues(string(query.ModeAggregate), "blocked").Inc()
		return nil, err
	}
	metrics.SanitizerRemovedClausesTotal.Add(float64(report.RemovedClauses))

	// The terminal cap is appended unconditionally so a runaway or
	// adversarial pipeline cannot exceed the clamped limit.
	pipeline = append(pipeline, map[string]any{"$limit": req.Spec.Limit()})

	decoded, _ := extjson.Decode(pipeline).([]any)

	docs, err := s.repo.Aggregate(ctx, req.Collection, decoded)
	if err != nil {
		metrics.RunRequestsTotal.WithLabelValues(string(query.ModeAggregate), "error").Inc()
		s.logger.Warn("aggregate failed", zap.String("collection", req.Collection), zap.Error(err))
		return nil, fmt.Errorf("%w: %s", domain.ErrExecution, err)
	}

	metrics.RunRequestsTotal.WithLabelValues(string(query.ModeAggregate), "success").Inc()
	return extjson.EncodeDocuments(docs), nil
}
