// Package generate compiles natural-language instructions into structured
// queries via an untrusted text-generation backend.
package generate

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/nlquery/internal/domain"
	"github.com/kailas-cloud/nlquery/internal/domain/query"
	"github.com/kailas-cloud/nlquery/internal/domain/schema"
	"github.com/kailas-cloud/nlquery/internal/metrics"
)

// Service runs the generation half of the pipeline: sample schema, compile
// the prompt, call the model, recover JSON, normalize field casing. All
// state is request-scoped; nothing is cached across calls.
type Service struct {
	sampler    Sampler
	gen        Generator
	sampleSize int
	logger     *zap.Logger
}

// New creates a generation service.
func New(sampler Sampler, gen Generator, logger *zap.Logger) *Service {
	return &Service{
		sampler:    sampler,
		gen:        gen,
		sampleSize: schema.DefaultSampleSize,
		logger:     logger,
	}
}

// WithSampleSize overrides the schema sample cap.
func (s *Service) WithSampleSize(n int) *Service {
	if n > 0 {
		s.sampleSize = n
	}
	return s
}

// Result is a compiled query plus the schema hints and raw model text that
// produced it.
type Result struct {
	Query    map[string]any
	Pipeline []any
	Fields   []string
	Raw      string
}

// Generate compiles an instruction into a query. collection is optional;
// when present it enables schema sampling. Sampling failures degrade to "no
// schema hints" — every other failure is terminal for the request.
func (s *Service) Generate(
	ctx context.Context, instruction string, mode query.Mode, collection string,
) (Result, error) {
	if strings.TrimSpace(instruction) == "" {
		return Result{}, fmt.Errorf("%w: instruction is required", domain.ErrInvalidInput)
	}

	fields := s.sampleFields(ctx, collection)

	raw, err := s.gen.Generate(ctx, buildSystemPrompt(mode), buildUserPrompt(instruction, collection, fields))
	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(string(mode), "upstream_error").Inc()
		return Result{}, fmt.Errorf("generate: %w", err)
	}

	obj, ok := extractObject(raw)
	if !ok {
		metrics.GenerationRequestsTotal.WithLabelValues(string(mode), "invalid_output").Inc()
		return Result{}, domain.ErrModelOutput
	}

	caseMap := schema.NewCaseMap(fields)
	result := Result{Fields: fields, Raw: raw}

	switch mode {
	case query.ModeAggregate:
		pipeline, ok := obj["pipeline"].([]any)
		if !ok {
			metrics.GenerationRequestsTotal.WithLabelValues(string(mode), "invalid_output").Inc()
			return Result{}, fmt.Errorf("%w: missing pipeline array", domain.ErrModelOutput)
		}
		result.Pipeline = caseMap.NormalizePipeline(pipeline)
	default:
		filter, err := findFilter(obj)
		if err != nil {
			metrics.GenerationRequestsTotal.WithLabelValues(string(mode), "invalid_output").Inc()
			return Result{}, err
		}
		result.Query = caseMap.Normalize(filter)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(string(mode), "success").Inc()
	return result, nil
}

// sampleFields learns field paths from the target collection. Failures are
// swallowed: generation proceeds without schema hints.
func (s *Service) sampleFields(ctx context.Context, collection string) []string {
	if collection == "" {
		return nil
	}
	docs, err := s.sampler.Sample(ctx, collection, s.sampleSize)
	if err != nil {
		s.logger.Debug("schema sampling failed, proceeding without hints",
			zap.String("collection", collection), zap.Error(err))
		return nil
	}
	return schema.FieldPaths(docs)
}

// findFilter pulls the filter document out of the extracted object. The
// contract asks for {"query": {...}}; a bare filter object is tolerated.
func findFilter(obj map[string]any) (map[string]any, error) {
	if raw, present := obj["query"]; present {
		filter, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: query is not an object", domain.ErrModelOutput)
		}
		return filter, nil
	}
	if _, hasPipeline := obj["pipeline"]; hasPipeline {
		return nil, fmt.Errorf("%w: got a pipeline for a find request", domain.ErrModelOutput)
	}
	return obj, nil
}
