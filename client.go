// Package nlquery is an embedded SDK for compiling natural-language
// instructions into safe data-store queries and running them, without the
// HTTP server in between.
package nlquery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/nlquery/internal/domain/query"
	mongorepo "github.com/kailas-cloud/nlquery/internal/repository/mongo"
	"github.com/kailas-cloud/nlquery/internal/transport/ollama"
	"github.com/kailas-cloud/nlquery/internal/transport/openai"
	cataloguc "github.com/kailas-cloud/nlquery/internal/usecase/catalog"
	generateuc "github.com/kailas-cloud/nlquery/internal/usecase/generate"
	runuc "github.com/kailas-cloud/nlquery/internal/usecase/run"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultLLMTimeout       = 30 * time.Second
)

// Client is the nlquery SDK entry point.
type Client struct {
	store       *mongorepo.Store
	generateSvc *generateuc.Service
	runSvc      *runuc.Service
	catalogSvc  *cataloguc.Service
}

// New creates an nlquery Client and connects to the database.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		llmTimeout:       defaultLLMTimeout,
		readinessTimeout: defaultReadinessTimeout,
		logger:           zap.NewNop(),
	}
	for _, o := range opts {
		o(cfg)
	}

	if cfg.mongoURI == "" || cfg.mongoDatabase == "" {
		return nil, errors.New("nlquery: database connection required (use WithMongo)")
	}

	store, err := mongorepo.NewStore(ctx, mongorepo.Config{
		URI:      cfg.mongoURI,
		Database: cfg.mongoDatabase,
	})
	if err != nil {
		return nil, fmt.Errorf("nlquery: create store: %w", err)
	}

	if err := store.WaitForReady(ctx, cfg.readinessTimeout); err != nil {
		_ = store.Close(ctx)
		return nil, fmt.Errorf("nlquery: database not ready: %w", err)
	}

	return wireClient(store, cfg), nil
}

func wireClient(store *mongorepo.Store, cfg *clientConfig) *Client {
	// Generator: noop if not configured (Run works, Generate returns an error)
	var gen generateuc.Generator = noopGenerator{}
	switch cfg.llmDriver {
	case "ollama":
		gen = ollama.NewClient(&ollama.Config{
			BaseURL: cfg.llmBaseURL,
			Model:   cfg.llmModel,
			Timeout: cfg.llmTimeout,
			Logger:  cfg.logger,
		})
	case "openai":
		gen = openai.NewClient(&openai.Config{
			APIKey:  cfg.llmAPIKey,
			BaseURL: cfg.llmBaseURL,
			Model:   cfg.llmModel,
			Timeout: cfg.llmTimeout,
			Logger:  cfg.logger,
		})
	}

	generateSvc := generateuc.New(store, gen, cfg.logger)
	if cfg.sampleSize > 0 {
		generateSvc = generateSvc.WithSampleSize(cfg.sampleSize)
	}

	return &Client{
		store:       store,
		generateSvc: generateSvc,
		runSvc:      runuc.New(store, cfg.logger),
		catalogSvc:  cataloguc.New(store, cfg.logger),
	}
}

// Close releases all resources.
func (c *Client) Close(ctx context.Context) error {
	if c.store != nil {
		if err := c.store.Close(ctx); err != nil {
			return fmt.Errorf("close: %w", err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// GenerateOptions configures query generation.
type GenerateOptions struct {
	// Mode is "find" (default) or "aggregate".
	Mode string
	// Collection enables schema sampling so the compiled query uses the
	// collection's real field casing.
	Collection string
}

// GeneratedQuery is a compiled query ready for Run.
type GeneratedQuery struct {
	Mode     string
	Query    map[string]any
	Pipeline []any
	Fields   []string
	Raw      string
}

// Generate compiles a natural-language instruction into a structured query.
func (c *Client) Generate(
	ctx context.Context, instruction string, opts GenerateOptions,
) (GeneratedQuery, error) {
	mode := query.ModeFind
	if opts.Mode != "" {
		var err error
		mode, err = query.ParseMode(opts.Mode)
		if err != nil {
			return GeneratedQuery{}, fmt.Errorf("nlquery: %w", err)
		}
	}

	result, err := c.generateSvc.Generate(ctx, instruction, mode, opts.Collection)
	if err != nil {
		return GeneratedQuery{}, fmt.Errorf("generate: %w", err)
	}

	return GeneratedQuery{
		Mode:     string(mode),
		Query:    result.Query,
		Pipeline: result.Pipeline,
		Fields:   result.Fields,
		Raw:      result.Raw,
	}, nil
}

// RunOptions configures query execution. Exactly one of Filter or Pipeline
// selects the query shape; a nil Filter with a nil Pipeline runs an empty
// find.
type RunOptions struct {
	Filter     map[string]any
	Projection map[string]any
	Sort       map[string]any
	Pipeline   []any
	// Limit caps results; zero means the default cap of 100.
	Limit int
	// CaseSensitive disables the case-insensitive collation that is on by
	// default for find queries.
	CaseSensitive bool
	// Fuzzy rewrites literal string equality into case-insensitive
	// substring matches.
	Fuzzy bool
}

// Run executes a query against a collection through the safety pipeline.
func (c *Client) Run(
	ctx context.Context, collection string, opts RunOptions,
) ([]map[string]any, error) {
	var spec query.Spec
	if opts.Pipeline != nil {
		spec = query.NewAggregate(opts.Pipeline, opts.Limit)
	} else {
		spec = query.NewFind(opts.Filter, opts.Projection, opts.Sort, opts.Limit)
	}

	docs, err := c.runSvc.Run(ctx, runuc.Request{
		Collection:      collection,
		Spec:            spec,
		CaseInsensitive: !opts.CaseSensitive,
		Fuzzy:           opts.Fuzzy,
	})
	if err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}
	return docs, nil
}

// CollectionInfo describes one queryable collection.
type CollectionInfo struct {
	Name string
	// Documents is an estimated count; -1 when the estimate failed.
	Documents int64
}

// Collections lists queryable collections sorted by name.
func (c *Client) Collections(ctx context.Context) ([]CollectionInfo, error) {
	infos, err := c.catalogSvc.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("collections: %w", err)
	}
	out := make([]CollectionInfo, len(infos))
	for i, info := range infos {
		out[i] = CollectionInfo{Name: info.Name, Documents: info.Documents}
	}
	return out, nil
}

// noopGenerator returns an error on Generate (used when no model configured).
type noopGenerator struct{}

func (noopGenerator) Generate(_ context.Context, _, _ string) (string, error) {
	return "", errors.New(
		"nlquery: model not configured (use WithOllama or WithOpenAI)",
	)
}
