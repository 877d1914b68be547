package nlquery

import (
	"time"

	"go.uber.org/zap"
)

// Option configures the SDK client.
type Option func(*clientConfig)

type clientConfig struct {
	mongoURI      string
	mongoDatabase string

	llmDriver  string // "", "ollama", "openai"
	llmBaseURL string
	llmAPIKey  string
	llmModel   string
	llmTimeout time.Duration

	sampleSize       int
	readinessTimeout time.Duration
	logger           *zap.Logger
}

// WithMongo sets the data-store connection. Required.
func WithMongo(uri, database string) Option {
	return func(c *clientConfig) {
		c.mongoURI = uri
		c.mongoDatabase = database
	}
}

// WithOllama configures a local Ollama model as the query compiler backend.
func WithOllama(baseURL, model string) Option {
	return func(c *clientConfig) {
		c.llmDriver = "ollama"
		c.llmBaseURL = baseURL
		c.llmModel = model
	}
}

// WithOpenAI configures an OpenAI-compatible API as the query compiler
// backend. baseURL may be empty for the default endpoint.
func WithOpenAI(apiKey, baseURL, model string) Option {
	return func(c *clientConfig) {
		c.llmDriver = "openai"
		c.llmAPIKey = apiKey
		c.llmBaseURL = baseURL
		c.llmModel = model
	}
}

// WithLLMTimeout bounds every model call. Defaults to 30 seconds.
func WithLLMTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		c.llmTimeout = d
	}
}

// WithSampleSize sets how many documents the schema sampler reads per
// collection.
func WithSampleSize(n int) Option {
	return func(c *clientConfig) {
		c.sampleSize = n
	}
}

// WithReadinessTimeout bounds the initial database readiness check.
func WithReadinessTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		c.readinessTimeout = d
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}
