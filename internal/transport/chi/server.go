package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/nlquery/internal/domain"
	"github.com/kailas-cloud/nlquery/internal/domain/query"
	cataloguc "github.com/kailas-cloud/nlquery/internal/usecase/catalog"
	generateuc "github.com/kailas-cloud/nlquery/internal/usecase/generate"
	healthuc "github.com/kailas-cloud/nlquery/internal/usecase/health"
	runuc "github.com/kailas-cloud/nlquery/internal/usecase/run"
)

// errorCode is the machine-readable code in the error envelope.
type errorCode string

const (
	codeBadRequest        errorCode = "bad_request"
	codeInvalidInput      errorCode = "invalid_input"
	codeUpstreamFailure   errorCode = "upstream_failure"
	codeModelOutput       errorCode = "model_output"
	codeDangerousOperator errorCode = "dangerous_operator"
	codeEmptyQuery        errorCode = "empty_query"
	codeExecutionFailure  errorCode = "execution_failure"
	codeNotFound          errorCode = "not_found"
	codeInternalError     errorCode = "internal_error"
)

type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the query pipeline over HTTP.
type Server struct {
	generate      *generateuc.Service
	run           *runuc.Service
	catalog       *cataloguc.Service
	health        *healthuc.Service
	metrics       http.Handler
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	generate *generateuc.Service,
	run *runuc.Service,
	catalog *cataloguc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		generate: generate,
		run:      run,
		catalog:  catalog,
		health:   health,
		metrics:  promhttp.Handler(),
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidInput, http.StatusUnprocessableEntity, codeInvalidInput),
		sentinelHandler(domain.ErrDangerousOperator, http.StatusBadRequest, codeDangerousOperator),
		emptyQueryHandler,
		sentinelHandler(domain.ErrUpstream, http.StatusBadGateway, codeUpstreamFailure),
		sentinelHandler(domain.ErrModelOutput, http.StatusInternalServerError, codeModelOutput),
		sentinelHandler(domain.ErrExecution, http.StatusInternalServerError, codeExecutionFailure),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
	}
	return s
}

type generateRequest struct {
	Instruction string `json:"instruction"`
	Mode        string `json:"mode"`
	Collection  string `json:"collection"`
}

type generateResponse struct {
	Mode     query.Mode     `json:"mode"`
	Query    map[string]any `json:"query,omitempty"`
	Pipeline []any          `json:"pipeline,omitempty"`
	Fields   []string       `json:"fields"`
	Raw      string         `json:"raw"`
}

// GenerateQuery handles POST /api/v1/query/generate.
func (s *Server) GenerateQuery(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Mode == "" {
		s.handleDomainError(w, fmt.Errorf("%w: mode is required", domain.ErrInvalidInput))
		return
	}
	mode, err := query.ParseMode(req.Mode)
	if err != nil {
		s.handleDomainError(w, fmt.Errorf("%w: %s", domain.ErrInvalidInput, err))
		return
	}

	result, err := s.generate.Generate(r.Context(), req.Instruction, mode, req.Collection)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	if result.Fields == nil {
		result.Fields = []string{}
	}
	writeJSON(w, http.StatusOK, generateResponse{
		Mode:     mode,
		Query:    result.Query,
		Pipeline: result.Pipeline,
		Fields:   result.Fields,
		Raw:      result.Raw,
	})
}

type runQueryBody struct {
	Filter     map[string]any `json:"filter"`
	Projection map[string]any `json:"projection"`
	Sort       map[string]any `json:"sort"`
}

type runRequest struct {
	Collection string        `json:"collection"`
	Query      *runQueryBody `json:"query"`
	Pipeline   []any         `json:"pipeline"`
	Limit      int           `json:"limit"`
	CI         *bool         `json:"ci"`
	Fuzzy      bool          `json:"fuzzy"`
}

type runResponse struct {
	Items []map[string]any `json:"items"`
	Count int              `json:"count"`
}

// RunQuery handles POST /api/v1/query/run.
func (s *Server) RunQuery(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Query != nil && req.Pipeline != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "request must carry query or pipeline, not both")
		return
	}

	var spec query.Spec
	switch {
	case req.Pipeline != nil:
		spec = query.NewAggregate(req.Pipeline, req.Limit)
	case req.Query != nil:
		spec = query.NewFind(req.Query.Filter, req.Query.Projection, req.Query.Sort, req.Limit)
	default:
		writeError(w, http.StatusBadRequest, codeBadRequest, "request must carry a query or a pipeline")
		return
	}

	// Case-insensitive matching is on unless explicitly disabled.
	ci := true
	if req.CI != nil {
		ci = *req.CI
	}

	items, err := s.run.Run(r.Context(), runuc.Request{
		Collection:      req.Collection,
		Spec:            spec,
		CaseInsensitive: ci,
		Fuzzy:           req.Fuzzy,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	if items == nil {
		items = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, runResponse{Items: items, Count: len(items)})
}

type collectionItem struct {
	Name      string `json:"name"`
	Documents int64  `json:"documents"`
}

type collectionsResponse struct {
	Items []collectionItem `json:"items"`
}

// ListCollections handles GET /api/v1/collections.
func (s *Server) ListCollections(w http.ResponseWriter, r *http.Request) {
	infos, err := s.catalog.List(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]collectionItem, len(infos))
	for i, info := range infos {
		items[i] = collectionItem{Name: info.Name, Documents: info.Documents}
	}
	writeJSON(w, http.StatusOK, collectionsResponse{Items: items})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	s.metrics.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a client-facing message for a domain error
// without exposing internals. Wrapped detail on ErrInvalidInput is safe:
// it is produced by our own validation, not by the store or the model.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrInvalidInput) {
		return err.Error()
	}
	sentinels := []error{
		domain.ErrDangerousOperator,
		domain.ErrEmptyQuery,
		domain.ErrUpstream,
		domain.ErrModelOutput,
		domain.ErrExecution,
		domain.ErrNotFound,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// emptyQueryHandler adds a retry hint so an interactive caller knows the
// query was not merely empty but emptied by sanitization.
func emptyQueryHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrEmptyQuery) {
		return false
	}
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"code":    codeEmptyQuery,
		"message": msg,
		"hint":    "rephrase the instruction or relax the query; every condition was removed as malformed",
	})
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
