package domain

import "errors"

var (
	// ErrInvalidInput signals a client-correctable request problem.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUpstream signals that the text-generation service was unreachable or returned an error.
	ErrUpstream = errors.New("text-generation service failure")
	// ErrModelOutput signals that no JSON object could be recovered from the model response.
	ErrModelOutput = errors.New("model output contains no recoverable JSON")
	// ErrDangerousOperator signals a blocked server-side-execution operator in a query.
	ErrDangerousOperator = errors.New("dangerous operator")
	// ErrEmptyQuery signals that sanitization removed every condition from a query.
	ErrEmptyQuery = errors.New("query is empty after sanitization")
	// ErrExecution signals a data-store failure while running a query.
	ErrExecution = errors.New("query execution failure")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
)
