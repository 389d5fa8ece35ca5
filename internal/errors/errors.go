// Package errors provides the structured application error used across
// the ingestion pipeline: a single type carrying a stable code, a
// human-readable message and optional machine-readable details, so that
// chain adapters, the extractor, classifier, attribution client and
// persistence layer can all report failures through one shape.
package errors

import "encoding/json"

// AppError represents a structured application error.
type AppError struct {
	// Code is a unique identifier for the error type
	Code string `json:"code"`
	// Message is a human-readable error message
	Message string `json:"message"`
	// Details contains additional error context (optional)
	Details map[string]any `json:"details,omitempty"`
	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements json.Marshaler
func (e *AppError) MarshalJSON() ([]byte, error) {
	type Alias AppError
	return json.Marshal(&struct {
		*Alias
		Error string `json:"error"`
	}{
		Alias: (*Alias)(e),
		Error: e.Error(),
	})
}

// Is implements error matching for errors.Is, comparing by Code only so
// that e.g. every TransportError compares equal regardless of the
// underlying transport failure.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}
