package services

import (
	"errors"
	"fmt"
)

var (
	// ErrModelUnavailable is returned when no model API key is configured.
	ErrModelUnavailable = errors.New("model integration is not configured")
	// ErrEmptyText is returned when the uploaded PDF has no extractable text.
	ErrEmptyText = errors.New("no text found in the PDF")
)

// UploadError is a caller defect in the uploaded file (missing part, empty name, no text).
type UploadError struct {
	Reason string
	Err    error
}

func (e *UploadError) Error() string {
	if e.Err != nil && e.Err.Error() != e.Reason {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *UploadError) Unwrap() error { return e.Err }

// InvalidRequestError reports generation parameters that failed validation.
type InvalidRequestError struct {
	Err error
}

func (e *InvalidRequestError) Error() string { return "invalid request: " + e.Err.Error() }

func (e *InvalidRequestError) Unwrap() error { return e.Err }

// UpstreamError is a failed call to the model API. StatusCode is 0 for
// transport failures and timeouts.
type UpstreamError struct {
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("model API request failed with status code %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("model API request failed: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// ExtractionError means no JSON array could be located in the model reply.
type ExtractionError struct {
	Text string
}

func (e *ExtractionError) Error() string {
	return "no JSON array found in model response"
}

// ParseError carries the substring that failed to decode as JSON.
type ParseError struct {
	Snippet string
	Err     error
}

const maxSnippet = 500

func (e *ParseError) Error() string {
	snippet := e.Snippet
	if runes := []rune(snippet); len(runes) > maxSnippet {
		snippet = string(runes[:maxSnippet]) + "..."
	}
	return fmt.Sprintf("failed to parse questions: %v (input: %q)", e.Err, snippet)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationRejection records why one model item was skipped. It never aborts a batch.
type ValidationRejection struct {
	Index  int
	Reason string
}

func (e *ValidationRejection) Error() string {
	return fmt.Sprintf("item %d rejected: %s", e.Index, e.Reason)
}

// InsufficientYieldError means fewer items passed validation than were requested.
type InsufficientYieldError struct {
	Accepted  int
	Requested int
}

func (e *InsufficientYieldError) Error() string {
	return fmt.Sprintf("only %d/%d valid questions could be generated", e.Accepted, e.Requested)
}

// PersistenceError is a failed document write. Index is -1 when it applies to the whole request.
type PersistenceError struct {
	Collection string
	Index      int
	Err        error
}

func (e *PersistenceError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("persist %s: %v", e.Collection, e.Err)
	}
	return fmt.Sprintf("persist %s[%d]: %v", e.Collection, e.Index, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
