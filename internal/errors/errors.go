package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a postclip error code.
type ErrorCode string

const (
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"     // 400
	ErrMissingCredential  ErrorCode = "MISSING_CREDENTIAL"  // 401
	ErrFileNotFound       ErrorCode = "FILE_NOT_FOUND"      // 404
	ErrNotReddit          ErrorCode = "NOT_REDDIT"          // 422
	ErrExtractionMismatch ErrorCode = "EXTRACTION_MISMATCH" // 422
	ErrPageUnavailable    ErrorCode = "PAGE_UNAVAILABLE"    // 502
	ErrRequestFailed      ErrorCode = "REQUEST_FAILED"      // 502
	ErrMalformedResponse  ErrorCode = "MALFORMED_RESPONSE"  // 502
	ErrPersistenceFault   ErrorCode = "PERSISTENCE_FAULT"   // 500
	ErrInternal           ErrorCode = "INTERNAL"            // 500
)

// ClipError represents a structured error with code, status, and details.
type ClipError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	// Cause is the underlying error, kept for logging. It is never rendered.
	Cause error
}

// Error implements the error interface.
func (e *ClipError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ClipError) Unwrap() error {
	return e.Cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *ClipError {
	return &ClipError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewMissingCredential creates a 401 error for summarization without an API key.
func NewMissingCredential() *ClipError {
	return &ClipError{
		Code:    ErrMissingCredential,
		Status:  401,
		Message: "OpenAI API key is not configured",
	}
}

// NewFileNotFound creates a 404 error when an import file doesn't exist.
func NewFileNotFound(path string) *ClipError {
	return &ClipError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewNotReddit creates a 422 error when the URL is not on a Reddit host.
func NewNotReddit(rawURL string) *ClipError {
	return &ClipError{
		Code:    ErrNotReddit,
		Status:  422,
		Message: "this page is not on Reddit",
		Details: map[string]any{"url": rawURL},
	}
}

// NewExtractionMismatch creates a 422 error when the page has no post title slot.
func NewExtractionMismatch(rawURL string) *ClipError {
	return &ClipError{
		Code:    ErrExtractionMismatch,
		Status:  422,
		Message: "can't find a Reddit post title here",
		Details: map[string]any{"url": rawURL},
	}
}

// NewPageUnavailable creates a 502 error when the page could not be loaded.
func NewPageUnavailable(rawURL string, err error) *ClipError {
	return &ClipError{
		Code:    ErrPageUnavailable,
		Status:  502,
		Message: "couldn't load the Reddit post",
		Details: map[string]any{"url": rawURL},
		Cause:   err,
	}
}

// NewRequestFailed creates a 502 error for a failed summarization call.
func NewRequestFailed(err error) *ClipError {
	return &ClipError{
		Code:    ErrRequestFailed,
		Status:  502,
		Message: "OpenAI request failed",
		Cause:   err,
	}
}

// NewMalformedResponse creates a 502 error for model output that does not parse.
func NewMalformedResponse(err error) *ClipError {
	return &ClipError{
		Code:    ErrMalformedResponse,
		Status:  502,
		Message: "unexpected response format from OpenAI",
		Cause:   err,
	}
}

// NewPersistenceFault creates a 500 error for storage read/write faults.
func NewPersistenceFault(op string, err error) *ClipError {
	msg := "storage " + op + " failed"
	return &ClipError{
		Code:    ErrPersistenceFault,
		Status:  500,
		Message: msg,
		Details: map[string]any{"op": op},
		Cause:   err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The message stays generic; the original error text goes to Details for logging.
func NewInternal(err error) *ClipError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &ClipError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
		Cause:   err,
	}
}

// Is checks if an error is (or wraps) a ClipError with the given code.
func Is(err error, code ErrorCode) bool {
	var cErr *ClipError
	if stderrors.As(err, &cErr) {
		return cErr.Code == code
	}
	return false
}

// As returns the ClipError in err's chain, if any.
func As(err error) (*ClipError, bool) {
	var cErr *ClipError
	if stderrors.As(err, &cErr) {
		return cErr, true
	}
	return nil, false
}

// CodeOf returns the code of a ClipError, or ErrInternal for anything else.
func CodeOf(err error) ErrorCode {
	var cErr *ClipError
	if stderrors.As(err, &cErr) {
		return cErr.Code
	}
	return ErrInternal
}

// Summarization reports whether err belongs to the summarization family.
// These errors degrade a capture to a saved-without-summary outcome.
func Summarization(err error) bool {
	switch CodeOf(err) {
	case ErrMissingCredential, ErrRequestFailed, ErrMalformedResponse:
		return true
	}
	return false
}
