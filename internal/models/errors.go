package models

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies pipeline failures for propagation and HTTP mapping.
type ErrorKind string

const (
	// ErrorKindValidation marks malformed input to the pipeline, e.g. no
	// questions could be extracted from the uploaded document.
	ErrorKindValidation ErrorKind = "validation"
	// ErrorKindUpstream marks a reasoning or document-store call that
	// failed after exhausting its retries.
	ErrorKindUpstream ErrorKind = "upstream_service"
	// ErrorKindDataIntegrity marks a reasoning response that stayed
	// unparseable after every repair strategy.
	ErrorKindDataIntegrity ErrorKind = "data_integrity"
	// ErrorKindNotFound marks a descriptor with no matching document in
	// the store.
	ErrorKindNotFound ErrorKind = "not_found"
	// ErrorKindInternal marks unexpected failures.
	ErrorKindInternal ErrorKind = "internal"
)

// rawSampleLimit bounds how much raw reasoning output travels inside a
// DataIntegrityError for diagnosis.
const rawSampleLimit = 500

// AppError is a classified pipeline error. Leaf failures are swallowed
// into absent evidence and never reach callers; AppError is reserved for
// structural failures that must surface with their classification.
type AppError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Raw     string    `json:"raw,omitempty"` // Bounded raw-text sample, data integrity errors only
	cause   error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/errors.As chains.
func (e *AppError) Unwrap() error {
	return e.cause
}

// NewValidationError reports malformed pipeline input.
func NewValidationError(message string) *AppError {
	return &AppError{Kind: ErrorKindValidation, Message: message}
}

// NewUpstreamError reports an external call that failed after retries.
func NewUpstreamError(message string, cause error) *AppError {
	return &AppError{Kind: ErrorKindUpstream, Message: message, cause: cause}
}

// NewDataIntegrityError reports an unrecoverable reasoning response and
// carries a bounded sample of the raw text.
func NewDataIntegrityError(message string, raw string) *AppError {
	if len(raw) > rawSampleLimit {
		raw = raw[:rawSampleLimit]
	}
	return &AppError{Kind: ErrorKindDataIntegrity, Message: message, Raw: raw}
}

// NewNotFoundError reports a descriptor without a matching stored document.
func NewNotFoundError(message string) *AppError {
	return &AppError{Kind: ErrorKindNotFound, Message: message}
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(message string, cause error) *AppError {
	return &AppError{Kind: ErrorKindInternal, Message: message, cause: cause}
}

// KindOf extracts the classification from an error chain. Unclassified
// errors report as internal.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ErrorKindInternal
}

// HTTPStatus maps an error classification to a response status code.
func HTTPStatus(kind ErrorKind) int {
	switch kind {
	case ErrorKindValidation:
		return http.StatusBadRequest
	case ErrorKindNotFound:
		return http.StatusNotFound
	case ErrorKindUpstream, ErrorKindDataIntegrity:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
