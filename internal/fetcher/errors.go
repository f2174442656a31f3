package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Class categorizes a fetch failure for retry decisions.
type Class string

const (
	// ClassInvalidRequest indicates a malformed request (bad symbol or date
	// range) rejected before reaching the provider. Never retried.
	ClassInvalidRequest Class = "invalid_request"
	// ClassTransient indicates a recoverable provider failure: timeout,
	// 5xx, or remote rate limiting. Retried per policy.
	ClassTransient Class = "transient"
	// ClassPermanent indicates a provider failure that will not succeed on
	// retry: auth failure, unknown symbol, malformed request.
	ClassPermanent Class = "permanent"
	// ClassUnknown indicates an unclassifiable failure. Treated as
	// retryable for safety, bounded by the retry policy's attempt cap.
	ClassUnknown Class = "unknown"
)

// FetchError is a structured, classified error from a fetch operation.
type FetchError struct {
	Class      Class
	Retryable  bool
	StatusCode int
	Message    string
	Cause      error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Class, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Class, e.Message)
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// NewInvalidRequestError creates a non-retryable malformed-request error
func NewInvalidRequestError(message string) *FetchError {
	return &FetchError{
		Class:     ClassInvalidRequest,
		Retryable: false,
		Message:   message,
	}
}

// NewTransientError creates a retryable error
func NewTransientError(message string, cause error) *FetchError {
	return &FetchError{
		Class:     ClassTransient,
		Retryable: true,
		Message:   message,
		Cause:     cause,
	}
}

// NewPermanentError creates a non-retryable provider error
func NewPermanentError(message string) *FetchError {
	return &FetchError{
		Class:     ClassPermanent,
		Retryable: false,
		Message:   message,
	}
}

// NewUnknownError creates an error of unknown origin. Unknown defaults to
// retryable so that a misclassified transient fault still recovers; the
// retry policy's attempt cap bounds the cost of being wrong.
func NewUnknownError(message string, cause error) *FetchError {
	return &FetchError{
		Class:     ClassUnknown,
		Retryable: true,
		Message:   message,
		Cause:     cause,
	}
}

// ClassifyHTTPStatus classifies an HTTP status code into a FetchError.
func ClassifyHTTPStatus(statusCode int) *FetchError {
	switch {
	case statusCode == 429:
		return &FetchError{
			Class:      ClassTransient,
			Retryable:  true,
			StatusCode: statusCode,
			Message:    "rate limited by remote",
		}
	case statusCode >= 500, statusCode == 408:
		return &FetchError{
			Class:      ClassTransient,
			Retryable:  true,
			StatusCode: statusCode,
			Message:    "server returned an error",
		}
	case statusCode == 401, statusCode == 403:
		return &FetchError{
			Class:      ClassPermanent,
			Retryable:  false,
			StatusCode: statusCode,
			Message:    "authentication failed",
		}
	case statusCode >= 400:
		return &FetchError{
			Class:      ClassPermanent,
			Retryable:  false,
			StatusCode: statusCode,
			Message:    fmt.Sprintf("client error: HTTP %d", statusCode),
		}
	default:
		return &FetchError{
			Class:      ClassUnknown,
			Retryable:  true,
			StatusCode: statusCode,
			Message:    fmt.Sprintf("unexpected status code: %d", statusCode),
		}
	}
}

// Classify wraps an arbitrary error in a FetchError. Already-classified
// errors pass through; network timeouts and canceled contexts become
// Transient (canceled is additionally marked non-retryable: there is no
// point retrying on a dead context); anything else is Unknown.
func Classify(err error) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{
			Class:     ClassTransient,
			Retryable: false,
			Message:   "request canceled",
			Cause:     err,
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return NewTransientError("network request failed", err)
	}
	return NewUnknownError(err.Error(), err)
}
