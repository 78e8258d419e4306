// Package llm provides the inference backend abstraction: a single call
// surface over interchangeable model providers, plus classification of
// backend failures into recoverable and non-recoverable kinds.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/api/googleapi"
)

// Completion is the result of one backend call.
type Completion struct {
	Text       string
	TokenCount int
}

// Backend is implemented by each interchangeable model provider.
type Backend interface {
	// Complete runs one generation call. maxTokens <= 0 leaves the provider
	// default in place.
	Complete(ctx context.Context, prompt, systemPrompt string, maxTokens int) (*Completion, error)
	// Model returns the provider model identifier, used for metrics and
	// stage result attribution.
	Model() string
}

// ErrorKind classifies a backend failure.
type ErrorKind string

// Failure kinds. Timeout and connection failures are recoverable (retried,
// then failed over); a rejected request is not.
const (
	ErrKindTimeout    ErrorKind = "timeout"
	ErrKindConnection ErrorKind = "connection"
	ErrKindRejected   ErrorKind = "rejected"
)

// BackendError wraps a provider failure with its classification.
type BackendError struct {
	Kind  ErrorKind
	Model string
	Cause error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s failed (%s): %v", e.Model, e.Kind, e.Cause)
}

func (e *BackendError) Unwrap() error { return e.Cause }

// Recoverable reports whether the failure is worth a retry or fallback.
func (e *BackendError) Recoverable() bool {
	return e.Kind == ErrKindTimeout || e.Kind == ErrKindConnection
}

// Classify wraps a raw provider error as a BackendError. Deadline and
// network failures are recoverable; HTTP 429/5xx count as connection
// trouble; everything else is an explicit rejection.
func Classify(err error, model string) *BackendError {
	var be *BackendError
	if errors.As(err, &be) {
		return be
	}

	kind := ErrKindRejected
	switch {
	case isTimeout(err):
		kind = ErrKindTimeout
	case isNetworkError(err):
		kind = ErrKindConnection
	case isRetryableAPIError(err):
		kind = ErrKindConnection
	}
	return &BackendError{Kind: kind, Model: model, Cause: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func isRetryableAPIError(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == 429 || apiErr.Code >= 500
}
