package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
// Implementing this interface enables extensible error handling at the
// transport boundary.
type HTTPError interface {
	error
	StatusCode() int
}

// Sentinel errors - use with errors.Is()
var (
	// ErrCapacity marks a transient backend capacity signal (rate limit hit
	// or request too large). Backends wrap raw failures with this sentinel
	// so the invocation loop can decide to shrink and retry.
	ErrCapacity = errors.New("backend capacity exceeded")

	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
)

// CapacityError is returned after the retry budget is exhausted against a
// transient capacity signal. It carries the last underlying backend error.
type CapacityError struct {
	Attempts int
	Err      error
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("capacity exceeded after %d attempts: %v", e.Attempts, e.Err)
}

func (e *CapacityError) Unwrap() error { return e.Err }

// Is allows errors.Is() to match against ErrCapacity
func (e *CapacityError) Is(target error) bool { return target == ErrCapacity }

func (e *CapacityError) StatusCode() int { return http.StatusServiceUnavailable }

// BackendError wraps any non-capacity backend failure. These are never
// retried: one attempt, fail fast.
type BackendError struct {
	Err error
}

func (e *BackendError) Error() string   { return fmt.Sprintf("backend error: %v", e.Err) }
func (e *BackendError) Unwrap() error   { return e.Err }
func (e *BackendError) StatusCode() int { return http.StatusBadGateway }

// RetrievalError indicates the retrieval collaborator is unavailable. The
// chat flow degrades to no-context instead of failing the whole turn.
type RetrievalError struct {
	Err error
}

func (e *RetrievalError) Error() string { return fmt.Sprintf("retrieval unavailable: %v", e.Err) }
func (e *RetrievalError) Unwrap() error { return e.Err }

// ValidationError indicates invalid input
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string        { return e.Message }
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
func (e *ValidationError) StatusCode() int      { return http.StatusBadRequest }

// capacityPatterns are message fragments that indicate a rate or size limit
// from backends that surface limits as plain error strings rather than
// status codes.
var capacityPatterns = []string{
	"rate limit",
	"rate_limit",
	"too many requests",
	"quota exceeded",
	"context length",
	"context_length_exceeded",
	"maximum context",
	"request too large",
	"payload too large",
	"overloaded",
}

// IsCapacitySignal reports whether err represents a transient capacity
// condition the invocation loop may retry. It matches the ErrCapacity
// sentinel first, then falls back to known message patterns.
func IsCapacitySignal(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCapacity) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, p := range capacityPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
