package helpers

import (
	"context"
	"errors"
	"fmt"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type PulseError struct {
	Message string
	Cause   error
}

func (e *PulseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *PulseError) Unwrap() error {
	return e.Cause
}

// Distinct error types for errors.As classification
type FetchTimeoutError struct{ PulseError }
type FetchError struct{ PulseError }
type ParseError struct{ PulseError }
type NotFoundError struct{ PulseError }
type SubscriberBackpressureError struct{ PulseError }
type ConfigurationError struct{ PulseError }

// -----------------------------------------------------------------------------
// Sentinels
// -----------------------------------------------------------------------------

var (
	ErrNotFound       = errors.New("not found")
	ErrUnknownSource  = errors.New("unknown source")
	ErrUnknownSession = errors.New("unknown session")
	ErrInvalidRequest = errors.New("invalid request")
)

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// -----------------------------------------------------------------------------
// Constructors
// -----------------------------------------------------------------------------

func NewParseError(sourceID string, cause error) error {
	return &ParseError{PulseError{Message: fmt.Sprintf("malformed payload from %s", sourceID), Cause: cause}}
}

func NewNotFoundError(what string) error {
	return &NotFoundError{PulseError{Message: fmt.Sprintf("%s not found", what)}}
}

func NewBackpressureError(sessionID string, dropped uint64) error {
	return &SubscriberBackpressureError{PulseError{
		Message: fmt.Sprintf("session %s outbound queue full, dropped %d message(s)", sessionID, dropped),
	}}
}

// ClassifyFetchError wraps an adapter failure into the fetch taxonomy. Errors
// that are already classified pass through unchanged.
func ClassifyFetchError(sourceID string, err error) error {
	if err == nil {
		return nil
	}
	var (
		pe *ParseError
		te *FetchTimeoutError
		fe *FetchError
	)
	if errors.As(err, &pe) || errors.As(err, &te) || errors.As(err, &fe) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchTimeoutError{PulseError{Message: fmt.Sprintf("fetch %s timed out", sourceID), Cause: err}}
	}
	return &FetchError{PulseError{Message: fmt.Sprintf("fetch %s failed", sourceID), Cause: err}}
}

// IsParseError reports whether err is (or wraps) a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsFetchTimeout reports whether err is (or wraps) a FetchTimeoutError.
func IsFetchTimeout(err error) bool {
	var te *FetchTimeoutError
	return errors.As(err, &te)
}
