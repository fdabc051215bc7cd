package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmbeddingFailure means the embedding capability errored or returned an unusable vector.
	ErrEmbeddingFailure = errors.New("embedding failure")
	// ErrDimensionMismatch means a vector does not match the store's dimensionality.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrInvalidTimestamp means a time value could not be parsed or is missing.
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	// ErrSummarizationFailure means the summarization capability errored.
	ErrSummarizationFailure = errors.New("summarization failure")
	// ErrInvalidArgument is returned for out-of-range inputs such as a negative k.
	ErrInvalidArgument = errors.New("invalid argument")
)

// DimensionMismatchError reports the expected and actual vector length.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: want %d, got %d", e.Want, e.Got)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// AddError is returned when some documents of a batch could not be indexed.
// Succeeded holds the ids that were committed, Failed those that were not.
type AddError struct {
	Succeeded []string
	Failed    []string
	Err       error
}

func (e *AddError) Error() string {
	return fmt.Sprintf("add: %d indexed, %d not indexed (%s): %v",
		len(e.Succeeded), len(e.Failed), strings.Join(e.Failed, ","), e.Err)
}

func (e *AddError) Unwrap() []error { return []error{ErrEmbeddingFailure, e.Err} }

// TimestampError carries the raw value that failed to parse.
type TimestampError struct {
	Value string
	Err   error
}

func (e *TimestampError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("invalid timestamp %q", e.Value)
	}
	return fmt.Sprintf("invalid timestamp %q: %v", e.Value, e.Err)
}

func (e *TimestampError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalidTimestamp}
	}
	return []error{ErrInvalidTimestamp, e.Err}
}

// SummarizationError wraps a failed call to the summarization capability.
type SummarizationError struct {
	Err error
}

func (e *SummarizationError) Error() string { return "summarization failed: " + e.Err.Error() }

func (e *SummarizationError) Unwrap() []error { return []error{ErrSummarizationFailure, e.Err} }

// InvalidArgument formats an ErrInvalidArgument with a message.
func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
