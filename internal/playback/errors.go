package playback

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected during playback.
//
// RuntimeError includes structured fields for diagnostics.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeNoChapters indicates the repository produced zero chapters.
	ErrCodeNoChapters RuntimeErrorCode = "NO_CHAPTERS"

	// ErrCodeChapterOutOfRange indicates a chapter index outside the book.
	ErrCodeChapterOutOfRange RuntimeErrorCode = "CHAPTER_OUT_OF_RANGE"

	// ErrCodeInvalidPhase indicates an operation not valid in the current phase.
	ErrCodeInvalidPhase RuntimeErrorCode = "INVALID_PHASE"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsNoChapters returns true if the error reports an empty book.
// Uses errors.As to handle wrapped errors.
func IsNoChapters(err error) bool {
	return hasCode(err, ErrCodeNoChapters)
}

// IsOutOfRange returns true if the error reports an invalid chapter index.
func IsOutOfRange(err error) bool {
	return hasCode(err, ErrCodeChapterOutOfRange)
}

// IsInvalidPhase returns true if the operation was not valid in the phase.
func IsInvalidPhase(err error) bool {
	return hasCode(err, ErrCodeInvalidPhase)
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// NewNoChaptersError creates a RuntimeError for an empty book. cause may be
// nil.
func NewNoChaptersError(cause error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeNoChapters,
		Message: "no chapters could be loaded",
		Err:     cause,
	}
}

// NewOutOfRangeError creates a RuntimeError for an invalid chapter index.
func NewOutOfRangeError(index, count int) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeChapterOutOfRange,
		Message: fmt.Sprintf("chapter %d outside [0, %d)", index, count),
		Details: map[string]string{
			"index": fmt.Sprintf("%d", index),
			"count": fmt.Sprintf("%d", count),
		},
	}
}

// NewInvalidPhaseError creates a RuntimeError for an operation attempted in
// the wrong phase.
func NewInvalidPhaseError(op string, phase Phase) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeInvalidPhase,
		Message: fmt.Sprintf("%s not allowed in phase %s", op, phase),
		Details: map[string]string{
			"op":    op,
			"phase": phase.String(),
		},
	}
}
