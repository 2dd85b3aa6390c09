package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeCycleDetected indicates composite formulas that reference each
	// other, directly or through other composites.
	ErrCodeCycleDetected ErrorCode = "CYCLE_DETECTED"
)

// Error represents an error detected while planning or running an operation.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// RunID identifies the operation that failed.
	RunID string

	// Path lists the indicators involved, for cycle errors a closed loop
	// such as ["A", "B", "A"].
	Path []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.RunID != "" {
		return fmt.Sprintf("%s: %s (run=%s)", e.Code, e.Message, e.RunID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsCycleError returns true if the error is a formula cycle error.
// Uses errors.As to handle wrapped errors.
func IsCycleError(err error) bool {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeCycleDetected
	}
	return false
}

// NewCycleError creates an Error for a formula dependency cycle.
func NewCycleError(runID string, path []string) *Error {
	return &Error{
		Code:    ErrCodeCycleDetected,
		Message: fmt.Sprintf("formula dependency cycle: %s", strings.Join(path, " → ")),
		RunID:   runID,
		Path:    path,
	}
}
