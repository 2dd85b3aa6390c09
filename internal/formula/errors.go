package formula

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes formula errors.
type ErrorCode string

const (
	// CodeNotComposite indicates derivation was requested for a formula
	// without any {Name} reference.
	CodeNotComposite ErrorCode = "NOT_COMPOSITE"

	// CodeUnknownReference indicates a {Name} reference that does not resolve
	// to an indicator.
	CodeUnknownReference ErrorCode = "UNKNOWN_REFERENCE"
)

// Error reports why a formula could not be derived.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Indicator is the name of the composite indicator being derived.
	Indicator string

	// Formula is the offending formula text.
	Formula string

	// Name is the unresolved reference (CodeUnknownReference only).
	Name string
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Code {
	case CodeNotComposite:
		return fmt.Sprintf("%s: not a composite formula: indicator %q has formula %q with no {Name} references",
			e.Code, e.Indicator, e.Formula)
	case CodeUnknownReference:
		return fmt.Sprintf("%s: unknown referenced indicator %q in formula %q of %q",
			e.Code, e.Name, e.Formula, e.Indicator)
	default:
		return fmt.Sprintf("%s: formula %q of %q", e.Code, e.Formula, e.Indicator)
	}
}

// IsNotComposite returns true if err is a CodeNotComposite formula error.
// Uses errors.As to handle wrapped errors.
func IsNotComposite(err error) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code == CodeNotComposite
	}
	return false
}

// IsUnknownReference returns true if err is a CodeUnknownReference formula error.
// Uses errors.As to handle wrapped errors.
func IsUnknownReference(err error) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code == CodeUnknownReference
	}
	return false
}
