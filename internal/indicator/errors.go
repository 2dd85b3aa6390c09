package indicator

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidValueType matches any *InvalidValueTypeError via errors.Is.
	ErrInvalidValueType = errors.New("invalid value type")

	// ErrNotFound is returned by registries when no indicator has the requested name or id.
	ErrNotFound = errors.New("indicator not found")

	// ErrUncastable is returned when a raw value cannot be coerced to a number.
	ErrUncastable = errors.New("value cannot be cast")
)

// InvalidValueTypeError reports an indicator whose value_type is neither
// "integer" nor "float".
type InvalidValueTypeError struct {
	ValueType string
}

func (e *InvalidValueTypeError) Error() string {
	return fmt.Sprintf("invalid value_type %q", e.ValueType)
}

// Is lets errors.Is(err, ErrInvalidValueType) match.
func (e *InvalidValueTypeError) Is(target error) bool {
	return target == ErrInvalidValueType
}

func invalidType(vt ValueType) error {
	return &InvalidValueTypeError{ValueType: string(vt)}
}
