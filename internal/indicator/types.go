package indicator

import (
	"fmt"
	"regexp"
)

// ValueType identifies which value slot an indicator uses.
type ValueType string

const (
	Integer ValueType = "integer"
	Float   ValueType = "float"
)

// ValueTypes lists the recognized value types in declaration order.
var ValueTypes = []ValueType{Integer, Float}

// ParseValueType converts a stored or configured string into a ValueType.
func ParseValueType(s string) (ValueType, error) {
	vt := ValueType(s)
	if !vt.Valid() {
		return "", &InvalidValueTypeError{ValueType: s}
	}
	return vt, nil
}

// Valid reports whether vt is one of the recognized value types.
func (vt ValueType) Valid() bool {
	switch vt {
	case Integer, Float:
		return true
	default:
		return false
	}
}

// Column names a value slot in the indicator_values table.
type Column string

const (
	ColumnInteger Column = "value_integer"
	ColumnFloat   Column = "value_float"
)

// Type returns the value type stored in the column.
func (c Column) Type() (ValueType, error) {
	switch c {
	case ColumnInteger:
		return Integer, nil
	case ColumnFloat:
		return Float, nil
	default:
		return "", fmt.Errorf("unknown value column %q", string(c))
	}
}

// Indicator is a named statistical measure.
//
// Formula is empty for indicators whose values are recorded directly. For
// derived indicators it is a template such as "{Population} / {Area}".
// Buckets is the ";"-joined label string last computed by the bucketizer.
type Indicator struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	ValueType ValueType `json:"value_type"`
	Formula   string    `json:"formula,omitempty"`
	Buckets   string    `json:"buckets,omitempty"`
}

// ReferencePattern matches one {Name} token in a formula. Names may not
// contain "}". The formula parser splits on the same pattern.
var ReferencePattern = regexp.MustCompile(`\{[^}]*?\}`)

// IsComposite reports whether the formula embeds at least one {Name} reference.
func (ind Indicator) IsComposite() bool {
	return ReferencePattern.MatchString(ind.Formula)
}

// IndicatorValue is one recorded value of an indicator for a region and year.
// Exactly one of ValueInteger and ValueFloat is populated, selected by the
// owning indicator's ValueType.
type IndicatorValue struct {
	ID           int64    `json:"id"`
	IndicatorID  int64    `json:"indicator_id"`
	RegionID     int64    `json:"region_id"`
	Year         int      `json:"year"`
	ValueInteger *int64   `json:"value_integer,omitempty"`
	ValueFloat   *float64 `json:"value_float,omitempty"`
	Note         *string  `json:"note,omitempty"`
}
