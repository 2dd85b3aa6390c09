package indicator

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is a typed numeric value read from or written to one value slot.
// The zero Value is the integer 0.
type Value struct {
	kind ValueType
	i    int64
	f    float64
}

// Int returns an integer Value.
func IntValue(v int64) Value { return Value{kind: Integer, i: v} }

// Float returns a float Value.
func FloatValue(v float64) Value { return Value{kind: Float, f: v} }

// Type returns Integer or Float.
func (v Value) Type() ValueType {
	if v.kind == "" {
		return Integer
	}
	return v.kind
}

// Int64 returns the value as an int64, truncating floats toward zero.
func (v Value) Int64() int64 {
	if v.Type() == Float {
		return int64(v.f)
	}
	return v.i
}

// Float64 returns the value as a float64.
func (v Value) Float64() float64 {
	if v.Type() == Float {
		return v.f
	}
	return float64(v.i)
}

// Equal reports whether two values have the same type and number.
func (v Value) Equal(o Value) bool {
	if v.Type() != o.Type() {
		return false
	}
	if v.Type() == Float {
		return v.f == o.f
	}
	return v.i == o.i
}

// String renders integers in base 10 and floats in their shortest exact form,
// always keeping a fractional part so 2.0 stays distinguishable from 2.
func (v Value) String() string {
	if v.Type() == Integer {
		return strconv.FormatInt(v.i, 10)
	}
	if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	}
	s := strconv.FormatFloat(v.f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// MarshalJSON encodes the value as a bare JSON number.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.Type() == Integer {
		return []byte(strconv.FormatInt(v.i, 10)), nil
	}
	return json.Marshal(v.f)
}

// ValueColumn returns the indicator_values column holding this indicator's values.
func (ind Indicator) ValueColumn() (Column, error) {
	switch ind.ValueType {
	case Integer:
		return ColumnInteger, nil
	case Float:
		return ColumnFloat, nil
	default:
		return "", invalidType(ind.ValueType)
	}
}

// CastValue coerces raw into this indicator's value type.
// Integer indicators truncate fractional input toward zero.
func (ind Indicator) CastValue(raw any) (Value, error) {
	switch ind.ValueType {
	case Integer:
		f, i, isInt, err := toNumber(raw)
		if err != nil {
			return Value{}, err
		}
		if isInt {
			return IntValue(i), nil
		}
		// float64(math.MaxInt64) rounds up to 2^63, so the upper bound is exclusive.
		if math.IsNaN(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return Value{}, fmt.Errorf("%w: %v is outside the integer range", ErrUncastable, raw)
		}
		return IntValue(int64(f)), nil
	case Float:
		f, i, isInt, err := toNumber(raw)
		if err != nil {
			return Value{}, err
		}
		if isInt {
			return FloatValue(float64(i)), nil
		}
		return FloatValue(f), nil
	default:
		return Value{}, invalidType(ind.ValueType)
	}
}

// GetValue reads the slot matching this indicator's value type.
// The boolean is false when that slot is empty.
func (ind Indicator) GetValue(v IndicatorValue) (Value, bool, error) {
	switch ind.ValueType {
	case Integer:
		if v.ValueInteger == nil {
			return Value{}, false, nil
		}
		return IntValue(*v.ValueInteger), true, nil
	case Float:
		if v.ValueFloat == nil {
			return Value{}, false, nil
		}
		return FloatValue(*v.ValueFloat), true, nil
	default:
		return Value{}, false, invalidType(ind.ValueType)
	}
}

// SetValue casts raw and stores it in the slot matching this indicator's
// value type. The other slot is left untouched.
func (ind Indicator) SetValue(v *IndicatorValue, raw any) error {
	if !ind.ValueType.Valid() {
		return invalidType(ind.ValueType)
	}
	val, err := ind.CastValue(raw)
	if err != nil {
		return err
	}

	switch ind.ValueType {
	case Integer:
		n := val.Int64()
		v.ValueInteger = &n
	case Float:
		f := val.Float64()
		v.ValueFloat = &f
	default:
		return invalidType(ind.ValueType)
	}
	return nil
}

// toNumber normalizes the raw inputs accepted by CastValue.
// isInt reports whether the integer result i is exact.
func toNumber(raw any) (f float64, i int64, isInt bool, err error) {
	switch n := raw.(type) {
	case Value:
		if n.Type() == Integer {
			return 0, n.i, true, nil
		}
		return n.f, 0, false, nil
	case int:
		return 0, int64(n), true, nil
	case int8:
		return 0, int64(n), true, nil
	case int16:
		return 0, int64(n), true, nil
	case int32:
		return 0, int64(n), true, nil
	case int64:
		return 0, n, true, nil
	case uint:
		return 0, int64(n), true, nil
	case uint8:
		return 0, int64(n), true, nil
	case uint16:
		return 0, int64(n), true, nil
	case uint32:
		return 0, int64(n), true, nil
	case uint64:
		if n > math.MaxInt64 {
			return float64(n), 0, false, nil
		}
		return 0, int64(n), true, nil
	case float32:
		return float64(n), 0, false, nil
	case float64:
		return n, 0, false, nil
	case json.Number:
		return parseNumber(string(n))
	case string:
		return parseNumber(n)
	default:
		return 0, 0, false, fmt.Errorf("%w: unsupported type %T", ErrUncastable, raw)
	}
}

func parseNumber(s string) (float64, int64, bool, error) {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return 0, i, true, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, 0, false, fmt.Errorf("%w: %q is not a number", ErrUncastable, s)
	}
	return f, 0, false, nil
}
