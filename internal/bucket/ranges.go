package bucket

import (
	"fmt"
	"strconv"
	"strings"
)

// Range is one parsed bucket label. Low equals High for single-value buckets.
type Range struct {
	Low  float64
	High float64
}

// Contains reports whether v falls within the range, inclusive.
func (r Range) Contains(v float64) bool {
	return v >= r.Low && v <= r.High
}

// ParseLabels parses a bucket string produced by Describe back into ranges.
// The empty string parses to no ranges.
func ParseLabels(s string) ([]Range, error) {
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, Separator)
	ranges := make([]Range, 0, len(parts))
	for _, part := range parts {
		low, high, found := strings.Cut(part, " to ")
		if !found {
			high = low
		}
		lo, err := strconv.ParseFloat(strings.TrimSpace(low), 64)
		if err != nil {
			return nil, fmt.Errorf("parse bucket %q: %w", part, err)
		}
		hi, err := strconv.ParseFloat(strings.TrimSpace(high), 64)
		if err != nil {
			return nil, fmt.Errorf("parse bucket %q: %w", part, err)
		}
		if hi < lo {
			return nil, fmt.Errorf("parse bucket %q: upper bound below lower bound", part)
		}
		ranges = append(ranges, Range{Low: lo, High: hi})
	}
	return ranges, nil
}

// Classify returns the index of the first range containing v, or -1.
func Classify(ranges []Range, v float64) int {
	for i, r := range ranges {
		if r.Contains(v) {
			return i
		}
	}
	return -1
}
