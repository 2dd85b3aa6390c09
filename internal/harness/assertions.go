package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/statmap/internal/indicator"
)

// ExpectationError describes one unmet expectation.
type ExpectationError struct {
	Kind     string // "error", "rows" or "buckets"
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *ExpectationError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Expectation failed: %s\n", e.Kind)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// EvaluateExpectations compares result with expect and returns one message
// per unmet expectation. An empty slice means the scenario passed.
func EvaluateExpectations(result *Result, expect Expect) []string {
	var msgs []string
	for _, err := range []error{
		checkError(result, expect),
		checkRows(result.Rows, expect.Rows),
		checkBuckets(result.Buckets, expect.Buckets),
	} {
		if err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	return msgs
}

func checkError(result *Result, expect Expect) error {
	if result.Error == expect.Error {
		return nil
	}
	return &ExpectationError{
		Kind:     "error",
		Expected: orNone(expect.Error),
		Actual:   orNone(result.Error),
	}
}

// checkRows compares rows exactly when expected rows are given. A scenario
// that expects an error may omit rows.
func checkRows(actual []Row, expected []ExpectRow) error {
	if len(expected) == 0 {
		return nil
	}

	mismatch := func(detail string) error {
		return &ExpectationError{
			Kind:     "rows",
			Expected: formatExpectedRows(expected),
			Actual:   formatRows(actual) + " (" + detail + ")",
		}
	}

	if len(actual) != len(expected) {
		return mismatch(fmt.Sprintf("%d rows, want %d", len(actual), len(expected)))
	}

	for i, want := range expected {
		got := actual[i]
		if got.Indicator != indicator.NormalizeName(want.Indicator) || got.Region != want.Region || got.Year != want.Year {
			return mismatch(fmt.Sprintf("row %d key", i))
		}
		wantValue, err := got.ind.CastValue(want.Value)
		if err != nil {
			return mismatch(fmt.Sprintf("row %d: %v", i, err))
		}
		if !got.Value.Equal(wantValue) {
			return mismatch(fmt.Sprintf("row %d value %s, want %s", i, got.Value, wantValue))
		}
		if !notesEqual(got.Note, want.Note) {
			return mismatch(fmt.Sprintf("row %d note", i))
		}
	}
	return nil
}

func checkBuckets(actual, expected map[string]string) error {
	names := make([]string, 0, len(expected))
	for name := range expected {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		want := expected[name]
		got, ok := actual[indicator.NormalizeName(name)]
		if !ok {
			return &ExpectationError{
				Kind:     "buckets",
				Expected: fmt.Sprintf("%s: %q", name, want),
				Actual:   "indicator was not bucketed",
			}
		}
		if got != want {
			return &ExpectationError{
				Kind:     "buckets",
				Expected: fmt.Sprintf("%s: %q", name, want),
				Actual:   fmt.Sprintf("%s: %q", name, got),
			}
		}
	}
	return nil
}

func notesEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func orNone(code string) string {
	if code == "" {
		return "no error"
	}
	return code
}

func formatRows(rows []Row) string {
	parts := make([]string, len(rows))
	for i, r := range rows {
		parts[i] = fmt.Sprintf("%s[%d/%d]=%s", r.Indicator, r.Region, r.Year, r.Value)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func formatExpectedRows(rows []ExpectRow) string {
	parts := make([]string, len(rows))
	for i, r := range rows {
		parts[i] = fmt.Sprintf("%s[%d/%d]=%v", r.Indicator, r.Region, r.Year, r.Value)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
