package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/statmap/internal/indicator"
)

func TestReferences_DeduplicatedAndSorted(t *testing.T) {
	testCases := []struct {
		formula string
		want    []string
	}{
		{"{A} + {B}", []string{"A", "B"}},
		{"{B} * {A} / {B}", []string{"A", "B"}},
		{"({Population 2020} - {Population 2010}) / {Population 2010} * 100", []string{"Population 2010", "Population 2020"}},
		{"{Only}", []string{"Only"}},
		{"{}", []string{""}},
	}

	for _, tc := range testCases {
		t.Run(tc.formula, func(t *testing.T) {
			assert.Equal(t, tc.want, Parse(tc.formula).References())
		})
	}
}

func TestReferences_NoneFound(t *testing.T) {
	assert.Empty(t, Parse("").References())
	assert.Empty(t, Parse("100 * 2").References())
	assert.Empty(t, Parse("{unterminated").References())
}

func TestParse_Segments(t *testing.T) {
	f := Parse("({A} + {B}) * 2")

	assert.Equal(t, []Segment{
		{Text: "("},
		{Text: "A", IsRef: true},
		{Text: " + "},
		{Text: "B", IsRef: true},
		{Text: ") * 2"},
	}, f.Segments)
	assert.Equal(t, "({A} + {B}) * 2", f.Text)
}

func TestParse_AdjacentReferences(t *testing.T) {
	f := Parse("{A}{B}")

	assert.Equal(t, []Segment{
		{Text: "A", IsRef: true},
		{Text: "B", IsRef: true},
	}, f.Segments)
}

func TestParse_ShortestMatch(t *testing.T) {
	// A "{" inside a name is kept; the first "}" closes the reference.
	f := Parse("{a{b} + c}")

	assert.Equal(t, []string{"a{b"}, f.References())
	assert.Equal(t, " + c}", f.Segments[1].Text)
}

func TestReferences_AgreeWithIsComposite(t *testing.T) {
	formulas := []string{"", "100", "{A}", "{A} / {B}", "{}", "{A", "A}", "{ A }", "{{A}}", "x {A}{B} y"}
	for _, text := range formulas {
		composite := indicator.Indicator{Formula: text}.IsComposite()
		assert.Equal(t, composite, len(Parse(text).References()) > 0, "formula %q", text)
	}
}
