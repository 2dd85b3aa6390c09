package formula

import (
	"slices"

	"github.com/roach88/statmap/internal/indicator"
)

// Segment is either literal formula text or a reference to another indicator.
type Segment struct {
	Text  string // Literal text, or the referenced name when IsRef
	IsRef bool
}

// Formula is a parsed formula: the original text split into alternating
// literal and reference segments. Empty literal segments are omitted.
type Formula struct {
	Text     string
	Segments []Segment
}

// Parse splits a formula into segments. It never fails: text without any
// {Name} token parses to a single literal segment.
func Parse(text string) Formula {
	f := Formula{Text: text}

	last := 0
	for _, loc := range indicator.ReferencePattern.FindAllStringIndex(text, -1) {
		if loc[0] > last {
			f.Segments = append(f.Segments, Segment{Text: text[last:loc[0]]})
		}
		f.Segments = append(f.Segments, Segment{Text: text[loc[0]+1 : loc[1]-1], IsRef: true})
		last = loc[1]
	}
	if last < len(text) {
		f.Segments = append(f.Segments, Segment{Text: text[last:]})
	}

	return f
}

// References returns the distinct referenced names, sorted ascending so the
// generated query is reproducible.
func (f Formula) References() []string {
	var names []string
	for _, seg := range f.Segments {
		if seg.IsRef {
			names = append(names, seg.Text)
		}
	}
	slices.Sort(names)
	return slices.Compact(names)
}
