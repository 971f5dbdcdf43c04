package edit

import (
	"fmt"
	"sort"
)

// Edit replaces the byte span [Start, End) of the original source with Text.
// Start == End is a pure insertion. Spans always refer to the unmodified
// input; Apply resolves them in one pass so edits never observe each other.
type Edit struct {
	Start uint
	End   uint
	Text  string
}

// Insert returns a pure insertion at the given offset.
func Insert(at uint, text string) Edit {
	return Edit{Start: at, End: at, Text: text}
}

// Replace returns an edit substituting the span [start, end).
func Replace(start, end uint, text string) Edit {
	return Edit{Start: start, End: end, Text: text}
}

// Apply rewrites source with the given edits. Edits are ordered by start
// offset; insertions at the same offset keep their relative order.
// Overlapping spans or spans outside the source are rejected.
func Apply(source []byte, edits []Edit) ([]byte, error) {
	if len(edits) == 0 {
		return source, nil
	}

	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	var out []byte
	var cursor uint
	for _, e := range sorted {
		if e.End < e.Start || e.End > uint(len(source)) {
			return nil, fmt.Errorf("edit span [%d, %d) out of range (source is %d bytes)", e.Start, e.End, len(source))
		}
		if e.Start < cursor {
			return nil, fmt.Errorf("edit at %d overlaps a previous edit ending at %d", e.Start, cursor)
		}
		out = append(out, source[cursor:e.Start]...)
		out = append(out, e.Text...)
		cursor = e.End
	}
	out = append(out, source[cursor:]...)
	return out, nil
}
