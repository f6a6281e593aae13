package report

import (
	"fmt"
	"strings"
)

// Footnotes collects numbered notes in the order they are added.
type Footnotes struct {
	notes []string
}

// Add appends text and returns its 1-based number. Adding the same text
// twice returns the existing number.
func (f *Footnotes) Add(text string) int {
	for i, n := range f.notes {
		if n == text {
			return i + 1
		}
	}
	f.notes = append(f.notes, text)
	return len(f.notes)
}

// Ref adds text and returns the markdown reference marker for it.
func (f *Footnotes) Ref(text string) string {
	return fmt.Sprintf("[^%d]", f.Add(text))
}

// Len returns the number of collected notes.
func (f *Footnotes) Len() int { return len(f.notes) }

// Notes returns a copy of the collected notes.
func (f *Footnotes) Notes() []string {
	out := make([]string, len(f.notes))
	copy(out, f.notes)
	return out
}

// String renders the notes as markdown footnote definitions.
func (f *Footnotes) String() string {
	var b strings.Builder
	for i, n := range f.notes {
		fmt.Fprintf(&b, "[^%d]: %s\n", i+1, n)
	}
	return b.String()
}
