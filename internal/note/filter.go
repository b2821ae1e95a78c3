package note

import (
	"strings"

	"golang.org/x/text/cases"
)

// Filter returns the notes whose title or content contains q, compared under
// Unicode case folding. Order is preserved; an empty q returns notes as is.
func Filter(notes []Note, q string) []Note {
	if q == "" {
		return notes
	}
	fold := cases.Fold()
	needle := fold.String(q)
	out := make([]Note, 0, len(notes))
	for _, n := range notes {
		if strings.Contains(fold.String(n.Title), needle) || strings.Contains(fold.String(n.Content), needle) {
			out = append(out, n)
		}
	}
	return out
}
