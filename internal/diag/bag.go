// Package diag collects front-end diagnostics.
package diag

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/skdltmxn/cxxlayout/layout"
)

// Bag accumulates diagnostics in the order they are reported.
type Bag struct {
	items []layout.Diagnostic
}

// NewBag creates an empty bag.
func NewBag() *Bag {
	return &Bag{items: make([]layout.Diagnostic, 0, 8)}
}

// Add appends a diagnostic.
func (b *Bag) Add(d layout.Diagnostic) {
	b.items = append(b.items, d)
}

// Errorf reports an error at a source position.
func (b *Bag) Errorf(line, col int, format string, args ...any) {
	b.Add(layout.Diagnostic{Severity: layout.SeverityError, Line: line, Column: col, Message: fmt.Sprintf(format, args...)})
}

// Warnf reports a warning at a source position.
func (b *Bag) Warnf(line, col int, format string, args ...any) {
	b.Add(layout.Diagnostic{Severity: layout.SeverityWarning, Line: line, Column: col, Message: fmt.Sprintf(format, args...)})
}

// Notef reports a note at a source position.
func (b *Bag) Notef(line, col int, format string, args ...any) {
	b.Add(layout.Diagnostic{Severity: layout.SeverityNote, Line: line, Column: col, Message: fmt.Sprintf(format, args...)})
}

// Len returns the number of diagnostics.
func (b *Bag) Len() int { return len(b.items) }

// HasErrors reports whether any diagnostic is an error.
func (b *Bag) HasErrors() bool {
	for _, d := range b.items {
		if d.Severity >= layout.SeverityError {
			return true
		}
	}
	return false
}

// Items returns the diagnostics. The slice must not be modified.
func (b *Bag) Items() []layout.Diagnostic {
	return b.items
}

// Sort orders diagnostics by position, errors first on the same position.
func (b *Bag) Sort() {
	slices.SortStableFunc(b.items, func(x, y layout.Diagnostic) int {
		if c := cmp.Compare(x.Line, y.Line); c != 0 {
			return c
		}
		if c := cmp.Compare(x.Column, y.Column); c != 0 {
			return c
		}
		return cmp.Compare(y.Severity, x.Severity)
	})
}

// Dedup drops repeated diagnostics with the same position and message.
func (b *Bag) Dedup() {
	type key struct {
		line, col int
		msg       string
	}
	seen := make(map[key]bool, len(b.items))
	items := b.items[:0]
	for _, d := range b.items {
		k := key{d.Line, d.Column, d.Message}
		if seen[k] {
			continue
		}
		seen[k] = true
		items = append(items, d)
	}
	b.items = items
}
