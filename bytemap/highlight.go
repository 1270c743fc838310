package bytemap

import "slices"

// Highlighter tracks which bytes of a Map are highlighted. Every hover
// source gets its own Handle; a handle only ever lights the range of the
// one field it is bound to, so highlights from different handles never
// clear each other.
type Highlighter struct {
	m      *Map
	counts []int // Number of handles lighting each byte
	def    *Handle
}

// NewHighlighter returns a highlighter with nothing lit.
func NewHighlighter(m *Map) *Highlighter {
	h := &Highlighter{m: m, counts: make([]int, m.size)}
	h.def = h.NewHandle()
	return h
}

// Map returns the map being highlighted.
func (h *Highlighter) Map() *Map { return h.m }

// NewHandle returns an unbound handle.
func (h *Highlighter) NewHandle() *Handle {
	return &Handle{h: h, field: none}
}

// HoverField binds the default handle to field i.
func (h *Highlighter) HoverField(i int) bool { return h.def.EnterField(i) }

// HoverByte binds the default handle to the owner of byte b; hovering
// padding lights nothing.
func (h *Highlighter) HoverByte(b int) bool { return h.def.EnterByte(b) }

// Leave clears what the default handle lit.
func (h *Highlighter) Leave() { h.def.Leave() }

// Lit reports whether any handle lights byte b.
func (h *Highlighter) Lit(b int) bool {
	return b >= 0 && b < len(h.counts) && h.counts[b] > 0
}

// Highlighted returns every lit byte in ascending order.
func (h *Highlighter) Highlighted() []int {
	var out []int
	for b, n := range h.counts {
		if n > 0 {
			out = append(out, b)
		}
	}
	return out
}

// LitFields returns the fields with at least one lit byte, in ascending
// order.
func (h *Highlighter) LitFields() []int {
	var out []int
	for _, f := range h.m.fields {
		if slices.ContainsFunc(h.counts[f.Start:f.End], func(n int) bool { return n > 0 }) {
			out = append(out, f.Index)
		}
	}
	return out
}

func (h *Highlighter) light(start, end, delta int) {
	for b := start; b < end; b++ {
		h.counts[b] += delta
	}
}

// Handle is one source of highlighting, such as the pointer over a field
// list or over a byte grid.
type Handle struct {
	h     *Highlighter
	field int
}

// Field returns the field the handle is bound to.
func (hd *Handle) Field() (int, bool) {
	return hd.field, hd.field != none
}

// EnterField binds the handle to field i, lighting its whole range.
// Entering the field already bound changes nothing. It reports whether i
// is a field of the map.
func (hd *Handle) EnterField(i int) bool {
	if _, ok := hd.h.m.Field(i); !ok {
		hd.Leave()
		return false
	}
	if hd.field == i {
		return true
	}
	hd.Leave()
	hd.field = i
	start, end := hd.h.m.Range(i)
	hd.h.light(start, end, 1)
	return true
}

// EnterByte binds the handle to the owner of byte b. It reports false, and
// leaves, when b is padding.
func (hd *Handle) EnterByte(b int) bool {
	owner, ok := hd.h.m.Owner(b)
	if !ok {
		hd.Leave()
		return false
	}
	return hd.EnterField(owner)
}

// Leave unlights exactly the range the handle lit.
func (hd *Handle) Leave() {
	if hd.field == none {
		return
	}
	start, end := hd.h.m.Range(hd.field)
	hd.h.light(start, end, -1)
	hd.field = none
}
