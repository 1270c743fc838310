// Package bytemap maps the bytes of a serialized record layout to the
// top-level fields that own them, and tracks hover highlights over that
// mapping.
package bytemap

import (
	"errors"
	"fmt"

	"fortio.org/safecast"

	"github.com/skdltmxn/cxxlayout/layout"
)

// MaxSize is the largest record, in bytes, a Map will describe.
const MaxSize = 1 << 24

// Sentinel errors for common conditions.
var (
	// ErrTooLarge indicates a record is bigger than MaxSize.
	ErrTooLarge = errors.New("bytemap: record too large")

	// ErrNoLayout indicates a nil layout was given.
	ErrNoLayout = errors.New("bytemap: no layout")
)

const none = -1

// Field is one direct child of the mapped record.
type Field struct {
	Index    int
	Kind     layout.FieldKind
	Name     string
	Type     string
	Start    int // First byte, clipped to the record
	End      int // One past the last byte, clipped to the record
	BitWidth uint64
}

// Len returns the number of bytes the field spans.
func (f Field) Len() int { return f.End - f.Start }

// Label returns the name, or the type for unnamed fields.
func (f Field) Label() string {
	if f.Name != "" {
		return f.Name
	}
	return f.Type
}

// Run is a maximal sequence of bytes with the same owner. Owner is -1 for
// padding.
type Run struct {
	Owner int
	Start int
	End   int
}

// Padding reports whether the run is padding.
func (r Run) Padding() bool { return r.Owner < 0 }

// Map records which direct child of a record owns each byte. Nested
// records are mapped as one block. When children overlap, the first one
// in declaration order keeps the contested bytes.
type Map struct {
	typ    string
	size   int
	fields []Field
	owner  []int
}

// Build maps a decoded layout.
func Build(w *layout.Wire) (*Map, error) {
	if w == nil {
		return nil, ErrNoLayout
	}
	if w.Size > MaxSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, w.Size)
	}
	size, err := safecast.Conv[int](w.Size)
	if err != nil {
		return nil, fmt.Errorf("bytemap: record size: %w", err)
	}

	m := &Map{
		typ:    w.Type,
		size:   size,
		fields: make([]Field, 0, len(w.SubFields)),
		owner:  make([]int, size),
	}
	for i := range m.owner {
		m.owner[i] = none
	}

	for i, c := range w.SubFields {
		start, end, err := clip(c.Offset, c.Size, w.Size)
		if err != nil {
			return nil, fmt.Errorf("bytemap: field %d: %w", i, err)
		}
		f := Field{
			Index: i,
			Kind:  c.Kind(),
			Name:  c.Name,
			Type:  c.Type,
			Start: start,
			End:   end,
		}
		if c.BitWidth != nil {
			f.BitWidth = *c.BitWidth
		}
		m.fields = append(m.fields, f)

		for b := start; b < end; b++ {
			if m.owner[b] == none {
				m.owner[b] = i
			}
		}
	}
	return m, nil
}

// clip returns [offset, offset+size) intersected with [0, limit).
func clip(offset, size, limit uint64) (int, int, error) {
	start := min(offset, limit)
	end := limit
	if size < limit-start {
		end = start + size
	}
	s, err := safecast.Conv[int](start)
	if err != nil {
		return 0, 0, err
	}
	e, err := safecast.Conv[int](end)
	if err != nil {
		return 0, 0, err
	}
	return s, e, nil
}

// FromJSON maps a layout in its JSON wire form.
func FromJSON(data []byte) (*Map, error) {
	w, err := layout.Decode(data)
	if err != nil {
		return nil, err
	}
	return Build(w)
}

// FromMsgpack maps a layout in its MessagePack wire form.
func FromMsgpack(data []byte) (*Map, error) {
	w, err := layout.DecodeMsgpack(data)
	if err != nil {
		return nil, err
	}
	return Build(w)
}

// Type returns the type of the mapped record.
func (m *Map) Type() string { return m.typ }

// Size returns the record size in bytes.
func (m *Map) Size() int { return m.size }

// Fields returns the direct children in declaration order.
func (m *Map) Fields() []Field {
	return append([]Field(nil), m.fields...)
}

// Field returns the child with the given index.
func (m *Map) Field(i int) (Field, bool) {
	if i < 0 || i >= len(m.fields) {
		return Field{}, false
	}
	return m.fields[i], true
}

// Owner returns the index of the child owning byte b. It reports false for
// padding and for bytes outside the record.
func (m *Map) Owner(b int) (int, bool) {
	if b < 0 || b >= m.size || m.owner[b] == none {
		return none, false
	}
	return m.owner[b], true
}

// Range returns the bytes [start, end) of child i. Unknown children have
// an empty range.
func (m *Map) Range(i int) (start, end int) {
	f, ok := m.Field(i)
	if !ok {
		return 0, 0
	}
	return f.Start, f.End
}

// Owned returns the bytes child i actually owns, which may be fewer than
// its range when an earlier child overlaps it.
func (m *Map) Owned(i int) []int {
	start, end := m.Range(i)
	var out []int
	for b := start; b < end; b++ {
		if m.owner[b] == i {
			out = append(out, b)
		}
	}
	return out
}

// PaddingBytes returns every byte no child owns, in ascending order.
func (m *Map) PaddingBytes() []int {
	var out []int
	for b, o := range m.owner {
		if o == none {
			out = append(out, b)
		}
	}
	return out
}

// Padding returns the number of padding bytes.
func (m *Map) Padding() int {
	n := 0
	for _, o := range m.owner {
		if o == none {
			n++
		}
	}
	return n
}

// Mapped returns the number of bytes owned by some child. Mapped plus
// Padding is always Size.
func (m *Map) Mapped() int { return m.size - m.Padding() }

// Runs splits the record into maximal runs of one owner.
func (m *Map) Runs() []Run {
	var runs []Run
	for b, o := range m.owner {
		if n := len(runs); n > 0 && runs[n-1].Owner == o {
			runs[n-1].End = b + 1
			continue
		}
		runs = append(runs, Run{Owner: o, Start: b, End: b + 1})
	}
	return runs
}
