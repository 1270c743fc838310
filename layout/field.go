package layout

import "iter"

// FieldKind identifies the category of a layout node.
type FieldKind uint8

const (
	FieldSimple FieldKind = iota
	FieldRecord
	FieldBitField
	FieldNVBase
	FieldVPtr
)

// String returns the wire name of the kind.
func (k FieldKind) String() string {
	switch k {
	case FieldSimple:
		return "Simple"
	case FieldRecord:
		return "Record"
	case FieldBitField:
		return "BitField"
	case FieldNVBase:
		return "NVBase"
	case FieldVPtr:
		return "VPtr"
	default:
		return "Unknown"
	}
}

// IsContainer reports whether nodes of this kind carry children.
func (k FieldKind) IsContainer() bool {
	return k == FieldRecord || k == FieldNVBase
}

// ParseFieldKind maps a wire name back to its kind.
func ParseFieldKind(s string) (FieldKind, bool) {
	switch s {
	case "Simple":
		return FieldSimple, true
	case "Record":
		return FieldRecord, true
	case "BitField":
		return FieldBitField, true
	case "NVBase":
		return FieldNVBase, true
	case "VPtr":
		return FieldVPtr, true
	}
	return 0, false
}

// FieldNode is one node of a record layout tree: either a whole record or
// one of its parts.
type FieldNode struct {
	Kind       FieldKind
	Name       string // Member name; empty for vptr and base nodes
	TypeName   string
	OffsetBits uint64 // Offset within the immediately enclosing record
	Size       uint64 // Whole bytes; storage type size for bit-fields
	Align      uint64
	BitWidth   uint64 // Only meaningful for FieldBitField
	Children   []*FieldNode
	Valid      bool
}

// OffsetBytes returns the offset truncated to the containing byte.
func (n *FieldNode) OffsetBytes() uint64 { return n.OffsetBits >> 3 }

// End returns the first byte past the node.
func (n *FieldNode) End() uint64 { return n.OffsetBytes() + n.Size }

// Walk returns a depth-first, pre-order iterator over the node and all of
// its descendants together with their depth below n.
func (n *FieldNode) Walk() iter.Seq2[int, *FieldNode] {
	return func(yield func(int, *FieldNode) bool) {
		n.walk(0, yield)
	}
}

func (n *FieldNode) walk(depth int, yield func(int, *FieldNode) bool) bool {
	if !yield(depth, n) {
		return false
	}
	for _, c := range n.Children {
		if !c.walk(depth+1, yield) {
			return false
		}
	}
	return true
}

// use returns a copy of the node header for one use site. The children
// slice is shared and must not be modified.
func (n *FieldNode) use() *FieldNode {
	c := *n
	return &c
}
