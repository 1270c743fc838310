package layout

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Wire is the decoded form of a serialized layout node, as seen on the far
// side of the transport.
type Wire struct {
	FieldType string  `json:"fieldType" msgpack:"fieldType"`
	Name      string  `json:"name,omitempty" msgpack:"name,omitempty"`
	Type      string  `json:"type" msgpack:"type"`
	Size      uint64  `json:"size" msgpack:"size"`
	Align     uint64  `json:"align" msgpack:"align"`
	Offset    uint64  `json:"offset" msgpack:"offset"`
	BitWidth  *uint64 `json:"bitWidth,omitempty" msgpack:"bitWidth,omitempty"`
	SubFields []*Wire `json:"subFields,omitempty" msgpack:"subFields,omitempty"`
}

// Kind returns the node kind. Decoded trees are validated, so the kind of a
// node returned by Decode or DecodeMsgpack is always known.
func (w *Wire) Kind() FieldKind {
	k, _ := ParseFieldKind(w.FieldType)
	return k
}

// End returns the first byte past the node.
func (w *Wire) End() uint64 { return w.Offset + w.Size }

// Node converts the wire tree back into layout nodes. Validity does not
// travel over the wire, so every node is reported valid.
func (w *Wire) Node() *FieldNode {
	n := &FieldNode{
		Kind:       w.Kind(),
		Name:       w.Name,
		TypeName:   w.Type,
		OffsetBits: w.Offset * 8,
		Size:       w.Size,
		Align:      w.Align,
		Valid:      true,
	}
	if w.BitWidth != nil {
		n.BitWidth = *w.BitWidth
	}
	if n.Kind.IsContainer() {
		n.Children = make([]*FieldNode, 0, len(w.SubFields))
		for _, s := range w.SubFields {
			n.Children = append(n.Children, s.Node())
		}
	}
	return n
}

func isEmptyObject(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte(EmptyObject))
}

// Decode parses the JSON wire form of a layout. The unknown-record sentinel
// decodes to ErrUnknownRecord.
func Decode(data []byte) (*Wire, error) {
	if isEmptyObject(data) {
		return nil, ErrUnknownRecord
	}
	var w Wire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &DecodeError{Format: "json", Message: "malformed document", Err: err}
	}
	if err := w.validate("json", ""); err != nil {
		return nil, err
	}
	return &w, nil
}

func (w *Wire) validate(format, path string) error {
	k, ok := ParseFieldKind(w.FieldType)
	if !ok {
		return &DecodeError{Format: format, Path: path, Message: fmt.Sprintf("unknown fieldType %q", w.FieldType)}
	}
	if (w.BitWidth != nil) != (k == FieldBitField) {
		return &DecodeError{Format: format, Path: path, Message: "bitWidth must appear exactly on bit-fields"}
	}
	if len(w.SubFields) > 0 && !k.IsContainer() {
		return &DecodeError{Format: format, Path: path, Message: fmt.Sprintf("%s node cannot have subFields", k)}
	}
	for i, s := range w.SubFields {
		if s == nil {
			return &DecodeError{Format: format, Path: childPath(path, i), Message: "null node"}
		}
		if err := s.validate(format, childPath(path, i)); err != nil {
			return err
		}
	}
	return nil
}

func childPath(parent string, i int) string {
	if parent == "" {
		return fmt.Sprintf("subFields[%d]", i)
	}
	return fmt.Sprintf("%s.subFields[%d]", parent, i)
}

// WireOf converts a layout tree into its wire form. Offsets become whole
// bytes and nil children are dropped.
func WireOf(n *FieldNode) *Wire {
	if n == nil {
		return nil
	}
	w := &Wire{
		FieldType: n.Kind.String(),
		Name:      n.Name,
		Type:      n.TypeName,
		Size:      n.Size,
		Align:     n.Align,
		Offset:    n.OffsetBytes(),
	}
	if n.Kind == FieldBitField {
		width := n.BitWidth
		w.BitWidth = &width
	}
	if n.Kind.IsContainer() {
		w.SubFields = make([]*Wire, 0, len(n.Children))
		for _, c := range n.Children {
			if c != nil {
				w.SubFields = append(w.SubFields, WireOf(c))
			}
		}
	}
	return w
}

// EncodeMsgpack writes a layout tree as a MessagePack map with the same keys
// as the JSON form; an empty subFields list is omitted. A nil node encodes
// as an empty map.
func EncodeMsgpack(w io.Writer, n *FieldNode) error {
	enc := msgpack.NewEncoder(w)
	if n == nil {
		return enc.EncodeMapLen(0)
	}
	return enc.Encode(WireOf(n))
}

// MarshalMsgpack returns the MessagePack form of a layout tree.
func MarshalMsgpack(n *FieldNode) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeMsgpack(&buf, n); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeMsgpack parses the MessagePack form of a layout. An empty map
// decodes to ErrUnknownRecord.
func DecodeMsgpack(data []byte) (*Wire, error) {
	var w Wire
	if err := msgpack.Unmarshal(data, &w); err != nil {
		return nil, &DecodeError{Format: "msgpack", Message: "malformed document", Err: err}
	}
	if w.FieldType == "" {
		return nil, ErrUnknownRecord
	}
	if err := w.validate("msgpack", ""); err != nil {
		return nil, err
	}
	return &w, nil
}
