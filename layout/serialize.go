package layout

import (
	"io"
	"strconv"
)

// EmptyObject is returned in place of a layout for an unknown record.
const EmptyObject = "{}"

// RecordRef names one record of a session.
type RecordRef struct {
	ID   DeclID
	Name string
}

// Marshal renders a layout tree in its JSON wire form. Keys are emitted in
// a fixed order; "name" is omitted when empty, "bitWidth" appears only on
// bit-fields and "subFields" only on records and bases. Offsets are whole
// bytes.
func Marshal(n *FieldNode) []byte {
	if n == nil {
		return []byte(EmptyObject)
	}
	return appendField(make([]byte, 0, 256), n)
}

// Serialize writes the JSON wire form of a layout tree to w.
func Serialize(w io.Writer, n *FieldNode) error {
	_, err := w.Write(Marshal(n))
	return err
}

// MarshalRecordIndex renders the record index as a JSON array of
// {"id","name"} objects, ids as strings.
func MarshalRecordIndex(records []RecordRef) []byte {
	b := make([]byte, 0, 32*len(records)+2)
	b = append(b, '[')
	for i, r := range records {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, `{"id":"`...)
		b = strconv.AppendInt(b, int64(r.ID), 10)
		b = append(b, `","name":"`...)
		b = appendEscaped(b, r.Name)
		b = append(b, `"}`...)
	}
	return append(b, ']')
}

func appendField(b []byte, n *FieldNode) []byte {
	b = append(b, `{"fieldType":"`...)
	b = append(b, n.Kind.String()...)
	b = append(b, '"')
	if n.Name != "" {
		b = append(b, `,"name":"`...)
		b = appendEscaped(b, n.Name)
		b = append(b, '"')
	}
	b = append(b, `,"type":"`...)
	b = appendEscaped(b, n.TypeName)
	b = append(b, `","size":`...)
	b = strconv.AppendUint(b, n.Size, 10)
	b = append(b, `,"align":`...)
	b = strconv.AppendUint(b, n.Align, 10)
	b = append(b, `,"offset":`...)
	b = strconv.AppendUint(b, n.OffsetBytes(), 10)
	if n.Kind == FieldBitField {
		b = append(b, `,"bitWidth":`...)
		b = strconv.AppendUint(b, n.BitWidth, 10)
	}
	if n.Kind.IsContainer() {
		b = append(b, `,"subFields": [`...)
		first := true
		for _, c := range n.Children {
			if c == nil {
				continue
			}
			if !first {
				b = append(b, ',')
			}
			b = appendField(b, c)
			first = false
		}
		b = append(b, ']')
	}
	return append(b, '}')
}

const hexDigits = "0123456789ABCDEF"

// appendEscaped escapes quote, backslash and control bytes; every other
// byte is copied verbatim.
func appendEscaped(b []byte, s string) []byte {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			b = append(b, '\\', '"')
		case '\\':
			b = append(b, '\\', '\\')
		case '\b':
			b = append(b, '\\', 'b')
		case '\f':
			b = append(b, '\\', 'f')
		case '\n':
			b = append(b, '\\', 'n')
		case '\r':
			b = append(b, '\\', 'r')
		case '\t':
			b = append(b, '\\', 't')
		default:
			if c < 0x20 {
				b = append(b, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xF])
			} else {
				b = append(b, c)
			}
		}
	}
	return b
}
