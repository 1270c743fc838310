package layout_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/skdltmxn/cxxlayout/layout"
)

func sampleTree() *layout.FieldNode {
	a := &layout.RecordDecl{ID: 1, Name: "A", Valid: true, Size: 16, Align: 8, OwnsVPtr: true,
		Fields: []layout.FieldDecl{intField("a", 64)}}
	d := &layout.RecordDecl{
		ID: 2, Name: "D", Valid: true, Size: 24, Align: 8,
		Bases: []layout.BaseDecl{{Record: a}},
		Fields: []layout.FieldDecl{
			{Name: "flags", TypeName: "unsigned int", OffsetBits: 96, Size: 4, Align: 4, BitField: true, BitWidth: 3, Valid: true},
			charField("c", 128),
		},
	}
	return layout.NewEngine(layout.DefaultTarget(), nil).Compute(d)
}

func TestDecodeRoundTrip(t *testing.T) {
	n := sampleTree()
	data := layout.Marshal(n)

	w, err := layout.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if w.Kind() != layout.FieldRecord || w.Size != 24 || len(w.SubFields) != 3 {
		t.Fatalf("root: got %+v", w)
	}
	bf := w.SubFields[1]
	if bf.Kind() != layout.FieldBitField || bf.BitWidth == nil || *bf.BitWidth != 3 || bf.Offset != 12 {
		t.Errorf("bit-field: got %+v", bf)
	}
	if got := layout.Marshal(w.Node()); !bytes.Equal(got, data) {
		t.Errorf("re-marshal:\n got %s\nwant %s", got, data)
	}
}

func TestMsgpackRoundTrip(t *testing.T) {
	n := sampleTree()
	data, err := layout.MarshalMsgpack(n)
	if err != nil {
		t.Fatalf("MarshalMsgpack: %v", err)
	}
	w, err := layout.DecodeMsgpack(data)
	if err != nil {
		t.Fatalf("DecodeMsgpack: %v", err)
	}
	if got, want := layout.Marshal(w.Node()), layout.Marshal(n); !bytes.Equal(got, want) {
		t.Errorf("msgpack round trip:\n got %s\nwant %s", got, want)
	}
}

func TestMsgpackNodes(t *testing.T) {
	tests := []struct {
		name string
		node *layout.FieldNode
	}{
		{"named simple", &layout.FieldNode{Kind: layout.FieldSimple, Name: "x", TypeName: "int", Size: 4, Align: 4, OffsetBits: 32, Valid: true}},
		{"unnamed vptr", &layout.FieldNode{Kind: layout.FieldVPtr, TypeName: "vptr", Size: 8, Align: 8, Valid: true}},
		{"zero-width bit-field", &layout.FieldNode{Kind: layout.FieldBitField, TypeName: "int", Size: 4, Align: 4, OffsetBits: 35, Valid: true}},
		{"empty record", &layout.FieldNode{Kind: layout.FieldRecord, TypeName: "E", Size: 1, Align: 1, Valid: true}},
		{"record with nil child", &layout.FieldNode{Kind: layout.FieldRecord, TypeName: "R", Size: 4, Align: 4, Valid: true,
			Children: []*layout.FieldNode{nil, {Kind: layout.FieldSimple, Name: "a", TypeName: "int", Size: 4, Align: 4, Valid: true}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := layout.MarshalMsgpack(tt.node)
			if err != nil {
				t.Fatalf("MarshalMsgpack: %v", err)
			}
			w, err := layout.DecodeMsgpack(data)
			if err != nil {
				t.Fatalf("DecodeMsgpack: %v", err)
			}
			if got, want := layout.Marshal(w.Node()), layout.Marshal(tt.node); !bytes.Equal(got, want) {
				t.Errorf("got %s, want %s", got, want)
			}
		})
	}
}

func TestDecodeSentinel(t *testing.T) {
	if _, err := layout.Decode([]byte(" {} ")); !errors.Is(err, layout.ErrUnknownRecord) {
		t.Errorf("json: got %v, want ErrUnknownRecord", err)
	}
	data, err := layout.MarshalMsgpack(nil)
	if err != nil {
		t.Fatalf("MarshalMsgpack(nil): %v", err)
	}
	if _, err := layout.DecodeMsgpack(data); !errors.Is(err, layout.ErrUnknownRecord) {
		t.Errorf("msgpack: got %v, want ErrUnknownRecord", err)
	}
}

func TestDecodeInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{"fieldType":`},
		{"unknown kind", `{"fieldType":"Weird","type":"x","size":1,"align":1,"offset":0}`},
		{"bitWidth on simple", `{"fieldType":"Simple","type":"int","size":4,"align":4,"offset":0,"bitWidth":3}`},
		{"bit-field without width", `{"fieldType":"BitField","type":"int","size":4,"align":4,"offset":0}`},
		{"leaf with children", `{"fieldType":"VPtr","type":"vptr","size":8,"align":8,"offset":0,"subFields":[{"fieldType":"Simple","type":"int","size":4,"align":4,"offset":0}]}`},
		{"bad child", `{"fieldType":"Record","type":"R","size":4,"align":4,"offset":0,"subFields":[{"fieldType":"","type":"int","size":4,"align":4,"offset":0}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := layout.Decode([]byte(tt.data))
			if !errors.Is(err, layout.ErrInvalidWire) {
				t.Fatalf("got %v, want ErrInvalidWire", err)
			}
			var de *layout.DecodeError
			if !errors.As(err, &de) || de.Format != "json" {
				t.Errorf("got %T %v, want *DecodeError", err, err)
			}
		})
	}
}
