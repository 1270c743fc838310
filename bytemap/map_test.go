package bytemap_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/skdltmxn/cxxlayout/bytemap"
	"github.com/skdltmxn/cxxlayout/layout"
)

const intChar = `{"fieldType":"Record","type":"S","size":8,"align":4,"offset":0,"subFields": [` +
	`{"fieldType":"Simple","name":"a","type":"int","size":4,"align":4,"offset":0},` +
	`{"fieldType":"Simple","name":"b","type":"char","size":1,"align":1,"offset":4}]}`

func mustMap(t *testing.T, data string) *bytemap.Map {
	t.Helper()
	m, err := bytemap.FromJSON([]byte(data))
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	return m
}

func TestIntCharPadding(t *testing.T) {
	m := mustMap(t, intChar)
	if m.Size() != 8 || m.Type() != "S" {
		t.Fatalf("got size %d type %q", m.Size(), m.Type())
	}
	if got := m.PaddingBytes(); !slices.Equal(got, []int{5, 6, 7}) {
		t.Errorf("PaddingBytes: got %v, want [5 6 7]", got)
	}
	if m.Mapped() != 5 || m.Padding() != 3 || m.Mapped()+m.Padding() != m.Size() {
		t.Errorf("Mapped/Padding: got %d/%d", m.Mapped(), m.Padding())
	}

	owners := []struct {
		b     int
		owner int
		ok    bool
	}{
		{0, 0, true},
		{3, 0, true},
		{4, 1, true},
		{5, -1, false},
		{8, -1, false},
		{-1, -1, false},
	}
	for _, tt := range owners {
		o, ok := m.Owner(tt.b)
		if ok != tt.ok || (ok && o != tt.owner) {
			t.Errorf("Owner(%d): got %d,%v want %d,%v", tt.b, o, ok, tt.owner, tt.ok)
		}
	}

	if s, e := m.Range(1); s != 4 || e != 5 {
		t.Errorf("Range(1): got [%d,%d), want [4,5)", s, e)
	}
	want := []bytemap.Run{{Owner: 0, Start: 0, End: 4}, {Owner: 1, Start: 4, End: 5}, {Owner: -1, Start: 5, End: 8}}
	if got := m.Runs(); !slices.Equal(got, want) {
		t.Errorf("Runs: got %v, want %v", got, want)
	}
}

func TestVirtualExample(t *testing.T) {
	decl := &layout.RecordDecl{ID: 1, Name: "V", Valid: true, Size: 16, Align: 8, OwnsVPtr: true,
		Fields: []layout.FieldDecl{{Name: "x", TypeName: "int", OffsetBits: 64, Size: 4, Align: 4, Valid: true}}}
	n := layout.NewEngine(layout.DefaultTarget(), nil).Compute(decl)

	data, err := layout.MarshalMsgpack(n)
	if err != nil {
		t.Fatalf("MarshalMsgpack: %v", err)
	}
	m, err := bytemap.FromMsgpack(data)
	if err != nil {
		t.Fatalf("FromMsgpack: %v", err)
	}
	fields := m.Fields()
	if len(fields) != 2 || fields[0].Kind != layout.FieldVPtr || fields[0].Len() != 8 {
		t.Fatalf("fields: got %+v", fields)
	}
	if fields[1].Start != 8 || fields[1].End != 12 || fields[1].Label() != "x" {
		t.Errorf("x: got %+v", fields[1])
	}
	if got := m.PaddingBytes(); !slices.Equal(got, []int{12, 13, 14, 15}) {
		t.Errorf("PaddingBytes: got %v", got)
	}
}

func TestNestedRecordIsOneBlock(t *testing.T) {
	m := mustMap(t, `{"fieldType":"Record","type":"Outer","size":12,"align":4,"offset":0,"subFields": [`+
		`{"fieldType":"Record","name":"in","type":"Inner","size":8,"align":4,"offset":0,"subFields": [`+
		`{"fieldType":"Simple","name":"p","type":"int","size":4,"align":4,"offset":0},`+
		`{"fieldType":"Simple","name":"q","type":"int","size":4,"align":4,"offset":4}]},`+
		`{"fieldType":"BitField","name":"f","type":"unsigned int","size":4,"align":4,"offset":8,"bitWidth":3}]}`)
	fields := m.Fields()
	if len(fields) != 2 {
		t.Fatalf("got %d fields, want 2", len(fields))
	}
	for b := 0; b < 8; b++ {
		if o, _ := m.Owner(b); o != 0 {
			t.Errorf("byte %d: got owner %d, want 0", b, o)
		}
	}
	if fields[1].BitWidth != 3 || fields[1].Kind != layout.FieldBitField {
		t.Errorf("bit-field: got %+v", fields[1])
	}
}

func TestOverlapAndClipping(t *testing.T) {
	m := mustMap(t, `{"fieldType":"Record","type":"U","size":8,"align":4,"offset":0,"subFields": [`+
		`{"fieldType":"Simple","name":"a","type":"int","size":4,"align":4,"offset":0},`+
		`{"fieldType":"Simple","name":"b","type":"int","size":4,"align":4,"offset":2},`+
		`{"fieldType":"Simple","name":"c","type":"int","size":4,"align":4,"offset":6},`+
		`{"fieldType":"Simple","name":"d","type":"int","size":4,"align":4,"offset":40},`+
		`{"fieldType":"Record","name":"e","type":"Empty","size":0,"align":1,"offset":0,"subFields": []}]}`)

	if o, _ := m.Owner(2); o != 0 {
		t.Errorf("contested byte 2: got owner %d, want 0", o)
	}
	if got := m.Owned(1); !slices.Equal(got, []int{4, 5}) {
		t.Errorf("Owned(1): got %v, want [4 5]", got)
	}
	if s, e := m.Range(1); s != 2 || e != 6 {
		t.Errorf("Range(1): got [%d,%d)", s, e)
	}
	if s, e := m.Range(2); s != 6 || e != 8 {
		t.Errorf("Range(2): got [%d,%d), want clipped [6,8)", s, e)
	}
	if s, e := m.Range(3); s != e {
		t.Errorf("Range(3): got [%d,%d), want empty", s, e)
	}
	if got := m.Owned(4); len(got) != 0 {
		t.Errorf("zero-size field owns %v", got)
	}
	if m.Mapped()+m.Padding() != m.Size() || m.Padding() != 0 {
		t.Errorf("Mapped/Padding: got %d/%d", m.Mapped(), m.Padding())
	}
}

func TestBuildErrors(t *testing.T) {
	if _, err := bytemap.FromJSON([]byte(layout.EmptyObject)); !errors.Is(err, layout.ErrUnknownRecord) {
		t.Errorf("sentinel: got %v", err)
	}
	if _, err := bytemap.FromJSON([]byte(`{"fieldType":"Bogus"}`)); !errors.Is(err, layout.ErrInvalidWire) {
		t.Errorf("bad kind: got %v", err)
	}
	if _, err := bytemap.Build(nil); !errors.Is(err, bytemap.ErrNoLayout) {
		t.Errorf("nil: got %v", err)
	}
	huge := &layout.Wire{FieldType: "Record", Type: "Huge", Size: bytemap.MaxSize + 1}
	if _, err := bytemap.Build(huge); !errors.Is(err, bytemap.ErrTooLarge) {
		t.Errorf("huge: got %v", err)
	}
}
