package abi_test

import (
	"testing"

	"github.com/skdltmxn/cxxlayout/internal/abi"
	"github.com/skdltmxn/cxxlayout/layout"
)

func x86_64() *abi.Builder {
	return &abi.Builder{Target: layout.DefaultTarget()}
}

func builder(t *testing.T, triple string) *abi.Builder {
	t.Helper()
	tg, ok := layout.TargetFromTriple(triple)
	if !ok {
		t.Fatalf("unknown triple %q", triple)
	}
	return &abi.Builder{Target: tg}
}

func scalar(size, align uint64) abi.Field {
	return abi.Field{Size: size, Align: align, POD: true}
}

func bits(size uint64, width uint64, named bool) abi.Field {
	return abi.Field{Size: size, Align: size, BitField: true, Width: width, Named: named, POD: true}
}

func byValue(r *abi.Record, l *abi.Layout) abi.Field {
	return abi.Field{Size: l.Size, Align: l.Align, Record: r, POD: l.POD}
}

func checkOffsets(t *testing.T, got []uint64, want ...uint64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("offsets: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("offset %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestPlainStruct(t *testing.T) {
	r := &abi.Record{Name: "S", Fields: []abi.Field{scalar(4, 4), scalar(1, 1)}}
	l := x86_64().Layout(r)
	if l.Size != 8 || l.Align != 4 {
		t.Errorf("size/align: got %d/%d, want 8/4", l.Size, l.Align)
	}
	if !l.POD || l.Dynamic || l.Empty {
		t.Errorf("flags: got POD=%v Dynamic=%v Empty=%v", l.POD, l.Dynamic, l.Empty)
	}
	checkOffsets(t, l.FieldOffsets, 0, 32)
}

func TestVirtualMethodOwnsVPtr(t *testing.T) {
	r := &abi.Record{Name: "V", HasVirtualMethods: true, Fields: []abi.Field{scalar(4, 4)}}
	l := x86_64().Layout(r)
	if !l.OwnsVPtr || l.Size != 16 || l.Align != 8 {
		t.Errorf("got OwnsVPtr=%v size=%d align=%d, want true 16 8", l.OwnsVPtr, l.Size, l.Align)
	}
	checkOffsets(t, l.FieldOffsets, 64)

	l32 := builder(t, "i386-pc-linux-gnu").Layout(&abi.Record{Name: "V", HasVirtualMethods: true, Fields: []abi.Field{scalar(4, 4)}})
	if l32.Size != 8 {
		t.Errorf("i386 size: got %d, want 8", l32.Size)
	}
}

func TestEmptyRecords(t *testing.T) {
	b := x86_64()
	e := &abi.Record{Name: "E"}
	el := b.Layout(e)
	if el.Size != 1 || el.Align != 1 || !el.Empty {
		t.Errorf("E: got size=%d align=%d empty=%v", el.Size, el.Align, el.Empty)
	}

	d := &abi.Record{Name: "D", Bases: []abi.Base{{Record: e}}, Fields: []abi.Field{scalar(4, 4)}}
	dl := b.Layout(d)
	if dl.Size != 4 || dl.BaseOffsets[0] != 0 {
		t.Errorf("D: got size=%d base@%d, want 4 and 0", dl.Size, dl.BaseOffsets[0])
	}
	checkOffsets(t, dl.FieldOffsets, 0)

	// A member of the base's type cannot share its address.
	c := &abi.Record{Name: "C", Bases: []abi.Base{{Record: e}}, Fields: []abi.Field{byValue(e, el), scalar(4, 4)}}
	cl := b.Layout(c)
	if cl.Size != 8 {
		t.Errorf("C: got size=%d, want 8", cl.Size)
	}
	checkOffsets(t, cl.FieldOffsets, 8, 32)

	// Two distinct empty bases share offset 0.
	e2 := &abi.Record{Name: "E2"}
	two := &abi.Record{Name: "Two", Bases: []abi.Base{{Record: e}, {Record: e2}}}
	tl := b.Layout(two)
	if tl.Size != 1 || tl.BaseOffsets[1] != 0 {
		t.Errorf("Two: got size=%d second base@%d", tl.Size, tl.BaseOffsets[1])
	}
}

func TestTailPaddingReuse(t *testing.T) {
	tests := []struct {
		name     string
		userCtor bool
		offset   uint64
		size     uint64
	}{
		{"non-POD base", true, 5 * 8, 8},
		{"POD base", false, 8 * 8, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := x86_64()
			a := &abi.Record{Name: "A", UserSpecialMembers: tt.userCtor, Fields: []abi.Field{scalar(4, 4), scalar(1, 1)}}
			d := &abi.Record{Name: "B", Bases: []abi.Base{{Record: a}}, Fields: []abi.Field{scalar(1, 1)}}
			l := b.Layout(d)
			checkOffsets(t, l.FieldOffsets, tt.offset)
			if l.Size != tt.size {
				t.Errorf("size: got %d, want %d", l.Size, tt.size)
			}
		})
	}
}

func TestPrimaryBaseFirst(t *testing.T) {
	b := x86_64()
	plain := &abi.Record{Name: "B", Fields: []abi.Field{scalar(4, 4)}}
	dyn := &abi.Record{Name: "A", HasVirtualMethods: true, Fields: []abi.Field{scalar(4, 4)}}
	d := &abi.Record{Name: "D", Bases: []abi.Base{{Record: plain}, {Record: dyn}}, Fields: []abi.Field{scalar(4, 4)}}
	l := b.Layout(d)

	if l.PrimaryBase != 1 || l.OwnsVPtr {
		t.Errorf("primary: got %d ownsVPtr=%v, want 1 false", l.PrimaryBase, l.OwnsVPtr)
	}
	checkOffsets(t, l.BaseOffsets, 12, 0)
	checkOffsets(t, l.FieldOffsets, 128)
	if l.Size != 24 {
		t.Errorf("size: got %d, want 24", l.Size)
	}
}

func TestBitFields(t *testing.T) {
	tests := []struct {
		name    string
		triple  string
		fields  []abi.Field
		offsets []uint64
		size    uint64
		align   uint64
	}{
		{
			name:    "straddling field moves to next unit",
			fields:  []abi.Field{bits(4, 3, true), bits(4, 30, true)},
			offsets: []uint64{0, 32},
			size:    8, align: 4,
		},
		{
			name:    "fields share a unit",
			fields:  []abi.Field{bits(4, 3, true), bits(4, 5, true), scalar(1, 1)},
			offsets: []uint64{0, 3, 8},
			size:    4, align: 4,
		},
		{
			name:    "char units",
			fields:  []abi.Field{bits(1, 3, true), bits(1, 6, true)},
			offsets: []uint64{0, 8},
			size:    2, align: 1,
		},
		{
			name:    "zero width aligns but does not raise alignment",
			fields:  []abi.Field{bits(1, 1, true), bits(4, 0, false), scalar(1, 1)},
			offsets: []uint64{0, 32, 32},
			size:    5, align: 1,
		},
		{
			name:    "zero width raises alignment on aarch64",
			triple:  "aarch64-linux-gnu",
			fields:  []abi.Field{bits(1, 1, true), bits(4, 0, false), scalar(1, 1)},
			offsets: []uint64{0, 32, 32},
			size:    8, align: 4,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := x86_64()
			if tt.triple != "" {
				b = builder(t, tt.triple)
			}
			l := b.Layout(&abi.Record{Name: "BF", Fields: tt.fields})
			checkOffsets(t, l.FieldOffsets, tt.offsets...)
			if l.Size != tt.size || l.Align != tt.align {
				t.Errorf("size/align: got %d/%d, want %d/%d", l.Size, l.Align, tt.size, tt.align)
			}
		})
	}
}

func TestPackedAndAligned(t *testing.T) {
	b := x86_64()
	packed := b.Layout(&abi.Record{Name: "P", Packed: true, Fields: []abi.Field{scalar(1, 1), scalar(4, 4)}})
	checkOffsets(t, packed.FieldOffsets, 0, 8)
	if packed.Size != 5 || packed.Align != 1 {
		t.Errorf("packed: got %d/%d, want 5/1", packed.Size, packed.Align)
	}

	aligned := b.Layout(&abi.Record{Name: "A", AlignAs: 16, Fields: []abi.Field{scalar(4, 4)}})
	if aligned.Size != 16 || aligned.Align != 16 {
		t.Errorf("alignas: got %d/%d, want 16/16", aligned.Size, aligned.Align)
	}

	member := b.Layout(&abi.Record{Name: "M", Fields: []abi.Field{scalar(1, 1), {Size: 4, Align: 4, AlignAs: 8, POD: true}}})
	checkOffsets(t, member.FieldOffsets, 0, 64)
	if member.Size != 16 {
		t.Errorf("member alignas: got size %d, want 16", member.Size)
	}
}

func TestUnion(t *testing.T) {
	l := x86_64().Layout(&abi.Record{Name: "U", Union: true,
		Fields: []abi.Field{scalar(4, 4), scalar(8, 8), scalar(3, 1), bits(4, 12, true)}})
	checkOffsets(t, l.FieldOffsets, 0, 0, 0, 0)
	if l.Size != 8 || l.Align != 8 {
		t.Errorf("union: got %d/%d, want 8/8", l.Size, l.Align)
	}
}

func TestVirtualBases(t *testing.T) {
	b := x86_64()
	v := &abi.Record{Name: "V", Fields: []abi.Field{scalar(4, 4)}}
	d := &abi.Record{Name: "D", Bases: []abi.Base{{Record: v, Virtual: true}}, Fields: []abi.Field{scalar(4, 4)}}
	l := b.Layout(d)
	if !l.Dynamic || !l.OwnsVPtr {
		t.Errorf("D: got dynamic=%v ownsVPtr=%v", l.Dynamic, l.OwnsVPtr)
	}
	checkOffsets(t, l.FieldOffsets, 64)
	checkOffsets(t, l.BaseOffsets, 12)
	if l.Size != 16 || l.NVSize != 12 {
		t.Errorf("D: got size=%d nvsize=%d, want 16 12", l.Size, l.NVSize)
	}

	// Diamond: the shared virtual base is placed once after both paths.
	l1 := &abi.Record{Name: "L", Bases: []abi.Base{{Record: v, Virtual: true}}, Fields: []abi.Field{scalar(4, 4)}}
	r1 := &abi.Record{Name: "R", Bases: []abi.Base{{Record: v, Virtual: true}}, Fields: []abi.Field{scalar(4, 4)}}
	j := &abi.Record{Name: "J", Bases: []abi.Base{{Record: l1}, {Record: r1}}}
	jl := b.Layout(j)
	checkOffsets(t, jl.BaseOffsets, 0, 16)
	if jl.VBaseOffsets[v] != 28 || jl.Size != 32 {
		t.Errorf("J: got V@%d size=%d, want 28 and 32", jl.VBaseOffsets[v], jl.Size)
	}
}

func TestNearlyEmptyVirtualPrimary(t *testing.T) {
	b := x86_64()
	a := &abi.Record{Name: "A", HasVirtualMethods: true}
	d := &abi.Record{Name: "B", Bases: []abi.Base{{Record: a, Virtual: true}}}
	l := b.Layout(d)
	if l.Size != 8 || l.OwnsVPtr || l.BaseOffsets[0] != 0 {
		t.Errorf("B: got size=%d ownsVPtr=%v A@%d, want 8 false 0", l.Size, l.OwnsVPtr, l.BaseOffsets[0])
	}
}

func TestI386Alignment(t *testing.T) {
	b := builder(t, "i686-pc-linux-gnu")
	_, dblAlign, _ := abi.Builtin("double", b.Target)
	l := b.Layout(&abi.Record{Name: "S", Fields: []abi.Field{scalar(1, 1), scalar(8, dblAlign)}})
	checkOffsets(t, l.FieldOffsets, 0, 32)
	if l.Size != 12 || l.Align != 4 {
		t.Errorf("i386: got %d/%d, want 12/4", l.Size, l.Align)
	}
}

func TestObjectSizeLimit(t *testing.T) {
	i386 := builder(t, "i386-pc-linux-gnu")
	tests := []struct {
		name     string
		b        *abi.Builder
		r        *abi.Record
		tooLarge bool
	}{
		{"fits", x86_64(), &abi.Record{Fields: []abi.Field{scalar(1<<61-1, 1)}}, false},
		{"fields past the limit", x86_64(), &abi.Record{Fields: []abi.Field{scalar(1<<60, 1), scalar(1<<60, 1), scalar(8, 8)}}, true},
		{"field size wraps", x86_64(), &abi.Record{Fields: []abi.Field{scalar(4, 4), scalar(1<<64-4, 4)}}, true},
		{"bit-field width", x86_64(), &abi.Record{Fields: []abi.Field{scalar(1, 1), bits(8, 1<<64-1, true)}}, true},
		{"union bit-field width", x86_64(), &abi.Record{Union: true, Fields: []abi.Field{bits(8, 1<<64-1, true)}}, true},
		{"32-bit target", i386, &abi.Record{Fields: []abi.Field{scalar(1<<31, 1), scalar(1<<31, 1)}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := tt.b.Layout(tt.r)
			if l.TooLarge != tt.tooLarge {
				t.Errorf("TooLarge: got %v, want %v", l.TooLarge, tt.tooLarge)
			}
			limit := abi.MaxObjectSize(tt.b.Target)
			if l.Size > limit {
				t.Errorf("size %d exceeds %d", l.Size, limit)
			}
			prev := uint64(0)
			for i, off := range l.FieldOffsets {
				if off < prev || off > limit*8 {
					t.Errorf("field %d: offset %d bits after %d", i, off, prev)
				}
				prev = off
			}
		})
	}
}

func TestMaxObjectSize(t *testing.T) {
	i386, _ := layout.TargetFromTriple("i386-pc-linux-gnu")
	if got := abi.MaxObjectSize(layout.DefaultTarget()); got != 1<<61-1 {
		t.Errorf("x86_64: got %d", got)
	}
	if got := abi.MaxObjectSize(i386); got != 1<<32-1 {
		t.Errorf("i386: got %d", got)
	}
}

func TestBuiltin(t *testing.T) {
	x64 := layout.DefaultTarget()
	i386, _ := layout.TargetFromTriple("i386-pc-linux-gnu")
	win, _ := layout.TargetFromTriple("x86_64-w64-windows-gnu")
	tests := []struct {
		name        string
		target      layout.Target
		size, align uint64
		ok          bool
	}{
		{"int", x64, 4, 4, true},
		{"unsigned long", x64, 8, 8, true},
		{"unsigned long", i386, 4, 4, true},
		{"long", win, 4, 4, true},
		{"wchar_t", win, 2, 2, true},
		{"long long", i386, 8, 4, true},
		{"long double", x64, 16, 16, true},
		{"long double", i386, 12, 4, true},
		{"__int128", x64, 16, 16, true},
		{"__int128", i386, 0, 0, false},
		{"void", x64, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.target.Triple+"/"+tt.name, func(t *testing.T) {
			size, align, ok := abi.Builtin(tt.name, tt.target)
			if size != tt.size || align != tt.align || ok != tt.ok {
				t.Errorf("got %d/%d/%v, want %d/%d/%v", size, align, ok, tt.size, tt.align, tt.ok)
			}
		})
	}
}
