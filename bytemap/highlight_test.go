package bytemap_test

import (
	"slices"
	"testing"

	"github.com/skdltmxn/cxxlayout/bytemap"
)

func TestHoverField(t *testing.T) {
	h := bytemap.NewHighlighter(mustMap(t, intChar))

	tests := []struct {
		name string
		do   func() bool
		ok   bool
		want []int
	}{
		{"field a", func() bool { return h.HoverField(0) }, true, []int{0, 1, 2, 3}},
		{"field a again", func() bool { return h.HoverField(0) }, true, []int{0, 1, 2, 3}},
		{"byte of b", func() bool { return h.HoverByte(4) }, true, []int{4}},
		{"byte of a", func() bool { return h.HoverByte(2) }, true, []int{0, 1, 2, 3}},
		{"padding", func() bool { return h.HoverByte(6) }, false, nil},
		{"unknown field", func() bool { return h.HoverField(9) }, false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if ok := tt.do(); ok != tt.ok {
				t.Errorf("got %v, want %v", ok, tt.ok)
			}
			if got := h.Highlighted(); !slices.Equal(got, tt.want) {
				t.Errorf("Highlighted: got %v, want %v", got, tt.want)
			}
		})
	}

	h.HoverField(1)
	h.Leave()
	if got := h.Highlighted(); len(got) != 0 {
		t.Errorf("after Leave: got %v", got)
	}
}

func TestHandlesDoNotBleed(t *testing.T) {
	h := bytemap.NewHighlighter(mustMap(t, intChar))
	list := h.NewHandle()
	grid := h.NewHandle()

	list.EnterField(0)
	grid.EnterByte(4)
	if got := h.Highlighted(); !slices.Equal(got, []int{0, 1, 2, 3, 4}) {
		t.Fatalf("union: got %v", got)
	}
	if got := h.LitFields(); !slices.Equal(got, []int{0, 1}) {
		t.Errorf("LitFields: got %v", got)
	}

	list.Leave()
	if got := h.Highlighted(); !slices.Equal(got, []int{4}) {
		t.Errorf("after list leaves: got %v", got)
	}
	list.Leave()
	if !h.Lit(4) || h.Lit(0) {
		t.Error("second Leave changed another handle's highlight")
	}

	// both handles on the same field: one leaving keeps the other lit
	list.EnterField(1)
	grid.Leave()
	if !h.Lit(4) {
		t.Error("byte 4 unlit while list still hovers it")
	}
	if f, ok := list.Field(); !ok || f != 1 {
		t.Errorf("list.Field: got %d,%v", f, ok)
	}
	if _, ok := grid.Field(); ok {
		t.Error("grid still bound after Leave")
	}
}

func TestHandlesOnOverlap(t *testing.T) {
	m := mustMap(t, `{"fieldType":"Record","type":"U","size":6,"align":2,"offset":0,"subFields": [`+
		`{"fieldType":"Simple","name":"a","type":"int","size":4,"align":2,"offset":0},`+
		`{"fieldType":"Simple","name":"b","type":"int","size":4,"align":2,"offset":2}]}`)
	h := bytemap.NewHighlighter(m)
	first, second := h.NewHandle(), h.NewHandle()
	first.EnterField(0)
	second.EnterField(1)
	first.Leave()
	if got := h.Highlighted(); !slices.Equal(got, []int{2, 3, 4, 5}) {
		t.Errorf("got %v, want [2 3 4 5]", got)
	}
}
