package main

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"

	"github.com/skdltmxn/cxxlayout/internal/cxx"
	"github.com/skdltmxn/cxxlayout/layout"
)

const sample = `struct S { int a; char b; };
struct V { virtual void f(); int x; };
struct Flags { unsigned lo : 3; unsigned hi : 5; };
`

func newTestSession(t *testing.T, src string) *layout.Session {
	t.Helper()
	color.NoColor = true
	s := layout.NewSession(cxx.New())
	if err := s.Analyze(context.Background(), src); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	return s
}

func TestWriteTree(t *testing.T) {
	s := newTestSession(t, sample)

	tests := []struct {
		record string
		want   []string
	}{
		{"S", []string{"S (size 8, align 4)", "0   a  int  [4 bytes, align 4]", "4   b  char  [1 bytes, align 1]"}},
		{"V", []string{"V (size 16, align 8)", "<vptr>", "8   x"}},
		{"Flags", []string{"[bits 0+3 of 4 bytes]", "[bits 3+5 of 4 bytes]"}},
	}
	for _, tt := range tests {
		t.Run(tt.record, func(t *testing.T) {
			_, n, err := resolve(s, tt.record)
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			var buf bytes.Buffer
			writeTree(&buf, n)
			for _, w := range tt.want {
				if !strings.Contains(buf.String(), w) {
					t.Errorf("missing %q in:\n%s", w, buf.String())
				}
			}
		})
	}
}

func TestWriteRuns(t *testing.T) {
	s := newTestSession(t, sample)
	_, n, err := resolve(s, "S")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	m, err := byteMap(n)
	if err != nil {
		t.Fatalf("byteMap: %v", err)
	}

	var buf bytes.Buffer
	writeRuns(&buf, m)
	out := buf.String()
	for _, w := range []string{"<padding>", "Total: 8 bytes, 5 mapped, 3 padding"} {
		if !strings.Contains(out, w) {
			t.Errorf("missing %q in:\n%s", w, out)
		}
	}
}

func TestResolveUnknown(t *testing.T) {
	s := newTestSession(t, sample)
	if _, _, err := resolve(s, "Nope"); err == nil {
		t.Error("expected error for unknown record")
	}

	empty := newTestSession(t, "int x;")
	if _, _, err := resolve(empty, "S"); !errors.Is(err, layout.ErrNoRecords) {
		t.Errorf("got %v, want ErrNoRecords", err)
	}
}

func TestColorSeverity(t *testing.T) {
	color.NoColor = true
	line := "input.cpp:1:2: error: bad thing\n"
	if got := colorSeverity(line); got != line {
		t.Errorf("got %q, want %q", got, line)
	}
}

func TestRenderPDF(t *testing.T) {
	s := newTestSession(t, sample)
	_, n, err := resolve(s, "V")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	m, err := byteMap(n)
	if err != nil {
		t.Fatalf("byteMap: %v", err)
	}
	doc, err := renderPDF(m, nil)
	if err != nil {
		t.Fatalf("renderPDF: %v", err)
	}
	if !bytes.HasPrefix(doc, []byte("%PDF")) {
		t.Errorf("not a PDF: %q", doc[:min(len(doc), 16)])
	}
}

func press(m *viewModel, keys ...string) {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "right":
			msg = tea.KeyMsg{Type: tea.KeyRight}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m.Update(msg)
	}
}

func TestViewModelHighlights(t *testing.T) {
	s := newTestSession(t, sample)
	m := newViewModel(s, 0)
	if m.err != nil {
		t.Fatalf("load: %v", m.err)
	}

	tests := []struct {
		name string
		keys []string
		want []int
	}{
		{"first field", nil, []int{0, 1, 2, 3}},
		{"next field", []string{"j"}, []int{4}},
		{"past last field", []string{"j", "j"}, []int{4}},
		{"grid on byte 0", []string{"tab"}, []int{0, 1, 2, 3}},
		{"grid onto b", []string{"l", "l", "l", "l"}, []int{4}},
		{"grid onto padding", []string{"right"}, nil},
		{"back to list", []string{"tab"}, []int{4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			press(m, tt.keys...)
			if got := m.hl.Highlighted(); !slices.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	press(m, "n")
	if m.err != nil {
		t.Fatalf("load next: %v", m.err)
	}
	if m.rec != 1 || m.refs[m.rec].Name != "V" {
		t.Fatalf("next record: got %d", m.rec)
	}
	if got := m.hl.Highlighted(); !slices.Equal(got, []int{0, 1, 2, 3, 4, 5, 6, 7}) {
		t.Errorf("vptr: got %v", got)
	}
	press(m, "p", "p")
	if m.refs[m.rec].Name != "Flags" {
		t.Errorf("wrap around: got %q", m.refs[m.rec].Name)
	}
	if !strings.Contains(m.View(), "Flags") {
		t.Error("View does not show the record name")
	}
}
