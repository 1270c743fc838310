package layout_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/skdltmxn/cxxlayout/layout"
)

func testUnit() *layout.Unit {
	s := &layout.RecordDecl{ID: 10, Name: "S", Valid: true, Size: 8, Align: 4,
		Fields: []layout.FieldDecl{intField("a", 0), charField("b", 32)}}
	v := &layout.RecordDecl{ID: 11, Name: "ns::V", Valid: true, Size: 16, Align: 8, OwnsVPtr: true,
		Fields: []layout.FieldDecl{intField("x", 64)}}
	return &layout.Unit{
		Records: []*layout.RecordDecl{s, v},
		Diagnostics: []layout.Diagnostic{
			{Severity: layout.SeverityWarning, Line: 3, Column: 5, Message: "templates are not laid out"},
			{Severity: layout.SeverityError, Line: 9, Column: 1, Message: "unknown type name 'Foo'"},
		},
	}
}

func analyzed(t *testing.T, opts ...layout.Option) *layout.Session {
	t.Helper()
	s := layout.NewSession(layout.StaticProvider{Unit: testUnit()}, opts...)
	if err := s.Analyze(context.Background(), "struct S { int a; char b; };"); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	return s
}

func TestSessionListRecords(t *testing.T) {
	s := analyzed(t)
	want := `[{"id":"10","name":"S"},{"id":"11","name":"ns::V"}]`
	if got := string(s.ListRecordsJSON()); got != want {
		t.Errorf("ListRecordsJSON: got %s, want %s", got, want)
	}
	if s.Empty() || s.Require() != nil {
		t.Error("session with records reported empty")
	}
}

func TestSessionLayoutIdempotent(t *testing.T) {
	s := analyzed(t)
	first := s.LayoutJSON("10")
	second := s.LayoutJSON("10")
	if !bytes.Equal(first, second) {
		t.Errorf("LayoutJSON not idempotent:\n%s\n%s", first, second)
	}
	if !bytes.HasPrefix(first, []byte(`{"fieldType":"Record","type":"S","size":8,"align":4`)) {
		t.Errorf("LayoutJSON: got %s", first)
	}
}

func TestSessionVirtualExample(t *testing.T) {
	s := analyzed(t)
	w, err := layout.Decode(s.LayoutJSON("11"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if w.Size != 16 || w.SubFields[0].FieldType != "VPtr" || w.SubFields[0].Offset != 0 || w.SubFields[0].Size != 8 {
		t.Errorf("vptr: got %+v", w.SubFields[0])
	}
	if x := w.SubFields[1]; x.Type != "int" || x.Offset != 8 || x.Size != 4 {
		t.Errorf("int: got %+v", x)
	}
}

func TestSessionUnknownID(t *testing.T) {
	s := analyzed(t)
	for _, id := range []string{"999999", "", "abc", "-1", " 10 ", "10\n", "+10", "010"} {
		if got := string(s.LayoutJSON(id)); got != "{}" {
			t.Errorf("LayoutJSON(%q): got %s, want {}", id, got)
		}
	}
}

func TestSessionClear(t *testing.T) {
	s := analyzed(t)
	s.Clear()

	if got := string(s.ListRecordsJSON()); got != "[]" {
		t.Errorf("ListRecordsJSON after Clear: got %s", got)
	}
	if got := string(s.LayoutJSON("10")); got != "{}" {
		t.Errorf("LayoutJSON after Clear: got %s", got)
	}
	if !errors.Is(s.Require(), layout.ErrNoRecords) {
		t.Error("Require after Clear: want ErrNoRecords")
	}
	if len(s.Diagnostics()) != 0 || s.Engine() != nil {
		t.Error("Clear kept diagnostics or engine")
	}
	for range s.LookupName("S") {
		t.Error("LookupName after Clear yielded a record")
	}
}

func TestSessionReanalyzeReplaces(t *testing.T) {
	calls := 0
	p := layout.ProviderFunc(func(ctx context.Context, source string, target layout.Target) (*layout.Unit, error) {
		calls++
		if calls == 1 {
			return testUnit(), nil
		}
		return &layout.Unit{Records: []*layout.RecordDecl{{ID: 1, Name: "Only", Valid: true, Size: 1, Align: 1}}}, nil
	})
	s := layout.NewSession(p)
	ctx := context.Background()
	if err := s.Analyze(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if err := s.Analyze(ctx, "b"); err != nil {
		t.Fatal(err)
	}
	if got := string(s.ListRecordsJSON()); got != `[{"id":"1","name":"Only"}]` {
		t.Errorf("records: got %s", got)
	}
	if got := string(s.LayoutJSON("10")); got != "{}" {
		t.Errorf("stale id: got %s", got)
	}
}

func TestSessionLookupAndResolve(t *testing.T) {
	s := analyzed(t)
	var ids []layout.DeclID
	for r := range s.LookupName("ns::V") {
		ids = append(ids, r.ID)
	}
	if len(ids) != 1 || ids[0] != 11 {
		t.Errorf("LookupName: got %v", ids)
	}

	tests := []struct {
		in   string
		want layout.DeclID
	}{
		{"10", 10},
		{"ns::V", 11},
		{"S", 10},
	}
	for _, tt := range tests {
		r, err := s.Resolve(tt.in)
		if err != nil || r.ID != tt.want {
			t.Errorf("Resolve(%q): got %v, %v; want %d", tt.in, r.ID, err, tt.want)
		}
	}
	if _, err := s.Resolve("Missing"); !errors.Is(err, layout.ErrUnknownRecord) {
		t.Errorf("Resolve(Missing): got %v", err)
	}
}

func TestSessionDiagnostics(t *testing.T) {
	s := analyzed(t, layout.WithFilename("demo.cpp"))
	want := "demo.cpp:3:5: warning: templates are not laid out\n" +
		"demo.cpp:9:1: error: unknown type name 'Foo'\n"
	if got := s.DiagnosticsText(); got != want {
		t.Errorf("DiagnosticsText:\n got %q\nwant %q", got, want)
	}

	capped := analyzed(t, layout.WithMaxDiagnostics(1))
	if n := len(capped.Diagnostics()); n != 1 {
		t.Errorf("capped diagnostics: got %d, want 1", n)
	}
	if !strings.Contains(capped.DiagnosticsText(), "1 more diagnostics not shown") {
		t.Errorf("capped text: got %q", capped.DiagnosticsText())
	}
}

func TestSessionParallelMatchesSequential(t *testing.T) {
	seq := analyzed(t)
	par := analyzed(t, layout.WithWorkers(4))
	for r := range seq.Records() {
		a, b := seq.LayoutJSON(r.ID.String()), par.LayoutJSON(r.ID.String())
		if !bytes.Equal(a, b) {
			t.Errorf("%s: sequential %s, parallel %s", r.Name, a, b)
		}
	}
}

func TestSessionConfigureTarget(t *testing.T) {
	var seen layout.Target
	p := layout.ProviderFunc(func(ctx context.Context, source string, target layout.Target) (*layout.Unit, error) {
		seen = target
		return &layout.Unit{}, nil
	})
	s := layout.NewSession(p)

	s.ConfigureTarget("-m32")
	if err := s.Analyze(context.Background(), ""); err != nil {
		t.Fatal(err)
	}
	if seen.PointerSize != 4 {
		t.Errorf("provider saw pointer size %d, want 4", seen.PointerSize)
	}
	if !s.Empty() || !errors.Is(s.Require(), layout.ErrNoRecords) {
		t.Error("no records: want Empty and ErrNoRecords")
	}

	s.ConfigureTarget("--target=bogus")
	if got := s.Target().Triple; got != layout.DefaultTriple {
		t.Errorf("malformed target: got %q, want default", got)
	}
	s.ConfigureTarget("-m32")
	s.ConfigureTarget("")
	if got := s.Target().Triple; got != layout.DefaultTriple {
		t.Errorf("empty target: got %q, want default", got)
	}
}

func TestSessionProviderFailure(t *testing.T) {
	boom := errors.New("boom")
	s := layout.NewSession(layout.ProviderFunc(func(context.Context, string, layout.Target) (*layout.Unit, error) {
		return nil, boom
	}))
	if err := s.Analyze(context.Background(), "x"); !errors.Is(err, boom) {
		t.Errorf("Analyze: got %v, want wrapped boom", err)
	}
	if !s.Empty() {
		t.Error("failed analysis left records")
	}

	if err := layout.NewSession(nil).Analyze(context.Background(), ""); !errors.Is(err, layout.ErrNoProvider) {
		t.Errorf("nil provider: got %v", err)
	}
}
