package layout

import (
	"context"
	"fmt"
	"strconv"
)

// DeclID identifies a record declaration within one analysis.
type DeclID int64

func (id DeclID) String() string { return strconv.FormatInt(int64(id), 10) }

// ParseDeclID parses the string form produced by DeclID.String. Any other
// spelling of the number, such as " 1" or "+1", is rejected.
func ParseDeclID(s string) (DeclID, bool) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || strconv.FormatInt(v, 10) != s {
		return 0, false
	}
	return DeclID(v), true
}

// RecordDecl describes one complete record as placed by a front end.
// Size and alignment already include every ABI rule; the engine only
// decomposes them.
type RecordDecl struct {
	ID       DeclID
	Name     string // Qualified name, e.g. "ns::Outer::Inner"
	Valid    bool
	Size     uint64
	Align    uint64
	OwnsVPtr bool // Declares its own vtable pointer slot
	Bases    []BaseDecl
	Fields   []FieldDecl
}

// BaseDecl is a direct base class of a record.
type BaseDecl struct {
	Record  *RecordDecl
	Virtual bool
	Offset  uint64 // Bytes from the start of the derived record
}

// FieldDecl is a non-static data member of a record.
type FieldDecl struct {
	Name       string
	TypeName   string
	OffsetBits uint64
	Size       uint64
	Align      uint64
	BitField   bool
	BitWidth   uint64
	Record     *RecordDecl // Non-nil when the member's type is a complete record
	Valid      bool
}

// Severity classifies a front-end diagnostic.
type Severity uint8

const (
	SeverityNote Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityNote:
		return "note"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Diagnostic is an informational message produced while reading source.
type Diagnostic struct {
	Severity Severity
	Line     int
	Column   int
	Message  string
}

// Format renders the diagnostic in compiler style using the given file name.
func (d Diagnostic) Format(file string) string {
	if d.Line <= 0 {
		return fmt.Sprintf("%s: %s: %s", file, d.Severity, d.Message)
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s", file, d.Line, d.Column, d.Severity, d.Message)
}

// Unit is the result of running a provider over one source text.
type Unit struct {
	Records     []*RecordDecl // Complete records in discovery order
	Diagnostics []Diagnostic
}

// Provider turns source text into record declarations for a target.
// Malformed source is reported through Unit.Diagnostics; an error return is
// reserved for failures that prevent producing any unit at all.
type Provider interface {
	Parse(ctx context.Context, source string, target Target) (*Unit, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, source string, target Target) (*Unit, error)

func (f ProviderFunc) Parse(ctx context.Context, source string, target Target) (*Unit, error) {
	return f(ctx, source, target)
}

// StaticProvider returns the same unit regardless of the source text.
type StaticProvider struct {
	Unit *Unit
}

func (p StaticProvider) Parse(ctx context.Context, _ string, _ Target) (*Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.Unit == nil {
		return &Unit{}, nil
	}
	return p.Unit, nil
}
