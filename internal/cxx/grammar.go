package cxx

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var declParser = participle.MustBuild[Decl](
	participle.Lexer(cxxLexer),
	participle.Elide(elided...),
	participle.UseLookahead(4),
)

// Decl is a single declaration, at namespace scope or inside a class body.
// The splitter hands the parser exactly one declaration at a time.
type Decl struct {
	Pos lexer.Position `parser:""`

	Access       string        `parser:"  @('public' | 'protected' | 'private') ':'"`
	Template     *Template     `parser:"| @@"`
	Typedef      *Typedef      `parser:"| @@"`
	Alias        *Alias        `parser:"| @@"`
	StaticAssert *StaticAssert `parser:"| @@"`
	Record       *Record       `parser:"| @@"`
	Enum         *Enum         `parser:"| @@"`
	Empty        bool          `parser:"| @';'"`
	Other        *Rest         `parser:"| @@"`
}

// Template is a template declaration. Templates are recognized so they can
// be skipped as a whole.
type Template struct {
	Pos    lexer.Position `parser:""`
	Params *Angled        `parser:"'template' @@?"`
	Rest   *Tail          `parser:"@@"`
}

// Typedef is a typedef declaration; a record or enum may be defined inline.
type Typedef struct {
	Pos    lexer.Position `parser:""`
	Record *Record        `parser:"'typedef' ( @@"`
	Enum   *Enum          `parser:"        | @@"`
	Rest   *Rest          `parser:"        | @@ )"`
}

// Alias is an alias-declaration, using Name = type;
type Alias struct {
	Pos  lexer.Position `parser:""`
	Name string         `parser:"'using' @Ident"`
	Type *Rest          `parser:"'=' @@"`
}

// StaticAssert is static_assert(cond) or static_assert(cond, "message").
type StaticAssert struct {
	Pos  lexer.Position `parser:""`
	Args *Parens        `parser:"'static_assert' @@ ';'"`
}

// Record is a class-specifier or an elaborated class name that starts a
// declaration, together with whatever declarators follow it.
type Record struct {
	Pos   lexer.Position `parser:""`
	Tag   string         `parser:"@('struct' | 'class' | 'union')"`
	Attrs []*Attribute   `parser:"@@*"`
	Name  *QualName      `parser:"@@?"`
	Final bool           `parser:"@'final'?"`
	Bases []*BaseSpec    `parser:"( ':' @@ ( ',' @@ )* )?"`
	Body  *Braced        `parser:"@@?"`
	Tail  *Tail          `parser:"@@"`
}

// BaseSpec is one entry of a base-clause.
type BaseSpec struct {
	Pos        lexer.Position `parser:""`
	Specifiers []string       `parser:"@('virtual' | 'public' | 'protected' | 'private')*"`
	Name       *QualName      `parser:"@@"`
	Pack       bool           `parser:"@'...'?"`
}

// Enum is an enum-specifier or opaque enum declaration.
type Enum struct {
	Pos    lexer.Position `parser:""`
	Scoped string         `parser:"'enum' @('class' | 'struct')?"`
	Attrs  []*Attribute   `parser:"@@*"`
	Name   *QualName      `parser:"@@?"`
	Base   *TypeTokens    `parser:"( ':' @@ )?"`
	Body   *Braced        `parser:"@@?"`
	Tail   *Tail          `parser:"@@"`
}

// QualName is a possibly qualified name such as ::ns::Outer<int>::Inner.
type QualName struct {
	Pos    lexer.Position `parser:""`
	Global bool           `parser:"@'::'?"`
	Parts  []*NamePart    `parser:"@@ ( '::' @@ )*"`
}

// NamePart is one component of a qualified name.
type NamePart struct {
	Name string  `parser:"@Ident"`
	Args *Angled `parser:"@@?"`
}

// String returns the name as written, without template arguments.
func (q *QualName) String() string {
	if q == nil {
		return ""
	}
	s := ""
	if q.Global {
		s = "::"
	}
	for i, p := range q.Parts {
		if i > 0 {
			s += "::"
		}
		s += p.Name
	}
	return s
}

// Last returns the unqualified component.
func (q *QualName) Last() *NamePart {
	return q.Parts[len(q.Parts)-1]
}

// Templated reports whether any component carries template arguments.
func (q *QualName) Templated() bool {
	for _, p := range q.Parts {
		if p.Args != nil {
			return true
		}
	}
	return false
}
