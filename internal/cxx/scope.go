package cxx

import (
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/skdltmxn/cxxlayout/internal/abi"
	"github.com/skdltmxn/cxxlayout/layout"
)

type scopeKind uint8

const (
	scopeFile scopeKind = iota
	scopeNamespace
	scopeRecord
	scopeEnum
)

// scope is a declaration context. Names declared in it are qualified with
// prefix when listed.
type scope struct {
	parent *scope
	kind   scopeKind
	prefix string
	names  map[string]*entity
	rec    *record

	// transparent holds inline and anonymous namespaces whose names are
	// visible here.
	transparent []*scope
}

func newScope(parent *scope, kind scopeKind, prefix string) *scope {
	return &scope{parent: parent, kind: kind, prefix: prefix, names: make(map[string]*entity)}
}

// entity is whatever a name denotes. A class name and a typedef of the same
// name may share an entity.
type entity struct {
	rec   *record
	alias *ctype
	enum  *enumType
	ns    *scope
	value *constant
}

type constant struct {
	v   int64
	typ *ctype
}

func (s *scope) qualify(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "::" + name
}

// nearestNamespace returns the innermost enclosing namespace or file scope.
func (s *scope) nearestNamespace() *scope {
	for s.kind == scopeRecord || s.kind == scopeEnum {
		s = s.parent
	}
	return s
}

func (s *scope) declare(name string) *entity {
	e := s.names[name]
	if e == nil {
		e = &entity{}
		s.names[name] = e
	}
	return e
}

// local finds name in s itself, in its transparent namespaces and, for a
// class scope, in its base classes.
func (s *scope) local(name string) *entity {
	return s.localSeen(name, make(map[*scope]bool))
}

func (s *scope) localSeen(name string, seen map[*scope]bool) *entity {
	if seen[s] {
		return nil
	}
	seen[s] = true
	if e := s.names[name]; e != nil {
		return e
	}
	for _, t := range s.transparent {
		if e := t.localSeen(name, seen); e != nil {
			return e
		}
	}
	if s.rec != nil {
		for _, b := range s.rec.bases {
			if b.rec.scope == nil {
				continue
			}
			if e := b.rec.scope.localSeen(name, seen); e != nil {
				return e
			}
		}
	}
	return nil
}

// lookup finds name from s outwards.
func (s *scope) lookup(name string) *entity {
	for c := s; c != nil; c = c.parent {
		if e := c.local(name); e != nil {
			return e
		}
	}
	return nil
}

// member returns the scope an entity opens for qualified lookup.
func (e *entity) member() *scope {
	switch {
	case e.ns != nil:
		return e.ns
	case e.rec != nil:
		return e.rec.scope
	case e.enum != nil:
		return e.enum.scope
	case e.alias != nil && e.alias.kind == kindRecord:
		return e.alias.rec.scope
	}
	return nil
}

// record is a class, struct or union.
type record struct {
	id       layout.DeclID
	tag      string
	name     string // unqualified, empty when anonymous
	qual     string
	pos      lexer.Position
	defined  bool
	defining bool
	invalid  bool

	virtuals  bool // declares a virtual function
	special   bool // user-declared constructor, destructor or operator=
	nonPublic bool // has a private or protected data member
	members   map[string]bool

	parent *scope
	scope  *scope

	bases  []baseInfo
	fields []*fieldInfo

	builder *abi.Builder
	abi     abi.Record
	decl    *layout.RecordDecl
}

type baseInfo struct {
	rec     *record
	virtual bool
}

// fieldInfo is a non-static data member as declared.
type fieldInfo struct {
	name     string
	typ      *ctype
	bitField bool
	width    uint64
	alignAs  uint64
	packed   bool
	valid    bool
	pos      lexer.Position
}

func (r *record) layout() *abi.Layout { return r.builder.Layout(&r.abi) }

func (r *record) pod() bool { return r.layout().POD }

// enumType is an enumeration; underlying is nil while it is incomplete.
type enumType struct {
	name       string
	qual       string
	scoped     bool
	underlying *ctype
	scope      *scope
}
