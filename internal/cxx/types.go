package cxx

import (
	"math/bits"
	"strconv"
	"strings"

	"github.com/skdltmxn/cxxlayout/internal/abi"
	"github.com/skdltmxn/cxxlayout/layout"
)

type typeKind uint8

const (
	kindBuiltin typeKind = iota
	kindPointer
	kindReference
	kindMemberPointer
	kindArray
	kindFunction
	kindRecord
	kindEnum
)

// cv holds const/volatile qualifiers.
type cv uint8

const (
	cvConst cv = 1 << iota
	cvVolatile
)

func (q cv) String() string {
	switch q {
	case cvConst:
		return "const"
	case cvVolatile:
		return "volatile"
	case cvConst | cvVolatile:
		return "const volatile"
	}
	return ""
}

// ctype is a C++ type as far as layout needs it. Types are immutable once
// built; qualifying or naming a type makes a copy.
type ctype struct {
	kind typeKind
	cv   cv

	// sugar is the typedef or alias name the type was written with; it is
	// what the type spells as.
	sugar string

	builtin string  // canonical builtin spelling
	elem    *ctype  // pointee, referent, element or return type
	count   uint64  // array element count
	bound   bool    // false for T[]
	rvalue  bool    // && reference
	class   string  // class of a member pointer, as written
	params  string  // function parameter list, without parentheses
	quals   string  // trailing function qualifiers, e.g. "const"
	rec     *record // record types
	enum    *enumType
	written string // record or enum name as written, with any tag keyword
}

func builtinType(name string) *ctype { return &ctype{kind: kindBuiltin, builtin: name} }

func (t *ctype) withCV(q cv) *ctype {
	if q == 0 || t.cv&q == q {
		return t
	}
	c := *t
	c.cv |= q
	if c.kind == kindArray {
		// qualifiers on an array type apply to its elements
		c.cv = 0
		c.elem = t.elem.withCV(q)
	}
	return &c
}

func (t *ctype) named(name string) *ctype {
	c := *t
	c.sugar = name
	c.cv = 0
	return &c
}

func (t *ctype) isFunction() bool { return t.kind == kindFunction }

func (t *ctype) isIntegral() bool {
	switch t.kind {
	case kindBuiltin:
		return abi.IsIntegral(t.builtin)
	case kindEnum:
		return true
	}
	return false
}

func (t *ctype) isVoid() bool { return t.kind == kindBuiltin && t.builtin == "void" }

// complete reports whether objects of the type can be laid out.
func (t *ctype) complete() bool {
	switch t.kind {
	case kindBuiltin:
		return !t.isVoid()
	case kindRecord:
		return t.rec.defined
	case kindEnum:
		return t.enum.underlying != nil
	case kindArray:
		return t.elem.complete()
	case kindFunction:
		return false
	}
	return true
}

// pod reports whether the type is POD in the C++03 sense used for layout.
func (t *ctype) pod() bool {
	switch t.kind {
	case kindReference:
		return false
	case kindRecord:
		return t.rec.pod()
	case kindArray:
		return t.elem.pod()
	}
	return true
}

// sizeAlign returns sizeof and alignof for a complete object type.
func (t *ctype) sizeAlign(tgt layout.Target) (size, align uint64, ok bool) {
	switch t.kind {
	case kindBuiltin:
		return abi.Builtin(t.builtin, tgt)
	case kindPointer, kindReference:
		size, align = abi.Pointer(tgt)
		return size, align, true
	case kindMemberPointer:
		if t.elem.isFunction() {
			size, align = abi.MemberFunctionPointer(tgt)
		} else {
			size, align = abi.Pointer(tgt)
		}
		return size, align, true
	case kindArray:
		es, ea, ok := t.elem.sizeAlign(tgt)
		hi, lo := bits.Mul64(es, t.count)
		if hi != 0 || lo > abi.MaxObjectSize(tgt) {
			return 0, 0, false
		}
		return lo, ea, ok
	case kindRecord:
		if !t.rec.defined {
			return 0, 0, false
		}
		l := t.rec.layout()
		return l.Size, l.Align, true
	case kindEnum:
		if t.enum.underlying == nil {
			return 0, 0, false
		}
		return t.enum.underlying.sizeAlign(tgt)
	}
	return 0, 0, false
}

// String spells the type the way clang's QualType::getAsString does for
// the constructs this front end understands.
func (t *ctype) String() string { return t.spell("") }

func (t *ctype) spell(inner string) string {
	if t.sugar != "" {
		return join(prefixCV(t.cv, t.sugar), inner)
	}
	switch t.kind {
	case kindBuiltin:
		return join(prefixCV(t.cv, t.builtin), inner)
	case kindRecord, kindEnum:
		return join(prefixCV(t.cv, t.written), inner)
	case kindPointer:
		return t.elem.spell(wrapInner(t.elem, "*"+suffixCV(t.cv, inner)))
	case kindReference:
		op := "&"
		if t.rvalue {
			op = "&&"
		}
		return t.elem.spell(wrapInner(t.elem, op+inner))
	case kindMemberPointer:
		return t.elem.spell(wrapInner(t.elem, t.class+"::*"+suffixCV(t.cv, inner)))
	case kindArray:
		n := ""
		if t.bound {
			n = strconv.FormatUint(t.count, 10)
		}
		return t.elem.spell(inner + "[" + n + "]")
	case kindFunction:
		s := inner + "(" + t.params + ")"
		if t.quals != "" {
			s += " " + t.quals
		}
		return t.elem.spell(s)
	}
	return inner
}

// wrapInner parenthesizes a declarator that binds looser than the array or
// function it points into.
func wrapInner(elem *ctype, inner string) string {
	if elem.sugar == "" && (elem.kind == kindArray || elem.kind == kindFunction) {
		return "(" + inner + ")"
	}
	return inner
}

func prefixCV(q cv, base string) string {
	if q == 0 {
		return base
	}
	return q.String() + " " + base
}

func suffixCV(q cv, inner string) string {
	if q == 0 {
		return inner
	}
	if inner == "" {
		return q.String()
	}
	return q.String() + " " + inner
}

func join(base, inner string) string {
	if inner == "" {
		return base
	}
	if strings.HasPrefix(inner, "[") {
		return base + inner
	}
	return base + " " + inner
}
