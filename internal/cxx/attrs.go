package cxx

import (
	"math/bits"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// attribute reads one attribute-specifier at the cursor into set.
func (p *parser) attribute(set *attrSet) (bool, error) {
	t := p.c.peek()
	var kind string
	switch {
	case isPunct(t, "[["):
		kind = "std"
	case isIdent(t) && (t.Value == "alignas" || t.Value == "_Alignas"):
		kind = "alignas"
	case isIdent(t) && (t.Value == "__attribute__" || t.Value == "__attribute"):
		kind = "gnu"
	case isIdent(t) && t.Value == "__declspec":
		kind = "declspec"
	default:
		return false, nil
	}
	if kind != "std" {
		p.c.next()
		if !p.c.is("(") {
			return false, errorAt(p.c.peek().Pos, "expected '(' after '%s'", t.Value)
		}
	}
	toks, err := p.c.group()
	if err != nil {
		return false, err
	}
	a := &Attribute{Pos: t.Pos, Kind: kind, Tokens: toks}
	if kind == "gnu" && len(toks) >= 2 && isPunct(toks[0], "(") && isPunct(toks[len(toks)-1], ")") {
		a.Tokens = toks[1 : len(toks)-1]
	}
	return true, p.applyAttribute(a, set)
}

// applyAttribute interprets the attributes that affect layout: alignment
// requests and packing. Everything else is ignored. A malformed alignment
// is recorded in set and does not end the declaration.
func (p *parser) applyAttribute(a *Attribute, set *attrSet) error {
	if a.Kind == "alignas" {
		v, err := p.alignValue(a.Tokens, a.Pos)
		if err != nil {
			set.reject(err)
			return nil
		}
		set.alignAs = max(set.alignAs, v)
		return nil
	}
	for _, item := range splitTop(a.Tokens, false) {
		if len(item) == 0 || !isIdent(item[0]) {
			continue
		}
		name := item[0].Value
		args := item[1:]
		if len(args) >= 2 && isPunct(args[0], "::") && (name == "gnu" || name == "clang") {
			name, args = args[1].Value, args[2:]
		}
		name = strings.TrimSuffix(strings.TrimPrefix(name, "__"), "__")
		switch {
		case name == "packed":
			set.packed = true
		case name == "aligned" || (a.Kind == "declspec" && name == "align"):
			if len(args) == 0 {
				set.alignAs = max(set.alignAs, p.s.maxAlign())
				continue
			}
			if !isPunct(args[0], "(") || !isPunct(args[len(args)-1], ")") {
				return errorAt(args[0].Pos, "expected '('")
			}
			v, err := p.alignValue(args[1:len(args)-1], a.Pos)
			if err != nil {
				set.reject(err)
				continue
			}
			set.alignAs = max(set.alignAs, v)
		}
	}
	return nil
}

const maxAlignment = 1 << 32

// alignValue evaluates the operand of alignas or aligned: a type or an
// integral constant that is a power of two.
func (p *parser) alignValue(toks []lexer.Token, pos lexer.Position) (uint64, error) {
	sub := p.sub(toks)
	if sub.startsType() {
		typ, err := sub.typeID()
		if err != nil {
			return 0, err
		}
		_, align, ok := typ.sizeAlign(p.s.target)
		if !ok {
			return 0, errorAt(pos, "invalid application of 'alignas' to an incomplete type '%s'", typ)
		}
		return align, nil
	}
	v, err := p.constant(toks)
	if err != nil {
		return 0, err
	}
	if v < 0 || bits.OnesCount64(uint64(v)) > 1 {
		return 0, errorAt(pos, "requested alignment is not a power of 2")
	}
	if v > maxAlignment {
		return 0, errorAt(pos, "requested alignment must be %d bytes or smaller", uint64(maxAlignment))
	}
	return uint64(v), nil
}
