package cxx

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"fortio.org/safecast"
	"github.com/alecthomas/participle/v2/lexer"
)

var binaryLevels = [][]string{
	{"||"},
	{"&&"},
	{"|"},
	{"^"},
	{"&"},
	{"==", "!="},
	{"<", ">", "<=", ">="},
	{"<<", ">>"},
	{"+", "-"},
	{"*", "/", "%"},
}

// constExpr evaluates an integral constant expression.
func (p *parser) constExpr() (int64, error) {
	return p.conditional()
}

// constant evaluates toks, which must form exactly one expression.
func (p *parser) constant(toks []lexer.Token) (int64, error) {
	sub := p.sub(toks)
	if sub.c.done() {
		return 0, errorAt(p.c.peek().Pos, "expected expression")
	}
	v, err := sub.constExpr()
	if err != nil {
		return 0, err
	}
	if !sub.c.done() {
		return 0, errorAt(sub.c.peek().Pos, "expected expression")
	}
	return v, nil
}

func (p *parser) conditional() (int64, error) {
	cond, err := p.binary(0)
	if err != nil {
		return 0, err
	}
	if !p.c.accept("?") {
		return cond, nil
	}
	a, err := p.conditional()
	if err != nil {
		return 0, err
	}
	if err := p.c.expect(":"); err != nil {
		return 0, err
	}
	b, err := p.conditional()
	if err != nil {
		return 0, err
	}
	if cond != 0 {
		return a, nil
	}
	return b, nil
}

func (p *parser) binary(level int) (int64, error) {
	if level == len(binaryLevels) {
		return p.unary()
	}
	l, err := p.binary(level + 1)
	if err != nil {
		return 0, err
	}
	for {
		op, pos, ok := p.binaryOp(binaryLevels[level])
		if !ok {
			return l, nil
		}
		r, err := p.binary(level + 1)
		if err != nil {
			return 0, err
		}
		if l, err = applyBinary(op, l, r, pos); err != nil {
			return 0, err
		}
	}
}

// binaryOp consumes one of ops. The lexer never produces ">>" so that
// template argument lists close cleanly; two adjacent '>' form a shift.
func (p *parser) binaryOp(ops []string) (string, lexer.Position, bool) {
	t := p.c.peek()
	if t.Type != punctType {
		return "", t.Pos, false
	}
	shift := isPunct(t, ">") && isPunct(p.c.peekAt(1), ">") && p.c.peekAt(1).Pos.Offset == t.Pos.Offset+1
	for _, op := range ops {
		switch {
		case op == ">>" && shift:
			p.c.next()
			p.c.next()
			return op, t.Pos, true
		case op == ">" && shift:
			return "", t.Pos, false
		case t.Value == op:
			p.c.next()
			return op, t.Pos, true
		}
	}
	return "", t.Pos, false
}

func applyBinary(op string, l, r int64, pos lexer.Position) (int64, error) {
	b := func(v bool) int64 {
		if v {
			return 1
		}
		return 0
	}
	switch op {
	case "||":
		return b(l != 0 || r != 0), nil
	case "&&":
		return b(l != 0 && r != 0), nil
	case "|":
		return l | r, nil
	case "^":
		return l ^ r, nil
	case "&":
		return l & r, nil
	case "==":
		return b(l == r), nil
	case "!=":
		return b(l != r), nil
	case "<":
		return b(l < r), nil
	case ">":
		return b(l > r), nil
	case "<=":
		return b(l <= r), nil
	case ">=":
		return b(l >= r), nil
	case "<<", ">>":
		if r < 0 || r >= 64 {
			return 0, errorAt(pos, "shift count %d is out of range", r)
		}
		if op == "<<" {
			return l << uint(r), nil
		}
		return l >> uint(r), nil
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/", "%":
		if r == 0 {
			return 0, errorAt(pos, "division by zero")
		}
		if op == "/" {
			return l / r, nil
		}
		return l % r, nil
	}
	return 0, errorAt(pos, "unsupported operator '%s'", op)
}

func (p *parser) unary() (int64, error) {
	t := p.c.peek()
	if t.Type == punctType {
		switch t.Value {
		case "-", "+", "!", "~":
			p.c.next()
			v, err := p.unary()
			if err != nil {
				return 0, err
			}
			switch t.Value {
			case "-":
				return -v, nil
			case "!":
				if v == 0 {
					return 1, nil
				}
				return 0, nil
			case "~":
				return ^v, nil
			}
			return v, nil
		}
	}
	if isIdent(t) {
		switch t.Value {
		case "sizeof", "alignof", "_Alignof", "__alignof__", "__alignof":
			return p.sizeofExpr()
		}
	}
	return p.primary()
}

func (p *parser) sizeofExpr() (int64, error) {
	op := p.c.next()
	if !p.c.is("(") {
		return 0, errorAt(p.c.peek().Pos, "expected '(' after '%s'", op.Value)
	}
	inner, err := p.c.group()
	if err != nil {
		return 0, err
	}
	sub := p.sub(inner)
	if !sub.startsType() {
		return 0, errorAt(op.Pos, "'%s' of an expression is not supported", op.Value)
	}
	typ, err := sub.typeID()
	if err != nil {
		return 0, err
	}
	size, align, ok := typ.sizeAlign(p.s.target)
	if !ok || !typ.complete() {
		return 0, errorAt(op.Pos, "invalid application of '%s' to an incomplete type '%s'", op.Value, typ)
	}
	if op.Value != "sizeof" {
		size = align
	}
	v, err := safecast.Conv[int64](size)
	if err != nil {
		return 0, errorAt(op.Pos, "size of '%s' does not fit in an integer constant", typ)
	}
	return v, nil
}

func (p *parser) primary() (int64, error) {
	t := p.c.peek()
	switch {
	case t.Type == numberType:
		p.c.next()
		return parseInteger(t)
	case t.Type == charType:
		p.c.next()
		return parseChar(t)
	case isPunct(t, "("):
		if sub := p.peekGroup(); sub != nil && sub.startsType() {
			// C-style cast
			typ, err := sub.typeID()
			if err != nil {
				return 0, err
			}
			p.c.group()
			v, err := p.unary()
			if err != nil {
				return 0, err
			}
			return truncate(v, typ, p), nil
		}
		inner, err := p.c.group()
		if err != nil {
			return 0, err
		}
		return p.constant(inner)
	case isIdent(t):
		switch t.Value {
		case "true":
			p.c.next()
			return 1, nil
		case "false", "nullptr":
			p.c.next()
			return 0, nil
		case "static_cast":
			p.c.next()
			if !p.c.is("<") {
				return 0, errorAt(p.c.peek().Pos, "expected '<' after 'static_cast'")
			}
			typeToks := p.angled()
			typ, err := p.sub(typeToks).typeID()
			if err != nil {
				return 0, err
			}
			if !p.c.is("(") {
				return 0, errorAt(p.c.peek().Pos, "expected '('")
			}
			inner, err := p.c.group()
			if err != nil {
				return 0, err
			}
			v, err := p.constant(inner)
			if err != nil {
				return 0, err
			}
			return truncate(v, typ, p), nil
		}
		fallthrough
	case isPunct(t, "::"):
		name, ent, err := p.qualifiedEntity()
		if err != nil {
			return 0, err
		}
		if ent == nil {
			return 0, errorAt(t.Pos, "use of undeclared identifier '%s'", name)
		}
		if ent.value == nil {
			return 0, errorAt(t.Pos, "expression is not an integral constant expression")
		}
		return ent.value.v, nil
	case t.EOF():
		return 0, errorAt(t.Pos, "expected expression")
	}
	return 0, errorAt(t.Pos, "expression is not an integral constant expression")
}

// peekGroup returns a parser over the parenthesized group at the cursor
// without consuming it.
func (p *parser) peekGroup() *parser {
	end := matchClose(p.c.toks, p.c.i)
	if end < 0 {
		return nil
	}
	return p.sub(p.c.toks[p.c.i+1 : end])
}

// angled consumes a <...> list at the cursor and returns its contents.
func (p *parser) angled() []lexer.Token {
	p.c.next()
	start := p.c.i
	depth := 1
	for !p.c.done() {
		t := p.c.next()
		switch {
		case isPunct(t, "<"):
			depth++
		case isPunct(t, ">"):
			depth--
			if depth == 0 {
				return p.c.toks[start : p.c.i-1]
			}
		}
	}
	return p.c.toks[start:p.c.i]
}

// truncate converts v to an integral type the way a conversion would.
func truncate(v int64, typ *ctype, p *parser) int64 {
	if !typ.isIntegral() {
		return v
	}
	size, _, ok := typ.sizeAlign(p.s.target)
	if !ok || size >= 8 {
		return v
	}
	bits := size * 8
	mask := int64(1)<<bits - 1
	v &= mask
	if typ.kind == kindBuiltin && typ.builtin == "bool" {
		if v != 0 {
			return 1
		}
		return 0
	}
	if signedBuiltin(typ) && v&(int64(1)<<(bits-1)) != 0 {
		v -= int64(1) << bits
	}
	return v
}

func signedBuiltin(typ *ctype) bool {
	if typ.kind != kindBuiltin {
		return true
	}
	name := typ.builtin
	return !strings.HasPrefix(name, "unsigned") && name != "bool" && name != "char8_t" &&
		name != "char16_t" && name != "char32_t"
}

// parseInteger reads an integer literal with any radix prefix, digit
// separators and suffixes.
func parseInteger(t lexer.Token) (int64, error) {
	s := strings.ReplaceAll(t.Value, "'", "")
	hex := strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")
	s = strings.TrimRight(s, "uUlLzZ")
	if strings.ContainsAny(s, ".") || (!hex && strings.ContainsAny(s, "eEfF")) || (hex && strings.ContainsAny(s, "pP")) {
		return 0, errorAt(t.Pos, "expression is not an integral constant expression")
	}
	if len(s) > 1 && s[0] == '0' && s[1] >= '0' && s[1] <= '9' {
		s = "0o" + s[1:]
	}
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, errorAt(t.Pos, "integer literal is too large to be represented in any integer type")
	}
	return int64(v), nil
}

// parseChar reads a character literal; multi-character literals keep only
// their last character.
func parseChar(t lexer.Token) (int64, error) {
	s := t.Value
	s = s[strings.IndexByte(s, '\'')+1 : len(s)-1]
	if s == "" {
		return 0, errorAt(t.Pos, "empty character constant")
	}
	var v int64
	for s != "" {
		if s[0] != '\\' {
			r, n := utf8.DecodeRuneInString(s)
			v, s = int64(r), s[n:]
			continue
		}
		if len(s) < 2 {
			return 0, errorAt(t.Pos, "invalid escape sequence")
		}
		c := s[1]
		s = s[2:]
		switch c {
		case 'n':
			v = '\n'
		case 't':
			v = '\t'
		case 'r':
			v = '\r'
		case 'a':
			v = 7
		case 'b':
			v = 8
		case 'f':
			v = 12
		case 'v':
			v = 11
		case 'x':
			n := 0
			for n < len(s) && strings.IndexByte("0123456789abcdefABCDEF", s[n]) >= 0 {
				n++
			}
			u, err := strconv.ParseUint(s[:n], 16, 64)
			if err != nil {
				return 0, errorAt(t.Pos, "\\x used with no following hex digits")
			}
			v, s = int64(u), s[n:]
		case '0', '1', '2', '3', '4', '5', '6', '7':
			n := 0
			for n < len(s) && n < 2 && s[n] >= '0' && s[n] <= '7' {
				n++
			}
			u, _ := strconv.ParseUint(string(c)+s[:n], 8, 64)
			v, s = int64(u), s[n:]
		default:
			v = int64(c)
		}
	}
	return v, nil
}
