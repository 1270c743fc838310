package cxx

import (
	"math/bits"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/skdltmxn/cxxlayout/internal/abi"
)

// parser reads declarations from tokens in the context of a scope.
type parser struct {
	s   *sema
	sc  *scope
	cls *classCtx
	c   *cursor
}

func (s *sema) parser(sc *scope, cls *classCtx, toks []lexer.Token) *parser {
	return &parser{s: s, sc: sc, cls: cls, c: newCursor(toks, lexer.Position{})}
}

// sub returns a parser over toks sharing p's context.
func (p *parser) sub(toks []lexer.Token) *parser {
	c := newCursor(toks, p.c.peek().Pos)
	return &parser{s: p.s, sc: p.sc, cls: p.cls, c: c}
}

// declSpec is a parsed decl-specifier-seq.
type declSpec struct {
	pos lexer.Position

	typedef, static, extern, friend   bool
	virtual, mutable, constexpr, ctor bool

	typ     *ctype
	invalid bool
	attrs   attrSet
}

type attrSet struct {
	alignAs uint64
	packed  bool
	err     error // first rejected attribute
}

func (a *attrSet) merge(o attrSet) {
	a.alignAs = max(a.alignAs, o.alignAs)
	a.packed = a.packed || o.packed
	a.reject(o.err)
}

func (a *attrSet) reject(err error) {
	if a.err == nil {
		a.err = err
	}
}

// builtinWords accumulates the words of a fundamental type specifier.
type builtinWords struct {
	signed, unsigned bool
	short, long      int
	base             string
	n                int
	pos              lexer.Position
}

func (w *builtinWords) add(t lexer.Token) bool {
	switch t.Value {
	case "signed", "__signed", "__signed__":
		w.signed = true
	case "unsigned":
		w.unsigned = true
	case "short":
		w.short++
	case "long":
		w.long++
	case "void", "bool", "_Bool", "char", "wchar_t", "char8_t", "char16_t", "char32_t",
		"int", "float", "double", "__int128", "__int128_t", "__uint128_t":
		if w.base != "" {
			w.base = "!"
		} else {
			w.base = t.Value
		}
	default:
		return false
	}
	if w.n == 0 {
		w.pos = t.Pos
	}
	w.n++
	return true
}

// resolve returns the canonical spelling, e.g. "unsigned long long".
func (w *builtinWords) resolve() (string, error) {
	bad := errorAt(w.pos, "cannot combine with previous type specifier")
	if w.signed && w.unsigned || w.short > 0 && w.long > 0 || w.long > 2 || w.base == "!" {
		return "", bad
	}
	sign := ""
	if w.unsigned {
		sign = "unsigned "
	}
	switch w.base {
	case "", "int":
		switch {
		case w.short > 0:
			return sign + "short", nil
		case w.long == 1:
			return sign + "long", nil
		case w.long == 2:
			return sign + "long long", nil
		}
		return sign + "int", nil
	case "char":
		switch {
		case w.short > 0 || w.long > 0:
			return "", bad
		case w.signed:
			return "signed char", nil
		}
		return sign + "char", nil
	case "double":
		if w.long == 1 && !w.signed && !w.unsigned && w.short == 0 {
			return "long double", nil
		}
		if w.long > 0 || w.short > 0 || w.signed || w.unsigned {
			return "", bad
		}
		return "double", nil
	case "__int128", "__int128_t":
		return sign + "__int128", nil
	case "__uint128_t":
		return "unsigned __int128", nil
	}
	if w.short > 0 || w.long > 0 || w.signed || w.unsigned {
		return "", bad
	}
	if w.base == "_Bool" {
		return "bool", nil
	}
	return w.base, nil
}

// specifiers reads a decl-specifier-seq. Unknown type names are reported
// and replaced by int so the declaration can still be used.
func (p *parser) specifiers() (*declSpec, error) {
	d := &declSpec{pos: p.c.peek().Pos}
	var words builtinWords
	var q cv
loop:
	for {
		t := p.c.peek()
		if ok, err := p.attribute(&d.attrs); err != nil {
			return nil, err
		} else if ok {
			continue
		}
		if !isIdent(t) && !isPunct(t, "::") {
			break
		}
		if isIdent(t) {
			switch t.Value {
			case "typedef":
				d.typedef = true
			case "static":
				d.static = true
			case "extern":
				d.extern = true
				if p.c.peekAt(1).Type == stringType {
					p.c.next()
				}
			case "friend":
				d.friend = true
			case "virtual":
				d.virtual = true
			case "mutable":
				d.mutable = true
			case "constexpr", "consteval", "constinit":
				d.constexpr = true
			case "inline", "__inline", "__inline__", "thread_local", "_Thread_local", "__thread",
				"register", "__extension__", "typename", "restrict", "__restrict", "__restrict__":
			case "explicit":
				p.c.next()
				if p.c.is("(") {
					if _, err := p.c.group(); err != nil {
						return nil, err
					}
				}
				continue
			case "const", "__const":
				q |= cvConst
			case "volatile", "__volatile__":
				q |= cvVolatile
			default:
				if words.add(t) {
					break
				}
				if d.typ != nil || words.n > 0 {
					break loop
				}
				switch t.Value {
				case "struct", "class", "union", "enum":
					typ, err := p.elaborated()
					if err != nil {
						return nil, err
					}
					d.typ = typ
					continue
				case "decltype", "typeof", "__typeof__", "auto", "_Atomic":
					return nil, errorAt(t.Pos, "type specifier '%s' is not supported", t.Value)
				case "operator":
					break loop
				}
				if p.cls != nil && t.Value == p.cls.rec.name && isPunct(p.c.peekAt(1), "(") || p.outOfLineCtor() {
					d.ctor = true
					break loop
				}
				typ, ok, err := p.typeName()
				if err != nil {
					return nil, err
				}
				if ok {
					d.typ = typ
					continue
				}
				if !p.unknownTypeAhead() {
					break loop
				}
				name, _ := p.skipName()
				p.s.errorf(t.Pos, "unknown type name '%s'", name)
				d.typ, d.invalid = builtinType("int"), true
				continue
			}
			p.c.next()
			continue
		}
		// leading '::' of a qualified type name
		if d.typ != nil || words.n > 0 {
			break
		}
		typ, ok, err := p.typeName()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		d.typ = typ
	}
	if words.n > 0 {
		if d.typ != nil {
			return nil, errorAt(words.pos, "cannot combine with previous type specifier")
		}
		name, err := words.resolve()
		if err != nil {
			return nil, err
		}
		d.typ = builtinType(name)
	}
	if d.typ != nil {
		d.typ = d.typ.withCV(q)
	}
	return d, nil
}

// elaborated reads 'struct X', 'union ns::Y' or 'enum E' used as a type.
// An unknown class name declares the class in the nearest namespace.
func (p *parser) elaborated() (*ctype, error) {
	tag := p.c.next()
	if isIdent(p.c.peek()) && (p.c.peek().Value == "class" || p.c.peek().Value == "struct") && tag.Value == "enum" {
		p.c.next()
	}
	var attrs attrSet
	for {
		ok, err := p.attribute(&attrs)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
	}
	if attrs.err != nil {
		return nil, attrs.err
	}
	start := p.c.peek()
	name, ent, err := p.qualifiedEntity()
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, errorAt(start.Pos, "expected identifier")
	}
	written := tag.Value + " " + name
	if tag.Value == "enum" {
		if ent == nil || ent.enum == nil {
			return nil, errorAt(start.Pos, "use of undeclared enum '%s'", name)
		}
		return enumRef(ent.enum, written), nil
	}
	if ent == nil || ent.rec == nil {
		if strings.Contains(name, "::") {
			return nil, errorAt(start.Pos, "no struct named '%s'", name)
		}
		rec := p.s.forward(p.sc.nearestNamespace(), tag.Value, name, start.Pos)
		return recordRef(rec, written), nil
	}
	return recordRef(ent.rec, written), nil
}

func recordRef(rec *record, written string) *ctype {
	return &ctype{kind: kindRecord, rec: rec, written: written}
}

func enumRef(e *enumType, written string) *ctype {
	return &ctype{kind: kindEnum, enum: e, written: written}
}

// qualifiedEntity reads a possibly qualified name and resolves it. The name
// is consumed even when it does not resolve.
func (p *parser) qualifiedEntity() (string, *entity, error) {
	var sb strings.Builder
	var ent *entity
	sc := p.sc
	global := false
	if p.c.accept("::") {
		global = true
		sb.WriteString("::")
	}
	first := true
	for {
		t := p.c.peek()
		if !isIdent(t) {
			if first {
				return "", nil, nil
			}
			return "", nil, errorAt(t.Pos, "expected unqualified-id")
		}
		p.c.next()
		sb.WriteString(t.Value)
		switch {
		case first && global:
			ent = p.s.global.local(t.Value)
		case first:
			ent = sc.lookup(t.Value)
		case sc != nil:
			ent = sc.local(t.Value)
		default:
			ent = nil
		}
		first = false
		if p.c.is("<") {
			p.angled()
			if ent != nil {
				return sb.String(), nil, errorAt(t.Pos, "'%s' is not a template", sb.String())
			}
			return sb.String(), nil, errorAt(t.Pos, "no template named '%s'", sb.String())
		}
		if !p.c.is("::") || p.c.peekAt(1).Type != identType {
			return sb.String(), ent, nil
		}
		p.c.next()
		sb.WriteString("::")
		sc = nil
		if ent != nil {
			sc = ent.member()
		}
	}
}

// typeName resolves the name at the cursor as a type. Nothing is consumed
// when it is not one.
func (p *parser) typeName() (*ctype, bool, error) {
	save := p.c.i
	name, ent, err := p.qualifiedEntity()
	if err != nil {
		p.c.i = save
		return nil, false, nil
	}
	if typ := entityType(ent, name); typ != nil {
		return typ, true, nil
	}
	p.c.i = save
	return nil, false, nil
}

func entityType(ent *entity, written string) *ctype {
	switch {
	case ent == nil:
		return nil
	case ent.alias != nil:
		return ent.alias.named(written)
	case ent.rec != nil:
		return recordRef(ent.rec, written)
	case ent.enum != nil:
		return enumRef(ent.enum, written)
	}
	return nil
}

// outOfLineCtor reports whether the cursor is at a constructor defined
// outside its class, as in S::S(int).
func (p *parser) outOfLineCtor() bool {
	var names []string
	i := 0
	if isPunct(p.c.peekAt(i), "::") {
		i++
	}
	for isIdent(p.c.peekAt(i)) {
		names = append(names, p.c.peekAt(i).Value)
		i++
		if !isPunct(p.c.peekAt(i), "::") {
			break
		}
		i++
	}
	n := len(names)
	return n >= 2 && names[n-1] == names[n-2] && isPunct(p.c.peekAt(i), "(")
}

// unknownTypeAhead reports whether the name at the cursor is followed by
// something only a type name can be followed by.
func (p *parser) unknownTypeAhead() bool {
	i := 0
	if isPunct(p.c.peekAt(i), "::") {
		i++
	}
	for {
		if !isIdent(p.c.peekAt(i)) {
			return false
		}
		i++
		if isPunct(p.c.peekAt(i), "::") {
			i++
			continue
		}
		break
	}
	t := p.c.peekAt(i)
	if isIdent(t) {
		return t.Value != "final" && t.Value != "override"
	}
	return isPunct(t, "*") || isPunct(t, "&") || isPunct(t, "&&") || isPunct(t, "<") || isPunct(t, "...")
}

// skipName consumes a possibly qualified name with template arguments.
func (p *parser) skipName() (string, lexer.Position) {
	pos := p.c.peek().Pos
	var sb strings.Builder
	if p.c.accept("::") {
		sb.WriteString("::")
	}
	for isIdent(p.c.peek()) {
		sb.WriteString(p.c.next().Value)
		if p.c.is("<") {
			p.angled()
		}
		if !p.c.is("::") {
			break
		}
		p.c.next()
		sb.WriteString("::")
	}
	return sb.String(), pos
}

// startsType reports whether the cursor is at a type-id.
func (p *parser) startsType() bool {
	t := p.c.peek()
	if !isIdent(t) && !isPunct(t, "::") {
		return false
	}
	if isIdent(t) {
		var w builtinWords
		if w.add(t) {
			return true
		}
		switch t.Value {
		case "const", "volatile", "struct", "class", "union", "enum", "typename":
			return true
		}
	}
	save := p.c.i
	defer func() { p.c.i = save }()
	_, ok, _ := p.typeName()
	return ok
}

// typeID reads a type-id: specifiers and an abstract declarator, and
// nothing else.
func (p *parser) typeID() (*ctype, error) {
	spec, err := p.specifiers()
	if err != nil {
		return nil, err
	}
	if spec.typ == nil {
		return nil, errorAt(spec.pos, "expected a type")
	}
	d, err := p.declarator(spec.typ, true)
	if err != nil {
		return nil, err
	}
	if !p.c.done() {
		return nil, errorAt(p.c.peek().Pos, "expected a type")
	}
	if spec.attrs.err != nil {
		return nil, spec.attrs.err
	}
	if d.err != nil {
		return nil, d.err
	}
	return d.typ, nil
}

// declarator is one declarator of a declaration, with whatever follows it.
type declarator struct {
	name     string
	pos      lexer.Position
	typ      *ctype
	attrs    attrSet
	qualName bool // out-of-line member, e.g. S::f

	dtor     bool
	operator bool
	virt     bool // override, final or pure
	body     bool // function definition

	bitField  bool
	width     int64
	widthPos  lexer.Position
	widthErr  error
	init      []lexer.Token
	hasInit   bool
	unbounded bool

	// err is a semantic error that leaves the declarator usable as an
	// invalid declaration.
	err error
}

func (d *declarator) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (p *parser) cvSeq() cv {
	var q cv
	for {
		switch {
		case p.c.acceptWord("const"):
			q |= cvConst
		case p.c.acceptWord("volatile"):
			q |= cvVolatile
		case p.c.acceptWord("restrict"), p.c.acceptWord("__restrict"), p.c.acceptWord("__restrict__"):
		default:
			var a attrSet
			if ok, _ := p.attribute(&a); ok {
				continue
			}
			return q
		}
	}
}

// memberPointerAhead reports the index of the '*' ending a
// nested-name-specifier such as Foo::* at the cursor, or -1.
func (p *parser) memberPointerAhead(from int) int {
	i := from
	if isPunct(p.c.peekAt(i), "::") {
		i++
	}
	for {
		if !isIdent(p.c.peekAt(i)) {
			return -1
		}
		i++
		if isPunct(p.c.peekAt(i), "<") {
			depth := 0
			for ; !p.c.peekAt(i).EOF(); i++ {
				if isPunct(p.c.peekAt(i), "<") {
					depth++
				} else if isPunct(p.c.peekAt(i), ">") {
					depth--
					if depth == 0 {
						i++
						break
					}
				}
			}
		}
		if !isPunct(p.c.peekAt(i), "::") {
			return -1
		}
		i++
		if isPunct(p.c.peekAt(i), "*") {
			return i
		}
	}
}

// declarator reads a declarator over base. With abstract set the name is
// optional, as in a type-id or parameter.
func (p *parser) declarator(base *ctype, abstract bool) (*declarator, error) {
	d := &declarator{pos: p.c.peek().Pos}
	t := base
	for {
		if t.isReference() && (p.c.is("*") || p.c.is("&") || p.c.is("&&")) {
			return nil, errorAt(p.c.peek().Pos, "'%s' declared as a pointer to a reference", p.c.peek().Value)
		}
		switch {
		case p.c.accept("*"):
			t = &ctype{kind: kindPointer, elem: t, cv: p.cvSeq()}
			continue
		case p.c.is("&"), p.c.is("&&"):
			rv := p.c.next().Value == "&&"
			p.cvSeq()
			t = &ctype{kind: kindReference, elem: t, rvalue: rv}
			continue
		}
		if star := p.memberPointerAhead(0); star > 0 {
			cls := joinTokens(p.c.toks[p.c.i : p.c.i+star-1])
			p.c.i += star + 1
			t = &ctype{kind: kindMemberPointer, elem: t, class: cls, cv: p.cvSeq()}
			continue
		}
		break
	}

	var inner []lexer.Token
	nested := false
	switch {
	case p.c.is("(") && p.nestedAhead():
		toks, err := p.c.group()
		if err != nil {
			return nil, err
		}
		inner, nested = toks, true
	case p.c.is("~") && isIdent(p.c.peekAt(1)):
		p.c.next()
		n := p.c.next()
		d.name, d.pos, d.dtor = "~"+n.Value, n.Pos, true
	case p.c.isWord("operator"):
		d.pos = p.c.peek().Pos
		d.name, d.operator = p.operatorName(), true
	case !abstract && (isIdent(p.c.peek()) || p.c.is("::")):
		d.pos = p.c.peek().Pos
		if err := p.declaratorID(d); err != nil {
			return nil, err
		}
	case !abstract && p.c.is(":"):
		// unnamed bit-field
	case !abstract:
		return nil, errorAt(p.c.peek().Pos, "expected member name or ';' after declaration specifiers")
	}

	var suffixes []func(*ctype) (*ctype, error)
	for {
		switch {
		case p.c.is("["):
			pos := p.c.peek().Pos
			toks, err := p.c.group()
			if err != nil {
				return nil, err
			}
			if len(toks) == 0 {
				if len(suffixes) == 0 {
					d.unbounded = true
				}
				suffixes = append(suffixes, func(elem *ctype) (*ctype, error) {
					return &ctype{kind: kindArray, elem: elem}, nil
				})
				continue
			}
			n, err := p.constant(toks)
			if err != nil {
				return nil, err
			}
			if n < 0 {
				d.fail(errorAt(pos, "'%s' declared as an array with a negative size", d.displayName()))
				n = 0
			}
			suffixes = append(suffixes, func(elem *ctype) (*ctype, error) {
				if elem.isFunction() {
					return nil, errorAt(pos, "'%s' declared as array of functions", d.displayName())
				}
				if es, _, ok := elem.sizeAlign(p.s.target); ok {
					if hi, lo := bits.Mul64(es, uint64(n)); hi != 0 || lo > abi.MaxObjectSize(p.s.target) {
						d.fail(errorAt(pos, "array is too large (%d elements)", n))
					}
				}
				return &ctype{kind: kindArray, elem: elem, count: uint64(n), bound: true}, nil
			})
			continue
		case p.c.is("("):
			toks, err := p.c.group()
			if err != nil {
				return nil, err
			}
			params := p.paramList(toks)
			quals, err := p.functionQualifiers(d)
			if err != nil {
				return nil, err
			}
			suffixes = append(suffixes, func(ret *ctype) (*ctype, error) {
				return &ctype{kind: kindFunction, elem: ret, params: params, quals: quals}, nil
			})
			continue
		}
		break
	}
	for i := len(suffixes) - 1; i >= 0; i-- {
		var err error
		if t, err = suffixes[i](t); err != nil {
			return nil, err
		}
	}

	if nested {
		sub := p.sub(inner)
		nd, err := sub.declarator(t, abstract)
		if err != nil {
			return nil, err
		}
		if !sub.c.done() {
			return nil, errorAt(sub.c.peek().Pos, "expected ')'")
		}
		nd.virt = nd.virt || d.virt
		nd.fail(d.err)
		return nd, nil
	}
	d.typ = t
	return d, nil
}

func (t *ctype) isReference() bool { return t.kind == kindReference }

func (d *declarator) displayName() string {
	if d.name == "" {
		return "type name"
	}
	return d.name
}

// nestedAhead reports whether the '(' at the cursor opens a nested
// declarator rather than a parameter list.
func (p *parser) nestedAhead() bool {
	t := p.c.peekAt(1)
	if isPunct(t, "*") || isPunct(t, "&") || isPunct(t, "&&") || isPunct(t, "^") {
		return true
	}
	return p.memberPointerAhead(1) > 0
}

// declaratorID reads the declarator's name, possibly qualified.
func (p *parser) declaratorID(d *declarator) error {
	p.c.accept("::")
	for {
		t := p.c.peek()
		if isPunct(t, "~") && isIdent(p.c.peekAt(1)) {
			p.c.next()
			d.name, d.dtor = "~"+p.c.next().Value, true
			return nil
		}
		if t.Value == "operator" {
			d.name, d.operator = p.operatorName(), true
			return nil
		}
		if !isIdent(t) {
			return errorAt(t.Pos, "expected unqualified-id")
		}
		p.c.next()
		d.name = t.Value
		if p.c.is("<") && (isPunct(p.c.peekAt(1), ">") || p.nameIsTemplate()) {
			p.angled()
		}
		if !p.c.is("::") {
			return nil
		}
		p.c.next()
		d.qualName = true
	}
}

// nameIsTemplate reports whether a '<' after a declarator name starts a
// template argument list, which only out-of-line definitions use.
func (p *parser) nameIsTemplate() bool {
	end := p.c.i
	depth := 0
	for ; end < len(p.c.toks); end++ {
		if isPunct(p.c.toks[end], "<") {
			depth++
		} else if isPunct(p.c.toks[end], ">") {
			depth--
			if depth == 0 {
				break
			}
		}
	}
	return end+1 < len(p.c.toks) && isPunct(p.c.toks[end+1], "::")
}

func (p *parser) operatorName() string {
	p.c.next()
	t := p.c.peek()
	switch {
	case isPunct(t, "(") && isPunct(p.c.peekAt(1), ")"):
		p.c.next()
		p.c.next()
		return "operator()"
	case isPunct(t, "[") && isPunct(p.c.peekAt(1), "]"):
		p.c.next()
		p.c.next()
		return "operator[]"
	case t.Value == "new" || t.Value == "delete":
		p.c.next()
		if p.c.is("[") && isPunct(p.c.peekAt(1), "]") {
			p.c.next()
			p.c.next()
			return "operator " + t.Value + "[]"
		}
		return "operator " + t.Value
	case t.Type == punctType:
		p.c.next()
		return "operator" + t.Value
	}
	// conversion function
	start := p.c.i
	for !p.c.done() && !p.c.is("(") {
		p.c.next()
	}
	return "operator " + joinTokens(p.c.toks[start:p.c.i])
}

// functionQualifiers reads what may follow a parameter list.
func (p *parser) functionQualifiers(d *declarator) (string, error) {
	var quals []string
	for {
		t := p.c.peek()
		var a attrSet
		if ok, err := p.attribute(&a); err != nil {
			return "", err
		} else if a.err != nil {
			return "", a.err
		} else if ok {
			continue
		}
		switch {
		case isIdent(t) && (t.Value == "const" || t.Value == "volatile"):
			quals = append(quals, t.Value)
		case isPunct(t, "&") || isPunct(t, "&&"):
			quals = append(quals, t.Value)
		case isIdent(t) && t.Value == "noexcept":
			p.c.next()
			if p.c.is("(") {
				if _, err := p.c.group(); err != nil {
					return "", err
				}
			}
			quals = append(quals, "noexcept")
			continue
		case isIdent(t) && t.Value == "throw":
			p.c.next()
			if p.c.is("(") {
				if _, err := p.c.group(); err != nil {
					return "", err
				}
			}
			continue
		case isIdent(t) && (t.Value == "override" || t.Value == "final"):
			d.virt = true
		case isPunct(t, "->"):
			p.c.next()
			p.c.until(func(t lexer.Token) bool {
				return isPunct(t, ";") || isPunct(t, ",") || isPunct(t, "=") || isPunct(t, "{") ||
					isPunct(t, ")") || (isIdent(t) && (t.Value == "override" || t.Value == "final"))
			})
			continue
		default:
			return strings.Join(quals, " "), nil
		}
		p.c.next()
	}
}

// paramList spells a function parameter list the way clang prints it.
func (p *parser) paramList(toks []lexer.Token) string {
	if len(toks) == 0 || len(toks) == 1 && at(toks, 0, "void") {
		return ""
	}
	var parts []string
	for _, pt := range splitTop(toks, true) {
		if len(pt) == 1 && isPunct(pt[0], "...") {
			parts = append(parts, "...")
			continue
		}
		if i := indexPunct(pt, "="); i >= 0 {
			pt = pt[:i]
		}
		parts = append(parts, p.paramType(pt))
	}
	return strings.Join(parts, ", ")
}

func (p *parser) paramType(toks []lexer.Token) string {
	for _, abstract := range []bool{true, false} {
		sub := p.sub(toks)
		spec, err := sub.specifiers()
		if err != nil || spec.typ == nil {
			break
		}
		d, err := sub.declarator(spec.typ, abstract)
		if err != nil || !sub.c.done() {
			continue
		}
		return decay(d.typ).String()
	}
	return joinTokens(toks)
}

// decay applies the array-to-pointer and function-to-pointer adjustments
// of parameter types.
func decay(t *ctype) *ctype {
	switch {
	case t.sugar != "":
		return t
	case t.kind == kindArray:
		return &ctype{kind: kindPointer, elem: t.elem}
	case t.kind == kindFunction:
		return &ctype{kind: kindPointer, elem: t}
	}
	return t
}

func indexPunct(toks []lexer.Token, v string) int {
	depth := 0
	for i, t := range toks {
		switch {
		case isPunct(t, "(") || isPunct(t, "[") || isPunct(t, "{"):
			depth++
		case isPunct(t, ")") || isPunct(t, "]") || isPunct(t, "}"):
			depth--
		case depth == 0 && isPunct(t, v):
			return i
		}
	}
	return -1
}
