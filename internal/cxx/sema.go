package cxx

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/skdltmxn/cxxlayout/internal/abi"
	"github.com/skdltmxn/cxxlayout/internal/diag"
	"github.com/skdltmxn/cxxlayout/layout"
)

// sema reads one translation unit and lays out every class it defines.
type sema struct {
	ctx      context.Context
	src      string
	filename string
	target   layout.Target
	builder  *abi.Builder
	diags    *diag.Bag
	splitter *splitter
	global   *scope

	records []*record
	nextID  layout.DeclID
}

// classCtx is the class whose body is being read.
type classCtx struct {
	rec    *record
	access string
}

func newSema(ctx context.Context, filename, src string, target layout.Target) *sema {
	s := &sema{
		ctx:      ctx,
		src:      src,
		filename: filename,
		target:   target,
		builder:  &abi.Builder{Target: target},
		diags:    diag.NewBag(),
		global:   newScope(nil, scopeFile, ""),
		nextID:   1,
	}
	s.predeclare()
	return s
}

func (s *sema) errorf(pos lexer.Position, format string, args ...any) {
	s.diags.Errorf(pos.Line, pos.Column, format, args...)
}

func (s *sema) warnf(pos lexer.Position, format string, args ...any) {
	s.diags.Warnf(pos.Line, pos.Column, format, args...)
}

func (s *sema) report(err error, at lexer.Position) {
	se := asSyntaxError(err, at)
	s.diags.Errorf(se.Line, se.Column, "%s", se.Message)
}

// maxAlign is the alignment __attribute__((aligned)) requests without an
// argument.
func (s *sema) maxAlign() uint64 {
	if strings.HasPrefix(s.target.Arch, "arm") {
		return 8
	}
	return 16
}

func (s *sema) endPos() lexer.Position {
	line := strings.Count(s.src, "\n") + 1
	col := len(s.src) - strings.LastIndexByte(s.src, '\n')
	return lexer.Position{Filename: s.filename, Offset: len(s.src), Line: line, Column: col}
}

func (s *sema) run() error {
	toks, err := tokenize(s.filename, s.src)
	if err != nil {
		s.report(err, lexer.Position{Line: 1, Column: 1})
		return nil
	}
	s.splitter = &splitter{eof: s.endPos(), errorf: s.errorf}
	return s.block(s.global, s.splitter.split(toks))
}

func (s *sema) block(sc *scope, b *block) error {
	for _, it := range b.items {
		if err := s.ctx.Err(); err != nil {
			return err
		}
		switch {
		case it.nested == nil:
			s.declaration(sc, nil, it.toks)
		case it.linkage:
			if err := s.block(sc, it.nested); err != nil {
				return err
			}
		default:
			if err := s.block(s.namespace(sc, it), it.nested); err != nil {
				return err
			}
		}
	}
	return nil
}

// namespace opens, or reopens, the namespace an item defines.
func (s *sema) namespace(sc *scope, it item) *scope {
	names := it.namespace
	if len(names) == 0 {
		names = []string{"(anonymous namespace)"}
	}
	for i, name := range names {
		e := sc.declare(name)
		if e.ns == nil {
			if e.rec != nil || e.alias != nil || e.enum != nil {
				s.errorf(it.pos, "redefinition of '%s' as different kind of symbol", name)
			}
			e.ns = newScope(sc, scopeNamespace, sc.qualify(name))
			if len(it.namespace) == 0 || (it.inline && i == len(names)-1) {
				sc.transparent = append(sc.transparent, e.ns)
			}
		}
		sc = e.ns
	}
	return sc
}

// declaration parses and processes one declaration. Errors drop the
// declaration; inside a class they also make the class invalid.
func (s *sema) declaration(sc *scope, cls *classCtx, toks []lexer.Token) {
	d, err := parseDecl(toks)
	if err == nil {
		err = s.decl(sc, cls, d)
	}
	if err != nil {
		s.report(err, toks[0].Pos)
		if cls != nil {
			cls.rec.invalid = true
		}
	}
}

func (s *sema) decl(sc *scope, cls *classCtx, d *Decl) error {
	switch {
	case d.Access != "":
		if cls == nil {
			return errorAt(d.Pos, "expected unqualified-id")
		}
		cls.access = d.Access
	case d.Template != nil:
		s.warnf(d.Pos, "template declaration skipped; templates are not laid out")
	case d.Typedef != nil:
		switch t := d.Typedef; {
		case t.Record != nil:
			return s.recordDecl(sc, cls, t.Record, true)
		case t.Enum != nil:
			return s.enumDecl(sc, cls, t.Enum, true)
		default:
			return s.simple(sc, cls, t.Rest.Tokens, true)
		}
	case d.Alias != nil:
		return s.alias(sc, cls, d.Alias)
	case d.StaticAssert != nil:
		s.staticAssert(sc, cls, d.StaticAssert)
	case d.Record != nil:
		return s.recordDecl(sc, cls, d.Record, false)
	case d.Enum != nil:
		return s.enumDecl(sc, cls, d.Enum, false)
	case d.Other != nil:
		return s.simple(sc, cls, d.Other.Tokens, false)
	}
	return nil
}

// forward declares a class without defining it.
func (s *sema) forward(sc *scope, tag, name string, pos lexer.Position) *record {
	rec := &record{tag: tag, name: name, qual: sc.qualify(name), pos: pos, parent: sc, builder: s.builder}
	if name != "" {
		sc.declare(name).rec = rec
	}
	return rec
}

// resolve looks a qualified name up from sc.
func (s *sema) resolve(sc *scope, q *QualName) *entity {
	var ent *entity
	for i, part := range q.Parts {
		switch {
		case i == 0 && q.Global:
			ent = s.global.local(part.Name)
		case i == 0:
			ent = sc.lookup(part.Name)
		default:
			inner := ent.member()
			if inner == nil {
				return nil
			}
			ent = inner.local(part.Name)
		}
		if ent == nil {
			return nil
		}
	}
	return ent
}

func (s *sema) recordDecl(sc *scope, cls *classCtx, r *Record, typedef bool) error {
	p := s.parser(sc, cls, r.Tail.Tokens)
	var attrs attrSet
	for _, a := range r.Attrs {
		if err := p.applyAttribute(a, &attrs); err != nil {
			return err
		}
	}
	if r.Body != nil {
		// attributes after the closing brace appertain to the class
		for {
			ok, err := p.attribute(&attrs)
			if err != nil {
				return err
			}
			if !ok {
				break
			}
		}
	}
	if attrs.err != nil {
		s.report(attrs.err, r.Pos)
	}
	if r.Name != nil && r.Name.Templated() {
		s.warnf(r.Pos, "template specialization skipped; templates are not laid out")
		return nil
	}

	bare := p.c.is(";") && p.c.i == len(p.c.toks)-1
	var rec *record
	var written string
	switch {
	case r.Name == nil:
		if r.Body == nil {
			return errorAt(r.Pos, "declaration of anonymous %s must be a definition", r.Tag)
		}
		name := ""
		if typedef && isIdent(p.c.peek()) && (isPunct(p.c.peekAt(1), ";") || isPunct(p.c.peekAt(1), ",")) {
			name = p.c.peek().Value
		}
		rec = s.forward(sc, r.Tag, name, r.Pos)
		written = name
		if name == "" {
			kind := "unnamed"
			if bare && cls != nil {
				kind = "anonymous"
			}
			label := fmt.Sprintf("(%s %s at %s:%d:%d)", kind, r.Tag, s.filename, r.Pos.Line, r.Pos.Column)
			rec.qual = sc.qualify(label)
			written = r.Tag + " " + label
		}
	case r.Body != nil || bare:
		name := r.Name.String()
		if len(r.Name.Parts) > 1 || r.Name.Global {
			ent := s.resolve(sc, r.Name)
			if ent == nil || ent.rec == nil {
				return errorAt(r.Name.Pos, "no struct named '%s'", name)
			}
			rec = ent.rec
		} else if e := sc.names[name]; e != nil && e.rec != nil {
			rec = e.rec
		} else {
			rec = s.forward(sc, r.Tag, name, r.Name.Pos)
		}
		written = r.Tag + " " + name
	default:
		name := r.Name.String()
		ent := s.resolve(sc, r.Name)
		switch {
		case ent != nil && ent.rec != nil:
			rec = ent.rec
		case len(r.Name.Parts) > 1:
			return errorAt(r.Name.Pos, "no struct named '%s'", name)
		default:
			rec = s.forward(sc.nearestNamespace(), r.Tag, name, r.Name.Pos)
		}
		written = r.Tag + " " + name
	}

	if r.Body != nil {
		if rec.defined || rec.defining {
			pos := r.Pos
			if r.Name != nil {
				pos = r.Name.Pos
			}
			return errorAt(pos, "redefinition of '%s'", rec.name)
		}
		s.define(sc, rec, r, attrs)
	}
	if !r.Tail.Terminated() {
		return errorAt(r.Tail.Pos, "expected ';' after %s", r.Tag)
	}
	if bare {
		switch {
		case rec.name == "" && cls != nil:
			s.addAnonymousMember(cls, rec, r.Pos)
		case rec.name == "":
			s.warnf(r.Pos, "declaration does not declare anything")
		}
		return nil
	}
	spec := &declSpec{pos: r.Pos, typedef: typedef, typ: recordRef(rec, written)}
	return s.declarators(p, spec)
}

// define reads a class body and lays the class out.
func (s *sema) define(sc *scope, rec *record, r *Record, attrs attrSet) {
	rec.defining = true
	rec.id = s.nextID
	s.nextID++
	rec.decl = &layout.RecordDecl{ID: rec.id}
	rec.members = make(map[string]bool)
	s.records = append(s.records, rec)

	home := rec.parent
	if home == nil {
		home = sc
	}
	rec.scope = newScope(home, scopeRecord, rec.qual)
	rec.scope.rec = rec
	if rec.name != "" {
		rec.scope.declare(rec.name).rec = rec
	}

	for _, b := range r.Bases {
		if err := s.addBase(sc, rec, b); err != nil {
			s.report(err, b.Pos)
			rec.invalid = true
		}
	}

	access := "public"
	if r.Tag == "class" {
		access = "private"
	}
	cls := &classCtx{rec: rec, access: access}
	for _, m := range s.splitter.members(r.Body.Tokens) {
		s.declaration(rec.scope, cls, m)
	}
	s.finish(rec, attrs)
}

func (s *sema) addBase(sc *scope, rec *record, b *BaseSpec) error {
	name := b.Name.String()
	if b.Name.Templated() {
		return errorAt(b.Name.Pos, "no template named '%s'", name)
	}
	typ := entityType(s.resolve(sc, b.Name), name)
	switch {
	case typ == nil || typ.kind != kindRecord:
		return errorAt(b.Name.Pos, "expected class name")
	case typ.rec == rec || !typ.rec.defined:
		return errorAt(b.Name.Pos, "base class has incomplete type")
	case typ.rec.tag == "union":
		return errorAt(b.Name.Pos, "unions cannot be base classes")
	case rec.tag == "union":
		return errorAt(b.Name.Pos, "unions cannot have base classes")
	}
	for _, prev := range rec.bases {
		if prev.rec == typ.rec {
			return errorAt(b.Name.Pos, "base class '%s' specified more than once as a direct base class", name)
		}
	}
	if typ.rec.invalid {
		rec.invalid = true
	}
	rec.bases = append(rec.bases, baseInfo{rec: typ.rec, virtual: slices.Contains(b.Specifiers, "virtual")})
	return nil
}

// finish hands the class to the ABI builder and records the placement.
func (s *sema) finish(rec *record, attrs attrSet) {
	if attrs.err != nil {
		rec.invalid = true
	}
	for i, f := range rec.fields {
		if f.typ.kind == kindArray && !f.typ.bound && i != len(rec.fields)-1 {
			s.errorf(f.pos, "flexible array member '%s' with type '%s' is not at the end of class", f.name, f.typ)
			f.valid = false
			f.typ = builtinType("int")
			rec.invalid = true
		}
	}

	rec.abi = abi.Record{
		Name:               rec.qual,
		Union:              rec.tag == "union",
		Packed:             attrs.packed,
		AlignAs:            attrs.alignAs,
		HasVirtualMethods:  rec.virtuals,
		UserSpecialMembers: rec.special,
		NonPublicFields:    rec.nonPublic,
	}
	for _, b := range rec.bases {
		rec.abi.Bases = append(rec.abi.Bases, abi.Base{Record: &b.rec.abi, Virtual: b.virtual})
	}
	sizes := make([][2]uint64, len(rec.fields))
	for i, f := range rec.fields {
		size, align, ok := f.typ.sizeAlign(s.target)
		if !ok {
			size, align, _ = abi.Builtin("int", s.target)
		}
		sizes[i] = [2]uint64{size, align}
		af := abi.Field{
			Size:     size,
			Align:    align,
			AlignAs:  f.alignAs,
			BitField: f.bitField,
			Width:    f.width,
			Named:    f.name != "",
			POD:      f.typ.pod(),
		}
		if f.packed {
			af.Align = 1
		}
		if f.typ.kind == kindRecord {
			af.Record = &f.typ.rec.abi
		}
		rec.abi.Fields = append(rec.abi.Fields, af)
	}

	rec.defining = false
	rec.defined = true
	l := rec.layout()
	if l.TooLarge {
		s.errorf(rec.pos, "'%s' is too large", rec.qual)
		rec.invalid = true
	}

	d := rec.decl
	d.Name = rec.qual
	d.Valid = !rec.invalid
	d.Size, d.Align = l.Size, l.Align
	d.OwnsVPtr = l.OwnsVPtr
	d.Bases = make([]layout.BaseDecl, len(rec.bases))
	for i, b := range rec.bases {
		d.Bases[i] = layout.BaseDecl{Record: b.rec.decl, Virtual: b.virtual, Offset: l.BaseOffsets[i]}
	}
	d.Fields = make([]layout.FieldDecl, len(rec.fields))
	for i, f := range rec.fields {
		fd := layout.FieldDecl{
			Name:       f.name,
			TypeName:   f.typ.String(),
			OffsetBits: l.FieldOffsets[i],
			Size:       sizes[i][0],
			Align:      sizes[i][1],
			BitField:   f.bitField,
			BitWidth:   f.width,
			Valid:      f.valid,
		}
		if f.typ.kind == kindRecord && f.typ.rec.decl != nil {
			fd.Record = f.typ.rec.decl
		}
		d.Fields[i] = fd
	}
}

func (s *sema) addAnonymousMember(cls *classCtx, rec *record, pos lexer.Position) {
	f := &fieldInfo{typ: recordRef(rec, rec.tag+" "+strings.TrimPrefix(rec.qual, cls.rec.qual+"::")), valid: !rec.invalid, pos: pos}
	for _, m := range rec.fields {
		if m.name == "" {
			continue
		}
		if cls.rec.members[m.name] {
			s.errorf(m.pos, "duplicate member '%s'", m.name)
			f.valid = false
		}
		cls.rec.members[m.name] = true
	}
	if !f.valid {
		cls.rec.invalid = true
	}
	cls.rec.fields = append(cls.rec.fields, f)
}

// simple handles every declaration the grammar does not structure.
func (s *sema) simple(sc *scope, cls *classCtx, toks []lexer.Token, typedef bool) error {
	p := s.parser(sc, cls, toks)
	switch {
	case p.c.isWord("using"):
		return s.using(p)
	case p.c.isWord("namespace"):
		return s.namespaceAlias(p)
	case p.c.isWord("friend"), p.c.isWord("asm"), p.c.isWord("__asm__"):
		return nil
	}
	spec, err := p.specifiers()
	if err != nil {
		return err
	}
	spec.typedef = spec.typedef || typedef
	if spec.friend {
		return nil
	}
	if spec.typ == nil {
		switch {
		case spec.ctor || p.c.is("~") || p.c.isWord("operator"):
			spec.typ = builtinType("void")
		case p.c.is(";"):
			s.warnf(spec.pos, "declaration does not declare anything")
			return nil
		default:
			return errorAt(p.c.peek().Pos, "a type specifier is required for all declarations")
		}
	}
	return s.declarators(p, spec)
}

// declarators reads the init-declarator list that follows spec.
func (s *sema) declarators(p *parser, spec *declSpec) error {
	if spec.attrs.err != nil {
		s.report(spec.attrs.err, spec.pos)
		spec.invalid = true
	}
	for {
		d, err := p.declarator(spec.typ, false)
		if err != nil {
			return err
		}
		for {
			ok, err := p.attribute(&d.attrs)
			if err != nil {
				return err
			}
			if !ok {
				break
			}
		}
		d.fail(d.attrs.err)
		if d.err != nil {
			s.report(d.err, d.pos)
		}
		if d.typ.isFunction() {
			p.functionTail(d)
		} else {
			if p.c.accept(":") {
				d.bitField = true
				d.widthPos = p.c.peek().Pos
				width := p.c.until(func(t lexer.Token) bool {
					return isPunct(t, ",") || isPunct(t, ";") || isPunct(t, "=") || isPunct(t, "{")
				})
				d.width, d.widthErr = p.constant(width)
			}
			switch {
			case p.c.accept("="):
				d.hasInit = true
				d.init = p.c.until(func(t lexer.Token) bool { return isPunct(t, ",") || isPunct(t, ";") })
			case p.c.is("{"):
				d.hasInit = true
				d.init, _ = p.c.group()
			}
		}
		if err := s.declare(p, spec, d); err != nil {
			return err
		}
		if d.body {
			return nil
		}
		if p.c.accept(",") {
			continue
		}
		if p.c.accept(";") {
			return nil
		}
		if p.cls != nil {
			return errorAt(p.c.peek().Pos, "expected ';' at end of declaration list")
		}
		return errorAt(p.c.peek().Pos, "expected ';' after top level declarator")
	}
}

// functionTail consumes a pure-specifier, defaulted or deleted definition,
// or a function body with any constructor initializers.
func (p *parser) functionTail(d *declarator) {
	switch {
	case p.c.accept("="):
		if t := p.c.next(); t.Type == numberType {
			d.virt = true
		}
	case p.c.is(":") || p.c.isWord("try") || p.c.is("{"):
		d.body = true
		p.c.i = len(p.c.toks)
	}
}

// declare binds one declarator.
func (s *sema) declare(p *parser, spec *declSpec, d *declarator) error {
	cls := p.cls
	switch {
	case spec.typedef:
		if d.name == "" {
			return errorAt(d.pos, "typedef requires a name")
		}
		e := p.sc.declare(d.name)
		if e.alias != nil && e.alias.String() != d.typ.String() {
			return errorAt(d.pos, "typedef redefinition with different types ('%s' vs '%s')", d.typ, e.alias)
		}
		e.alias = d.typ
		return nil
	case d.typ.isFunction():
		if cls != nil && !d.qualName {
			if spec.virtual || d.virt {
				cls.rec.virtuals = true
			}
			if spec.ctor || d.dtor || d.name == "operator=" {
				cls.rec.special = true
			}
		}
		return nil
	case d.qualName:
		return nil
	case cls == nil || spec.static || spec.extern:
		if d.hasInit && (spec.constexpr || d.typ.cv&cvConst != 0) && d.typ.isIntegral() && d.name != "" {
			if v, err := p.constant(d.init); err == nil {
				p.sc.declare(d.name).value = &constant{v: truncate(v, d.typ, p), typ: d.typ}
			}
		}
		return nil
	}
	s.addField(p, spec, d)
	return nil
}

func (s *sema) addField(p *parser, spec *declSpec, d *declarator) {
	rec := p.cls.rec
	f := &fieldInfo{
		name:    d.name,
		typ:     d.typ,
		pos:     d.pos,
		valid:   !spec.invalid && d.err == nil,
		alignAs: max(spec.attrs.alignAs, d.attrs.alignAs),
		packed:  spec.attrs.packed || d.attrs.packed,
	}
	if d.name != "" {
		if rec.members[d.name] {
			s.errorf(d.pos, "duplicate member '%s'", d.name)
			f.valid = false
		}
		rec.members[d.name] = true
	}

	// unusable types are replaced by int
	fallback := !f.valid
	switch {
	case fallback:
	case d.typ.isVoid():
		s.errorf(d.pos, "field has incomplete type 'void'")
		fallback = true
	case d.typ.kind == kindArray && !d.typ.bound:
		if !d.typ.elem.complete() {
			s.errorf(d.pos, "array has incomplete element type '%s'", d.typ.elem)
			fallback = true
		}
	case !d.typ.complete():
		s.errorf(d.pos, "field has incomplete type '%s'", d.typ)
		fallback = true
	case !sized(d.typ, s.target):
		// already reported where the array type was written
		fallback = true
	case invalidRecord(d.typ):
		f.valid = false
	}

	if !fallback && d.bitField {
		bits, _, _ := d.typ.sizeAlign(s.target)
		bits *= 8
		switch {
		case d.widthErr != nil:
			s.report(d.widthErr, d.widthPos)
			fallback = true
		case !d.typ.isIntegral():
			s.errorf(d.pos, "bit-field '%s' has non-integral type '%s'", d.displayName(), d.typ)
			fallback = true
		case d.width < 0:
			s.errorf(d.widthPos, "bit-field '%s' has negative width (%d)", d.displayName(), d.width)
			fallback = true
		case d.width == 0 && d.name != "":
			s.errorf(d.widthPos, "named bit-field '%s' has zero width", d.name)
			fallback = true
		default:
			if uint64(d.width) > bits {
				s.warnf(d.widthPos, "width of bit-field '%s' (%d bits) exceeds the width of its type; value will be truncated to %d bits", d.displayName(), d.width, bits)
			}
			f.bitField = true
			f.width = uint64(d.width)
		}
	}

	if fallback {
		f.valid = false
		f.typ = builtinType("int")
		f.bitField = false
	}
	if !f.valid {
		rec.invalid = true
	}
	if p.cls.access != "public" {
		rec.nonPublic = true
	}
	rec.fields = append(rec.fields, f)
}

func sized(t *ctype, tgt layout.Target) bool {
	_, _, ok := t.sizeAlign(tgt)
	return ok
}

func invalidRecord(t *ctype) bool {
	for t.kind == kindArray {
		t = t.elem
	}
	return t.kind == kindRecord && t.rec.invalid
}

// using handles using-directives and using-declarations.
func (s *sema) using(p *parser) error {
	p.c.next()
	if p.c.acceptWord("namespace") {
		start := p.c.peek()
		name, ent, err := p.qualifiedEntity()
		if err != nil {
			return err
		}
		if ent == nil || ent.ns == nil {
			return errorAt(start.Pos, "expected namespace name")
		}
		if name != "" && !slices.Contains(p.sc.transparent, ent.ns) {
			p.sc.transparent = append(p.sc.transparent, ent.ns)
		}
		return nil
	}
	if p.cls != nil {
		// inheriting members or constructors changes nothing in the layout
		return nil
	}
	p.c.acceptWord("typename")
	start := p.c.peek()
	name, ent, err := p.qualifiedEntity()
	if err != nil {
		return err
	}
	if ent == nil {
		return errorAt(start.Pos, "no member named '%s'", name)
	}
	p.sc.names[name[strings.LastIndex(name, ":")+1:]] = ent
	return nil
}

func (s *sema) namespaceAlias(p *parser) error {
	p.c.next()
	t := p.c.next()
	if !isIdent(t) {
		return errorAt(t.Pos, "expected namespace name")
	}
	if err := p.c.expect("="); err != nil {
		return err
	}
	start := p.c.peek()
	_, ent, err := p.qualifiedEntity()
	if err != nil {
		return err
	}
	if ent == nil || ent.ns == nil {
		return errorAt(start.Pos, "expected namespace name")
	}
	p.sc.declare(t.Value).ns = ent.ns
	return nil
}

func (s *sema) alias(sc *scope, cls *classCtx, a *Alias) error {
	toks := a.Type.Tokens
	if !a.Type.Terminated() || !isPunct(toks[len(toks)-1], ";") {
		return errorAt(a.Type.Pos, "expected ';' after alias declaration")
	}
	p := s.parser(sc, cls, toks[:len(toks)-1])
	typ, err := p.typeID()
	if err != nil {
		return err
	}
	e := sc.declare(a.Name)
	if e.alias != nil && e.alias.String() != typ.String() {
		return errorAt(a.Pos, "type alias redefinition with different types ('%s' vs '%s')", typ, e.alias)
	}
	e.alias = typ
	return nil
}

// staticAssert evaluates a static assertion. A failed assertion is an
// error diagnostic but does not invalidate the enclosing class.
func (s *sema) staticAssert(sc *scope, cls *classCtx, sa *StaticAssert) {
	toks := sa.Args.Tokens
	msg := ""
	j := len(toks)
	for j > 0 && toks[j-1].Type == stringType {
		j--
	}
	if j < len(toks) && j > 0 && isPunct(toks[j-1], ",") {
		for _, t := range toks[j:] {
			msg += unquote(t.Value)
		}
		toks = toks[:j-1]
	}
	p := s.parser(sc, cls, toks)
	v, err := p.constant(toks)
	switch {
	case err != nil:
		s.report(err, sa.Pos)
	case v == 0 && msg != "":
		s.errorf(sa.Pos, "static assertion failed: %s", msg)
	case v == 0:
		s.errorf(sa.Pos, "static assertion failed due to requirement '%s'", joinTokens(toks))
	}
}

func unquote(lit string) string {
	lit = lit[strings.IndexByte(lit, '"'):]
	if v, err := strconv.Unquote(lit); err == nil {
		return v
	}
	return strings.Trim(lit, `"`)
}

func (s *sema) enumDecl(sc *scope, cls *classCtx, e *Enum, typedef bool) error {
	p := s.parser(sc, cls, e.Tail.Tokens)
	var fixed *ctype
	if e.Base != nil {
		t, err := p.sub(e.Base.Tokens).typeID()
		if err != nil {
			return err
		}
		if !t.isIntegral() {
			return errorAt(e.Base.Pos, "non-integral type '%s' is an invalid underlying type", t)
		}
		fixed = t
	}
	scoped := e.Scoped != ""

	var et *enumType
	name := ""
	if e.Name != nil {
		name = e.Name.String()
		if len(e.Name.Parts) > 1 || e.Name.Global {
			ent := s.resolve(sc, e.Name)
			if ent == nil || ent.enum == nil {
				return errorAt(e.Name.Pos, "no enum named '%s'", name)
			}
			et = ent.enum
		} else if ent := sc.names[name]; ent != nil && ent.enum != nil {
			et = ent.enum
		} else if e.Body == nil && fixed == nil && !scoped {
			ent := sc.lookup(name)
			if ent == nil || ent.enum == nil {
				return errorAt(e.Name.Pos, "ISO C++ forbids forward references to 'enum' types")
			}
			et = ent.enum
		}
	}
	if et == nil {
		label := name
		if name == "" {
			label = fmt.Sprintf("(unnamed enum at %s:%d:%d)", s.filename, e.Pos.Line, e.Pos.Column)
		}
		et = &enumType{name: label, qual: sc.qualify(label), scoped: scoped}
		et.scope = newScope(sc, scopeEnum, et.qual)
		if name != "" {
			sc.declare(name).enum = et
		}
	}
	if fixed != nil {
		et.underlying = fixed
	} else if scoped && et.underlying == nil {
		et.underlying = builtinType("int")
	}
	if e.Body != nil {
		if err := s.enumerators(sc, cls, et, e.Body.Tokens); err != nil {
			return err
		}
	}
	if !e.Tail.Terminated() {
		return errorAt(e.Tail.Pos, "expected ';' after enum")
	}
	if p.c.is(";") && p.c.i == len(p.c.toks)-1 {
		return nil
	}
	written := "enum " + et.name
	if e.Name != nil {
		written = "enum " + name
	}
	return s.declarators(p, &declSpec{pos: e.Pos, typedef: typedef, typ: enumRef(et, written)})
}

// enumerators declares the enumerators of a body and picks the underlying
// type of an unscoped enumeration without a fixed one.
func (s *sema) enumerators(sc *scope, cls *classCtx, et *enumType, toks []lexer.Token) error {
	p := s.parser(et.scope, cls, nil)
	var next, lo, hi int64
	for i, item := range splitTop(toks, false) {
		if len(item) == 0 {
			continue
		}
		if !isIdent(item[0]) {
			return errorAt(item[0].Pos, "expected identifier")
		}
		v := next
		rest := p.sub(item[1:])
		for {
			var a attrSet
			ok, err := rest.attribute(&a)
			if err != nil {
				return err
			}
			if a.err != nil {
				return a.err
			}
			if !ok {
				break
			}
		}
		if !rest.c.done() {
			if !rest.c.accept("=") {
				return errorAt(rest.c.peek().Pos, "expected '= constant-expression' or end of enumerator definition")
			}
			val, err := p.constant(rest.c.toks[rest.c.i:])
			if err != nil {
				return err
			}
			v = val
		}
		c := &constant{v: v, typ: enumRef(et, et.name)}
		et.scope.declare(item[0].Value).value = c
		if !et.scoped {
			sc.declare(item[0].Value).value = c
		}
		if i == 0 {
			lo, hi = v, v
		}
		lo, hi = min(lo, v), max(hi, v)
		next = v + 1
	}
	if et.underlying != nil {
		return nil
	}
	switch {
	case lo >= math.MinInt32 && hi <= math.MaxInt32:
		et.underlying = builtinType("int")
	case lo >= 0 && hi <= math.MaxUint32:
		et.underlying = builtinType("unsigned int")
	case s.target.LongSize == 8:
		et.underlying = builtinType("long")
	default:
		et.underlying = builtinType("long long")
	}
	return nil
}

// predeclare makes the common library typedefs available without
// headers, sized for the target.
func (s *sema) predeclare() {
	t := s.target
	long64 := "long"
	if t.LongSize != 8 {
		long64 = "long long"
	}
	ptrdiff := "int"
	switch {
	case t.PointerSize == 8 && t.LongSize == 8:
		ptrdiff = "long"
	case t.PointerSize == 8:
		ptrdiff = "long long"
	}
	types := map[string]string{
		"size_t":    "unsigned " + ptrdiff,
		"ssize_t":   ptrdiff,
		"ptrdiff_t": ptrdiff,
		"intptr_t":  ptrdiff,
		"uintptr_t": "unsigned " + ptrdiff,
		"intmax_t":  long64,
		"uintmax_t": "unsigned " + long64,
		"int8_t":    "signed char",
		"uint8_t":   "unsigned char",
		"int16_t":   "short",
		"uint16_t":  "unsigned short",
		"int32_t":   "int",
		"uint32_t":  "unsigned int",
		"int64_t":   long64,
		"uint64_t":  "unsigned " + long64,
	}
	std := newScope(s.global, scopeNamespace, "std")
	s.global.declare("std").ns = std
	for name, builtin := range types {
		s.global.declare(name).alias = builtinType(builtin)
		std.declare(name).alias = builtinType(builtin)
	}
	std.declare("nullptr_t").alias = builtinType("std::nullptr_t")
	byteEnum := &enumType{name: "byte", qual: "std::byte", scoped: true, underlying: builtinType("unsigned char")}
	byteEnum.scope = newScope(std, scopeEnum, byteEnum.qual)
	std.declare("byte").enum = byteEnum
}
