package cxx

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// block is a sequence of declarations sharing a declaration context: the
// translation unit, a namespace body or a linkage-specification body.
type block struct {
	items []item
}

// item is either one declaration or a nested namespace-like block.
type item struct {
	toks []lexer.Token

	nested    *block
	namespace []string // names of a namespace block, nil when anonymous
	inline    bool
	linkage   bool // extern "C" { ... }
	pos       lexer.Position
}

// splitter cuts a token stream at declaration boundaries. Syntax problems it
// can see on its own, such as a stray '}', are reported through errorf.
type splitter struct {
	eof    lexer.Position
	errorf func(pos lexer.Position, format string, args ...any)
}

func (s *splitter) split(toks []lexer.Token) *block {
	b := &block{}
	for i := 0; i < len(toks); {
		tok := toks[i]
		if isPunct(tok, "}") {
			s.errorf(tok.Pos, "extraneous closing brace ('}')")
			i++
			continue
		}
		if next, it, ok := s.namespaceBlock(toks, i); ok {
			b.items = append(b.items, it)
			i = next
			continue
		}
		end := declEnd(toks, i, false)
		if end <= i {
			end = i + 1
		}
		b.items = append(b.items, item{toks: toks[i:end], pos: tok.Pos})
		i = end
	}
	return b
}

// namespaceBlock recognizes namespace definitions and linkage blocks at i.
func (s *splitter) namespaceBlock(toks []lexer.Token, i int) (int, item, bool) {
	it := item{pos: toks[i].Pos}
	j := i
	switch {
	case at(toks, j, "inline") && at(toks, j+1, "namespace"):
		it.inline = true
		j += 2
	case at(toks, j, "namespace"):
		j++
	case at(toks, j, "extern") && j+1 < len(toks) && toks[j+1].Type == stringType && punctAt(toks, j+2, "{"):
		it.linkage = true
		j += 2
	default:
		return 0, item{}, false
	}
	if !it.linkage {
		for j < len(toks) && (isIdent(toks[j]) || isPunct(toks[j], "::")) {
			if isIdent(toks[j]) && toks[j].Value != "inline" {
				it.namespace = append(it.namespace, toks[j].Value)
			}
			j++
		}
		for j < len(toks) && isPunct(toks[j], "[[") {
			j = skipGroup(toks, j)
		}
		if !punctAt(toks, j, "{") {
			// namespace alias or malformed; let the declaration path see it
			return 0, item{}, false
		}
	}
	close := matchClose(toks, j)
	var body []lexer.Token
	next := close + 1
	if close < 0 {
		s.errorf(s.eof, "expected '}'")
		body = toks[j+1:]
		next = len(toks)
	} else {
		body = toks[j+1 : close]
	}
	it.nested = s.split(body)
	return next, it, true
}

// members splits the inside of a class body into member declarations.
func (s *splitter) members(toks []lexer.Token) [][]lexer.Token {
	var out [][]lexer.Token
	for i := 0; i < len(toks); {
		if isPunct(toks[i], "}") {
			s.errorf(toks[i].Pos, "extraneous closing brace ('}')")
			i++
			continue
		}
		end := declEnd(toks, i, true)
		if end <= i {
			end = i + 1
		}
		out = append(out, toks[i:end])
		i = end
	}
	return out
}

// declEnd returns the index just past the declaration starting at i: after
// its ';', after a function body, after a ':' that ends an access
// specifier, or where the next declaration visibly begins after a '}' that
// lacks its ';'.
func declEnd(toks []lexer.Token, i int, member bool) int {
	var (
		depth    int
		parens   []bool // true for groups opened by an attribute-like keyword
		sawCall  bool
		ctorInit bool
		assign   bool
	)
	for j := i; j < len(toks); j++ {
		t := toks[j]
		if t.Type != punctType {
			continue
		}
		switch t.Value {
		case "(":
			attr := j > i && (isAttrKeyword(toks[j-1]) || (len(parens) > 0 && parens[len(parens)-1]))
			parens = append(parens, attr)
			depth++
		case ")":
			depth--
			attr := false
			if len(parens) > 0 {
				attr = parens[len(parens)-1]
				parens = parens[:len(parens)-1]
			}
			if depth == 0 && !attr {
				sawCall = true
			}
		case "[":
			depth++
		case "]":
			depth--
		case "[[":
			depth += 2
		case "]]":
			depth -= 2
		case "{":
			if depth == 0 && sawCall && !assign && !(ctorInit && j > i && (isIdent(toks[j-1]) || isPunct(toks[j-1], ">"))) {
				if end := matchClose(toks, j); end >= 0 {
					return end + 1
				}
				return len(toks)
			}
			depth++
		case "}":
			if depth == 0 {
				return j
			}
			depth--
			if depth == 0 && beginsDecl(toks, j+1) {
				return j + 1
			}
		case ";":
			if depth == 0 {
				return j + 1
			}
		case ":":
			if depth == 0 && member && j == i+1 && isAccessKeyword(toks[i]) {
				return j + 1
			}
			if depth == 0 && sawCall {
				ctorInit = true
			}
		case "=":
			if depth == 0 && !(j > i && at(toks, j-1, "operator")) {
				assign = true
			}
		}
	}
	return len(toks)
}

// beginsDecl reports whether toks[i] can only start a new declaration.
func beginsDecl(toks []lexer.Token, i int) bool {
	if i >= len(toks) {
		return false
	}
	t := toks[i]
	if isPunct(t, "}") {
		return true
	}
	if !isIdent(t) {
		return false
	}
	switch t.Value {
	case "struct", "class", "union", "enum", "namespace", "template", "typedef",
		"using", "static_assert", "public", "private", "protected", "friend":
		return true
	}
	return false
}

func isAttrKeyword(t lexer.Token) bool {
	if !isIdent(t) {
		return false
	}
	switch t.Value {
	case "__attribute__", "__attribute", "alignas", "_Alignas", "__declspec",
		"alignof", "sizeof", "decltype", "noexcept", "static_assert", "__alignof__":
		return true
	}
	return false
}

func isAccessKeyword(t lexer.Token) bool {
	return isIdent(t) && (t.Value == "public" || t.Value == "private" || t.Value == "protected")
}

func at(toks []lexer.Token, i int, ident string) bool {
	return i >= 0 && i < len(toks) && isIdent(toks[i]) && toks[i].Value == ident
}

func punctAt(toks []lexer.Token, i int, p string) bool {
	return i >= 0 && i < len(toks) && isPunct(toks[i], p)
}

// matchClose returns the index of the token closing the group opened at i,
// or -1 when the stream ends first.
func matchClose(toks []lexer.Token, i int) int {
	open := toks[i].Value
	var close string
	switch open {
	case "{":
		close = "}"
	case "(":
		close = ")"
	case "[":
		close = "]"
	case "[[":
		close = "]]"
	default:
		return -1
	}
	depth := 0
	for j := i; j < len(toks); j++ {
		switch {
		case isPunct(toks[j], open):
			depth++
		case isPunct(toks[j], close):
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}

func skipGroup(toks []lexer.Token, i int) int {
	if end := matchClose(toks, i); end >= 0 {
		return end + 1
	}
	return len(toks)
}

// replay feeds already lexed tokens back to the parser, so a declaration
// keeps the positions it had in the whole translation unit.
type replay struct {
	toks []lexer.Token
	end  lexer.Position
}

func (r *replay) Next() (lexer.Token, error) {
	if len(r.toks) == 0 {
		return lexer.EOFToken(r.end), nil
	}
	tok := r.toks[0]
	r.toks = r.toks[1:]
	return tok, nil
}

// parseDecl parses exactly one declaration from toks.
func parseDecl(toks []lexer.Token) (*Decl, error) {
	end := newCursor(toks, lexer.Position{}).end
	lex, err := lexer.Upgrade(&replay{toks: toks, end: end})
	if err != nil {
		return nil, err
	}
	return declParser.ParseFromLexer(lex)
}

// joinTokens spells tokens back with single spaces where C++ needs them.
func joinTokens(toks []lexer.Token) string {
	var sb strings.Builder
	for i, t := range toks {
		if i > 0 && needsSpace(toks[i-1], t) {
			sb.WriteByte(' ')
		}
		sb.WriteString(t.Value)
	}
	return sb.String()
}

func needsSpace(prev, cur lexer.Token) bool {
	word := func(t lexer.Token) bool {
		return t.Type == identType || t.Type == numberType || t.Type == stringType || t.Type == charType
	}
	if word(prev) && word(cur) {
		return true
	}
	if isPunct(prev, ",") {
		return true
	}
	return false
}
