package cxx

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Span holds raw tokens that the semantic pass interprets itself.
type Span struct {
	Pos    lexer.Position
	Tokens []lexer.Token
}

// Braced is a balanced { ... } group; Tokens excludes the braces.
type Braced struct{ Span }

// Parse implements participle.Parseable for Braced.
func (b *Braced) Parse(lex *lexer.PeekingLexer) error {
	if !isPunct(*lex.Peek(), "{") {
		return participle.NextMatch
	}
	pos := lex.Peek().Pos
	toks, err := takeBalanced(lex, "{", "}")
	if err != nil {
		return err
	}
	b.Pos, b.Tokens = pos, toks
	return nil
}

// Parens is a balanced ( ... ) group; Tokens excludes the parentheses.
type Parens struct{ Span }

// Parse implements participle.Parseable for Parens.
func (p *Parens) Parse(lex *lexer.PeekingLexer) error {
	if !isPunct(*lex.Peek(), "(") {
		return participle.NextMatch
	}
	pos := lex.Peek().Pos
	toks, err := takeBalanced(lex, "(", ")")
	if err != nil {
		return err
	}
	p.Pos, p.Tokens = pos, toks
	return nil
}

// Angled is a template parameter or argument list < ... >.
type Angled struct{ Span }

// Parse implements participle.Parseable for Angled.
func (a *Angled) Parse(lex *lexer.PeekingLexer) error {
	if !isPunct(*lex.Peek(), "<") {
		return participle.NextMatch
	}
	a.Pos = lex.Next().Pos
	angles, parens := 1, 0
	for {
		tok := lex.Next()
		if tok.EOF() {
			return participle.Errorf(tok.Pos, "expected '>'")
		}
		if tok.Type == punctType {
			switch tok.Value {
			case "(", "[", "{":
				parens++
			case ")", "]", "}":
				parens--
			case "<":
				if parens == 0 {
					angles++
				}
			case ">":
				if parens == 0 {
					angles--
					if angles == 0 {
						return nil
					}
				}
			}
		}
		a.Tokens = append(a.Tokens, *tok)
	}
}

// TypeTokens is a type written up to the next '{' or ';', as in the fixed
// underlying type of an enum.
type TypeTokens struct{ Span }

// Parse implements participle.Parseable for TypeTokens.
func (t *TypeTokens) Parse(lex *lexer.PeekingLexer) error {
	t.Pos = lex.Peek().Pos
	for {
		tok := lex.Peek()
		if tok.EOF() || isPunct(*tok, "{") || isPunct(*tok, ";") {
			break
		}
		t.Tokens = append(t.Tokens, *lex.Next())
	}
	if len(t.Tokens) == 0 {
		return participle.Errorf(t.Pos, "expected a type")
	}
	return nil
}

// Tail is everything left in the declaration, possibly nothing. A tail that
// does not end in ';' or a function body is reported by the semantic pass.
type Tail struct{ Span }

// Parse implements participle.Parseable for Tail.
func (t *Tail) Parse(lex *lexer.PeekingLexer) error {
	t.Pos = lex.Peek().Pos
	for tok := lex.Peek(); !tok.EOF(); tok = lex.Peek() {
		t.Tokens = append(t.Tokens, *lex.Next())
	}
	return nil
}

// Terminated reports whether the declaration was closed by ';' or a body.
func (t *Tail) Terminated() bool {
	if len(t.Tokens) == 0 {
		return false
	}
	last := t.Tokens[len(t.Tokens)-1]
	return isPunct(last, ";") || isPunct(last, "}")
}

// Rest is a declaration none of the structured alternatives describe: a
// member or variable declaration, a function, a using-directive.
type Rest struct{ Tail }

// Parse implements participle.Parseable for Rest.
func (r *Rest) Parse(lex *lexer.PeekingLexer) error {
	tok := lex.Peek()
	if tok.EOF() {
		return participle.NextMatch
	}
	if tok.Type == identType {
		switch tok.Value {
		case "struct", "class", "union", "enum", "typedef", "template", "static_assert":
			return participle.NextMatch
		}
	}
	return r.Tail.Parse(lex)
}

// Attribute is one attribute-specifier: alignas(...), [[...]],
// __attribute__((...)) or __declspec(...).
type Attribute struct {
	Pos    lexer.Position
	Kind   string
	Tokens []lexer.Token
}

// Parse implements participle.Parseable for Attribute.
func (a *Attribute) Parse(lex *lexer.PeekingLexer) error {
	tok := *lex.Peek()
	a.Pos = tok.Pos
	var err error
	switch {
	case isPunct(tok, "[["):
		a.Kind = "std"
		a.Tokens, err = takeBalanced(lex, "[[", "]]")
	case isIdent(tok) && (tok.Value == "alignas" || tok.Value == "_Alignas"):
		lex.Next()
		a.Kind = "alignas"
		a.Tokens, err = takeParens(lex)
	case isIdent(tok) && (tok.Value == "__attribute__" || tok.Value == "__attribute"):
		lex.Next()
		a.Kind = "gnu"
		a.Tokens, err = takeParens(lex)
		if err == nil && len(a.Tokens) >= 2 && isPunct(a.Tokens[0], "(") && isPunct(a.Tokens[len(a.Tokens)-1], ")") {
			a.Tokens = a.Tokens[1 : len(a.Tokens)-1]
		}
	case isIdent(tok) && tok.Value == "__declspec":
		lex.Next()
		a.Kind = "declspec"
		a.Tokens, err = takeParens(lex)
	default:
		return participle.NextMatch
	}
	return err
}

func takeParens(lex *lexer.PeekingLexer) ([]lexer.Token, error) {
	if tok := lex.Peek(); !isPunct(*tok, "(") {
		return nil, participle.Errorf(tok.Pos, "expected '('")
	}
	return takeBalanced(lex, "(", ")")
}

// takeBalanced consumes an open token, everything up to its matching close
// token, and the close token. It returns the tokens in between.
func takeBalanced(lex *lexer.PeekingLexer, open, close string) ([]lexer.Token, error) {
	lex.Next()
	var out []lexer.Token
	depth := 1
	for {
		tok := lex.Next()
		if tok.EOF() {
			return nil, participle.Errorf(tok.Pos, "expected '%s'", close)
		}
		switch {
		case isPunct(*tok, open):
			depth++
		case isPunct(*tok, close):
			depth--
			if depth == 0 {
				return out, nil
			}
		}
		out = append(out, *tok)
	}
}
