package cxx

import (
	"fmt"

	"github.com/alecthomas/participle/v2/lexer"
)

var (
	cxxLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r\n\f\v]+`},
		{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
		{Name: "LineComment", Pattern: `//[^\n]*`},
		{Name: "Preprocessor", Pattern: `#(?:\\\n|[^\n])*`},
		{Name: "String", Pattern: `(?:u8|u|U|L)?"(?:\\.|[^"\\\n])*"`},
		{Name: "Char", Pattern: `(?:u8|u|U|L)?'(?:\\.|[^'\\\n])*'`},
		{Name: "Number", Pattern: `(?:0[xX][0-9A-Fa-f']+|0[bB][01']+|\.?[0-9][0-9']*(?:\.[0-9']*)?(?:[eEpP][+-]?[0-9]+)?)[uUlLfFzZ]*`},
		{Name: "Ident", Pattern: `[A-Za-z_$][A-Za-z0-9_$]*`},
		{Name: "Punct", Pattern: `\[\[|\]\]|::|->\*?|\.\.\.|<=>|<<=|>>=|&&|\|\||<<|==|!=|<=|>=|\+\+|--|[-+*/%&|^!=<>]=?|[][(){};:,.?~@]`},
		{Name: "Other", Pattern: `.`},
	})

	elided = []string{"Whitespace", "BlockComment", "LineComment", "Preprocessor"}

	identType  = mustTokenType("Ident")
	numberType = mustTokenType("Number")
	stringType = mustTokenType("String")
	charType   = mustTokenType("Char")
	punctType  = mustTokenType("Punct")
)

func mustTokenType(name string) lexer.TokenType {
	symbols := cxxLexer.Symbols()
	tt, ok := symbols[name]
	if !ok {
		panic(fmt.Sprintf("token %s not defined", name))
	}
	return tt
}

// tokenize lexes src and drops whitespace, comments and preprocessor lines.
func tokenize(filename, src string) ([]lexer.Token, error) {
	lex, err := cxxLexer.LexString(filename, src)
	if err != nil {
		return nil, err
	}
	skip := make(map[lexer.TokenType]bool, len(elided))
	for _, name := range elided {
		skip[mustTokenType(name)] = true
	}

	var toks []lexer.Token
	for {
		tok, err := lex.Next()
		if err != nil {
			return nil, err
		}
		if tok.EOF() {
			return toks, nil
		}
		if skip[tok.Type] {
			continue
		}
		toks = append(toks, tok)
	}
}

func isIdent(tok lexer.Token) bool { return tok.Type == identType }

func isPunct(tok lexer.Token, v string) bool {
	return tok.Type == punctType && tok.Value == v
}
