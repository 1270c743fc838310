package cxx

import "github.com/alecthomas/participle/v2/lexer"

// cursor walks a token slice. Reading past the end yields EOF tokens
// positioned at end.
type cursor struct {
	toks []lexer.Token
	i    int
	end  lexer.Position
}

func newCursor(toks []lexer.Token, end lexer.Position) *cursor {
	if len(toks) > 0 {
		last := toks[len(toks)-1]
		end = last.Pos
		end.Column += len(last.Value)
		end.Offset += len(last.Value)
	}
	return &cursor{toks: toks, end: end}
}

func (c *cursor) peekAt(n int) lexer.Token {
	if c.i+n < len(c.toks) {
		return c.toks[c.i+n]
	}
	return lexer.Token{Type: lexer.EOF, Pos: c.end}
}

func (c *cursor) peek() lexer.Token { return c.peekAt(0) }

func (c *cursor) next() lexer.Token {
	t := c.peek()
	if c.i < len(c.toks) {
		c.i++
	}
	return t
}

func (c *cursor) done() bool { return c.i >= len(c.toks) }

func (c *cursor) is(p string) bool { return isPunct(c.peek(), p) }

func (c *cursor) isWord(w string) bool {
	t := c.peek()
	return isIdent(t) && t.Value == w
}

func (c *cursor) accept(p string) bool {
	if c.is(p) {
		c.i++
		return true
	}
	return false
}

func (c *cursor) acceptWord(w string) bool {
	if c.isWord(w) {
		c.i++
		return true
	}
	return false
}

func (c *cursor) expect(p string) error {
	if !c.accept(p) {
		return errorAt(c.peek().Pos, "expected '%s'", p)
	}
	return nil
}

// group returns the tokens inside the balanced group opening at the cursor
// and moves past its closing token.
func (c *cursor) group() ([]lexer.Token, error) {
	open := c.peek()
	close := matchClose(c.toks, c.i)
	if close < 0 {
		return nil, errorAt(c.end, "expected '%s'", closer(open.Value))
	}
	inner := c.toks[c.i+1 : close]
	c.i = close + 1
	return inner, nil
}

// until collects tokens up to, not including, the first depth-zero token
// for which stop is true.
func (c *cursor) until(stop func(lexer.Token) bool) []lexer.Token {
	start := c.i
	depth := 0
	for !c.done() {
		t := c.peek()
		if depth == 0 && stop(t) {
			break
		}
		if t.Type == punctType {
			switch t.Value {
			case "(", "[", "{":
				depth++
			case "[[":
				depth += 2
			case ")", "]", "}":
				depth--
			case "]]":
				depth -= 2
			}
		}
		if depth < 0 {
			break
		}
		c.i++
	}
	return c.toks[start:c.i]
}

func closer(open string) string {
	switch open {
	case "{":
		return "}"
	case "(":
		return ")"
	case "[":
		return "]"
	case "[[":
		return "]]"
	case "<":
		return ">"
	}
	return open
}

// splitTop splits toks at depth-zero commas. With angles set, commas
// inside template argument lists are not split points.
func splitTop(toks []lexer.Token, angles bool) [][]lexer.Token {
	var out [][]lexer.Token
	depth, start := 0, 0
	for i, t := range toks {
		if t.Type != punctType {
			continue
		}
		switch t.Value {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
		case "<":
			if angles {
				depth++
			}
		case ">":
			if angles {
				depth--
			}
		case ",":
			if depth == 0 {
				out = append(out, toks[start:i])
				start = i + 1
			}
		}
	}
	return append(out, toks[start:])
}
