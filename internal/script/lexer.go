package script

import (
	"fmt"
	"unicode"
)

type tokenType int

const (
	tEOF tokenType = iota
	tIdent
	tKeyword
	tInt
	tFloat
	tString
	tSymbol
)

type token struct {
	Typ tokenType
	Val string
	Pos Pos
}

var keywords = map[string]bool{
	"select": true, "from": true, "where": true, "having": true,
	"into": true, "event": true, "and": true, "or": true, "not": true,
	"present": true, "true": true, "false": true, "null": true,
}

// lexer is a single-pass rune scanner over the statement source. It tracks
// line and column so every token carries a position for diagnostics.
type lexer struct {
	s    string
	pos  int
	line int
	col  int
}

func newLexer(s string) *lexer {
	return &lexer{s: s, line: 1, col: 1}
}

func (lx *lexer) peek() byte {
	if lx.pos >= len(lx.s) {
		return 0
	}
	return lx.s[lx.pos]
}

func (lx *lexer) peekN(n int) byte {
	p := lx.pos + n
	if p >= len(lx.s) {
		return 0
	}
	return lx.s[p]
}

func (lx *lexer) advance() byte {
	if lx.pos >= len(lx.s) {
		return 0
	}
	c := lx.s[lx.pos]
	lx.pos++
	if c == '\n' {
		lx.line++
		lx.col = 1
	} else {
		lx.col++
	}
	return c
}

func (lx *lexer) here() Pos {
	return Pos{Line: lx.line, Col: lx.col}
}

func (lx *lexer) skipWS() {
	for {
		c := lx.peek()
		if c == 0 {
			return
		}
		if unicode.IsSpace(rune(c)) {
			lx.advance()
			continue
		}
		// # line comment
		if c == '#' {
			for lx.peek() != 0 && lx.peek() != '\n' {
				lx.advance()
			}
			continue
		}
		return
	}
}

func (lx *lexer) nextToken() (token, error) {
	lx.skipWS()
	pos := lx.here()
	c := lx.peek()
	if c == 0 {
		return token{Typ: tEOF, Pos: pos}, nil
	}

	if c == '"' {
		return lx.lexString(pos)
	}
	if unicode.IsDigit(rune(c)) {
		return lx.lexNumber(pos)
	}
	if unicode.IsLetter(rune(c)) || c == '_' {
		return lx.lexIdent(pos)
	}
	return lx.lexSymbol(pos)
}

func (lx *lexer) lexString(pos Pos) (token, error) {
	lx.advance() // opening quote
	var out []byte
	for {
		c := lx.peek()
		if c == 0 || c == '\n' {
			return token{}, &ParseError{Pos: pos, Msg: "unterminated string literal"}
		}
		if c == '"' {
			lx.advance()
			return token{Typ: tString, Val: string(out), Pos: pos}, nil
		}
		if c == '\\' {
			lx.advance()
			switch e := lx.advance(); e {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			case '\\', '"':
				out = append(out, e)
			default:
				return token{}, &ParseError{Pos: pos, Msg: fmt.Sprintf("unknown escape \\%c", e)}
			}
			continue
		}
		out = append(out, lx.advance())
	}
}

func (lx *lexer) lexNumber(pos Pos) (token, error) {
	start := lx.pos
	isFloat := false
	for unicode.IsDigit(rune(lx.peek())) {
		lx.advance()
	}
	if lx.peek() == '.' && unicode.IsDigit(rune(lx.peekN(1))) {
		isFloat = true
		lx.advance()
		for unicode.IsDigit(rune(lx.peek())) {
			lx.advance()
		}
	}
	typ := tInt
	if isFloat {
		typ = tFloat
	}
	return token{Typ: typ, Val: lx.s[start:lx.pos], Pos: pos}, nil
}

func (lx *lexer) lexIdent(pos Pos) (token, error) {
	start := lx.pos
	for {
		c := lx.peek()
		if unicode.IsLetter(rune(c)) || unicode.IsDigit(rune(c)) || c == '_' {
			lx.advance()
			continue
		}
		break
	}
	val := lx.s[start:lx.pos]
	if keywords[val] {
		return token{Typ: tKeyword, Val: val, Pos: pos}, nil
	}
	return token{Typ: tIdent, Val: val, Pos: pos}, nil
}

var twoCharSymbols = map[string]bool{
	"==": true, "!=": true, "<=": true, ">=": true, "::": true,
}

func (lx *lexer) lexSymbol(pos Pos) (token, error) {
	c := lx.peek()
	two := string([]byte{c, lx.peekN(1)})
	if twoCharSymbols[two] {
		lx.advance()
		lx.advance()
		return token{Typ: tSymbol, Val: two, Pos: pos}, nil
	}
	switch c {
	case '.', ',', '(', ')', '[', ']', '$', '<', '>', '+', '-', '*', '/', '%':
		lx.advance()
		return token{Typ: tSymbol, Val: string(c), Pos: pos}, nil
	}
	return token{}, &ParseError{Pos: pos, Msg: fmt.Sprintf("unexpected character %q", c)}
}
