// Package lexer tokenizes weave source text into the stream of tokens the
// parser consumes, per spec.md §4.1.
package lexer

import (
	"strings"

	"github.com/weave-lang/weave/internal/diag"
	"github.com/weave-lang/weave/internal/token"
)

// delimiters are the characters that terminate an atom without being part
// of it: parens, the string quote, and the comment marker.
const delimiters = "()\";"

// Lexer scans a single source buffer into tokens.
type Lexer struct {
	file string
	src  string
	pos  int
	line int
	col  int
}

// New creates a Lexer over src, attributing all positions to file.
func New(file, src string) *Lexer {
	return &Lexer{file: file, src: src, pos: 0, line: 1, col: 1}
}

// Tokenize scans the entire buffer and returns every token up to and
// including a trailing EOF, or the first error encountered.
func Tokenize(file, src string) ([]token.Token, error) {
	l := New(file, src)
	var toks []token.Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks, nil
		}
	}
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) advance() byte {
	c := l.src[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return c
}

func (l *Lexer) here() token.Position {
	return token.Position{File: l.file, Line: l.line, Col: l.col}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func isDelimiter(c byte) bool {
	return c == 0 || isSpace(c) || strings.IndexByte(delimiters, c) >= 0
}

func (l *Lexer) skipSpaceAndComments() {
	for l.pos < len(l.src) {
		c := l.peek()
		if isSpace(c) {
			l.advance()
			continue
		}
		if c == ';' {
			for l.pos < len(l.src) && l.peek() != '\n' {
				l.advance()
			}
			continue
		}
		break
	}
}

// Next scans and returns the single next token.
func (l *Lexer) Next() (token.Token, error) {
	l.skipSpaceAndComments()
	if l.pos >= len(l.src) {
		return token.Token{Kind: token.EOF, Pos: l.here()}, nil
	}

	pos := l.here()
	c := l.peek()

	switch c {
	case '(':
		l.advance()
		return token.Token{Kind: token.LPAREN, Pos: pos}, nil
	case ')':
		l.advance()
		return token.Token{Kind: token.RPAREN, Pos: pos}, nil
	case '"':
		return l.lexString(pos)
	default:
		return l.lexAtom(pos)
	}
}

func (l *Lexer) lexString(pos token.Position) (token.Token, error) {
	l.advance() // opening quote
	var sb strings.Builder
	for {
		if l.pos >= len(l.src) {
			return token.Token{}, diag.New(pos, diag.SyntaxError, "unterminated string literal")
		}
		c := l.advance()
		if c == '"' {
			return token.Token{Kind: token.STRING, Text: sb.String(), Pos: pos}, nil
		}
		if c == '\\' {
			if l.pos >= len(l.src) {
				return token.Token{}, diag.New(pos, diag.SyntaxError, "unterminated string literal")
			}
			esc := l.advance()
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			default:
				sb.WriteByte(esc)
			}
			continue
		}
		sb.WriteByte(c)
	}
}

func (l *Lexer) lexAtom(pos token.Position) (token.Token, error) {
	start := l.pos
	for l.pos < len(l.src) && !isDelimiter(l.peek()) {
		l.advance()
	}
	return token.Token{Kind: token.ATOM, Text: l.src[start:l.pos], Pos: pos}, nil
}
