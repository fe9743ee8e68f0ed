package sexpr

import (
	"github.com/weave-lang/weave/internal/diag"
	"github.com/weave-lang/weave/internal/lexer"
	"github.com/weave-lang/weave/internal/token"
)

// Parser consumes a token stream and builds a Node tree. It does not
// interpret atoms — numeric vs. identifier vs. type name is decided by
// later phases (spec.md §4.2).
type Parser struct {
	toks []token.Token
	pos  int
}

// Parse tokenizes and parses file's source into a synthetic top-level
// list node containing every parsed top-level form.
func Parse(file, src string) (*Node, error) {
	toks, err := lexer.Tokenize(file, src)
	if err != nil {
		return nil, err
	}
	return NewParser(toks).ParseTop()
}

// NewParser builds a Parser over an already-tokenized stream.
func NewParser(toks []token.Token) *Parser {
	return &Parser{toks: toks}
}

func (p *Parser) cur() token.Token {
	return p.toks[p.pos]
}

func (p *Parser) advance() token.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

// ParseTop parses every top-level form into a synthetic list node.
func (p *Parser) ParseTop() (*Node, error) {
	pos := p.cur().Pos
	var forms []*Node
	for p.cur().Kind != token.EOF {
		if p.cur().Kind == token.RPAREN {
			return nil, diag.New(p.cur().Pos, diag.SyntaxError, "unexpected ')'")
		}
		n, err := p.parseForm()
		if err != nil {
			return nil, err
		}
		forms = append(forms, n)
	}
	return NewList(forms, pos), nil
}

// parseForm parses a single atom, string, or parenthesized list.
func (p *Parser) parseForm() (*Node, error) {
	t := p.cur()
	switch t.Kind {
	case token.EOF:
		return nil, diag.New(t.Pos, diag.SyntaxError, "unexpected end of file")
	case token.RPAREN:
		return nil, diag.New(t.Pos, diag.SyntaxError, "unexpected ')'")
	case token.ATOM:
		p.advance()
		return NewAtom(t.Text, t.Pos), nil
	case token.STRING:
		p.advance()
		return NewStr(t.Text, t.Pos), nil
	case token.LPAREN:
		return p.parseList()
	default:
		return nil, diag.New(t.Pos, diag.SyntaxError, "unexpected token")
	}
}

func (p *Parser) parseList() (*Node, error) {
	open := p.advance() // consume '('
	var children []*Node
	for {
		switch p.cur().Kind {
		case token.RPAREN:
			p.advance()
			return NewList(children, open.Pos), nil
		case token.EOF:
			return nil, diag.New(open.Pos, diag.SyntaxError, "unexpected end of file inside list opened here")
		default:
			n, err := p.parseForm()
			if err != nil {
				return nil, err
			}
			children = append(children, n)
		}
	}
}
