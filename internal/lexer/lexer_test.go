package lexer

import (
	"testing"

	"github.com/weave-lang/weave/internal/token"
)

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestTokenizeBasicForm(t *testing.T) {
	toks, err := Tokenize("t.s", `(fn add (params (a Int32) (b Int32)) (returns Int32))`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toks[len(toks)-1].Kind != token.EOF {
		t.Fatalf("expected trailing EOF, got %v", toks[len(toks)-1].Kind)
	}
	got := kinds(toks)
	want := []token.Kind{
		token.LPAREN, token.ATOM, token.ATOM, token.LPAREN, token.ATOM,
		token.LPAREN, token.ATOM, token.ATOM, token.RPAREN,
		token.LPAREN, token.ATOM, token.ATOM, token.RPAREN,
		token.RPAREN, token.LPAREN, token.ATOM, token.ATOM, token.RPAREN,
		token.RPAREN, token.EOF,
	}
	if len(got) != len(want) {
		t.Fatalf("token count mismatch: got %d want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %v want %v", i, got[i], want[i])
		}
	}
}

func TestTokenizeStringEscapes(t *testing.T) {
	toks, err := Tokenize("t.s", `"a\nb\tc\\d\"e"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toks[0].Kind != token.STRING {
		t.Fatalf("expected STRING, got %v", toks[0].Kind)
	}
	want := "a\nb\tc\\d\"e"
	if toks[0].Text != want {
		t.Fatalf("got %q want %q", toks[0].Text, want)
	}
}

func TestTokenizeUnterminatedString(t *testing.T) {
	_, err := Tokenize("t.s", `"unterminated`)
	if err == nil {
		t.Fatal("expected an error for unterminated string")
	}
}

func TestTokenizeLineComments(t *testing.T) {
	toks, err := Tokenize("t.s", "; a comment\n(atom) ; trailing\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := kinds(toks)
	want := []token.Kind{token.LPAREN, token.ATOM, token.RPAREN, token.EOF}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestPositionsTrackLineAndColumn(t *testing.T) {
	toks, err := Tokenize("t.s", "(a\n  b)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// toks: LPAREN(1,1) ATOM "a"(1,2) ATOM "b"(2,3) RPAREN(2,4) EOF
	if toks[1].Pos.Line != 1 || toks[1].Pos.Col != 2 {
		t.Errorf("atom 'a' position = %+v, want line 1 col 2", toks[1].Pos)
	}
	if toks[2].Pos.Line != 2 || toks[2].Pos.Col != 3 {
		t.Errorf("atom 'b' position = %+v, want line 2 col 3", toks[2].Pos)
	}
}
