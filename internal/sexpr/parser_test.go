package sexpr

import "testing"

func TestParseSimpleForm(t *testing.T) {
	top, err := Parse("t.s", `(fn add (params (a Int32) (b Int32)) (returns Int32) (body (return (+ a b))))`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if top.Kind != List || top.Len() != 1 {
		t.Fatalf("expected one top-level form, got %d", top.Len())
	}
	fn := top.Nth(0)
	if !fn.HeadIs("fn") {
		t.Fatalf("expected (fn ...), got head %v", fn.Head())
	}
	if fn.Nth(1).Text != "add" {
		t.Fatalf("expected function name 'add', got %q", fn.Nth(1).Text)
	}
}

func TestParseStringLiteral(t *testing.T) {
	top, err := Parse("t.s", `(include "a.s")`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	inc := top.Nth(0)
	path := inc.Nth(1)
	if path.Kind != Str || path.Text != "a.s" {
		t.Fatalf("expected string node 'a.s', got %+v", path)
	}
}

func TestParseUnexpectedEOFInsideList(t *testing.T) {
	_, err := Parse("t.s", `(fn add (params)`)
	if err == nil {
		t.Fatal("expected an error for unterminated list")
	}
}

func TestParseUnexpectedToken(t *testing.T) {
	_, err := Parse("t.s", `(fn add))`)
	if err == nil {
		t.Fatal("expected an error for stray ')'")
	}
}

func TestParseNestedLists(t *testing.T) {
	top, err := Parse("t.s", `(type Pair (struct (x Int32) (y Int32)))`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	typeForm := top.Nth(0)
	structForm := typeForm.Nth(2)
	if !structForm.HeadIs("struct") {
		t.Fatalf("expected (struct ...), got %v", structForm.Head())
	}
	if structForm.Len() != 3 {
		t.Fatalf("expected 2 fields + head, got %d children", structForm.Len())
	}
}
