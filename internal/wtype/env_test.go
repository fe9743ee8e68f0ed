package wtype

import (
	"testing"

	"github.com/weave-lang/weave/internal/sexpr"
)

func parseTop(t *testing.T, src string) *sexpr.Node {
	t.Helper()
	top, err := sexpr.Parse("t.s", src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return top
}

func TestCollectRecordAndAlias(t *testing.T) {
	top := parseTop(t, `
		(type Pair (struct (x Int32) (y Int32)))
		(type IntPtr (alias (ptr Int32)))
	`)
	env, err := Collect(top)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec, ok := env.LookupRecord("Pair")
	if !ok {
		t.Fatal("expected record Pair")
	}
	if len(rec.Fields) != 2 || rec.Fields[0].Name != "x" || rec.Fields[1].Name != "y" {
		t.Fatalf("unexpected fields: %+v", rec.Fields)
	}
	if rec.FieldIndex("y") != 1 {
		t.Fatalf("expected field index 1 for y, got %d", rec.FieldIndex("y"))
	}

	got := env.ParseTypeNode(sexpr.NewAtom("IntPtr", top.Pos))
	want := Pointer(Int32)
	if !got.Equal(want) {
		t.Fatalf("alias resolution: got %v want %v", got, want)
	}
}

func TestCollectDuplicateFieldIsError(t *testing.T) {
	top := parseTop(t, `(type Bad (struct (x Int32) (x Int32)))`)
	if _, err := Collect(top); err == nil {
		t.Fatal("expected duplicate field error")
	}
}

func TestCollectRecursesIntoModule(t *testing.T) {
	top := parseTop(t, `(module (type Pair (struct (x Int32))))`)
	env, err := Collect(top)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := env.LookupRecord("Pair"); !ok {
		t.Fatal("expected record Pair collected from inside (module ...)")
	}
}

func TestParseTypeNodeOpaqueHandles(t *testing.T) {
	env := NewEnv()
	for _, name := range []string{"String", "Buffer", "ArrayOfInt32"} {
		got := env.ParseTypeNode(sexpr.NewAtom(name, sexpr.Node{}.Pos))
		if !got.Equal(PointerToByte) {
			t.Errorf("%s: got %v want PointerToByte", name, got)
		}
	}
}

func TestTypeEquality(t *testing.T) {
	a := Pointer(Record("Pair"))
	b := Pointer(Record("Pair"))
	c := Pointer(Record("Other"))
	if !a.Equal(b) {
		t.Error("expected equal pointer-to-record types to be equal")
	}
	if a.Equal(c) {
		t.Error("expected different record names to be unequal")
	}
}
