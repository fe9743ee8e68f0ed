package sig

import (
	"testing"

	"github.com/weave-lang/weave/internal/sexpr"
	"github.com/weave-lang/weave/internal/wtype"
)

func parseTop(t *testing.T, src string) (*sexpr.Node, *wtype.Env) {
	t.Helper()
	top, err := sexpr.Parse("t.s", src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	env, err := wtype.Collect(top)
	if err != nil {
		t.Fatalf("type collect error: %v", err)
	}
	return top, env
}

func TestCollectFunctionSignature(t *testing.T) {
	top, env := parseTop(t, `
		(fn add (params (a Int32) (b Int32)) (returns Int32)
			(body (return (+ a b)))
			(tests (test t (body (expect-eq (add 2 3) 5)))))
	`)
	table, decls, err := Collect(top, env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decls) != 1 || decls[0].Name != "add" {
		t.Fatalf("expected one decl named add, got %+v", decls)
	}
	sigv, ok := table.Lookup("add")
	if !ok {
		t.Fatal("expected add in fn table")
	}
	if !sigv.Return.Equal(wtype.Int32) || len(sigv.Params) != 2 {
		t.Fatalf("unexpected signature: %+v", sigv)
	}
}

func TestCollectMissingTestsIsError(t *testing.T) {
	top, env := parseTop(t, `(fn f (params) (returns Int32) (body (return 0)))`)
	if _, _, err := Collect(top, env); err == nil {
		t.Fatal("expected MissingTests error")
	}
}

func TestCollectEmptyTestsIsError(t *testing.T) {
	top, env := parseTop(t, `(fn f (params) (returns Int32) (body (return 0)) (tests))`)
	if _, _, err := Collect(top, env); err == nil {
		t.Fatal("expected MissingTests error for empty tests section")
	}
}

func TestEntryExemptFromTests(t *testing.T) {
	top, env := parseTop(t, `(entry main (params) (returns Int32) (body (return 0)))`)
	_, decls, err := Collect(top, env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decls[0].EmitName != "main" {
		t.Fatalf("expected entry to emit as 'main', got %q", decls[0].EmitName)
	}
}

func TestUnknownCalleeDefaultsToInt32(t *testing.T) {
	table := NewTable()
	sigv := table.Resolve("mystery", 3)
	if !sigv.Return.Equal(wtype.Int32) || len(sigv.Params) != 3 {
		t.Fatalf("unexpected default signature: %+v", sigv)
	}
	for _, p := range sigv.Params {
		if !p.Equal(wtype.Int32) {
			t.Fatalf("expected all-Int32 params, got %+v", sigv.Params)
		}
	}
}

func TestBuiltinOverridesUser(t *testing.T) {
	table := NewTable()
	table.DefineUser("arena_new", Signature{Return: wtype.Int32})
	installBuiltins(table)
	sigv, _ := table.Lookup("arena_new")
	if sigv.Return.Equal(wtype.Int32) {
		t.Fatal("expected builtin arena_new to override user-collected signature")
	}
}
