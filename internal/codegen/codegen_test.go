package codegen

import (
	"strings"
	"testing"

	"github.com/weave-lang/weave/internal/sexpr"
	"github.com/weave-lang/weave/internal/sig"
	"github.com/weave-lang/weave/internal/wtype"
)

// compile runs the pipeline a fully-resolved program goes through before
// reaching codegen.Generate: parse, collect types, collect signatures.
func compile(t *testing.T, src string) (*Context, []*sig.Decl) {
	t.Helper()
	top, err := sexpr.Parse("t.s", src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	tenv, err := wtype.Collect(top)
	if err != nil {
		t.Fatalf("type collect error: %v", err)
	}
	table, decls, err := sig.Collect(top, tenv)
	if err != nil {
		t.Fatalf("signature collect error: %v", err)
	}
	ctx, err := Generate(tenv, table, decls)
	if err != nil {
		t.Fatalf("codegen error: %v", err)
	}
	return ctx, decls
}

func TestEntryEmitsMain(t *testing.T) {
	ctx, _ := compile(t, `(entry main (params) (returns Int32) (body (return 0)))`)
	ir := ctx.Module.String()
	if !strings.Contains(ir, "define i32 @main()") {
		t.Fatalf("expected a @main definition, got:\n%s", ir)
	}
	if !strings.Contains(ir, "ret i32 0") {
		t.Fatalf("expected an explicit `ret i32 0`, got:\n%s", ir)
	}
}

func TestRecordMakeMallocsStorage(t *testing.T) {
	ctx, _ := compile(t, `
		(type Pair (struct (x Int32) (y Int32)))
		(fn make-pair (params) (returns (ptr Pair))
			(body
				(let p (ptr Pair) (make Pair (x 1) (y 2)))
				(return p))
			(tests (test smoke (body (expect-true 1)))))
	`)
	ir := ctx.Module.String()
	if !strings.Contains(ir, "%Pair = type { i32, i32 }") {
		t.Fatalf("expected %%Pair struct type, got:\n%s", ir)
	}
	if !strings.Contains(ir, "call i8* @malloc") {
		t.Fatalf("expected make to malloc storage, got:\n%s", ir)
	}
}

func TestAddrOfAndLoadRoundTrip(t *testing.T) {
	ctx, _ := compile(t, `
		(fn identity (params (n Int32)) (returns Int32)
			(body
				(let p (ptr Int32) (addr-of Int32 n))
				(return (load Int32 p)))
			(tests (test smoke (body (expect-true 1)))))
	`)
	ir := ctx.Module.String()
	if !strings.Contains(ir, "alloca i32") {
		t.Fatalf("expected n to be materialized into a stack slot, got:\n%s", ir)
	}
	if !strings.Contains(ir, "load i32") {
		t.Fatalf("expected (load p) to emit a load instruction, got:\n%s", ir)
	}
}

func TestIfStmtBothArmsReturnElidesJoin(t *testing.T) {
	ctx, _ := compile(t, `
		(fn pick (params (n Int32)) (returns Int32)
			(body
				(if-stmt (> n 0)
					(do (return 1))
					(do (return 0))))
			(tests (test smoke (body (expect-true 1)))))
	`)
	ir := ctx.Module.String()
	if strings.Count(ir, "ret i32") < 2 {
		t.Fatalf("expected both branch arms to keep their own ret, got:\n%s", ir)
	}
	if strings.Contains(ir, "if.end") {
		t.Fatalf("expected no join block when both arms return, got:\n%s", ir)
	}
}

func TestMissingTestsIsRejected(t *testing.T) {
	top, err := sexpr.Parse("t.s", `(fn f (params) (returns Int32) (body (return 0)))`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	tenv, err := wtype.Collect(top)
	if err != nil {
		t.Fatalf("type collect error: %v", err)
	}
	if _, _, err := sig.Collect(top, tenv); err == nil {
		t.Fatal("expected a MissingTests error for a non-entry function with no (tests ...) section")
	}
}
