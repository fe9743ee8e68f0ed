package testgen

import (
	"strings"
	"testing"

	"github.com/weave-lang/weave/internal/codegen"
	"github.com/weave-lang/weave/internal/sexpr"
	"github.com/weave-lang/weave/internal/sig"
	"github.com/weave-lang/weave/internal/wtype"
)

func compile(t *testing.T, src string) (*codegen.Context, []*sig.Decl) {
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
	ctx, err := codegen.Generate(tenv, table, decls)
	if err != nil {
		t.Fatalf("codegen error: %v", err)
	}
	return ctx, decls
}

const addSrc = `
	(fn add (params (a Int32) (b Int32)) (returns Int32)
		(body (return (+ a b)))
		(tests
			(test adds-two-positives
				(body
					(let got Int32 (add 2 3))
					(expect-eq got 5)))
			(test catches-a-wrong-expectation
				(body
					(let got Int32 (add 2 3))
					(expect-eq got 6)))))
`

func TestGenerateEmitsOneFunctionPerEligibleTest(t *testing.T) {
	ctx, decls := compile(t, addSrc)
	report, err := Generate(ctx, decls, codegen.Options{TestMode: true})
	if err != nil {
		t.Fatalf("testgen error: %v", err)
	}
	if len(report.Symbols) != 2 {
		t.Fatalf("expected 2 test symbols, got %d: %v", len(report.Symbols), report.Symbols)
	}
	ir := ctx.Module.String()
	if !strings.Contains(ir, "@__test_add_0") || !strings.Contains(ir, "@__test_add_1") {
		t.Fatalf("expected both per-test symbols defined, got:\n%s", ir)
	}
	if !strings.Contains(ir, "define i32 @main()") {
		t.Fatalf("expected a synthesized main, got:\n%s", ir)
	}
	if !strings.Contains(ir, "Running test:") {
		t.Fatalf("expected the synthetic main to announce each test, got:\n%s", ir)
	}
}

func TestGenerateHonorsNameFilter(t *testing.T) {
	ctx, decls := compile(t, addSrc)
	report, err := Generate(ctx, decls, codegen.Options{TestMode: true, Names: []string{"adds-two-positives"}})
	if err != nil {
		t.Fatalf("testgen error: %v", err)
	}
	if len(report.Symbols) != 1 || report.Names[0] != "adds-two-positives" {
		t.Fatalf("expected exactly one filtered test, got %v", report.Names)
	}
}

func TestGenerateRejectsExistingMain(t *testing.T) {
	ctx, decls := compile(t, `
		(entry main (params) (returns Int32) (body (return 0)))
	`)
	if _, err := Generate(ctx, decls, codegen.Options{TestMode: true}); err != nil {
		t.Fatalf("unexpected error with no tests present: %v", err)
	}

	ctx2, decls2 := compile(t, addSrc+`
		(entry main (params) (returns Int32) (body (return 0)))
	`)
	if _, err := Generate(ctx2, decls2, codegen.Options{TestMode: true}); err == nil {
		t.Fatal("expected an error synthesizing main when the program already defines an entry")
	}
}

func TestExpectBoolCompilesToCompareAndBranch(t *testing.T) {
	ctx, decls := compile(t, `
		(fn always-true (params) (returns Int32)
			(body (return 1))
			(tests
				(test checks-true
					(body
						(let got Int32 (always-true))
						(expect-true got)))))
	`)
	report, err := Generate(ctx, decls, codegen.Options{TestMode: true})
	if err != nil {
		t.Fatalf("testgen error: %v", err)
	}
	if len(report.Symbols) != 1 {
		t.Fatalf("expected 1 test symbol, got %d", len(report.Symbols))
	}
	ir := ctx.Module.String()
	if !strings.Contains(ir, "assert.fail") || !strings.Contains(ir, "assert.cont") {
		t.Fatalf("expected the compare-and-branch diamond, got:\n%s", ir)
	}
	if !strings.Contains(ir, "call i32 (i8*, ...) @printf") {
		t.Fatalf("expected a printf diagnostic call in the failure block, got:\n%s", ir)
	}
}
