// Package testgen implements spec.md §4.8's test-generation mode: each
// `(test ...)` block nested in a fn's `(tests ...)` section is desugared
// into its own IR function, and a synthetic entry sequences and tallies
// them. It builds directly on internal/codegen's Context rather than
// re-deriving a parallel code generator.
package testgen

import (
	"fmt"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"

	"github.com/weave-lang/weave/internal/codegen"
	"github.com/weave-lang/weave/internal/diag"
	"github.com/weave-lang/weave/internal/sexpr"
	"github.com/weave-lang/weave/internal/sig"
	"github.com/weave-lang/weave/internal/wtype"
)

// Report summarizes what test-generation mode emitted.
type Report struct {
	Symbols []string // __test_<fn>_<index> LLVM symbols, in emission order
	Names   []string // matching human-readable test names
}

// Generate appends one `__test_<fn>_<index>` function per eligible test
// plus a synthetic `main` onto ctx's module (spec.md §4.8). It must run
// after codegen.Generate has already compiled every ordinary function
// body, since the test functions call them by symbol.
func Generate(ctx *codegen.Context, decls []*sig.Decl, opts codegen.Options) (*Report, error) {
	report := &Report{}

	for _, d := range decls {
		if d.Tests == nil {
			continue
		}
		for i, test := range d.Tests.Tail(1) {
			name, tags := codegen.TestNameAndTags(test)
			if !codegen.Eligible(name, tags, opts) {
				continue
			}
			symbol := fmt.Sprintf("__test_%s_%d", d.Name, i)
			if err := compileTest(ctx, symbol, name, test); err != nil {
				return nil, err
			}
			report.Symbols = append(report.Symbols, symbol)
			report.Names = append(report.Names, name)
		}
	}

	if len(report.Symbols) > 0 {
		if _, exists := ctx.LookupFunc("main"); exists {
			return nil, diag.New(decls[0].Form.Pos, diag.BadForm,
				"test mode cannot synthesize main: the program already defines an entry")
		}
		emitSyntheticMain(ctx, report)
	}

	return report, nil
}

// compileTest builds one `__test_<fn>_<index>` function returning Int32
// (0 = pass, 1 = fail): setup statements run first, then inspect
// (preferred) or body statements, with every expect-* form compiled
// directly to a compare-and-branch rather than routed through the
// ordinary statement compiler, since assertion failure needs a printf
// call whose format is chosen from the operand's own type — something
// the general statement grammar has no form for (spec.md §4.8).
func compileTest(ctx *codegen.Context, symbol, name string, test *sexpr.Node) error {
	f := ctx.NewBareFunc(symbol, wtype.Int32)
	env := ctx.BeginFunction(f, symbol, nil, wtype.Int32)

	var setup, checks *sexpr.Node
	for _, part := range test.Tail(2) {
		switch {
		case part.HeadIs("setup"):
			setup = part
		case part.HeadIs("inspect"):
			checks = part
		case part.HeadIs("body") && checks == nil:
			checks = part
		}
	}

	if setup != nil {
		if _, _, err := ctx.GenStmts(env, setup.Tail(1)); err != nil {
			return err
		}
	}

	ranAssertion := false
	if checks != nil {
		for _, stmt := range checks.Tail(1) {
			if isAssert(stmt) {
				if err := compileAssert(ctx, env, name, stmt); err != nil {
					return err
				}
				ranAssertion = true
				continue
			}
			if _, _, err := ctx.GenStmts(env, []*sexpr.Node{stmt}); err != nil {
				return err
			}
		}
	}
	_ = ranAssertion // spec.md §4.8: once every assertion passes, the test returns 0 regardless of count

	ctx.Block().NewRet(constant.NewInt(types.I32, 0))
	return nil
}

func isAssert(form *sexpr.Node) bool {
	return form.HeadIs("expect-eq") || form.HeadIs("expect-ne") ||
		form.HeadIs("expect-true") || form.HeadIs("expect-false")
}
