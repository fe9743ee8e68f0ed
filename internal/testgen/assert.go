package testgen

import (
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/weave-lang/weave/internal/codegen"
	"github.com/weave-lang/weave/internal/diag"
	"github.com/weave-lang/weave/internal/sexpr"
	"github.com/weave-lang/weave/internal/token"
	"github.com/weave-lang/weave/internal/varenv"
	"github.com/weave-lang/weave/internal/wtype"
)

// compileAssert lowers one expect-eq/expect-ne/expect-true/expect-false
// form into a compare, a conditional branch, and — on failure — a printf
// diagnostic naming the source position, the test, and the rendered
// expected/actual values, followed by `return 1` (spec.md §4.8). Passing
// falls through to the next statement.
func compileAssert(ctx *codegen.Context, env *varenv.Env, testName string, form *sexpr.Node) error {
	switch {
	case form.HeadIs("expect-eq"), form.HeadIs("expect-ne"):
		return compileExpectCompare(ctx, env, testName, form)
	case form.HeadIs("expect-true"):
		return compileExpectBool(ctx, env, testName, form, true)
	case form.HeadIs("expect-false"):
		return compileExpectBool(ctx, env, testName, form, false)
	}
	return diag.New(form.Pos, diag.BadForm, "unrecognized assertion form")
}

func compileExpectCompare(ctx *codegen.Context, env *varenv.Env, testName string, form *sexpr.Node) error {
	wantEqual := form.HeadIs("expect-eq")
	if form.Len() != 3 {
		return diag.New(form.Pos, diag.BadForm, "malformed %s", form.Head().Text)
	}
	actual, err := ctx.GenExpr(env, form.Nth(1))
	if err != nil {
		return err
	}
	expected, err := ctx.GenExpr(env, form.Nth(2))
	if err != nil {
		return err
	}

	b := ctx.Block()
	var passed value.Value
	if actual.Type.Kind == wtype.KPointerToByte && expected.Type.Kind == wtype.KPointerToByte {
		helper, ok := ctx.DeclareFromSig("weave_string_eq")
		if !ok {
			return diag.New(form.Pos, diag.InternalInvariant, "weave_string_eq missing from builtin signatures")
		}
		result := b.NewCall(helper, actual.IR, expected.IR)
		pred := enum.IPredNE
		if !wantEqual {
			pred = enum.IPredEQ
		}
		passed = b.NewICmp(pred, result, constant.NewInt(types.I32, 0))
	} else {
		target := wtype.Int32
		if actual.Type.IsPointerLike() || expected.Type.IsPointerLike() {
			target = wtype.PointerToByte
		}
		actual, err = ctx.EnsureType(b, actual, target, form.Pos, "expect-eq/expect-ne operand")
		if err != nil {
			return err
		}
		expected, err = ctx.EnsureType(b, expected, target, form.Pos, "expect-eq/expect-ne operand")
		if err != nil {
			return err
		}
		pred := enum.IPredEQ
		if !wantEqual {
			pred = enum.IPredNE
		}
		b = ctx.Block()
		passed = b.NewICmp(pred, actual.IR, expected.IR)
	}

	verb := "expect-eq"
	if !wantEqual {
		verb = "expect-ne"
	}
	return branchOnFailure(ctx, env, passed, form.Pos, testName, verb, &expected, &actual)
}

func compileExpectBool(ctx *codegen.Context, env *varenv.Env, testName string, form *sexpr.Node, wantTrue bool) error {
	if form.Len() != 2 {
		return diag.New(form.Pos, diag.BadForm, "malformed %s", form.Head().Text)
	}
	v, err := ctx.GenExpr(env, form.Nth(1))
	if err != nil {
		return err
	}
	b := ctx.Block()
	v, err = ctx.EnsureType(b, v, wtype.Int32, form.Pos, "expect-true/expect-false operand")
	if err != nil {
		return err
	}
	b = ctx.Block()
	pred := enum.IPredNE
	verb := "expect-true"
	if !wantTrue {
		pred = enum.IPredEQ
		verb = "expect-false"
	}
	passed := b.NewICmp(pred, v.IR, constant.NewInt(types.I32, 0))
	return branchOnFailure(ctx, env, passed, form.Pos, testName, verb, nil, &v)
}

// branchOnFailure emits `if passed { continue } else { printf(...); return
// 1 }`. expected/actual are nil for the unary expect-true/expect-false
// forms, whose diagnostic only renders the one operand.
func branchOnFailure(ctx *codegen.Context, env *varenv.Env, passed value.Value, pos token.Position, testName, verb string, expected, actual *codegen.Val) error {
	failBlock := ctx.NewBlock("assert.fail")
	contBlock := ctx.NewBlock("assert.cont")
	ctx.Block().NewCondBr(passed, contBlock, failBlock)

	ctx.SetBlock(failBlock)
	if err := emitFailureDiagnostic(ctx, pos, testName, verb, expected, actual); err != nil {
		return err
	}
	ctx.Block().NewRet(constant.NewInt(types.I32, 1))

	ctx.SetBlock(contBlock)
	return nil
}

// formatVerb picks printf's conversion for t (spec.md §4.8): %d for
// Int32, %s for PointerToByte, %p otherwise.
func formatVerb(t wtype.Type) string {
	switch t.Kind {
	case wtype.KInt32:
		return "%d"
	case wtype.KPointerToByte:
		return "%s"
	default:
		return "%p"
	}
}

// emitFailureDiagnostic prints "<file>:<line>:<col>: test <name>: <verb>
// failed: expected <...>, got <...>\n" (or, for the unary forms, just the
// one value) via printf.
func emitFailureDiagnostic(ctx *codegen.Context, pos token.Position, testName, verb string, expected, actual *codegen.Val) error {
	filePtr := ctx.InternString(pos.File)
	namePtr := ctx.InternString(testName)
	line := constant.NewInt(types.I32, int64(pos.Line))
	col := constant.NewInt(types.I32, int64(pos.Col))

	var format string
	var extra []value.Value
	if expected != nil {
		format = "%s:%d:%d: test %s: " + verb + " failed: expected " + formatVerb(expected.Type) + ", got " + formatVerb(actual.Type) + "\n"
		extra = []value.Value{expected.IR, actual.IR}
	} else {
		format = "%s:%d:%d: test %s: " + verb + " failed: got " + formatVerb(actual.Type) + "\n"
		extra = []value.Value{actual.IR}
	}

	fmtPtr := ctx.InternString(format)
	printf := ctx.DeclarePrintf()
	args := append([]value.Value{fmtPtr.IR, filePtr.IR, line, col, namePtr.IR}, extra...)
	ctx.Block().NewCall(printf, args...)
	return nil
}
