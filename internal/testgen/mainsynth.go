package testgen

import (
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"

	"github.com/weave-lang/weave/internal/codegen"
	"github.com/weave-lang/weave/internal/wtype"
)

// emitSyntheticMain builds the test-mode entry spec.md §4.8 describes: it
// calls every eligible test function in turn, prints a line per test via
// puts, tallies non-zero (failing) returns into a stack counter, and
// returns the total failure count as the process exit code.
func emitSyntheticMain(ctx *codegen.Context, report *Report) {
	f := ctx.NewBareFunc("main", wtype.Int32)
	ctx.BeginFunction(f, "main", nil, wtype.Int32)

	counter := ctx.Block().NewAlloca(types.I32)
	ctx.Block().NewStore(constant.NewInt(types.I32, 0), counter)

	puts := ctx.DeclarePuts()
	for i, symbol := range report.Symbols {
		name := report.Names[i]
		testFn, ok := ctx.LookupFunc(symbol)
		if !ok {
			continue
		}
		msg := ctx.InternString("Running test: " + name)
		ctx.Block().NewCall(puts, msg.IR)

		result := ctx.Block().NewCall(testFn)
		failed := ctx.Block().NewICmp(enum.IPredNE, result, constant.NewInt(types.I32, 0))
		inc := ctx.Block().NewZExt(failed, types.I32)

		cur := ctx.Block().NewLoad(types.I32, counter)
		next := ctx.Block().NewAdd(cur, inc)
		ctx.Block().NewStore(next, counter)
	}

	total := ctx.Block().NewLoad(types.I32, counter)
	ctx.Block().NewRet(total)
}
