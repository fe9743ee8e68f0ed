package codegen

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"

	"github.com/weave-lang/weave/internal/diag"
	"github.com/weave-lang/weave/internal/token"
	"github.com/weave-lang/weave/internal/wtype"
)

// EnsureType implements the single coercion routine spec.md §4.6 names
// ensure_type: identity if the types already match; an integer-zero
// constant widens to a PointerToByte null; a pointer narrows to
// PointerToByte via bitcast; a pointer (of either shape) narrows to
// Int32 via ptrtoint. Any other mismatch is a fatal TypeMismatch citing
// the current function, pos, and both types (spec.md §4.10).
func (c *Context) EnsureType(b *ir.Block, v Val, to wtype.Type, pos token.Position, exprCtx string) (Val, error) {
	if v.Type.Equal(to) {
		return v, nil
	}
	if v.Type.Kind == wtype.KInt32 && to.Kind == wtype.KPointerToByte {
		if ci, ok := v.IR.(*constant.Int); ok && ci.X.Sign() == 0 {
			return Val{IR: constant.NewNull(types.I8Ptr), Type: to}, nil
		}
	}
	if v.Type.IsPointerLike() && to.Kind == wtype.KPointerToByte {
		return Val{IR: b.NewBitCast(v.IR, types.I8Ptr), Type: to}, nil
	}
	if v.Type.IsPointerLike() && to.Kind == wtype.KInt32 {
		return Val{IR: b.NewPtrToInt(v.IR, types.I32), Type: to}, nil
	}
	return Val{}, diag.New(pos, diag.TypeMismatch, "cannot coerce expression to %s", to).
		WithDetail("in function %s, context %s: wanted %s, got %s", c.currentFn, exprCtx, to, v.Type)
}
