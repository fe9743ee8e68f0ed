package codegen

import (
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/value"

	"github.com/weave-lang/weave/internal/wtype"
)

// Val is the compile-time handle for a compiled expression: the
// underlying llir/llvm SSA value together with its source-level type
// (spec.md §3's Value, converged onto one shape per spec.md §9's Design
// Note — advisory flags are computed from Type/IR rather than stored
// redundantly).
type Val struct {
	IR   value.Value
	Type wtype.Type
}

// IsPointer reports whether v's source-level type is pointer-shaped.
func (v Val) IsPointer() bool {
	return v.Type.IsPointerLike()
}

// IsConst reports whether v's underlying IR value is an LLVM constant.
func (v Val) IsConst() bool {
	_, ok := v.IR.(constant.Constant)
	return ok
}
