package codegen

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"

	"github.com/weave-lang/weave/internal/wtype"
)

// arenaFieldCount is the Arena record's field count (spec.md's GLOSSARY:
// "a record used by later stages as a bump allocator; the core compiler
// only emits a trivial four-field constructor").
const arenaFieldCount = 4

// declareMalloc ensures `declare i8* @malloc(i64)` is present exactly
// once; malloc is always declared regardless of use (spec.md §4.9).
func (c *Context) declareMalloc() *ir.Func {
	return c.DeclareExtern("malloc", []types.Type{types.I64}, types.I8Ptr, false)
}

// sizeofType computes sizeof(t) as an i64 using the classic null-GEP
// trick: GEP a null pointer of t by one element and ptrtoint the result
// (spec.md §4.6's `make` contract).
func (c *Context) sizeofType(b *ir.Block, t types.Type) Val {
	null := constant.NewNull(types.NewPointer(t))
	one := constant.NewInt(types.I32, 1)
	sizePtr := b.NewGetElementPtr(t, null, one)
	return Val{IR: b.NewPtrToInt(sizePtr, types.I64), Type: wtype.Int32}
}

// registerArenaDecls always emits `arena_new`, a four-field record
// allocated via malloc with every field initialized to null (spec.md
// §4.9, §9's Design Note: "make allocates unconditionally via malloc ...
// this is intentional (bootstrap)").
func (c *Context) registerArenaDecls() {
	arenaFields := make([]types.Type, arenaFieldCount)
	for i := range arenaFields {
		arenaFields[i] = types.I8Ptr
	}
	arenaStruct := c.TT.DeclareBuiltin(c.Module, "Arena", arenaFields)
	arenaPtr := types.NewPointer(arenaStruct)

	f := c.Module.NewFunc("arena_new", arenaPtr)
	entry := f.NewBlock("entry")

	sz := c.sizeofType(entry, arenaStruct)
	raw := entry.NewCall(c.declareMalloc(), sz.IR)
	self := entry.NewBitCast(raw, arenaPtr)

	zero32 := constant.NewInt(types.I32, 0)
	for i := 0; i < arenaFieldCount; i++ {
		idx := constant.NewInt(types.I32, int64(i))
		slot := entry.NewGetElementPtr(arenaStruct, self, zero32, idx)
		entry.NewStore(constant.NewNull(types.I8Ptr), slot)
	}
	entry.NewRet(self)

	c.funcs["arena_new"] = f
	c.declared["arena_new"] = f
}

// DeclarePrintf installs printf's dedicated variadic signature
// (spec.md §4.6: "the symbol printf is treated as variadic").
func (c *Context) DeclarePrintf() *ir.Func {
	return c.DeclareExtern("printf", []types.Type{types.I8Ptr}, types.I32, true)
}

// DeclarePuts installs puts, used by the synthetic test-mode main to
// print one line per executed test (spec.md §4.8).
func (c *Context) DeclarePuts() *ir.Func {
	return c.DeclareExtern("puts", []types.Type{types.I8Ptr}, types.I32, false)
}

// registerStringDecls declares the String runtime helpers (spec.md §4.4's
// String opaque handle): equality (also used by desugared expect-eq/
// expect-ne on PointerToByte operands, spec.md §4.8), length, and
// concatenation. Every one of these is a declare, never a define — the
// runtime itself is out of scope (spec.md §1's Non-goal).
func (c *Context) registerStringDecls() {
	c.DeclareFromSig("weave_string_eq")
	c.DeclareFromSig("weave_string_len")
	c.DeclareFromSig("weave_string_concat")
}

// registerBufferDecls declares the Buffer runtime helpers (spec.md §4.4's
// Buffer opaque handle): a growable byte buffer built up with
// weave_buf_append and read out as a null-terminated C string via
// weave_buf_cstr.
func (c *Context) registerBufferDecls() {
	c.DeclareFromSig("weave_buf_new")
	c.DeclareFromSig("weave_buf_append")
	c.DeclareFromSig("weave_buf_cstr")
}

// registerArrayDecls declares the array-of-x runtime helpers (spec.md
// §4.4: every ArrayOf* name resolves to PointerToByte).
func (c *Context) registerArrayDecls() {
	c.DeclareFromSig("weave_array_new")
	c.DeclareFromSig("weave_array_get")
	c.DeclareFromSig("weave_array_set")
	c.DeclareFromSig("weave_array_len")
}
