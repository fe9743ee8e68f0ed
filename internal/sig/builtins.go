package sig

import "github.com/weave-lang/weave/internal/wtype"

// installBuiltins installs the builtin signatures spec.md §4.5 calls out
// by name: the arena constructor and the JIT/LLVM-compile helper externs.
// These live in the builtin layer, so Lookup resolves them ahead of any
// accidentally-collected user function of the same name (spec.md §9's
// Design Note).
func installBuiltins(t *Table) {
	arena := wtype.Pointer(wtype.Record("Arena"))
	t.DefineBuiltin("arena_new", Signature{Return: arena, Params: nil})

	t.DefineBuiltin("llvm_jit_call_i32_i32_i32", Signature{
		Return: wtype.Int32,
		Params: []wtype.Type{wtype.PointerToByte, wtype.PointerToByte, wtype.Int32, wtype.Int32},
	})
	t.DefineBuiltin("llvm_compile_ir_to_object", Signature{
		Return: wtype.Int32,
		Params: []wtype.Type{wtype.PointerToByte, wtype.PointerToByte, wtype.Int32},
	})
	t.DefineBuiltin("llvm_compile_ir_to_assembly", Signature{
		Return: wtype.Int32,
		Params: []wtype.Type{wtype.PointerToByte, wtype.PointerToByte, wtype.Int32},
	})

	// weave_string_eq backs expect-eq/expect-ne string comparison in
	// test-generation mode (spec.md §4.8).
	t.DefineBuiltin("weave_string_eq", Signature{
		Return: wtype.Int32,
		Params: []wtype.Type{wtype.PointerToByte, wtype.PointerToByte},
	})
	t.DefineBuiltin("weave_string_len", Signature{
		Return: wtype.Int32,
		Params: []wtype.Type{wtype.PointerToByte},
	})
	t.DefineBuiltin("weave_string_concat", Signature{
		Return: wtype.PointerToByte,
		Params: []wtype.Type{wtype.PointerToByte, wtype.PointerToByte},
	})

	// weave_buf_* back the Buffer opaque handle (spec.md §4.4): a growable
	// byte buffer built up with weave_buf_append and read out as a
	// null-terminated C string via weave_buf_cstr.
	t.DefineBuiltin("weave_buf_new", Signature{Return: wtype.PointerToByte, Params: nil})
	t.DefineBuiltin("weave_buf_append", Signature{
		Return: wtype.Void,
		Params: []wtype.Type{wtype.PointerToByte, wtype.PointerToByte},
	})
	t.DefineBuiltin("weave_buf_cstr", Signature{
		Return: wtype.PointerToByte,
		Params: []wtype.Type{wtype.PointerToByte},
	})

	// weave_array_* back every array-of-x opaque handle (spec.md §4.4: all
	// resolve to PointerToByte), storing Int32 cells.
	t.DefineBuiltin("weave_array_new", Signature{
		Return: wtype.PointerToByte,
		Params: []wtype.Type{wtype.Int32},
	})
	t.DefineBuiltin("weave_array_get", Signature{
		Return: wtype.Int32,
		Params: []wtype.Type{wtype.PointerToByte, wtype.Int32},
	})
	t.DefineBuiltin("weave_array_set", Signature{
		Return: wtype.Void,
		Params: []wtype.Type{wtype.PointerToByte, wtype.Int32, wtype.Int32},
	})
	t.DefineBuiltin("weave_array_len", Signature{
		Return: wtype.Int32,
		Params: []wtype.Type{wtype.PointerToByte},
	})
}
