package codegen

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"

	"github.com/weave-lang/weave/internal/wtype"
)

// TypeTable converts source-level wtype.Type values into llir/llvm IR
// types, caching one named struct type per record so every reference to
// Record(name) shares the same *types.StructType identity and every
// record is materialized with its declared fields in declaration order
// (spec.md §4.4).
type TypeTable struct {
	env     *wtype.Env
	structs map[string]*types.StructType
}

// NewTypeTable builds a TypeTable over env. Declare must be called once
// before LLVM is used on any Record-shaped type.
func NewTypeTable(env *wtype.Env) *TypeTable {
	return &TypeTable{env: env, structs: make(map[string]*types.StructType)}
}

// Declare emits one named struct type per record collected in env, in
// declaration order, appending each to module's type definitions (spec.md
// §4.4's typedefs buffer). Placeholders are created for every record
// first so that a record whose field references another record (declared
// earlier or later) resolves correctly, then every record's field list is
// filled in a second pass.
func (t *TypeTable) Declare(m *ir.Module) {
	defs := t.env.Records()
	for _, def := range defs {
		st := types.NewStruct()
		st.TypeName = def.Name
		m.TypeDefs = append(m.TypeDefs, st)
		t.structs[def.Name] = st
	}
	for _, def := range defs {
		st := t.structs[def.Name]
		fields := make([]types.Type, len(def.Fields))
		for i, f := range def.Fields {
			fields[i] = t.LLVM(f.Type)
		}
		st.Fields = fields
	}
}

// DeclareBuiltin installs a named struct type not collected from user
// source (the runtime Arena record, spec.md §4.9), unless a user record of
// the same name already claimed it.
func (t *TypeTable) DeclareBuiltin(m *ir.Module, name string, fields []types.Type) *types.StructType {
	if st, ok := t.structs[name]; ok {
		return st
	}
	st := types.NewStruct(fields...)
	st.TypeName = name
	m.TypeDefs = append(m.TypeDefs, st)
	t.structs[name] = st
	return st
}

// LLVM converts a source type into its LLVM IR representation. A bare
// Record(name) converts to the named struct type itself (by value);
// Pointer(Record(name)) converts to a pointer to that struct.
func (t *TypeTable) LLVM(typ wtype.Type) types.Type {
	switch typ.Kind {
	case wtype.KInt32:
		return types.I32
	case wtype.KPointerToByte:
		return types.I8Ptr
	case wtype.KVoid:
		return types.Void
	case wtype.KRecord:
		return t.record(typ.Name)
	case wtype.KPointer:
		return types.NewPointer(t.LLVM(*typ.Elem))
	default:
		return types.I32
	}
}

// record returns the struct type for name, installing an empty opaque
// placeholder defensively if it was never declared (spec.md §4.10:
// internal-invariant repair, never used to mask a user-visible error —
// this only guards a record referenced by a malformed program that
// wtype.Collect already rejected).
func (t *TypeTable) record(name string) *types.StructType {
	if st, ok := t.structs[name]; ok {
		return st
	}
	st := types.NewStruct()
	st.TypeName = name
	t.structs[name] = st
	return st
}

// Record returns the struct type earlier declared for name.
func (t *TypeTable) Record(name string) (*types.StructType, bool) {
	st, ok := t.structs[name]
	return st, ok
}
