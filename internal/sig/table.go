// Package sig implements the function-signature table collected in a
// prepass so that calls can be typechecked before the callee body is
// compiled, per spec.md §3, §4.5.
package sig

import "github.com/weave-lang/weave/internal/wtype"

// Signature is a function's return type and ordered parameter types.
type Signature struct {
	Return wtype.Type
	Params []wtype.Type
}

// Table is a two-layer FnTable: a user-collected layer overlaid by a
// builtin layer that always wins on lookup (spec.md §9's Design Note,
// replacing the original's destructive "collect then overwrite" with a
// non-destructive two-layer lookup). An unknown callee resolves, on
// Resolve, to the "bootstrap flexibility" default: Int32 return, every
// argument coerced to Int32 (spec.md §3) — never a silent-success promise,
// just the bootstrap contract.
type Table struct {
	User    map[string]Signature
	Builtin map[string]Signature
}

// NewTable creates an empty two-layer table.
func NewTable() *Table {
	return &Table{
		User:    make(map[string]Signature),
		Builtin: make(map[string]Signature),
	}
}

// DefineUser installs a user-collected signature. It does not check for
// a pre-existing builtin of the same name — Lookup's builtin-first order
// is what gives builtins precedence, not a destructive overwrite here.
func (t *Table) DefineUser(name string, sig Signature) {
	t.User[name] = sig
}

// DefineBuiltin installs a builtin signature.
func (t *Table) DefineBuiltin(name string, sig Signature) {
	t.Builtin[name] = sig
}

// Lookup resolves name, preferring the builtin layer. ok is false only
// when name is in neither layer.
func (t *Table) Lookup(name string) (Signature, bool) {
	if s, ok := t.Builtin[name]; ok {
		return s, true
	}
	s, ok := t.User[name]
	return s, ok
}

// Resolve is like Lookup but never fails: an unknown callee with argc
// arguments defaults to Int32 return and every parameter coerced to
// Int32, per spec.md §3's bootstrap-flexibility contract.
func (t *Table) Resolve(name string, argc int) Signature {
	if s, ok := t.Lookup(name); ok {
		return s
	}
	params := make([]wtype.Type, argc)
	for i := range params {
		params[i] = wtype.Int32
	}
	return Signature{Return: wtype.Int32, Params: params}
}
