package wtype

import (
	"strings"

	"github.com/weave-lang/weave/internal/sexpr"
)

// Field is one (name, type) pair of a record definition.
type Field struct {
	Name string
	Type Type
}

// RecordDef is a record's ordered field list. Field order is declaration
// order and is the order the record is materialized in LLVM IR (spec.md
// §3, §4.4).
type RecordDef struct {
	Name   string
	Fields []Field
}

// FieldIndex returns the LLVM struct index of field name, or -1 if the
// record has no such field.
func (r *RecordDef) FieldIndex(name string) int {
	for i, f := range r.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

type aliasEntry struct {
	Name   string
	Target Type
}

// Env stores the alias table and the record table, both ordered by
// declaration so that codegen can emit structural type declarations in
// declaration order (spec.md §4.4).
type Env struct {
	aliases       []aliasEntry
	aliasIndex    map[string]int
	records       []*RecordDef
	recordIndex   map[string]int
}

// NewEnv creates an empty type environment.
func NewEnv() *Env {
	return &Env{
		aliasIndex:  make(map[string]int),
		recordIndex: make(map[string]int),
	}
}

// DefineAlias installs name as an alias for target. A later definition of
// the same name replaces the earlier one in place, preserving its
// original declaration-order position.
func (e *Env) DefineAlias(name string, target Type) {
	if i, ok := e.aliasIndex[name]; ok {
		e.aliases[i].Target = target
		return
	}
	e.aliasIndex[name] = len(e.aliases)
	e.aliases = append(e.aliases, aliasEntry{Name: name, Target: target})
}

// LookupAlias returns the alias target for name, if any.
func (e *Env) LookupAlias(name string) (Type, bool) {
	if i, ok := e.aliasIndex[name]; ok {
		return e.aliases[i].Target, true
	}
	return Type{}, false
}

// DefineRecord installs (or replaces in place) a record definition.
func (e *Env) DefineRecord(def *RecordDef) {
	if i, ok := e.recordIndex[def.Name]; ok {
		e.records[i] = def
		return
	}
	e.recordIndex[def.Name] = len(e.records)
	e.records = append(e.records, def)
}

// LookupRecord returns the record definition for name, if any.
func (e *Env) LookupRecord(name string) (*RecordDef, bool) {
	if i, ok := e.recordIndex[name]; ok {
		return e.records[i], true
	}
	return nil, false
}

// Records returns every record definition in declaration order.
func (e *Env) Records() []*RecordDef {
	return e.records
}

// isOpaqueHandleName reports whether name is one of the built-in opaque
// handle names (spec.md §4.4: "String", "Buffer", and the array-of-x
// handles) that all resolve to PointerToByte rather than being looked up
// as aliases or records.
func isOpaqueHandleName(name string) bool {
	switch name {
	case "String", "Buffer":
		return true
	}
	return strings.HasPrefix(name, "ArrayOf")
}

// ParseTypeNode resolves a type node per spec.md §4.4: an atom looks up
// primitive names, then opaque handles, then the alias table, and
// otherwise is treated as a record reference; a list form is either
// (ptr T) or (struct Name). Parse failures yield Int32 defensively
// (spec.md §4.4, §9's InternalInvariant repair — never used to mask a
// user-visible syntax error, only a malformed/unrecognized type shape).
func (e *Env) ParseTypeNode(n *sexpr.Node) Type {
	if n == nil {
		return Int32
	}
	switch n.Kind {
	case sexpr.Atom:
		switch n.Text {
		case "Int32":
			return Int32
		case "Void":
			return Void
		}
		if isOpaqueHandleName(n.Text) {
			return PointerToByte
		}
		if target, ok := e.LookupAlias(n.Text); ok {
			return target
		}
		return Record(n.Text)
	case sexpr.List:
		if n.HeadIs("ptr") && n.Len() == 2 {
			return Pointer(e.ParseTypeNode(n.Nth(1)))
		}
		if n.HeadIs("struct") && n.Len() == 2 && n.Nth(1).Kind == sexpr.Atom {
			return Record(n.Nth(1).Text)
		}
		return Int32
	default:
		return Int32
	}
}
