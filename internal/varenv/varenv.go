// Package varenv implements the scoped, stack-allocated symbol table
// used while compiling a single function body, per spec.md §3.
package varenv

import (
	"fmt"

	"github.com/llir/llvm/ir"

	"github.com/weave-lang/weave/internal/wtype"
)

// Kind distinguishes an ordinary local from a parameter materialized into
// a stack slot (spec.md §4.7: every parameter is stored into an alloca on
// entry so `set` can mutate it uniformly).
type Kind int

const (
	Local Kind = iota
	Parameter
)

// Binding is one entry in scope: the user-visible name, a sanitized and
// uniquified SSA name, its kind, declared type, and the alloca backing
// its storage.
type Binding struct {
	Name    string
	SSAName string
	Kind    Kind
	Type    wtype.Type
	Slot    *ir.InstAlloca
}

// Env is a scoped symbol table for a single function body. Bindings are
// pushed on scope entry (function prologue, `let`) and popped when that
// scope ends. Lookup scans most-recent-first so inner bindings shadow
// outer ones.
type Env struct {
	bindings []*Binding
	counter  int
}

// New creates an empty Env for one function body.
func New() *Env {
	return &Env{}
}

// Push adds a new binding, deriving a unique SSA name from the user name
// as "v_<sanitized name>_<binding index>" (spec.md §3: "made unique by
// append of the binding's index").
func (e *Env) Push(name string, kind Kind, typ wtype.Type, slot *ir.InstAlloca) *Binding {
	b := &Binding{
		Name:    name,
		SSAName: fmt.Sprintf("v_%s_%d", sanitize(name), len(e.bindings)),
		Kind:    kind,
		Type:    typ,
		Slot:    slot,
	}
	e.bindings = append(e.bindings, b)
	return b
}

// Mark returns a scope checkpoint usable with PopTo.
func (e *Env) Mark() int { return len(e.bindings) }

// PopTo discards every binding pushed since mark, ending that scope.
func (e *Env) PopTo(mark int) {
	e.bindings = e.bindings[:mark]
}

// Lookup finds the most-recently-pushed binding named name, scanning
// inner-to-outer so shadowing works (spec.md §3).
func (e *Env) Lookup(name string) (*Binding, bool) {
	for i := len(e.bindings) - 1; i >= 0; i-- {
		if e.bindings[i].Name == name {
			return e.bindings[i], true
		}
	}
	return nil, false
}

func sanitize(name string) string {
	out := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "v"
	}
	return string(out)
}
