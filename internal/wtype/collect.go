package wtype

import (
	"github.com/weave-lang/weave/internal/diag"
	"github.com/weave-lang/weave/internal/sexpr"
)

// Collect walks top (and recursively into every (module ...) / (program
// ...) grouping, per spec.md §5's traversal order) gathering every
// (type Name (alias T)) and (type Name (struct (field T)*)) form into a
// fresh Env, which it returns.
func Collect(top *sexpr.Node) (*Env, error) {
	env := NewEnv()
	if err := collectInto(env, top); err != nil {
		return nil, err
	}
	return env, nil
}

func collectInto(env *Env, top *sexpr.Node) error {
	for _, form := range top.Children {
		if err := collectForm(env, form); err != nil {
			return err
		}
	}
	return nil
}

func collectForm(env *Env, form *sexpr.Node) error {
	head := form.Head()
	if head == nil || head.Kind != sexpr.Atom {
		return nil
	}
	switch head.Text {
	case "module", "program":
		return collectInto(env, form)
	case "type":
		return collectType(env, form)
	}
	return nil
}

func collectType(env *Env, form *sexpr.Node) error {
	if form.Len() < 3 {
		return diag.New(form.Pos, diag.BadForm, "malformed (type Name ...) form")
	}
	nameNode := form.Nth(1)
	if nameNode == nil || nameNode.Kind != sexpr.Atom {
		return diag.New(form.Pos, diag.BadForm, "(type ...) requires a name atom")
	}
	name := nameNode.Text
	def := form.Nth(2)
	switch {
	case def.HeadIs("alias"):
		if def.Len() != 2 {
			return diag.New(def.Pos, diag.BadForm, "malformed (alias T) form for type %s", name)
		}
		env.DefineAlias(name, env.ParseTypeNode(def.Nth(1)))
		return nil
	case def.HeadIs("struct"):
		rec := &RecordDef{Name: name}
		seen := make(map[string]bool)
		for _, fieldForm := range def.Tail(1) {
			if fieldForm.Len() != 2 || fieldForm.Nth(0).Kind != sexpr.Atom {
				return diag.New(fieldForm.Pos, diag.BadForm, "malformed field in record %s", name)
			}
			fname := fieldForm.Nth(0).Text
			if seen[fname] {
				return diag.New(fieldForm.Pos, diag.BadForm, "duplicate field %q in record %s", fname, name)
			}
			seen[fname] = true
			rec.Fields = append(rec.Fields, Field{Name: fname, Type: env.ParseTypeNode(fieldForm.Nth(1))})
		}
		env.DefineRecord(rec)
		return nil
	default:
		return diag.New(def.Pos, diag.BadForm, "type %s must be (alias T) or (struct ...)", name)
	}
}
