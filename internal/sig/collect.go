package sig

import (
	"github.com/weave-lang/weave/internal/diag"
	"github.com/weave-lang/weave/internal/sexpr"
	"github.com/weave-lang/weave/internal/wtype"
)

// Param is one (name, type) function parameter.
type Param struct {
	Name string
	Type wtype.Type
}

// Decl is a collected function declaration: its resolved signature plus
// everything codegen needs to later compile its body. Decls are returned
// in source order (spec.md §5: "the order of function bodies follows
// source traversal").
type Decl struct {
	Name     string // user-visible name
	EmitName string // LLVM symbol: "main" for entry, Name otherwise
	IsEntry  bool
	Params   []Param
	Return   wtype.Type
	Body     *sexpr.Node // the (body ...) form
	Tests    *sexpr.Node // the (tests ...) form, or nil
	Form     *sexpr.Node // the whole (fn ...) / (entry ...) form, for diagnostics
}

// Collect walks top (recursively into (module ...)/(program ...)
// groupings, matching the traversal spec.md §5 mandates) collecting every
// (fn ...) and (entry ...) form into a Table and an ordered []*Decl.
// tenv must already have every (type ...) form collected (spec.md §4.5's
// "records first" pass — performed by wtype.Collect before this runs, so
// that parameter/return types naming a record resolve correctly here).
//
// A fn with no (tests ...) section, or an empty one, is a MissingTests
// error (spec.md §4.5); entry points are exempt.
func Collect(top *sexpr.Node, tenv *wtype.Env) (*Table, []*Decl, error) {
	table := NewTable()
	var decls []*Decl
	if err := collectInto(top, tenv, table, &decls); err != nil {
		return nil, nil, err
	}
	installBuiltins(table)
	return table, decls, nil
}

func collectInto(top *sexpr.Node, tenv *wtype.Env, table *Table, decls *[]*Decl) error {
	for _, form := range top.Children {
		if err := collectForm(form, tenv, table, decls); err != nil {
			return err
		}
	}
	return nil
}

func collectForm(form *sexpr.Node, tenv *wtype.Env, table *Table, decls *[]*Decl) error {
	head := form.Head()
	if head == nil || head.Kind != sexpr.Atom {
		return nil
	}
	switch head.Text {
	case "module", "program":
		return collectInto(form, tenv, table, decls)
	case "fn":
		return collectFn(form, tenv, table, decls, false)
	case "entry":
		return collectFn(form, tenv, table, decls, true)
	}
	return nil
}

// collectFn parses (fn name [doc] params returns body extras...) or
// (entry name [doc] params returns body), per spec.md §4.5's grammar.
func collectFn(form *sexpr.Node, tenv *wtype.Env, table *Table, decls *[]*Decl, isEntry bool) error {
	if form.Len() < 2 || form.Nth(1).Kind != sexpr.Atom {
		return diag.New(form.Pos, diag.BadForm, "malformed function form: missing name")
	}
	name := form.Nth(1).Text
	idx := 2
	if n := form.Nth(idx); n.HeadIs("doc") {
		idx++
	}
	paramsForm := form.Nth(idx)
	idx++
	returnsForm := form.Nth(idx)
	idx++
	bodyForm := form.Nth(idx)
	idx++

	params, err := parseParams(paramsForm, tenv)
	if err != nil {
		return err
	}
	ret, err := parseReturns(returnsForm, tenv)
	if err != nil {
		return err
	}
	if bodyForm == nil || !bodyForm.HeadIs("body") {
		return diag.New(form.Pos, diag.BadForm, "function %s is missing a (body ...) form", name)
	}

	var tests *sexpr.Node
	for _, extra := range form.Tail(idx) {
		if extra.HeadIs("tests") {
			tests = extra
		}
	}
	if !isEntry {
		if tests == nil {
			return diag.New(form.Pos, diag.MissingTests, "function %s has no (tests ...) section", name)
		}
		if tests.Len() <= 1 {
			return diag.New(tests.Pos, diag.MissingTests, "function %s has an empty (tests ...) section", name)
		}
	}

	emitName := name
	if isEntry {
		emitName = "main"
	}

	paramTypes := make([]wtype.Type, len(params))
	for i, p := range params {
		paramTypes[i] = p.Type
	}
	table.DefineUser(name, Signature{Return: ret, Params: paramTypes})

	*decls = append(*decls, &Decl{
		Name:     name,
		EmitName: emitName,
		IsEntry:  isEntry,
		Params:   params,
		Return:   ret,
		Body:     bodyForm,
		Tests:    tests,
		Form:     form,
	})
	return nil
}

// parseParams handles (params) and (params (n1 T1) (n2 T2) ...).
func parseParams(form *sexpr.Node, tenv *wtype.Env) ([]Param, error) {
	if form == nil || !form.HeadIs("params") {
		return nil, diag.New(form.Pos, diag.BadForm, "expected (params ...) form")
	}
	var params []Param
	for _, p := range form.Tail(1) {
		if p.Len() != 2 || p.Nth(0).Kind != sexpr.Atom {
			return nil, diag.New(p.Pos, diag.BadForm, "malformed parameter")
		}
		params = append(params, Param{Name: p.Nth(0).Text, Type: tenv.ParseTypeNode(p.Nth(1))})
	}
	return params, nil
}

// parseReturns handles (returns T); absent returns Int32 by default
// (spec.md §4.5).
func parseReturns(form *sexpr.Node, tenv *wtype.Env) (wtype.Type, error) {
	if form == nil {
		return wtype.Int32, nil
	}
	if !form.HeadIs("returns") || form.Len() != 2 {
		return wtype.Type{}, diag.New(form.Pos, diag.BadForm, "expected (returns T) form")
	}
	return tenv.ParseTypeNode(form.Nth(1)), nil
}
