package codegen

import (
	"github.com/llir/llvm/ir"

	"github.com/weave-lang/weave/internal/sexpr"
	"github.com/weave-lang/weave/internal/sig"
	"github.com/weave-lang/weave/internal/wtype"
)

// Options configures a single compilation, carrying the test-mode
// switches spec.md §6 describes flowing from the CLI into the core.
type Options struct {
	TestMode bool
	Names    []string // -test NAME, repeatable
	Tags     []string // -tag TAG, repeatable
}

// Generate runs the core pipeline described in spec.md §4.9 over an
// already include-resolved, type-collected, signature-collected program:
// it declares record types, predeclares every user function, always
// emits malloc and the arena constructor, and compiles every function
// body in source order. The returned *Context still has its insertion
// plumbing intact so internal/testgen can append test-mode functions and
// a synthetic runner onto the same module when the caller requests
// test-mode codegen (spec.md §4.8) — kept as a separate pass, driven by
// cmd/weave, to keep the core assembler and the test-desugaring layer
// decoupled.
func Generate(tenv *wtype.Env, table *sig.Table, decls []*sig.Decl) (*Context, error) {
	m := ir.NewModule()
	tt := NewTypeTable(tenv)
	tt.Declare(m)

	ctx := NewContext(m, tenv, table, tt)
	ctx.declareMalloc()
	ctx.registerArenaDecls()
	ctx.registerStringDecls()
	ctx.registerBufferDecls()
	ctx.registerArrayDecls()

	for _, d := range decls {
		ctx.PredeclareFunc(d.EmitName, d.Params, d.Return)
	}
	for _, d := range decls {
		f, _ := ctx.LookupFunc(d.EmitName)
		if err := ctx.CompileFunction(f, d.EmitName, d.Params, d.Return, d.Body); err != nil {
			return nil, err
		}
	}
	return ctx, nil
}

// ListTests collects every eligible test's human-readable name without
// emitting any IR, for spec.md §6's -list-tests.
func ListTests(decls []*sig.Decl, opts Options) []string {
	var names []string
	for _, d := range decls {
		if d.Tests == nil {
			continue
		}
		for _, t := range d.Tests.Tail(1) {
			name, tags := TestNameAndTags(t)
			if Eligible(name, tags, opts) {
				names = append(names, name)
			}
		}
	}
	return names
}

// TestNameAndTags reads a single `(test Name ...)` form's name and
// `(tags ...)` list, if any.
func TestNameAndTags(test *sexpr.Node) (string, []string) {
	name := ""
	if n := test.Nth(1); n != nil && n.Kind == sexpr.Atom {
		name = n.Text
	}
	var tags []string
	for _, part := range test.Tail(2) {
		if part.HeadIs("tags") {
			for _, tg := range part.Tail(1) {
				tags = append(tags, tg.Text)
			}
		}
	}
	return name, tags
}

// Eligible implements spec.md §4.8: a test runs if its name is in the
// selected-names filter OR any of its tags is in the selected-tags
// filter, or both filters are empty.
func Eligible(name string, tags []string, opts Options) bool {
	if len(opts.Names) == 0 && len(opts.Tags) == 0 {
		return true
	}
	for _, n := range opts.Names {
		if n == name {
			return true
		}
	}
	for _, want := range opts.Tags {
		for _, have := range tags {
			if want == have {
				return true
			}
		}
	}
	return false
}
