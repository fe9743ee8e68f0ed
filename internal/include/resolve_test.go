package include

import (
	"testing"

	"github.com/weave-lang/weave/internal/sexpr"
)

func fakeReader(files map[string]string) func(string) ([]byte, error) {
	return func(path string) ([]byte, error) {
		if data, ok := files[path]; ok {
			return []byte(data), nil
		}
		return nil, &pathError{path}
	}
}

type pathError struct{ path string }

func (e *pathError) Error() string { return "no such file: " + e.path }

func mustParse(t *testing.T, src string) *sexpr.Node {
	t.Helper()
	top, err := sexpr.Parse("top.s", src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return top
}

func TestResolveMergesIncludedForms(t *testing.T) {
	top := mustParse(t, `(include "a.s") (fn f (params) (returns Int32) (body (return 0)))`)
	r := NewResolver([]string{"."})
	r.ReadFile = fakeReader(map[string]string{
		"a.s": `(fn g (params) (returns Int32) (body (return 1)))`,
	})
	if err := r.Resolve(top, "."); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if top.Len() != 2 {
		t.Fatalf("expected 2 top-level forms after merge, got %d: %+v", top.Len(), top.Children)
	}
	if top.Nth(0).Nth(1).Text != "g" {
		t.Fatalf("expected included fn g first, got %+v", top.Nth(0))
	}
	if top.Nth(1).Nth(1).Text != "f" {
		t.Fatalf("expected original fn f second, got %+v", top.Nth(1))
	}
}

func TestResolveSameIncludeTwiceIsNoop(t *testing.T) {
	top := mustParse(t, `(include "a.s") (include "a.s")`)
	r := NewResolver([]string{"."})
	r.ReadFile = fakeReader(map[string]string{
		"a.s": `(fn g (params) (returns Int32) (body (return 1)))`,
	})
	if err := r.Resolve(top, "."); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The repeated include adds no forms; its own form stays in place,
	// neutralized, after the merged fn g.
	if top.Len() != 2 {
		t.Fatalf("expected the second include to add no forms, got %d forms", top.Len())
	}
	if top.Nth(1).HeadIs("include") {
		t.Fatalf("expected the skipped include to be neutralized, got %+v", top.Nth(1))
	}
}

func TestResolveNeutralizesIncludeHead(t *testing.T) {
	top := mustParse(t, `(include "a.s")`)
	r := NewResolver([]string{"."})
	r.ReadFile = fakeReader(map[string]string{"a.s": `(fn g (params) (returns Int32) (body (return 1)))`})
	if err := r.Resolve(top, "."); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The expanded include is replaced by the included forms, so a second
	// walk finds no live (include ...) form.
	var includeHeads int
	for _, f := range top.Children {
		if f.HeadIs("include") {
			includeHeads++
		}
	}
	if includeHeads != 0 {
		t.Fatalf("expected the include head to be neutralized, found %d live (include ...) forms", includeHeads)
	}
}

func TestResolveRelativeIncludeWithoutBaseDirIsError(t *testing.T) {
	top := mustParse(t, `(include "./a.s")`)
	r := NewResolver([]string{"."})
	r.ReadFile = fakeReader(map[string]string{})
	if err := r.Resolve(top, ""); err == nil {
		t.Fatal("expected an error for a relative include with no base directory")
	}
}

func TestResolveMissingIncludeIsError(t *testing.T) {
	top := mustParse(t, `(include "missing.s")`)
	r := NewResolver([]string{"."})
	r.ReadFile = fakeReader(map[string]string{})
	if err := r.Resolve(top, "."); err == nil {
		t.Fatal("expected an error for a missing include")
	}
}

func TestResolveRecursesIntoIncludedFiles(t *testing.T) {
	top := mustParse(t, `(include "a.s")`)
	r := NewResolver([]string{"."})
	r.ReadFile = fakeReader(map[string]string{
		"a.s": `(include "b.s") (fn g (params) (returns Int32) (body (return 1)))`,
		"b.s": `(fn h (params) (returns Int32) (body (return 2)))`,
	})
	if err := r.Resolve(top, "."); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if top.Len() != 2 {
		t.Fatalf("expected transitive include to merge 2 forms, got %d", top.Len())
	}
}

func TestResolveWalksModuleGroupings(t *testing.T) {
	top := mustParse(t, `(module (include "a.s"))`)
	r := NewResolver([]string{"."})
	r.ReadFile = fakeReader(map[string]string{
		"a.s": `(fn g (params) (returns Int32) (body (return 1)))`,
	})
	if err := r.Resolve(top, "."); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	moduleForm := top.Nth(0)
	if moduleForm.Len() != 2 || moduleForm.Nth(1).Nth(1).Text != "g" {
		t.Fatalf("expected the include inside (module ...) to be expanded in place, got %+v", moduleForm)
	}
}
