// Package include implements the whole-program assembler: it expands
// every (include "path") form into the including list in place, with
// cycle avoidance and search-path semantics, per spec.md §4.3.
package include

import (
	"os"
	"path/filepath"

	"github.com/weave-lang/weave/internal/diag"
	"github.com/weave-lang/weave/internal/sexpr"
	"github.com/weave-lang/weave/internal/token"
)

// Resolver expands (include ...) forms. Dirs is the ordered list of
// include search directories (spec.md §6's repeatable -I, default ".").
// Seen holds canonical (filepath.Abs + Clean) paths already merged, so a
// cycle or a repeated include of the same file is silently skipped
// (spec.md §4.3, §8 invariant 1).
type Resolver struct {
	Dirs []string
	Seen map[string]bool

	// ReadFile reads a source file's contents; overridable for tests.
	ReadFile func(path string) ([]byte, error)
}

// NewResolver creates a Resolver with the given search directories. An
// empty dirs defaults to {"."} per spec.md §6.
func NewResolver(dirs []string) *Resolver {
	if len(dirs) == 0 {
		dirs = []string{"."}
	}
	return &Resolver{Dirs: dirs, Seen: make(map[string]bool), ReadFile: os.ReadFile}
}

// Resolve expands every (include "path") form reachable from top in
// place, using baseDir as the directory relative-path includes (./ or
// ../) are resolved against. baseDir must be non-empty if top contains
// any relative include — spec.md §4.3 treats a relative include with no
// base directory as a programmer error and terminates.
func (r *Resolver) Resolve(top *sexpr.Node, baseDir string) error {
	return r.walk(top, baseDir)
}

// walk mirrors the structure of the lookup traversal used throughout the
// core (spec.md §5): top-level, then recursively into every
// (module ...) / (program ...) grouping.
func (r *Resolver) walk(list *sexpr.Node, baseDir string) error {
	// Iterate by index, not range, because resolving an include can grow
	// list.Children in place (newly spliced-in forms may themselves need
	// to be walked for nested includes and module/program groupings).
	for i := 0; i < len(list.Children); i++ {
		form := list.Children[i]
		head := form.Head()
		if head == nil || head.Kind != sexpr.Atom {
			continue
		}
		switch head.Text {
		case "include":
			expanded, err := r.expandInclude(form, baseDir)
			if err != nil {
				return err
			}
			if expanded != nil {
				list.Children = spliceAt(list.Children, i, expanded)
				// Re-walk from i so nested includes in the spliced
				// forms, and any module/program groupings among them,
				// are themselves resolved.
				i--
			}
		case "module", "program":
			if err := r.walk(form, baseDir); err != nil {
				return err
			}
		}
	}
	return nil
}

func spliceAt(children []*sexpr.Node, i int, expanded []*sexpr.Node) []*sexpr.Node {
	out := make([]*sexpr.Node, 0, len(children)-1+len(expanded))
	out = append(out, children[:i]...)
	out = append(out, expanded...)
	out = append(out, children[i+1:]...)
	return out
}

// expandInclude resolves, reads, parses, and recursively resolves a
// single (include "path") form, returning the included file's top-level
// forms to splice in (nil if the path was already seen, per spec.md
// §4.3's cycle-avoidance step). The include head is neutralized in place
// so later walks ignore it even if the caller keeps the original node
// around (spec.md §4.3 step 4; idempotent per spec.md §5).
func (r *Resolver) expandInclude(form *sexpr.Node, baseDir string) ([]*sexpr.Node, error) {
	defer func() { form.Children[0] = sexpr.NewAtom("include-resolved", form.Children[0].Pos) }()

	if form.Len() != 2 || form.Nth(1).Kind != sexpr.Str {
		return nil, diag.New(form.Pos, diag.IncludeError, "malformed (include \"path\") form")
	}
	raw := form.Nth(1).Text

	resolved, err := r.resolvePath(raw, baseDir, form.Pos)
	if err != nil {
		return nil, err
	}
	canon, err := filepath.Abs(resolved)
	if err != nil {
		return nil, diag.Wrap(err, form.Pos, diag.IncludeError, "cannot resolve include path %q", raw)
	}
	canon = filepath.Clean(canon)
	if r.Seen[canon] {
		return nil, nil
	}
	r.Seen[canon] = true

	data, err := r.ReadFile(resolved)
	if err != nil {
		return nil, diag.Wrap(err, form.Pos, diag.IncludeError, "cannot read include %q", raw)
	}
	included, err := sexpr.Parse(resolved, string(data))
	if err != nil {
		return nil, err
	}
	if err := r.walk(included, filepath.Dir(resolved)); err != nil {
		return nil, err
	}
	return included.Children, nil
}

// resolvePath implements spec.md §4.3 step 1: a ./ or ../ path is
// relative to the including file's directory; otherwise each configured
// include directory is tried in order, and failing that the literal path
// is tried relative to the current working directory.
func (r *Resolver) resolvePath(raw, baseDir string, pos token.Position) (string, error) {
	if isRelative(raw) {
		if baseDir == "" {
			return "", diag.New(pos, diag.IncludeError, "relative include %q with no base directory", raw)
		}
		return filepath.Join(baseDir, raw), nil
	}
	for _, dir := range r.Dirs {
		candidate := filepath.Join(dir, raw)
		if fileExists(candidate) {
			return candidate, nil
		}
	}
	return raw, nil
}

func isRelative(path string) bool {
	return hasPrefix(path, "./") || hasPrefix(path, "../")
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
