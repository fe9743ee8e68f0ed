// Command weave is the bootstrap compiler's front end: it wires the
// lexer/parser, include resolver, type and signature collectors, code
// generator, and (optionally) the test-generation pass together, then
// either prints the emitted IR or hands it to an external LLVM backend.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/llir/llvm/ir"

	"github.com/weave-lang/weave/internal/backend"
	"github.com/weave-lang/weave/internal/codegen"
	"github.com/weave-lang/weave/internal/diag"
	"github.com/weave-lang/weave/internal/include"
	"github.com/weave-lang/weave/internal/sexpr"
	"github.com/weave-lang/weave/internal/sig"
	"github.com/weave-lang/weave/internal/testgen"
	"github.com/weave-lang/weave/internal/wtype"
)

type includeDirs []string

func (d *includeDirs) String() string { return strings.Join(*d, ",") }
func (d *includeDirs) Set(v string) error {
	*d = append(*d, v)
	return nil
}

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	args = splitSmushedIncludeFlags(args)

	fs := flag.NewFlagSet("weave", flag.ContinueOnError)

	var (
		input      string
		output     string
		emitLLVM   bool
		compileObj bool
		optimize   bool
		static     bool
		runtime    string
		clangPath  string
		runTests   bool
		listTests  bool
		dirs       includeDirs
		names      stringList
		tags       stringList
	)

	fs.StringVar(&input, "input", "", "input source file (default: positional argument)")
	fs.StringVar(&output, "o", "a.out", "output path")
	fs.StringVar(&output, "output", "a.out", "output path")
	fs.BoolVar(&emitLLVM, "S", false, "emit textual LLVM IR instead of compiling")
	fs.BoolVar(&emitLLVM, "emit-llvm", false, "emit textual LLVM IR instead of compiling")
	fs.BoolVar(&compileObj, "c", false, "compile to an object file instead of linking an executable")
	fs.BoolVar(&optimize, "O", false, "enable backend optimization")
	fs.BoolVar(&optimize, "O2", false, "enable backend optimization")
	fs.BoolVar(&optimize, "optimize", false, "enable backend optimization")
	fs.BoolVar(&static, "static", false, "request a statically linked executable")
	fs.StringVar(&runtime, "runtime", "", "path to the runtime helper library (default: $WEAVE_RUNTIME)")
	fs.StringVar(&clangPath, "clang", "", "path to the clang binary used as the backend (default: clang on PATH)")
	fs.Var(&dirs, "I", "include search directory (repeatable, first match wins; default \".\")")
	fs.Var(&dirs, "include-dir", "include search directory (repeatable, first match wins; default \".\")")
	fs.BoolVar(&runTests, "run-tests", false, "compile in test-generation mode and emit the synthetic test runner")
	fs.Var(&names, "test", "run only the named test (repeatable, implies -run-tests)")
	fs.Var(&tags, "tag", "run only tests carrying this tag (repeatable, implies -run-tests)")
	fs.BoolVar(&listTests, "list-tests", false, "list eligible test names and exit, without emitting any IR")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if input == "" {
		if rest := fs.Args(); len(rest) > 0 {
			input = rest[0]
		}
	}
	if input == "" {
		fmt.Fprintln(os.Stderr, "weave: missing input file")
		return 2
	}
	if len(dirs) == 0 {
		dirs = includeDirs{"."}
	}
	if len(names) > 0 || len(tags) > 0 {
		runTests = true
	}

	opts := codegen.Options{TestMode: runTests, Names: names, Tags: tags}

	data, err := os.ReadFile(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "weave: cannot read %s: %v\n", input, err)
		return 1
	}

	top, err := sexpr.Parse(input, string(data))
	if err != nil {
		reportErr(err)
		return 1
	}

	resolver := include.NewResolver([]string(dirs))
	if err := resolver.Resolve(top, filepath.Dir(input)); err != nil {
		reportErr(err)
		return 1
	}

	tenv, err := wtype.Collect(top)
	if err != nil {
		reportErr(err)
		return 1
	}

	table, decls, err := sig.Collect(top, tenv)
	if err != nil {
		reportErr(err)
		return 1
	}

	if listTests {
		for _, name := range codegen.ListTests(decls, opts) {
			fmt.Println(name)
		}
		return 0
	}

	ctx, err := codegen.Generate(tenv, table, decls)
	if err != nil {
		reportErr(err)
		return 1
	}

	if runTests {
		if _, err := testgen.Generate(ctx, decls, opts); err != nil {
			reportErr(err)
			return 1
		}
	}

	for _, w := range ctx.Warnings {
		fmt.Fprintln(os.Stderr, w.String())
	}

	externsFirst(ctx.Module)
	ir := ctx.Module.String()

	if emitLLVM {
		if output == "a.out" {
			fmt.Print(ir)
			return 0
		}
		if err := os.WriteFile(output, []byte(ir), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "weave: cannot write %s: %v\n", output, err)
			return 1
		}
		return 0
	}

	kind := backend.Executable
	if compileObj {
		kind = backend.Object
	}
	optLevel := 0
	if optimize {
		optLevel = 1
	}
	inv := backend.ClangInvoker{ClangPath: clangPath}
	req := backend.Request{
		IR:          ir,
		OutputPath:  output,
		Kind:        kind,
		OptLevel:    optLevel,
		Static:      static,
		RuntimePath: backend.ResolveRuntimePath(runtime),
	}
	if err := inv.Invoke(req); err != nil {
		fmt.Fprintf(os.Stderr, "weave: %v\n", err)
		return 1
	}
	return 0
}

// splitSmushedIncludeFlags rewrites "-Ifoo" into "-I" "foo" so the
// stdlib flag package, which has no notion of a no-separator custom
// flag, accepts the conventional compiler spelling alongside "-I foo"
// and "-I=foo"/"--include-dir=foo".
func splitSmushedIncludeFlags(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if strings.HasPrefix(a, "-I") && a != "-I" && !strings.HasPrefix(a, "-I=") && !strings.HasPrefix(a, "--") {
			out = append(out, "-I", a[2:])
			continue
		}
		out = append(out, a)
	}
	return out
}

// externsFirst reorders m's functions so every extern declaration is
// printed ahead of the defined bodies, each group keeping creation order.
// Type definitions and globals already precede all functions in the text.
func externsFirst(m *ir.Module) {
	var externs, bodies []*ir.Func
	for _, f := range m.Funcs {
		if f.Blocks == nil {
			externs = append(externs, f)
		} else {
			bodies = append(bodies, f)
		}
	}
	m.Funcs = append(externs, bodies...)
}

func reportErr(err error) {
	if de, ok := err.(*diag.Error); ok {
		fmt.Fprintln(os.Stderr, de.Error())
		return
	}
	fmt.Fprintf(os.Stderr, "weave: %v\n", err)
}
