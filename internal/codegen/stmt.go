package codegen

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"

	"github.com/weave-lang/weave/internal/diag"
	"github.com/weave-lang/weave/internal/sexpr"
	"github.com/weave-lang/weave/internal/sig"
	"github.com/weave-lang/weave/internal/token"
	"github.com/weave-lang/weave/internal/varenv"
	"github.com/weave-lang/weave/internal/wtype"
)

// CompileFunction compiles one user fn/entry's body into the already
// predeclared f: materializes every parameter into a stack slot (spec.md
// §4.7's prologue), compiles the statement sequence, and, unless the body
// definitely returns, emits the implicit-return default spec.md §4.7
// specifies (ret void for Void, the last expression's value coerced to
// the return type, or a type-appropriate zero value).
func (c *Context) CompileFunction(f *ir.Func, emitName string, params []sig.Param, ret wtype.Type, body *sexpr.Node) error {
	env := c.BeginFunction(f, emitName, params, ret)
	definitelyReturns, last, err := c.GenStmts(env, body.Tail(1))
	if err != nil {
		return err
	}
	return c.FinishFunction(definitelyReturns, last)
}

// NewBareFunc declares a parameterless function returning ret, used for
// the per-test functions and the synthetic test-mode main (spec.md §4.8),
// which have no user-facing signature to collect through internal/sig.
func (c *Context) NewBareFunc(name string, ret wtype.Type) *ir.Func {
	f := c.Module.NewFunc(name, c.TT.LLVM(ret))
	c.funcs[name] = f
	return f
}

// BeginFunction moves the Context's insertion point onto a fresh entry
// block of f, materializes every parameter into a stack slot (spec.md
// §4.7's prologue), and returns the VarEnv seeded with those parameters.
// Used both for ordinary fn/entry bodies and, via internal/testgen, for
// each generated test function.
func (c *Context) BeginFunction(f *ir.Func, emitName string, params []sig.Param, ret wtype.Type) *varenv.Env {
	c.currentFn = emitName
	c.curIRFunc = f
	c.retType = ret

	entry := f.NewBlock(c.freshLabel("entry"))
	c.SetBlock(entry)

	env := varenv.New()
	for i, p := range params {
		slot := entry.NewAlloca(c.TT.LLVM(p.Type))
		entry.NewStore(f.Params[i], slot)
		b := env.Push(p.Name, varenv.Parameter, p.Type, slot)
		slot.SetName(b.SSAName)
	}
	return env
}

// FinishFunction emits the implicit-return default (spec.md §4.7) unless
// definitelyReturns is already true.
func (c *Context) FinishFunction(definitelyReturns bool, last *Val) error {
	if !definitelyReturns {
		return c.emitImplicitReturn(last)
	}
	return nil
}

// emitImplicitReturn implements spec.md §4.7's implicit-return default:
// ret void for Void, the last expression's value coerced to the return
// type if one is available, or a type-appropriate zero value if the body
// produced none. A last value that cannot be coerced is a fatal
// TypeMismatch (spec.md §4.10) — never silently replaced by a zero value,
// since that would mask a genuine type error as a successful compile.
func (c *Context) emitImplicitReturn(last *Val) error {
	b := c.Block()
	if c.retType.Kind == wtype.KVoid {
		b.NewRet(nil)
		return nil
	}
	if last != nil {
		coerced, err := c.EnsureType(b, *last, c.retType, token.Position{}, "implicit return")
		if err != nil {
			return err
		}
		b.NewRet(coerced.IR)
		return nil
	}
	b.NewRet(c.zeroValue(c.retType))
	return nil
}

// zeroValue builds the type-appropriate default value spec.md §4.7 calls
// for when a function body falls through with no usable last value: 0 for
// Int32, a null pointer for pointer-shaped types, zeroinitializer for a
// record.
func (c *Context) zeroValue(t wtype.Type) constant.Constant {
	switch t.Kind {
	case wtype.KInt32:
		return constant.NewInt(types.I32, 0)
	case wtype.KPointerToByte:
		return constant.NewNull(types.I8Ptr)
	case wtype.KPointer:
		return constant.NewNull(c.TT.LLVM(t).(*types.PointerType))
	case wtype.KRecord:
		return constant.NewZeroInitializer(c.TT.LLVM(t))
	default:
		return constant.NewInt(types.I32, 0)
	}
}

// GenStmts compiles a flat sequence of statement forms, per spec.md §4.7.
// It returns whether the sequence definitely returns (so the caller can
// suppress an implicit/default return) and the last bare-expression value
// seen (for implicit-return semantics). A `let`'s own trailing statements
// share this same flat scope (spec.md §3's VarEnv: a `let` binding stays
// visible to every statement that follows it in the enclosing sequence,
// including ones from a sibling `inspect`/`body` section compiled in the
// same call — see internal/testgen).
func (c *Context) GenStmts(env *varenv.Env, stmts []*sexpr.Node) (bool, *Val, error) {
	var last *Val
	for i := 0; i < len(stmts); i++ {
		form := stmts[i]
		if form.Kind != sexpr.List {
			v, err := c.GenExpr(env, form)
			if err != nil {
				return false, nil, err
			}
			last = &v
			continue
		}
		head := form.Head()
		headText := ""
		if head != nil && head.Kind == sexpr.Atom {
			headText = head.Text
		}
		switch headText {
		case "doc":
			// no-op

		case "return":
			v, err := c.GenExpr(env, form.Nth(1))
			if err != nil {
				return false, nil, err
			}
			v, err = c.EnsureType(c.Block(), v, c.retType, form.Pos, "return")
			if err != nil {
				return false, nil, err
			}
			if c.retType.Kind == wtype.KVoid {
				c.Block().NewRet(nil)
			} else {
				c.Block().NewRet(v.IR)
			}
			return true, last, nil

		case "let":
			if err := c.genLet(env, form); err != nil {
				return false, nil, err
			}
			if form.Len() > 4 {
				ret, trailingLast, err := c.GenStmts(env, form.Tail(4))
				if err != nil {
					return false, nil, err
				}
				if trailingLast != nil {
					last = trailingLast
				}
				if ret {
					return true, last, nil
				}
			}

		case "set":
			if err := c.genSet(env, form); err != nil {
				return false, nil, err
			}

		case "store":
			if err := c.genStore(env, form); err != nil {
				return false, nil, err
			}

		case "set-field":
			if err := c.genSetField(env, form); err != nil {
				return false, nil, err
			}

		case "do":
			ret, doLast, err := c.GenStmts(env, form.Tail(1))
			if err != nil {
				return false, nil, err
			}
			if doLast != nil {
				last = doLast
			}
			if ret {
				return true, last, nil
			}

		case "if-stmt":
			ret, err := c.genIfStmt(env, form)
			if err != nil {
				return false, nil, err
			}
			if ret {
				return true, last, nil
			}

		case "while":
			if err := c.genWhile(env, form); err != nil {
				return false, nil, err
			}

		default:
			v, err := c.GenExpr(env, form)
			if err != nil {
				return false, nil, err
			}
			last = &v
		}
	}
	return false, last, nil
}

func (c *Context) genLet(env *varenv.Env, form *sexpr.Node) error {
	if form.Len() < 4 || form.Nth(1).Kind != sexpr.Atom {
		return diag.New(form.Pos, diag.BadForm, "malformed let")
	}
	name := form.Nth(1).Text
	typ := c.Types.ParseTypeNode(form.Nth(2))
	v, err := c.GenExpr(env, form.Nth(3))
	if err != nil {
		return err
	}
	v, err = c.EnsureType(c.Block(), v, typ, form.Pos, "let "+name)
	if err != nil {
		return err
	}
	slot := c.Block().NewAlloca(c.TT.LLVM(typ))
	c.Block().NewStore(v.IR, slot)
	b := env.Push(name, varenv.Local, typ, slot)
	slot.SetName(b.SSAName)
	return nil
}

func (c *Context) genSet(env *varenv.Env, form *sexpr.Node) error {
	if form.Len() != 3 || form.Nth(1).Kind != sexpr.Atom {
		return diag.New(form.Pos, diag.BadForm, "malformed set")
	}
	name := form.Nth(1).Text
	b, ok := env.Lookup(name)
	if !ok {
		return diag.New(form.Pos, diag.BadForm, "unbound identifier %q", name)
	}
	v, err := c.GenExpr(env, form.Nth(2))
	if err != nil {
		return err
	}
	v, err = c.EnsureType(c.Block(), v, b.Type, form.Pos, "set "+name)
	if err != nil {
		return err
	}
	c.Block().NewStore(v.IR, b.Slot)
	return nil
}

func (c *Context) genStore(env *varenv.Env, form *sexpr.Node) error {
	if form.Len() != 4 {
		return diag.New(form.Pos, diag.BadForm, "malformed store")
	}
	typ := c.Types.ParseTypeNode(form.Nth(1))
	ptrVal, err := c.GenExpr(env, form.Nth(2))
	if err != nil {
		return err
	}
	v, err := c.GenExpr(env, form.Nth(3))
	if err != nil {
		return err
	}
	v, err = c.EnsureType(c.Block(), v, typ, form.Pos, "store")
	if err != nil {
		return err
	}
	c.Block().NewStore(v.IR, ptrVal.IR)
	return nil
}

func (c *Context) genSetField(env *varenv.Env, form *sexpr.Node) error {
	if form.Len() != 4 {
		return diag.New(form.Pos, diag.BadForm, "malformed set-field")
	}
	base, def, err := c.fieldBase(env, form.Nth(1))
	if err != nil {
		return err
	}
	if def == nil {
		return diag.New(form.Pos, diag.BadForm, "set-field base has no known record definition")
	}
	fieldName := form.Nth(2).Text
	idx := def.FieldIndex(fieldName)
	if idx < 0 {
		return diag.New(form.Pos, diag.BadForm, "record %s has no field %q", def.Name, fieldName)
	}
	field := def.Fields[idx]
	v, err := c.GenExpr(env, form.Nth(3))
	if err != nil {
		return err
	}
	v, err = c.EnsureType(c.Block(), v, field.Type, form.Pos, "set-field "+fieldName)
	if err != nil {
		return err
	}
	st, _ := c.TT.Record(def.Name)
	slot := c.Block().NewGetElementPtr(st, base, constant.NewInt(types.I32, 0), constant.NewInt(types.I32, int64(idx)))
	c.Block().NewStore(v.IR, slot)
	return nil
}

// genIfStmt lowers `(if-stmt cond then else)`. If both arms definitely
// return, no join block is emitted; if at least one arm falls through, the
// join block is emitted even when the other arm returns (spec.md §9's Open
// Question, kept at its stated current behavior).
func (c *Context) genIfStmt(env *varenv.Env, form *sexpr.Node) (bool, error) {
	if form.Len() != 4 {
		return false, diag.New(form.Pos, diag.BadForm, "malformed if-stmt")
	}
	cond, err := c.GenExpr(env, form.Nth(1))
	if err != nil {
		return false, err
	}
	cond, err = c.EnsureType(c.Block(), cond, wtype.Int32, form.Pos, "if-stmt condition")
	if err != nil {
		return false, err
	}
	test := c.Block().NewICmp(enum.IPredNE, cond.IR, constant.NewInt(types.I32, 0))

	thenBlock := c.NewBlock("if.then")
	elseBlock := c.NewBlock("if.else")
	c.Block().NewCondBr(test, thenBlock, elseBlock)

	c.SetBlock(thenBlock)
	thenReturns, _, err := c.GenStmts(env, []*sexpr.Node{form.Nth(2)})
	if err != nil {
		return false, err
	}
	thenEnd := c.Block()

	c.SetBlock(elseBlock)
	elseReturns, _, err := c.GenStmts(env, []*sexpr.Node{form.Nth(3)})
	if err != nil {
		return false, err
	}
	elseEnd := c.Block()

	if thenReturns && elseReturns {
		return true, nil
	}

	join := c.NewBlock("if.end")
	if !thenReturns {
		thenEnd.NewBr(join)
	}
	if !elseReturns {
		elseEnd.NewBr(join)
	}
	c.SetBlock(join)
	return false, nil
}

// genWhile lowers `(while cond body)`: header/body/end blocks with a
// back-edge from the body's fall-through into the header (spec.md §4.7).
func (c *Context) genWhile(env *varenv.Env, form *sexpr.Node) error {
	if form.Len() != 3 {
		return diag.New(form.Pos, diag.BadForm, "malformed while")
	}
	header := c.NewBlock("while.header")
	body := c.NewBlock("while.body")
	end := c.NewBlock("while.end")

	c.Block().NewBr(header)

	c.SetBlock(header)
	cond, err := c.GenExpr(env, form.Nth(1))
	if err != nil {
		return err
	}
	cond, err = c.EnsureType(c.Block(), cond, wtype.Int32, form.Pos, "while condition")
	if err != nil {
		return err
	}
	test := c.Block().NewICmp(enum.IPredNE, cond.IR, constant.NewInt(types.I32, 0))
	c.Block().NewCondBr(test, body, end)

	c.SetBlock(body)
	bodyReturns, _, err := c.GenStmts(env, []*sexpr.Node{form.Nth(2)})
	if err != nil {
		return err
	}
	if !bodyReturns {
		c.Block().NewBr(header)
	}

	c.SetBlock(end)
	return nil
}
