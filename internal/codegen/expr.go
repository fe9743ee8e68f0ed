package codegen

import (
	"strconv"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/weave-lang/weave/internal/diag"
	"github.com/weave-lang/weave/internal/sexpr"
	"github.com/weave-lang/weave/internal/varenv"
	"github.com/weave-lang/weave/internal/wtype"
)

// GenExpr lowers a single expression node to an SSA value, per spec.md
// §4.6's dispatch table. It appends instructions to the current block
// (c.Block()); forms that need to branch (only `(block ...)`, via the
// statement compiler) move the current block themselves.
func (c *Context) GenExpr(env *varenv.Env, n *sexpr.Node) (Val, error) {
	if n == nil {
		return Val{IR: constant.NewInt(types.I32, 0), Type: wtype.Int32}, nil
	}
	switch n.Kind {
	case sexpr.Atom:
		return c.genAtom(env, n)
	case sexpr.Str:
		return c.InternString(n.Text), nil
	case sexpr.List:
		return c.genList(env, n)
	default:
		return Val{}, diag.New(n.Pos, diag.InternalInvariant, "unrecognized node kind")
	}
}

func (c *Context) genAtom(env *varenv.Env, n *sexpr.Node) (Val, error) {
	if x, err := strconv.ParseInt(n.Text, 10, 64); err == nil {
		return Val{IR: constant.NewInt(types.I32, x), Type: wtype.Int32}, nil
	}
	b, ok := env.Lookup(n.Text)
	if !ok {
		return Val{}, diag.New(n.Pos, diag.BadForm, "unbound identifier %q", n.Text)
	}
	loaded := c.Block().NewLoad(c.TT.LLVM(b.Type), b.Slot)
	return Val{IR: loaded, Type: b.Type}, nil
}

func (c *Context) genList(env *varenv.Env, n *sexpr.Node) (Val, error) {
	head := n.Head()
	if head == nil || head.Kind != sexpr.Atom {
		return Val{}, diag.New(n.Pos, diag.BadForm, "expression form must start with an atom")
	}
	switch head.Text {
	case "doc":
		return Val{IR: constant.NewInt(types.I32, 0), Type: wtype.Int32}, nil
	case "block":
		return c.genBlock(env, n)
	case "addr":
		return c.genAddr(env, n.Nth(1), nil)
	case "addr-of":
		typ := c.Types.ParseTypeNode(n.Nth(1))
		return c.genAddr(env, n.Nth(2), &typ)
	case "load":
		return c.genLoad(env, n)
	case "make":
		return c.genMake(env, n)
	case "get-field":
		return c.genGetField(env, n)
	case "bitcast":
		return c.genBitcast(env, n)
	case "+", "-", "*", "/":
		return c.genArith(env, n, head.Text)
	case "==", "!=", "<", "<=", ">", ">=":
		return c.genCompare(env, n, head.Text)
	case "&&", "||":
		return c.genLogical(env, n, head.Text)
	case "ccall":
		return c.genCcall(env, n)
	case "llvm-jit":
		return c.genLLVMJit(env, n)
	default:
		return c.genCall(env, n, head.Text)
	}
}

// genBlock lowers `(block e1 ... en)`: inner forms are dispatched through
// the statement compiler (so a `let`/`if-stmt`/etc. may appear), and the
// block's own value is that of the last expression (Int32(0) if empty),
// per spec.md §4.6.
func (c *Context) genBlock(env *varenv.Env, n *sexpr.Node) (Val, error) {
	mark := env.Mark()
	defer env.PopTo(mark)

	_, last, err := c.GenStmts(env, n.Tail(1))
	if err != nil {
		return Val{}, err
	}
	if last == nil {
		return Val{IR: constant.NewInt(types.I32, 0), Type: wtype.Int32}, nil
	}
	return *last, nil
}

// genAddr lowers `(addr x)` / `(addr-of T x)`: x must be a bound
// identifier; the result is Pointer(type_of(x)), i.e. the identifier's
// own storage slot. addr-of optionally asserts a declared type, warning
// (not failing) on a mismatch (spec.md §4.6).
func (c *Context) genAddr(env *varenv.Env, x *sexpr.Node, declared *wtype.Type) (Val, error) {
	if x == nil || x.Kind != sexpr.Atom {
		return Val{}, diag.New(x.Pos, diag.BadForm, "addr/addr-of requires a bound identifier")
	}
	b, ok := env.Lookup(x.Text)
	if !ok {
		return Val{}, diag.New(x.Pos, diag.BadForm, "unbound identifier %q", x.Text)
	}
	resultType := wtype.Pointer(b.Type)
	if declared != nil && !declared.Equal(b.Type) {
		c.warn(x.Pos, "addr-of declared type %s does not match %s's actual type %s", *declared, x.Text, b.Type)
	}
	return Val{IR: b.Slot, Type: resultType}, nil
}

// genLoad lowers `(load T ptr)`.
func (c *Context) genLoad(env *varenv.Env, n *sexpr.Node) (Val, error) {
	typ := c.Types.ParseTypeNode(n.Nth(1))
	ptrVal, err := c.GenExpr(env, n.Nth(2))
	if err != nil {
		return Val{}, err
	}
	if !ptrVal.Type.IsPointerLike() {
		return Val{}, diag.New(n.Pos, diag.BadForm, "load requires a pointer operand, got %s", ptrVal.Type)
	}
	loaded := c.Block().NewLoad(c.TT.LLVM(typ), ptrVal.IR)
	return Val{IR: loaded, Type: typ}, nil
}

// genMake lowers `(make T (field v) ...)`: sizeof(T) via the null-GEP
// trick, malloc, bitcast, then one GEP+store per named field. A field
// name that the record doesn't declare defaults to index 0 with Int32
// (spec.md §4.6).
func (c *Context) genMake(env *varenv.Env, n *sexpr.Node) (Val, error) {
	typ := c.Types.ParseTypeNode(n.Nth(1))
	if typ.Kind != wtype.KRecord {
		return Val{}, diag.New(n.Pos, diag.BadForm, "make requires a record type, got %s", typ)
	}
	st, ok := c.TT.Record(typ.Name)
	if !ok {
		return Val{}, diag.New(n.Pos, diag.BadForm, "make of undeclared record %s", typ.Name)
	}
	def, _ := c.Types.LookupRecord(typ.Name)

	b := c.Block()
	sz := c.sizeofType(b, st)
	raw := b.NewCall(c.declareMalloc(), sz.IR)
	selfType := wtype.Pointer(typ)
	self := b.NewBitCast(raw, c.TT.LLVM(selfType))

	for _, fieldForm := range n.Tail(2) {
		if fieldForm.Len() != 2 || fieldForm.Nth(0).Kind != sexpr.Atom {
			return Val{}, diag.New(fieldForm.Pos, diag.BadForm, "malformed make field initializer")
		}
		fieldName := fieldForm.Nth(0).Text
		idx := 0
		fieldType := wtype.Int32
		if def != nil {
			if i := def.FieldIndex(fieldName); i >= 0 {
				idx = i
				fieldType = def.Fields[i].Type
			}
		}
		v, err := c.GenExpr(env, fieldForm.Nth(1))
		if err != nil {
			return Val{}, err
		}
		v, err = c.EnsureType(c.Block(), v, fieldType, fieldForm.Pos, "make field "+fieldName)
		if err != nil {
			return Val{}, err
		}
		slot := c.Block().NewGetElementPtr(st, self,
			constant.NewInt(types.I32, 0), constant.NewInt(types.I32, int64(idx)))
		c.Block().NewStore(v.IR, slot)
	}
	return Val{IR: self, Type: selfType}, nil
}

// fieldBase resolves the addressable base pointer and record definition
// for a `get-field`/`set-field` base expression, accepting either a
// Record-by-value identifier (its own slot is already the struct address)
// or a Pointer(Record) expression (spec.md §4.6, §9's Open Question: a
// by-value base only works when it is already addressable).
func (c *Context) fieldBase(env *varenv.Env, base *sexpr.Node) (value.Value, *wtype.RecordDef, error) {
	if base.Kind == sexpr.Atom {
		if b, ok := env.Lookup(base.Text); ok {
			switch b.Type.Kind {
			case wtype.KRecord:
				def, _ := c.Types.LookupRecord(b.Type.Name)
				return b.Slot, def, nil
			case wtype.KPointer:
				if b.Type.Elem.Kind == wtype.KRecord {
					loaded := c.Block().NewLoad(c.TT.LLVM(b.Type), b.Slot)
					def, _ := c.Types.LookupRecord(b.Type.Elem.Name)
					return loaded, def, nil
				}
			}
		}
	}
	v, err := c.GenExpr(env, base)
	if err != nil {
		return nil, nil, err
	}
	if v.Type.Kind == wtype.KPointer && v.Type.Elem.Kind == wtype.KRecord {
		def, _ := c.Types.LookupRecord(v.Type.Elem.Name)
		return v.IR, def, nil
	}
	return nil, nil, diag.New(base.Pos, diag.TypeMismatch, "get-field/set-field base is not addressable").
		WithDetail("in function %s: wanted Record or Pointer(Record), got %s", c.currentFn, v.Type)
}

// genGetField lowers `(get-field e field)`.
func (c *Context) genGetField(env *varenv.Env, n *sexpr.Node) (Val, error) {
	base, def, err := c.fieldBase(env, n.Nth(1))
	if err != nil {
		return Val{}, err
	}
	if def == nil {
		return Val{}, diag.New(n.Pos, diag.BadForm, "get-field base has no known record definition")
	}
	fieldName := n.Nth(2).Text
	idx := def.FieldIndex(fieldName)
	if idx < 0 {
		return Val{}, diag.New(n.Pos, diag.BadForm, "record %s has no field %q", def.Name, fieldName)
	}
	field := def.Fields[idx]
	st, _ := c.TT.Record(def.Name)
	slot := c.Block().NewGetElementPtr(st, base, constant.NewInt(types.I32, 0), constant.NewInt(types.I32, int64(idx)))
	loaded := c.Block().NewLoad(c.TT.LLVM(field.Type), slot)
	return Val{IR: loaded, Type: field.Type}, nil
}

// genBitcast lowers `(bitcast T e)`, unconditionally (spec.md §9's Open
// Question: accepted as-is, no restriction to pointer-like source types).
func (c *Context) genBitcast(env *varenv.Env, n *sexpr.Node) (Val, error) {
	typ := c.Types.ParseTypeNode(n.Nth(1))
	v, err := c.GenExpr(env, n.Nth(2))
	if err != nil {
		return Val{}, err
	}
	return Val{IR: c.Block().NewBitCast(v.IR, c.TT.LLVM(typ)), Type: typ}, nil
}

func (c *Context) genArith(env *varenv.Env, n *sexpr.Node, op string) (Val, error) {
	lv, rv, err := c.evalBinaryInt(env, n)
	if err != nil {
		return Val{}, err
	}
	b := c.Block()
	var ir value.Value
	switch op {
	case "+":
		ir = b.NewAdd(lv.IR, rv.IR)
	case "-":
		ir = b.NewSub(lv.IR, rv.IR)
	case "*":
		ir = b.NewMul(lv.IR, rv.IR)
	case "/":
		ir = b.NewSDiv(lv.IR, rv.IR)
	}
	return Val{IR: ir, Type: wtype.Int32}, nil
}

// genCompare lowers `(== != < <= > >= a b)`: == and != use a
// PointerToByte comparison when either operand is pointer-shaped;
// otherwise every comparison is signed integer (spec.md §4.6).
func (c *Context) genCompare(env *varenv.Env, n *sexpr.Node, op string) (Val, error) {
	lv, err := c.GenExpr(env, n.Nth(1))
	if err != nil {
		return Val{}, err
	}
	rv, err := c.GenExpr(env, n.Nth(2))
	if err != nil {
		return Val{}, err
	}
	b := c.Block()
	target := wtype.Int32
	if (op == "==" || op == "!=") && (lv.Type.IsPointerLike() || rv.Type.IsPointerLike()) {
		target = wtype.PointerToByte
	}
	lv, err = c.EnsureType(b, lv, target, n.Pos, "comparison left operand")
	if err != nil {
		return Val{}, err
	}
	rv, err = c.EnsureType(b, rv, target, n.Pos, "comparison right operand")
	if err != nil {
		return Val{}, err
	}
	pred := map[string]enum.IPred{
		"==": enum.IPredEQ, "!=": enum.IPredNE,
		"<": enum.IPredSLT, "<=": enum.IPredSLE,
		">": enum.IPredSGT, ">=": enum.IPredSGE,
	}[op]
	cmp := b.NewICmp(pred, lv.IR, rv.IR)
	return Val{IR: b.NewZExt(cmp, types.I32), Type: wtype.Int32}, nil
}

// genLogical lowers `(&& a b)` / `(|| a b)`: each side is tested against
// zero, the logical op applies to i1, and the result zero-extends back to
// Int32 (spec.md §4.6).
func (c *Context) genLogical(env *varenv.Env, n *sexpr.Node, op string) (Val, error) {
	lv, rv, err := c.evalBinaryInt(env, n)
	if err != nil {
		return Val{}, err
	}
	b := c.Block()
	zero := constant.NewInt(types.I32, 0)
	lb := b.NewICmp(enum.IPredNE, lv.IR, zero)
	rb := b.NewICmp(enum.IPredNE, rv.IR, zero)
	var logical value.Value
	if op == "&&" {
		logical = b.NewAnd(lb, rb)
	} else {
		logical = b.NewOr(lb, rb)
	}
	return Val{IR: b.NewZExt(logical, types.I32), Type: wtype.Int32}, nil
}

func (c *Context) evalBinaryInt(env *varenv.Env, n *sexpr.Node) (Val, Val, error) {
	lv, err := c.GenExpr(env, n.Nth(1))
	if err != nil {
		return Val{}, Val{}, err
	}
	rv, err := c.GenExpr(env, n.Nth(2))
	if err != nil {
		return Val{}, Val{}, err
	}
	lv, err = c.EnsureType(c.Block(), lv, wtype.Int32, n.Pos, "binary operand")
	if err != nil {
		return Val{}, Val{}, err
	}
	rv, err = c.EnsureType(c.Block(), rv, wtype.Int32, n.Pos, "binary operand")
	if err != nil {
		return Val{}, Val{}, err
	}
	return lv, rv, nil
}

// genCcall lowers `(ccall sym (returns T) (args (T1 e1) ...))`: declares
// sym exactly once with the literal signature given at the call site
// (spec.md §4.6, §7: BadForm if (returns ...) is missing).
func (c *Context) genCcall(env *varenv.Env, n *sexpr.Node) (Val, error) {
	if n.Len() < 4 || n.Nth(1).Kind != sexpr.Atom {
		return Val{}, diag.New(n.Pos, diag.BadForm, "malformed ccall: missing symbol")
	}
	sym := n.Nth(1).Text
	returnsForm := n.Nth(2)
	if !returnsForm.HeadIs("returns") || returnsForm.Len() != 2 {
		return Val{}, diag.New(n.Pos, diag.BadForm, "ccall %s is missing (returns T)", sym)
	}
	retType := c.Types.ParseTypeNode(returnsForm.Nth(1))
	argsForm := n.Nth(3)
	if !argsForm.HeadIs("args") {
		return Val{}, diag.New(n.Pos, diag.BadForm, "ccall %s is missing (args ...)", sym)
	}

	var paramTypes []wtype.Type
	var argExprs []*sexpr.Node
	for _, a := range argsForm.Tail(1) {
		if a.Len() != 2 {
			return Val{}, diag.New(a.Pos, diag.BadForm, "malformed ccall argument")
		}
		paramTypes = append(paramTypes, c.Types.ParseTypeNode(a.Nth(0)))
		argExprs = append(argExprs, a.Nth(1))
	}

	variadic := sym == "printf"
	llvmParams := make([]types.Type, len(paramTypes))
	for i, t := range paramTypes {
		llvmParams[i] = c.TT.LLVM(t)
	}
	fn := c.DeclareExtern(sym, llvmParams, c.TT.LLVM(retType), variadic)

	args := make([]value.Value, len(argExprs))
	for i, e := range argExprs {
		v, err := c.GenExpr(env, e)
		if err != nil {
			return Val{}, err
		}
		v, err = c.EnsureType(c.Block(), v, paramTypes[i], e.Pos, "ccall argument "+sym)
		if err != nil {
			return Val{}, err
		}
		args[i] = v.IR
	}
	call := c.Block().NewCall(fn, args...)
	if retType.Kind == wtype.KVoid {
		return Val{IR: constant.NewInt(types.I32, 0), Type: wtype.Int32}, nil
	}
	return Val{IR: call, Type: retType}, nil
}

// genLLVMJit lowers `(llvm-jit "ir" "fname" (args e e))`: interns the IR
// text and function name as globals and calls the runtime JIT helper
// (spec.md §4.6).
func (c *Context) genLLVMJit(env *varenv.Env, n *sexpr.Node) (Val, error) {
	if n.Len() != 4 || n.Nth(1).Kind != sexpr.Str || n.Nth(2).Kind != sexpr.Str {
		return Val{}, diag.New(n.Pos, diag.BadForm, "llvm-jit requires literal IR text and function name")
	}
	argsForm := n.Nth(3)
	if !argsForm.HeadIs("args") || argsForm.Len() != 3 {
		return Val{}, diag.New(n.Pos, diag.BadForm, "llvm-jit requires exactly two (args a1 a2)")
	}
	irGlobal := c.InternString(n.Nth(1).Text)
	nameGlobal := c.InternString(n.Nth(2).Text)

	a1, err := c.GenExpr(env, argsForm.Nth(1))
	if err != nil {
		return Val{}, err
	}
	a2, err := c.GenExpr(env, argsForm.Nth(2))
	if err != nil {
		return Val{}, err
	}
	a1, err = c.EnsureType(c.Block(), a1, wtype.Int32, n.Pos, "llvm-jit argument")
	if err != nil {
		return Val{}, err
	}
	a2, err = c.EnsureType(c.Block(), a2, wtype.Int32, n.Pos, "llvm-jit argument")
	if err != nil {
		return Val{}, err
	}
	helper, ok := c.DeclareFromSig("llvm_jit_call_i32_i32_i32")
	if !ok {
		return Val{}, diag.New(n.Pos, diag.InternalInvariant, "llvm_jit_call_i32_i32_i32 missing from builtin signatures")
	}
	call := c.Block().NewCall(helper, irGlobal.IR, nameGlobal.IR, a1.IR, a2.IR)
	return Val{IR: call, Type: wtype.Int32}, nil
}

// genCall lowers an ordinary call `(name e1 ... en)`: arguments coerce to
// the callee's declared parameter types before the call is emitted
// (spec.md §4.6). The callee resolves, in order, to: an already
// predeclared user function; a builtin/runtime extern installed in the
// FnTable; or, failing both, the bootstrap-flexibility default signature,
// declared as an extern on first use.
func (c *Context) genCall(env *varenv.Env, n *sexpr.Node, name string) (Val, error) {
	argExprs := n.Tail(1)
	if fn, ok := c.LookupFunc(name); ok {
		sigv, _ := c.Fns.Lookup(name)
		args, err := c.coerceArgs(env, argExprs, sigv.Params, name)
		if err != nil {
			return Val{}, err
		}
		call := c.Block().NewCall(fn, args...)
		return Val{IR: call, Type: sigv.Return}, nil
	}
	sigv := c.Fns.Resolve(name, len(argExprs))
	fn, ok := c.declared[name]
	if !ok {
		llvmParams := make([]types.Type, len(sigv.Params))
		for i, p := range sigv.Params {
			llvmParams[i] = c.TT.LLVM(p)
		}
		fn = c.DeclareExtern(name, llvmParams, c.TT.LLVM(sigv.Return), false)
	}
	args, err := c.coerceArgs(env, argExprs, sigv.Params, name)
	if err != nil {
		return Val{}, err
	}
	call := c.Block().NewCall(fn, args...)
	return Val{IR: call, Type: sigv.Return}, nil
}

func (c *Context) coerceArgs(env *varenv.Env, argExprs []*sexpr.Node, paramTypes []wtype.Type, calleeName string) ([]value.Value, error) {
	args := make([]value.Value, len(argExprs))
	for i, e := range argExprs {
		v, err := c.GenExpr(env, e)
		if err != nil {
			return nil, err
		}
		if i < len(paramTypes) {
			v, err = c.EnsureType(c.Block(), v, paramTypes[i], e.Pos, "call argument "+calleeName)
			if err != nil {
				return nil, err
			}
		}
		args[i] = v.IR
	}
	return args, nil
}
