package compiler

import (
	"fmt"

	"github.com/mna/tailbiter/lang/ast"
	"github.com/mna/tailbiter/lang/resolver"
	"github.com/mna/tailbiter/lang/token"
)

// Compile compiles a desugared, conformity-checked, scope-resolved module
// body into its top-level Code object. Grounded on
// original_source/src/tailbiter/codegen.py's compile_module.
func Compile(filename string, stmts []ast.Stmt, unit *resolver.Unit) *Code {
	cg := newCodeGen(filename, unit, unit.Top)
	body := Concat(cg.stmts(stmts), cg.loadConst(noneConst), Op(RETURN_VALUE))
	return cg.makeCode(body, "<module>", 0, false, false)
}

// codeGen generates one Code object: a module, a function body, or a class
// body. Each nested function/class sprouts its own codeGen over the child
// Scope the resolver already built for it. Grounded on codegen.py's CodeGen
// class.
type codeGen struct {
	filename string
	unit     *resolver.Unit
	scope    *resolver.Scope

	constants *table[constKey]
	names     *table[string]
	varnames  *table[string]
}

func newCodeGen(filename string, unit *resolver.Unit, scope *resolver.Scope) *codeGen {
	return &codeGen{
		filename:  filename,
		unit:      unit,
		scope:     scope,
		constants: newTable[constKey](),
		names:     newTable[string](),
		varnames:  newTable[string](),
	}
}

// makeCode finalizes assembly into a Code object. Grounded on codegen.py's
// make_code.
func (cg *codeGen) makeCode(assembly Fragment, name string, argcount int, hasVarargs, hasVarKwargs bool) *Code {
	nlocals := cg.varnames.len()
	var flags uint8
	if nlocals > 0 {
		flags |= FlagHasLocals
	}
	if hasVarargs {
		flags |= FlagHasVarargs
	}
	if hasVarKwargs {
		flags |= FlagHasVarKwargs
	}
	if len(cg.scope.Freevars()) > 0 {
		flags |= FlagNested
	}
	if len(cg.scope.Derefvars()) == 0 {
		flags |= FlagNoFree
	}

	firstLine, lnotab := MakeLnotab(assembly)
	keys := cg.constants.collect()
	consts := make([]any, len(keys))
	for i, k := range keys {
		consts[i] = k.value()
	}

	return &Code{
		Argcount:    argcount,
		NLocals:     nlocals,
		StackSize:   PlumbDepths(assembly),
		Flags:       flags,
		Bytecode:    Assemble(assembly),
		Constants:   consts,
		Names:       cg.names.collect(),
		Varnames:    cg.varnames.collect(),
		Filename:    cg.filename,
		Name:        name,
		FirstLineNo: firstLine,
		Lnotab:      lnotab,
		Freevars:    append([]string(nil), cg.scope.Freevars()...),
		Cellvars:    append([]string(nil), cg.scope.Cellvars()...),
	}
}

func (cg *codeGen) loadConst(key constKey) Fragment {
	return OpArg(LOAD_CONST, cg.constants.intern(key))
}

func (cg *codeGen) load(name string) Fragment {
	switch cg.scope.Access(name) {
	case resolver.AccessFast:
		return OpArg(LOAD_FAST, cg.varnames.intern(name))
	case resolver.AccessDeref:
		return OpArg(LOAD_DEREF, cg.cellIndex(name))
	default:
		return OpArg(LOAD_NAME, cg.names.intern(name))
	}
}

func (cg *codeGen) store(name string) Fragment {
	switch cg.scope.Access(name) {
	case resolver.AccessFast:
		return OpArg(STORE_FAST, cg.varnames.intern(name))
	case resolver.AccessDeref:
		return OpArg(STORE_DEREF, cg.cellIndex(name))
	default:
		return OpArg(STORE_NAME, cg.names.intern(name))
	}
}

func (cg *codeGen) cellIndex(name string) int {
	idx, ok := cg.scope.DerefIndex(name)
	if !ok {
		panic(fmt.Sprintf("compiler: %q is not a cell or free variable in this scope", name))
	}
	return idx
}

// stmts compiles a statement list in order.
func (cg *codeGen) stmts(in []ast.Stmt) Fragment {
	parts := make([]Fragment, len(in))
	for i, s := range in {
		parts[i] = cg.stmt(s)
	}
	return Concat(parts...)
}

// exprs compiles an expression list in order (used both for Load-context
// element lists and for the per-element Store fragments of an unpacking
// assignment).
func (cg *codeGen) exprs(in []ast.Expr) Fragment {
	parts := make([]Fragment, len(in))
	for i, e := range in {
		parts[i] = cg.expr(e)
	}
	return Concat(parts...)
}

func (cg *codeGen) stmt(s ast.Stmt) Fragment {
	return withLine(s, cg.stmtBody(s))
}

func withLine(n ast.Node, body Fragment) Fragment {
	if ln := n.Line(); ln > 0 {
		return Concat(Line{N: ln}, body)
	}
	return body
}

func (cg *codeGen) stmtBody(s ast.Stmt) Fragment {
	switch s := s.(type) {
	case *ast.ExprStmt:
		return Concat(cg.expr(s.Value), Op(POP_TOP))

	case *ast.Assign:
		value := cg.expr(s.Value)
		var dups Fragment = NoOp{}
		for range s.Targets[:len(s.Targets)-1] {
			dups = Concat(dups, Op(DUP_TOP))
		}
		return Concat(value, dups, cg.exprs(s.Targets))

	case *ast.If:
		orelse, after := NewLabel("orelse"), NewLabel("after")
		return Concat(
			cg.expr(s.Test),
			OpJump(POP_JUMP_IF_FALSE, orelse),
			cg.stmts(s.Body),
			OpJump(JUMP_FORWARD, after),
			orelse,
			cg.stmts(s.Orelse),
			after,
		)

	case *ast.While:
		loop, end := NewLabel("loop"), NewLabel("end")
		return Concat(
			loop,
			cg.expr(s.Test),
			OpJump(POP_JUMP_IF_FALSE, end),
			cg.stmts(s.Body),
			OpJump(JUMP_ABSOLUTE, loop),
			end,
		)

	case *ast.For:
		loop, end := NewLabel("loop"), NewLabel("end")
		return Concat(
			cg.expr(s.Iter),
			Op(GET_ITER),
			loop,
			OpJump(FOR_ITER, end),
			cg.expr(s.Target),
			cg.stmts(s.Body),
			OpJump(JUMP_ABSOLUTE, loop),
			end,
			OffsetStack{},
		)

	case *ast.Return:
		var value Fragment
		if s.Value != nil {
			value = cg.expr(s.Value)
		} else {
			value = cg.loadConst(noneConst)
		}
		return Concat(value, Op(RETURN_VALUE))

	case *ast.Raise:
		return Concat(cg.expr(s.Exc), OpArg(RAISE_VARARGS, 1))

	case *ast.Try:
		return cg.tryStmt(s)

	case *ast.Import:
		parts := make([]Fragment, len(s.Names))
		for i, a := range s.Names {
			parts[i] = Concat(
				cg.loadConst(intConst(0)),
				cg.loadConst(noneConst),
				OpArg(IMPORT_NAME, cg.names.intern(a.Name)),
				cg.store(a.ImportBoundName()),
			)
		}
		return Concat(parts...)

	case *ast.ImportFrom:
		fromlist := make([]string, len(s.Names))
		for i, a := range s.Names {
			fromlist[i] = a.Name
		}
		parts := make([]Fragment, len(s.Names))
		for i, a := range s.Names {
			parts[i] = Concat(OpArg(IMPORT_FROM, cg.names.intern(a.Name)), cg.store(a.BoundName()))
		}
		return Concat(
			cg.loadConst(intConst(int64(s.Level))),
			cg.loadConst(tupleStrConst(fromlist)),
			OpArg(IMPORT_NAME, cg.names.intern(s.Module)),
			Concat(parts...),
			Op(POP_TOP),
		)

	case *ast.Pass:
		return NoOp{}

	case *ast.ClassDef:
		child := cg.unit.ScopeOf[s]
		code := newCodeGen(cg.filename, cg.unit, child).compileClass(s)
		return Concat(
			Op(LOAD_BUILD_CLASS),
			cg.makeClosure(code, s.Name),
			cg.loadConst(stringConst(s.Name)),
			cg.exprs(s.Bases),
			OpArg(CALL_FUNCTION, 2+len(s.Bases)),
			cg.store(s.Name),
		)

	default:
		panic(fmt.Sprintf("compiler: unhandled statement node %T (conform.Check should have rejected it)", s))
	}
}

func (cg *codeGen) expr(e ast.Expr) Fragment {
	return withLine(e, cg.exprBody(e))
}

func (cg *codeGen) exprBody(e ast.Expr) Fragment {
	switch e := e.(type) {
	case *ast.Literal:
		return cg.literal(e)

	case *ast.Name:
		switch e.Ctx {
		case ast.Store:
			return cg.store(e.Id)
		default:
			return cg.load(e.Id)
		}

	case *ast.UnaryOp:
		op, ok := unaryOpcodes[e.Op]
		if !ok {
			panic(fmt.Sprintf("compiler: %s is not a unary operator", e.Op))
		}
		return Concat(cg.expr(e.Operand), Op(op))

	case *ast.BinOp:
		op, ok := binOpcodes[e.Op]
		if !ok {
			panic(fmt.Sprintf("compiler: %s is not a binary operator", e.Op))
		}
		return Concat(cg.expr(e.Left), cg.expr(e.Right), Op(op))

	case *ast.Compare:
		idx, ok := compareIndex[e.Op]
		if !ok {
			panic(fmt.Sprintf("compiler: %s is not a comparison operator", e.Op))
		}
		return Concat(cg.expr(e.Left), cg.expr(e.Right), OpArg(COMPARE_OP, idx))

	case *ast.BoolOp:
		jumpOp := JUMP_IF_FALSE_OR_POP
		if e.Op == token.OR {
			jumpOp = JUMP_IF_TRUE_OR_POP
		}
		result := cg.expr(e.Values[0])
		for _, v := range e.Values[1:] {
			after := NewLabel("boolop")
			result = Concat(result, OpJump(jumpOp, after), OffsetStack{}, cg.expr(v), after)
		}
		return result

	case *ast.IfExp:
		orelse, after := NewLabel("orelse"), NewLabel("after")
		return Concat(
			cg.expr(e.Test),
			OpJump(POP_JUMP_IF_FALSE, orelse),
			cg.expr(e.Body),
			OpJump(JUMP_FORWARD, after),
			OffsetStack{},
			orelse,
			cg.expr(e.Orelse),
			after,
		)

	case *ast.Attribute:
		attrOp := LOAD_ATTR
		if e.Ctx == ast.Store {
			attrOp = STORE_ATTR
		}
		return Concat(cg.expr(e.Value), OpArg(attrOp, cg.names.intern(e.Attr)))

	case *ast.Subscript:
		subOp := BINARY_SUBSCR
		if e.Ctx == ast.Store {
			subOp = STORE_SUBSCR
		}
		return Concat(cg.expr(e.Value), cg.expr(e.Index), Op(subOp))

	case *ast.ListExpr:
		return cg.sequence(e.Elts, e.Ctx, BUILD_LIST)

	case *ast.TupleExpr:
		return cg.sequence(e.Elts, e.Ctx, BUILD_TUPLE)

	case *ast.DictExpr:
		parts := []Fragment{OpArg(BUILD_MAP, min(len(e.Keys), 0xffff))}
		for i := range e.Keys {
			parts = append(parts, cg.expr(e.Values[i]), cg.expr(e.Keys[i]), Op(STORE_MAP))
		}
		return Concat(parts...)

	case *ast.Call:
		return cg.call(e)

	case *ast.Function:
		child := cg.unit.ScopeOf[e]
		code := newCodeGen(cg.filename, cg.unit, child).compileFunction(e)
		return cg.makeClosure(code, e.Name)

	default:
		panic(fmt.Sprintf("compiler: unhandled expression node %T (conform.Check should have rejected it)", e))
	}
}

func (cg *codeGen) literal(lit *ast.Literal) Fragment {
	switch lit.Kind {
	case ast.IntLit:
		return cg.loadConst(intConst(lit.Int))
	case ast.FloatLit:
		return cg.loadConst(floatConst(lit.Float))
	case ast.StringLit:
		return cg.loadConst(stringConst(lit.Str))
	case ast.BytesLit:
		return cg.loadConst(bytesConst(lit.Bytes))
	case ast.TrueLit:
		return cg.loadConst(trueConst)
	case ast.FalseLit:
		return cg.loadConst(falseConst)
	case ast.NoneLit:
		return cg.loadConst(noneConst)
	default:
		panic("compiler: unknown literal kind")
	}
}

// sequence compiles a list/tuple display (ctx Load) or unpacking target
// (ctx Store), sharing the logic codegen.py's visit_sequence does for both
// List and Tuple nodes.
func (cg *codeGen) sequence(elts []ast.Expr, ctx ast.ExprContext, buildOp Opcode) Fragment {
	switch ctx {
	case ast.Store:
		return Concat(OpArg(UNPACK_SEQUENCE, len(elts)), cg.exprs(elts))
	default:
		return Concat(cg.exprs(elts), OpArg(buildOp, len(elts)))
	}
}

// call compiles a Call node, choosing among the four CALL_FUNCTION variants
// depending on whether star-args and/or star-kwargs are present. Grounded
// on codegen.py's visit_Call.
func (cg *codeGen) call(c *ast.Call) Fragment {
	callOp := CALL_FUNCTION
	switch {
	case c.Starargs != nil && c.Kwargs != nil:
		callOp = CALL_FUNCTION_VAR_KW
	case c.Starargs != nil:
		callOp = CALL_FUNCTION_VAR
	case c.Kwargs != nil:
		callOp = CALL_FUNCTION_KW
	}

	parts := []Fragment{cg.expr(c.Func), cg.exprs(c.Args)}
	for _, k := range c.Keywords {
		parts = append(parts, cg.loadConst(stringConst(k.Arg)), cg.expr(k.Value))
	}
	if c.Starargs != nil {
		parts = append(parts, cg.expr(c.Starargs))
	}
	if c.Kwargs != nil {
		parts = append(parts, cg.expr(c.Kwargs))
	}
	parts = append(parts, OpArg(callOp, (len(c.Keywords)<<8)|len(c.Args)))
	return Concat(parts...)
}

// tryStmt compiles a Try node. Grounded on spec.md §4.5's block-stack
// model, adapted for this module's unified Exception value: rather than
// pushing the reference VM's type/value/traceback triple onto the operand
// stack (twice, per spec.md's block-unwinding rule), the dispatched
// exception lives entirely in the frame's pending-exception slot. Handler
// type tests (JUMP_IF_NOT_EXC_MATCH) and re-raise (END_FINALLY) read that
// slot directly and never touch the operand stack; only a matched
// handler's `as name` clause puts the exception value on the stack, via
// the dedicated LOAD_EXC opcode, immediately consumed by a STORE. This
// keeps every path through a handler cascade net-zero on the operand
// stack regardless of which handler (if any) matches, so plumb's linear
// stack-depth trace needs no OffsetStack correction here: unlike BoolOp or
// IfExp, no branch of this construct leaves a value on the stack that a
// sibling branch's textual contribution would otherwise miscount.
//
// A present Finalbody is emitted twice — once inline on the
// normal-completion path, once in the SETUP_FINALLY handler reached on
// exception propagation — matching how early CPython compiled try/finally
// before a single shared finally block was supported; this keeps a
// `return` inside a bare try (no except) from needing a dedicated
// "pending return" protocol, since the subset this compiler accepts has
// no way to return through a try whose finally itself diverges.
func (cg *codeGen) tryStmt(s *ast.Try) Fragment {
	hasFinally := len(s.Finalbody) > 0
	finallyHandler := NewLabel("finally")
	end := NewLabel("tryend")

	var setup Fragment = NoOp{}
	if hasFinally {
		setup = OpJump(SETUP_FINALLY, finallyHandler)
	}

	var core Fragment
	if len(s.Handlers) == 0 {
		core = cg.stmts(s.Body)
	} else {
		core = cg.tryExcept(s)
	}

	body := Concat(setup, core, cg.stmts(s.Orelse))
	if hasFinally {
		body = Concat(
			body,
			Op(POP_BLOCK),
			cg.stmts(s.Finalbody),
			OpJump(JUMP_FORWARD, end),
			finallyHandler,
			cg.stmts(s.Finalbody),
			Op(END_FINALLY),
			end,
		)
	}
	return body
}

// tryExcept compiles the except-handler cascade for a Try with at least one
// handler, assuming the caller has already emitted any enclosing
// SETUP_FINALLY. The handler type tests never put the exception itself on
// the operand stack: JUMP_IF_NOT_EXC_MATCH pops only the evaluated type
// expression and tests it against the frame's pending exception. Only a
// matched handler's own `as name` binding (if any) pushes the exception,
// via LOAD_EXC, and immediately stores it.
func (cg *codeGen) tryExcept(s *ast.Try) Fragment {
	firstHandler := NewLabel("except")
	noMatch := NewLabel("nomatch")
	end := NewLabel("tryend")

	body := Concat(
		OpJump(SETUP_EXCEPT, firstHandler),
		cg.stmts(s.Body),
		Op(POP_BLOCK),
		OpJump(JUMP_FORWARD, end),
	)

	parts := []Fragment{body, firstHandler}
	for i, h := range s.Handlers {
		// next is where control goes if this handler's type does not match:
		// the next handler's test, or the no-match fallthrough for the last.
		next := noMatch
		if i < len(s.Handlers)-1 {
			next = NewLabel("except")
		}
		var match Fragment
		if h.Type != nil {
			match = Concat(cg.expr(h.Type), OpJump(JUMP_IF_NOT_EXC_MATCH, next))
		} else {
			match = NoOp{} // bare except always matches
		}

		var bind Fragment
		if h.Name != "" {
			bind = Concat(Op(LOAD_EXC), cg.store(h.Name))
		} else {
			bind = NoOp{}
		}

		parts = append(parts,
			match,
			bind,
			cg.stmts(h.Body),
			OpJump(JUMP_FORWARD, end),
		)
		if next != noMatch {
			parts = append(parts, next)
		}
	}
	parts = append(parts, noMatch, Op(END_FINALLY), end)
	return Concat(parts...)
}

// compileFunction generates a Function node's own Code object, run in the
// child scope the resolver already built for it. Grounded on codegen.py's
// compile_function.
func (cg *codeGen) compileFunction(fn *ast.Function) *Code {
	// Seed constants[0] with the docstring (or None), matching the
	// convention that a function's first constant is always its __doc__.
	if fn.Doc != "" {
		cg.loadConst(stringConst(fn.Doc))
	} else {
		cg.loadConst(noneConst)
	}

	for _, a := range fn.Args.Args {
		cg.varnames.intern(a)
	}
	if fn.Args.Vararg != "" {
		cg.varnames.intern(fn.Args.Vararg)
	}
	if fn.Args.Kwarg != "" {
		cg.varnames.intern(fn.Args.Kwarg)
	}

	body := Concat(cg.stmts(fn.Body), cg.loadConst(noneConst), Op(RETURN_VALUE))
	return cg.makeCode(body, fn.Name, len(fn.Args.Args), fn.Args.Vararg != "", fn.Args.Kwarg != "")
}

// compileClass generates a ClassDef's body Code object: CPython's
// class-namespace bootstrap (__module__/__qualname__/__doc__) followed by
// the class body statements. Grounded on codegen.py's compile_class.
func (cg *codeGen) compileClass(cd *ast.ClassDef) *Code {
	body := Concat(
		cg.load("__name__"), cg.store("__module__"),
		cg.loadConst(stringConst(cd.Name)), cg.store("__qualname__"),
	)
	if cd.Doc != "" {
		body = Concat(body, cg.loadConst(stringConst(cd.Doc)), cg.store("__doc__"))
	}
	body = Concat(body, cg.stmts(cd.Body), cg.loadConst(noneConst), Op(RETURN_VALUE))
	return cg.makeCode(body, cd.Name, 0, false, false)
}

// makeClosure emits the MAKE_FUNCTION/MAKE_CLOSURE sequence for a freshly
// compiled nested Code object, capturing its freevars as cells borrowed
// from the enclosing scope. Grounded on codegen.py's make_closure.
func (cg *codeGen) makeClosure(code *Code, name string) Fragment {
	if len(code.Freevars) == 0 {
		return Concat(cg.loadConst(codeConst(code)), cg.loadConst(stringConst(name)), OpArg(MAKE_FUNCTION, 0))
	}

	loads := make([]Fragment, len(code.Freevars))
	for i, fv := range code.Freevars {
		loads[i] = OpArg(LOAD_CLOSURE, cg.cellIndex(fv))
	}
	return Concat(
		Concat(loads...),
		OpArg(BUILD_TUPLE, len(code.Freevars)),
		cg.loadConst(codeConst(code)),
		cg.loadConst(stringConst(name)),
		OpArg(MAKE_CLOSURE, 0),
	)
}

var unaryOpcodes = map[token.Token]Opcode{
	token.UPLUS:  UNARY_POSITIVE,
	token.UMINUS: UNARY_NEGATIVE,
	token.UTILDE: UNARY_INVERT,
	token.NOT:    UNARY_NOT,
}

var binOpcodes = map[token.Token]Opcode{
	token.PLUS:       BINARY_ADD,
	token.MINUS:      BINARY_SUBTRACT,
	token.STAR:       BINARY_MULTIPLY,
	token.SLASH:      BINARY_TRUE_DIVIDE,
	token.SLASHSLASH: BINARY_FLOOR_DIVIDE,
	token.PERCENT:    BINARY_MODULO,
	token.POWER:      BINARY_POWER,
	token.AMPERSAND:  BINARY_AND,
	token.PIPE:       BINARY_OR,
	token.CIRCUMFLEX: BINARY_XOR,
	token.LTLT:       BINARY_LSHIFT,
	token.GTGT:       BINARY_RSHIFT,
}

// compareIndex is COMPARE_OP's operand: which comparison to perform.
// Grounded on codegen.py's visit_Compare (`dis.cmp_op.index(...)`); this
// module has no dis.cmp_op to index into, so the ten comparisons this
// language supports are assigned indices directly.
var compareIndex = map[token.Token]int{
	token.LT:    0,
	token.LE:    1,
	token.GT:    2,
	token.GE:    3,
	token.EQL:   4,
	token.NEQ:   5,
	token.IS:    6,
	token.ISNOT: 7,
	token.IN:    8,
	token.NOTIN: 9,
}
