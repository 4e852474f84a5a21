// Package desugar rewrites a raw AST into the reduced core the rest of the
// pipeline understands: it eliminates FunctionDef, Lambda, Assert and list
// comprehensions, replacing them with Function, If/Raise and Assign/Call
// nodes. Grounded in original_source/src/tailbiter/desugar.py; the rewrite
// order (children first, then the node itself) matches that module's
// `rewriter` decorator, which calls `generic_visit` before applying the
// node-specific rewrite.
package desugar

import "github.com/mna/tailbiter/lang/ast"

// Stmts desugars a list of statements, returning a new slice (nodes are
// never mutated after creation).
func Stmts(in []ast.Stmt) []ast.Stmt {
	out := make([]ast.Stmt, 0, len(in))
	for _, s := range in {
		out = append(out, stmt(s)...)
	}
	return out
}

// stmt desugars a single statement. It returns a slice to keep room for a
// statement that could expand to more or fewer replacements, though in this
// subset every case returns exactly one.
func stmt(s ast.Stmt) []ast.Stmt {
	switch s := s.(type) {
	case *ast.Assert:
		ln := s.Line()
		test := expr(s.Test)
		var msgArgs []ast.Expr
		if s.Msg != nil {
			msgArgs = []ast.Expr{expr(s.Msg)}
		}
		return []ast.Stmt{&ast.If{
			Base: ast.Base{Ln: ln},
			Test: test,
			Orelse: []ast.Stmt{&ast.Raise{
				Base: ast.Base{Ln: ln},
				Exc: &ast.Call{
					Base: ast.Base{Ln: ln},
					Func: &ast.Name{Base: ast.Base{Ln: ln}, Id: "AssertionError", Ctx: ast.Load},
					Args: msgArgs,
				},
			}},
		}}

	case *ast.FunctionDef:
		ln := s.Line()
		body := Stmts(s.Body)
		fn := ast.Expr(&ast.Function{
			Base: ast.Base{Ln: ln},
			Name: s.Name,
			Args: s.Args,
			Body: body,
			Doc:  s.Doc,
		})
		// decorators apply inside-out: the one nearest the def wraps first.
		for i := len(s.Decorators) - 1; i >= 0; i-- {
			fn = &ast.Call{
				Base: ast.Base{Ln: ln},
				Func: expr(s.Decorators[i]),
				Args: []ast.Expr{fn},
			}
		}
		return []ast.Stmt{&ast.Assign{
			Base:    ast.Base{Ln: ln},
			Targets: []ast.Expr{&ast.Name{Base: ast.Base{Ln: ln}, Id: s.Name, Ctx: ast.Store}},
			Value:   fn,
		}}

	case *ast.Assign:
		return []ast.Stmt{&ast.Assign{
			Base:    s.Base,
			Targets: exprs(s.Targets),
			Value:   expr(s.Value),
		}}

	case *ast.ExprStmt:
		return []ast.Stmt{&ast.ExprStmt{Base: s.Base, Value: expr(s.Value)}}

	case *ast.If:
		return []ast.Stmt{&ast.If{
			Base:   s.Base,
			Test:   expr(s.Test),
			Body:   Stmts(s.Body),
			Orelse: Stmts(s.Orelse),
		}}

	case *ast.While:
		return []ast.Stmt{&ast.While{Base: s.Base, Test: expr(s.Test), Body: Stmts(s.Body)}}

	case *ast.For:
		return []ast.Stmt{&ast.For{
			Base:   s.Base,
			Target: expr(s.Target),
			Iter:   expr(s.Iter),
			Body:   Stmts(s.Body),
		}}

	case *ast.Return:
		var v ast.Expr
		if s.Value != nil {
			v = expr(s.Value)
		}
		return []ast.Stmt{&ast.Return{Base: s.Base, Value: v}}

	case *ast.Raise:
		return []ast.Stmt{&ast.Raise{Base: s.Base, Exc: expr(s.Exc)}}

	case *ast.Try:
		handlers := make([]*ast.ExceptHandler, len(s.Handlers))
		for i, h := range s.Handlers {
			var t ast.Expr
			if h.Type != nil {
				t = expr(h.Type)
			}
			handlers[i] = &ast.ExceptHandler{Base: h.Base, Type: t, Name: h.Name, Body: Stmts(h.Body)}
		}
		return []ast.Stmt{&ast.Try{
			Base:      s.Base,
			Body:      Stmts(s.Body),
			Handlers:  handlers,
			Orelse:    Stmts(s.Orelse),
			Finalbody: Stmts(s.Finalbody),
		}}

	case *ast.ClassDef:
		return []ast.Stmt{&ast.ClassDef{
			Base:  s.Base,
			Name:  s.Name,
			Bases: exprs(s.Bases),
			Body:  Stmts(s.Body),
			Doc:   s.Doc,
		}}

	case *ast.Import, *ast.ImportFrom, *ast.Pass:
		return []ast.Stmt{s}

	default:
		panic("desugar: unhandled statement type")
	}
}

func exprs(in []ast.Expr) []ast.Expr {
	if in == nil {
		return nil
	}
	out := make([]ast.Expr, len(in))
	for i, e := range in {
		out[i] = expr(e)
	}
	return out
}

// expr desugars a single expression, recursing into children first.
func expr(e ast.Expr) ast.Expr {
	switch e := e.(type) {
	case *ast.Lambda:
		ln := e.Line()
		return &ast.Function{
			Base: ast.Base{Ln: ln},
			Name: "<lambda>",
			Args: e.Args,
			Body: []ast.Stmt{&ast.Return{Base: ast.Base{Ln: ln}, Value: expr(e.Body)}},
		}

	case *ast.ListComp:
		return listComp(e)

	case *ast.Literal, *ast.Name:
		return e

	case *ast.UnaryOp:
		return &ast.UnaryOp{Base: e.Base, Op: e.Op, Operand: expr(e.Operand)}

	case *ast.BinOp:
		return &ast.BinOp{Base: e.Base, Op: e.Op, Left: expr(e.Left), Right: expr(e.Right)}

	case *ast.Compare:
		return &ast.Compare{Base: e.Base, Op: e.Op, Left: expr(e.Left), Right: expr(e.Right)}

	case *ast.BoolOp:
		return &ast.BoolOp{Base: e.Base, Op: e.Op, Values: exprs(e.Values)}

	case *ast.IfExp:
		return &ast.IfExp{Base: e.Base, Test: expr(e.Test), Body: expr(e.Body), Orelse: expr(e.Orelse)}

	case *ast.Attribute:
		return &ast.Attribute{Base: e.Base, Value: expr(e.Value), Attr: e.Attr, Ctx: e.Ctx}

	case *ast.Subscript:
		return &ast.Subscript{Base: e.Base, Value: expr(e.Value), Index: expr(e.Index), Ctx: e.Ctx}

	case *ast.ListExpr:
		return &ast.ListExpr{Base: e.Base, Elts: exprs(e.Elts), Ctx: e.Ctx}

	case *ast.TupleExpr:
		return &ast.TupleExpr{Base: e.Base, Elts: exprs(e.Elts), Ctx: e.Ctx}

	case *ast.DictExpr:
		return &ast.DictExpr{Base: e.Base, Keys: exprs(e.Keys), Values: exprs(e.Values)}

	case *ast.Call:
		kws := make([]*ast.Keyword, len(e.Keywords))
		for i, k := range e.Keywords {
			kws[i] = &ast.Keyword{Base: k.Base, Arg: k.Arg, Value: expr(k.Value)}
		}
		var star, dstar ast.Expr
		if e.Starargs != nil {
			star = expr(e.Starargs)
		}
		if e.Kwargs != nil {
			dstar = expr(e.Kwargs)
		}
		return &ast.Call{Base: e.Base, Func: expr(e.Func), Args: exprs(e.Args), Keywords: kws, Starargs: star, Kwargs: dstar}

	case *ast.Function:
		// Already desugared (e.g. produced by an earlier pass); recurse into its
		// body so nested defs/lambdas/comprehensions are handled too.
		return &ast.Function{Base: e.Base, Name: e.Name, Args: e.Args, Body: Stmts(e.Body), Doc: e.Doc}

	default:
		panic("desugar: unhandled expression type")
	}
}

// listComp rewrites `[elt for t1 in it1 if p1 ... for tk in itk if pk]` into
// a call of a synthesized <listcomp> function, per spec.md §4.2: the
// generators are nested outer-first, the innermost body appends elt to the
// accumulator parameter ".0", and the function returns ".0".
func listComp(lc *ast.ListComp) ast.Expr {
	ln := lc.Line()
	resultAppend := &ast.Attribute{
		Base:  ast.Base{Ln: ln},
		Value: &ast.Name{Base: ast.Base{Ln: ln}, Id: ".0", Ctx: ast.Load},
		Attr:  "append",
		Ctx:   ast.Load,
	}
	body := []ast.Stmt{&ast.ExprStmt{
		Base: ast.Base{Ln: ln},
		Value: &ast.Call{
			Base: ast.Base{Ln: ln},
			Func: resultAppend,
			Args: []ast.Expr{expr(lc.Elt)},
		},
	}}

	for i := len(lc.Generators) - 1; i >= 0; i-- {
		gen := lc.Generators[i]
		for j := len(gen.Ifs) - 1; j >= 0; j-- {
			body = []ast.Stmt{&ast.If{Base: ast.Base{Ln: ln}, Test: expr(gen.Ifs[j]), Body: body}}
		}
		body = []ast.Stmt{&ast.For{
			Base:   ast.Base{Ln: ln},
			Target: expr(gen.Target),
			Iter:   expr(gen.Iter),
			Body:   body,
		}}
	}

	fnBody := append(body, ast.Stmt(&ast.Return{
		Base:  ast.Base{Ln: ln},
		Value: &ast.Name{Base: ast.Base{Ln: ln}, Id: ".0", Ctx: ast.Load},
	}))
	fn := &ast.Function{
		Base: ast.Base{Ln: ln},
		Name: "<listcomp>",
		Args: &ast.Arguments{Args: []string{".0"}},
		Body: fnBody,
	}
	return &ast.Call{
		Base: ast.Base{Ln: ln},
		Func: fn,
		Args: []ast.Expr{&ast.ListExpr{Base: ast.Base{Ln: ln}, Ctx: ast.Load}},
	}
}
