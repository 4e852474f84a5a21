package resolver

import "github.com/mna/tailbiter/lang/ast"

// Unit is the result of resolving a whole compilation unit: the top-level
// Scope plus a lookup from every Function/ClassDef node to the child Scope
// phase 1 created for it, which the code generator needs when it descends
// into a nested definition.
type Unit struct {
	Top     *Scope
	ScopeOf map[ast.Node]*Scope
}

// Resolve runs both phases of scope analysis over a desugared, conformity
// checked list of top-level statements.
func Resolve(stmts []ast.Stmt) *Unit {
	v := &visitor{scopeOf: make(map[ast.Node]*Scope)}
	top := newScope(false, nil)
	v.stmts(top, stmts)
	top.Analyze(newOrderedSet())
	return &Unit{Top: top, ScopeOf: v.scopeOf}
}

// visitor is phase 1: it records defs/uses on the current Scope and creates
// a child Scope (without analyzing it) at each Function/ClassDef boundary.
type visitor struct {
	scopeOf map[ast.Node]*Scope
}

func (v *visitor) stmts(s *Scope, in []ast.Stmt) {
	for _, st := range in {
		v.stmt(s, st)
	}
}

func (v *visitor) stmt(s *Scope, st ast.Stmt) {
	switch st := st.(type) {
	case *ast.ExprStmt:
		v.expr(s, st.Value)

	case *ast.Assign:
		v.expr(s, st.Value)
		for _, t := range st.Targets {
			v.expr(s, t)
		}

	case *ast.If:
		v.expr(s, st.Test)
		v.stmts(s, st.Body)
		v.stmts(s, st.Orelse)

	case *ast.While:
		v.expr(s, st.Test)
		v.stmts(s, st.Body)

	case *ast.For:
		v.expr(s, st.Iter)
		v.expr(s, st.Target)
		v.stmts(s, st.Body)

	case *ast.Return:
		if st.Value != nil {
			v.expr(s, st.Value)
		}

	case *ast.Raise:
		v.expr(s, st.Exc)

	case *ast.Try:
		v.stmts(s, st.Body)
		for _, h := range st.Handlers {
			if h.Type != nil {
				v.expr(s, h.Type)
			}
			if h.Name != "" {
				s.defs.add(h.Name)
			}
			v.stmts(s, h.Body)
		}
		v.stmts(s, st.Orelse)
		v.stmts(s, st.Finalbody)

	case *ast.Import:
		for _, a := range st.Names {
			s.defs.add(a.ImportBoundName())
		}

	case *ast.ImportFrom:
		for _, a := range st.Names {
			s.defs.add(a.BoundName())
		}

	case *ast.Pass:
		// no-op

	case *ast.ClassDef:
		s.defs.add(st.Name)
		for _, b := range st.Bases {
			v.expr(s, b)
		}
		child := s.childScope(false, nil)
		v.scopeOf[st] = child
		v.stmts(child, st.Body)

	default:
		panic("resolver: unhandled statement type")
	}
}

func (v *visitor) expr(s *Scope, e ast.Expr) {
	switch e := e.(type) {
	case *ast.Literal:
		// no names

	case *ast.Name:
		switch e.Ctx {
		case ast.Store:
			s.defs.add(e.Id)
		default:
			s.uses.add(e.Id)
		}

	case *ast.UnaryOp:
		v.expr(s, e.Operand)

	case *ast.BinOp:
		v.expr(s, e.Left)
		v.expr(s, e.Right)

	case *ast.Compare:
		v.expr(s, e.Left)
		v.expr(s, e.Right)

	case *ast.BoolOp:
		for _, val := range e.Values {
			v.expr(s, val)
		}

	case *ast.IfExp:
		v.expr(s, e.Test)
		v.expr(s, e.Body)
		v.expr(s, e.Orelse)

	case *ast.Attribute:
		v.expr(s, e.Value)

	case *ast.Subscript:
		v.expr(s, e.Value)
		v.expr(s, e.Index)

	case *ast.ListExpr:
		for _, elt := range e.Elts {
			v.expr(s, elt)
		}

	case *ast.TupleExpr:
		for _, elt := range e.Elts {
			v.expr(s, elt)
		}

	case *ast.DictExpr:
		for _, k := range e.Keys {
			v.expr(s, k)
		}
		for _, val := range e.Values {
			v.expr(s, val)
		}

	case *ast.Call:
		v.expr(s, e.Func)
		for _, a := range e.Args {
			v.expr(s, a)
		}
		for _, k := range e.Keywords {
			v.expr(s, k.Value)
		}
		if e.Starargs != nil {
			v.expr(s, e.Starargs)
		}
		if e.Kwargs != nil {
			v.expr(s, e.Kwargs)
		}

	case *ast.Function:
		child := s.childScope(true, e.Args.AllParams())
		v.scopeOf[e] = child
		v.stmts(child, e.Body)

	default:
		panic("resolver: unhandled expression type")
	}
}
