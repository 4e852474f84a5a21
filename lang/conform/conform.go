// Package conform implements the conformity checker that runs after
// desugaring: it rejects any AST node kind outside the accepted subset,
// i.e. anything the desugarer is supposed to have already rewritten away.
// Grounded in spec.md §4.2's closing line ("The conformity checker, run
// after desugaring, rejects any node not in the accepted subset") and in
// the teacher's errorf-into-list diagnostic idiom
// (_examples/mna-nenuphar/lang/resolver/resolver.go's use of
// scanner.ErrorList).
package conform

import (
	"fmt"

	"github.com/mna/tailbiter/lang/ast"
)

// Error is a single conformity violation: a pre-desugaring node kind found
// in a tree that is supposed to have already been desugared.
type Error struct {
	Line int
	Msg  string
}

func (e *Error) Error() string { return fmt.Sprintf("line %d: %s", e.Line, e.Msg) }

// ErrorList collects every Error found by Check; a nil *ErrorList (zero
// violations) formats as "" and Err returns nil.
type ErrorList []*Error

func (el ErrorList) Error() string {
	switch len(el) {
	case 0:
		return ""
	case 1:
		return el[0].Error()
	default:
		return fmt.Sprintf("%s (and %d more)", el[0].Error(), len(el)-1)
	}
}

// Err returns el as an error, or nil if el is empty.
func (el ErrorList) Err() error {
	if len(el) == 0 {
		return nil
	}
	return el
}

// Check walks stmts and returns every node kind outside the accepted
// post-desugaring subset: Assert, Lambda, FunctionDef, ListComp and
// Comprehension must not appear. A Compare node with more than one operator
// chained (not representable in this AST; Compare is always a single binary
// comparison) needs no check here — the node shape itself enforces it.
func Check(stmts []ast.Stmt) error {
	var c checker
	c.stmts(stmts)
	return c.errs.Err()
}

type checker struct {
	errs ErrorList
}

func (c *checker) reject(line int, kind string) {
	c.errs = append(c.errs, &Error{Line: line, Msg: fmt.Sprintf("%s is not allowed after desugaring", kind)})
}

func (c *checker) stmts(in []ast.Stmt) {
	for _, s := range in {
		c.stmt(s)
	}
}

func (c *checker) stmt(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.Assert:
		c.reject(s.Line(), "assert statement")
	case *ast.FunctionDef:
		c.reject(s.Line(), "function definition")

	case *ast.ExprStmt:
		c.expr(s.Value)
	case *ast.Assign:
		c.expr(s.Value)
		for _, t := range s.Targets {
			c.expr(t)
		}
	case *ast.If:
		c.expr(s.Test)
		c.stmts(s.Body)
		c.stmts(s.Orelse)
	case *ast.While:
		c.expr(s.Test)
		c.stmts(s.Body)
	case *ast.For:
		c.expr(s.Target)
		c.expr(s.Iter)
		c.stmts(s.Body)
	case *ast.Return:
		if s.Value != nil {
			c.expr(s.Value)
		}
	case *ast.Raise:
		c.expr(s.Exc)
	case *ast.Try:
		c.stmts(s.Body)
		for _, h := range s.Handlers {
			if h.Type != nil {
				c.expr(h.Type)
			}
			c.stmts(h.Body)
		}
		c.stmts(s.Orelse)
		c.stmts(s.Finalbody)
	case *ast.ClassDef:
		for _, b := range s.Bases {
			c.expr(b)
		}
		c.stmts(s.Body)
	case *ast.Import, *ast.ImportFrom, *ast.Pass:
		// no children

	default:
		c.reject(s.Line(), fmt.Sprintf("unknown statement node %T", s))
	}
}

func (c *checker) expr(e ast.Expr) {
	switch e := e.(type) {
	case *ast.Lambda:
		c.reject(e.Line(), "lambda expression")
	case *ast.ListComp:
		c.reject(e.Line(), "list comprehension")

	case *ast.Literal, *ast.Name:
		// leaves
	case *ast.UnaryOp:
		c.expr(e.Operand)
	case *ast.BinOp:
		c.expr(e.Left)
		c.expr(e.Right)
	case *ast.Compare:
		c.expr(e.Left)
		c.expr(e.Right)
	case *ast.BoolOp:
		for _, v := range e.Values {
			c.expr(v)
		}
	case *ast.IfExp:
		c.expr(e.Test)
		c.expr(e.Body)
		c.expr(e.Orelse)
	case *ast.Attribute:
		c.expr(e.Value)
	case *ast.Subscript:
		c.expr(e.Value)
		c.expr(e.Index)
	case *ast.ListExpr:
		for _, elt := range e.Elts {
			c.expr(elt)
		}
	case *ast.TupleExpr:
		for _, elt := range e.Elts {
			c.expr(elt)
		}
	case *ast.DictExpr:
		for _, k := range e.Keys {
			c.expr(k)
		}
		for _, v := range e.Values {
			c.expr(v)
		}
	case *ast.Call:
		c.expr(e.Func)
		for _, a := range e.Args {
			c.expr(a)
		}
		for _, k := range e.Keywords {
			c.expr(k.Value)
		}
		if e.Starargs != nil {
			c.expr(e.Starargs)
		}
		if e.Kwargs != nil {
			c.expr(e.Kwargs)
		}
	case *ast.Function:
		c.stmts(e.Body)

	default:
		c.reject(e.Line(), fmt.Sprintf("unknown expression node %T", e))
	}
}
