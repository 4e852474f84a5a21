package resolver_test

import (
	"testing"

	"github.com/mna/tailbiter/lang/ast"
	"github.com/mna/tailbiter/lang/resolver"
	"github.com/stretchr/testify/require"
)

func name(id string, ctx ast.ExprContext) *ast.Name { return &ast.Name{Id: id, Ctx: ctx} }

// TestClosureCellAndFreevar builds the desugared equivalent of:
//
//	def outer():
//	    y = 1
//	    def inner(): return y
//	    return inner()
//
// and checks outer's scope lists "y" as a cellvar and inner's lists it as a
// freevar, matching spec.md's worked example.
func TestClosureCellAndFreevar(t *testing.T) {
	inner := &ast.Function{
		Name: "inner",
		Args: &ast.Arguments{},
		Body: []ast.Stmt{&ast.Return{Value: name("y", ast.Load)}},
	}
	outer := &ast.Function{
		Name: "outer",
		Args: &ast.Arguments{},
		Body: []ast.Stmt{
			&ast.Assign{Targets: []ast.Expr{name("y", ast.Store)}, Value: &ast.Literal{Kind: ast.IntLit, Int: 1}},
			&ast.Assign{Targets: []ast.Expr{name("inner", ast.Store)}, Value: inner},
			&ast.Return{Value: &ast.Call{Func: name("inner", ast.Load)}},
		},
	}
	top := []ast.Stmt{&ast.Assign{Targets: []ast.Expr{name("outer", ast.Store)}, Value: outer}}

	u := resolver.Resolve(top)

	outerScope := u.ScopeOf[outer]
	require.NotNil(t, outerScope)
	require.Equal(t, []string{"y"}, outerScope.Cellvars())
	require.Equal(t, resolver.AccessDeref, outerScope.Access("y"))

	innerScope := u.ScopeOf[inner]
	require.NotNil(t, innerScope)
	require.Equal(t, []string{"y"}, innerScope.Freevars())
	require.Equal(t, resolver.AccessDeref, innerScope.Access("y"))
}

func TestTopLevelNamesAreNameAccess(t *testing.T) {
	top := []ast.Stmt{
		&ast.Assign{Targets: []ast.Expr{name("x", ast.Store)}, Value: &ast.Literal{Kind: ast.IntLit, Int: 1}},
	}
	u := resolver.Resolve(top)
	require.Equal(t, resolver.AccessName, u.Top.Access("x"))
}

func TestFunctionLocalIsFastAccess(t *testing.T) {
	fn := &ast.Function{
		Name: "f",
		Args: &ast.Arguments{Args: []string{"a"}},
		Body: []ast.Stmt{
			&ast.Assign{Targets: []ast.Expr{name("b", ast.Store)}, Value: name("a", ast.Load)},
			&ast.Return{Value: name("b", ast.Load)},
		},
	}
	top := []ast.Stmt{&ast.Assign{Targets: []ast.Expr{name("f", ast.Store)}, Value: fn}}
	u := resolver.Resolve(top)

	fnScope := u.ScopeOf[fn]
	require.Equal(t, resolver.AccessFast, fnScope.Access("a"))
	require.Equal(t, resolver.AccessFast, fnScope.Access("b"))
	require.Empty(t, fnScope.Cellvars())
	require.Empty(t, fnScope.Freevars())
}

func TestClassBodyNamesAreNameAccessNotFast(t *testing.T) {
	cls := &ast.ClassDef{
		Name: "C",
		Body: []ast.Stmt{
			&ast.Assign{Targets: []ast.Expr{name("x", ast.Store)}, Value: &ast.Literal{Kind: ast.IntLit, Int: 1}},
		},
	}
	u := resolver.Resolve([]ast.Stmt{cls})
	classScope := u.ScopeOf[cls]
	require.NotNil(t, classScope)
	require.Equal(t, resolver.AccessName, classScope.Access("x"))
	require.Empty(t, classScope.Cellvars())
}

func TestImportBindsName(t *testing.T) {
	top := []ast.Stmt{
		&ast.Import{Names: []ast.Alias{{Name: "os"}, {Name: "sys", AsName: "s"}}},
	}
	u := resolver.Resolve(top)
	require.Equal(t, resolver.AccessName, u.Top.Access("os"))
	require.Equal(t, resolver.AccessName, u.Top.Access("s"))
}

func TestDerefvarsOrderIsCellvarsThenFreevars(t *testing.T) {
	// def outer(a):
	//     b = 2
	//     def mid():
	//         def inner(): return a + b
	//         return inner
	//     return mid
	inner := &ast.Function{
		Name: "inner",
		Args: &ast.Arguments{},
		Body: []ast.Stmt{&ast.Return{Value: &ast.BinOp{Left: name("a", ast.Load), Right: name("b", ast.Load)}}},
	}
	mid := &ast.Function{
		Name: "mid",
		Args: &ast.Arguments{},
		Body: []ast.Stmt{
			&ast.Assign{Targets: []ast.Expr{name("inner", ast.Store)}, Value: inner},
			&ast.Return{Value: name("inner", ast.Load)},
		},
	}
	outer := &ast.Function{
		Name: "outer",
		Args: &ast.Arguments{Args: []string{"a"}},
		Body: []ast.Stmt{
			&ast.Assign{Targets: []ast.Expr{name("b", ast.Store)}, Value: &ast.Literal{Kind: ast.IntLit, Int: 2}},
			&ast.Assign{Targets: []ast.Expr{name("mid", ast.Store)}, Value: mid},
			&ast.Return{Value: name("mid", ast.Load)},
		},
	}
	u := resolver.Resolve([]ast.Stmt{&ast.Assign{Targets: []ast.Expr{name("outer", ast.Store)}, Value: outer}})

	outerScope := u.ScopeOf[outer]
	require.ElementsMatch(t, []string{"a", "b"}, outerScope.Cellvars())
	require.Equal(t, outerScope.Cellvars(), outerScope.Derefvars())

	innerScope := u.ScopeOf[inner]
	require.ElementsMatch(t, []string{"a", "b"}, innerScope.Freevars())
	aIdx, ok := innerScope.DerefIndex("a")
	require.True(t, ok)
	bIdx, ok := innerScope.DerefIndex("b")
	require.True(t, ok)
	require.NotEqual(t, aIdx, bIdx)
}
