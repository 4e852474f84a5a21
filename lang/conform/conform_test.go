package conform_test

import (
	"testing"

	"github.com/mna/tailbiter/lang/ast"
	"github.com/mna/tailbiter/lang/conform"
	"github.com/mna/tailbiter/lang/desugar"
	"github.com/stretchr/testify/require"
)

func TestCheckAcceptsDesugaredTree(t *testing.T) {
	in := []ast.Stmt{
		&ast.FunctionDef{
			Name: "f",
			Args: &ast.Arguments{Args: []string{"x"}},
			Body: []ast.Stmt{&ast.Return{Value: &ast.Name{Id: "x", Ctx: ast.Load}}},
		},
	}
	out := desugar.Stmts(in)
	require.NoError(t, conform.Check(out))
}

func TestCheckRejectsRawAssert(t *testing.T) {
	in := []ast.Stmt{&ast.Assert{Base: ast.Base{Ln: 3}, Test: &ast.Name{Id: "ok", Ctx: ast.Load}}}
	err := conform.Check(in)
	require.Error(t, err)
	require.Contains(t, err.Error(), "assert statement")
	require.Contains(t, err.Error(), "line 3")
}

func TestCheckRejectsRawLambda(t *testing.T) {
	in := []ast.Stmt{&ast.ExprStmt{Value: &ast.Lambda{
		Base: ast.Base{Ln: 7},
		Args: &ast.Arguments{},
		Body: &ast.Literal{Kind: ast.IntLit, Int: 1},
	}}}
	err := conform.Check(in)
	require.Error(t, err)
	require.Contains(t, err.Error(), "lambda expression")
}

func TestCheckReportsMultipleViolations(t *testing.T) {
	in := []ast.Stmt{
		&ast.Assert{Base: ast.Base{Ln: 1}, Test: &ast.Name{Id: "a", Ctx: ast.Load}},
		&ast.Assert{Base: ast.Base{Ln: 2}, Test: &ast.Name{Id: "b", Ctx: ast.Load}},
	}
	err := conform.Check(in)
	require.Error(t, err)
	require.Contains(t, err.Error(), "and 1 more")
}
