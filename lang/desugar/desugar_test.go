package desugar_test

import (
	"testing"

	"github.com/mna/tailbiter/lang/ast"
	"github.com/mna/tailbiter/lang/desugar"
	"github.com/stretchr/testify/require"
)

// kinds renders the top-level Go type name of each statement, enough to
// assert on the shape a rewrite produced without a full tree-equality dump.
func kinds(stmts []ast.Stmt) []string {
	out := make([]string, len(stmts))
	for i, s := range stmts {
		switch s.(type) {
		case *ast.Assign:
			out[i] = "Assign"
		case *ast.If:
			out[i] = "If"
		case *ast.Raise:
			out[i] = "Raise"
		case *ast.For:
			out[i] = "For"
		case *ast.Return:
			out[i] = "Return"
		case *ast.ExprStmt:
			out[i] = "ExprStmt"
		case *ast.Pass:
			out[i] = "Pass"
		case *ast.Import:
			out[i] = "Import"
		default:
			out[i] = "?"
		}
	}
	return out
}

func TestStmtsAssertBecomesIfRaise(t *testing.T) {
	in := []ast.Stmt{
		&ast.Assert{
			Base: ast.Base{Ln: 1},
			Test: &ast.Name{Id: "x", Ctx: ast.Load},
		},
	}
	out := desugar.Stmts(in)
	require.Equal(t, []string{"If"}, kinds(out))

	ifStmt := out[0].(*ast.If)
	require.Empty(t, ifStmt.Body)
	require.Equal(t, []string{"Raise"}, kinds(ifStmt.Orelse))

	raise := ifStmt.Orelse[0].(*ast.Raise)
	call, ok := raise.Exc.(*ast.Call)
	require.True(t, ok)
	name, ok := call.Func.(*ast.Name)
	require.True(t, ok)
	require.Equal(t, "AssertionError", name.Id)
	require.Empty(t, call.Args)
}

func TestStmtsAssertWithMessageKeepsArg(t *testing.T) {
	in := []ast.Stmt{
		&ast.Assert{
			Base: ast.Base{Ln: 4},
			Test: &ast.Name{Id: "ok", Ctx: ast.Load},
			Msg:  &ast.Literal{Kind: ast.StringLit, Str: "bad"},
		},
	}
	out := desugar.Stmts(in)
	raise := out[0].(*ast.If).Orelse[0].(*ast.Raise)
	call := raise.Exc.(*ast.Call)
	require.Len(t, call.Args, 1)
	lit := call.Args[0].(*ast.Literal)
	require.Equal(t, "bad", lit.Str)
}

func TestStmtsFunctionDefBecomesAssign(t *testing.T) {
	in := []ast.Stmt{
		&ast.FunctionDef{
			Base: ast.Base{Ln: 2},
			Name: "f",
			Args: &ast.Arguments{Args: []string{"a"}},
			Body: []ast.Stmt{&ast.Return{Value: &ast.Name{Id: "a", Ctx: ast.Load}}},
		},
	}
	out := desugar.Stmts(in)
	require.Equal(t, []string{"Assign"}, kinds(out))

	assign := out[0].(*ast.Assign)
	require.Len(t, assign.Targets, 1)
	target := assign.Targets[0].(*ast.Name)
	require.Equal(t, "f", target.Id)
	require.Equal(t, ast.Store, target.Ctx)

	fn, ok := assign.Value.(*ast.Function)
	require.True(t, ok)
	require.Equal(t, "f", fn.Name)
}

func TestStmtsFunctionDefWithDecoratorsWrapsInsideOut(t *testing.T) {
	in := []ast.Stmt{
		&ast.FunctionDef{
			Base: ast.Base{Ln: 2},
			Name: "f",
			Args: &ast.Arguments{},
			Decorators: []ast.Expr{
				&ast.Name{Id: "outer", Ctx: ast.Load},
				&ast.Name{Id: "inner", Ctx: ast.Load},
			},
		},
	}
	out := desugar.Stmts(in)
	assign := out[0].(*ast.Assign)

	outerCall, ok := assign.Value.(*ast.Call)
	require.True(t, ok)
	require.Equal(t, "outer", outerCall.Func.(*ast.Name).Id)

	innerCall, ok := outerCall.Args[0].(*ast.Call)
	require.True(t, ok)
	require.Equal(t, "inner", innerCall.Func.(*ast.Name).Id)

	_, ok = innerCall.Args[0].(*ast.Function)
	require.True(t, ok)
}

func TestExprLambdaBecomesFunction(t *testing.T) {
	in := []ast.Stmt{
		&ast.Assign{
			Targets: []ast.Expr{&ast.Name{Id: "f", Ctx: ast.Store}},
			Value: &ast.Lambda{
				Args: &ast.Arguments{Args: []string{"x"}},
				Body: &ast.Name{Id: "x", Ctx: ast.Load},
			},
		},
	}
	out := desugar.Stmts(in)
	assign := out[0].(*ast.Assign)
	fn, ok := assign.Value.(*ast.Function)
	require.True(t, ok)
	require.Equal(t, "<lambda>", fn.Name)
	require.Equal(t, []string{"Return"}, kinds(fn.Body))
}

func TestExprListCompNestsGeneratorsOuterFirst(t *testing.T) {
	// [x for x in xs for y in ys if y]
	lc := &ast.ListComp{
		Elt: &ast.Name{Id: "x", Ctx: ast.Load},
		Generators: []*ast.Comprehension{
			{Target: &ast.Name{Id: "x", Ctx: ast.Store}, Iter: &ast.Name{Id: "xs", Ctx: ast.Load}},
			{
				Target: &ast.Name{Id: "y", Ctx: ast.Store},
				Iter:   &ast.Name{Id: "ys", Ctx: ast.Load},
				Ifs:    []ast.Expr{&ast.Name{Id: "y", Ctx: ast.Load}},
			},
		},
	}
	in := []ast.Stmt{&ast.ExprStmt{Value: lc}}
	out := desugar.Stmts(in)

	call := out[0].(*ast.ExprStmt).Value.(*ast.Call)
	fn := call.Func.(*ast.Function)
	require.Equal(t, "<listcomp>", fn.Name)
	require.Equal(t, []string{".0"}, fn.Args.AllParams())

	outerFor, ok := fn.Body[0].(*ast.For)
	require.True(t, ok)
	require.Equal(t, "xs", outerFor.Iter.(*ast.Name).Id)

	innerFor, ok := outerFor.Body[0].(*ast.For)
	require.True(t, ok)
	require.Equal(t, "ys", innerFor.Iter.(*ast.Name).Id)

	guard, ok := innerFor.Body[0].(*ast.If)
	require.True(t, ok)

	appendCall := guard.Body[0].(*ast.ExprStmt).Value.(*ast.Call)
	attr := appendCall.Func.(*ast.Attribute)
	require.Equal(t, "append", attr.Attr)

	ret, ok := fn.Body[len(fn.Body)-1].(*ast.Return)
	require.True(t, ok)
	require.Equal(t, ".0", ret.Value.(*ast.Name).Id)
}

func TestStmtsPassesThroughPlainStatements(t *testing.T) {
	in := []ast.Stmt{
		&ast.Pass{},
		&ast.Import{Names: []ast.Alias{{Name: "os"}}},
	}
	out := desugar.Stmts(in)
	require.Equal(t, []string{"Pass", "Import"}, kinds(out))
}
