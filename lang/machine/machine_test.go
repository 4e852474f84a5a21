package machine_test

import (
	"context"
	"testing"

	"github.com/mna/tailbiter/lang/ast"
	"github.com/mna/tailbiter/lang/compiler"
	"github.com/mna/tailbiter/lang/desugar"
	"github.com/mna/tailbiter/lang/machine"
	"github.com/mna/tailbiter/lang/resolver"
	"github.com/mna/tailbiter/lang/token"
	"github.com/mna/tailbiter/lang/types"
	"github.com/stretchr/testify/require"
)

// run desugars, resolves and compiles stmts as a module, then executes it
// with a fresh VM, the same pipeline a front end or cmd/tailbiter would
// drive.
func run(t *testing.T, stmts []ast.Stmt) (types.Value, error) {
	t.Helper()
	desugared := desugar.Stmts(stmts)
	unit := resolver.Resolve(desugared)
	code := compiler.Compile("test.tb", desugared, unit)
	vm := &machine.VM{}
	return vm.RunProgram(context.Background(), code)
}

func name(id string, ctx ast.ExprContext) *ast.Name { return &ast.Name{Id: id, Ctx: ctx} }

func intLit(n int64) *ast.Literal { return &ast.Literal{Kind: ast.IntLit, Int: n} }

func TestRunProgramArithmeticReturn(t *testing.T) {
	// x = 1 + 2
	// return x * 3
	stmts := []ast.Stmt{
		&ast.Assign{
			Targets: []ast.Expr{name("x", ast.Store)},
			Value:   &ast.BinOp{Op: token.PLUS, Left: intLit(1), Right: intLit(2)},
		},
		&ast.Return{Value: &ast.BinOp{Op: token.STAR, Left: name("x", ast.Load), Right: intLit(3)}},
	}

	got, err := run(t, stmts)
	require.NoError(t, err)
	require.Equal(t, types.Int(9), got)
}

func TestRunProgramClosureCapturesParameter(t *testing.T) {
	// def adder(n):
	//     def add(x):
	//         return x + n
	//     return add
	// return adder(10)(5)
	inner := &ast.Function{
		Name: "add",
		Args: &ast.Arguments{Args: []string{"x"}},
		Body: []ast.Stmt{
			&ast.Return{Value: &ast.BinOp{Op: token.PLUS, Left: name("x", ast.Load), Right: name("n", ast.Load)}},
		},
	}
	outer := &ast.Function{
		Name: "adder",
		Args: &ast.Arguments{Args: []string{"n"}},
		Body: []ast.Stmt{
			&ast.Assign{Targets: []ast.Expr{name("add", ast.Store)}, Value: inner},
			&ast.Return{Value: name("add", ast.Load)},
		},
	}
	stmts := []ast.Stmt{
		&ast.Assign{Targets: []ast.Expr{name("adder", ast.Store)}, Value: outer},
		&ast.Return{Value: &ast.Call{
			Func: &ast.Call{Func: name("adder", ast.Load), Args: []ast.Expr{intLit(10)}},
			Args: []ast.Expr{intLit(5)},
		}},
	}

	got, err := run(t, stmts)
	require.NoError(t, err)
	require.Equal(t, types.Int(15), got)
}

func TestRunProgramAssertRaisesAssertionError(t *testing.T) {
	// assert False, "nope"
	// return 1
	stmts := []ast.Stmt{
		&ast.Assert{
			Test: &ast.Literal{Kind: ast.FalseLit},
			Msg:  &ast.Literal{Kind: ast.StringLit, Str: "nope"},
		},
		&ast.Return{Value: intLit(1)},
	}

	got, err := run(t, stmts)
	require.Nil(t, got)
	require.Error(t, err)
	exc, ok := err.(*types.Exception)
	require.True(t, ok, "expected a *types.Exception, got %T", err)
	require.True(t, exc.Class.IsSubclass(types.AssertionErrorClass))
}

func TestRunProgramForLoopSumsRange(t *testing.T) {
	// total = 0
	// for i in range(4):
	//     total = total + i
	// return total
	stmts := []ast.Stmt{
		&ast.Assign{
			Targets: []ast.Expr{name("total", ast.Store)},
			Value:   intLit(0),
		},
		&ast.For{
			Target: name("i", ast.Store),
			Iter:   &ast.Call{Func: name("range", ast.Load), Args: []ast.Expr{intLit(4)}},
			Body: []ast.Stmt{
				&ast.Assign{
					Targets: []ast.Expr{name("total", ast.Store)},
					Value:   &ast.BinOp{Op: token.PLUS, Left: name("total", ast.Load), Right: name("i", ast.Load)},
				},
			},
		},
		&ast.Return{Value: name("total", ast.Load)},
	}

	got, err := run(t, stmts)
	require.NoError(t, err)
	require.Equal(t, types.Int(6), got) // 0+1+2+3
}

func TestRunProgramTryExceptBindsName(t *testing.T) {
	// try:
	//     raise ValueError("boom")
	// except ValueError as e:
	//     return e
	stmts := []ast.Stmt{
		&ast.Try{
			Body: []ast.Stmt{
				&ast.Raise{Exc: &ast.Call{
					Func: name("ValueError", ast.Load),
					Args: []ast.Expr{&ast.Literal{Kind: ast.StringLit, Str: "boom"}},
				}},
			},
			Handlers: []*ast.ExceptHandler{
				{
					Type: name("ValueError", ast.Load),
					Name: "e",
					Body: []ast.Stmt{
						&ast.Return{Value: name("e", ast.Load)},
					},
				},
			},
		},
		&ast.Return{Value: intLit(0)},
	}

	got, err := run(t, stmts)
	require.NoError(t, err)
	exc, ok := got.(*types.Exception)
	require.True(t, ok, "expected a *types.Exception, got %T", got)
	require.True(t, exc.Class.IsSubclass(types.ValueErrorClass))
	require.Equal(t, 1, exc.Args.Len())
	require.Equal(t, types.String("boom"), exc.Args.Index(0))
}

func TestRunProgramTryFinallyAlwaysRuns(t *testing.T) {
	// ran = False
	// try:
	//     raise ValueError("x")
	// except ValueError:
	//     pass
	// finally:
	//     ran = True
	// return ran
	stmts := []ast.Stmt{
		&ast.Assign{Targets: []ast.Expr{name("ran", ast.Store)}, Value: &ast.Literal{Kind: ast.FalseLit}},
		&ast.Try{
			Body: []ast.Stmt{
				&ast.Raise{Exc: &ast.Call{Func: name("ValueError", ast.Load), Args: []ast.Expr{&ast.Literal{Kind: ast.StringLit, Str: "x"}}}},
			},
			Handlers: []*ast.ExceptHandler{
				{Type: name("ValueError", ast.Load), Body: []ast.Stmt{&ast.Pass{}}},
			},
			Finalbody: []ast.Stmt{
				&ast.Assign{Targets: []ast.Expr{name("ran", ast.Store)}, Value: &ast.Literal{Kind: ast.TrueLit}},
			},
		},
		&ast.Return{Value: name("ran", ast.Load)},
	}

	got, err := run(t, stmts)
	require.NoError(t, err)
	require.Equal(t, types.True, got)
}

func TestRunProgramClassDefInstantiateAndCallMethod(t *testing.T) {
	// class Counter:
	//     def __init__(self, start):
	//         self.n = start
	//     def get(self):
	//         return self.n
	// c = Counter(41)
	// return c.get()
	initFn := &ast.Function{
		Name: "__init__",
		Args: &ast.Arguments{Args: []string{"self", "start"}},
		Body: []ast.Stmt{
			&ast.Assign{
				Targets: []ast.Expr{&ast.Attribute{Value: name("self", ast.Load), Attr: "n", Ctx: ast.Store}},
				Value:   name("start", ast.Load),
			},
		},
	}
	getFn := &ast.Function{
		Name: "get",
		Args: &ast.Arguments{Args: []string{"self"}},
		Body: []ast.Stmt{
			&ast.Return{Value: &ast.Attribute{Value: name("self", ast.Load), Attr: "n"}},
		},
	}
	classDef := &ast.ClassDef{
		Name: "Counter",
		Body: []ast.Stmt{
			&ast.Assign{Targets: []ast.Expr{name("__init__", ast.Store)}, Value: initFn},
			&ast.Assign{Targets: []ast.Expr{name("get", ast.Store)}, Value: getFn},
		},
	}
	stmts := []ast.Stmt{
		classDef,
		&ast.Assign{
			Targets: []ast.Expr{name("c", ast.Store)},
			Value:   &ast.Call{Func: name("Counter", ast.Load), Args: []ast.Expr{intLit(41)}},
		},
		&ast.Return{Value: &ast.Call{Func: &ast.Attribute{Value: name("c", ast.Load), Attr: "get"}}},
	}

	got, err := run(t, stmts)
	require.NoError(t, err)
	require.Equal(t, types.Int(41), got)
}

func TestRunProgramListCompOverRange(t *testing.T) {
	// return [x * x for x in range(5) if x != 2]
	lc := &ast.ListComp{
		Elt: &ast.BinOp{Op: token.STAR, Left: name("x", ast.Load), Right: name("x", ast.Load)},
		Generators: []*ast.Comprehension{
			{
				Target: name("x", ast.Store),
				Iter:   &ast.Call{Func: name("range", ast.Load), Args: []ast.Expr{intLit(5)}},
				Ifs: []ast.Expr{
					&ast.Compare{Op: token.NEQ, Left: name("x", ast.Load), Right: intLit(2)},
				},
			},
		},
	}
	stmts := []ast.Stmt{&ast.Return{Value: lc}}

	got, err := run(t, stmts)
	require.NoError(t, err)
	list, ok := got.(*types.List)
	require.True(t, ok, "expected a *types.List, got %T", got)
	require.Equal(t, 4, list.Len())
	require.Equal(t, types.Int(0), list.Index(0))
	require.Equal(t, types.Int(1), list.Index(1))
	require.Equal(t, types.Int(9), list.Index(2))
	require.Equal(t, types.Int(16), list.Index(3))
}

func TestRunProgramStepBudgetExceeded(t *testing.T) {
	stmts := []ast.Stmt{
		&ast.Assign{
			Targets: []ast.Expr{name("x", ast.Store)},
			Value:   &ast.BinOp{Op: token.PLUS, Left: intLit(1), Right: intLit(2)},
		},
		&ast.Return{Value: name("x", ast.Load)},
	}
	desugared := desugar.Stmts(stmts)
	unit := resolver.Resolve(desugared)
	code := compiler.Compile("test.tb", desugared, unit)

	vm := &machine.VM{MaxSteps: 1}
	_, err := vm.RunProgram(context.Background(), code)
	require.Error(t, err)
	_, ok := err.(*types.Exception)
	require.False(t, ok, "a step budget error must not be a catchable *types.Exception")
}
