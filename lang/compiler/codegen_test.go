package compiler_test

import (
	"testing"

	"github.com/mna/tailbiter/lang/ast"
	"github.com/mna/tailbiter/lang/compiler"
	"github.com/mna/tailbiter/lang/resolver"
	"github.com/mna/tailbiter/lang/token"
	"github.com/stretchr/testify/require"
)

func findCode(consts []any, name string) *compiler.Code {
	for _, c := range consts {
		if code, ok := c.(*compiler.Code); ok && code.Name == name {
			return code
		}
	}
	return nil
}

func containsByte(bs []byte, b byte) bool {
	for _, v := range bs {
		if v == b {
			return true
		}
	}
	return false
}

func TestCompileReturnBinOp(t *testing.T) {
	stmts := []ast.Stmt{
		&ast.Return{Value: &ast.BinOp{
			Op:    token.PLUS,
			Left:  &ast.Literal{Kind: ast.IntLit, Int: 1},
			Right: &ast.Literal{Kind: ast.IntLit, Int: 2},
		}},
	}
	unit := resolver.Resolve(stmts)
	code := compiler.Compile("test.tb", stmts, unit)

	want := []byte{
		byte(compiler.LOAD_CONST), 0, 0,
		byte(compiler.LOAD_CONST), 1, 0,
		byte(compiler.BINARY_ADD),
		byte(compiler.RETURN_VALUE),
		byte(compiler.LOAD_CONST), 2, 0,
		byte(compiler.RETURN_VALUE),
	}
	require.Equal(t, want, code.Bytecode)
	require.Equal(t, []any{int64(1), int64(2), nil}, code.Constants)
	require.Equal(t, 2, code.StackSize)
}

func TestCompileAssignMultiTargetDupsOnce(t *testing.T) {
	stmts := []ast.Stmt{
		&ast.Assign{
			Targets: []ast.Expr{
				&ast.Name{Id: "a", Ctx: ast.Store},
				&ast.Name{Id: "b", Ctx: ast.Store},
			},
			Value: &ast.Literal{Kind: ast.IntLit, Int: 7},
		},
	}
	unit := resolver.Resolve(stmts)
	code := compiler.Compile("test.tb", stmts, unit)

	want := []byte{
		byte(compiler.LOAD_CONST), 0, 0,
		byte(compiler.DUP_TOP),
		byte(compiler.STORE_NAME), 0, 0,
		byte(compiler.STORE_NAME), 1, 0,
		byte(compiler.LOAD_CONST), 1, 0,
		byte(compiler.RETURN_VALUE),
	}
	require.Equal(t, want, code.Bytecode)
	require.Equal(t, []string{"a", "b"}, code.Names)
}

func TestCompileClosureEmitsDerefAndClosure(t *testing.T) {
	inner := &ast.Function{
		Name: "inner",
		Args: &ast.Arguments{},
		Body: []ast.Stmt{&ast.Return{Value: &ast.Name{Id: "a", Ctx: ast.Load}}},
	}
	outer := &ast.Function{
		Name: "outer",
		Args: &ast.Arguments{Args: []string{"a"}},
		Body: []ast.Stmt{
			&ast.Assign{Targets: []ast.Expr{&ast.Name{Id: "inner", Ctx: ast.Store}}, Value: inner},
			&ast.Return{Value: &ast.Name{Id: "inner", Ctx: ast.Load}},
		},
	}
	module := []ast.Stmt{
		&ast.Assign{Targets: []ast.Expr{&ast.Name{Id: "outer", Ctx: ast.Store}}, Value: outer},
	}

	unit := resolver.Resolve(module)
	moduleCode := compiler.Compile("test.tb", module, unit)

	outerCode := findCode(moduleCode.Constants, "outer")
	require.NotNil(t, outerCode)
	require.Equal(t, []string{"a"}, outerCode.Cellvars)
	require.True(t, containsByte(outerCode.Bytecode, byte(compiler.LOAD_CLOSURE)))
	require.True(t, containsByte(outerCode.Bytecode, byte(compiler.MAKE_CLOSURE)))

	innerCode := findCode(outerCode.Constants, "inner")
	require.NotNil(t, innerCode)
	require.Equal(t, []string{"a"}, innerCode.Freevars)
	require.NotZero(t, innerCode.Flags&compiler.FlagNested)
	require.True(t, containsByte(innerCode.Bytecode, byte(compiler.LOAD_DEREF)))
}

func TestCompileImportBindsFirstDottedComponent(t *testing.T) {
	stmts := []ast.Stmt{
		&ast.Import{Names: []ast.Alias{{Name: "a.b.c"}}},
	}
	unit := resolver.Resolve(stmts)
	code := compiler.Compile("test.tb", stmts, unit)
	require.Contains(t, code.Names, "a")
	require.Contains(t, code.Names, "a.b.c")
}

func TestCompileImportFromUsesTupleFromlist(t *testing.T) {
	stmts := []ast.Stmt{
		&ast.ImportFrom{Module: "m", Names: []ast.Alias{{Name: "x"}, {Name: "y", AsName: "z"}}},
	}
	unit := resolver.Resolve(stmts)
	code := compiler.Compile("test.tb", stmts, unit)

	var found bool
	for _, c := range code.Constants {
		if ss, ok := c.([]string); ok {
			require.Equal(t, []string{"x", "y"}, ss)
			found = true
		}
	}
	require.True(t, found, "fromlist tuple constant not found")
}

func countByte(bs []byte, b byte) int {
	n := 0
	for _, v := range bs {
		if v == b {
			n++
		}
	}
	return n
}

func TestCompileTryExceptBindsNameAndReraisesOnNoMatch(t *testing.T) {
	stmts := []ast.Stmt{
		&ast.Try{
			Body: []ast.Stmt{&ast.Raise{Exc: &ast.Name{Id: "v", Ctx: ast.Load}}},
			Handlers: []*ast.ExceptHandler{
				{
					Type: &ast.Name{Id: "ValueError", Ctx: ast.Load},
					Name: "e",
					Body: []ast.Stmt{
						&ast.Assign{
							Targets: []ast.Expr{&ast.Name{Id: "x", Ctx: ast.Store}},
							Value:   &ast.Name{Id: "e", Ctx: ast.Load},
						},
					},
				},
			},
		},
	}
	unit := resolver.Resolve(stmts)
	code := compiler.Compile("test.tb", stmts, unit)

	require.True(t, containsByte(code.Bytecode, byte(compiler.SETUP_EXCEPT)))
	require.True(t, containsByte(code.Bytecode, byte(compiler.JUMP_IF_NOT_EXC_MATCH)))
	require.True(t, containsByte(code.Bytecode, byte(compiler.LOAD_EXC)))
	require.True(t, containsByte(code.Bytecode, byte(compiler.END_FINALLY)))
	require.Contains(t, code.Names, "e")
	require.Contains(t, code.Names, "x")
	// the handler cascade is stack-neutral: no handler, any number of
	// non-matching tests, or falling through to END_FINALLY should inflate
	// the computed depth beyond what the raised value itself needs.
	require.LessOrEqual(t, code.StackSize, 2)
}

func TestCompileTryFinallyDuplicatesFinalbody(t *testing.T) {
	stmts := []ast.Stmt{
		&ast.Try{
			Body:      []ast.Stmt{&ast.Pass{}},
			Finalbody: []ast.Stmt{&ast.ExprStmt{Value: &ast.Literal{Kind: ast.IntLit, Int: 99}}},
		},
	}
	unit := resolver.Resolve(stmts)
	code := compiler.Compile("test.tb", stmts, unit)

	require.True(t, containsByte(code.Bytecode, byte(compiler.SETUP_FINALLY)))
	require.True(t, containsByte(code.Bytecode, byte(compiler.POP_BLOCK)))
	require.True(t, containsByte(code.Bytecode, byte(compiler.END_FINALLY)))

	idx := -1
	for i, c := range code.Constants {
		if n, ok := c.(int64); ok && n == 99 {
			idx = i
		}
	}
	require.NotEqual(t, -1, idx, "finally body constant not found")

	loadIt := []byte{byte(compiler.LOAD_CONST), byte(idx), byte(idx >> 8)}
	count := 0
	for i := 0; i+len(loadIt) <= len(code.Bytecode); i++ {
		if string(code.Bytecode[i:i+len(loadIt)]) == string(loadIt) {
			count++
		}
	}
	require.Equal(t, 2, count, "finally body must be emitted once inline and once in the handler")
}

func TestCompileIfEmitsPopJumpAndForwardJump(t *testing.T) {
	stmts := []ast.Stmt{
		&ast.If{
			Test: &ast.Name{Id: "cond", Ctx: ast.Load},
			Body: []ast.Stmt{&ast.Return{Value: &ast.Literal{Kind: ast.IntLit, Int: 1}}},
			Orelse: []ast.Stmt{
				&ast.Return{Value: &ast.Literal{Kind: ast.IntLit, Int: 2}},
			},
		},
	}
	unit := resolver.Resolve(stmts)
	code := compiler.Compile("test.tb", stmts, unit)
	require.True(t, containsByte(code.Bytecode, byte(compiler.POP_JUMP_IF_FALSE)))
	require.True(t, containsByte(code.Bytecode, byte(compiler.JUMP_FORWARD)))
}
