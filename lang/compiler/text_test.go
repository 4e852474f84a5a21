package compiler_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mna/tailbiter/internal/filetest"
	"github.com/mna/tailbiter/lang/compiler"
	"github.com/stretchr/testify/require"
)

// TestDasmGolden disassembles a hand-built Code object and diffs the
// result against the single golden file in testdata/dasm
// (testdata/dasm/double.want).
func TestDasmGolden(t *testing.T) {
	code := &compiler.Code{
		Name:        "double",
		Filename:    "golden.tb",
		Argcount:    1,
		NLocals:     1,
		StackSize:   2,
		FirstLineNo: 1,
		Varnames:    []string{"x"},
		Constants:   []any{int64(2)},
		Bytecode: encodeInsns(t,
			insn{compiler.LOAD_FAST, 0},
			insn{compiler.LOAD_CONST, 0},
			insn{compiler.BINARY_MULTIPLY, -1},
			insn{compiler.RETURN_VALUE, -1},
		),
	}

	out, err := compiler.Dasm(code)
	require.NoError(t, err)

	dir := filepath.Join("testdata", "dasm")
	fis := filetest.SourceFiles(t, dir, ".want")
	require.Len(t, fis, 1)

	// DiffOutput appends ".want" itself, so the FileInfo it's handed must
	// report the stem, not the golden file's own name.
	fi := &namedFileInfo{FileInfo: fis[0], name: strings.TrimSuffix(fis[0].Name(), ".want")}
	filetest.DiffOutput(t, fi, string(out), dir, &update)
}

var update = false

// namedFileInfo overrides Name() so filetest.DiffOutput looks for
// "<name>.want" instead of "<name>.want.want".
type namedFileInfo struct {
	os.FileInfo
	name string
}

func (fi *namedFileInfo) Name() string { return fi.name }

// TestAsmParsesDasmOutput feeds Dasm's own output for a nested module
// (a top-level module whose constants include a closure's Code) back
// through Asm and checks that the name, names, bytecode and constants
// round-trip, including the nested Code reached only through a
// "code <id>" constant line (its name, varnames and bytecode). Jumps are
// covered by TestAsmDasmRoundTripWithJump.
func TestAsmParsesDasmOutput(t *testing.T) {
	inner := &compiler.Code{
		Name:        "<lambda>",
		Filename:    "nested.tb",
		Argcount:    1,
		NLocals:     1,
		StackSize:   1,
		FirstLineNo: 3,
		Varnames:    []string{"x"},
		Constants:   []any{nil},
		Bytecode: encodeInsns(t,
			insn{compiler.LOAD_FAST, 0},
			insn{compiler.RETURN_VALUE, -1},
		),
	}
	top := &compiler.Code{
		Name:        "<module>",
		Filename:    "nested.tb",
		NLocals:     0,
		StackSize:   2,
		FirstLineNo: 1,
		Names:       []string{"f"},
		Constants:   []any{inner, nil},
		Bytecode: encodeInsns(t,
			insn{compiler.LOAD_CONST, 0},
			insn{compiler.STORE_NAME, 0},
			insn{compiler.LOAD_CONST, 1},
			insn{compiler.RETURN_VALUE, -1},
		),
	}

	text, err := compiler.Dasm(top)
	require.NoError(t, err)

	got, err := compiler.Asm(text)
	require.NoError(t, err)

	require.Equal(t, top.Name, got.Name)
	require.Equal(t, top.Names, got.Names)
	require.Equal(t, top.Bytecode, got.Bytecode)
	require.Len(t, got.Constants, 2)
	require.Nil(t, got.Constants[1])
	gotInner, ok := got.Constants[0].(*compiler.Code)
	require.True(t, ok, "expected constants[0] to be a *Code, got %T", got.Constants[0])
	require.Equal(t, inner.Name, gotInner.Name)
	require.Equal(t, inner.Varnames, gotInner.Varnames)
	require.Equal(t, inner.Bytecode, gotInner.Bytecode)
}

// TestAsmDasmRoundTripWithJump exercises a jump opcode: Dasm must encode
// its target as an instruction index, and Asm must translate that index
// back into the exact same byte offset the original held.
func TestAsmDasmRoundTripWithJump(t *testing.T) {
	// if x: return 1
	// return 0
	//
	//     LOAD_FAST 0            ; 0
	//     POP_JUMP_IF_FALSE <L>  ; 3
	//     LOAD_CONST 0           ; 6
	//     RETURN_VALUE           ; 9
	// L: LOAD_CONST 1            ; 10
	//     RETURN_VALUE           ; 13
	code := &compiler.Code{
		Name:        "f",
		Filename:    "jump.tb",
		Argcount:    1,
		NLocals:     1,
		StackSize:   1,
		FirstLineNo: 1,
		Varnames:    []string{"x"},
		Constants:   []any{int64(1), int64(0)},
	}
	code.Bytecode = encodeInsns(t,
		insn{compiler.LOAD_FAST, 0},
		insn{compiler.POP_JUMP_IF_FALSE, 10},
		insn{compiler.LOAD_CONST, 0},
		insn{compiler.RETURN_VALUE, -1},
		insn{compiler.LOAD_CONST, 1},
		insn{compiler.RETURN_VALUE, -1},
	)

	text, err := compiler.Dasm(code)
	require.NoError(t, err)

	got, err := compiler.Asm(text)
	require.NoError(t, err)
	require.Equal(t, code.Bytecode, got.Bytecode)
}

type insn struct {
	op  compiler.Opcode
	arg int
}

// encodeInsns packs insns into a raw bytecode blob. arg is a byte address
// for jump opcodes (as compiler.Compile would itself have resolved it) or
// the plain operand otherwise; it is ignored for no-argument opcodes.
func encodeInsns(t *testing.T, insns ...insn) []byte {
	t.Helper()
	var buf []byte
	for _, in := range insns {
		buf = append(buf, byte(in.op))
		if in.op >= compiler.HAVE_ARGUMENT {
			buf = append(buf, byte(in.arg), byte(in.arg>>8))
		}
	}
	return buf
}
