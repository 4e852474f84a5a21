package compiler_test

import (
	"testing"

	"github.com/mna/tailbiter/lang/compiler"
	"github.com/stretchr/testify/require"
)

func TestConcatLength(t *testing.T) {
	f := compiler.Concat(
		compiler.Op(compiler.POP_TOP),
		compiler.OpArg(compiler.LOAD_CONST, 5),
	)
	require.Equal(t, 4, f.Length())
}

func TestAssembleEncodesPlainOpcode(t *testing.T) {
	got := compiler.Assemble(compiler.Op(compiler.RETURN_VALUE))
	require.Equal(t, []byte{byte(compiler.RETURN_VALUE)}, got)
}

func TestAssembleEncodesArgOpcode(t *testing.T) {
	got := compiler.Assemble(compiler.OpArg(compiler.LOAD_CONST, 300))
	require.Equal(t, []byte{byte(compiler.LOAD_CONST), 300 % 256, 300 / 256}, got)
}

func TestAssembleResolvesAbsoluteJump(t *testing.T) {
	target := compiler.NewLabel("target")
	f := compiler.Concat(
		compiler.OpJump(compiler.JUMP_ABSOLUTE, target),
		compiler.Op(compiler.POP_TOP),
		target,
		compiler.Op(compiler.RETURN_VALUE),
	)
	got := compiler.Assemble(f)
	require.Equal(t, []byte{
		byte(compiler.JUMP_ABSOLUTE), 4, 0,
		byte(compiler.POP_TOP),
		byte(compiler.RETURN_VALUE),
	}, got)
}

func TestAssembleResolvesRelativeJump(t *testing.T) {
	target := compiler.NewLabel("target")
	f := compiler.Concat(
		compiler.Op(compiler.POP_TOP),
		compiler.OpJump(compiler.JUMP_FORWARD, target),
		target,
		compiler.Op(compiler.RETURN_VALUE),
	)
	got := compiler.Assemble(f)
	// JUMP_FORWARD starts at byte 1, its instruction is 3 bytes, target is
	// at byte 4: relative offset = 4 - (1+3) = 0.
	require.Equal(t, []byte{
		byte(compiler.POP_TOP),
		byte(compiler.JUMP_FORWARD), 0, 0,
		byte(compiler.RETURN_VALUE),
	}, got)
}

func TestPlumbDepthsTracksStackEffect(t *testing.T) {
	f := compiler.Concat(
		compiler.OpArg(compiler.LOAD_CONST, 0),
		compiler.OpArg(compiler.LOAD_CONST, 0),
		compiler.Op(compiler.BINARY_ADD),
		compiler.Op(compiler.RETURN_VALUE),
	)
	require.Equal(t, 2, compiler.PlumbDepths(f))
}

func TestMakeLnotabSimple(t *testing.T) {
	f := compiler.Concat(
		compiler.Line{N: 1},
		compiler.Op(compiler.POP_TOP),
		compiler.Line{N: 2},
		compiler.Op(compiler.RETURN_VALUE),
	)
	firstLine, lnotab := compiler.MakeLnotab(f)
	require.Equal(t, 1, firstLine)
	require.Equal(t, []byte{1, 1}, lnotab)
}

func TestMakeLnotabNoLines(t *testing.T) {
	firstLine, lnotab := compiler.MakeLnotab(compiler.NoOp{})
	require.Equal(t, 1, firstLine)
	require.Nil(t, lnotab)
}

func TestOffsetStackAdjustsDepth(t *testing.T) {
	f := compiler.Concat(
		compiler.OpArg(compiler.LOAD_CONST, 0),
		compiler.OffsetStack{},
	)
	require.Equal(t, 1, compiler.PlumbDepths(f))
}

func TestLookupOpcodeRoundTrips(t *testing.T) {
	op, ok := compiler.LookupOpcode("BINARY_ADD")
	require.True(t, ok)
	require.Equal(t, compiler.BINARY_ADD, op)

	_, ok = compiler.LookupOpcode("NOT_AN_OPCODE")
	require.False(t, ok)
}
