package compiler

import "fmt"

// Flag bits set on Code.Flags. Grounded directly on
// original_source/src/tailbiter/codegen.py's make_code formula.
const (
	FlagHasLocals    = 0x02 // nlocals > 0
	FlagHasVarargs   = 0x04 // function accepts *args
	FlagHasVarKwargs = 0x08 // function accepts **kwargs
	FlagNested       = 0x10 // scope has freevars: it reads an enclosing frame's cells
	FlagNoFree       = 0x40 // scope has neither cellvars nor freevars
)

// Code is one compiled function, module, or class body: the code
// generator's final, immutable output. Grounded on
// original_source/src/tailbiter/codegen.py's make_code, which builds a
// Python types.CodeType with this same field set (adjusted: this module has
// no positional-only or keyword-only parameters, so those counts are
// omitted rather than always zero).
type Code struct {
	Argcount    int
	NLocals     int
	StackSize   int
	Flags       uint8
	Bytecode    []byte
	Constants   []any // int64, float64, string, []byte, bool, nil, []string (import-from names), or *Code
	Names       []string
	Varnames    []string
	Filename    string
	Name        string
	FirstLineNo int
	Lnotab      []byte
	Freevars    []string
	Cellvars    []string
}

// HasVarargs reports whether Flags marks this code as accepting *args.
func (c *Code) HasVarargs() bool { return c.Flags&FlagHasVarargs != 0 }

// HasVarKwargs reports whether Flags marks this code as accepting **kwargs.
func (c *Code) HasVarKwargs() bool { return c.Flags&FlagHasVarKwargs != 0 }

// Nested reports whether this code reads at least one free variable from
// an enclosing frame.
func (c *Code) Nested() bool { return c.Flags&FlagNested != 0 }

func (c *Code) String() string {
	return fmt.Sprintf("<code %s, file %q, line %d>", c.Name, c.Filename, c.FirstLineNo)
}
