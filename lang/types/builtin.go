package types

import "fmt"

// Builtin is a native (Go-implemented) callable, used for the handful of
// builtins the Universe predeclares (len, print, range) and for any host
// function a machine.VM's Predeclared map supplies. Unlike Function, a
// Builtin's body runs as a plain Go call rather than through the VM's
// frame machinery, since it needs no bytecode of its own.
type Builtin struct {
	Nm string
	Fn func(args *Tuple) (Value, error)
}

var (
	_ Value    = (*Builtin)(nil)
	_ Callable = (*Builtin)(nil)
)

func (b *Builtin) String() string { return fmt.Sprintf("<built-in function %s>", b.Nm) }
func (b *Builtin) Type() string   { return "builtin_function_or_method" }
func (b *Builtin) Truth() Bool    { return True }
func (b *Builtin) Name() string   { return b.Nm }

// Call invokes the builtin directly; it does not require a VM since
// builtins in this language have no bytecode body.
func (b *Builtin) Call(args *Tuple) (Value, error) { return b.Fn(args) }
