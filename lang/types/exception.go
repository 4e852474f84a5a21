package types

import (
	"fmt"
	"strings"
)

// Exception is the runtime representation of a raised error. spec.md §9's
// Design Notes observes that the reference VM assumes host exceptions
// carry a `__traceback__` attribute and an `args` tuple; since Go has no
// such exception ABI, this struct models both explicitly, plus Cause for
// `raise e from cause` (spec.md §4.5's RAISE_VARARGS argc=2).
type Exception struct {
	Class *Class // the exception's class, e.g. ValueError
	Args  *Tuple
	Cause Value // nil if none
}

var (
	_ Value      = (*Exception)(nil)
	_ HasAttrs   = (*Exception)(nil)
	_ error      = (*Exception)(nil)
)

func NewException(class *Class, args *Tuple) *Exception {
	if args == nil {
		args = EmptyTuple
	}
	return &Exception{Class: class, Args: args}
}

func (e *Exception) String() string { return e.Error() }
func (e *Exception) Type() string   { return e.Class.ClassName }
func (e *Exception) Truth() Bool    { return True }

// Error implements the Go error interface so an Exception escaping the
// outermost frame (spec.md §7's "when they escape the outermost frame,
// they are re-raised to the caller of the VM") can be returned as a plain
// Go error from machine.VM.RunProgram.
func (e *Exception) Error() string {
	parts := make([]string, e.Args.Len())
	for i := 0; i < e.Args.Len(); i++ {
		parts[i] = e.Args.Index(i).String()
	}
	if len(parts) == 0 {
		return e.Class.ClassName
	}
	return fmt.Sprintf("%s: %s", e.Class.ClassName, strings.Join(parts, ", "))
}

func (e *Exception) Attr(name string) (Value, error) {
	switch name {
	case "args":
		return e.Args, nil
	case "__cause__":
		if e.Cause == nil {
			return None, nil
		}
		return e.Cause, nil
	}
	return nil, nil
}

func (e *Exception) AttrNames() []string { return []string{"args", "__cause__"} }
