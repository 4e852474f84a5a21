package types

import "fmt"

// Universe is the set of names predeclared in every module's global
// namespace before its top-level code runs: the builtin exception classes
// and the handful of builtin functions this subset of the language
// supports. Grounded on _examples/mna-nenuphar/lang/machine/universe.go's
// shape (a plain name->Value map plus an IsUniverse membership test).
type Universe map[string]Value

// IsUniverse reports whether name is predeclared by the Universe. The
// resolver does not consult it: a name it leaves unresolved is looked up at
// run time, where the VM's loadName falls back to the Universe.
func (u Universe) IsUniverse(name string) bool {
	_, ok := u[name]
	return ok
}

// ExceptionClass is the root of the builtin exception hierarchy; every
// other builtin exception class derives from it, and user code may also
// subclass it directly.
var ExceptionClass = &Class{ClassName: "Exception", Namespace: NewDict(0)}

func derivedException(name string) *Class {
	return &Class{ClassName: name, Bases: []*Class{ExceptionClass}, Namespace: NewDict(0)}
}

var (
	ValueErrorClass        = derivedException("ValueError")
	TypeErrorClass         = derivedException("TypeError")
	AssertionErrorClass    = derivedException("AssertionError")
	StopIterationClass     = derivedException("StopIteration")
	NameErrorClass         = derivedException("NameError")
	KeyErrorClass          = derivedException("KeyError")
	IndexErrorClass        = derivedException("IndexError")
	ZeroDivisionErrorClass = derivedException("ZeroDivisionError")
	AttributeErrorClass    = derivedException("AttributeError")
)

// NewUniverse builds the predeclared global namespace shared by every
// module a machine.VM runs.
func NewUniverse() Universe {
	u := Universe{
		"Exception":         ExceptionClass,
		"ValueError":        ValueErrorClass,
		"TypeError":         TypeErrorClass,
		"AssertionError":    AssertionErrorClass,
		"StopIteration":     StopIterationClass,
		"NameError":         NameErrorClass,
		"KeyError":          KeyErrorClass,
		"IndexError":        IndexErrorClass,
		"ZeroDivisionError": ZeroDivisionErrorClass,
		"AttributeError":    AttributeErrorClass,
		"None":              None,
		"True":              True,
		"False":             False,
	}
	for _, b := range []*Builtin{builtinLen, builtinPrint, builtinRange} {
		u[b.Nm] = b
	}
	return u
}

var builtinLen = &Builtin{Nm: "len", Fn: func(args *Tuple) (Value, error) {
	if args.Len() != 1 {
		return nil, fmt.Errorf("len() takes exactly one argument (%d given)", args.Len())
	}
	v, ok := args.Index(0).(Sequence)
	if !ok {
		return nil, fmt.Errorf("object of type %q has no len()", args.Index(0).Type())
	}
	return Int(v.Len()), nil
}}

var builtinPrint = &Builtin{Nm: "print", Fn: func(args *Tuple) (Value, error) {
	for i := 0; i < args.Len(); i++ {
		if i > 0 {
			fmt.Print(" ")
		}
		fmt.Print(args.Index(i).String())
	}
	fmt.Println()
	return None, nil
}}

// builtinRange implements the one, two and three-argument forms of
// range(), matching Python's: range(stop), range(start, stop),
// range(start, stop, step).
var builtinRange = &Builtin{Nm: "range", Fn: func(args *Tuple) (Value, error) {
	ints := make([]Int, args.Len())
	for i := 0; i < args.Len(); i++ {
		n, ok := args.Index(i).(Int)
		if !ok {
			return nil, fmt.Errorf("range() arguments must be integers")
		}
		ints[i] = n
	}
	switch len(ints) {
	case 1:
		return NewRange(0, ints[0], 1), nil
	case 2:
		return NewRange(ints[0], ints[1], 1), nil
	case 3:
		if ints[2] == 0 {
			return nil, fmt.Errorf("range() arg 3 must not be zero")
		}
		return NewRange(ints[0], ints[1], ints[2]), nil
	default:
		return nil, fmt.Errorf("range() expected 1 to 3 arguments, got %d", len(ints))
	}
}}
