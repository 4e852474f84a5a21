package types

import (
	"fmt"

	"github.com/mna/tailbiter/lang/compiler"
)

// Module is the dynamic counterpart to a compiler.Code module object: the
// unit of compilation. Every Function created from code nested inside the
// same top-level compile shares a Module, so they share one global
// namespace and one realized-constants cache — but each nested *compiler.
// Code has its own Constants table (interned per-scope by the code
// generator), so the cache is keyed by *compiler.Code rather than holding
// a single flat slice.
type Module struct {
	Code      *compiler.Code // the top-level (module) code object
	Globals   *Dict          // LOAD_NAME/STORE_NAME target at module scope
	constants map[*compiler.Code][]Value
}

// NewModule builds the dynamic Module wrapper for a freshly compiled
// top-level code object, with an empty global namespace.
func NewModule(code *compiler.Code) *Module {
	return &Module{Code: code, Globals: NewDict(0), constants: make(map[*compiler.Code][]Value)}
}

// Constants returns code's constants pool realized as Values, computing and
// memoizing it on first use. Every frame running code looks its LOAD_CONST
// operands up here rather than in m.Code.Constants directly, since code may
// be any nested function/class body compiled as part of m, not just the
// module's own top-level code.
func (m *Module) Constants(code *compiler.Code) []Value {
	if vs, ok := m.constants[code]; ok {
		return vs
	}
	vs := make([]Value, len(code.Constants))
	for i, c := range code.Constants {
		vs[i] = realizeConstant(c)
	}
	m.constants[code] = vs
	return vs
}

// realizeConstant converts one compiler.Code.Constants entry (int64,
// float64, string, []byte, bool, nil, []string or *compiler.Code — see
// code.go) into the Value the operand stack actually carries.
func realizeConstant(c any) Value {
	switch v := c.(type) {
	case int64:
		return Int(v)
	case float64:
		return Float(v)
	case string:
		return String(v)
	case []byte:
		return Bytes(v)
	case bool:
		return Bool(v)
	case nil:
		return None
	case []string:
		elems := make([]Value, len(v))
		for i, s := range v {
			elems[i] = String(s)
		}
		return NewTuple(elems)
	case *compiler.Code:
		return CodeConst{Code: v}
	default:
		panic(fmt.Sprintf("types: unrealizable constant of type %T", c))
	}
}

// CodeConst wraps a nested compiler.Code constant so a MAKE_FUNCTION/
// MAKE_CLOSURE operand can travel the operand stack like any other Value
// between the LOAD_CONST that pushes it and the opcode that consumes it.
// It is never itself a first-class language value (no user code ever sees
// one) — Type name follows the "code" kind tag asm/dasm uses for it.
type CodeConst struct{ Code *compiler.Code }

var _ Value = CodeConst{}

func (c CodeConst) String() string { return c.Code.String() }
func (c CodeConst) Type() string   { return "code" }
func (c CodeConst) Truth() Bool    { return True }

// Function is a function defined by a function statement/expression, or
// the implicit top-level function representing a module's initialization
// code, or a class body's code object (run once, at class-definition
// time).
type Function struct {
	Code     *compiler.Code
	Module   *Module
	Freevars []*Cell // one per Code.Freevars, in that order
}

var (
	_ Value    = (*Function)(nil)
	_ Callable = (*Function)(nil)
)

func (fn *Function) String() string { return fmt.Sprintf("function(%p %s)", fn, fn.Name()) }
func (fn *Function) Type() string   { return "function" }
func (fn *Function) Truth() Bool    { return True }
func (fn *Function) Name() string {
	if fn.Code.Name == "" {
		return "<anonymous>"
	}
	return fn.Code.Name
}

// BoundMethod couples a Function to the instance it was looked up on,
// modeling CPython's im_func/im_self/im_class triple referenced by the
// call protocol's unbound-method check (spec.md §4.5).
type BoundMethod struct {
	Func  *Function
	Self  Value
	Class *Class
}

var (
	_ Value    = (*BoundMethod)(nil)
	_ Callable = (*BoundMethod)(nil)
)

func (m *BoundMethod) String() string { return fmt.Sprintf("bound method %s", m.Func.Name()) }
func (m *BoundMethod) Type() string   { return "method" }
func (m *BoundMethod) Truth() Bool    { return True }
func (m *BoundMethod) Name() string   { return m.Func.Name() }
