package machine

import (
	"fmt"
	"strings"

	"github.com/mna/tailbiter/lang/compiler"
	"github.com/mna/tailbiter/lang/token"
	"github.com/mna/tailbiter/lang/types"
)

// toException classifies a plain Go error raised by a lang/types
// operation (Binary, GetAttr, GetIndex, ...) into a catchable
// *types.Exception. lang/types itself returns plain errors for runtime
// type/index/key/name mismatches (see e.g. ops.go, int.go) rather than
// importing lang/machine to build an Exception directly, since that
// would invert the package dependency the rest of this module relies on;
// this is the single seam where those errors become values the program's
// own except clauses can match against a Universe class.
func toException(err error) *types.Exception {
	if err == nil {
		return nil
	}
	if exc, ok := err.(*types.Exception); ok {
		return exc
	}
	msg := err.Error()
	class := types.TypeErrorClass
	switch {
	case strings.Contains(msg, "has no attribute"):
		class = types.AttributeErrorClass
	case strings.Contains(msg, "index out of range"):
		class = types.IndexErrorClass
	case strings.Contains(msg, "not found"):
		class = types.KeyErrorClass
	case strings.Contains(msg, "not defined"):
		class = types.NameErrorClass
	case strings.Contains(msg, "division by zero"):
		class = types.ZeroDivisionErrorClass
	}
	return types.NewException(class, types.NewTuple([]types.Value{types.String(msg)}))
}

// excFromValue converts a RAISE_VARARGS operand into the *types.Exception
// it denotes: already an Exception (the common case, since `raise
// E(...)` evaluates a Call first), or a bare class reference (`raise E`),
// instantiated with no arguments.
func excFromValue(v types.Value) (*types.Exception, error) {
	switch e := v.(type) {
	case *types.Exception:
		return e, nil
	case *types.Class:
		if !e.IsSubclass(types.ExceptionClass) {
			return nil, fmt.Errorf("exceptions must derive from Exception, not %s", e.ClassName)
		}
		return types.NewException(e, nil), nil
	default:
		return nil, fmt.Errorf("exceptions must be a class or instance deriving from Exception, not %s", v.Type())
	}
}

// doRaise implements RAISE_VARARGS for the argc this compiler's codegen
// emits (always 1, cg.stmtBody's *ast.Raise case) and structurally
// extends to argc 2 (`raise e from cause`, spec.md §4.5) even though
// nothing currently compiles to it.
func doRaise(vals []types.Value) (*types.Exception, error) {
	switch len(vals) {
	case 1:
		return excFromValue(vals[0])
	case 2:
		exc, err := excFromValue(vals[0])
		if err != nil {
			return nil, err
		}
		exc.Cause = vals[1]
		return exc, nil
	default:
		return nil, fmt.Errorf("RAISE_VARARGS with %d arguments not supported", len(vals))
	}
}

// excMatches implements JUMP_IF_NOT_EXC_MATCH's test: exc matches typeVal
// if typeVal is a class exc.Class descends from, or a tuple of classes
// any of which it descends from.
func (vm *VM) excMatches(exc *types.Exception, typeVal types.Value) (bool, error) {
	if exc == nil {
		return false, fmt.Errorf("machine: exception match attempted with no pending exception")
	}
	switch t := typeVal.(type) {
	case *types.Class:
		return exc.Class.IsSubclass(t), nil
	case *types.Tuple:
		for i := 0; i < t.Len(); i++ {
			if cls, ok := t.Index(i).(*types.Class); ok && exc.Class.IsSubclass(cls) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("catching non-class %s", typeVal.Type())
	}
}

// compareTokens is COMPARE_OP's operand-to-token table, the inverse of
// lang/compiler/codegen.go's compareIndex.
var compareTokens = [10]token.Token{
	token.LT, token.LE, token.GT, token.GE, token.EQL,
	token.NEQ, token.IS, token.ISNOT, token.IN, token.NOTIN,
}

// compareOp implements COMPARE_OP. Six of its ten indices (<, <=, >, >=,
// ==, !=) delegate to types.CompareDepth; is/is not/in/not in are handled
// here directly, since compare.go's own doc comment excludes them from
// Compare/CompareDepth (identity and membership are not properties of the
// operand's Value implementation).
func (vm *VM) compareOp(idx int, x, y types.Value) (bool, error) {
	if idx < 0 || idx >= len(compareTokens) {
		return false, fmt.Errorf("machine: invalid COMPARE_OP index %d", idx)
	}
	switch op := compareTokens[idx]; op {
	case token.IS:
		return x == y, nil
	case token.ISNOT:
		return x != y, nil
	case token.IN, token.NOTIN:
		found, err := membership(y, x)
		if err != nil {
			return false, err
		}
		if op == token.NOTIN {
			return !found, nil
		}
		return found, nil
	default:
		return types.CompareDepth(op, x, y, vm.compareDepth())
	}
}

// membership implements `item in container` for the Mapping (key lookup)
// and Iterable (linear scan with Equals) cases.
func membership(container, item types.Value) (bool, error) {
	switch c := container.(type) {
	case types.Mapping:
		_, found, err := c.Get(item)
		return found, err
	case types.Iterable:
		it := c.Iterate()
		defer it.Done()
		var v types.Value
		for it.Next(&v) {
			eq, err := types.Equals(v, item)
			if err != nil {
				return false, err
			}
			if eq {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("argument of type %q is not iterable", container.Type())
	}
}

var unaryTokens = map[compiler.Opcode]token.Token{
	compiler.UNARY_POSITIVE: token.UPLUS,
	compiler.UNARY_NEGATIVE: token.UMINUS,
	compiler.UNARY_INVERT:   token.UTILDE,
	compiler.UNARY_NOT:      token.NOT,
}

var binaryTokens = map[compiler.Opcode]token.Token{
	compiler.BINARY_ADD:          token.PLUS,
	compiler.BINARY_SUBTRACT:     token.MINUS,
	compiler.BINARY_MULTIPLY:     token.STAR,
	compiler.BINARY_TRUE_DIVIDE:  token.SLASH,
	compiler.BINARY_FLOOR_DIVIDE: token.SLASHSLASH,
	compiler.BINARY_MODULO:       token.PERCENT,
	compiler.BINARY_POWER:        token.POWER,
	compiler.BINARY_AND:          token.AMPERSAND,
	compiler.BINARY_OR:           token.PIPE,
	compiler.BINARY_XOR:          token.CIRCUMFLEX,
	compiler.BINARY_LSHIFT:       token.LTLT,
	compiler.BINARY_RSHIFT:       token.GTGT,
}
