package types

import (
	"fmt"

	"github.com/mna/tailbiter/lang/token"
)

// defaultCompareDepth bounds recursive equality comparisons (tuples of
// tuples, lists of lists) against cyclic structures when the caller does
// not supply its own limit (machine.VM does, via MaxCompareDepth).
const defaultCompareDepth = 1000

// Compare implements the comparison operators dispatched by COMPARE_OP:
// <, <=, >, >=, ==, !=. It does not cover is/is not/in/not in, which the
// machine package handles directly (identity and membership are not
// properties of the operand's Value implementation).
func Compare(op token.Token, x, y Value) (bool, error) {
	return CompareDepth(op, x, y, defaultCompareDepth)
}

// CompareDepth is Compare with an explicit recursion bound, used by the
// machine package so a thread's configured MaxCompareDepth applies to
// every comparison it performs.
func CompareDepth(op token.Token, x, y Value, depth int) (bool, error) {
	if op == token.EQL || op == token.NEQ {
		eq, err := EqualDepth(x, y, depth)
		if err != nil {
			return false, err
		}
		if op == token.NEQ {
			return !eq, nil
		}
		return eq, nil
	}

	// Numeric comparisons accept mixed Int/Float by widening both to
	// Float rather than requiring Cmp's receiver and argument to share a
	// concrete type.
	if isNumber(x) && isNumber(y) {
		c := floatCmp(toFloat(x), toFloat(y))
		return threeway(op, c)
	}

	xo, ok := x.(Ordered)
	if !ok {
		return false, fmt.Errorf("%s not ordered", x.Type())
	}
	if x.Type() != y.Type() {
		return false, fmt.Errorf("cannot compare %s with %s", x.Type(), y.Type())
	}
	c, err := xo.Cmp(y)
	if err != nil {
		return false, err
	}
	return threeway(op, c)
}

func isNumber(v Value) bool {
	switch v.(type) {
	case Int, Float:
		return true
	default:
		return false
	}
}

func threeway(op token.Token, c int) (bool, error) {
	switch op {
	case token.LT:
		return c < 0, nil
	case token.LE:
		return c <= 0, nil
	case token.GT:
		return c > 0, nil
	case token.GE:
		return c >= 0, nil
	default:
		return false, fmt.Errorf("unsupported comparison operator %s", op)
	}
}

// Equals reports whether x and y are equal, using HasEqual if the operand
// implements it (collections compare element-wise), Ordered.Cmp == 0
// otherwise, or Go equality as a last resort (e.g. None, Bool, functions
// and classes compare by identity).
func Equals(x, y Value) (bool, error) { return EqualDepth(x, y, defaultCompareDepth) }

func EqualDepth(x, y Value, depth int) (bool, error) {
	if isNumber(x) && isNumber(y) {
		return floatCmp(toFloat(x), toFloat(y)) == 0, nil
	}
	if x.Type() != y.Type() {
		return false, nil
	}
	if xe, ok := x.(HasEqual); ok {
		return xe.Equals(y, depth)
	}
	if xo, ok := x.(Ordered); ok {
		c, err := xo.Cmp(y)
		return c == 0, err
	}
	return x == y, nil
}

// Binary implements the binary arithmetic/bitwise/concatenation operators
// dispatched by BINARY_ADD and the rest of that family. It tries x as the
// left operand first, then y as the right operand, matching the
// HasBinary.Side contract.
func Binary(op token.Token, x, y Value) (Value, error) {
	if xb, ok := x.(HasBinary); ok {
		z, err := xb.Binary(op, y, Left)
		if err != nil || z != nil {
			return z, err
		}
	}
	if yb, ok := y.(HasBinary); ok {
		z, err := yb.Binary(op, x, Right)
		if err != nil || z != nil {
			return z, err
		}
	}
	return nil, fmt.Errorf("unsupported operand types for %s: %s and %s", op, x.Type(), y.Type())
}

// Unary implements the unary operators dispatched by UNARY_POSITIVE,
// UNARY_NEGATIVE, UNARY_INVERT and UNARY_NOT. NOT is implemented directly
// against Value.Truth rather than HasUnary, since boolean negation applies
// uniformly to every value, not just numeric types.
func Unary(op token.Token, x Value) (Value, error) {
	if op == token.NOT {
		return Bool(!x.Truth()), nil
	}
	xu, ok := x.(HasUnary)
	if !ok {
		return nil, fmt.Errorf("unsupported operand type for %s: %s", op, x.Type())
	}
	z, err := xu.Unary(op)
	if err != nil {
		return nil, err
	}
	if z == nil {
		return nil, fmt.Errorf("unsupported operand type for %s: %s", op, x.Type())
	}
	return z, nil
}
