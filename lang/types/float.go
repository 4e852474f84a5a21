package types

import (
	"fmt"
	"math"

	"github.com/mna/tailbiter/lang/token"
)

// Float is the type of a floating point number.
type Float float64

var (
	_ Value     = Float(0)
	_ Ordered   = Float(0)
	_ HasBinary = Float(0)
	_ HasUnary  = Float(0)
)

func (f Float) String() string { return fmt.Sprintf("%g", float64(f)) }
func (f Float) Type() string   { return "float" }
func (f Float) Truth() Bool    { return f != 0.0 }

func (f Float) Cmp(y Value) (int, error) {
	g := toFloat(y)
	return floatCmp(f, g), nil
}

// floatCmp performs a three-valued comparison on floats, which are totally
// ordered with NaN greater than +Inf (matches
// _examples/mna-nenuphar/lang/machine/float.go).
func floatCmp(x, y Float) int {
	if x > y {
		return +1
	} else if x < y {
		return -1
	} else if x == y {
		return 0
	}
	// At least one operand is NaN.
	if x == x {
		return -1 // y is NaN
	} else if y == y {
		return +1 // x is NaN
	}
	return 0 // both NaN
}

func (f Float) Unary(op token.Token) (Value, error) {
	switch op {
	case token.UPLUS:
		return f, nil
	case token.UMINUS:
		return -f, nil
	}
	return nil, nil
}

// toFloat widens an Int to a Float; any other type is a compiler-level
// invariant violation (the code generator never emits arithmetic between
// incompatible types it cannot prove are numeric at this boundary, and the
// conformity checker has already rejected anything it can prove wrong).
func toFloat(v Value) Float {
	switch v := v.(type) {
	case Float:
		return v
	case Int:
		return Float(v)
	}
	panic(fmt.Sprintf("types: %s is not a number", v.Type()))
}

// Binary implements the arithmetic operators between a Float and either a
// Float or an Int (the Int is widened). Declines for any other type.
func (f Float) Binary(op token.Token, y Value, side Side) (Value, error) {
	switch y.(type) {
	case Float, Int:
	default:
		return nil, nil
	}
	g := toFloat(y)
	x, z := f, g
	if side == Right {
		x, z = g, f
	}
	switch op {
	case token.PLUS:
		return x + z, nil
	case token.MINUS:
		return x - z, nil
	case token.STAR:
		return x * z, nil
	case token.SLASH:
		return x / z, nil
	case token.SLASHSLASH:
		return Float(math.Floor(float64(x / z))), nil
	case token.PERCENT:
		return Float(math.Mod(float64(x), float64(z))), nil
	case token.POWER:
		return Float(math.Pow(float64(x), float64(z))), nil
	}
	return nil, nil
}
