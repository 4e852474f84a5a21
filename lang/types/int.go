package types

import (
	"fmt"
	"strconv"

	"github.com/mna/tailbiter/lang/token"
)

// Int is the type of an integer value.
type Int int64

var (
	_ Value     = Int(0)
	_ Ordered   = Int(0)
	_ HasBinary = Int(0)
	_ HasUnary  = Int(0)
)

func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }
func (i Int) Type() string   { return "int" }
func (i Int) Truth() Bool    { return i != 0 }

func (i Int) Cmp(y Value) (int, error) {
	j := y.(Int)
	switch {
	case i < j:
		return -1, nil
	case i > j:
		return +1, nil
	default:
		return 0, nil
	}
}

// Unary implements +int, -int and ~int.
func (i Int) Unary(op token.Token) (Value, error) {
	switch op {
	case token.UPLUS:
		return i, nil
	case token.UMINUS:
		return -i, nil
	case token.UTILDE:
		return ^i, nil
	}
	return nil, nil
}

// Binary implements the arithmetic and bitwise binary operators between two
// Ints. Int op Float is handled by Float.Binary on the Float side; this
// method declines (nil, nil) for any y that is not an Int, letting the
// standalone Binary function try the other operand.
func (i Int) Binary(op token.Token, y Value, side Side) (Value, error) {
	j, ok := y.(Int)
	if !ok {
		return nil, nil
	}
	x, z := i, j
	if side == Right {
		x, z = j, i
	}
	switch op {
	case token.PLUS:
		return x + z, nil
	case token.MINUS:
		return x - z, nil
	case token.STAR:
		return x * z, nil
	case token.SLASH:
		if z == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return Float(x) / Float(z), nil
	case token.SLASHSLASH:
		if z == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return floorDiv(x, z), nil
	case token.PERCENT:
		if z == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return floorMod(x, z), nil
	case token.POWER:
		return intPow(x, z), nil
	case token.AMPERSAND:
		return x & z, nil
	case token.PIPE:
		return x | z, nil
	case token.CIRCUMFLEX:
		return x ^ z, nil
	case token.LTLT:
		return x << uint(z), nil
	case token.GTGT:
		return x >> uint(z), nil
	}
	return nil, nil
}

// floorDiv implements Python-style floor division (rounds toward negative
// infinity, not toward zero).
func floorDiv(x, y Int) Int {
	q := x / y
	if (x%y != 0) && ((x < 0) != (y < 0)) {
		q--
	}
	return q
}

// floorMod implements Python-style modulo: the result has the same sign as
// the divisor.
func floorMod(x, y Int) Int {
	r := x % y
	if r != 0 && (r < 0) != (y < 0) {
		r += y
	}
	return r
}

func intPow(x, y Int) Int {
	if y < 0 {
		return 0
	}
	result := Int(1)
	for ; y > 0; y-- {
		result *= x
	}
	return result
}
