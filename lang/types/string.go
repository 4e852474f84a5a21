package types

import (
	"strconv"
	"strings"

	"github.com/mna/tailbiter/lang/token"
)

// String is the type of a text string: an immutable sequence of bytes.
type String string

var (
	_ Value     = String("")
	_ Ordered   = String("")
	_ Indexable = String("")
	_ HasBinary = String("")
)

func (s String) String() string { return string(s) }
func (s String) Type() string   { return "str" }
func (s String) Truth() Bool    { return len(s) > 0 }
func (s String) Len() int       { return len(s) }
func (s String) Index(i int) Value {
	return s[i : i+1]
}

func (s String) Cmp(y Value) (int, error) {
	t := y.(String)
	return strings.Compare(string(s), string(t)), nil
}

// Binary implements string concatenation (+) and repetition (* by an Int),
// both directions.
func (s String) Binary(op token.Token, y Value, side Side) (Value, error) {
	switch op {
	case token.PLUS:
		t, ok := y.(String)
		if !ok {
			return nil, nil
		}
		if side == Right {
			return t + s, nil
		}
		return s + t, nil
	case token.STAR:
		n, ok := y.(Int)
		if !ok {
			return nil, nil
		}
		if n <= 0 {
			return String(""), nil
		}
		return String(strings.Repeat(string(s), int(n))), nil
	}
	return nil, nil
}

// GoString formats s the way the disassembler and error messages quote
// string constants.
func (s String) GoString() string { return strconv.Quote(string(s)) }

// Bytes is the type of binary data, an immutable sequence of bytes not
// directly comparable to a String.
type Bytes string

var (
	_ Value     = Bytes("")
	_ Ordered   = Bytes("")
	_ Indexable = Bytes("")
)

func (b Bytes) String() string       { return strconv.Quote(string(b)) }
func (b Bytes) Type() string         { return "bytes" }
func (b Bytes) Truth() Bool          { return len(b) > 0 }
func (b Bytes) Len() int             { return len(b) }
func (b Bytes) Index(i int) Value    { return b[i : i+1] }
func (b Bytes) Cmp(y Value) (int, error) {
	bb := y.(Bytes)
	return strings.Compare(string(b), string(bb)), nil
}
