// Package types implements the runtime value model manipulated by the
// virtual machine: the booleans, numbers, strings, collections, functions,
// classes and exceptions a compiled module's bytecode pushes and pops from
// its operand stack. Grounded in
// _examples/mna-nenuphar/lang/machine/{value,map,tuple,float,function,cell,
// nil,universe}.go for the interface hierarchy and concrete type shapes.
package types

import "github.com/mna/tailbiter/lang/token"

// Value is the interface implemented by any value manipulated by the
// machine.
type Value interface {
	// String returns the string representation of the value.
	String() string
	// Type returns a short string describing the value's type, used in
	// error messages.
	Type() string
	// Truth returns the truth value of the receiver, used by conditional
	// jumps and boolean operators.
	Truth() Bool
}

// A Callable value may be the operand of a CALL_FUNCTION family
// instruction. The dispatch of the call itself — binding arguments,
// constructing a frame, unwrapping a bound method's receiver — is the
// machine package's job (see lang/machine's callValue), not a method on the value,
// since only the machine owns the frame stack.
type Callable interface {
	Value
	Name() string
}

// An Ordered type is a type whose values are totally ordered: if x and y
// are of the same Ordered type, then x must be less than y, greater than
// y, or equal to y.
type Ordered interface {
	Value
	// Cmp compares two values of the same ordered type. It returns
	// negative if the receiver is less than y, positive if greater, zero
	// if equal.
	Cmp(y Value) (int, error)
}

// A HasEqual type defines custom equality logic for its values, for types
// that are not Ordered but should not compare by identity (e.g. tuples,
// compared element-wise).
type HasEqual interface {
	Value
	Equals(y Value, depth int) (bool, error)
}

// An Iterable abstracts a sequence of values that may be iterated over.
// Unlike a Sequence, its length need not be known in advance.
type Iterable interface {
	Value
	Iterate() Iterator
}

// A Sequence is an Iterable of known length.
type Sequence interface {
	Iterable
	Len() int
}

// An Indexable is a sequence of known length supporting random access,
// used by BINARY_SUBSCR.
type Indexable interface {
	Value
	Index(i int) Value
	Len() int
}

// A HasSetIndex is an Indexable whose elements may be assigned (x[i] = y),
// used by STORE_SUBSCR.
type HasSetIndex interface {
	Indexable
	SetIndex(i int, v Value) error
}

// An Iterator provides a sequence of values to the caller. Done must be
// called once the iterator is no longer needed (FOR_ITER pairs every
// GET_ITER push with exactly one iterator, released when the loop exits
// by any path).
type Iterator interface {
	Next(p *Value) bool
	Done()
}

// A Mapping is a mapping from keys to values, used by BINARY_SUBSCR when
// the receiver is a dict rather than a sequence.
type Mapping interface {
	Value
	Get(k Value) (v Value, found bool, err error)
}

// A HasSetKey supports map update using x[k] = v, used by STORE_SUBSCR and
// STORE_MAP.
type HasSetKey interface {
	Mapping
	SetKey(k, v Value) error
}

// Side indicates whether a HasBinary receiver is the left or right operand
// of a binary operator, so mixed-type operations (e.g. int + float) can be
// handled by whichever operand recognizes the other.
type Side bool

const (
	Left  Side = false
	Right Side = true
)

// A HasBinary value may be used as either operand of the binary operators
// implemented by BINARY_ADD, BINARY_SUBTRACT, and the rest of that family.
// An implementation may decline to handle an operation by returning (nil,
// nil); the standalone Binary function then reports the usual type error.
type HasBinary interface {
	Value
	Binary(op token.Token, y Value, side Side) (Value, error)
}

// A HasUnary value may be used as the operand of the unary operators
// implemented by UNARY_POSITIVE, UNARY_NEGATIVE and UNARY_INVERT. An
// implementation may decline by returning (nil, nil).
type HasUnary interface {
	Value
	Unary(op token.Token) (Value, error)
}

// A HasAttrs value has fields or methods read by LOAD_ATTR.
type HasAttrs interface {
	Value
	// Attr returns the field or method value named name. A result of
	// (nil, nil) means "no such field or method".
	Attr(name string) (Value, error)
	AttrNames() []string
}

// A HasSetField value has fields written by STORE_ATTR.
type HasSetField interface {
	HasAttrs
	SetField(name string, val Value) error
}

// NoSuchAttrError is returned by a HasAttrs.Attr or HasSetField.SetField
// implementation to indicate that no such field exists.
type NoSuchAttrError string

func (e NoSuchAttrError) Error() string { return string(e) }
