package types

import "fmt"

// Tuple is an immutable ordered list of values, produced by BUILD_TUPLE and
// consumed by UNPACK_SEQUENCE, multi-value call argument passing, and the
// fromlist operand of IMPORT_NAME. Only the list itself is immutable; the
// elements are not.
type Tuple struct{ elems []Value }

// EmptyTuple is the value of a zero-element tuple, used as the argument
// tuple of a call with no positional arguments.
var EmptyTuple = NewTuple(nil)

var (
	_ Value     = (*Tuple)(nil)
	_ Indexable = (*Tuple)(nil)
	_ Iterable  = (*Tuple)(nil)
	_ Sequence  = (*Tuple)(nil)
	_ HasEqual  = (*Tuple)(nil)
)

// NewTuple returns a tuple containing the given elements. The caller must
// not subsequently modify elems.
func NewTuple(elems []Value) *Tuple { return &Tuple{elems: elems} }

func (t *Tuple) String() string    { return fmt.Sprintf("tuple(%p)", t) }
func (t *Tuple) Type() string      { return "tuple" }
func (t *Tuple) Truth() Bool       { return len(t.elems) > 0 }
func (t *Tuple) Len() int          { return len(t.elems) }
func (t *Tuple) Index(i int) Value { return t.elems[i] }
func (t *Tuple) Iterate() Iterator { return &tupleIterator{elems: t.elems} }

func (t *Tuple) Equals(y Value, depth int) (bool, error) {
	yt, ok := y.(*Tuple)
	if !ok {
		return false, nil
	}
	if len(t.elems) != len(yt.elems) {
		return false, nil
	}
	if depth < 1 {
		return false, fmt.Errorf("comparison depth limit exceeded")
	}
	for i, xv := range t.elems {
		eq, err := EqualDepth(xv, yt.elems[i], depth-1)
		if err != nil || !eq {
			return eq, err
		}
	}
	return true, nil
}

type tupleIterator struct{ elems []Value }

func (it *tupleIterator) Next(p *Value) bool {
	if len(it.elems) == 0 {
		return false
	}
	*p = it.elems[0]
	it.elems = it.elems[1:]
	return true
}

func (it *tupleIterator) Done() {}
