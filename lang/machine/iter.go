package machine

import (
	"fmt"

	"github.com/mna/tailbiter/lang/types"
)

// iterValue wraps a types.Iterator so GET_ITER can push it as an ordinary
// operand-stack Value between the GET_ITER that creates it and the
// FOR_ITER instructions that drive it. It is never exposed to user code
// (no bytecode sequence can produce one except GET_ITER, nor consume one
// except FOR_ITER), so its Value methods exist only to satisfy the
// interface.
type iterValue struct{ it types.Iterator }

var _ types.Value = iterValue{}

func (iterValue) String() string   { return "<iterator>" }
func (iterValue) Type() string     { return "iterator" }
func (iterValue) Truth() types.Bool { return types.True }

func iterate(v types.Value) (types.Iterator, error) {
	it, ok := v.(types.Iterable)
	if !ok {
		return nil, fmt.Errorf("%s is not iterable", v.Type())
	}
	return it.Iterate(), nil
}

// valuesFromIterable drains v (a *args splat operand) into a slice.
func valuesFromIterable(v types.Value) ([]types.Value, error) {
	it, err := iterate(v)
	if err != nil {
		return nil, err
	}
	defer it.Done()
	var out []types.Value
	var item types.Value
	for it.Next(&item) {
		out = append(out, item)
	}
	return out, nil
}

// unpackSequence implements UNPACK_SEQUENCE: it returns exactly n values
// from seq, in forward (left-to-right) order, or an error if seq does not
// have exactly n elements.
func unpackSequence(seq types.Value, n int) ([]types.Value, error) {
	if s, ok := seq.(types.Sequence); ok {
		if s.Len() != n {
			return nil, fmt.Errorf("cannot unpack %d values into %d targets", s.Len(), n)
		}
		it := s.Iterate()
		defer it.Done()
		out := make([]types.Value, 0, n)
		var v types.Value
		for it.Next(&v) {
			out = append(out, v)
		}
		return out, nil
	}
	it, err := iterate(seq)
	if err != nil {
		return nil, err
	}
	defer it.Done()
	out := make([]types.Value, 0, n)
	var v types.Value
	for it.Next(&v) {
		if len(out) == n {
			return nil, fmt.Errorf("too many values to unpack (expected %d)", n)
		}
		out = append(out, v)
	}
	if len(out) != n {
		return nil, fmt.Errorf("not enough values to unpack (expected %d, got %d)", n, len(out))
	}
	return out, nil
}
