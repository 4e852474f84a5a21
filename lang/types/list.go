package types

import "fmt"

// List is a mutable ordered collection, produced by BUILD_LIST and mutated
// through STORE_SUBSCR. Grounded in
// _examples/mna-nenuphar/lang/types/array.go's Array, adapted: that file's
// itercount/Freeze machinery belongs to a concurrency model this subset
// does not implement (spec.md §5 is single-threaded, no freezing), so it
// is dropped rather than carried as dead weight.
type List struct{ elems []Value }

var (
	_ Value       = (*List)(nil)
	_ Indexable   = (*List)(nil)
	_ HasSetIndex = (*List)(nil)
	_ Iterable    = (*List)(nil)
	_ Sequence    = (*List)(nil)
	_ HasEqual    = (*List)(nil)
	_ HasAttrs    = (*List)(nil)
)

// NewList returns a list containing the given elements. The caller must
// not subsequently modify elems through any other reference.
func NewList(elems []Value) *List { return &List{elems: elems} }

func (l *List) String() string    { return fmt.Sprintf("list(%p)", l) }
func (l *List) Type() string      { return "list" }
func (l *List) Truth() Bool       { return len(l.elems) > 0 }
func (l *List) Len() int          { return len(l.elems) }
func (l *List) Index(i int) Value { return l.elems[i] }
func (l *List) Iterate() Iterator { return &listIterator{l: l} }

func (l *List) SetIndex(i int, v Value) error {
	l.elems[i] = v
	return nil
}

func (l *List) Append(v Value) { l.elems = append(l.elems, v) }

func (l *List) Equals(y Value, depth int) (bool, error) {
	yl, ok := y.(*List)
	if !ok {
		return false, nil
	}
	if len(l.elems) != len(yl.elems) {
		return false, nil
	}
	if depth < 1 {
		return false, fmt.Errorf("comparison depth limit exceeded")
	}
	for i, xv := range l.elems {
		eq, err := EqualDepth(xv, yl.elems[i], depth-1)
		if err != nil || !eq {
			return eq, err
		}
	}
	return true, nil
}

// Attr supports `.append`, the one list method the desugarer's list
// comprehension rewrite emits (lang/desugar/desugar.go's listComp calls
// `.0.append(elt)`); any other name is "no such attribute".
func (l *List) Attr(name string) (Value, error) {
	if name != "append" {
		return nil, nil
	}
	return &Builtin{Nm: "append", Fn: func(args *Tuple) (Value, error) {
		if args.Len() != 1 {
			return nil, fmt.Errorf("append() takes exactly one argument (%d given)", args.Len())
		}
		l.Append(args.Index(0))
		return None, nil
	}}, nil
}

type listIterator struct {
	l *List
	i int
}

func (it *listIterator) Next(p *Value) bool {
	if it.i >= len(it.l.elems) {
		return false
	}
	*p = it.l.elems[it.i]
	it.i++
	return true
}

func (it *listIterator) Done() {}
