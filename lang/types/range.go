package types

import "fmt"

// Range is the value produced by the range() builtin: a lazily-iterated
// arithmetic sequence of Ints, matching CPython's range object closely
// enough to support `for x in range(n)` and list comprehensions over it
// (spec.md §8 scenario 5).
type Range struct{ start, stop, step Int }

var (
	_ Value     = Range{}
	_ Indexable = Range{}
	_ Iterable  = Range{}
	_ Sequence  = Range{}
)

// NewRange returns the range [start, stop) stepping by step. step must be
// non-zero.
func NewRange(start, stop, step Int) Range { return Range{start, stop, step} }

func (r Range) String() string { return fmt.Sprintf("range(%d, %d, %d)", r.start, r.stop, r.step) }
func (r Range) Type() string   { return "range" }
func (r Range) Truth() Bool    { return r.Len() > 0 }

func (r Range) Len() int {
	if r.step > 0 {
		if r.stop <= r.start {
			return 0
		}
		return int((r.stop - r.start + r.step - 1) / r.step)
	}
	if r.stop >= r.start {
		return 0
	}
	return int((r.start - r.stop - r.step - 1) / -r.step)
}

func (r Range) Index(i int) Value { return r.start + Int(i)*r.step }

func (r Range) Iterate() Iterator { return &rangeIterator{cur: r.start, r: r} }

type rangeIterator struct {
	cur Int
	n   int
	r   Range
}

func (it *rangeIterator) Next(p *Value) bool {
	if it.n >= it.r.Len() {
		return false
	}
	*p = it.cur
	it.cur += it.r.step
	it.n++
	return true
}

func (it *rangeIterator) Done() {}
