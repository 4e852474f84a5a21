package types

import (
	"fmt"

	"github.com/dolthub/swiss"
)

// Dict represents a dict/map value, produced by BUILD_MAP + STORE_MAP (map
// literals) and read/written through BINARY_SUBSCR/STORE_SUBSCR. It also
// backs every module's global namespace and every class/instance's
// attribute namespace (see Module, Class, Instance), since CPython's own
// globals/locals/namespace dicts are exactly the kind of large, long-lived,
// string-keyed map github.com/dolthub/swiss is built for.
type Dict struct{ m *swiss.Map[Value, Value] }

var (
	_ Value     = (*Dict)(nil)
	_ Mapping   = (*Dict)(nil)
	_ HasSetKey = (*Dict)(nil)
	_ Iterable  = (*Dict)(nil)
)

// NewDict returns a dict with initial capacity for at least size items.
func NewDict(size int) *Dict {
	if size < 1 {
		size = 1
	}
	return &Dict{m: swiss.NewMap[Value, Value](uint32(size))}
}

func (d *Dict) String() string { return fmt.Sprintf("dict(%p)", d) }
func (d *Dict) Type() string   { return "dict" }
func (d *Dict) Truth() Bool    { return d.m.Count() > 0 }
func (d *Dict) Len() int       { return int(d.m.Count()) }

func (d *Dict) Get(k Value) (Value, bool, error) {
	v, ok := d.m.Get(k)
	return v, ok, nil
}

func (d *Dict) SetKey(k, v Value) error {
	d.m.Put(k, v)
	return nil
}

func (d *Dict) Delete(k Value) { d.m.Delete(k) }

func (d *Dict) Iterate() Iterator {
	it := &dictIterator{keys: make([]Value, 0, d.m.Count()), d: d}
	d.m.Iter(func(k, _ Value) (stop bool) {
		it.keys = append(it.keys, k)
		return false
	})
	return it
}

type dictIterator struct {
	d    *Dict
	keys []Value
	i    int
}

func (it *dictIterator) Next(p *Value) bool {
	if it.i >= len(it.keys) {
		return false
	}
	*p = it.keys[it.i]
	it.i++
	return true
}

func (it *dictIterator) Done() {}
