package types

import "fmt"

// Class is a class object, built by the machine's build-class protocol
// (spec.md §4.5): Bases are its direct base classes in declaration order,
// Metaclass is the type recorded as its constructor (the first base's
// Metaclass, else DefaultMetaclass; an explicit `metaclass=` keyword is not
// read),
// Namespace holds the names bound by the class body (methods, class
// attributes).
type Class struct {
	ClassName string
	Bases     []*Class
	Metaclass *Class
	Namespace *Dict
}

var (
	_ Value    = (*Class)(nil)
	_ Callable = (*Class)(nil)
	_ HasAttrs = (*Class)(nil)
)

// DefaultMetaclass is used to build a class that declares no bases and no
// explicit metaclass= keyword — the root of the metaclass hierarchy itself
// has nothing else to derive its own type from.
var DefaultMetaclass = &Class{ClassName: "type", Namespace: NewDict(0)}

func (c *Class) String() string { return fmt.Sprintf("<class %s>", c.ClassName) }
func (c *Class) Type() string   { return "type" }
func (c *Class) Truth() Bool    { return True }
func (c *Class) Name() string   { return c.ClassName }

// Attr looks up name in this class's own namespace, then in each base
// class depth-first in declaration order (a simplified, non-C3 MRO: this
// subset has no diamond-inheritance testable property to justify the
// extra complexity of cooperative linearization).
func (c *Class) Attr(name string) (Value, error) {
	if v, ok, _ := c.Namespace.Get(String(name)); ok {
		return v, nil
	}
	for _, base := range c.Bases {
		if v, err := base.Attr(name); v != nil || err != nil {
			return v, err
		}
	}
	return nil, nil
}

func (c *Class) AttrNames() []string {
	var names []string
	it := c.Namespace.Iterate()
	defer it.Done()
	var k Value
	for it.Next(&k) {
		names = append(names, string(k.(String)))
	}
	return names
}

// IsSubclass reports whether c is b or descends from b through Bases.
func (c *Class) IsSubclass(b *Class) bool {
	if c == b {
		return true
	}
	for _, base := range c.Bases {
		if base.IsSubclass(b) {
			return true
		}
	}
	return false
}

// Instance is an object whose type is a user-defined Class, produced by
// calling that Class (the machine's call protocol treats a Class as
// Callable; calling it allocates an Instance and runs __init__ if the
// class defines one — handled in lang/machine, not here, since that
// requires invoking a Function).
type Instance struct {
	Class *Class
	Dict  *Dict
}

var (
	_ Value        = (*Instance)(nil)
	_ HasAttrs     = (*Instance)(nil)
	_ HasSetField  = (*Instance)(nil)
)

func NewInstance(class *Class) *Instance {
	return &Instance{Class: class, Dict: NewDict(0)}
}

func (i *Instance) String() string { return fmt.Sprintf("<%s instance>", i.Class.ClassName) }
func (i *Instance) Type() string   { return i.Class.ClassName }
func (i *Instance) Truth() Bool    { return True }

func (i *Instance) Attr(name string) (Value, error) {
	if v, ok, _ := i.Dict.Get(String(name)); ok {
		return v, nil
	}
	return i.Class.Attr(name)
}

func (i *Instance) AttrNames() []string {
	var names []string
	it := i.Dict.Iterate()
	defer it.Done()
	var k Value
	for it.Next(&k) {
		names = append(names, string(k.(String)))
	}
	return names
}

func (i *Instance) SetField(name string, v Value) error {
	return i.Dict.SetKey(String(name), v)
}
