package types

import "fmt"

// GetIndex implements BINARY_SUBSCR: x[y]. x may be an Indexable (list,
// tuple, string, bytes — indexed by an Int) or a Mapping (dict — indexed
// by any hashable Value).
func GetIndex(x, y Value) (Value, error) {
	switch xv := x.(type) {
	case Indexable:
		i, ok := y.(Int)
		if !ok {
			return nil, fmt.Errorf("%s indices must be integers, not %s", x.Type(), y.Type())
		}
		idx := int(i)
		if idx < 0 {
			idx += xv.Len()
		}
		if idx < 0 || idx >= xv.Len() {
			return nil, fmt.Errorf("%s index out of range", x.Type())
		}
		return xv.Index(idx), nil
	case Mapping:
		v, found, err := xv.Get(y)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("key %s not found", y)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("%s is not subscriptable", x.Type())
	}
}

// SetIndex implements STORE_SUBSCR: x[y] = z.
func SetIndex(x, y, z Value) error {
	switch xv := x.(type) {
	case HasSetIndex:
		i, ok := y.(Int)
		if !ok {
			return fmt.Errorf("%s indices must be integers, not %s", x.Type(), y.Type())
		}
		idx := int(i)
		if idx < 0 {
			idx += xv.Len()
		}
		if idx < 0 || idx >= xv.Len() {
			return fmt.Errorf("%s assignment index out of range", x.Type())
		}
		return xv.SetIndex(idx, z)
	case HasSetKey:
		return xv.SetKey(y, z)
	default:
		return fmt.Errorf("%s does not support item assignment", x.Type())
	}
}

// GetAttr implements LOAD_ATTR: x.name. Looking a Function up on an
// Instance binds it: the result is a BoundMethod carrying x as Self, per
// the call protocol's unbound-method model (spec.md §4.5) — a plain
// Function found any other way (a class attribute access, a module-level
// name) is left unbound.
func GetAttr(x Value, name string) (Value, error) {
	xa, ok := x.(HasAttrs)
	if !ok {
		return nil, fmt.Errorf("%s has no attribute %q", x.Type(), name)
	}
	v, err := xa.Attr(name)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, NoSuchAttrError(fmt.Sprintf("%s has no attribute %q", x.Type(), name))
	}
	if inst, ok := x.(*Instance); ok {
		if fn, ok := v.(*Function); ok {
			return &BoundMethod{Func: fn, Self: inst, Class: inst.Class}, nil
		}
	}
	return v, nil
}

// SetAttr implements STORE_ATTR: x.name = v.
func SetAttr(x Value, name string, v Value) error {
	xs, ok := x.(HasSetField)
	if !ok {
		return fmt.Errorf("%s attributes are not assignable", x.Type())
	}
	return xs.SetField(name, v)
}
