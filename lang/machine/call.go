package machine

import (
	"context"
	"fmt"

	"github.com/mna/tailbiter/lang/compiler"
	"github.com/mna/tailbiter/lang/types"
)

// buildClassBuiltin is the sentinel LOAD_BUILD_CLASS pushes: CPython's
// __build_class__, called as __build_class__(closure, name, *bases) by
// the CALL_FUNCTION sequence lang/compiler/codegen.go's ClassDef case
// emits. It is Callable only through vm.callValue's type switch, which
// special-cases it ahead of the generic Function/Class/Builtin paths —
// dispatching it through the ordinary Builtin machinery would need a
// second way to reach the VM (to run the class body's Code), which
// Builtin.Call deliberately has no access to.
type buildClassBuiltin struct{}

var _ types.Callable = buildClassBuiltin{}

func (buildClassBuiltin) String() string   { return "<built-in function __build_class__>" }
func (buildClassBuiltin) Type() string     { return "builtin_function_or_method" }
func (buildClassBuiltin) Truth() types.Bool { return types.True }
func (buildClassBuiltin) Name() string     { return "__build_class__" }

// callValue dispatches a CALL_FUNCTION-family instruction's callee to the
// right protocol: a plain Go call for a Builtin, frame construction for a
// Function, self-prepending for a BoundMethod, instantiation for a Class,
// and the build-class protocol for LOAD_BUILD_CLASS's sentinel.
func (vm *VM) callValue(ctx context.Context, callee types.Value, pos []types.Value, kw map[string]types.Value) (types.Value, error) {
	switch fn := callee.(type) {
	case buildClassBuiltin:
		return vm.buildClass(ctx, pos)
	case *types.Builtin:
		if len(kw) != 0 {
			return nil, fmt.Errorf("%s() takes no keyword arguments", fn.Name())
		}
		return fn.Call(types.NewTuple(pos))
	case *types.BoundMethod:
		return vm.callFunction(ctx, fn.Func, append([]types.Value{fn.Self}, pos...), kw)
	case *types.Function:
		return vm.callFunction(ctx, fn, pos, kw)
	case *types.Class:
		return vm.instantiate(ctx, fn, pos, kw)
	default:
		return nil, fmt.Errorf("%s is not callable", callee.Type())
	}
}

// callFunction runs fn's code to completion in a fresh frame, enforcing
// MaxCallStackDepth (a host guard: unlike a runtime exception, it is
// never catchable — see frame.handle).
func (vm *VM) callFunction(ctx context.Context, fn *types.Function, pos []types.Value, kw map[string]types.Value) (types.Value, error) {
	vm.callDepth++
	defer func() { vm.callDepth-- }()
	if vm.MaxCallStackDepth > 0 && vm.callDepth > vm.MaxCallStackDepth {
		return nil, callDepthErr{max: vm.MaxCallStackDepth}
	}

	fr, err := newFrame(fn, pos, kw)
	if err != nil {
		return nil, err
	}
	vm.callStack = append(vm.callStack, fr)
	defer func() { vm.callStack = vm.callStack[:len(vm.callStack)-1] }()
	return vm.run(ctx, fr)
}

// instantiate implements calling a Class: building an Exception directly
// for an exception class (its Args come straight from the call's
// positional arguments, per types.Exception's model — there is no
// user-definable __init__ for these builtin classes), or allocating an
// Instance and running its __init__ (if any) for a user-defined class.
func (vm *VM) instantiate(ctx context.Context, class *types.Class, pos []types.Value, kw map[string]types.Value) (types.Value, error) {
	if class.IsSubclass(types.ExceptionClass) {
		if len(kw) != 0 {
			return nil, fmt.Errorf("exception constructors take no keyword arguments")
		}
		return types.NewException(class, types.NewTuple(pos)), nil
	}

	inst := types.NewInstance(class)
	initVal, err := class.Attr("__init__")
	if err != nil {
		return nil, err
	}
	if initFn, ok := initVal.(*types.Function); ok {
		args := append([]types.Value{types.Value(inst)}, pos...)
		if _, err := vm.callFunction(ctx, initFn, args, kw); err != nil {
			return nil, err
		}
	}
	return inst, nil
}

// buildClass implements LOAD_BUILD_CLASS's callee: pos is [closure, name,
// bases...], exactly CPython's __build_class__ signature. The metaclass
// is the first base's own Metaclass if there are bases, else
// types.DefaultMetaclass (spec.md §4.3). No `metaclass=` keyword is read:
// callValue passes buildClass positional arguments only.
func (vm *VM) buildClass(ctx context.Context, pos []types.Value) (types.Value, error) {
	if len(pos) < 2 {
		return nil, fmt.Errorf("machine: __build_class__ requires a function and a name")
	}
	fn, ok := pos[0].(*types.Function)
	if !ok {
		return nil, fmt.Errorf("machine: __build_class__'s first argument must be a function")
	}
	name, ok := pos[1].(types.String)
	if !ok {
		return nil, fmt.Errorf("machine: __build_class__'s second argument must be a string")
	}

	bases := make([]*types.Class, 0, len(pos)-2)
	for _, b := range pos[2:] {
		cls, ok := b.(*types.Class)
		if !ok {
			return nil, fmt.Errorf("machine: class base %s is not a class", b.Type())
		}
		bases = append(bases, cls)
	}

	metaclass := types.DefaultMetaclass
	if len(bases) > 0 && bases[0].Metaclass != nil {
		metaclass = bases[0].Metaclass
	}

	ns, err := vm.runClassBody(ctx, fn)
	if err != nil {
		return nil, err
	}
	return &types.Class{ClassName: string(name), Bases: bases, Metaclass: metaclass, Namespace: ns}, nil
}

// runClassBody executes a class body's zero-argument Function in a frame
// whose names namespace (rather than fast locals) is the class's own
// namespace-under-construction, per spec.md §4.3.
func (vm *VM) runClassBody(ctx context.Context, fn *types.Function) (*types.Dict, error) {
	fr, err := newFrame(fn, nil, nil)
	if err != nil {
		return nil, err
	}
	fr.names = types.NewDict(0)

	vm.callDepth++
	defer func() { vm.callDepth-- }()
	vm.callStack = append(vm.callStack, fr)
	defer func() { vm.callStack = vm.callStack[:len(vm.callStack)-1] }()

	if _, err := vm.run(ctx, fr); err != nil {
		return nil, err
	}
	return fr.names, nil
}

// dispatchCall implements the four CALL_FUNCTION* instructions: it pops
// operands in the exact reverse of the push order
// lang/compiler/codegen.go's call() emits (**kwargs dict, then *args
// tuple, then nKw (name, value) pairs, then nPos positional arguments,
// then the callee), reassembles them into a positional slice and keyword
// map, and dispatches through callValue.
func (vm *VM) dispatchCall(ctx context.Context, fr *frame, op compiler.Opcode, arg int) (types.Value, error) {
	nPos := arg & 0xff
	nKw := (arg >> 8) & 0xff

	var kwargsDict *types.Dict
	var starargsVal types.Value
	if op == compiler.CALL_FUNCTION_VAR_KW || op == compiler.CALL_FUNCTION_KW {
		v := fr.pop()
		d, ok := v.(*types.Dict)
		if !ok {
			return nil, fmt.Errorf("machine: **kwargs argument must be a dict, got %s", v.Type())
		}
		kwargsDict = d
	}
	if op == compiler.CALL_FUNCTION_VAR_KW || op == compiler.CALL_FUNCTION_VAR {
		starargsVal = fr.pop()
	}

	kw := make(map[string]types.Value, nKw)
	for i := 0; i < nKw; i++ {
		val := fr.pop()
		nameVal := fr.pop()
		name, ok := nameVal.(types.String)
		if !ok {
			return nil, fmt.Errorf("machine: keyword argument name must be a string")
		}
		kw[string(name)] = val
	}

	pos := make([]types.Value, nPos)
	for i := nPos - 1; i >= 0; i-- {
		pos[i] = fr.pop()
	}

	if starargsVal != nil {
		extra, err := valuesFromIterable(starargsVal)
		if err != nil {
			return nil, err
		}
		pos = append(pos, extra...)
	}
	if kwargsDict != nil {
		it := kwargsDict.Iterate()
		defer it.Done()
		var k types.Value
		for it.Next(&k) {
			ks, ok := k.(types.String)
			if !ok {
				continue
			}
			v, _, _ := kwargsDict.Get(k)
			kw[string(ks)] = v
		}
	}

	callee := fr.pop()
	return vm.callValue(ctx, callee, pos, kw)
}

// makeFunction implements MAKE_FUNCTION/MAKE_CLOSURE: codeVal/nameVal are
// the operands lang/compiler/codegen.go's makeClosure always pushes
// (nested Code constant, then display name); freevarsVal is the
// additional BUILD_TUPLE-of-cells operand MAKE_CLOSURE alone pushes,
// nil for MAKE_FUNCTION.
func (vm *VM) makeFunction(fr *frame, codeVal, nameVal, freevarsVal types.Value) (*types.Function, error) {
	cc, ok := codeVal.(types.CodeConst)
	if !ok {
		return nil, fmt.Errorf("machine: MAKE_FUNCTION operand is not a code object")
	}
	if _, ok := nameVal.(types.String); !ok {
		return nil, fmt.Errorf("machine: MAKE_FUNCTION name operand is not a string")
	}

	var freevars []*types.Cell
	if freevarsVal != nil {
		tup, ok := freevarsVal.(*types.Tuple)
		if !ok {
			return nil, fmt.Errorf("machine: MAKE_CLOSURE operand is not a tuple of cells")
		}
		freevars = make([]*types.Cell, tup.Len())
		for i := 0; i < tup.Len(); i++ {
			cell, ok := tup.Index(i).(*types.Cell)
			if !ok {
				return nil, fmt.Errorf("machine: MAKE_CLOSURE tuple element is not a cell")
			}
			freevars[i] = cell
		}
	}

	return &types.Function{Code: cc.Code, Module: fr.module, Freevars: freevars}, nil
}

// importModule implements IMPORT_NAME via vm.Load.
func (vm *VM) importModule(ctx context.Context, name string, fromlistVal, levelVal types.Value) (types.Value, error) {
	if vm.Load == nil {
		return nil, fmt.Errorf("machine: import of %q: no module loader configured", name)
	}
	var names []string
	if t, ok := fromlistVal.(*types.Tuple); ok {
		for i := 0; i < t.Len(); i++ {
			if s, ok := t.Index(i).(types.String); ok {
				names = append(names, string(s))
			}
		}
	}
	level, _ := levelVal.(types.Int)
	return vm.Load(ctx, name, names, int(level))
}
