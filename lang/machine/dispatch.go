package machine

import (
	"context"
	"fmt"

	"github.com/mna/tailbiter/lang/compiler"
	"github.com/mna/tailbiter/lang/types"
)

// run is the dispatch loop: it executes fr's bytecode until RETURN_VALUE
// or an unhandled exception, one opcode per iteration. Every opcode
// handler below is grounded directly on the bytecode sequence
// lang/compiler/codegen.go emits for the AST node it serves; see that
// file's comments for the stack shape each handler assumes.
func (vm *VM) run(ctx context.Context, fr *frame) (types.Value, error) {
	code := fr.code.Bytecode
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		vm.steps++
		if vm.MaxSteps > 0 && vm.steps > vm.MaxSteps {
			return nil, stepBudgetErr{max: vm.MaxSteps}
		}

		instrStart := fr.pc
		op := compiler.Opcode(code[fr.pc])
		var arg int
		if op >= compiler.HAVE_ARGUMENT {
			arg = int(code[fr.pc+1]) | int(code[fr.pc+2])<<8
			fr.pc += 3
		} else {
			fr.pc++
		}

		var err error
		switch op {
		case compiler.POP_TOP:
			fr.pop()
		case compiler.DUP_TOP:
			fr.push(fr.top())
		case compiler.RETURN_VALUE:
			return fr.pop(), nil
		case compiler.GET_ITER:
			v := fr.pop()
			it, itErr := iterate(v)
			if itErr != nil {
				err = itErr
			} else {
				fr.push(iterValue{it: it})
			}

		case compiler.UNARY_POSITIVE, compiler.UNARY_NEGATIVE, compiler.UNARY_INVERT, compiler.UNARY_NOT:
			v := fr.pop()
			res, uErr := types.Unary(unaryTokens[op], v)
			if uErr != nil {
				err = uErr
			} else {
				fr.push(res)
			}

		case compiler.BINARY_ADD, compiler.BINARY_SUBTRACT, compiler.BINARY_MULTIPLY,
			compiler.BINARY_TRUE_DIVIDE, compiler.BINARY_FLOOR_DIVIDE, compiler.BINARY_MODULO,
			compiler.BINARY_POWER, compiler.BINARY_AND, compiler.BINARY_OR, compiler.BINARY_XOR,
			compiler.BINARY_LSHIFT, compiler.BINARY_RSHIFT:
			y := fr.pop()
			x := fr.pop()
			res, bErr := types.Binary(binaryTokens[op], x, y)
			if bErr != nil {
				err = bErr
			} else {
				fr.push(res)
			}

		case compiler.BINARY_SUBSCR:
			y := fr.pop()
			x := fr.pop()
			res, gErr := types.GetIndex(x, y)
			if gErr != nil {
				err = gErr
			} else {
				fr.push(res)
			}

		case compiler.STORE_SUBSCR:
			idx := fr.pop()
			container := fr.pop()
			val := fr.pop()
			err = types.SetIndex(container, idx, val)

		case compiler.STORE_MAP:
			key := fr.pop()
			val := fr.pop()
			d := fr.top().(*types.Dict)
			err = d.SetKey(key, val)

		case compiler.IMPORT_FROM:
			mod := fr.top()
			v, aErr := types.GetAttr(mod, fr.code.Names[arg])
			if aErr != nil {
				err = aErr
			} else {
				fr.push(v)
			}

		case compiler.LOAD_BUILD_CLASS:
			fr.push(buildClassBuiltin{})

		case compiler.POP_BLOCK:
			fr.popBlock()

		case compiler.END_FINALLY:
			if fr.pendingExc != nil {
				// Re-raise through the normal err pathway below rather than
				// returning directly, so an enclosing try/finally in this same
				// frame still gets a chance to run before the exception leaves
				// it (fr.handle searches the remaining block stack).
				err = fr.pendingExc
			}

		case compiler.LOAD_EXC:
			fr.push(fr.pendingExc)

		case compiler.COMPARE_OP:
			y := fr.pop()
			x := fr.pop()
			res, cErr := vm.compareOp(arg, x, y)
			if cErr != nil {
				err = cErr
			} else {
				fr.push(types.Bool(res))
			}

		case compiler.LOAD_CONST:
			fr.push(fr.consts[arg])
		case compiler.LOAD_FAST:
			fr.push(fr.locals[arg])
		case compiler.STORE_FAST:
			fr.locals[arg] = fr.pop()

		case compiler.LOAD_NAME:
			v, nErr := vm.loadName(fr, fr.code.Names[arg])
			if nErr != nil {
				err = nErr
			} else {
				fr.push(v)
			}
		case compiler.STORE_NAME:
			err = vm.storeName(fr, fr.code.Names[arg], fr.pop())

		case compiler.LOAD_DEREF:
			fr.push(fr.cells[arg].V)
		case compiler.STORE_DEREF:
			fr.cells[arg].V = fr.pop()
		case compiler.LOAD_CLOSURE:
			fr.push(fr.cells[arg])

		case compiler.LOAD_ATTR:
			v := fr.pop()
			av, aErr := types.GetAttr(v, fr.code.Names[arg])
			if aErr != nil {
				err = aErr
			} else {
				fr.push(av)
			}
		case compiler.STORE_ATTR:
			obj := fr.pop()
			val := fr.pop()
			err = types.SetAttr(obj, fr.code.Names[arg], val)

		case compiler.BUILD_TUPLE, compiler.BUILD_LIST:
			elems := make([]types.Value, arg)
			for i := arg - 1; i >= 0; i-- {
				elems[i] = fr.pop()
			}
			if op == compiler.BUILD_TUPLE {
				fr.push(types.NewTuple(elems))
			} else {
				fr.push(types.NewList(elems))
			}

		case compiler.BUILD_MAP:
			fr.push(types.NewDict(arg))

		case compiler.UNPACK_SEQUENCE:
			seq := fr.pop()
			vals, uErr := unpackSequence(seq, arg)
			if uErr != nil {
				err = uErr
			} else {
				for i := len(vals) - 1; i >= 0; i-- {
					fr.push(vals[i])
				}
			}

		case compiler.CALL_FUNCTION, compiler.CALL_FUNCTION_VAR, compiler.CALL_FUNCTION_KW, compiler.CALL_FUNCTION_VAR_KW:
			res, cErr := vm.dispatchCall(ctx, fr, op, arg)
			if cErr != nil {
				err = cErr
			} else {
				fr.push(res)
			}

		case compiler.MAKE_FUNCTION:
			nameVal := fr.pop()
			codeVal := fr.pop()
			fn, mErr := vm.makeFunction(fr, codeVal, nameVal, nil)
			if mErr != nil {
				err = mErr
			} else {
				fr.push(fn)
			}
		case compiler.MAKE_CLOSURE:
			nameVal := fr.pop()
			codeVal := fr.pop()
			freevarsVal := fr.pop()
			fn, mErr := vm.makeFunction(fr, codeVal, nameVal, freevarsVal)
			if mErr != nil {
				err = mErr
			} else {
				fr.push(fn)
			}

		case compiler.RAISE_VARARGS:
			vals := make([]types.Value, arg)
			for i := arg - 1; i >= 0; i-- {
				vals[i] = fr.pop()
			}
			exc, rErr := doRaise(vals)
			if rErr != nil {
				err = rErr
			} else {
				err = exc
			}

		case compiler.IMPORT_NAME:
			fromlistVal := fr.pop()
			levelVal := fr.pop()
			mod, iErr := vm.importModule(ctx, fr.code.Names[arg], fromlistVal, levelVal)
			if iErr != nil {
				err = iErr
			} else {
				fr.push(mod)
			}

		case compiler.JUMP_FORWARD:
			fr.pc = instrStart + 3 + arg
		case compiler.JUMP_ABSOLUTE:
			fr.pc = arg
		case compiler.POP_JUMP_IF_FALSE:
			if v := fr.pop(); !bool(v.Truth()) {
				fr.pc = arg
			}
		case compiler.POP_JUMP_IF_TRUE:
			if v := fr.pop(); bool(v.Truth()) {
				fr.pc = arg
			}
		case compiler.JUMP_IF_FALSE_OR_POP:
			if !bool(fr.top().Truth()) {
				fr.pc = arg
			} else {
				fr.pop()
			}
		case compiler.JUMP_IF_TRUE_OR_POP:
			if bool(fr.top().Truth()) {
				fr.pc = arg
			} else {
				fr.pop()
			}

		case compiler.FOR_ITER:
			iv, ok := fr.top().(iterValue)
			if !ok {
				err = fmt.Errorf("machine: FOR_ITER on a non-iterator value")
				break
			}
			var v types.Value
			if iv.it.Next(&v) {
				fr.push(v)
			} else {
				iv.it.Done()
				fr.pop()
				fr.pc = instrStart + 3 + arg
			}

		case compiler.SETUP_EXCEPT:
			fr.pushBlock(blockExcept, arg)
		case compiler.SETUP_FINALLY:
			fr.pushBlock(blockFinally, arg)
		case compiler.JUMP_IF_NOT_EXC_MATCH:
			typeVal := fr.pop()
			matched, mErr := vm.excMatches(fr.pendingExc, typeVal)
			if mErr != nil {
				err = mErr
			} else if !matched {
				fr.pc = arg
			}

		default:
			err = fmt.Errorf("machine: unimplemented opcode %s", op)
		}

		if err != nil {
			switch err.(type) {
			case stepBudgetErr, callDepthErr:
				return nil, err
			}
			exc := toException(err)
			if fr.handle(exc) {
				continue
			}
			return nil, exc
		}
	}
}

// loadName implements LOAD_NAME: a class-body frame's own namespace
// (names), then the module's globals, then the predeclared Universe —
// matching spec.md §4.3's scope chain for name-based (as opposed to fast
// local) access.
func (vm *VM) loadName(fr *frame, name string) (types.Value, error) {
	if fr.names != nil {
		if v, ok, _ := fr.names.Get(types.String(name)); ok {
			return v, nil
		}
	}
	if v, ok, _ := fr.globals.Get(types.String(name)); ok {
		return v, nil
	}
	if v, ok := vm.predeclared()[name]; ok {
		return v, nil
	}
	return nil, types.NewException(types.NameErrorClass, types.NewTuple([]types.Value{
		types.String(fmt.Sprintf("name %q is not defined", name)),
	}))
}

// storeName implements STORE_NAME: writes to the class-body namespace if
// this frame has one, else straight through to the module's globals.
func (vm *VM) storeName(fr *frame, name string, v types.Value) error {
	target := fr.names
	if target == nil {
		target = fr.globals
	}
	return target.SetKey(types.String(name), v)
}
