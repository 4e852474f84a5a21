// Package machine implements the stack-based virtual machine that executes
// a *compiler.Code module: the dispatch loop, the call/instantiate/build-
// class protocols, and the block-stack exception-unwinding logic spec.md
// §4.5 and §7 describe. Grounded in
// _examples/mna-nenuphar/lang/machine/{machine,thread,frame}.go for the
// Thread/Frame split and dispatch-loop shape; the bytecode semantics
// themselves are grounded in lang/compiler/codegen.go, the single source
// of truth for what each opcode sequence means, since this module's VM
// executes its own opcode table rather than the teacher's.
package machine

import (
	"context"
	"fmt"

	"github.com/mna/tailbiter/lang/compiler"
	"github.com/mna/tailbiter/lang/types"
)

// VM executes compiled modules. Its exported fields are configuration,
// read at call time; it carries no state that the caller needs between
// RunProgram invocations except whatever Predeclared/Load closures choose
// to keep.
//
// Named VM rather than the teacher's Thread (SPEC_FULL.md §3): this
// subset has no goroutine-per-thread model, so "Thread" would suggest
// concurrency this package does not provide.
type VM struct {
	// Load resolves an IMPORT_NAME/IMPORT_FROM: name is the dotted module
	// path, fromlist the names an `import from` wants to pull out of it
	// (nil for a plain `import name`), level the relative-import dot count.
	// A nil Load makes every import fail, matching spec.md's Non-goal of
	// not specifying a module resolution system.
	Load func(ctx context.Context, name string, fromlist []string, level int) (types.Value, error)

	// Predeclared is the global namespace's fallback lookup scope (LOAD_NAME
	// misses in both the current frame's namespace and Module.Globals land
	// here). Defaults to types.NewUniverse() on first use if nil.
	Predeclared types.Universe

	// MaxSteps bounds the number of opcodes a single RunProgram may
	// execute, 0 for unbounded. Guards against runaway loops in untrusted
	// programs (spec.md has no bytecode verifier of its own).
	MaxSteps int

	// MaxCallStackDepth bounds Go call-stack recursion (one Go frame per
	// VM frame), 0 for unbounded.
	MaxCallStackDepth int

	// MaxCompareDepth bounds recursive tuple/list equality comparisons, 0
	// for types.CompareDepth's own default.
	MaxCompareDepth int

	steps     int
	callDepth int
	callStack []*frame
}

func (vm *VM) predeclared() types.Universe {
	if vm.Predeclared == nil {
		vm.Predeclared = types.NewUniverse()
	}
	return vm.Predeclared
}

func (vm *VM) compareDepth() int {
	if vm.MaxCompareDepth > 0 {
		return vm.MaxCompareDepth
	}
	return 1000
}

// RunProgram runs code as a module's top-level code object: a fresh
// Module with an empty global namespace (seeded only with "__name__"),
// and a synthetic zero-argument Function wrapping code. It returns the
// value the module's top-level code returns (a module-level return
// statement's value, otherwise the None of its implicit final
// RETURN_VALUE), or the exception that escaped the outermost frame as
// a Go error (spec.md §7).
func (vm *VM) RunProgram(ctx context.Context, code *compiler.Code) (types.Value, error) {
	vm.steps = 0
	module := types.NewModule(code)
	module.Globals.SetKey(types.String("__name__"), types.String("__main__"))
	fn := &types.Function{Code: code, Module: module}
	return vm.callFunction(ctx, fn, nil, nil)
}

// stepBudgetErr is a host-level guard failure; it is never wrapped into a
// types.Exception and so can never be caught by the program's own
// except/finally blocks (see frame.handle).
type stepBudgetErr struct{ max int }

func (e stepBudgetErr) Error() string {
	return fmt.Sprintf("machine: step budget of %d opcodes exceeded", e.max)
}

type callDepthErr struct{ max int }

func (e callDepthErr) Error() string {
	return fmt.Sprintf("machine: call stack depth of %d exceeded", e.max)
}
