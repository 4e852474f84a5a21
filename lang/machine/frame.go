package machine

import (
	"fmt"

	"github.com/mna/tailbiter/lang/compiler"
	"github.com/mna/tailbiter/lang/types"
	"golang.org/x/exp/slices"
)

// blockKind is the kind of a block-stack entry pushed by SETUP_EXCEPT or
// SETUP_FINALLY. spec.md's Block enumeration also names a "loop" kind, for
// a construct (break/continue) this compiler's codegen never emits (see
// DESIGN.md); blockLoop exists only so the enum reads completely, and no
// constructor ever produces one.
type blockKind int

const (
	blockExcept blockKind = iota
	blockFinally
	blockLoop
)

// block is one block-stack entry: level is the operand stack depth at the
// moment SETUP_EXCEPT/SETUP_FINALLY ran, restored on unwind before control
// jumps to handler.
type block struct {
	kind    blockKind
	handler int
	level   int
}

// frame is one activation of a Function or a class body. Grounded on
// _examples/mna-nenuphar/lang/machine/frame.go's Frame, adapted: locals
// and cells are split into two slices rather than one combined "locals"
// array (this module's LOAD_FAST/LOAD_DEREF are genuinely different
// opcodes with different operand spaces, unlike the teacher's single
// locals array indexed uniformly), and names is non-nil only for a
// class-body frame (spec.md §4.3: class bodies use LOAD_NAME/STORE_NAME
// throughout, never fast locals).
type frame struct {
	fn     *types.Function
	code   *compiler.Code
	module *types.Module
	consts []types.Value

	// names is the class-body namespace (LOAD_NAME/STORE_NAME target) for
	// a class body frame, nil for a function or module frame (which read
	// fast locals and write through to globals instead).
	names *types.Dict

	// globals is fn.Module.Globals: the module-level namespace LOAD_NAME
	// consults once names (if any) has missed, before the VM's Predeclared
	// Universe.
	globals *types.Dict

	locals []types.Value
	cells  []*types.Cell

	stack  []types.Value
	blocks []block
	pc     int

	// pendingExc is the frame's single slot for "the exception currently
	// propagating through this frame's block stack" — see
	// lang/compiler/codegen.go's tryStmt doc comment for why this replaces
	// spec.md's literal operand-stack triple.
	pendingExc *types.Exception
}

func (fr *frame) push(v types.Value) { fr.stack = append(fr.stack, v) }

func (fr *frame) pop() types.Value {
	n := len(fr.stack) - 1
	v := fr.stack[n]
	fr.stack = fr.stack[:n]
	return v
}

func (fr *frame) top() types.Value { return fr.stack[len(fr.stack)-1] }

func (fr *frame) pushBlock(kind blockKind, handler int) {
	fr.blocks = append(fr.blocks, block{kind: kind, handler: handler, level: len(fr.stack)})
}

func (fr *frame) popBlock() { fr.blocks = fr.blocks[:len(fr.blocks)-1] }

// handle searches for an enclosing block to catch exc, unwinding the
// operand stack to the level it was at when that block was pushed and
// jumping pc to its handler. It reports whether a block was found: the
// block stack only ever holds except/finally entries in practice (see
// blockKind), and both kinds are unwound identically — the handler code
// itself (a JUMP_IF_NOT_EXC_MATCH cascade or a re-run Finalbody) is what
// distinguishes their behavior.
func (fr *frame) handle(exc *types.Exception) bool {
	if len(fr.blocks) == 0 {
		return false
	}
	b := fr.blocks[len(fr.blocks)-1]
	fr.blocks = fr.blocks[:len(fr.blocks)-1]
	fr.stack = fr.stack[:b.level]
	fr.pendingExc = exc
	fr.pc = b.handler
	return true
}

// cellIndexOf reports the index of name in cellvars, or -1 if name is not
// a cell variable of this frame's code.
func cellIndexOf(cellvars []string, name string) int {
	return slices.Index(cellvars, name)
}

// newFrame builds the activation record for calling fn with pos positional
// and kw keyword arguments, binding them per code.Argcount/Varnames and
// redirecting any parameter that is also a cellvar into a freshly
// allocated Cell (so an inner closure sees every later STORE_DEREF to that
// parameter, per spec.md §3's Cell model). kw is consumed (entries
// matched to parameters are deleted from it) so the remainder, if any, is
// exactly what a **kwargs parameter (or an "unexpected keyword" error)
// should see.
func newFrame(fn *types.Function, pos []types.Value, kw map[string]types.Value) (*frame, error) {
	code := fn.Code
	nParams := code.Argcount

	if len(pos) > nParams && !code.HasVarargs() {
		return nil, fmt.Errorf("%s() takes %d positional argument(s) but %d were given", fn.Name(), nParams, len(pos))
	}

	locals := make([]types.Value, len(code.Varnames))
	cells := make([]*types.Cell, len(code.Cellvars)+len(code.Freevars))
	for i := range code.Cellvars {
		cells[i] = types.NewCell(types.None)
	}
	copy(cells[len(code.Cellvars):], fn.Freevars)

	for i := 0; i < nParams; i++ {
		var v types.Value
		switch {
		case i < len(pos):
			v = pos[i]
		case kw != nil:
			if kv, ok := kw[code.Varnames[i]]; ok {
				v = kv
				delete(kw, code.Varnames[i])
				break
			}
			fallthrough
		default:
			return nil, fmt.Errorf("%s() missing required argument: %q", fn.Name(), code.Varnames[i])
		}
		if ci := cellIndexOf(code.Cellvars, code.Varnames[i]); ci >= 0 {
			cells[ci] = types.NewCell(v)
		} else {
			locals[i] = v
		}
	}

	idx := nParams
	if code.HasVarargs() {
		var extra []types.Value
		if len(pos) > nParams {
			extra = append(extra, pos[nParams:]...)
		}
		locals[idx] = types.NewTuple(extra)
		idx++
	}
	if code.HasVarKwargs() {
		d := types.NewDict(len(kw))
		for k, v := range kw {
			d.SetKey(types.String(k), v)
		}
		locals[idx] = d
	} else {
		for k := range kw {
			if !slices.Contains(code.Varnames[:nParams], k) {
				return nil, fmt.Errorf("%s() got an unexpected keyword argument %q", fn.Name(), k)
			}
		}
	}

	return &frame{
		fn:      fn,
		code:    code,
		module:  fn.Module,
		consts:  fn.Module.Constants(code),
		globals: fn.Module.Globals,
		locals:  locals,
		cells:   cells,
		stack:   make([]types.Value, 0, code.StackSize),
	}, nil
}
