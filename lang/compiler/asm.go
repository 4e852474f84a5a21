package compiler

import "fmt"

// Fragment is one node of the assembly algebra: a monoid of bytecode
// fragments supporting four deterministic queries (Length, Resolve,
// Encode, Plumb) plus LineNos for the line-number table. Grounded directly
// on original_source/src/tailbiter/assembly.py's Assembly class hierarchy
// (NoOp/Label/SetLineNo/Instruction/Chain/OffsetStack); Concat glues
// fragments together the way Python's `+` operator (Assembly.__add__)
// does.
type Fragment interface {
	// Length is the fragment's encoded size in bytes.
	Length() int

	// Resolve reports (label, byte address) for every Label fragment
	// reachable from this one, given that this fragment starts at byte
	// offset start.
	Resolve(start int) []LabelAddr

	// Encode renders this fragment's bytes, given the final label->address
	// map and the byte offset this fragment starts at.
	Encode(start int, addresses map[*Label]int) []byte

	// LineNos reports (byte offset, source line) for every Line fragment
	// reachable from this one, in encounter order.
	LineNos(start int) []ByteLine

	// Plumb appends to depths the stack depth after each instruction this
	// fragment contains, starting from the last element of depths.
	Plumb(depths *[]int)
}

// LabelAddr is one entry of Resolve's result.
type LabelAddr struct {
	Label *Label
	Addr  int
}

// ByteLine is one entry of LineNos' result.
type ByteLine struct {
	Byte int
	Line int
}

// NoOp is the empty fragment: the monoid identity. The zero value is ready
// to use.
type NoOp struct{}

func (NoOp) Length() int                                  { return 0 }
func (NoOp) Resolve(int) []LabelAddr                       { return nil }
func (NoOp) Encode(int, map[*Label]int) []byte             { return nil }
func (NoOp) LineNos(int) []ByteLine                        { return nil }
func (NoOp) Plumb(*[]int)                                  {}

// Label marks a jump target. It carries no bytes of its own; its address
// is only known once Resolve walks the whole assembly. Labels are compared
// by pointer identity, so two distinct *Label values are always distinct
// targets even if never otherwise differentiated.
type Label struct{ name string }

// NewLabel returns a fresh, uniquely-identified jump target. name is used
// only for disassembler output.
func NewLabel(name string) *Label { return &Label{name: name} }

func (l *Label) Length() int                      { return 0 }
func (l *Label) Resolve(start int) []LabelAddr     { return []LabelAddr{{Label: l, Addr: start}} }
func (l *Label) Encode(int, map[*Label]int) []byte { return nil }
func (l *Label) LineNos(int) []ByteLine            { return nil }
func (l *Label) Plumb(*[]int)                      {}

// Line records that the bytes following it originate from source line n.
// Grounded on assembly.py's SetLineNo.
type Line struct{ N int }

func (l Line) Length() int                      { return 0 }
func (l Line) Resolve(int) []LabelAddr           { return nil }
func (l Line) Encode(int, map[*Label]int) []byte { return nil }
func (l Line) LineNos(start int) []ByteLine      { return []ByteLine{{Byte: start, Line: l.N}} }
func (l Line) Plumb(*[]int)                      {}

// Instruction is a single opcode plus its optional argument: nil (no
// argument byte pair), a raw non-negative int (a table index or count), or
// a *Label (a jump target, resolved at Encode/Plumb time).
type Instruction struct {
	Op  Opcode
	Arg any // nil, int, or *Label
}

// Op builds a no-argument instruction.
func Op(op Opcode) Fragment { return Instruction{Op: op} }

// OpArg builds an instruction whose argument is a raw table index or
// count, not a jump target.
func OpArg(op Opcode, arg int) Fragment { return Instruction{Op: op, Arg: arg} }

// OpJump builds a jump instruction targeting label.
func OpJump(op Opcode, label *Label) Fragment { return Instruction{Op: op, Arg: label} }

func (in Instruction) Length() int {
	if in.Arg == nil {
		return 1
	}
	return 3
}

func (in Instruction) Resolve(int) []LabelAddr { return nil }

func (in Instruction) Encode(start int, addresses map[*Label]int) []byte {
	if in.Arg == nil {
		return []byte{byte(in.Op)}
	}
	arg := in.rawArg(start, addresses)
	if arg < 0 || arg >= 1<<16 {
		panic(fmt.Sprintf("compiler: instruction argument %d out of representable range for %s", arg, in.Op))
	}
	return []byte{byte(in.Op), byte(arg % 256), byte(arg / 256)}
}

func (in Instruction) rawArg(start int, addresses map[*Label]int) int {
	switch arg := in.Arg.(type) {
	case *Label:
		addr, ok := addresses[arg]
		if !ok {
			panic("compiler: label used but never placed")
		}
		if hasAbsoluteJump(in.Op) {
			return addr
		}
		return addr - (start + 3)
	case int:
		return arg
	default:
		panic(fmt.Sprintf("compiler: instruction argument has unexpected type %T", in.Arg))
	}
}

func (in Instruction) LineNos(int) []ByteLine { return nil }

func (in Instruction) Plumb(depths *[]int) {
	arg := 0
	if i, ok := in.Arg.(int); ok {
		arg = i
	}
	last := (*depths)[len(*depths)-1]
	*depths = append(*depths, last+stackEffect(in.Op, arg))
}

// Chain concatenates two fragments in program order. Grounded on
// assembly.py's Chain class (and the `+` operator it backs).
type Chain struct {
	A, B Fragment
}

// Concat folds fragments left to right into a single Chain, returning NoOp
// for an empty list. Grounded on assembly.py's module-level concat().
func Concat(fragments ...Fragment) Fragment {
	var result Fragment = NoOp{}
	for _, f := range fragments {
		result = Chain{A: result, B: f}
	}
	return result
}

func (c Chain) Length() int { return c.A.Length() + c.B.Length() }

func (c Chain) Resolve(start int) []LabelAddr {
	return append(c.A.Resolve(start), c.B.Resolve(start+c.A.Length())...)
}

func (c Chain) Encode(start int, addresses map[*Label]int) []byte {
	return append(c.A.Encode(start, addresses), c.B.Encode(start+c.A.Length(), addresses)...)
}

func (c Chain) LineNos(start int) []ByteLine {
	return append(c.A.LineNos(start), c.B.LineNos(start+c.A.Length())...)
}

func (c Chain) Plumb(depths *[]int) {
	c.A.Plumb(depths)
	c.B.Plumb(depths)
}

// OffsetStack rebalances the stack-depth trace at a point where two
// control-flow paths merge and one of them needs an extra implicit pop
// accounted for (e.g. after a for-loop's iterator is exhausted, or after a
// short-circuiting bool-op's discarded branch). Grounded on assembly.py's
// OffsetStack.
type OffsetStack struct{}

func (OffsetStack) Length() int                      { return 0 }
func (OffsetStack) Resolve(int) []LabelAddr           { return nil }
func (OffsetStack) Encode(int, map[*Label]int) []byte { return nil }
func (OffsetStack) LineNos(int) []ByteLine            { return nil }
func (OffsetStack) Plumb(depths *[]int) {
	last := (*depths)[len(*depths)-1]
	*depths = append(*depths, last-1)
}

// Assemble renders the whole program to its final byte string: resolve
// every label's address, then encode every instruction against that map.
func Assemble(f Fragment) []byte {
	addresses := make(map[*Label]int)
	for _, la := range f.Resolve(0) {
		addresses[la.Label] = la.Addr
	}
	return f.Encode(0, addresses)
}

// PlumbDepths walks f's instructions and returns the maximum operand-stack
// depth reached, i.e. the code object's stacksize.
func PlumbDepths(f Fragment) int {
	depths := []int{0}
	f.Plumb(&depths)
	max := depths[0]
	for _, d := range depths {
		if d > max {
			max = d
		}
	}
	return max
}

// MakeLnotab walks f's (byte_offset, line) pairs in encounter order and
// produces the line-number table encoding plus the code object's
// firstlineno. Grounded on assembly.py's make_lnotab: unsigned (Δbyte,
// Δline) pairs, with (255, 0) filler when Δbyte > 255 and a (Δbyte, 255)
// pair (consuming the bytes once) when Δline > 255.
func MakeLnotab(f Fragment) (firstLine int, lnotab []byte) {
	pairs := f.LineNos(0)
	if len(pairs) == 0 {
		return 1, nil
	}

	firstLine = pairs[0].Line
	byteOff, line := 0, firstLine
	for _, p := range pairs[1:] {
		if line >= p.Line {
			continue
		}
		for byteOff+255 < p.Byte {
			lnotab = append(lnotab, 255, 0)
			byteOff += 255
		}
		for line+255 < p.Line {
			lnotab = append(lnotab, byte(p.Byte-byteOff), 255)
			byteOff, line = p.Byte, line+255
		}
		if byteOff != p.Byte || line != p.Line {
			lnotab = append(lnotab, byte(p.Byte-byteOff), byte(p.Line-line))
			byteOff, line = p.Byte, p.Line
		}
	}
	return firstLine, lnotab
}
