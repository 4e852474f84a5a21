package compiler

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// This file implements a human-readable/writable textual form of a compiled
// Code object tree: Asm parses it back into a *Code, Dasm renders a *Code
// into it. Grounded on _examples/mna-nenuphar/lang/compiler/asm.go's
// section-scanner design (a flat sequence of "section:" keyword lines, each
// followed by indented entries until the next recognized keyword), adapted
// for this module's single Code type (no separate Funcode/Program split)
// and for nested *Code constants, which this format flattens into a series
// of top-level "code:" blocks in post-order (every nested Code a block's
// constants pool references is written, and therefore parseable, before the
// block itself) rather than nesting blocks textually.
//
// 	program:
// 		module: 2                 # id of the top-level code block
//
// 	code: 0 name=<lambda> argcount=1 nlocals=1 stacksize=2 flags=2 filename=test.tb firstline=3
// 		varnames:
// 			x
// 		constants:
// 			none
// 		code:
// 			LOAD_FAST 0
// 			RETURN_VALUE
//
// 	code: 2 name=<module> argcount=0 nlocals=0 stacksize=2 flags=0 filename=test.tb firstline=1
// 		names:
// 			f
// 		constants:
// 			code 0
// 			none
// 		code:
// 			LOAD_CONST 0
// 			STORE_NAME 0
// 			LOAD_CONST 1
// 			RETURN_VALUE
//
// Jump opcode arguments are instruction indices into the same block's code:
// section, not byte addresses — Asm and Dasm translate between the two so
// the textual form never depends on an opcode's encoded width.

var textSections = map[string]bool{
	"program:":   true,
	"module:":    true,
	"code:":      true,
	"names:":     true,
	"varnames:":  true,
	"freevars:":  true,
	"cellvars:":  true,
	"constants:": true,
	"lnotab:":    true,
}

// flattenCodes walks top's nested *Code constants post-order (children
// before parents, matching the order every reference must already have
// been written in a single linear pass) and assigns each one an id.
func flattenCodes(top *Code) ([]*Code, map[*Code]int) {
	var order []*Code
	ids := make(map[*Code]int)
	var visit func(c *Code)
	visit = func(c *Code) {
		if _, ok := ids[c]; ok {
			return
		}
		for _, k := range c.Constants {
			if nc, ok := k.(*Code); ok {
				visit(nc)
			}
		}
		ids[c] = len(order)
		order = append(order, c)
	}
	visit(top)
	return order, ids
}

// Dasm renders top (and every Code it nests, transitively, as a constant)
// into the textual assembler format.
func Dasm(top *Code) ([]byte, error) {
	order, ids := flattenCodes(top)
	d := &dasm{buf: new(bytes.Buffer), ids: ids}

	d.writef("program:\n\tmodule: %d\n", ids[top])
	for _, c := range order {
		d.write("\n")
		d.block(c)
		if d.err != nil {
			return nil, d.err
		}
	}
	return d.buf.Bytes(), nil
}

type dasm struct {
	buf *bytes.Buffer
	ids map[*Code]int
	err error
}

func (d *dasm) write(s string)                 { d.buf.WriteString(s) }
func (d *dasm) writef(f string, a ...any)       { fmt.Fprintf(d.buf, f, a...) }

func (d *dasm) block(c *Code) {
	d.writef("code: %d name=%s argcount=%d nlocals=%d stacksize=%d flags=%d filename=%s firstline=%d\n",
		d.ids[c], quoteBareWord(c.Name), c.Argcount, c.NLocals, c.StackSize, c.Flags, quoteBareWord(c.Filename), c.FirstLineNo)

	writeNames := func(header string, names []string) {
		if len(names) == 0 {
			return
		}
		d.writef("\t%s\n", header)
		for i, n := range names {
			d.writef("\t\t%s\t# %03d\n", n, i)
		}
	}
	writeNames("names:", c.Names)
	writeNames("varnames:", c.Varnames)
	writeNames("freevars:", c.Freevars)
	writeNames("cellvars:", c.Cellvars)

	if len(c.Constants) > 0 {
		d.write("\tconstants:\n")
		for i, k := range c.Constants {
			d.writef("\t\t%s\t# %03d\n", d.constantLine(k), i)
		}
	}

	if len(c.Lnotab) > 0 {
		d.write("\tlnotab:\n\t\t")
		for i, b := range c.Lnotab {
			if i > 0 {
				d.write(" ")
			}
			d.writef("%d", b)
		}
		d.write("\n")
	}

	insns, addrToIndex, err := decodeInstructions(c.Bytecode)
	if err != nil {
		d.err = fmt.Errorf("code %d (%s): %w", d.ids[c], c.Name, err)
		return
	}
	if len(insns) > 0 {
		d.write("\tcode:\n")
		for _, ins := range insns {
			arg := ins.arg
			if isJump(ins.op) {
				idx, ok := addrToIndex[ins.target]
				if !ok {
					d.err = fmt.Errorf("code %d (%s): jump to mid-instruction address %d", d.ids[c], c.Name, ins.target)
					return
				}
				arg = idx
			}
			if ins.op >= HAVE_ARGUMENT {
				d.writef("\t\t%s %d\n", ins.op, arg)
			} else {
				d.writef("\t\t%s\n", ins.op)
			}
		}
	}
}

func (d *dasm) constantLine(k any) string {
	switch v := k.(type) {
	case int64:
		return fmt.Sprintf("int %d", v)
	case float64:
		return fmt.Sprintf("float %s", strconv.FormatFloat(v, 'g', -1, 64))
	case string:
		return fmt.Sprintf("string %s", strconv.Quote(v))
	case []byte:
		return fmt.Sprintf("bytes %s", strconv.Quote(string(v)))
	case bool:
		return fmt.Sprintf("bool %t", v)
	case nil:
		return "none"
	case []string:
		return fmt.Sprintf("names %s", strings.Join(v, ","))
	case *Code:
		id, ok := d.ids[v]
		if !ok {
			d.err = fmt.Errorf("nested code constant %p was not flattened", v)
			return "code ?"
		}
		return fmt.Sprintf("code %d", id)
	default:
		d.err = fmt.Errorf("constant of unsupported type %T", k)
		return ""
	}
}

// quoteBareWord quotes s if it would otherwise be misread as more than one
// field (or be empty), so Asm's field splitter round-trips it.
func quoteBareWord(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\"") {
		return strconv.Quote(s)
	}
	return s
}

func unquoteBareWord(s string) (string, error) {
	if strings.HasPrefix(s, `"`) {
		return strconv.Unquote(s)
	}
	return s, nil
}

// decodedInsn is one decoded bytecode instruction: op/arg as stored in the
// byte stream, plus target, the absolute byte address a jump opcode's arg
// resolves to (meaningless for a non-jump opcode).
type decodedInsn struct {
	op     Opcode
	arg    int
	target int
}

// decodeInstructions walks code linearly, the same way machine.VM's dispatch
// loop does, and returns each instruction plus a map from every instruction's
// own starting byte address to its index (used to translate a jump's target
// byte address into a textual instruction index).
func decodeInstructions(code []byte) ([]decodedInsn, map[int]int, error) {
	addrToIndex := make(map[int]int)
	var insns []decodedInsn
	addr := 0
	for addr < len(code) {
		op := Opcode(code[addr])
		addrToIndex[addr] = len(insns)
		if op >= HAVE_ARGUMENT {
			if addr+3 > len(code) {
				return nil, nil, fmt.Errorf("truncated instruction at address %d", addr)
			}
			arg := int(code[addr+1]) | int(code[addr+2])<<8
			target := 0
			switch {
			case hasRelativeJump(op):
				target = addr + 3 + arg
			case hasAbsoluteJump(op):
				target = arg
			}
			insns = append(insns, decodedInsn{op: op, arg: arg, target: target})
			addr += 3
		} else {
			insns = append(insns, decodedInsn{op: op})
			addr++
		}
	}
	return insns, addrToIndex, nil
}

// Asm parses the textual assembler format produced by Dasm back into a
// *Code: the top-level code object named by the program section's module
// id.
func Asm(b []byte) (*Code, error) {
	a := &asm{s: bufio.NewScanner(bytes.NewReader(b)), byID: make(map[int]*Code)}

	fields := a.next()
	if len(fields) == 0 || fields[0] != "program:" {
		return nil, errors.New("asm: expected program: section")
	}
	fields = a.next()
	if len(fields) != 2 || fields[0] != "module:" {
		return nil, errors.New("asm: expected module: <id> line")
	}
	moduleID := a.int(fields[1])
	fields = a.next()

	for a.err == nil && len(fields) > 0 && fields[0] == "code:" {
		fields = a.block(fields)
	}
	if a.err != nil {
		return nil, a.err
	}
	if len(fields) > 0 {
		return nil, fmt.Errorf("asm: unexpected section: %s", fields[0])
	}
	if err := resolvePendingCodeRefs(a.pending, a.byID); err != nil {
		return nil, err
	}

	top, ok := a.byID[int(moduleID)]
	if !ok {
		return nil, fmt.Errorf("asm: module id %d was never defined", moduleID)
	}
	return top, nil
}

type asm struct {
	s       *bufio.Scanner
	rawLine string
	err     error
	byID    map[int]*Code
	pending []pendingCodeRef
}

// pendingCodeRef records a "code <id>" constant entry seen while parsing c's
// constants section, resolved to the real *Code once every block has been
// parsed (ids referenced in a constants section were, per flattenCodes'
// post-order guarantee, already defined by an earlier block).
type pendingCodeRef struct {
	code  *Code
	index int
	id    int
}

func (a *asm) block(fields []string) []string {
	// "code:" <id> name=.. argcount=.. nlocals=.. stacksize=.. flags=.. filename=.. firstline=..
	if len(fields) < 8 {
		a.err = fmt.Errorf("asm: invalid code: header, got %d fields", len(fields))
		return nil
	}
	id := a.int(fields[1])
	c := &Code{}

	kv := make(map[string]string, len(fields)-2)
	for _, f := range fields[2:] {
		parts := strings.SplitN(f, "=", 2)
		if len(parts) != 2 {
			a.err = fmt.Errorf("asm: invalid code: header field %q", f)
			return nil
		}
		kv[parts[0]] = parts[1]
	}
	var err error
	if c.Name, err = unquoteBareWord(kv["name"]); err != nil {
		a.err = fmt.Errorf("asm: invalid name: %w", err)
		return nil
	}
	if c.Filename, err = unquoteBareWord(kv["filename"]); err != nil {
		a.err = fmt.Errorf("asm: invalid filename: %w", err)
		return nil
	}
	c.Argcount = int(a.int(kv["argcount"]))
	c.NLocals = int(a.int(kv["nlocals"]))
	c.StackSize = int(a.int(kv["stacksize"]))
	c.Flags = uint8(a.int(kv["flags"]))
	c.FirstLineNo = int(a.int(kv["firstline"]))

	fields = a.next()
	fields = a.nameList(fields, "names:", &c.Names)
	fields = a.nameList(fields, "varnames:", &c.Varnames)
	fields = a.nameList(fields, "freevars:", &c.Freevars)
	fields = a.nameList(fields, "cellvars:", &c.Cellvars)
	fields = a.constants(fields, c)
	fields = a.lnotab(fields, c)
	fields = a.code(fields, c)

	if a.err != nil {
		return fields
	}
	a.byID[int(id)] = c
	return fields
}

func (a *asm) nameList(fields []string, header string, dst *[]string) []string {
	if a.err != nil || len(fields) == 0 || fields[0] != header {
		return fields
	}
	for fields = a.next(); len(fields) > 0 && !textSections[fields[0]]; fields = a.next() {
		*dst = append(*dst, fields[0])
	}
	return fields
}

func (a *asm) constants(fields []string, c *Code) []string {
	if a.err != nil || len(fields) == 0 || fields[0] != "constants:" {
		return fields
	}
	for fields = a.next(); len(fields) > 0 && !textSections[fields[0]]; fields = a.next() {
		kind := fields[0]
		switch kind {
		case "int":
			c.Constants = append(c.Constants, a.int(fields[1]))
		case "float":
			f, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				a.err = fmt.Errorf("asm: invalid float constant: %w", err)
				return fields
			}
			c.Constants = append(c.Constants, f)
		case "string", "bytes":
			// the value may contain whitespace, so re-read it from rawLine
			// (trimmed but not field-split) rather than fields[1].
			rest := strings.TrimSpace(strings.TrimPrefix(a.rawLine, kind))
			qs, err := strconv.QuotedPrefix(rest)
			if err != nil {
				a.err = fmt.Errorf("asm: invalid %s constant: %w", kind, err)
				return fields
			}
			s, err := strconv.Unquote(qs)
			if err != nil {
				a.err = fmt.Errorf("asm: invalid %s constant: %w", kind, err)
				return fields
			}
			if kind == "bytes" {
				c.Constants = append(c.Constants, []byte(s))
			} else {
				c.Constants = append(c.Constants, s)
			}
		case "bool":
			c.Constants = append(c.Constants, fields[1] == "true")
		case "none":
			c.Constants = append(c.Constants, nil)
		case "names":
			var names []string
			if len(fields) > 1 && fields[1] != "" {
				names = strings.Split(fields[1], ",")
			}
			c.Constants = append(c.Constants, names)
		case "code":
			a.pending = append(a.pending, pendingCodeRef{code: c, index: len(c.Constants), id: int(a.int(fields[1]))})
			c.Constants = append(c.Constants, nil)
		default:
			a.err = fmt.Errorf("asm: invalid constant kind %q", kind)
			return fields
		}
	}
	return fields
}

func (a *asm) lnotab(fields []string, c *Code) []string {
	if a.err != nil || len(fields) == 0 || fields[0] != "lnotab:" {
		return fields
	}
	fields = a.next()
	for _, f := range fields {
		c.Lnotab = append(c.Lnotab, byte(a.int(f)))
	}
	return a.next()
}

func (a *asm) code(fields []string, c *Code) []string {
	if a.err != nil {
		return fields
	}
	if len(fields) == 0 || fields[0] != "code:" {
		return fields
	}

	type parsedInsn struct {
		op  Opcode
		arg int
	}
	var insns []parsedInsn
	var indexToAddr []int
	addr := 0
	for fields = a.next(); len(fields) > 0 && !textSections[fields[0]]; fields = a.next() {
		op, ok := LookupOpcode(fields[0])
		if !ok {
			a.err = fmt.Errorf("asm: unknown opcode %q", fields[0])
			return fields
		}
		var arg int
		if op >= HAVE_ARGUMENT {
			if len(fields) != 2 {
				a.err = fmt.Errorf("asm: opcode %s requires one argument", op)
				return fields
			}
			arg = int(a.int(fields[1]))
		} else if len(fields) != 1 {
			a.err = fmt.Errorf("asm: opcode %s takes no argument", op)
			return fields
		}
		insns = append(insns, parsedInsn{op: op, arg: arg})
		indexToAddr = append(indexToAddr, addr)
		if op >= HAVE_ARGUMENT {
			addr += 3
		} else {
			addr++
		}
	}

	buf := make([]byte, 0, addr)
	for i, ins := range insns {
		arg := ins.arg
		if isJump(ins.op) {
			if arg < 0 || arg >= len(indexToAddr) {
				a.err = fmt.Errorf("asm: invalid jump index %d at instruction %d (%s)", arg, i, ins.op)
				return fields
			}
			target := indexToAddr[arg]
			if hasRelativeJump(ins.op) {
				arg = target - (indexToAddr[i] + 3)
			} else {
				arg = target
			}
		}
		buf = append(buf, byte(ins.op))
		if ins.op >= HAVE_ARGUMENT {
			var argBuf [2]byte
			binary.LittleEndian.PutUint16(argBuf[:], uint16(arg))
			buf = append(buf, argBuf[0], argBuf[1])
		}
	}
	c.Bytecode = buf
	return fields
}

func (a *asm) int(s string) int64 {
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		a.err = fmt.Errorf("asm: invalid integer %q: %w", s, err)
	}
	return i
}

// next returns the fields of the next non-blank, non-comment line. A
// trailing "# ..." comment is dropped only when it stands as its own
// whitespace-delimited field, so a quoted string/bytes constant's value may
// itself contain a "#" without being mistaken for one (grounded on
// _examples/mna-nenuphar/lang/compiler/asm.go's next(), same rule). rawLine
// keeps the trimmed line un-split (trailing comment included), for string/bytes
// constants whose value contains whitespace the field splitter would
// otherwise break apart.
func (a *asm) next() []string {
	a.rawLine = ""
	if a.err != nil {
		return nil
	}
	for a.s.Scan() {
		line := a.s.Text()
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		for i, f := range fields {
			if strings.HasPrefix(f, "#") {
				fields = fields[:i]
				break
			}
		}
		if len(fields) == 0 {
			continue
		}
		// rawLine keeps any trailing "# ..." comment; the only consumer
		// (string/bytes constant parsing) reads no further than the closing
		// quote via strconv.QuotedPrefix, so trailing text is harmless.
		a.rawLine = strings.TrimSpace(line)
		return fields
	}
	a.err = a.s.Err()
	return nil
}

func resolvePendingCodeRefs(pending []pendingCodeRef, byID map[int]*Code) error {
	for _, p := range pending {
		c, ok := byID[p.id]
		if !ok {
			return fmt.Errorf("asm: code constant references undefined id %d", p.id)
		}
		p.code.Constants[p.index] = c
	}
	return nil
}
