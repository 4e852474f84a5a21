// Package maincmd implements the tailbiter command-line tool: a thin
// driver around lang/compiler's textual assembler/disassembler
// (Asm/Dasm) and lang/machine's VM. Grounded in
// _examples/mna-nenuphar/internal/maincmd/maincmd.go's Cmd/buildCmds
// reflection-dispatch design, adapted to this module's three commands
// (run/dasm/check) in place of the teacher's parse/resolve/tokenize —
// this module has no source-text front end (lang/ast trees are built by
// the compiler's own callers, not parsed from text), so every command
// operates on the textual assembler format lang/compiler.Asm/Dasm
// define, the closest analogue to the teacher's source files.
package maincmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/mna/mainer"
)

const binName = "tailbiter"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] <command> <path>...
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] <command> <path>...
       %[1]s -h|--help
       %[1]s -v|--version

Assembler, disassembler and interpreter for the tailbiter stack VM's
bytecode, in its textual form (see lang/compiler's Asm/Dasm).

The <command> can be one of:
       run                       Assemble each file and execute its
                                 module-level code in a fresh VM,
                                 printing the returned value or the
                                 unhandled exception.
       check                     Assemble each file and report any
                                 syntax error, without executing it.
       dasm                      Assemble each file and immediately
                                 disassemble it back, canonicalizing
                                 its textual form on stdout.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
       --max-steps <n>           Abort a run after n dispatched
                                 instructions (0, the default, means
                                 no limit).

More information on the tailbiter language and VM is in SPEC_FULL.md.
`, binName)
)

type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	MaxSteps int `flag:"max-steps"`

	args  []string
	flags map[string]bool
	cmdFn func(context.Context, mainer.Stdio, []string) error
}

func (c *Cmd) SetArgs(args []string) {
	c.args = args
}

func (c *Cmd) SetFlags(flags map[string]bool) {
	c.flags = flags
}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}

	if len(c.args) == 0 {
		return errors.New("no command specified")
	}

	cmdName := c.args[0]
	commands := buildCmds(c)
	c.cmdFn = commands[cmdName]
	if c.cmdFn == nil {
		return fmt.Errorf("unknown command: %s", cmdName)
	}

	if len(c.args[1:]) == 0 {
		return fmt.Errorf("%s: at least one file must be provided", cmdName)
	}
	if c.MaxSteps < 0 {
		return errors.New("--max-steps must not be negative")
	}

	return nil
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   false,
		EnvPrefix: binName + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success
	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	if err := c.cmdFn(ctx, stdio, c.args[1:]); err != nil {
		// each command prints its own errors; just report the failure
		return mainer.Failure
	}
	return mainer.Success
}

// buildCmds exposes every Cmd method shaped like a command handler
// (context.Context, mainer.Stdio, []string) error under its lowercased
// name, the same reflection trick the teacher's buildCmds uses so a new
// command only needs a new method, not a registration line.
func buildCmds(v interface{}) map[string]func(context.Context, mainer.Stdio, []string) error {
	cmds := make(map[string]func(context.Context, mainer.Stdio, []string) error)

	vv := reflect.ValueOf(v)
	vt := vv.Type()
	for i := 0; i < vt.NumMethod(); i++ {
		m := vt.Method(i)
		mt := m.Type

		if mt.NumIn() != 4 || mt.NumOut() != 1 {
			continue
		}
		if rt := mt.Out(0); rt.Kind() != reflect.Interface || rt.Name() != "error" {
			continue
		}
		if p0 := mt.In(0); p0.Kind() != reflect.Ptr || p0.Elem().Name() != "Cmd" {
			continue
		}
		if p1 := mt.In(1); p1.Kind() != reflect.Interface || p1.Name() != "Context" {
			continue
		}
		if p2 := mt.In(2); p2.Kind() != reflect.Struct || p2.Name() != "Stdio" {
			continue
		}
		if p3 := mt.In(3); p3.Kind() != reflect.Slice || p3.Elem().Name() != "string" {
			continue
		}
		cmds[strings.ToLower(m.Name)] = vv.Method(i).Interface().(func(context.Context, mainer.Stdio, []string) error)
	}
	return cmds
}
