package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"
	"github.com/mna/tailbiter/lang/compiler"
)

// Dasm assembles each file and immediately disassembles it back,
// printing the canonical textual form to stdout — the assembler
// equivalent of a code formatter, and a quick way to check that Asm and
// Dasm agree on a file's meaning.
func (c *Cmd) Dasm(_ context.Context, stdio mainer.Stdio, args []string) error {
	var failed bool
	for _, path := range args {
		code, err := assembleFile(path)
		if err != nil {
			fmt.Fprintf(stdio.Stderr, "%s: %s\n", path, err)
			failed = true
			continue
		}
		out, err := compiler.Dasm(code)
		if err != nil {
			fmt.Fprintf(stdio.Stderr, "%s: %s\n", path, err)
			failed = true
			continue
		}
		stdio.Stdout.Write(out)
	}
	if failed {
		return fmt.Errorf("one or more files failed")
	}
	return nil
}
