package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
	"github.com/mna/tailbiter/lang/compiler"
	"github.com/mna/tailbiter/lang/machine"
	"github.com/mna/tailbiter/lang/types"
)

// Run assembles each file and executes its module-level code in a fresh
// VM, printing the returned value (or the unhandled exception, to
// stderr, as a failure) for each.
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	var failed bool
	for _, path := range args {
		code, err := assembleFile(path)
		if err != nil {
			fmt.Fprintf(stdio.Stderr, "%s: %s\n", path, err)
			failed = true
			continue
		}

		vm := &machine.VM{MaxSteps: c.MaxSteps}
		result, err := vm.RunProgram(ctx, code)
		if err != nil {
			if exc, ok := err.(*types.Exception); ok {
				fmt.Fprintf(stdio.Stderr, "%s: unhandled exception: %s\n", path, exc.Error())
			} else {
				fmt.Fprintf(stdio.Stderr, "%s: %s\n", path, err)
			}
			failed = true
			continue
		}
		fmt.Fprintf(stdio.Stdout, "%s: %s\n", path, result)
	}
	if failed {
		return fmt.Errorf("one or more files failed")
	}
	return nil
}

func assembleFile(path string) (*compiler.Code, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return compiler.Asm(b)
}
