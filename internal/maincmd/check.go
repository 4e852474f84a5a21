package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"
)

// Check assembles each file and reports any syntax error, without
// executing it — useful as a fast sanity check on generated or
// hand-written assembly before Run spends a VM on it.
func (c *Cmd) Check(_ context.Context, stdio mainer.Stdio, args []string) error {
	var failed bool
	for _, path := range args {
		if _, err := assembleFile(path); err != nil {
			fmt.Fprintf(stdio.Stderr, "%s: %s\n", path, err)
			failed = true
			continue
		}
		fmt.Fprintf(stdio.Stdout, "%s: ok\n", path)
	}
	if failed {
		return fmt.Errorf("one or more files failed")
	}
	return nil
}
