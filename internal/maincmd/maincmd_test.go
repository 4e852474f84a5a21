package maincmd_test

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/mna/mainer"
	"github.com/mna/tailbiter/internal/filetest"
	"github.com/mna/tailbiter/internal/maincmd"
	"github.com/stretchr/testify/require"
)

func TestCmdRun(t *testing.T) {
	ctx := context.Background()
	srcDir, resultDir := filepath.Join("testdata", "in"), filepath.Join("testdata", "out")

	for _, fi := range filetest.SourceFiles(t, srcDir, ".tbasm") {
		t.Run(fi.Name(), func(t *testing.T) {
			var buf, ebuf bytes.Buffer
			stdio := mainer.Stdio{Stdout: &buf, Stderr: &ebuf}

			c := &maincmd.Cmd{}
			_ = c.Run(ctx, stdio, []string{filepath.Join(srcDir, fi.Name())})

			filetest.DiffCustom(t, fi, "output", ".run.want", buf.String(), resultDir, nil)
			filetest.DiffErrors(t, fi, ebuf.String(), resultDir, nil)
		})
	}
}

func TestCmdCheck(t *testing.T) {
	ctx := context.Background()
	srcDir := filepath.Join("testdata", "in")

	c := &maincmd.Cmd{}

	var buf, ebuf bytes.Buffer
	stdio := mainer.Stdio{Stdout: &buf, Stderr: &ebuf}
	err := c.Check(ctx, stdio, []string{filepath.Join(srcDir, "sum.tbasm")})
	require.NoError(t, err)
	require.Contains(t, buf.String(), "sum.tbasm: ok")

	buf.Reset()
	ebuf.Reset()
	err = c.Check(ctx, stdio, []string{filepath.Join(srcDir, "bad.tbasm")})
	require.Error(t, err)
	require.Contains(t, ebuf.String(), "bad.tbasm")
}

func TestCmdValidate(t *testing.T) {
	c := &maincmd.Cmd{}
	c.SetArgs(nil)
	require.Error(t, c.Validate())

	c = &maincmd.Cmd{}
	c.SetArgs([]string{"bogus", "a.tbasm"})
	require.Error(t, c.Validate())

	c = &maincmd.Cmd{}
	c.SetArgs([]string{"run"})
	require.Error(t, c.Validate(), "run with no files must be rejected")

	c = &maincmd.Cmd{}
	c.SetArgs([]string{"run", "a.tbasm"})
	require.NoError(t, c.Validate())

	c = &maincmd.Cmd{Help: true}
	c.SetArgs(nil)
	require.NoError(t, c.Validate(), "--help needs no command")
}
